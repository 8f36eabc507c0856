package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var labSchema = schema.New("lab",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "testName", Kind: schema.String, Required: true},
	schema.Field{Name: "result", Kind: schema.String, Required: true},
	schema.Field{Name: "date", Kind: schema.Date, Required: true},
)

func Lab() *resource.Definition {
	return &resource.Definition{
		Name:       "lab",
		Path:       "/labs",
		Collection: "labs",
		Schema:     labSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
			text("testName", "testName"),
			text("term", "testName", "result"),
		},
	}
}
