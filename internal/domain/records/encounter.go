package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var encounterSchema = schema.New("encounter",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "providerId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "date", Kind: schema.DateTime, Required: true},
	schema.Field{Name: "notes", Kind: schema.String, AllowEmpty: true, Default: ""},
)

func Encounter() *resource.Definition {
	return &resource.Definition{
		Name:       "encounter",
		Path:       "/encounters",
		Collection: "encounters",
		Schema:     encounterSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
			exact("providerId"),
			text("term", "notes"),
		},
	}
}
