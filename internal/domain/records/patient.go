package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var patientSchema = schema.New("patient",
	schema.Field{Name: "name", Kind: schema.String, Required: true, MinLength: 2},
	schema.Field{Name: "dob", Kind: schema.Date, Required: true},
	schema.Field{Name: "gender", Kind: schema.Enum, Enum: []string{"M", "F", "O"}, Default: "O"},
)

func Patient() *resource.Definition {
	return &resource.Definition{
		Name:       "patient",
		Path:       "/patients",
		Collection: "patients",
		Schema:     patientSchema,
		SearchParams: []resource.SearchParam{
			text("name", "name"),
			text("term", "name"),
			exact("gender"),
		},
	}
}
