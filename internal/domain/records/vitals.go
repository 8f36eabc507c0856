package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var vitalsSchema = schema.New("vitals",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "date", Kind: schema.Date, Required: true},
	schema.Field{Name: "heartRate", Kind: schema.Int, Required: true, Positive: true},
	schema.Field{Name: "bloodPressure", Kind: schema.String, Required: true},
	schema.Field{Name: "temperature", Kind: schema.Number, Required: true},
)

func Vitals() *resource.Definition {
	return &resource.Definition{
		Name:       "vitals",
		Path:       "/vitals",
		Collection: "vitals",
		Schema:     vitalsSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
		},
	}
}
