package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var prescriptionSchema = schema.New("prescription",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "providerId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "medication", Kind: schema.String, Required: true},
	schema.Field{Name: "dosage", Kind: schema.String, Required: true},
	schema.Field{Name: "startDate", Kind: schema.Date, Required: true},
	schema.Field{Name: "endDate", Kind: schema.Date, Required: true},
	schema.Field{Name: "status", Kind: schema.Enum, Enum: []string{"active", "completed", "cancelled"}, Default: "active"},
)

func Prescription() *resource.Definition {
	return &resource.Definition{
		Name:       "prescription",
		Path:       "/prescriptions",
		Collection: "prescriptions",
		Schema:     prescriptionSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
			exact("providerId"),
			exact("status"),
			text("medication", "medication"),
		},
	}
}
