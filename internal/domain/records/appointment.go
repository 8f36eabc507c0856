package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// No ordering check between start and end.
var appointmentSchema = schema.New("appointment",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "providerId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "start", Kind: schema.DateTime, Required: true},
	schema.Field{Name: "end", Kind: schema.DateTime, Required: true},
	schema.Field{
		Name:    "status",
		Kind:    schema.Enum,
		Enum:    []string{AppointmentScheduled, AppointmentCompleted, AppointmentCancelled},
		Default: AppointmentScheduled,
	},
)

func Appointment() *resource.Definition {
	return &resource.Definition{
		Name:       "appointment",
		Path:       "/appointments",
		Collection: "appointments",
		Schema:     appointmentSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
			exact("providerId"),
			exact("status"),
		},
		Transitions: []resource.Transition{
			// cancel applies from any status, completed included
			{Name: "cancel", Set: map[string]any{"status": AppointmentCancelled}},
		},
	}
}
