package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

const (
	BillingUnpaid  = "unpaid"
	BillingPaid    = "paid"
	BillingPending = "pending"
)

var billingSchema = schema.New("billing",
	schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
	schema.Field{Name: "amount", Kind: schema.Number, Required: true, Positive: true},
	schema.Field{
		Name:    "status",
		Kind:    schema.Enum,
		Enum:    []string{BillingUnpaid, BillingPaid, BillingPending},
		Default: BillingUnpaid,
	},
	schema.Field{Name: "dueDate", Kind: schema.Date, Required: true},
)

func Billing() *resource.Definition {
	return &resource.Definition{
		Name:       "billing",
		Path:       "/billing",
		Collection: "billings",
		Schema:     billingSchema,
		SearchParams: []resource.SearchParam{
			exact("patientId"),
			exact("status"),
		},
	}
}
