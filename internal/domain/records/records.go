// Package records defines the record types served by the API. Each
// definition is data: the schema, the collection it lives in and the search
// parameters it recognizes.
package records

import "github.com/ehr/records/internal/platform/resource"

// All returns every record definition in the order they are mounted.
func All() []*resource.Definition {
	return []*resource.Definition{
		Patient(),
		Provider(),
		Appointment(),
		Encounter(),
		Prescription(),
		Lab(),
		Vitals(),
		InventoryItem(),
		Billing(),
	}
}

func exact(name string) resource.SearchParam {
	return resource.SearchParam{Name: name, Fields: []string{name}, Match: resource.Exact}
}

func text(name string, fields ...string) resource.SearchParam {
	return resource.SearchParam{Name: name, Fields: fields, Match: resource.Substring}
}
