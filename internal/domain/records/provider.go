package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var providerSchema = schema.New("provider",
	schema.Field{Name: "name", Kind: schema.String, Required: true, MinLength: 2},
	schema.Field{Name: "specialty", Kind: schema.String, Required: true, MinLength: 2},
	schema.Field{Name: "active", Kind: schema.Bool, Default: true},
)

func Provider() *resource.Definition {
	return &resource.Definition{
		Name:       "provider",
		Path:       "/providers",
		Collection: "providers",
		Schema:     providerSchema,
		SearchParams: []resource.SearchParam{
			text("name", "name"),
			text("specialty", "specialty"),
			text("term", "name", "specialty"),
			{Name: "active", Fields: []string{"active"}, Kind: schema.Bool},
		},
	}
}
