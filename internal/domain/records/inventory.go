package records

import (
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/schema"
)

var inventorySchema = schema.New("inventory item",
	schema.Field{Name: "name", Kind: schema.String, Required: true},
	schema.Field{Name: "quantity", Kind: schema.Int, Required: true, NonNegative: true},
	schema.Field{Name: "reorderLevel", Kind: schema.Int, NonNegative: true, Default: int64(0)},
)

func InventoryItem() *resource.Definition {
	return &resource.Definition{
		Name:       "inventory item",
		Path:       "/inventory",
		Collection: "inventoryitems",
		Schema:     inventorySchema,
		SearchParams: []resource.SearchParam{
			text("name", "name"),
			text("term", "name"),
		},
	}
}
