// Package resources declares the resources served by the API.
package resources

import (
	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/registry"
)

// Swords returns the sword resource. Every column is optional.
func Swords() *core.Resource {
	return &core.Resource{
		Name:   "sword",
		Plural: "swords",
		Schema: &core.Schema{
			TableName:  "swords",
			PrimaryKey: "id",
			Columns: []core.Column{
				{Name: "type", Type: core.TypeText, Nullable: true},
				{Name: "is_magical", Type: core.TypeBoolean, Nullable: true},
				{Name: "attack", Type: core.TypeInteger, Nullable: true},
				{Name: "sp_attack", Type: core.TypeInteger, Nullable: true},
			},
		},
	}
}

// Potions returns the potion resource. A potion must have a name.
func Potions() *core.Resource {
	return &core.Resource{
		Name:   "potion",
		Plural: "potions",
		Schema: &core.Schema{
			TableName:  "potions",
			PrimaryKey: "id",
			Columns: []core.Column{
				{Name: "name", Type: core.TypeText, Nullable: false},
				{Name: "effect", Type: core.TypeText, Nullable: true},
				{Name: "potency", Type: core.TypeInteger, Nullable: true},
				{Name: "price", Type: core.TypeFloat, Nullable: true},
			},
		},
	}
}

// All returns every resource in mount order.
func All() []*core.Resource {
	return []*core.Resource{Swords(), Potions()}
}

// NewRegistry returns a registry holding every resource.
func NewRegistry() *registry.ResourceRegistry {
	reg := registry.NewResourceRegistry()
	reg.MustRegister(All()...)
	return reg
}
