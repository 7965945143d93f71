package registry

import (
	"fmt"
	"sync"

	"github.com/rzpsarthak13/armory/internal/core"
)

// ResourceRegistry holds the resources the service exposes.
// It is safe for concurrent use; resources are listed in registration order.
type ResourceRegistry struct {
	mu        sync.RWMutex
	resources map[string]*core.Resource
	order     []string
}

// NewResourceRegistry creates an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		resources: make(map[string]*core.Resource),
	}
}

// Register validates and adds a resource. Plural names and table names must be unique.
func (rr *ResourceRegistry) Register(resource *core.Resource) error {
	if err := validateResource(resource); err != nil {
		return err
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, exists := rr.resources[resource.Plural]; exists {
		return fmt.Errorf("resource %q is already registered", resource.Plural)
	}
	for _, existing := range rr.resources {
		if existing.Schema.TableName == resource.Schema.TableName {
			return fmt.Errorf("table %q is already used by resource %q", resource.Schema.TableName, existing.Plural)
		}
	}

	rr.resources[resource.Plural] = resource
	rr.order = append(rr.order, resource.Plural)
	return nil
}

// MustRegister is like Register but panics on error.
func (rr *ResourceRegistry) MustRegister(resources ...*core.Resource) {
	for _, resource := range resources {
		if err := rr.Register(resource); err != nil {
			panic(err)
		}
	}
}

// Get returns the resource mounted at plural.
func (rr *ResourceRegistry) Get(plural string) (*core.Resource, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	resource, exists := rr.resources[plural]
	if !exists {
		return nil, fmt.Errorf("resource %q is not registered", plural)
	}
	return resource, nil
}

// List returns every registered resource in registration order.
func (rr *ResourceRegistry) List() []*core.Resource {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	list := make([]*core.Resource, 0, len(rr.order))
	for _, plural := range rr.order {
		list = append(list, rr.resources[plural])
	}
	return list
}

// Schemas returns the schema of every registered resource in registration order.
func (rr *ResourceRegistry) Schemas() []*core.Schema {
	resources := rr.List()
	schemas := make([]*core.Schema, len(resources))
	for i, resource := range resources {
		schemas[i] = resource.Schema
	}
	return schemas
}

// Count returns the number of registered resources.
func (rr *ResourceRegistry) Count() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.order)
}

func validateResource(resource *core.Resource) error {
	if resource == nil {
		return fmt.Errorf("resource cannot be nil")
	}
	if resource.Name == "" {
		return fmt.Errorf("resource name cannot be empty")
	}
	if resource.Plural == "" {
		return fmt.Errorf("resource %q has no plural name", resource.Name)
	}
	if resource.Schema == nil {
		return fmt.Errorf("resource %q has no schema", resource.Plural)
	}
	if resource.Schema.TableName == "" {
		return fmt.Errorf("resource %q has no table name", resource.Plural)
	}
	if resource.Schema.PrimaryKey == "" {
		return fmt.Errorf("resource %q has no primary key", resource.Plural)
	}

	seen := map[string]bool{resource.Schema.PrimaryKey: true}
	for _, col := range resource.Schema.Columns {
		if col.Name == "" {
			return fmt.Errorf("resource %q has a column with no name", resource.Plural)
		}
		if seen[col.Name] {
			return fmt.Errorf("resource %q declares column %q twice", resource.Plural, col.Name)
		}
		seen[col.Name] = true

		switch col.Type {
		case core.TypeInteger, core.TypeText, core.TypeBoolean, core.TypeFloat:
		default:
			return fmt.Errorf("resource %q column %q has unsupported type %q", resource.Plural, col.Name, col.Type)
		}
	}
	return nil
}
