// Package unit defines isolated units and the registry contract that
// enumerates them in registration order.
package unit

import (
	"fmt"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapark/pkg/domain"
)

// Unit is an isolated module with private symbols and explicit
// export/import declarations. A Unit is immutable after registration.
type Unit struct {
	ID      string
	Exports []string
	Imports []string
	Domain  domain.Handle
}

// Registry enumerates registered units.
// UnitsInOrder returns units in registration order, which is significant:
// it breaks ties between units exporting the same name.
type Registry interface {
	UnitsInOrder() []*Unit
	UnitByName(id string) (*Unit, bool)
}

// Spec describes a unit before it is given a domain.
type Spec struct {
	ID      string
	Exports []string
	Imports []string
	// Parent is the parent of the unit's private domain (None for a flat domain).
	Parent domain.Handle
	// Paths are the artifact locations of the unit's private domain.
	Paths []string
}

// OrderedRegistry is an in-memory Registry that keeps registration order.
type OrderedRegistry struct {
	arena *domain.Arena

	mu    sync.RWMutex
	order []*Unit
	byID  map[string]*Unit
}

// NewOrderedRegistry creates an empty registry allocating unit domains in arena.
func NewOrderedRegistry(arena *domain.Arena) *OrderedRegistry {
	return &OrderedRegistry{
		arena: arena,
		byID:  make(map[string]*Unit),
	}
}

// Register creates the unit's private domain and appends the unit.
func (r *OrderedRegistry) Register(spec Spec) (*Unit, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("unit id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[spec.ID]; exists {
		return nil, &DuplicateUnitError{ID: spec.ID}
	}

	h, err := r.arena.New("unit:"+spec.ID, spec.Parent, spec.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to create domain for unit %s: %w", spec.ID, err)
	}

	u := &Unit{
		ID:      spec.ID,
		Exports: slices.Clone(spec.Exports),
		Imports: slices.Clone(spec.Imports),
		Domain:  h,
	}
	r.order = append(r.order, u)
	r.byID[u.ID] = u
	return u.clone(), nil
}

// UnitsInOrder returns copies of the registered units in registration order.
func (r *OrderedRegistry) UnitsInOrder() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	units := make([]*Unit, len(r.order))
	for i, u := range r.order {
		units[i] = u.clone()
	}
	return units
}

// UnitByName returns a copy of the unit registered under id.
func (r *OrderedRegistry) UnitByName(id string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return u.clone(), true
}

// Count returns the number of registered units.
func (r *OrderedRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (u *Unit) clone() *Unit {
	return &Unit{
		ID:      u.ID,
		Exports: slices.Clone(u.Exports),
		Imports: slices.Clone(u.Imports),
		Domain:  u.Domain,
	}
}

// DuplicateUnitError is returned when a unit id is registered twice.
type DuplicateUnitError struct {
	ID string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("unit %q is already registered", e.ID)
}
