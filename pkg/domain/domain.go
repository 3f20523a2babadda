// Package domain provides resolution domains: isolated scopes that answer
// whether they define a symbol and delegate to a parent on failure.
//
// Domains live in an Arena and are referenced by Handle. A parent link is a
// lookup relation only; a domain never owns or mutates its parent.
package domain

import (
	"fmt"
	"slices"
	"sync"
)

// Handle references a domain record in an Arena.
// The zero value is None.
type Handle int32

// None is the absent domain.
const None Handle = 0

// Valid reports whether h refers to a domain.
func (h Handle) Valid() bool { return h != None }

func (h Handle) String() string {
	if h == None {
		return "<none>"
	}
	return fmt.Sprintf("#%d", int32(h))
}

// Domain is a read-only view of a domain record.
type Domain struct {
	Handle Handle
	ID     string
	Parent Handle
	Paths  []string
}

type record struct {
	id      string
	parent  Handle
	paths   []string
	symbols sync.Map // symbol -> artifact
}

// Arena holds every domain created in the process.
// Records are append-only; handles stay valid for the arena's lifetime.
type Arena struct {
	mu      sync.RWMutex
	records []*record
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	// index 0 is reserved for None
	return &Arena{records: []*record{nil}}
}

// New creates a domain with the given parent and artifact paths.
// Pass None for a domain without a parent.
func (a *Arena) New(id string, parent Handle, paths []string) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if parent != None && !a.validLocked(parent) {
		return None, &UnknownHandleError{Handle: parent}
	}

	a.records = append(a.records, &record{
		id:     id,
		parent: parent,
		paths:  slices.Clone(paths),
	})
	return Handle(len(a.records) - 1), nil
}

// MustNew is like New but panics on an unknown parent.
func (a *Arena) MustNew(id string, parent Handle, paths []string) Handle {
	h, err := a.New(id, parent, paths)
	if err != nil {
		panic(err)
	}
	return h
}

// Get returns a view of the domain referenced by h.
func (a *Arena) Get(h Handle) (Domain, bool) {
	r := a.record(h)
	if r == nil {
		return Domain{}, false
	}
	return Domain{
		Handle: h,
		ID:     r.id,
		Parent: r.parent,
		Paths:  slices.Clone(r.paths),
	}, true
}

// ID returns the identifier of h, or "" if h is unknown.
func (a *Arena) ID(h Handle) string {
	if r := a.record(h); r != nil {
		return r.id
	}
	return ""
}

// Parent returns the parent of h, or None.
func (a *Arena) Parent(h Handle) Handle {
	if r := a.record(h); r != nil {
		return r.parent
	}
	return None
}

// Root walks the parent chain of h to its terminal ancestor.
// A domain without a parent is its own root.
func (a *Arena) Root(h Handle) Handle {
	for {
		p := a.Parent(h)
		if p == None {
			return h
		}
		h = p
	}
}

// Chain returns h followed by its ancestors, nearest first.
func (a *Arena) Chain(h Handle) []Handle {
	var chain []Handle
	for h != None {
		chain = append(chain, h)
		h = a.Parent(h)
	}
	return chain
}

// Define records that domain h defines symbol with the given artifact.
// An existing definition is kept.
func (a *Arena) Define(h Handle, symbol, artifact string) error {
	r := a.record(h)
	if r == nil {
		return &UnknownHandleError{Handle: h}
	}
	r.symbols.LoadOrStore(symbol, artifact)
	return nil
}

// Defines reports whether h itself defines symbol, without delegation.
func (a *Arena) Defines(h Handle, symbol string) bool {
	r := a.record(h)
	if r == nil {
		return false
	}
	_, ok := r.symbols.Load(symbol)
	return ok
}

// Find looks symbol up in h and then in each ancestor.
// It returns the artifact and the domain that defines it.
func (a *Arena) Find(h Handle, symbol string) (artifact string, owner Handle, ok bool) {
	for h != None {
		r := a.record(h)
		if r == nil {
			return "", None, false
		}
		if v, found := r.symbols.Load(symbol); found {
			return v.(string), h, true
		}
		h = r.parent
	}
	return "", None, false
}

// Len returns the number of domains in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records) - 1
}

func (a *Arena) record(h Handle) *record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.validLocked(h) {
		return nil
	}
	return a.records[h]
}

func (a *Arena) validLocked(h Handle) bool {
	return h > None && int(h) < len(a.records)
}

// UnknownHandleError is returned when a handle does not belong to the arena.
type UnknownHandleError struct {
	Handle Handle
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("unknown domain handle %s", e.Handle)
}
