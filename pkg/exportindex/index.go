// Package exportindex maps exported names to the domain of the unit that
// exports them.
//
// Keys are the literal export strings units declare. Lookup is exact: an
// export of "com.acme.api." registers that string, not every name under it.
// Import eligibility, by contrast, uses prefix matching (see package
// visibility). Both behaviors are kept as they are.
package exportindex

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/unit"
)

// Entry is the owner recorded for an exported name.
type Entry struct {
	Name   string
	Unit   string
	Domain domain.Handle
}

// Index is a first-writer-wins map from exported name to owning domain.
// Entries are inserted if absent and never overwritten or removed, so it is
// safe for concurrent Build and Lookup without a global lock.
type Index struct {
	entries sync.Map // name -> Entry
	size    atomic.Int64
	logger  *slog.Logger
}

// New creates an empty index. A nil logger discards output.
func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{logger: logger}
}

// Build inserts every export of units, in order, if absent.
// When two units export the same name the earlier unit keeps it; the later
// one stays reachable through its own domain only.
func (x *Index) Build(units []*unit.Unit) {
	for _, u := range units {
		if u == nil {
			continue
		}
		for _, name := range u.Exports {
			x.Put(name, u.ID, u.Domain)
		}
	}
}

// Put inserts name if it has no owner yet and reports whether it did.
func (x *Index) Put(name, unitID string, h domain.Handle) bool {
	prev, loaded := x.entries.LoadOrStore(name, Entry{Name: name, Unit: unitID, Domain: h})
	if !loaded {
		x.size.Add(1)
		return true
	}
	if owner := prev.(Entry); owner.Unit != unitID {
		x.logger.Debug("export shadowed by earlier unit",
			"name", name, "owner", owner.Unit, "ignored", unitID)
	}
	return false
}

// Lookup returns the domain that exports exactly name.
func (x *Index) Lookup(name string) (domain.Handle, bool) {
	e, ok := x.Entry(name)
	if !ok {
		return domain.None, false
	}
	return e.Domain, true
}

// Entry returns the full entry for name.
func (x *Index) Entry(name string) (Entry, bool) {
	v, ok := x.entries.Load(name)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Entries returns a copy of all entries sorted by name.
func (x *Index) Entries() []Entry {
	var out []Entry
	x.entries.Range(func(_, v any) bool {
		out = append(out, v.(Entry))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of exported names.
func (x *Index) Len() int {
	return int(x.size.Load())
}
