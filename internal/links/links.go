// Package links builds the provider graph between units: an edge runs from
// an exporting unit to every unit whose import prefixes select one of its
// exported names. It answers which units a unit depends on and which units
// are affected when a unit's exports change.
package links

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/leapstack-labs/leapark/pkg/unit"
)

// Graph is a directed graph of unit ids. Edges run provider -> consumer.
type Graph struct {
	nodes     map[string]struct{}
	consumers map[string][]string // provider -> consumers
	providers map[string][]string // consumer -> providers
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]struct{}),
		consumers: make(map[string][]string),
		providers: make(map[string][]string),
	}
}

// Build derives the graph from registered units and the export index.
// Only index owners count as providers, so a shadowed export links nothing.
func Build(units []*unit.Unit, index *exportindex.Index) *Graph {
	g := NewGraph()
	for _, u := range units {
		g.AddUnit(u.ID)
	}
	entries := index.Entries()
	for _, u := range units {
		for _, e := range entries {
			if e.Unit == u.ID || !selects(u.Imports, e.Name) {
				continue
			}
			_ = g.AddLink(e.Unit, u.ID)
		}
	}
	return g
}

// selects reports whether an import prefix covers name, either as a literal
// prefix or because name is itself a shorter prefix export.
func selects(imports []string, name string) bool {
	for _, p := range imports {
		if strings.HasPrefix(name, p) || strings.HasPrefix(p, name) {
			return true
		}
	}
	return false
}

// AddUnit adds a node.
func (g *Graph) AddUnit(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.consumers[id] = []string{}
	g.providers[id] = []string{}
}

// AddLink records that consumer imports from provider.
func (g *Graph) AddLink(provider, consumer string) error {
	if _, ok := g.nodes[provider]; !ok {
		return fmt.Errorf("provider unit %q does not exist", provider)
	}
	if _, ok := g.nodes[consumer]; !ok {
		return fmt.Errorf("consumer unit %q does not exist", consumer)
	}
	if provider == consumer {
		return fmt.Errorf("unit %s cannot import from itself", provider)
	}
	if !slices.Contains(g.consumers[provider], consumer) {
		g.consumers[provider] = append(g.consumers[provider], consumer)
	}
	if !slices.Contains(g.providers[consumer], provider) {
		g.providers[consumer] = append(g.providers[consumer], provider)
	}
	return nil
}

// Units returns all unit ids, sorted.
func (g *Graph) Units() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Providers returns the units id imports from directly.
func (g *Graph) Providers(id string) []string { return sorted(g.providers[id]) }

// Consumers returns the units importing from id directly.
func (g *Graph) Consumers(id string) []string { return sorted(g.consumers[id]) }

// LinkCount returns the number of edges.
func (g *Graph) LinkCount() int {
	n := 0
	for _, c := range g.consumers {
		n += len(c)
	}
	return n
}

// Affected returns the changed units and every unit that transitively
// imports from them, sorted. Unknown ids are ignored.
func (g *Graph) Affected(changed []string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, c := range g.consumers[id] {
			mark(c)
		}
	}
	for _, id := range changed {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}
	return keys(seen)
}

// Upstream returns every unit id transitively imports from, sorted.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		for _, p := range g.providers[id] {
			if !seen[p] {
				seen[p] = true
				mark(p)
			}
		}
	}
	mark(id)
	return keys(seen)
}

// Cycle returns one import cycle as a closed path (first id repeated at the
// end), or nil. Cycles are legal between units; they are reported so a
// reload of one unit is known to reach back to itself.
func (g *Graph) Cycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = onStack
		stack = append(stack, id)
		for _, c := range sorted(g.consumers[id]) {
			switch state[c] {
			case onStack:
				i := slices.Index(stack, c)
				cycle = append(slices.Clone(stack[i:]), c)
				return true
			case unvisited:
				if visit(c) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for _, id := range g.Units() {
		if state[id] == unvisited && visit(id) {
			return cycle
		}
	}
	return nil
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	sort.Strings(out)
	return out
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
