// Package resource resolves exported non-type artifacts whose names embed
// the identifier of the owning unit.
package resource

import (
	"strings"

	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/unit"
)

// Marker separates the owning unit id from the rest of an exported
// resource name: <unitID><Marker><rest>.
const Marker = "_leapark_export_resource"

// Locator finds the owning domain of marker-encoded resource names.
type Locator struct {
	registry unit.Registry
}

// NewLocator creates a locator backed by reg.
func NewLocator(reg unit.Registry) *Locator {
	return &Locator{registry: reg}
}

// ResolveOwner returns the domain of the unit encoded in name.
// Names without the marker, or naming an unregistered unit, are not exported.
func (l *Locator) ResolveOwner(name string) (domain.Handle, bool) {
	owner, ok := OwnerID(name)
	if !ok {
		return domain.None, false
	}
	u, ok := l.registry.UnitByName(owner)
	if !ok || u == nil {
		return domain.None, false
	}
	return u.Domain, true
}

// OwnerID returns the unit id preceding the first marker in name.
func OwnerID(name string) (string, bool) {
	owner, _, found := strings.Cut(name, Marker)
	return owner, found
}

// ExportedName builds a resource name owned by unitID.
func ExportedName(unitID, rest string) string {
	return unitID + Marker + rest
}
