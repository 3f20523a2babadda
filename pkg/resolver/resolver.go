// Package resolver is the resolution entry point. It composes the visibility
// classifier, the export index, the resource locator and the fixed domain
// hierarchy into a single service queried by unit loading call sites.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/leapstack-labs/leapark/pkg/hierarchy"
	"github.com/leapstack-labs/leapark/pkg/resource"
	"github.com/leapstack-labs/leapark/pkg/unit"
	"github.com/leapstack-labs/leapark/pkg/visibility"
)

// Route tells how a resolution was decided.
type Route int

const (
	// RouteNotFound means the symbol is private to the requesting unit.
	RouteNotFound Route = iota
	// RouteGenerated means a platform-generated proxy, routed to the
	// generating domain.
	RouteGenerated
	// RouteFrameworkContract means a framework contract symbol.
	RouteFrameworkContract
	// RouteImported means an import satisfied by the export index.
	RouteImported
)

func (r Route) String() string {
	switch r {
	case RouteGenerated:
		return "generated"
	case RouteFrameworkContract:
		return "framework"
	case RouteImported:
		return "imported"
	default:
		return "not-found"
	}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Symbol string
	Route  Route
	Domain domain.Handle
}

// Found reports whether a domain was selected.
func (r Resolution) Found() bool { return r.Domain.Valid() }

// Config holds service dependencies.
type Config struct {
	Arena     *domain.Arena
	Hierarchy *hierarchy.Hierarchy
	Registry  unit.Registry
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Service answers resolution queries. All methods are safe for concurrent use.
type Service struct {
	arena     *domain.Arena
	hierarchy *hierarchy.Hierarchy
	registry  unit.Registry
	index     *exportindex.Index
	locator   *resource.Locator
	logger    *slog.Logger
}

// New creates a service and populates the export index from the registry.
func New(cfg Config) (*Service, error) {
	if cfg.Arena == nil || cfg.Hierarchy == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("resolver requires an arena, a hierarchy and a registry")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Service{
		arena:     cfg.Arena,
		hierarchy: cfg.Hierarchy,
		registry:  cfg.Registry,
		index:     exportindex.New(logger),
		locator:   resource.NewLocator(cfg.Registry),
		logger:    logger,
	}
	s.Refresh()
	return s, nil
}

// Refresh adds exports of newly registered units to the index.
// Existing entries are never replaced.
func (s *Service) Refresh() {
	units := s.registry.UnitsInOrder()
	s.index.Build(units)
	s.logger.Debug("export index refreshed", "units", len(units), "exports", s.index.Len())
}

// Index returns the export index.
func (s *Service) Index() *exportindex.Index { return s.index }

// Arena returns the domain arena.
func (s *Service) Arena() *domain.Arena { return s.arena }

// Registry returns the unit registry.
func (s *Service) Registry() unit.Registry { return s.registry }

// PlatformFilteredDomain returns the platform-filtered domain.
func (s *Service) PlatformFilteredDomain() domain.Handle { return s.hierarchy.PlatformFiltered() }

// FrameworkSelfDomain returns the framework's own domain.
func (s *Service) FrameworkSelfDomain() domain.Handle { return s.hierarchy.FrameworkSelf() }

// HostDomain returns the host domain.
func (s *Service) HostDomain() domain.Handle { return s.hierarchy.Host() }

// InstrumentationDomain returns the instrumentation domain.
func (s *Service) InstrumentationDomain() domain.Handle { return s.hierarchy.Instrumentation() }

// IsPlatformGeneratedProxy reports whether name is a platform-generated proxy.
func (s *Service) IsPlatformGeneratedProxy(name string) bool {
	return visibility.IsPlatformGeneratedProxy(name)
}

// IsFrameworkContract reports whether name is a framework contract symbol.
func (s *Service) IsFrameworkContract(name string) bool {
	return visibility.IsFrameworkContract(name)
}

// IsImportable reports whether unitID imports name.
func (s *Service) IsImportable(unitID, name string) (bool, error) {
	return visibility.IsImportable(s.registry, unitID, name)
}

// ResolveResourceOwner returns the domain owning a marker-encoded resource.
func (s *Service) ResolveResourceOwner(name string) (domain.Handle, bool) {
	return s.locator.ResolveOwner(name)
}

// Resolve decides which domain answers for name when requested by unitID.
//
// Proxy names go to the generating domain carried by ctx (framework-self when
// none is set); routing them is the caller's job. Framework contracts go to
// framework-self. Imported names go to the exporter's domain. Anything else
// is RouteNotFound and the caller falls back to the unit's private domain.
func (s *Service) Resolve(ctx context.Context, unitID, name string) (Resolution, error) {
	if visibility.IsPlatformGeneratedProxy(name) {
		gen, ok := GeneratingDomain(ctx)
		if !ok {
			gen = s.hierarchy.FrameworkSelf()
		}
		return Resolution{Symbol: name, Route: RouteGenerated, Domain: gen}, nil
	}

	if visibility.IsFrameworkContract(name) {
		return Resolution{Symbol: name, Route: RouteFrameworkContract, Domain: s.hierarchy.FrameworkSelf()}, nil
	}

	importable, err := visibility.IsImportable(s.registry, unitID, name)
	if err != nil {
		return Resolution{}, err
	}
	if importable {
		if h, ok := s.index.Lookup(name); ok {
			return Resolution{Symbol: name, Route: RouteImported, Domain: h}, nil
		}
	}

	return Resolution{Symbol: name, Route: RouteNotFound, Domain: domain.None}, nil
}

// Definition is where a symbol was finally located.
type Definition struct {
	Resolution
	Artifact string
	// Owner is the domain in the delegation chain that defines the symbol.
	Owner domain.Handle
}

// FindSymbol resolves name for unitID and then looks it up: in the selected
// domain when Resolve picked one, otherwise in the unit's private domain and
// its ancestors.
func (s *Service) FindSymbol(ctx context.Context, unitID, name string) (Definition, bool, error) {
	res, err := s.Resolve(ctx, unitID, name)
	if err != nil {
		return Definition{}, false, err
	}

	start := res.Domain
	if !start.Valid() {
		u, ok := s.registry.UnitByName(unitID)
		if !ok {
			return Definition{}, false, &visibility.UnknownUnitError{ID: unitID}
		}
		start = u.Domain
	}

	artifact, owner, ok := s.arena.Find(start, name)
	if !ok {
		return Definition{Resolution: res}, false, nil
	}
	return Definition{Resolution: res, Artifact: artifact, Owner: owner}, true, nil
}
