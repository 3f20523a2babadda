package manifest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/hierarchy"
	"github.com/leapstack-labs/leapark/pkg/resolver"
	"github.com/leapstack-labs/leapark/pkg/unit"
)

// Runtime is a process assembled from a manifest.
type Runtime struct {
	Arena     *domain.Arena
	Hierarchy *hierarchy.Hierarchy
	Registry  *unit.OrderedRegistry
	Service   *resolver.Service
}

// Options tune Assemble.
type Options struct {
	// Args override the manifest's startup arguments when non-nil.
	Args []string
	// Probe overrides the host path probe derived from the manifest.
	Probe  hierarchy.Probe
	Logger *slog.Logger
}

// Assemble builds the domain hierarchy, registers the manifest's units in
// order, defines their symbols and returns the resolver service.
func Assemble(ctx context.Context, m *Manifest, opts Options) (*Runtime, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	arena := domain.NewArena()
	rt := hierarchy.NewProcessRuntime(arena, m.HostPaths)

	args := m.Args
	if opts.Args != nil {
		args = opts.Args
	}

	h, err := hierarchy.Build(ctx, hierarchy.Config{
		Arena:        arena,
		Runtime:      rt,
		PlatformHome: m.PlatformHome,
		Probe:        probeFor(m, opts.Probe),
		Args:         args,
		AgentPrefix:  m.AgentPrefix,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	reg := unit.NewOrderedRegistry(arena)
	if err := RegisterUnits(reg, arena, h, m.Units); err != nil {
		return nil, err
	}

	svc, err := resolver.New(resolver.Config{
		Arena:     arena,
		Hierarchy: h,
		Registry:  reg,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("runtime assembled", "units", reg.Count(), "exports", svc.Index().Len())

	return &Runtime{Arena: arena, Hierarchy: h, Registry: reg, Service: svc}, nil
}

// RegisterUnits registers specs in order, skipping ids that are already
// registered so a reloaded manifest only adds new units.
func RegisterUnits(reg *unit.OrderedRegistry, arena *domain.Arena, h *hierarchy.Hierarchy, specs []UnitSpec) error {
	for _, spec := range specs {
		if _, exists := reg.UnitByName(spec.ID); exists {
			continue
		}
		parent := h.PlatformFiltered()
		if spec.Isolated {
			parent = domain.None
		}
		u, err := reg.Register(unit.Spec{
			ID:      spec.ID,
			Exports: spec.Exports,
			Imports: spec.Imports,
			Parent:  parent,
			Paths:   spec.Paths,
		})
		if err != nil {
			return fmt.Errorf("failed to register unit %s: %w", spec.ID, err)
		}
		for symbol, artifact := range spec.Symbols {
			if err := arena.Define(u.Domain, symbol, artifact); err != nil {
				return err
			}
		}
	}
	return nil
}

func probeFor(m *Manifest, override hierarchy.Probe) hierarchy.Probe {
	if override != nil {
		return override
	}
	if len(m.HostPaths) > 0 {
		return hierarchy.StaticProbe(m.HostPaths)
	}
	return hierarchy.EnvProbe{Var: m.HostPathVar}
}
