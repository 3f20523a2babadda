// Package hierarchy builds the fixed non-unit domains at startup and wires
// their delegation order.
//
// Four domains are produced: framework-self and host (supplied by the
// runtime), a platform-filtered domain parented to the host's root, and a
// flat instrumentation domain with no parent.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapark/pkg/domain"
)

// Domain identifiers for the domains created by Build.
const (
	PlatformDomainID        = "platform-filtered"
	InstrumentationDomainID = "instrumentation"
)

// Runtime identifies the domains the process already has.
type Runtime struct {
	// FrameworkSelf is the domain that loaded the framework itself.
	FrameworkSelf domain.Handle
	// Host is the process's ambient top-level domain.
	Host domain.Handle
}

// Config holds hierarchy build inputs.
type Config struct {
	Arena   *domain.Arena
	Runtime Runtime

	// PlatformHome is the platform installation directory.
	PlatformHome string
	// Probe lists the host domain's artifact paths (best effort).
	Probe Probe

	// Args are the process startup arguments.
	Args []string
	// AgentPrefix marks instrumentation directives (default DefaultAgentPrefix).
	AgentPrefix string

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Hierarchy exposes the fixed domains. It is immutable after Build.
type Hierarchy struct {
	frameworkSelf   domain.Handle
	host            domain.Handle
	root            domain.Handle
	platform        domain.Handle
	instrumentation domain.Handle

	platformPaths        []string
	instrumentationPaths []string
}

// Build constructs the hierarchy. Only malformed instrumentation directives
// fail the build; a failing probe degrades to an empty platform path set.
func Build(ctx context.Context, cfg Config) (*Hierarchy, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Arena == nil {
		return nil, fmt.Errorf("domain arena is required")
	}
	if _, ok := cfg.Arena.Get(cfg.Runtime.Host); !ok {
		return nil, fmt.Errorf("host domain: %w", &domain.UnknownHandleError{Handle: cfg.Runtime.Host})
	}
	if _, ok := cfg.Arena.Get(cfg.Runtime.FrameworkSelf); !ok {
		return nil, fmt.Errorf("framework domain: %w", &domain.UnknownHandleError{Handle: cfg.Runtime.FrameworkSelf})
	}

	h := &Hierarchy{
		frameworkSelf: cfg.Runtime.FrameworkSelf,
		host:          cfg.Runtime.Host,
		root:          cfg.Arena.Root(cfg.Runtime.Host),
	}

	// Instrumentation first: a bad directive aborts before anything else is built.
	prefix := cfg.AgentPrefix
	if prefix == "" {
		prefix = DefaultAgentPrefix
	}
	agentPaths, err := ParseDirectives(cfg.Args, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation domain: %w", err)
	}
	h.instrumentationPaths = agentPaths
	h.instrumentation, err = cfg.Arena.New(InstrumentationDomainID, domain.None, agentPaths)
	if err != nil {
		return nil, err
	}

	h.platformPaths = probePlatformPaths(ctx, cfg.Probe, cfg.PlatformHome, logger)
	h.platform, err = cfg.Arena.New(PlatformDomainID, h.root, h.platformPaths)
	if err != nil {
		return nil, err
	}

	logger.Debug("domain hierarchy built",
		"host", cfg.Arena.ID(h.host),
		"root", cfg.Arena.ID(h.root),
		"platform_paths", len(h.platformPaths),
		"instrumentation_paths", len(h.instrumentationPaths))

	return h, nil
}

func probePlatformPaths(ctx context.Context, probe Probe, home string, logger *slog.Logger) []string {
	if probe == nil {
		logger.Warn("no host path probe configured, platform domain has no paths")
		return nil
	}
	paths, err := readHostPaths(ctx, probe)
	if err != nil {
		logger.Warn("failed to read host domain paths", "error", err)
		return nil
	}
	kept := FilterPlatformPaths(paths, home)
	for _, p := range kept {
		logger.Debug("platform path", "path", p)
	}
	return kept
}

// readHostPaths turns a panicking probe into an error.
func readHostPaths(ctx context.Context, probe Probe) (paths []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			paths, err = nil, fmt.Errorf("host path probe panicked: %v", r)
		}
	}()
	return probe.HostPaths(ctx)
}

// FrameworkSelf returns the domain that loaded the framework.
func (h *Hierarchy) FrameworkSelf() domain.Handle { return h.frameworkSelf }

// Host returns the process's top-level domain.
func (h *Hierarchy) Host() domain.Handle { return h.host }

// Root returns the terminal ancestor of the host domain.
func (h *Hierarchy) Root() domain.Handle { return h.root }

// PlatformFiltered returns the domain restricted to platform paths.
func (h *Hierarchy) PlatformFiltered() domain.Handle { return h.platform }

// Instrumentation returns the flat instrumentation domain.
func (h *Hierarchy) Instrumentation() domain.Handle { return h.instrumentation }

// PlatformPaths returns the paths kept for the platform-filtered domain.
func (h *Hierarchy) PlatformPaths() []string {
	return append([]string(nil), h.platformPaths...)
}

// InstrumentationPaths returns the artifact locations of the instrumentation domain.
func (h *Hierarchy) InstrumentationPaths() []string {
	return append([]string(nil), h.instrumentationPaths...)
}

// NewProcessRuntime creates a bootstrap <- host <- framework chain in arena
// for processes that have no domains of their own yet.
func NewProcessRuntime(arena *domain.Arena, hostPaths []string) Runtime {
	boot := arena.MustNew("bootstrap", domain.None, nil)
	host := arena.MustNew("host", boot, hostPaths)
	self := arena.MustNew("framework", host, nil)
	return Runtime{FrameworkSelf: self, Host: host}
}
