package hierarchy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Probe reads the artifact path list of the host domain. Access to that list
// is outside the normal runtime surface and may fail; callers treat a failure
// as an empty result.
type Probe interface {
	HostPaths(ctx context.Context) ([]string, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) ([]string, error)

// HostPaths calls f.
func (f ProbeFunc) HostPaths(ctx context.Context) ([]string, error) { return f(ctx) }

// StaticProbe returns a fixed path list.
type StaticProbe []string

// HostPaths returns a copy of p.
func (p StaticProbe) HostPaths(context.Context) ([]string, error) {
	return append([]string(nil), p...), nil
}

// DefaultHostPathVar is the environment variable read by EnvProbe.
const DefaultHostPathVar = "LEAPARK_HOST_PATH"

// EnvProbe reads the host path list from an OS path-list environment variable.
type EnvProbe struct {
	Var    string
	Lookup func(string) (string, bool)
}

// HostPaths splits the variable on the OS path-list separator.
func (p EnvProbe) HostPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := p.Var
	if name == "" {
		name = DefaultHostPathVar
	}
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	raw, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s is not set", name)
	}
	var paths []string
	for _, p := range filepath.SplitList(raw) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}
