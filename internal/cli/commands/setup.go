// Package commands implements the leapark CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapark/internal/cli/config"
	"github.com/leapstack-labs/leapark/internal/cli/output"
	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/leapstack-labs/leapark/pkg/resolver"
	"github.com/spf13/cobra"
)

// ErrNoManifest is returned when no leapark.yaml could be located.
var ErrNoManifest = errors.New("no leapark.yaml found (use --manifest)")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Args overrides the manifest's startup arguments when non-nil.
	Args []string
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	cc := &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: r,
	}
	if f := cmd.Flags().Lookup("arg"); f != nil && f.Changed {
		args, err := cmd.Flags().GetStringArray("arg")
		if err == nil {
			cc.Args = args
		}
	}
	return cc
}

// LoadManifest reads the configured manifest.
func (c *CommandContext) LoadManifest() (*manifest.Manifest, error) {
	if c.Cfg.ManifestPath == "" {
		return nil, ErrNoManifest
	}
	m, err := manifest.Load(c.Cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return m, nil
}

// Runtime loads the manifest and assembles the resolution runtime.
func (c *CommandContext) Runtime(ctx context.Context) (*manifest.Runtime, error) {
	m, err := c.LoadManifest()
	if err != nil {
		return nil, err
	}
	return manifest.Assemble(ctx, m, manifest.Options{Args: c.Args, Logger: c.Logger})
}

// ResolveContext applies the configured generator to ctx.
func (c *CommandContext) ResolveContext(ctx context.Context, svc *resolver.Service) context.Context {
	if c.Cfg.Generator == "host" {
		return resolver.WithGeneratingDomain(ctx, svc.HostDomain())
	}
	return ctx
}
