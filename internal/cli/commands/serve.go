package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapark/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution runtime over HTTP",
		Long: `Assemble the runtime from the manifest and serve it over HTTP:

  GET  /api/units                 registered units
  GET  /api/domains               every domain in the arena
  GET  /api/exports?prefix=       export index
  GET  /api/resolve/{unit}?name=  full lookup (repeat name; generator=host)
  GET  /api/resource?name=        resource owner
  POST /api/reload                register new units from the manifest
  GET  /api/events                server-sent status after every refresh`,
		Example: `  leapark serve --addr 127.0.0.1:7070 --watch`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			rt, err := cc.Runtime(cmd.Context())
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Runtime: rt,
				Load:    cc.LoadManifest,
				Addr:    addr,
				Logger:  cc.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egctx := errgroup.WithContext(ctx)
			eg.Go(func() error { return srv.Serve(egctx) })
			if watch {
				eg.Go(func() error {
					return watchFile(egctx, cc.Cfg.ManifestPath, reloadDebounce, cc.Logger, func(context.Context) error {
						_, err := srv.Reload()
						return err
					})
				})
			}
			cc.Renderer.Warnf("Serving on http://%s (Ctrl+C to stop)", addr)
			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "Listen address")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the manifest on change")

	return cmd
}
