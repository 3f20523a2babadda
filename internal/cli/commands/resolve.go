package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/spf13/cobra"
)

// resolveRecord is the JSON form of one resolution.
type resolveRecord struct {
	Unit     string `json:"unit"`
	Name     string `json:"name"`
	Route    string `json:"route"`
	Domain   string `json:"domain,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var find bool

	cmd := &cobra.Command{
		Use:   "resolve <unit> <name>...",
		Short: "Resolve symbol names for a unit",
		Long: `Resolve one or more symbol names on behalf of a unit and show the route
taken: generated (platform proxy), framework (bootstrap or SPI contract),
imported (exported by another unit) or not-found (the unit's own domain
decides).

With --find the lookup continues into the chosen domain, falls back to
the unit's private domain and reports the artifact that defines the name.`,
		Example: `  # Show routing
  leapark resolve billing com.acme.api.Invoice sun.reflect.GeneratedMethodAccessor12

  # Full lookup with proxies attributed to the host domain
  leapark resolve billing com.acme.api.Invoice --find --generator host`,
		Args: cobra.MinimumNArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeUnitIDs(cmd), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], args[1:], find)
		},
	}

	cmd.Flags().BoolVar(&find, "find", false, "Look the name up and report the defining artifact")

	return cmd
}

func runResolve(cmd *cobra.Command, unitID string, names []string, find bool) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}
	records, err := resolveNames(cmd.Context(), cc, rt, unitID, names, find)
	if err != nil {
		return err
	}

	header := []string{"Name", "Route", "Domain"}
	if find {
		header = append(header, "Artifact", "Owner")
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := []any{rec.Name, rec.Route, rec.Domain}
		if find {
			row = append(row, rec.Artifact, rec.Owner)
		}
		rows = append(rows, row)
	}
	return cc.Renderer.Table(fmt.Sprintf("Resolution for %s", unitID), header, rows, records)
}

func resolveNames(ctx context.Context, cc *CommandContext, rt *manifest.Runtime, unitID string, names []string, find bool) ([]resolveRecord, error) {
	svc := rt.Service
	ctx = cc.ResolveContext(ctx, svc)

	records := make([]resolveRecord, 0, len(names))
	for _, name := range names {
		rec := resolveRecord{Unit: unitID, Name: name}
		if find {
			def, ok, err := svc.FindSymbol(ctx, unitID, name)
			if err != nil {
				return nil, err
			}
			rec.Route = def.Route.String()
			rec.Domain = rt.Arena.ID(def.Domain)
			if ok {
				rec.Artifact = def.Artifact
				rec.Owner = rt.Arena.ID(def.Owner)
			}
		} else {
			res, err := svc.Resolve(ctx, unitID, name)
			if err != nil {
				return nil, err
			}
			rec.Route = res.Route.String()
			rec.Domain = rt.Arena.ID(res.Domain)
		}
		cc.Logger.Debug("resolved", "unit", unitID, "name", name, "route", rec.Route, "domain", rec.Domain)
		records = append(records, rec)
	}
	return records, nil
}
