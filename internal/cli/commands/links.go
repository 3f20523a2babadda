package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapark/internal/links"
	"github.com/spf13/cobra"
)

// linkRecord is the JSON form of one unit's links.
type linkRecord struct {
	Unit      string   `json:"unit"`
	Providers []string `json:"providers"`
	Consumers []string `json:"consumers"`
}

// NewLinksCommand creates the links command.
func NewLinksCommand() *cobra.Command {
	var affected []string

	cmd := &cobra.Command{
		Use:   "links [unit]",
		Short: "Show which units import from which",
		Long: `Show the provider graph between units. A unit provides to another when
one of its exported names is selected by the other's import prefixes.

With --affected, list the units that would see different resolutions if
the given units changed their exports.`,
		Example: `  # All units
  leapark links

  # Units affected by a change to api
  leapark links --affected api`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeUnitIDs(cmd), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinks(cmd, args, affected)
		},
	}

	cmd.Flags().StringSliceVar(&affected, "affected", nil, "List units affected by changes to these units")

	return cmd
}

func runLinks(cmd *cobra.Command, args, affected []string) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}
	g := links.Build(rt.Registry.UnitsInOrder(), rt.Service.Index())

	if len(affected) > 0 {
		ids := g.Affected(affected)
		rows := make([][]any, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []any{id})
		}
		return cc.Renderer.Table(fmt.Sprintf("Affected by %s", strings.Join(affected, ", ")), []string{"Unit"}, rows, ids)
	}

	units := g.Units()
	if len(args) == 1 {
		if _, ok := rt.Registry.UnitByName(args[0]); !ok {
			return fmt.Errorf("unit %q is not registered", args[0])
		}
		units = []string{args[0]}
	}

	records := make([]linkRecord, 0, len(units))
	rows := make([][]any, 0, len(units))
	for _, id := range units {
		rec := linkRecord{Unit: id, Providers: g.Providers(id), Consumers: g.Consumers(id)}
		records = append(records, rec)
		rows = append(rows, []any{id, strings.Join(rec.Providers, ", "), strings.Join(rec.Consumers, ", ")})
	}
	if err := cc.Renderer.Table(
		fmt.Sprintf("Links (%d)", g.LinkCount()),
		[]string{"Unit", "Imports from", "Provides to"},
		rows,
		records,
	); err != nil {
		return err
	}
	if cycle := g.Cycle(); cycle != nil {
		cc.Renderer.Println("Import cycle:", strings.Join(cycle, " -> "))
	}
	return nil
}
