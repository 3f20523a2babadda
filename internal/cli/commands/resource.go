package commands

import (
	"github.com/leapstack-labs/leapark/pkg/resource"
	"github.com/spf13/cobra"
)

// resourceRecord is the JSON form of a resource owner lookup.
type resourceRecord struct {
	Name   string `json:"name"`
	Found  bool   `json:"found"`
	Unit   string `json:"unit,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// NewResourceCommand creates the resource command.
func NewResourceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resource <name>...",
		Short: "Find the unit owning exported resources",
		Long: `Look up the owning unit of exported resource names. An exported resource
name starts with the owning unit's id followed by the ` + resource.Marker + `
marker; names without the marker, or whose prefix is not a registered unit,
have no owner.`,
		Example: `  leapark resource billing` + resource.Marker + `/templates/invoice.html`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResource(cmd, args)
		},
	}
}

func runResource(cmd *cobra.Command, names []string) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}

	records := make([]resourceRecord, 0, len(names))
	rows := make([][]any, 0, len(names))
	for _, name := range names {
		rec := resourceRecord{Name: name}
		if h, ok := rt.Service.ResolveResourceOwner(name); ok {
			rec.Found = true
			rec.Domain = rt.Arena.ID(h)
			rec.Unit, _ = resource.OwnerID(name)
		}
		records = append(records, rec)

		owner := "-"
		if rec.Found {
			owner = rec.Unit
		}
		rows = append(rows, []any{rec.Name, owner, rec.Domain})
	}
	return cc.Renderer.Table("Resource owners", []string{"Name", "Unit", "Domain"}, rows, records)
}
