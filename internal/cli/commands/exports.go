package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/spf13/cobra"
)

// exportRecord is the JSON form of one export index entry.
type exportRecord struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Domain string `json:"domain"`
}

// NewExportsCommand creates the exports command.
func NewExportsCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List the export index",
		Long: `Build the export index from the manifest's units and list every exported
name with the unit that owns it. When two units export the same name the
unit registered first keeps it.`,
		Example: `  # List all exports
  leapark exports

  # Only names under a package
  leapark exports --prefix com.acme.api.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExports(cmd, prefix)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only show exported names starting with this prefix")

	return cmd
}

func runExports(cmd *cobra.Command, prefix string) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}

	records := exportRecords(rt.Service.Index().Entries(), rt.Arena.ID, prefix)
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.Name, rec.Unit, rec.Domain})
	}
	return cc.Renderer.Table(
		fmt.Sprintf("Exports (%d)", len(records)),
		[]string{"Name", "Unit", "Domain"},
		rows,
		records,
	)
}

func exportRecords(entries []exportindex.Entry, domainID func(domain.Handle) string, prefix string) []exportRecord {
	records := make([]exportRecord, 0, len(entries))
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		records = append(records, exportRecord{Name: e.Name, Unit: e.Unit, Domain: domainID(e.Domain)})
	}
	return records
}
