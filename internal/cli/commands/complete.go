package commands

import (
	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/spf13/cobra"
)

// completeUnitIDs lists unit ids from the manifest for shell completion.
// Configuration is not loaded during completion, so the manifest is taken
// from --manifest or the working directory.
func completeUnitIDs(cmd *cobra.Command) []string {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		path = manifest.FindFile(".")
	}
	if path == "" {
		return nil
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(m.Units))
	for _, u := range m.Units {
		ids = append(ids, u.ID)
	}
	return ids
}
