package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapark/internal/cli/output"
	"github.com/leapstack-labs/leapark/internal/state"
	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and compare export index snapshots",
		Long: `Snapshots record which unit owns each exported name. They are stored in
the state database (--state) and can be compared to spot exports that
appeared, disappeared or moved between units.`,
	}

	cmd.AddCommand(newSnapshotSaveCommand())
	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotShowCommand())
	cmd.AddCommand(newSnapshotDiffCommand())

	return cmd
}

func newSnapshotSaveCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Save the current export index",
		Example: `  leapark snapshot save --label before-upgrade`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			rt, err := cc.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			store, err := openStore(cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, err := store.SaveSnapshot(cmd.Context(), label, stateEntries(rt.Service.Index().Entries()))
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("Saved snapshot %s (%d exports)", snap.ID, snap.EntryCount))
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(snap)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Label stored with the snapshot")

	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			store, err := openStore(cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snaps, err := store.ListSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			if snaps == nil {
				snaps = []*state.Snapshot{}
			}
			rows := make([][]any, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []any{s.ID, s.Label, s.TakenAt.Local().Format(time.DateTime), s.EntryCount})
			}
			return cc.Renderer.Table(
				fmt.Sprintf("Snapshots (%d)", len(snaps)),
				[]string{"ID", "Label", "Taken", "Exports"},
				rows,
				snaps,
			)
		},
	}
}

// snapshotDocument is the YAML/JSON form of one snapshot.
type snapshotDocument struct {
	Snapshot *state.Snapshot `json:"snapshot" yaml:"snapshot"`
	Entries  []state.Entry   `json:"entries" yaml:"entries"`
}

func newSnapshotShowCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show the exports recorded in a snapshot",
		Example: `  leapark snapshot show 5f0c... --yaml > exports.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := openStore(cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, entries, err := store.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []state.Entry{}
			}
			doc := snapshotDocument{Snapshot: snap, Entries: entries}

			if asYAML {
				enc := yaml.NewEncoder(cc.Renderer.Out())
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return fmt.Errorf("failed to encode snapshot: %w", err)
				}
				return enc.Close()
			}

			rows := make([][]any, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []any{e.Symbol, e.Unit})
			}
			title := fmt.Sprintf("Snapshot %s (%d exports)", snap.ID, snap.EntryCount)
			return cc.Renderer.Table(title, []string{"Name", "Unit"}, rows, doc)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write the snapshot as YAML")

	return cmd
}

// diffRecord is one changed export between two snapshots.
type diffRecord struct {
	Change string `json:"change"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Before string `json:"before,omitempty"`
}

func newSnapshotDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from> [<to>]",
		Short: "Compare two snapshots, or a snapshot with the current index",
		Example: `  # What changed since a snapshot
  leapark snapshot diff 5f0c...

  # Between two snapshots
  leapark snapshot diff 5f0c... 9a1e...`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := openStore(cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			_, prev, err := store.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			next, err := diffTarget(cmd.Context(), cc, store, args[1:])
			if err != nil {
				return err
			}

			records := diffRecords(prev, next)
			rows := make([][]any, 0, len(records))
			for _, r := range records {
				rows = append(rows, []any{r.Change, r.Name, r.Unit, r.Before})
			}
			return cc.Renderer.Table(
				fmt.Sprintf("Changes (%d)", len(records)),
				[]string{"Change", "Name", "Unit", "Before"},
				rows,
				records,
			)
		},
	}
}

func diffTarget(ctx context.Context, cc *CommandContext, store state.Store, args []string) ([]state.Entry, error) {
	if len(args) == 1 {
		_, entries, err := store.GetSnapshot(ctx, args[0])
		return entries, err
	}
	rt, err := cc.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	return stateEntries(rt.Service.Index().Entries()), nil
}

func diffRecords(prev, next []state.Entry) []diffRecord {
	added, removed, moved := state.Diff(prev, next)

	before := make(map[string]string, len(prev))
	for _, e := range prev {
		before[e.Symbol] = e.Unit
	}

	records := make([]diffRecord, 0, len(added)+len(removed)+len(moved))
	for _, e := range added {
		records = append(records, diffRecord{Change: "added", Name: e.Symbol, Unit: e.Unit})
	}
	for _, e := range removed {
		records = append(records, diffRecord{Change: "removed", Name: e.Symbol, Unit: e.Unit})
	}
	for _, e := range moved {
		records = append(records, diffRecord{Change: "moved", Name: e.Symbol, Unit: e.Unit, Before: before[e.Symbol]})
	}
	return records
}

func stateEntries(entries []exportindex.Entry) []state.Entry {
	out := make([]state.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, state.Entry{Symbol: e.Name, Unit: e.Unit})
	}
	return out
}

// openStore opens and migrates the state database, creating its directory.
func openStore(cc *CommandContext) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cc.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
