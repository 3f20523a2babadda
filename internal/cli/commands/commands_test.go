package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapark/internal/state"
	"github.com/leapstack-labs/leapark/internal/testutil"
	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/leapstack-labs/leapark/pkg/unit"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommands(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewDomainsCommand(), use: "domains"},
		{cmd: NewExportsCommand(), use: "exports", flags: []string{"prefix"}},
		{cmd: NewResolveCommand(), use: "resolve <unit> <name>...", flags: []string{"find"}},
		{cmd: NewResourceCommand(), use: "resource <name>..."},
		{cmd: NewCheckCommand(), use: "check", flags: []string{"watch"}},
		{cmd: NewSnapshotCommand(), use: "snapshot"},
		{cmd: NewShellCommand(), use: "shell"},
		{cmd: NewLinksCommand(), use: "links [unit]", flags: []string{"affected"}},
		{cmd: NewServeCommand(), use: "serve", flags: []string{"addr", "watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewSnapshotCommand_Subcommands(t *testing.T) {
	cmd := NewSnapshotCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"save", "list", "show", "diff"}, names)
}

func buildUnits(t *testing.T, specs ...unit.Spec) ([]*unit.Unit, *exportindex.Index) {
	t.Helper()
	arena := domain.NewArena()
	reg := unit.NewOrderedRegistry(arena)
	for _, s := range specs {
		_, err := reg.Register(s)
		require.NoError(t, err)
	}
	idx := exportindex.New(testutil.NewTestLogger(t))
	idx.Build(reg.UnitsInOrder())
	return reg.UnitsInOrder(), idx
}

func TestCheckUnits(t *testing.T) {
	units, idx := buildUnits(t,
		unit.Spec{ID: "api", Exports: []string{"com.acme.api.Invoice"}},
		unit.Spec{ID: "billing", Imports: []string{"com.acme.api.", "org.missing."}},
		unit.Spec{ID: "copy", Exports: []string{"com.acme.api.Invoice"}},
		unit.Spec{ID: "self", Exports: []string{"com.self.Thing"}, Imports: []string{"com.self."}},
	)

	issues := checkUnits(units, idx)

	assert.ElementsMatch(t, []checkIssue{
		{Unit: "copy", Kind: IssueShadowedExport, Name: "com.acme.api.Invoice", Detail: "exported first by api"},
		{Unit: "billing", Kind: IssueUnsatisfiedImport, Name: "org.missing.", Detail: "no other unit exports a matching name"},
		{Unit: "self", Kind: IssueUnsatisfiedImport, Name: "com.self.", Detail: "no other unit exports a matching name"},
	}, issues)
}

func TestCheckUnits_Clean(t *testing.T) {
	units, idx := buildUnits(t,
		unit.Spec{ID: "api", Exports: []string{"com.acme.api."}},
		unit.Spec{ID: "billing", Imports: []string{"com.acme.api.Invoice"}},
	)
	assert.Empty(t, checkUnits(units, idx), "an export that is a prefix of the import satisfies it")
}

func TestDiffRecords(t *testing.T) {
	prev := []state.Entry{
		{Symbol: "a.A", Unit: "one"},
		{Symbol: "b.B", Unit: "one"},
		{Symbol: "c.C", Unit: "two"},
	}
	next := []state.Entry{
		{Symbol: "a.A", Unit: "one"},
		{Symbol: "c.C", Unit: "three"},
		{Symbol: "d.D", Unit: "two"},
	}

	assert.Equal(t, []diffRecord{
		{Change: "added", Name: "d.D", Unit: "two"},
		{Change: "removed", Name: "b.B", Unit: "one"},
		{Change: "moved", Name: "c.C", Unit: "three", Before: "two"},
	}, diffRecords(prev, next))

	assert.Empty(t, diffRecords(prev, prev))
}

func TestStateEntries(t *testing.T) {
	got := stateEntries([]exportindex.Entry{{Name: "x.Y", Unit: "u", Domain: domain.Handle(3)}})
	assert.Equal(t, []state.Entry{{Symbol: "x.Y", Unit: "u"}}, got)
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leapark.yaml")
	require.NoError(t, os.WriteFile(path, []byte("units: []\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	reloaded := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 10*time.Millisecond, testutil.NewTestLogger(t), func(context.Context) error {
			calls.Add(1)
			reloaded <- struct{}{}
			return nil
		})
	}()

	// other files in the directory are ignored
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600)
		_ = os.WriteFile(path, []byte("units: [{id: a}]\n"), 0o600)
		select {
		case <-reloaded:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not stop after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestSummarizeIssues(t *testing.T) {
	issues := []checkIssue{
		{Kind: IssueShadowedExport},
		{Kind: IssueUnsatisfiedImport},
		{Kind: IssueShadowedExport},
	}
	assert.Equal(t, "Shadowed Export: 2, Unsatisfied Import: 1", summarizeIssues(issues))
	assert.Empty(t, summarizeIssues(nil))
}
