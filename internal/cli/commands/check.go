package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapark/internal/cli/output"
	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/leapstack-labs/leapark/pkg/exportindex"
	"github.com/leapstack-labs/leapark/pkg/unit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// reloadDebounce coalesces bursts of editor writes into one reload.
const reloadDebounce = 100 * time.Millisecond

// Issue kinds reported by check.
const (
	IssueShadowedExport    = "shadowed-export"
	IssueUnsatisfiedImport = "unsatisfied-import"
)

// checkIssue is one problem found in the unit set.
type checkIssue struct {
	Unit   string `json:"unit"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// ErrCheckFailed is returned when check finds issues.
var ErrCheckFailed = errors.New("check found issues")

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check unit exports and imports",
		Long: `Assemble the runtime from the manifest and report:
  - exports shadowed by a unit registered earlier
  - import prefixes that no exported name can satisfy

With --watch the manifest is reloaded whenever it changes. New units are
registered and the export index is refreshed; units already registered
keep their original declaration.`,
		Example: `  # One-shot check (non-zero exit on issues)
  leapark check

  # Re-check on every manifest change
  leapark check --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the manifest on change and re-check")

	return cmd
}

func runCheck(cmd *cobra.Command, watch bool) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}

	issues := checkUnits(rt.Registry.UnitsInOrder(), rt.Service.Index())
	if err := renderIssues(cc, issues); err != nil {
		return err
	}
	if !watch {
		if len(issues) > 0 {
			return fmt.Errorf("%w: %d", ErrCheckFailed, len(issues))
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc.Renderer.Warnf("Watching %s (Ctrl+C to stop)", cc.Cfg.ManifestPath)
	return watchFile(ctx, cc.Cfg.ManifestPath, reloadDebounce, cc.Logger, func(context.Context) error {
		m, err := cc.LoadManifest()
		if err != nil {
			return err
		}
		before := rt.Registry.Count()
		if err := manifest.RegisterUnits(rt.Registry, rt.Arena, rt.Hierarchy, m.Units); err != nil {
			return err
		}
		rt.Service.Refresh()
		cc.Logger.Info("manifest reloaded", "new_units", rt.Registry.Count()-before, "exports", rt.Service.Index().Len())
		return renderIssues(cc, checkUnits(rt.Registry.UnitsInOrder(), rt.Service.Index()))
	})
}

// checkUnits reports shadowed exports and imports no export can satisfy.
func checkUnits(units []*unit.Unit, index *exportindex.Index) []checkIssue {
	var issues []checkIssue
	for _, u := range units {
		for _, name := range u.Exports {
			e, ok := index.Entry(name)
			if ok && e.Unit != u.ID {
				issues = append(issues, checkIssue{
					Unit:   u.ID,
					Kind:   IssueShadowedExport,
					Name:   name,
					Detail: "exported first by " + e.Unit,
				})
			}
		}
	}

	entries := index.Entries()
	for _, u := range units {
		for _, prefix := range u.Imports {
			if !importSatisfied(prefix, u.ID, entries) {
				issues = append(issues, checkIssue{
					Unit:   u.ID,
					Kind:   IssueUnsatisfiedImport,
					Name:   prefix,
					Detail: "no other unit exports a matching name",
				})
			}
		}
	}
	return issues
}

func importSatisfied(prefix, unitID string, entries []exportindex.Entry) bool {
	for _, e := range entries {
		if e.Unit == unitID {
			continue
		}
		if strings.HasPrefix(e.Name, prefix) || strings.HasPrefix(prefix, e.Name) {
			return true
		}
	}
	return false
}

func renderIssues(cc *CommandContext, issues []checkIssue) error {
	if len(issues) == 0 {
		cc.Renderer.Success("No issues found.")
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return cc.Renderer.JSON([]checkIssue{})
		}
		return nil
	}
	rows := make([][]any, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []any{is.Unit, is.Kind, is.Name, is.Detail})
	}
	if err := cc.Renderer.Table(
		fmt.Sprintf("Issues (%d)", len(issues)),
		[]string{"Unit", "Kind", "Name", "Detail"},
		rows,
		issues,
	); err != nil {
		return err
	}
	cc.Renderer.Println(summarizeIssues(issues))
	return nil
}

// summarizeIssues counts issues per kind, e.g. "Shadowed Export: 2".
func summarizeIssues(issues []checkIssue) string {
	titleCaser := cases.Title(language.English)
	counts := map[string]int{}
	var kinds []string
	for _, is := range issues {
		if counts[is.Kind] == 0 {
			kinds = append(kinds, is.Kind)
		}
		counts[is.Kind]++
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		label := titleCaser.String(strings.ReplaceAll(k, "-", " "))
		parts = append(parts, fmt.Sprintf("%s: %d", label, counts[k]))
	}
	return strings.Join(parts, ", ")
}

// watchFile calls onChange after path is written or replaced, until ctx is
// done. The parent directory is watched so editors that rename over the
// file are still seen. Reload errors are logged and do not stop the watch.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	changes := make(chan struct{}, 1)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watcher error", "error", err)
			}
		}
	})

	g.Go(func() error {
		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-changes:
				timer.Reset(debounce)
			case <-timer.C:
				if err := onChange(gctx); err != nil {
					logger.Warn("reload failed", "path", path, "error", err)
				}
			}
		}
	})

	return g.Wait()
}
