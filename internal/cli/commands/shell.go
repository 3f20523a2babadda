package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/spf13/cobra"
)

const shellPrompt = "leapark> "

// NewShellCommand creates the interactive resolution shell.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive resolution shell",
		Long: `Start an interactive shell over the assembled runtime. Each line of the
form "<unit> <name>..." is resolved with a full lookup. Dot-commands
inspect and reload the runtime; type .help for the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd)
		},
	}
}

// shellSession holds the state of one shell.
type shellSession struct {
	cc *CommandContext
	rt *manifest.Runtime
}

func runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(ctx)
	if err != nil {
		return err
	}
	s := &shellSession{cc: cc, rt: rt}

	historyFile := ""
	if dir := filepath.Dir(cc.Cfg.StatePath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err == nil {
			historyFile = filepath.Join(dir, "shell_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapark shell (%d units, %d exports)\n", rt.Registry.Count(), rt.Service.Index().Len())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.handle(ctx, line) {
			return nil
		}
	}
}

func (s *shellSession) completer() *readline.PrefixCompleter {
	unitIDs := func(string) []string {
		units := s.rt.Registry.UnitsInOrder()
		ids := make([]string, 0, len(units))
		for _, u := range units {
			ids = append(ids, u.ID)
		}
		return ids
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".units"),
		readline.PcItem(".exports"),
		readline.PcItem(".generator", readline.PcItem("framework"), readline.PcItem("host")),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItemDynamic(unitIDs),
	)
}

// handle runs one shell line and reports whether the shell should exit.
// Errors are printed and never end the session.
func (s *shellSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	r := s.cc.Renderer
	parts := strings.Fields(line)

	var err error
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		s.printHelp()
	case ".units":
		err = s.listUnits()
	case ".exports":
		prefix := ""
		if len(parts) > 1 {
			prefix = parts[1]
		}
		records := exportRecords(s.rt.Service.Index().Entries(), s.rt.Arena.ID, prefix)
		rows := make([][]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []any{rec.Name, rec.Unit})
		}
		err = r.Table("", []string{"Name", "Unit"}, rows, records)
	case ".generator":
		if len(parts) > 1 {
			switch parts[1] {
			case "framework", "host":
				s.cc.Cfg.Generator = parts[1]
			default:
				err = fmt.Errorf("unknown generator %q (framework|host)", parts[1])
			}
		}
		if err == nil {
			r.Println("generator:", s.cc.Cfg.Generator)
		}
	case ".reload":
		err = s.reload()
	default:
		if strings.HasPrefix(parts[0], ".") {
			err = fmt.Errorf("unknown command %s (try .help)", parts[0])
			break
		}
		if len(parts) < 2 {
			err = errors.New("usage: <unit> <name>...")
			break
		}
		err = s.resolve(ctx, parts[0], parts[1:])
	}

	if err != nil {
		r.Warnf("Error: %v", err)
	}
	return false
}

func (s *shellSession) resolve(ctx context.Context, unitID string, names []string) error {
	records, err := resolveNames(ctx, s.cc, s.rt, unitID, names, true)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.Name, rec.Route, rec.Domain, rec.Artifact, rec.Owner})
	}
	return s.cc.Renderer.Table("", []string{"Name", "Route", "Domain", "Artifact", "Owner"}, rows, records)
}

// unitRecord is the JSON form of one unit.
type unitRecord struct {
	ID      string   `json:"id"`
	Domain  string   `json:"domain"`
	Exports []string `json:"exports"`
	Imports []string `json:"imports"`
}

func (s *shellSession) listUnits() error {
	units := s.rt.Registry.UnitsInOrder()
	records := make([]unitRecord, 0, len(units))
	rows := make([][]any, 0, len(units))
	for _, u := range units {
		rec := unitRecord{ID: u.ID, Domain: s.rt.Arena.ID(u.Domain), Exports: u.Exports, Imports: u.Imports}
		records = append(records, rec)
		rows = append(rows, []any{rec.ID, rec.Domain, strings.Join(rec.Exports, "\n"), strings.Join(rec.Imports, "\n")})
	}
	return s.cc.Renderer.Table("", []string{"Unit", "Domain", "Exports", "Imports"}, rows, records)
}

func (s *shellSession) reload() error {
	m, err := s.cc.LoadManifest()
	if err != nil {
		return err
	}
	before := s.rt.Registry.Count()
	if err := manifest.RegisterUnits(s.rt.Registry, s.rt.Arena, s.rt.Hierarchy, m.Units); err != nil {
		return err
	}
	s.rt.Service.Refresh()
	s.cc.Renderer.Success(fmt.Sprintf("Reloaded: %d new units, %d exports", s.rt.Registry.Count()-before, s.rt.Service.Index().Len()))
	return nil
}

func (s *shellSession) printHelp() {
	w := s.cc.Renderer.Out()
	_, _ = fmt.Fprintln(w, `Commands:
  <unit> <name>...       Resolve names for a unit
  .units                 List registered units
  .exports [prefix]      List the export index
  .generator [name]      Show or set the proxy generator (framework|host)
  .reload                Register new units from the manifest
  .help                  Show this help
  .quit                  Exit`)
}
