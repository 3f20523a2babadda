package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/spf13/cobra"
)

// domainRecord is the JSON form of one domain.
type domainRecord struct {
	Role   string   `json:"role"`
	Handle int32    `json:"handle"`
	ID     string   `json:"id"`
	Parent string   `json:"parent,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

// NewDomainsCommand creates the domains command.
func NewDomainsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "Show the resolution domain hierarchy",
		Long: `Build the domain hierarchy from the manifest and list every domain:
the fixed platform-filtered, instrumentation, host and framework-self
domains followed by one private domain per unit.`,
		Example: `  # Show domains with an extra startup directive
  leapark domains --arg -javaagent:/opt/agent.jar=debug

  # As JSON
  leapark domains -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDomains(cmd)
		},
	}
}

func runDomains(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	rt, err := cc.Runtime(cmd.Context())
	if err != nil {
		return err
	}

	records := domainRecords(rt)
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.Role, rec.Handle, rec.ID, rec.Parent, strings.Join(rec.Paths, "\n")})
	}
	return cc.Renderer.Table(
		fmt.Sprintf("Domains (%d)", len(records)),
		[]string{"Role", "Handle", "ID", "Parent", "Paths"},
		rows,
		records,
	)
}

func domainRecords(rt *manifest.Runtime) []domainRecord {
	h := rt.Hierarchy
	fixed := []struct {
		role   string
		handle domain.Handle
	}{
		{"root", h.Root()},
		{"platform-filtered", h.PlatformFiltered()},
		{"instrumentation", h.Instrumentation()},
		{"host", h.Host()},
		{"framework-self", h.FrameworkSelf()},
	}

	records := make([]domainRecord, 0, len(fixed)+rt.Registry.Count())
	for _, f := range fixed {
		records = append(records, describeDomain(rt.Arena, f.role, f.handle))
	}
	for _, u := range rt.Registry.UnitsInOrder() {
		records = append(records, describeDomain(rt.Arena, "unit", u.Domain))
	}
	return records
}

func describeDomain(arena *domain.Arena, role string, h domain.Handle) domainRecord {
	rec := domainRecord{Role: role, Handle: int32(h)}
	d, ok := arena.Get(h)
	if !ok {
		return rec
	}
	rec.ID = d.ID
	rec.Paths = d.Paths
	if d.Parent.Valid() {
		rec.Parent = arena.ID(d.Parent)
	}
	return rec
}
