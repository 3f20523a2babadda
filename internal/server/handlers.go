package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/resolver"
	"github.com/leapstack-labs/leapark/pkg/resource"
	"github.com/leapstack-labs/leapark/pkg/visibility"
	"github.com/starfederation/datastar-go/datastar"
)

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/units", s.handleUnits)
		r.Get("/domains", s.handleDomains)
		r.Get("/exports", s.handleExports)
		r.Get("/resolve/{unit}", s.handleResolve)
		r.Get("/resource", s.handleResource)
		r.Post("/reload", s.handleReload)
		r.Get("/events", s.handleEvents)
	})
}

// UnitView is one registered unit.
type UnitView struct {
	ID      string   `json:"id"`
	Domain  string   `json:"domain"`
	Exports []string `json:"exports"`
	Imports []string `json:"imports"`
}

// DomainView is one domain in the arena.
type DomainView struct {
	Handle int32    `json:"handle"`
	ID     string   `json:"id"`
	Parent string   `json:"parent,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

// ExportView is one export index entry.
type ExportView struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Domain string `json:"domain"`
}

// ResolutionView is the outcome for one name.
type ResolutionView struct {
	Name     string `json:"name"`
	Route    string `json:"route"`
	Domain   string `json:"domain,omitempty"`
	Found    bool   `json:"found"`
	Artifact string `json:"artifact,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// ResourceView is the owner of a resource name.
type ResourceView struct {
	Name   string `json:"name"`
	Found  bool   `json:"found"`
	Unit   string `json:"unit,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// StatusView summarizes the runtime.
type StatusView struct {
	Units      int    `json:"units"`
	Exports    int    `json:"exports"`
	Domains    int    `json:"domains"`
	Generation uint64 `json:"generation"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request) {
	units := s.rt.Registry.UnitsInOrder()
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		views = append(views, UnitView{ID: u.ID, Domain: s.rt.Arena.ID(u.Domain), Exports: u.Exports, Imports: u.Imports})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDomains(w http.ResponseWriter, _ *http.Request) {
	arena := s.rt.Arena
	views := make([]DomainView, 0, arena.Len())
	for i := 1; i <= arena.Len(); i++ {
		d, ok := arena.Get(domain.Handle(i))
		if !ok {
			continue
		}
		v := DomainView{Handle: int32(d.Handle), ID: d.ID, Paths: d.Paths}
		if d.Parent.Valid() {
			v.Parent = arena.ID(d.Parent)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	entries := s.rt.Service.Index().Entries()
	views := make([]ExportView, 0, len(entries))
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		views = append(views, ExportView{Name: e.Name, Unit: e.Unit, Domain: s.rt.Arena.ID(e.Domain)})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleResolve answers GET /api/resolve/{unit}?name=a&name=b[&generator=host].
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unit")
	q := r.URL.Query()
	names := q["name"]
	if len(names) == 0 {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "at least one name parameter is required"})
		return
	}

	ctx := r.Context()
	switch q.Get("generator") {
	case "", "framework":
	case "host":
		ctx = resolver.WithGeneratingDomain(ctx, s.rt.Service.HostDomain())
	default:
		writeJSON(w, http.StatusBadRequest, errorView{Error: "generator must be framework or host"})
		return
	}

	views := make([]ResolutionView, 0, len(names))
	for _, name := range names {
		def, ok, err := s.rt.Service.FindSymbol(ctx, unitID, name)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, visibility.ErrUnknownUnit) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, errorView{Error: err.Error()})
			return
		}
		v := ResolutionView{Name: name, Route: def.Route.String(), Domain: s.rt.Arena.ID(def.Domain), Found: ok}
		if ok {
			v.Artifact = def.Artifact
			v.Owner = s.rt.Arena.ID(def.Owner)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "name parameter is required"})
		return
	}
	v := ResourceView{Name: name}
	if h, ok := s.rt.Service.ResolveResourceOwner(name); ok {
		v.Found = true
		v.Domain = s.rt.Arena.ID(h)
		v.Unit, _ = resource.OwnerID(name)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	added, err := s.Reload()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "status": s.status()})
}

// handleEvents is the long-lived SSE endpoint. It sends the current status
// as signals on connect and again after every refresh.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.feed.Follow()
	defer s.feed.Unfollow(updates)

	if err := sse.MarshalAndPatchSignals(s.status()); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.MarshalAndPatchSignals(s.status()); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (s *Server) status() StatusView {
	return StatusView{
		Units:      s.rt.Registry.Count(),
		Exports:    s.rt.Service.Index().Len(),
		Domains:    s.rt.Arena.Len(),
		Generation: s.feed.Generation(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
