package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/leapstack-labs/leapark/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseManifest = `units:
  - id: api
    exports: [com.acme.api.Invoice]
    symbols:
      com.acme.api.Invoice: api.jar!/Invoice.class
  - id: billing
    imports: [com.acme.api.]
    symbols:
      com.acme.billing.Main: billing.jar!/Main.class
`

func newTestServer(t *testing.T, current *string) (*Server, *httptest.Server) {
	t.Helper()
	m, err := manifest.Parse([]byte(*current))
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	rt, err := manifest.Assemble(context.Background(), m, manifest.Options{Logger: logger})
	require.NoError(t, err)

	srv, err := New(Config{
		Runtime: rt,
		Load:    func() (*manifest.Manifest, error) { return manifest.Parse([]byte(*current)) },
		Logger:  logger,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, wantStatus, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNew_RequiresRuntime(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHandlers_Read(t *testing.T) {
	current := baseManifest
	_, ts := newTestServer(t, &current)

	var units []UnitView
	getJSON(t, ts.URL+"/api/units", http.StatusOK, &units)
	require.Len(t, units, 2)
	assert.Equal(t, "api", units[0].ID)
	assert.Equal(t, "unit:api", units[0].Domain)

	var domains []DomainView
	getJSON(t, ts.URL+"/api/domains", http.StatusOK, &domains)
	ids := make([]string, 0, len(domains))
	for _, d := range domains {
		ids = append(ids, d.ID)
	}
	assert.Subset(t, ids, []string{"bootstrap", "host", "framework", "platform-filtered", "instrumentation", "unit:api", "unit:billing"})

	var exports []ExportView
	getJSON(t, ts.URL+"/api/exports?prefix=com.acme.", http.StatusOK, &exports)
	assert.Equal(t, []ExportView{{Name: "com.acme.api.Invoice", Unit: "api", Domain: "unit:api"}}, exports)

	var res ResourceView
	getJSON(t, ts.URL+"/api/resource?name=api_leapark_export_resource/x.txt", http.StatusOK, &res)
	assert.True(t, res.Found)
	assert.Equal(t, "api", res.Unit)
}

func TestHandleResolve(t *testing.T) {
	current := baseManifest
	_, ts := newTestServer(t, &current)

	var views []ResolutionView
	getJSON(t, ts.URL+"/api/resolve/billing?name=com.acme.api.Invoice&name=com.acme.billing.Main&name=sun.reflect.GeneratedMethodAccessor1&generator=host",
		http.StatusOK, &views)
	require.Len(t, views, 3)

	assert.Equal(t, ResolutionView{
		Name: "com.acme.api.Invoice", Route: "imported", Domain: "unit:api",
		Found: true, Artifact: "api.jar!/Invoice.class", Owner: "unit:api",
	}, views[0])
	assert.Equal(t, "not-found", views[1].Route)
	assert.Equal(t, "unit:billing", views[1].Owner)
	assert.Equal(t, "generated", views[2].Route)
	assert.Equal(t, "host", views[2].Domain)
}

func TestHandleResolve_Errors(t *testing.T) {
	current := baseManifest
	_, ts := newTestServer(t, &current)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown unit", "/api/resolve/ghost?name=a.B", http.StatusNotFound},
		{"missing name", "/api/resolve/billing", http.StatusBadRequest},
		{"bad generator", "/api/resolve/billing?name=a.B&generator=unit", http.StatusBadRequest},
		{"missing resource name", "/api/resource", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorView
			getJSON(t, ts.URL+tt.path, tt.status, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestReload(t *testing.T) {
	current := baseManifest
	srv, ts := newTestServer(t, &current)

	updates := srv.Feed().Follow()
	defer srv.Feed().Unfollow(updates)

	current = baseManifest + `  - id: extra
    exports: [com.extra.Thing]
`
	resp, err := http.Post(ts.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Added  int        `json:"added"`
		Status StatusView `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Added)
	assert.Equal(t, 3, body.Status.Units)
	assert.Equal(t, 2, body.Status.Exports)
	assert.Equal(t, uint64(1), body.Status.Generation)

	select {
	case gen := <-updates:
		assert.Equal(t, uint64(1), gen)
	case <-time.After(time.Second):
		t.Fatal("reload did not notify")
	}
}

func TestReload_NotConfigured(t *testing.T) {
	current := baseManifest
	srv, _ := newTestServer(t, &current)
	srv.load = nil

	_, err := srv.Reload()
	assert.Error(t, err)
}

func TestHandleEvents(t *testing.T) {
	current := baseManifest
	srv, ts := newTestServer(t, &current)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", want)
				if strings.Contains(line, want) {
					return
				}
			case <-deadline:
				t.Fatalf("no event containing %q", want)
			}
		}
	}

	waitFor(`"units":2`)

	current = baseManifest + `  - id: extra
`
	_, err = srv.Reload()
	require.NoError(t, err)
	waitFor(`"units":3`)
}
