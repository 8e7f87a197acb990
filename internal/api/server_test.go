package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AutoFlow-Agent/internal/clock"
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/internal/workflow"
)

type fixture struct {
	server  *Server
	handler http.Handler
	runner  *console.Runner
	builder *workflow.Builder
	catalog *workflow.Catalog
	runs    *stubSubmitter
}

type stubSubmitter struct {
	catalog *workflow.Catalog
	err     error
	ids     []string
}

func (s *stubSubmitter) Submit(_ context.Context, id string) (workflow.SavedWorkflow, error) {
	if s.err != nil {
		return workflow.SavedWorkflow{}, s.err
	}
	s.ids = append(s.ids, id)
	return s.catalog.Get(id)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := clock.ClockFunc(func() time.Time { return time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC) })

	log := console.NewLog(console.WithLogClock(fixed))
	runner := console.NewRunner(log,
		console.WithScheduler(clock.Immediate),
		console.WithRunnerClock(fixed),
		console.WithAuditLogger(quiet),
	)
	builder := workflow.NewBuilder(
		workflow.WithSlot(workflow.NewMemorySlot()),
		workflow.WithBuilderScheduler(clock.Immediate),
		workflow.WithBuilderLogger(quiet),
	)
	catalog, err := workflow.NewCatalog(context.Background(),
		workflow.WithCatalogSlot(workflow.NewMemorySlot()),
		workflow.WithCatalogLogger(quiet),
	)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	runs := &stubSubmitter{catalog: catalog}
	srv := NewServer(":0", Dependencies{
		Runner:    runner,
		Builder:   builder,
		Catalog:   catalog,
		Runs:      runs,
		Dashboard: dashboard.NewState(),
	}, WithClock(fixed), WithLogger(quiet))

	return &fixture{server: srv, handler: srv.Handler(), runner: runner, builder: builder, catalog: catalog, runs: runs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status code: got %d want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestConsoleRunLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/console/start", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[ToggleResult](t, rec); !got.Changed {
		t.Fatalf("expected start to change state")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.runner.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	view := decode[ConsoleView](t, f.do(t, http.MethodGet, "/api/v1/console", nil))
	if view.State.Running || view.State.Progress != 100 || view.State.CurrentStep != console.CompletedLabel {
		t.Fatalf("unexpected state after run: %+v", view.State)
	}
	if view.RunStatus != dashboard.RunSuccess {
		t.Fatalf("unexpected run status: %s", view.RunStatus)
	}
	if len(view.Entries) != len(console.DefaultScript()) || view.Capacity != 100 {
		t.Fatalf("unexpected entries: %d (capacity %d)", len(view.Entries), view.Capacity)
	}

	stop := decode[ToggleResult](t, f.do(t, http.MethodPost, "/api/v1/console/stop", nil))
	if stop.Changed {
		t.Fatalf("stop while idle should not change state")
	}
}

func TestConsoleRetryAndLogs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/console/retry", nil)
	expectStatus(t, rec, http.StatusCreated)
	entry := decode[console.Entry](t, rec)
	if entry.Message != "Retrying last failed step" || entry.Category != console.CategoryInfo {
		t.Fatalf("unexpected retry entry: %+v", entry)
	}

	f.runner.Log().Append(console.CategoryWarning, "Slow selector", "")
	warnings := decode[[]console.Entry](t, f.do(t, http.MethodGet, "/api/v1/console/logs?category=WARNING", nil))
	if len(warnings) != 1 || warnings[0].Message != "Slow selector" {
		t.Fatalf("unexpected filtered entries: %+v", warnings)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/console/logs?category=fatal", nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[errorBody](t, rec); body.Code != console.CodeInvalidCategory {
		t.Fatalf("unexpected error code: %s", body.Code)
	}

	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/console/logs", nil), http.StatusNoContent)
	if f.runner.Log().Len() != 0 {
		t.Fatalf("expected log to be cleared")
	}
}

func TestExportLogsAsAttachment(t *testing.T) {
	f := newFixture(t)
	f.runner.Log().Append(console.CategoryAction, "Clicking submit", "button#submit")

	rec := f.do(t, http.MethodGet, "/api/v1/console/logs/export", nil)
	expectStatus(t, rec, http.StatusOK)
	disposition := rec.Header().Get("Content-Disposition")
	if disposition != `attachment; filename="autoflow-logs-2024-03-09.json"` {
		t.Fatalf("unexpected disposition: %s", disposition)
	}
	want, err := f.runner.Log().ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.Equal(rec.Body.Bytes(), want) {
		t.Fatalf("export body differs from snapshot")
	}
	entries, err := console.ParseSnapshot(rec.Body.Bytes())
	if err != nil || len(entries) != 1 {
		t.Fatalf("unexpected parsed export: %v, %v", entries, err)
	}
}

func TestExportFilenameUsesUTCDate(t *testing.T) {
	f := newFixture(t)
	lateLocal := time.Date(2024, 3, 9, 20, 0, 0, 0, time.FixedZone("PST", -8*3600))
	srv := NewServer(":0", f.server.deps, WithClock(clock.ClockFunc(func() time.Time { return lateLocal })))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/console/logs/export", nil))
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="autoflow-logs-2024-03-10.json"` {
		t.Fatalf("unexpected disposition: %s", got)
	}
}

func TestBuilderEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/builder/nodes", AddNodeRequest{Kind: "Condition", Title: "element exists"})
	expectStatus(t, rec, http.StatusCreated)
	node := decode[workflow.Node](t, rec)
	if node.Kind != workflow.KindCondition || node.Title != "Element Exists" {
		t.Fatalf("unexpected node: %+v", node)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/builder/nodes", AddNodeRequest{Kind: "loop"})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[errorBody](t, rec); body.Code != workflow.CodeInvalidNodeKind {
		t.Fatalf("unexpected error code: %s", body.Code)
	}
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/builder/nodes", AddNodeRequest{Kind: "action", Title: "Teleport"}), http.StatusBadRequest)

	view := decode[BuilderView](t, f.do(t, http.MethodGet, "/api/v1/builder", nil))
	if view.Name != workflow.DefaultName || len(view.Nodes) != 2 {
		t.Fatalf("unexpected builder view: %+v", view)
	}

	removed := decode[ChangeResult](t, f.do(t, http.MethodDelete, "/api/v1/builder/nodes/"+node.ID, nil))
	if !removed.Changed {
		t.Fatalf("expected node removal")
	}
	again := decode[ChangeResult](t, f.do(t, http.MethodDelete, "/api/v1/builder/nodes/"+node.ID, nil))
	if again.Changed {
		t.Fatalf("second removal should be a no-op")
	}

	rec = f.do(t, http.MethodPost, "/api/v1/builder/save", SaveRequest{Name: "Checkout"})
	expectStatus(t, rec, http.StatusCreated)
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/builder/save", nil), http.StatusCreated)
	drafts := decode[[]workflow.Draft](t, f.do(t, http.MethodGet, "/api/v1/builder/drafts", nil))
	if len(drafts) != 2 || drafts[0].Name != "Checkout" || drafts[1].Name != workflow.DefaultName {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}

	run := decode[ChangeResult](t, f.do(t, http.MethodPost, "/api/v1/builder/run", nil))
	if !run.Changed {
		t.Fatalf("expected builder run to start")
	}

	templates := decode[map[workflow.NodeKind][]workflow.Template](t, f.do(t, http.MethodGet, "/api/v1/builder/templates", nil))
	if len(templates) != 3 {
		t.Fatalf("unexpected templates: %v", templates)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	f := newFixture(t)

	list := decode[[]workflow.SavedWorkflow](t, f.do(t, http.MethodGet, "/api/v1/workflows?q=scraper&category=all", nil))
	if len(list) != 1 || list[0].ID != "2" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/workflows/1/duplicate", nil)
	expectStatus(t, rec, http.StatusCreated)
	copied := decode[workflow.SavedWorkflow](t, rec)
	if copied.Name != "Login Automation (Copy)" || copied.Status != workflow.StatusDraft {
		t.Fatalf("unexpected duplicate: %+v", copied)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/workflows/missing/duplicate", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if body := decode[errorBody](t, rec); body.Code != workflow.CodeWorkflowNotFound {
		t.Fatalf("unexpected error code: %s", body.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/workflows/2/run", nil)
	expectStatus(t, rec, http.StatusAccepted)
	if len(f.runs.ids) != 1 || f.runs.ids[0] != "2" {
		t.Fatalf("unexpected submissions: %v", f.runs.ids)
	}

	f.runs.err = xerrors.New(xerrors.CodeQueueFailure, "queue down")
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/workflows/2/run", nil), http.StatusInternalServerError)

	deleted := decode[ChangeResult](t, f.do(t, http.MethodDelete, "/api/v1/workflows/"+copied.ID, nil))
	if !deleted.Changed || f.catalog.Len() != 2 {
		t.Fatalf("unexpected delete result: %+v (len %d)", deleted, f.catalog.Len())
	}
	unknown := decode[ChangeResult](t, f.do(t, http.MethodDelete, "/api/v1/workflows/unknown", nil))
	if unknown.Changed {
		t.Fatalf("deleting unknown id should be a no-op")
	}

	stats := decode[workflow.Stats](t, f.do(t, http.MethodGet, "/api/v1/workflows/stats", nil))
	if stats.Total != 2 || stats.TotalRuns != 67 || stats.ByStatus[workflow.StatusActive] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	f := newFixture(t)

	view := decode[DashboardView](t, f.do(t, http.MethodGet, "/api/v1/dashboard", nil))
	if view.Section != dashboard.SectionHome || view.Theme != dashboard.ThemeDark || view.Label != "Home" {
		t.Fatalf("unexpected initial view: %+v", view)
	}

	rec := f.do(t, http.MethodPut, "/api/v1/dashboard/section", sectionRequest{Section: "console"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[DashboardView](t, rec); got.Section != dashboard.SectionConsole || got.Label != "Agent Console" {
		t.Fatalf("unexpected view: %+v", got)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/dashboard/section", sectionRequest{Section: "billing"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = f.do(t, http.MethodPut, "/api/v1/dashboard/theme", themeRequest{Theme: "light"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[DashboardView](t, rec); got.Theme != dashboard.ThemeLight {
		t.Fatalf("unexpected theme: %s", got.Theme)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/dashboard/theme/toggle", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[DashboardView](t, rec); got.Theme != dashboard.ThemeDark || got.Section != dashboard.SectionConsole {
		t.Fatalf("unexpected toggled view: %+v", got)
	}
}

func TestMalformedBodyAndMissingDependencies(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/builder/nodes", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)

	empty := NewServer(":0", Dependencies{}).Handler()
	for _, path := range []string{"/api/v1/console", "/api/v1/builder", "/api/v1/workflows", "/api/v1/dashboard"} {
		rec := httptest.NewRecorder()
		empty.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		expectStatus(t, rec, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/v1/dashboard", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `handler="GET /api/v1/dashboard"`) {
		t.Fatalf("expected dashboard route in metrics:\n%s", rec.Body.String())
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", Dependencies{}, WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
