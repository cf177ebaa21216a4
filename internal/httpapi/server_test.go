package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptrun/internal/results"
	"promptrun/pkg/types"
)

// seedRun writes one finished run under dir and returns its info.
func seedRun(t *testing.T, dir string) results.RunInfo {
	t.Helper()
	info := results.RunInfo{
		ID:        "2026-01-08T12:34:56Z-a3f2c1",
		DirName:   "2026-01-08_12-34-56Z-a3f2c1",
		CreatedAt: "2026-01-08T12:34:56Z",
	}
	w := results.NewWriter(dir)
	if _, err := w.Begin(info); err != nil {
		t.Fatalf("begin: %v", err)
	}
	res := []types.EvalResult{
		{
			RunID:     info.ID,
			CreatedAt: info.CreatedAt,
			PromptID:  "haiku",
			ModelID:   "qwen2.5:3b",
			Mode:      types.ModeCompletion,
			Output:    types.Output{Text: "pond"},
		},
		{
			RunID:     info.ID,
			CreatedAt: info.CreatedAt,
			PromptID:  "haiku",
			ModelID:   "broken",
			Mode:      types.ModeCompletion,
			Error:     "connection refused",
		},
	}
	if err := w.Finish(info, res, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return info
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListRunsEndpoint(t *testing.T) {
	dir := t.TempDir()
	info := seedRun(t, dir)
	h := NewMux(dir)

	rec := get(t, h, "/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Runs []string `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0] != info.DirName {
		t.Fatalf("unexpected runs: %v", body.Runs)
	}
}

func TestRunSummaryEndpoint(t *testing.T) {
	dir := t.TempDir()
	info := seedRun(t, dir)
	h := NewMux(dir)

	rec := get(t, h, "/runs/"+info.DirName)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var s types.RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.RunID != info.ID || s.Succeeded != 1 || s.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestRunResultsEndpoint(t *testing.T) {
	dir := t.TempDir()
	info := seedRun(t, dir)
	h := NewMux(dir)

	rec := get(t, h, "/runs/"+info.DirName+"/results")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var collection []types.EvalResult
	if err := json.Unmarshal(rec.Body.Bytes(), &collection); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(collection) != 2 || collection[0].PromptID != "haiku" {
		t.Fatalf("unexpected collection: %+v", collection)
	}
}

func TestRunNotFound(t *testing.T) {
	h := NewMux(t.TempDir())
	if rec := get(t, h, "/runs/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestRunIDEscapeRejected(t *testing.T) {
	dir := t.TempDir()
	seedRun(t, dir)
	h := NewMux(dir)
	rec := get(t, h, "/runs/..%2F..%2Fetc/results")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("path escape not rejected: status %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := NewMux(t.TempDir())
	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(t.TempDir())
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
}
