package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"promptrun/internal/results"
)

// zlog is an optional structured logger. If unset, requests are not logged.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// NewMux builds the results-browsing router over a results directory:
// run listings, run summaries, full result collections, plus /healthz and
// prometheus /metrics.
func NewMux(resultsDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := results.ListRuns(resultsDir)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, req, map[string]any{"runs": runs})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		runPath, ok := runPathParam(w, req, resultsDir)
		if !ok {
			return
		}
		summary, err := results.ReadSummary(runPath)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, req, summary)
	})

	r.Get("/runs/{id}/results", func(w http.ResponseWriter, req *http.Request) {
		runPath, ok := runPathParam(w, req, resultsDir)
		if !ok {
			return
		}
		collection, err := results.ReadRun(runPath)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, req, collection)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// runPathParam resolves the {id} route param to a run directory, rejecting
// anything that escapes the results dir or does not exist.
func runPathParam(w http.ResponseWriter, req *http.Request, resultsDir string) (string, bool) {
	id := chi.URLParam(req, "id")
	if id == "" || id != filepath.Base(id) {
		writeJSONError(w, http.StatusBadRequest, "invalid run id")
		return "", false
	}
	runPath := filepath.Join(resultsDir, id)
	if fi, err := os.Stat(runPath); err != nil || !fi.IsDir() {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return "", false
	}
	return runPath, true
}

func writeJSON(w http.ResponseWriter, req *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		if zlog != nil {
			zlog.Error().Err(err).Str("path", req.URL.Path).Msg("encode response")
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
