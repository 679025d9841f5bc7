// Package api serves plan analysis over HTTP: runs are analyzed and stored
// on POST, then readable as JSON, CSV exports, and chart pages.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kestrel-data/aperture.report/internal/analysis"
	"github.com/kestrel-data/aperture.report/internal/db"
	"github.com/kestrel-data/aperture.report/internal/machine"
	"github.com/kestrel-data/aperture.report/internal/planfile"
	"github.com/kestrel-data/aperture.report/internal/report"
	"github.com/kestrel-data/aperture.report/internal/units"
	"github.com/kestrel-data/aperture.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxPlanBody caps analyze request bodies at the same size Load accepts from disk.
const maxPlanBody = 32 * 1024 * 1024

type Server struct {
	store    *db.RunStore
	registry *machine.Registry
	units    string
}

// NewServer wires the run store and machine registry behind the HTTP API.
// displayUnits applies to chart pages only; stored metrics stay in mm.
func NewServer(store *db.RunStore, registry *machine.Registry, displayUnits string) *Server {
	if !units.IsValid(displayUnits) {
		displayUnits = units.MM2
	}
	return &Server{
		store:    store,
		registry: registry,
		units:    displayUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/plans/analyze", s.analyzePlan)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.runSubtree)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts/runs/", s.chartSubtree)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// analyzePlan accepts a plan snapshot as the request body, analyzes it,
// stores the run, and responds with the stored run including beam rows.
func (s *Server) analyzePlan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	binSize := analysis.DefaultBinSize
	if b := r.URL.Query().Get("bin_size"); b != "" {
		parsedBin, err := strconv.Atoi(b)
		if err != nil || parsedBin < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'bin_size' parameter")
			return
		}
		binSize = parsedBin
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlanBody))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read plan body: %v", err))
		return
	}

	plan, err := planfile.Parse(body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid plan: %v", err))
		return
	}

	res := analysis.AnalyzePlan(plan, s.registry, analysis.Options{HistogramBinSize: binSize})

	run := db.RunFromResult(res, "")
	if err := s.store.InsertRun(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store run: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
		return
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 50 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []*db.Run{}
	}

	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

// parseRunPath extracts a run ID and remaining subpath from prefix-rooted
// paths like /api/runs/{run_id}/beams.
func parseRunPath(path, prefix string) (runID string, subPath string) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		// No prefix match, return empty
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 {
		return "", ""
	}
	runID = parts[0]
	if len(parts) > 1 {
		subPath = parts[1]
	}
	return
}

func (s *Server) runSubtree(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	runID, subPath := parseRunPath(r.URL.Path, "/api/runs/")
	if runID == "" {
		s.writeJSONError(w, http.StatusNotFound, "run id required")
		return
	}

	switch subPath {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.showRun(w, runID)
		case http.MethodDelete:
			s.deleteRun(w, runID)
		default:
			s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "beams":
		if r.Method != http.MethodGet {
			s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.showRunBeams(w, runID)
	case "export.csv":
		if r.Method != http.MethodGet {
			s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.exportRunCSV(w, r, runID)
	default:
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown run endpoint: %s", subPath))
	}
}

func runErrorStatus(err error) int {
	if errors.Is(err, db.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) showRun(w http.ResponseWriter, runID string) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		s.writeJSONError(w, runErrorStatus(err), fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
		return
	}
}

func (s *Server) deleteRun(w http.ResponseWriter, runID string) {
	if err := s.store.DeleteRun(runID); err != nil {
		s.writeJSONError(w, runErrorStatus(err), fmt.Sprintf("Failed to delete run: %v", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "run_id": runID})
}

func (s *Server) showRunBeams(w http.ResponseWriter, runID string) {
	beams, err := s.store.RunBeams(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve beams: %v", err))
		return
	}
	if beams == nil {
		beams = []db.RunBeam{}
	}

	if err := json.NewEncoder(w).Encode(beams); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write beams")
		return
	}
}

// exportRunCSV streams one CSV table of a run. The default is the per-beam
// metrics table; ?table=histogram selects the area histogram rows.
func (s *Server) exportRunCSV(w http.ResponseWriter, r *http.Request, runID string) {
	table := r.URL.Query().Get("table")
	if table == "" {
		table = "metrics"
	}
	if table != "metrics" && table != "histogram" {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'table' parameter (metrics, histogram)")
		return
	}

	run, err := s.store.GetRun(runID)
	if err != nil {
		s.writeJSONError(w, runErrorStatus(err), fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}

	var metrics, histogram bytes.Buffer
	cw := report.NewCSVWriter(&metrics, &histogram)

	var body *bytes.Buffer
	switch table {
	case "metrics":
		err = cw.WriteMetrics(run)
		body = &metrics
	case "histogram":
		err = cw.WriteHistogramRows(run)
		body = &histogram
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render CSV: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"_"+table+".csv"))
	_, _ = w.Write(body.Bytes())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"version":          version.String(),
		"units":            s.units,
		"default_bin_size": analysis.DefaultBinSize,
		"schema_version":   planfile.SchemaVersion,
		"mlc_models":       s.registry.MLCModels(),
		"treatment_units":  s.registry.TreatmentUnits(),
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
