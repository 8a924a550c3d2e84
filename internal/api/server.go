// Package api serves catalog and chart aggregates to the presentation layer.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zBuffer/influx-metrics-visualiser/internal/config"
	"github.com/zBuffer/influx-metrics-visualiser/internal/dash"
	"github.com/zBuffer/influx-metrics-visualiser/internal/fetch"
	"github.com/zBuffer/influx-metrics-visualiser/internal/history"
)

// Server holds the shared state the handlers read from.
type Server struct {
	hist   *history.History
	poller *fetch.Controller // nil when polling is disabled
	store  *dash.Store
	cfg    config.Config
	log    *slog.Logger
}

func New(hist *history.History, poller *fetch.Controller, store *dash.Store, cfg config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{hist: hist, poller: poller, store: store, cfg: cfg, log: log}
}

// Routes wires every endpoint onto a mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/histogram", s.handleHistogram)
	mux.HandleFunc("GET /api/v1/rate", s.handleRate)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/v1/scalar", s.handleScalar)
	mux.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboardGet)
	mux.HandleFunc("PUT /api/v1/dashboard", s.handleDashboardPut)
	return mux
}

// writeJSON emits the standard success envelope. The payload is encoded
// before any byte is written, so an encoding failure still produces a
// well-formed error response.
func writeJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(map[string]any{
		"status": "success",
		"data":   data,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("encoding response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// writeError emits the standard error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  msg,
	})
}

// readJSON decodes a request body, rejecting unknown fields.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
