package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/prometheus/model/labels"

	"github.com/zBuffer/influx-metrics-visualiser/internal/catalog"
	"github.com/zBuffer/influx-metrics-visualiser/internal/charts"
	"github.com/zBuffer/influx-metrics-visualiser/internal/dash"
	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
	"github.com/zBuffer/influx-metrics-visualiser/internal/fetch"
)

// maxIngestBytes bounds a manual paste; node-exporter payloads are ~100KB.
const maxIngestBytes = 16 << 20

// ─── CATALOG ──────────────────────────────────────────────────────────────────

type catalogMetric struct {
	Name   string       `json:"name"`
	Help   string       `json:"help"`
	Type   string       `json:"type"`
	Unit   catalog.Unit `json:"unit"`
	Labels []string     `json:"labels"`
}

type catalogGroup struct {
	Prefix  string          `json:"prefix"`
	Metrics []catalogMetric `json:"metrics"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap := s.hist.Current()
	if snap == nil {
		writeJSON(w, map[string]any{"groups": []catalogGroup{}, "families": catalog.Families{}})
		return
	}

	groups := catalog.Build(snap.Scrape, catalog.Options{
		TwoTokenHeads: s.cfg.Catalog.TwoTokenPrefixes,
	})
	out := make([]catalogGroup, 0, len(groups))
	for _, g := range groups {
		metrics := make([]catalogMetric, 0, len(g.Metrics))
		for _, m := range g.Metrics {
			metrics = append(metrics, catalogMetric{
				Name:   m.Name,
				Help:   m.Help,
				Type:   string(m.Type),
				Unit:   catalog.UnitFor(m.Name),
				Labels: m.Labels,
			})
		}
		out = append(out, catalogGroup{Prefix: g.Prefix, Metrics: metrics})
	}

	writeJSON(w, map[string]any{
		"groups":   out,
		"families": catalog.Classify(snap.Scrape),
	})
}

// ─── AGGREGATES ───────────────────────────────────────────────────────────────

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing metric parameter")
		return
	}
	table := charts.HistogramBuckets(s.hist.Current(), metric, r.URL.Query().Get("group"))
	writeJSON(w, table)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing metric parameter")
		return
	}

	var filter func(labels.Labels) bool
	if sub := r.URL.Query().Get("path_contains"); sub != "" {
		filter = func(l labels.Labels) bool { return strings.Contains(l.Get("path"), sub) }
	}

	rows := charts.RateBuckets(
		s.hist.Current(), s.hist.Previous(), metric, filter,
		s.hist.ElapsedSeconds(), s.cfg.Charts.RateEpsilon,
	)
	if len(rows) > 0 {
		writeJSON(w, map[string]any{"mode": "rate", "rows": rows})
		return
	}

	// First sample or no activity: fall back to the cumulative breakdown of
	// the current snapshot rather than showing nothing.
	table := charts.HistogramBuckets(s.hist.Current(), metric, "")
	writeJSON(w, map[string]any{"mode": "cumulative", "rows": table.Rows})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing metric parameter")
		return
	}
	grouped := r.URL.Query().Get("grouped") == "true"
	table := charts.SummaryTable(s.hist.Current(), metric, grouped, s.cfg.Charts.SummaryTopGroups)
	writeJSON(w, table)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing metric parameter")
		return
	}
	rows := charts.CounterBreakdown(s.hist.Current(), metric, r.URL.Query().Get("group"))
	if rows == nil {
		rows = []charts.NameValue{}
	}
	writeJSON(w, rows)
}

// handleScalar treats every query parameter besides metric as an exact
// label filter.
func (s *Server) handleScalar(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing metric parameter")
		return
	}
	filters := map[string]string{}
	for k, vs := range r.URL.Query() {
		if k == "metric" || len(vs) == 0 {
			continue
		}
		filters[k] = vs[0]
	}
	writeJSON(w, map[string]float64{"value": charts.ScalarValue(s.hist.Current(), metric, filters)})
}

// ─── INGEST & STATUS ──────────────────────────────────────────────────────────

// handleIngest is the manual paste path: parse the body and append it to
// history. Per-line garbage is tolerated by the parser; only a payload that
// yields nothing at all is surfaced as a parse failure.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reading body: %v", err))
		return
	}

	scrape, failure := manualParse(string(body))
	if failure != nil {
		writeError(w, http.StatusBadRequest, failure.Error())
		return
	}

	s.hist.Append(time.Now().UnixMilli(), scrape)
	writeJSON(w, map[string]any{
		"metrics":   len(scrape.Series),
		"snapshots": s.hist.Len(),
	})
}

// manualParse wraps a catastrophic parse into a classified failure.
func manualParse(text string) (scrape *expose.Scrape, failure *fetch.Failure) {
	defer func() {
		if r := recover(); r != nil {
			scrape = nil
			failure = &fetch.Failure{Kind: fetch.KindParse, Err: fmt.Errorf("parsing input: %v", r)}
		}
	}()

	scrape = expose.Parse(text)
	if len(scrape.Series) == 0 {
		return nil, &fetch.Failure{Kind: fetch.KindParse, Err: fmt.Errorf("no metrics found in input")}
	}
	return scrape, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"snapshots": s.hist.Len(),
		"polling":   s.poller != nil,
	}
	if s.poller != nil {
		state, failure := s.poller.Status()
		out["state"] = state
		if failure != nil {
			out["failure"] = map[string]string{
				"kind":  string(failure.Kind),
				"error": failure.Error(),
			}
		}
	}
	writeJSON(w, out)
}

// ─── DASHBOARD STATE ──────────────────────────────────────────────────────────

func (s *Server) handleDashboardGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, state)
}

func (s *Server) handleDashboardPut(w http.ResponseWriter, r *http.Request) {
	var state dash.State
	if err := readJSON(r, &state); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Save(state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, state)
}
