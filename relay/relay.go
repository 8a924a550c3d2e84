// Package relay is a CORS pass-through for exposition endpoints the browser
// cannot reach directly. It pipes bytes both ways and never parses them.
package relay

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Relay holds the upstream HTTP client.
type Relay struct {
	client *http.Client
	log    *slog.Logger
	tracer trace.Tracer
}

func New(log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
		tracer: otel.Tracer("relay"),
	}
}

// targetRe strips off /<host>_<port>/ and keeps the rest of the path.
var targetRe = regexp.MustCompile(`^/([^_/]+)_(\d+)(/.*)?$`)

// ServeHTTP answers preflights locally and pipes everything else upstream.
func (p *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	m := targetRe.FindStringSubmatch(r.URL.Path)
	if m == nil {
		relayRequests.WithLabelValues("400").Inc()
		http.Error(w, `{"status":"error","error":"Invalid target prefix"}`, http.StatusBadRequest)
		return
	}
	host, port, suffix := m[1], m[2], m[3]
	if suffix == "" {
		suffix = "/"
	}
	upstream := fmt.Sprintf("http://%s:%s%s", host, port, suffix)
	if r.URL.RawQuery != "" {
		upstream += "?" + r.URL.RawQuery
	}

	p.forward(w, r, upstream)
}

// forward pipes one request upstream unchanged and the response back.
func (p *Relay) forward(w http.ResponseWriter, r *http.Request, urlStr string) {
	ctx, span := p.tracer.Start(r.Context(), "relay.forward")
	defer span.End()

	started := time.Now()

	var req *http.Request
	var err error
	if r.Method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	} else {
		body, _ := io.ReadAll(r.Body)
		req, err = http.NewRequestWithContext(ctx, r.Method, urlStr, bytes.NewReader(body))
	}
	if err != nil {
		relayRequests.WithLabelValues("500").Inc()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		relayRequests.WithLabelValues("502").Inc()
		p.log.Warn("upstream request failed", "url", urlStr, "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		w.Header()[k] = vv
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)

	relayRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	relayDuration.Observe(time.Since(started).Seconds())
}
