package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestServeHTTP_PassesBytesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			t.Errorf("unexpected upstream path %q", r.URL.Path)
		}
		if r.URL.RawQuery != "debug=1" {
			t.Errorf("query not forwarded, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		io.WriteString(w, "up 1\n")
	}))
	defer upstream.Close()

	u, _ := url.Parse(upstream.URL)
	host, port := u.Hostname(), u.Port()

	p := New(nil)
	req := httptest.NewRequest("GET", "http://localhost:8080/"+host+"_"+port+"/metrics?debug=1", nil)
	w := httptest.NewRecorder()

	p.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "up 1\n" {
		t.Errorf("body not piped through, got %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("upstream headers not copied, got Content-Type %q", ct)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

func TestServeHTTP_Preflight(t *testing.T) {
	p := New(nil)
	req := httptest.NewRequest("OPTIONS", "http://localhost:8080/example_9090/metrics", nil)
	w := httptest.NewRecorder()

	p.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight must advertise allowed methods")
	}
}

func TestServeHTTP_InvalidPrefix(t *testing.T) {
	p := New(nil)
	for _, path := range []string{"/", "/nounderscore", "/host_notaport/metrics"} {
		req := httptest.NewRequest("GET", "http://localhost:8080"+path, nil)
		w := httptest.NewRecorder()

		p.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("path %q: expected 400, got %d", path, w.Code)
		}
	}
}

func TestServeHTTP_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u, _ := url.Parse(upstream.URL)
	upstream.Close()

	p := New(nil)
	req := httptest.NewRequest("GET", "http://localhost:8080/"+u.Hostname()+"_"+u.Port()+"/metrics", nil)
	w := httptest.NewRecorder()

	p.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestServeHTTP_ForwardsPostBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("body not forwarded, got %q", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer upstream.Close()

	u, _ := url.Parse(upstream.URL)
	p := New(nil)
	req := httptest.NewRequest("POST", "http://localhost:8080/"+u.Hostname()+"_"+u.Port()+"/write",
		strings.NewReader("payload"))
	w := httptest.NewRecorder()

	p.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
}
