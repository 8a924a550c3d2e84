package catalog

import (
	"testing"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

const sampleExposition = `
# HELP http_request_duration_seconds Duration of HTTP requests.
# TYPE http_request_duration_seconds histogram
http_request_duration_seconds_bucket{method="GET",path="/a",le="0.1"} 5
http_request_duration_seconds_bucket{method="GET",path="/a",le="+Inf"} 9
http_request_duration_seconds_sum{method="GET",path="/a"} 1.2
http_request_duration_seconds_count{method="GET",path="/a"} 9
# HELP go_gc_duration_seconds GC pause summary.
# TYPE go_gc_duration_seconds summary
go_gc_duration_seconds{quantile="0.5"} 0.0001
go_gc_duration_seconds{quantile="0.9"} 0.0005
go_gc_duration_seconds_sum 0.04
go_gc_duration_seconds_count 300
# TYPE storage_engine_bytes untyped
storage_engine_bytes{shard="0"} 1024
process_open_fds 12
`

func TestClassify(t *testing.T) {
	got := Classify(expose.Parse(sampleExposition))

	assert.Equal(t, []string{"http_request_duration_seconds"}, got.Histograms)
	assert.Equal(t, []string{"go_gc_duration_seconds"}, got.Summaries)
	assert.Equal(t, []string{
		"go_gc_duration_seconds_count",
		"go_gc_duration_seconds_sum",
		"http_request_duration_seconds_count",
		"http_request_duration_seconds_sum",
		"process_open_fds",
		"storage_engine_bytes",
	}, got.Counters)
}

func TestClassify_Nil(t *testing.T) {
	got := Classify(nil)

	assert.Empty(t, got.Histograms)
	assert.Empty(t, got.Summaries)
	assert.Empty(t, got.Counters)
}

func TestBuild(t *testing.T) {
	groups := Build(expose.Parse(sampleExposition), Options{})

	require.Len(t, groups, 4)
	assert.Equal(t, "go", groups[0].Prefix)
	assert.Equal(t, "http_request", groups[1].Prefix)
	assert.Equal(t, "process", groups[2].Prefix)
	assert.Equal(t, "storage_engine", groups[3].Prefix)

	byName := map[string]Entry{}
	for _, g := range groups {
		for _, e := range g.Metrics {
			byName[e.Name] = e
		}
	}

	hist, ok := byName["http_request_duration_seconds"]
	require.True(t, ok, "family members must collapse onto the base name")
	assert.Equal(t, model.MetricTypeHistogram, hist.Type)
	assert.Equal(t, "Duration of HTTP requests.", hist.Help)
	assert.Equal(t, []string{"method", "path"}, hist.Labels, "le must be excluded")

	summ := byName["go_gc_duration_seconds"]
	assert.Equal(t, model.MetricTypeSummary, summ.Type)
	assert.Empty(t, summ.Labels, "quantile must be excluded")

	// Declared untyped, no bucket series and no quantile label: re-derivation
	// leaves it untyped.
	assert.Equal(t, model.MetricTypeUnknown, byName["storage_engine_bytes"].Type)
	assert.Equal(t, []string{"shard"}, byName["storage_engine_bytes"].Labels)
}

func TestBuild_UntypedRederivation(t *testing.T) {
	// No TYPE metadata at all: kinds come from the data.
	s := expose.Parse(`
latency_bucket{le="1"} 3
latency_bucket{le="+Inf"} 4
rpc_quantiles{quantile="0.9"} 0.2
`)
	groups := Build(s, Options{})

	byName := map[string]Entry{}
	for _, g := range groups {
		for _, e := range g.Metrics {
			byName[e.Name] = e
		}
	}
	assert.Equal(t, model.MetricTypeHistogram, byName["latency"].Type)
	assert.Equal(t, model.MetricTypeSummary, byName["rpc_quantiles"].Type)
}

func TestGroupingPrefix(t *testing.T) {
	tests := map[string]struct {
		name string
		want string
	}{
		"single token":             {name: "up", want: "up"},
		"plain first token":        {name: "go_goroutines", want: "go"},
		"http combines two":        {name: "http_request_duration_seconds", want: "http_request"},
		"storage combines two":     {name: "storage_engine_bytes", want: "storage_engine"},
		"http with one token tail": {name: "http_requests", want: "http_requests"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, groupingPrefix(test.name, DefaultTwoTokenHeads))
		})
	}
}

func TestUnitFor(t *testing.T) {
	tests := map[string]struct {
		metric string
		want   Unit
	}{
		"bytes":           {metric: "go_memstats_alloc_bytes", want: UnitMemory},
		"bytes_total":     {metric: "node_disk_read_bytes_total", want: UnitMemory},
		"seconds":         {metric: "http_request_duration_seconds", want: UnitSeconds},
		"duration":        {metric: "query_duration", want: UnitSeconds},
		"ratio":           {metric: "cache_hit_ratio", want: UnitPercent},
		"usage":           {metric: "cpu_usage", want: UnitPercent},
		"total":           {metric: "http_requests_total", want: UnitCount},
		"timeouts":        {metric: "upstream_timeouts", want: UnitCount},
		"series":          {metric: "scraped_series", want: UnitCount},
		"no known suffix": {metric: "temperature_celsius", want: UnitRaw},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, UnitFor(test.metric))
		})
	}
}
