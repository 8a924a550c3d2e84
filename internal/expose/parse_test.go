package expose

import (
	"math"
	"os"
	"testing"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dataNodeExporter, _ = os.ReadFile("testdata/node-exporter.txt")

func Test_testParseDataIsValid(t *testing.T) {
	require.NotNil(t, dataNodeExporter)
}

func TestParse(t *testing.T) {
	tests := map[string]struct {
		input string
		want  map[string][]Sample
	}{
		"plain sample without labels": {
			input: `up 1`,
			want: map[string][]Sample{
				"up": {{Labels: labels.EmptyLabels(), Value: 1}},
			},
		},
		"sample with labels and trailing timestamp": {
			input: `http_requests_total{method="GET",path="/api"} 42 1712345678901`,
			want: map[string][]Sample{
				"http_requests_total": {
					{Labels: labels.FromStrings("method", "GET", "path", "/api"), Value: 42},
				},
			},
		},
		"escaped quote, backslash and newline in label value": {
			input: `weird{msg="say \"hi\"",dir="C:\\tmp",multi="a\nb"} 3`,
			want: map[string][]Sample{
				"weird": {
					{
						Labels: labels.FromStrings("msg", `say "hi"`, "dir", `C:\tmp`, "multi", "a\nb"),
						Value:  3,
					},
				},
			},
		},
		"comma inside a label value": {
			input: `q{expr="sum(a,b)"} 7`,
			want: map[string][]Sample{
				"q": {{Labels: labels.FromStrings("expr", "sum(a,b)"), Value: 7}},
			},
		},
		"unterminated label block is skipped, later lines survive": {
			input: "weird_metric{bad\nok_metric 5",
			want: map[string][]Sample{
				"ok_metric": {{Labels: labels.EmptyLabels(), Value: 5}},
			},
		},
		"NaN value falls back to zero": {
			input: `go_memstats_alloc_bytes NaN`,
			want: map[string][]Sample{
				"go_memstats_alloc_bytes": {{Labels: labels.EmptyLabels(), Value: 0}},
			},
		},
		"malformed numeric token falls back to zero": {
			input: `broken_metric 1.2.3`,
			want: map[string][]Sample{
				"broken_metric": {{Labels: labels.EmptyLabels(), Value: 0}},
			},
		},
		"non-numeric value token fails the line": {
			input: `broken_metric forty-two`,
			want:  map[string][]Sample{},
		},
		"prose payload yields no series": {
			input: "not metrics\nat all\n",
			want:  map[string][]Sample{},
		},
		"scientific notation and signs": {
			input: "a 1.5e3\nb -2.5E-2\nc +3",
			want: map[string][]Sample{
				"a": {{Labels: labels.EmptyLabels(), Value: 1500}},
				"b": {{Labels: labels.EmptyLabels(), Value: -0.025}},
				"c": {{Labels: labels.EmptyLabels(), Value: 3}},
			},
		},
		"blank lines and plain comments are skipped": {
			input: "\n# just a comment\n\nup 1\n",
			want: map[string][]Sample{
				"up": {{Labels: labels.EmptyLabels(), Value: 1}},
			},
		},
		"insertion order per metric is preserved": {
			input: "m{i=\"2\"} 2\nm{i=\"1\"} 1",
			want: map[string][]Sample{
				"m": {
					{Labels: labels.FromStrings("i", "2"), Value: 2},
					{Labels: labels.FromStrings("i", "1"), Value: 1},
				},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := Parse(test.input)
			assert.Equal(t, test.want, got.Series)
		})
	}
}

func TestParse_Infinities(t *testing.T) {
	got := Parse("pos +Inf\nalso_pos Inf\nneg -Inf")

	require.Len(t, got.Series["pos"], 1)
	assert.True(t, math.IsInf(got.Series["pos"][0].Value, 1))
	assert.True(t, math.IsInf(got.Series["also_pos"][0].Value, 1))
	assert.True(t, math.IsInf(got.Series["neg"][0].Value, -1))
}

func TestParse_Metadata(t *testing.T) {
	input := `
# HELP http_requests_total Total HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET"} 10
# TYPE req_duration_seconds HISTOGRAM
# HELP orphan_help No samples follow.
`
	got := Parse(input)

	assert.Equal(t, Metadata{
		Help: "Total HTTP requests.",
		Type: model.MetricTypeCounter,
	}, got.Meta["http_requests_total"])

	// TYPE value is case-insensitive.
	assert.Equal(t, model.MetricTypeHistogram, got.Meta["req_duration_seconds"].Type)

	// HELP alone leaves the type untyped.
	assert.Equal(t, Metadata{
		Help: "No samples follow.",
		Type: model.MetricTypeUnknown,
	}, got.Meta["orphan_help"])
}

func TestParse_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"{}",
		"}{",
		"# TYPE",
		"# HELP",
		"1m_leading_digit 1",
		"name{=\"v\"} 1",
		"name{a=\"unclosed} 1",
		"name 1 2 3 4",
		"\x00\xff binary junk",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}

func TestParse_NodeExporterFixture(t *testing.T) {
	got := Parse(string(dataNodeExporter))

	require.True(t, got.Has("go_goroutines"))
	assert.Equal(t, model.MetricTypeGauge, got.Meta["go_goroutines"].Type)

	buckets := got.Samples("http_request_duration_seconds_bucket")
	require.NotEmpty(t, buckets)
	for _, b := range buckets {
		assert.True(t, b.Labels.Has("le"))
	}

	quantiles := got.Samples("go_gc_duration_seconds")
	require.NotEmpty(t, quantiles)
	for _, q := range quantiles {
		assert.True(t, q.Labels.Has("quantile"))
	}
}
