package expose

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"
)

// ─── GRAMMAR ──────────────────────────────────────────────────────────────────

var (
	helpRe = regexp.MustCompile(`^#\s*HELP\s+([a-zA-Z_:][a-zA-Z0-9_:]*)\s*(.*)$`)
	typeRe = regexp.MustCompile(`^#\s*TYPE\s+([a-zA-Z_:][a-zA-Z0-9_:]*)\s+(\S+)`)

	// The label block is captured between the outermost braces, so commas and
	// braces inside quoted values survive to the secondary scan. The value
	// token is limited to the numeric grammar plus the Inf/NaN spellings;
	// anything else fails the line rather than producing a bogus series.
	sampleRe = regexp.MustCompile(`^([a-zA-Z_:][a-zA-Z0-9_:]*)(?:\{(.*)\})?\s+([0-9eE.+-]+|[+-]?Inf|NaN)(?:\s+\S+)?$`)

	// Secondary scan over the label block. The value part matches escaped
	// quotes and backslashes so a pair never ends inside an escape.
	labelRe = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*"((?:\\.|[^"\\])*)"`)
)

// Parse turns raw exposition text into a Scrape. It is a total function:
// lines that do not match the grammar are dropped and never abort the parse.
func Parse(text string) *Scrape {
	out := NewScrape()

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			parseDirective(line, out)
			continue
		}

		m := sampleRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, block, value := m[1], m[2], m[3]

		out.Series[name] = append(out.Series[name], Sample{
			Labels: parseLabels(block),
			Value:  parseValue(value),
		})
	}

	return out
}

// parseDirective handles # HELP and # TYPE; any other comment is ignored.
func parseDirective(line string, out *Scrape) {
	if m := helpRe.FindStringSubmatch(line); m != nil {
		md := out.Meta[m[1]]
		if md.Type == "" {
			md.Type = model.MetricTypeUnknown
		}
		md.Help = m[2]
		out.Meta[m[1]] = md
		return
	}
	if m := typeRe.FindStringSubmatch(line); m != nil {
		md := out.Meta[m[1]]
		md.Type = metricType(m[2])
		out.Meta[m[1]] = md
	}
}

func metricType(s string) model.MetricType {
	switch strings.ToLower(s) {
	case "counter":
		return model.MetricTypeCounter
	case "gauge":
		return model.MetricTypeGauge
	case "histogram":
		return model.MetricTypeHistogram
	case "summary":
		return model.MetricTypeSummary
	default:
		return model.MetricTypeUnknown
	}
}

func parseLabels(block string) labels.Labels {
	if block == "" {
		return labels.EmptyLabels()
	}
	var lbls []labels.Label
	for _, m := range labelRe.FindAllStringSubmatch(block, -1) {
		lbls = append(lbls, labels.Label{Name: m[1], Value: unescape(m[2])})
	}
	return labels.New(lbls...)
}

// unescape applies the exposition escape rules in documented order:
// \" then \\ then \n.
func unescape(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\"`, `"`)
	v = strings.ReplaceAll(v, `\\`, `\`)
	v = strings.ReplaceAll(v, `\n`, "\n")
	return v
}

// parseValue parses the numeric token. Unparsable tokens fall back to 0,
// the Inf spellings keep their sign, and NaN is normalized to 0 so that
// downstream aggregation never sees it.
func parseValue(s string) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) {
			return 0
		}
		return v
	}
	switch s {
	case "+Inf", "Inf":
		return math.Inf(1)
	case "-Inf":
		return math.Inf(-1)
	}
	return 0
}
