package catalog

import (
	"sort"
	"strings"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// Families is the outcome of type discovery over one scrape: histogram base
// names, summary names, and everything else lumped into the counter bucket
// (monotonic counters and gauges are not distinguished at this stage).
type Families struct {
	Histograms []string `json:"histograms"`
	Summaries  []string `json:"summaries"`
	Counters   []string `json:"counters"`
}

// Classify infers metric kinds from the data itself. The rules hold with or
// without TYPE metadata: a `_bucket` series marks a histogram, a `quantile`
// label marks a summary, the rest are plain counters/gauges.
func Classify(s *expose.Scrape) Families {
	hist := map[string]bool{}
	summ := map[string]bool{}
	ctr := map[string]bool{}

	if s != nil {
		for name, samples := range s.Series {
			if base, ok := strings.CutSuffix(name, "_bucket"); ok {
				hist[base] = true
				continue
			}
			if hasQuantile(samples) {
				summ[name] = true
				continue
			}
			ctr[name] = true
		}
	}

	return Families{
		Histograms: sortedKeys(hist),
		Summaries:  sortedKeys(summ),
		Counters:   sortedKeys(ctr),
	}
}

func hasQuantile(samples []expose.Sample) bool {
	for _, s := range samples {
		if s.Labels.Has("quantile") {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
