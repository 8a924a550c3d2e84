package catalog

import (
	"sort"
	"strings"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// Entry describes one browsable metric: its base name, resolved metadata and
// the label keys observed on its series (minus the reserved le/quantile).
type Entry struct {
	Name   string
	Help   string
	Type   model.MetricType
	Labels []string
}

// PrefixGroup is a set of entries sharing a grouping prefix.
type PrefixGroup struct {
	Prefix  string
	Metrics []Entry
}

// Options tunes catalog construction. TwoTokenHeads lists first tokens whose
// grouping prefix combines the first two underscore-delimited tokens; there
// is no canonical source for this list, so it stays configurable.
type Options struct {
	TwoTokenHeads []string
}

// DefaultTwoTokenHeads covers the HTTP and storage namespaces.
var DefaultTwoTokenHeads = []string{"http", "storage"}

var familySuffixes = []string{"_bucket", "_sum", "_count"}

// Build collapses histogram/summary family members onto their base names and
// returns prefix groups sorted by prefix, each group sorted by metric name.
func Build(s *expose.Scrape, opts Options) []PrefixGroup {
	heads := opts.TwoTokenHeads
	if heads == nil {
		heads = DefaultTwoTokenHeads
	}

	// Base name -> the raw series name it was first derived from. Family
	// members collapse onto the same base exactly once.
	bases := map[string]string{}
	var order []string
	if s != nil {
		names := make([]string, 0, len(s.Series))
		for name := range s.Series {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			base := baseName(name)
			if _, seen := bases[base]; !seen {
				bases[base] = name
				order = append(order, base)
			}
		}
	}

	groups := map[string][]Entry{}
	for _, base := range order {
		entry := buildEntry(s, base, bases[base])
		prefix := groupingPrefix(base, heads)
		groups[prefix] = append(groups[prefix], entry)
	}

	out := make([]PrefixGroup, 0, len(groups))
	for prefix, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		out = append(out, PrefixGroup{Prefix: prefix, Metrics: entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

func buildEntry(s *expose.Scrape, base, raw string) Entry {
	md, ok := s.Meta[base]
	if !ok {
		md, ok = s.Meta[raw]
	}
	if !ok {
		md = expose.Metadata{Type: model.MetricTypeUnknown}
	}

	typ := md.Type
	if typ == model.MetricTypeUnknown || typ == "" {
		typ = deriveType(s, base)
	}

	return Entry{
		Name:   base,
		Help:   md.Help,
		Type:   typ,
		Labels: labelKeys(s, base, typ),
	}
}

// deriveType re-infers the kind from the data when metadata is absent or
// declares the metric untyped.
func deriveType(s *expose.Scrape, base string) model.MetricType {
	if s.Has(base + "_bucket") {
		return model.MetricTypeHistogram
	}
	if hasQuantile(s.Samples(base)) {
		return model.MetricTypeSummary
	}
	return model.MetricTypeUnknown
}

// labelKeys aggregates the label-key set of the metric's own series, or of
// its `_bucket` series for histograms, excluding le and quantile.
func labelKeys(s *expose.Scrape, base string, typ model.MetricType) []string {
	samples := s.Samples(base)
	if typ == model.MetricTypeHistogram {
		if buckets := s.Samples(base + "_bucket"); len(buckets) > 0 {
			samples = buckets
		}
	}

	set := map[string]bool{}
	for _, sample := range samples {
		sample.Labels.Range(func(l labels.Label) {
			if l.Name == "le" || l.Name == "quantile" {
				return
			}
			set[l.Name] = true
		})
	}
	return sortedKeys(set)
}

// baseName strips a histogram/summary family suffix, if any.
func baseName(name string) string {
	for _, suffix := range familySuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && base != "" {
			return base
		}
	}
	return name
}

// groupingPrefix returns the first underscore-delimited token, or the first
// two joined when the first token is on the two-token allow-list.
func groupingPrefix(name string, heads []string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) >= 2 {
		for _, head := range heads {
			if parts[0] == head {
				return parts[0] + "_" + parts[1]
			}
		}
	}
	return parts[0]
}
