// Package charts derives chart-ready aggregates from parsed snapshots.
// Every function here is pure: inputs are never mutated, a missing metric
// yields an empty result, and no output value is ever NaN.
package charts

import (
	"strings"

	"github.com/prometheus/prometheus/model/labels"
)

const (
	// GroupAll names the single group used when no grouping is requested.
	GroupAll = "All"
	// GroupOther collects samples missing the requested label.
	GroupOther = "Other"
	// GroupGlobal names a summary group whose samples carry no labels
	// besides quantile.
	GroupGlobal = "Global"

	// GroupByMethodPath is the sentinel group key requesting the synthesized
	// "<method> <path>" two-field grouping.
	GroupByMethodPath = "method+path"
)

// groupOf resolves the group a sample belongs to under the given key.
func groupOf(lbls labels.Labels, groupKey string) string {
	switch groupKey {
	case "":
		return GroupAll
	case GroupByMethodPath:
		method, path := lbls.Get("method"), lbls.Get("path")
		if method == "" || path == "" {
			return GroupOther
		}
		return method + " " + path
	default:
		if v := lbls.Get(groupKey); v != "" {
			return v
		}
		return GroupOther
	}
}

// serializeGroup renders every label except quantile as "k: v, k2: v2".
// Labels are already name-sorted, so the serialization is canonical.
func serializeGroup(lbls labels.Labels) string {
	var b strings.Builder
	lbls.Range(func(l labels.Label) {
		if l.Name == "quantile" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.Name)
		b.WriteString(": ")
		b.WriteString(l.Value)
	})
	if b.Len() == 0 {
		return GroupGlobal
	}
	return b.String()
}
