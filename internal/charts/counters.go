package charts

import (
	"sort"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// NameValue is one flat breakdown row.
type NameValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// CounterBreakdown sums the samples of name per group, sorted by summed
// value descending (name ascending on ties for stable output).
func CounterBreakdown(s *expose.Snapshot, name, groupKey string) []NameValue {
	sums := map[string]float64{}
	for _, sample := range snapshotSamples(s, name) {
		sums[groupOf(sample.Labels, groupKey)] += sample.Value
	}
	if len(sums) == 0 {
		return nil
	}

	rows := make([]NameValue, 0, len(sums))
	for g, v := range sums {
		rows = append(rows, NameValue{Name: g, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// ScalarValue sums every sample of name whose labels match all filters
// exactly. An absent metric reads as 0.
func ScalarValue(s *expose.Snapshot, name string, filters map[string]string) float64 {
	var total float64
	for _, sample := range snapshotSamples(s, name) {
		matched := true
		for k, v := range filters {
			if sample.Labels.Get(k) != v {
				matched = false
				break
			}
		}
		if matched {
			total += sample.Value
		}
	}
	return total
}
