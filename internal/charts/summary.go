package charts

import (
	"math"
	"sort"
	"strconv"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// DefaultTopGroups bounds grouped summary tables to keep charts readable.
const DefaultTopGroups = 5

// SummaryRow is one pivoted row: a quantile label like "P90" (or "Avg")
// mapped to a value per group.
type SummaryRow struct {
	Label  string             `json:"label"`
	Values map[string]float64 `json:"values"`
}

// QuantileTable is the pivoted summary breakdown of one snapshot.
type QuantileTable struct {
	Rows   []SummaryRow `json:"rows"`
	Groups []string     `json:"groups"`
}

// SummaryTable pivots the quantile-labeled samples of name into rows keyed
// by quantile. When grouped, the group key is the remaining label set
// serialized as "k: v, k2: v2" ("Global" when none), and the output is
// restricted to the topN groups ranked by their maximum observed value.
// An "Avg" row from the _sum/_count series is always appended.
func SummaryTable(s *expose.Snapshot, name string, grouped bool, topN int) QuantileTable {
	if topN <= 0 {
		topN = DefaultTopGroups
	}

	byGroup := map[string]map[string]float64{} // group -> quantile label -> value
	maxByGroup := map[string]float64{}

	for _, sample := range snapshotSamples(s, name) {
		q := sample.Labels.Get("quantile")
		if q == "" {
			continue
		}
		g := GroupAll
		if grouped {
			g = serializeGroup(sample.Labels)
		}
		if byGroup[g] == nil {
			byGroup[g] = map[string]float64{}
		}
		if cur, ok := byGroup[g][q]; !ok || sample.Value > cur {
			byGroup[g][q] = sample.Value
		}
		if sample.Value > maxByGroup[g] {
			maxByGroup[g] = sample.Value
		}
	}
	if len(byGroup) == 0 {
		return QuantileTable{}
	}

	groups := rankGroups(byGroup, maxByGroup, grouped, topN)

	rows := make([]SummaryRow, 0)
	for _, q := range sortedQuantiles(byGroup, groups) {
		values := make(map[string]float64, len(groups))
		for _, g := range groups {
			if v, ok := byGroup[g][q]; ok {
				values[g] = v
			}
		}
		rows = append(rows, SummaryRow{Label: percentLabel(q), Values: values})
	}
	rows = append(rows, averageRow(s, name, grouped, groups))

	return QuantileTable{Rows: rows, Groups: groups}
}

// rankGroups orders grouped output by maximum observed value, descending,
// bounded to topN. Ungrouped output is the single "All" column.
func rankGroups(byGroup map[string]map[string]float64, maxByGroup map[string]float64, grouped bool, topN int) []string {
	if !grouped {
		return []string{GroupAll}
	}
	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if maxByGroup[groups[i]] != maxByGroup[groups[j]] {
			return maxByGroup[groups[i]] > maxByGroup[groups[j]]
		}
		return groups[i] < groups[j]
	})
	if len(groups) > topN {
		groups = groups[:topN]
	}
	return groups
}

// averageRow computes per-group sum/count averages, 0 when count is 0.
func averageRow(s *expose.Snapshot, name string, grouped bool, groups []string) SummaryRow {
	sums := map[string]float64{}
	counts := map[string]float64{}

	for _, sample := range snapshotSamples(s, name+"_sum") {
		sums[sumCountGroup(sample, grouped)] += sample.Value
	}
	for _, sample := range snapshotSamples(s, name+"_count") {
		counts[sumCountGroup(sample, grouped)] += sample.Value
	}

	values := make(map[string]float64, len(groups))
	for _, g := range groups {
		if counts[g] > 0 {
			values[g] = sums[g] / counts[g]
		} else {
			values[g] = 0
		}
	}
	return SummaryRow{Label: "Avg", Values: values}
}

func sumCountGroup(sample expose.Sample, grouped bool) string {
	if !grouped {
		return GroupAll
	}
	return serializeGroup(sample.Labels)
}

// sortedQuantiles collects the distinct quantile labels present in the
// selected groups, ordered by numeric value ascending.
func sortedQuantiles(byGroup map[string]map[string]float64, groups []string) []string {
	set := map[string]bool{}
	for _, g := range groups {
		for q := range byGroup[g] {
			set[q] = true
		}
	}
	qs := make([]string, 0, len(set))
	for q := range set {
		qs = append(qs, q)
	}
	sort.Slice(qs, func(i, j int) bool {
		a, errA := strconv.ParseFloat(qs[i], 64)
		b, errB := strconv.ParseFloat(qs[j], 64)
		if errA != nil || errB != nil {
			return qs[i] < qs[j]
		}
		return a < b
	})
	return qs
}

// percentLabel turns quantile="0.9" into "P90". The multiplication is
// rounded to three decimals so float noise never leaks into the label.
func percentLabel(q string) string {
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return "P" + q
	}
	p := math.Round(v*100*1000) / 1000
	return "P" + strconv.FormatFloat(p, 'f', -1, 64)
}
