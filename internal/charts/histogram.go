package charts

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/prometheus/prometheus/model/labels"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// DefaultRateEpsilon suppresses rate rows below this exclusive rate.
const DefaultRateEpsilon = 0.001

// BucketRow is one per-range histogram row with exclusive values per group.
type BucketRow struct {
	Range  string             `json:"range"`
	Le     float64            `json:"le"`
	Values map[string]float64 `json:"values"`
}

// MarshalJSON writes the bucket boundary as a string: the +Inf row would
// otherwise be rejected by the JSON encoder.
func (r BucketRow) MarshalJSON() ([]byte, error) {
	le := "+Inf"
	if !math.IsInf(r.Le, 1) {
		le = formatBound(r.Le)
	}
	return json.Marshal(struct {
		Range  string             `json:"range"`
		Le     string             `json:"le"`
		Values map[string]float64 `json:"values"`
	}{r.Range, le, r.Values})
}

// BucketTable is the exclusive histogram breakdown of one snapshot.
type BucketTable struct {
	Rows   []BucketRow `json:"rows"`
	Groups []string    `json:"groups"`
}

// RateRow is one per-range rate-of-change row.
type RateRow struct {
	Range string  `json:"range"`
	Le    float64 `json:"le"`
	Rate  float64 `json:"rate"`
}

// ─── EXCLUSIVE RECONSTRUCTION ─────────────────────────────────────────────────

// HistogramBuckets reads the <base>_bucket series of one snapshot and turns
// the cumulative counts into exclusive per-range values, optionally grouped
// by a label (or by the synthesized method+path pair). Rows where every
// group is zero are dropped.
func HistogramBuckets(s *expose.Snapshot, base, groupKey string) BucketTable {
	cum := map[string]map[float64]float64{}
	leSet := map[float64]bool{}

	for _, sample := range snapshotSamples(s, base+"_bucket") {
		le, ok := parseLe(sample.Labels.Get("le"))
		if !ok {
			continue
		}
		g := groupOf(sample.Labels, groupKey)
		if cum[g] == nil {
			cum[g] = map[float64]float64{}
		}
		cum[g][le] += sample.Value
		leSet[le] = true
	}
	if len(leSet) == 0 {
		return BucketTable{}
	}

	les := sortedLes(leSet)
	groups := make([]string, 0, len(cum))
	for g := range cum {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	prev := map[string]float64{}
	rows := make([]BucketRow, 0, len(les))
	for i, le := range les {
		values := make(map[string]float64, len(groups))
		allZero := true
		for _, g := range groups {
			c := cum[g][le]
			excl := c - prev[g]
			if excl < 0 {
				// Non-monotonic or racing input.
				excl = 0
			}
			prev[g] = c
			values[g] = excl
			if excl != 0 {
				allZero = false
			}
		}
		if allZero {
			continue
		}
		rows = append(rows, BucketRow{
			Range:  rangeLabel(i, les),
			Le:     le,
			Values: values,
		})
	}

	return BucketTable{Rows: rows, Groups: groups}
}

// ─── RATE OF CHANGE ───────────────────────────────────────────────────────────

// RateBuckets diffs the cumulative bucket counts of two snapshots into
// per-range rates. The filter restricts which samples contribute; nil means
// all. The result is empty when either snapshot is absent or no time has
// elapsed; callers are expected to fall back to HistogramBuckets of the
// current snapshot in that case.
func RateBuckets(curr, prev *expose.Snapshot, base string, filter func(labels.Labels) bool, elapsed, epsilon float64) []RateRow {
	if curr == nil || prev == nil || elapsed <= 0 {
		return nil
	}
	// Zero is a deliberate "no suppression" setting; only a negative value
	// means unset.
	if epsilon < 0 {
		epsilon = DefaultRateEpsilon
	}

	cm := cumulativeByLe(curr, base, filter)
	pm := cumulativeByLe(prev, base, filter)
	if len(cm) == 0 && len(pm) == 0 {
		return nil
	}

	leSet := map[float64]bool{}
	for le := range cm {
		leSet[le] = true
	}
	for le := range pm {
		leSet[le] = true
	}
	les := sortedLes(leSet)

	// The rate series is itself cumulative by le and must be exclusivized
	// exactly like the raw counts.
	var prevRate float64
	rows := make([]RateRow, 0, len(les))
	for i, le := range les {
		rate := (cm[le] - pm[le]) / elapsed
		if rate < 0 {
			rate = 0
		}
		excl := rate - prevRate
		prevRate = rate
		if excl < 0 {
			excl = 0
		}
		if math.IsInf(le, 1) || excl < epsilon {
			continue
		}
		rows = append(rows, RateRow{
			Range: rangeLabel(i, les),
			Le:    le,
			Rate:  excl,
		})
	}
	return rows
}

func cumulativeByLe(s *expose.Snapshot, base string, filter func(labels.Labels) bool) map[float64]float64 {
	out := map[float64]float64{}
	for _, sample := range snapshotSamples(s, base+"_bucket") {
		if filter != nil && !filter(sample.Labels) {
			continue
		}
		le, ok := parseLe(sample.Labels.Get("le"))
		if !ok {
			continue
		}
		out[le] += sample.Value
	}
	return out
}

// ─── SHARED HELPERS ───────────────────────────────────────────────────────────

func snapshotSamples(s *expose.Snapshot, name string) []expose.Sample {
	if s == nil {
		return nil
	}
	return s.Samples(name)
}

// parseLe accepts a finite float or the literal "+Inf".
func parseLe(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if s == "+Inf" {
		return math.Inf(1), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// sortedLes orders boundaries ascending; +Inf sorts last by comparison.
func sortedLes(set map[float64]bool) []float64 {
	les := make([]float64, 0, len(set))
	for le := range set {
		les = append(les, le)
	}
	sort.Float64s(les)
	return les
}

// rangeLabel renders a human range for the bucket at index i:
// "< v0" for the first bucket, "a-b" for intermediate ones, and
// "> lastFinite" for the +Inf bucket.
func rangeLabel(i int, les []float64) string {
	le := les[i]
	if math.IsInf(le, 1) {
		if i == 0 {
			return GroupAll
		}
		return "> " + formatBound(les[i-1])
	}
	if i == 0 {
		return "< " + formatBound(le)
	}
	return formatBound(les[i-1]) + "-" + formatBound(le)
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
