package expose

import (
	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"
)

// Sample is one parsed series point: a label set and its value.
type Sample struct {
	Labels labels.Labels
	Value  float64
}

// Metadata carries the # HELP / # TYPE directives for a base metric name.
type Metadata struct {
	Help string
	Type model.MetricType
}

// Scrape is the result of parsing one exposition payload: series keyed by
// metric name plus whatever metadata the payload declared.
type Scrape struct {
	Series map[string][]Sample
	Meta   map[string]Metadata
}

// NewScrape returns an empty scrape with initialized maps.
func NewScrape() *Scrape {
	return &Scrape{
		Series: make(map[string][]Sample),
		Meta:   make(map[string]Metadata),
	}
}

// Samples returns the series for name, or nil when the metric is absent.
func (s *Scrape) Samples(name string) []Sample {
	if s == nil {
		return nil
	}
	return s.Series[name]
}

// Has reports whether at least one sample was parsed for name.
func (s *Scrape) Has(name string) bool {
	return s != nil && len(s.Series[name]) > 0
}

// Metadata resolves metadata for name, falling back to the untyped default.
func (s *Scrape) Metadata(name string) Metadata {
	if s != nil {
		if md, ok := s.Meta[name]; ok {
			return md
		}
	}
	return Metadata{Type: model.MetricTypeUnknown}
}

// Snapshot is a scrape pinned to the wall-clock time it was taken at,
// in milliseconds since the epoch.
type Snapshot struct {
	Timestamp int64
	*Scrape
}
