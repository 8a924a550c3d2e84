package catalog

import "strings"

// Unit is the display unit inferred from a metric name.
type Unit string

const (
	UnitMemory  Unit = "memory"
	UnitSeconds Unit = "seconds"
	UnitPercent Unit = "percent"
	UnitCount   Unit = "count"
	UnitRaw     Unit = "raw"
)

// Name suffixes that mark a metric as count-like.
var countSuffixes = []string{
	"_total", "_count", "_num", "_active", "_counter", "_delta", "_points",
	"_complete", "_busy", "_calls", "_fails", "_failure", "_writes", "_reads",
	"_frees", "_mallocs", "_lookups", "_objects", "_queued", "_dropped",
	"_failed", "_err", "_timeouts", "_series",
}

var percentSuffixes = []string{"_fraction", "_ratio", "_usage", "_percent"}

// UnitFor maps a metric name to a display unit via suffix heuristics.
// Byte suffixes win over the count-like `_total`, so `_bytes_total` is memory.
func UnitFor(name string) Unit {
	switch {
	case strings.HasSuffix(name, "_bytes"), strings.HasSuffix(name, "_bytes_total"):
		return UnitMemory
	case strings.HasSuffix(name, "_seconds"), strings.HasSuffix(name, "_duration"):
		return UnitSeconds
	}
	for _, s := range percentSuffixes {
		if strings.HasSuffix(name, s) {
			return UnitPercent
		}
	}
	for _, s := range countSuffixes {
		if strings.HasSuffix(name, s) {
			return UnitCount
		}
	}
	return UnitRaw
}
