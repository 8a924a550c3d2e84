package history

import (
	"sync"

	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
)

// DefaultCapacity bounds the rolling window when no capacity is configured.
const DefaultCapacity = 60

// History is a bounded, time-ordered buffer of snapshots. Appends are
// serialized by a mutex so the polling and manual-ingest paths converge on a
// single writer; snapshots handed out are never mutated afterwards.
type History struct {
	mu       sync.Mutex
	capacity int
	snaps    []*expose.Snapshot
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Append pushes a snapshot to the tail, evicting from the head once the
// capacity is exceeded.
func (h *History) Append(timestamp int64, s *expose.Scrape) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snaps = append(h.snaps, &expose.Snapshot{Timestamp: timestamp, Scrape: s})
	if n := len(h.snaps) - h.capacity; n > 0 {
		h.snaps = append(h.snaps[:0:0], h.snaps[n:]...)
	}
}

// Current returns the most recent snapshot, or nil when empty.
func (h *History) Current() *expose.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snaps) == 0 {
		return nil
	}
	return h.snaps[len(h.snaps)-1]
}

// Previous returns the second-to-last snapshot, or nil when fewer than two
// snapshots exist.
func (h *History) Previous() *expose.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snaps) < 2 {
		return nil
	}
	return h.snaps[len(h.snaps)-2]
}

// ElapsedSeconds is the wall-clock distance between the two most recent
// snapshots, or 0 when fewer than two exist.
func (h *History) ElapsedSeconds() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snaps) < 2 {
		return 0
	}
	cur := h.snaps[len(h.snaps)-1]
	prev := h.snaps[len(h.snaps)-2]
	return float64(cur.Timestamp-prev.Timestamp) / 1000
}

// Len reports the number of buffered snapshots.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}
