// Package dash persists the dashboard widget layout between sessions. The
// core keeps no parsed data across sessions; this JSON document is the only
// state that survives.
package dash

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StorageKey is the fixed key the layout document is stored under.
const StorageKey = "influx-metrics-visualiser.dashboard"

// Widget is one configured chart: which metric it shows and how.
type Widget struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Metric  string `json:"metric"`
	GroupBy string `json:"groupBy,omitempty"`
}

// State is the persisted document: `{ widgets: [...], layouts: {...} }`.
// Layout geometry is owned by the presentation layer and passes through
// opaque.
type State struct {
	Widgets []Widget                   `json:"widgets"`
	Layouts map[string]json.RawMessage `json:"layouts"`
}

// Store reads and writes the layout document in a directory.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, StorageKey+".json")}
}

// Load returns the persisted state, or an empty one when nothing was saved
// yet.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{Widgets: []Widget{}, Layouts: map[string]json.RawMessage{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading dashboard state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decoding dashboard state: %w", err)
	}
	return state, nil
}

// Save writes the document atomically (temp file + rename).
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dashboard state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing dashboard state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing dashboard state: %w", err)
	}
	return nil
}
