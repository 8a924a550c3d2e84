package dash

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	state, err := s.Load()

	require.NoError(t, err)
	assert.Empty(t, state.Widgets)
	assert.Empty(t, state.Layouts)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	in := State{
		Widgets: []Widget{
			{ID: "w1", Kind: "histogram", Metric: "http_request_duration_seconds", GroupBy: "method"},
			{ID: "w2", Kind: "counter", Metric: "http_requests_total"},
		},
		Layouts: map[string]json.RawMessage{
			"lg": json.RawMessage(`[{"i":"w1","x":0,"y":0,"w":6,"h":4}]`),
		},
	}
	require.NoError(t, s.Save(in))

	got, err := s.Load()

	require.NoError(t, err)
	assert.Equal(t, in.Widgets, got.Widgets)
	assert.JSONEq(t, string(in.Layouts["lg"]), string(got.Layouts["lg"]))
}

func TestStore_UsesStorageKeyFilename(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.Save(State{}))

	_, err := os.Stat(filepath.Join(dir, StorageKey+".json"))
	assert.NoError(t, err)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StorageKey+".json"), []byte("{nope"), 0o644))

	_, err := NewStore(dir).Load()
	assert.Error(t, err)
}
