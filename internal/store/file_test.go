package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utakatalp/krach-ranker/internal/league"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "team_results.json"))
	assert.False(t, fs.Exists())

	schedules := [][]league.GameRecord{
		{{Team: "HAWKS", Opponent: "OWLS", Result: "W 3-2"}, {Team: "HAWKS", Opponent: "CRANES", Result: "T 1-1"}},
		{},
		{{Team: "OWLS", Opponent: "HAWKS", Result: "L 2-3"}},
	}
	require.NoError(t, fs.Save(schedules))
	assert.True(t, fs.Exists())

	loaded, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, schedules, loaded)
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err := fs.Load()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team_results.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}
