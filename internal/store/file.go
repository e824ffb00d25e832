package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/utakatalp/krach-ranker/internal/league"
)

// FileStore keeps the raw schedules of one division in a JSON file so a run
// can be repeated without collecting the games again.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Exists reports whether the file is present.
func (f *FileStore) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Save writes the schedules atomically.
func (f *FileStore) Save(schedules [][]league.GameRecord) error {
	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedules: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".team_results-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("saving %s: %w", f.Path, err)
	}
	return nil
}

// Load reads the schedules back. A missing file yields ErrNoData.
func (f *FileStore) Load() ([][]league.GameRecord, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}

	var schedules [][]league.GameRecord
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.Path, err)
	}
	return schedules, nil
}
