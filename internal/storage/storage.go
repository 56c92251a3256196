// Package storage persists the per-user strategy state between restarts.
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

const currentVersion = "1.1"

// stateFile is the on-disk shape: a schema version plus the keyed states.
type stateFile struct {
	Version string                         `json:"version"`
	States  map[int64]models.StrategyState `json:"states"`
}

// Store reads and writes one JSON state file.
type Store struct {
	path string
}

// New creates a Store for the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the state map, creating a fresh template file when none exists.
func (s *Store) Load() (map[int64]models.StrategyState, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		empty := map[int64]models.StrategyState{}
		if err := s.Save(empty); err != nil {
			return nil, err
		}
		return empty, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var f stateFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	if migrate(&f) {
		if err := s.Save(f.States); err != nil {
			return nil, err
		}
	}

	if f.States == nil {
		f.States = map[int64]models.StrategyState{}
	}
	return f.States, nil
}

// migrate upgrades older on-disk schemas in place. Returns true when the file
// changed and needs a rewrite.
func migrate(f *stateFile) bool {
	updated := false

	// 1.0 -> 1.1: early files stored a bare states map with no version field.
	if f.Version < "1.1" {
		if f.States == nil {
			f.States = map[int64]models.StrategyState{}
		}
		f.Version = "1.1"
		updated = true
	}

	return updated
}

// Save writes the state map atomically: temp file in the same directory,
// fsync, then rename over the destination.
func (s *Store) Save(states map[int64]models.StrategyState) error {
	b, err := json.MarshalIndent(stateFile{Version: currentVersion, States: states}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
