// Package statestore persists StrategyState snapshots as msgpack so an
// agent can resume mid-epoch after a restart.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the serialized form of one agent's mutable state.
type Snapshot struct {
	SavedAt time.Time                      `msgpack:"saved_at"`
	State   *domain.StrategyState          `msgpack:"state"`
	History map[string][]domain.PricePoint `msgpack:"history"`
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
}

// New creates a store writing to the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the snapshot atomically: temp file then rename, so a crash
// mid-write never corrupts the previous snapshot.
func (s *Store) Save(state *domain.StrategyState, history map[string][]domain.PricePoint) error {
	if state == nil {
		return fmt.Errorf("cannot snapshot nil state")
	}

	snapshot := Snapshot{
		SavedAt: time.Now(),
		State:   state,
		History: history,
	}

	data, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot. Returns nil, nil when no snapshot exists yet.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
