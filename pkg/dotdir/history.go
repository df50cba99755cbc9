package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	historyFile = "history.json"

	// MaxHistory bounds the number of entries kept in history.json.
	MaxHistory = 200
)

// SyncEntry records one CLI sync.
type SyncEntry struct {
	MaterialID string    `json:"material_id"`
	Source     string    `json:"source"`
	Collection string    `json:"collection"`
	Chunks     int       `json:"chunks"`
	Batches    int       `json:"batches"`
	IDs        []string  `json:"ids,omitempty"`
	SyncedAt   time.Time `json:"synced_at"`
}

// LoadHistory reads .tomes/history.json, oldest entry first. A missing file
// is an empty history.
func (m *Manager) LoadHistory(overrideDir string) ([]SyncEntry, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []SyncEntry{}, nil
		}
		return nil, fmt.Errorf("reading sync history: %w", err)
	}

	entries := []SyncEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing sync history: %w", err)
	}
	return entries, nil
}

// AppendHistory adds entry and drops the oldest entries past MaxHistory.
func (m *Manager) AppendHistory(entry SyncEntry, overrideDir string) error {
	entries, err := m.LoadHistory(overrideDir)
	if err != nil {
		return err
	}

	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now().UTC()
	}
	entries = append(entries, entry)
	if len(entries) > MaxHistory {
		entries = entries[len(entries)-MaxHistory:]
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sync history: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, historyFile), data, 0o600); err != nil {
		return fmt.Errorf("writing sync history: %w", err)
	}
	return nil
}

// ClearHistory removes history.json. It is not an error if it is missing.
func (m *Manager) ClearHistory(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, historyFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing sync history: %w", err)
	}
	return nil
}
