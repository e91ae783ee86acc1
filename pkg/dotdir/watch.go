package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	watchFile = "watch.json"
)

// WatchState records, per transcript path, how much has been ingested.
type WatchState struct {
	Files map[string]WatchCursor `json:"files"`
}

// WatchCursor is the resume point for one transcript.
type WatchCursor struct {
	// Offset is the byte offset just past the last ingested line.
	Offset int64 `json:"offset"`

	// ConversationID is the conversation the transcript is ingested into.
	ConversationID string `json:"conversation_id"`

	// Lines is the number of turns ingested so far.
	Lines int `json:"lines"`
}

// Cursor returns the cursor for path, or a zero cursor.
func (s *WatchState) Cursor(path string) WatchCursor {
	if s == nil || s.Files == nil {
		return WatchCursor{}
	}
	return s.Files[path]
}

// SetCursor records the cursor for path.
func (s *WatchState) SetCursor(path string, c WatchCursor) {
	if s.Files == nil {
		s.Files = make(map[string]WatchCursor)
	}
	s.Files[path] = c
}

// LoadWatchState loads the watch state from a target .gleaner/watch.json.
// Returns an empty state if none was saved yet.
func (m *Manager) LoadWatchState(overrideDir string) (*WatchState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, watchFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &WatchState{Files: make(map[string]WatchCursor)}, nil
		}
		return nil, fmt.Errorf("reading watch state: %w", err)
	}

	state := &WatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing watch state: %w", err)
	}
	if state.Files == nil {
		state.Files = make(map[string]WatchCursor)
	}

	return state, nil
}

// SaveWatchState persists the watch state to a target .gleaner/watch.json.
func (m *Manager) SaveWatchState(state *WatchState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil watch state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watch state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, watchFile), data, 0o600); err != nil {
		return fmt.Errorf("writing watch state: %w", err)
	}

	return nil
}

// ClearWatchState removes the watch state file. Returns nil if the file
// doesn't exist.
func (m *Manager) ClearWatchState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, watchFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing watch state: %w", err)
	}

	return nil
}
