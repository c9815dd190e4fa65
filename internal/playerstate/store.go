package playerstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"emindy/internal/logging"
)

// State is the saved progress for one practice.
type State struct {
	CurrentIndex int  `json:"currentIndex"`
	Remaining    int  `json:"remaining"`
	IsPlaying    bool `json:"isPlaying"`
}

// Entry pairs a State with its entity ID for listings.
type Entry struct {
	EntityID string
	State    State
}

// Store provides locked access to the shared state file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	lock   *flock.Flock
}

// NewStore creates a store backed by path. An empty path yields a store whose
// reads find nothing and whose writes are no-ops.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "playerstate"),
	}
	if s.path != "" {
		s.lock = flock.New(s.path + ".lock")
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved state for entityID.
func (s *Store) Load(entityID string) (State, bool) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" || s.path == "" {
		return State{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.read()
	state, ok := entries[entityID]
	return state, ok
}

// Save writes state for entityID. IsPlaying is always stored as false.
func (s *Store) Save(entityID string, state State) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errors.New("entity ID cannot be empty")
	}
	if state.CurrentIndex < 0 {
		state.CurrentIndex = 0
	}
	if state.Remaining < 0 {
		state.Remaining = 0
	}
	state.IsPlaying = false

	return s.update(func(entries map[string]State) bool {
		entries[entityID] = state
		return true
	})
}

// Delete removes the saved state for entityID. Missing entries are not an error.
func (s *Store) Delete(entityID string) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errors.New("entity ID cannot be empty")
	}
	return s.update(func(entries map[string]State) bool {
		if _, ok := entries[entityID]; !ok {
			return false
		}
		delete(entries, entityID)
		return true
	})
}

// List returns all saved states sorted by entity ID.
func (s *Store) List() []Entry {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.read()
	out := make([]Entry, 0, len(entries))
	for id, state := range entries {
		out = append(out, Entry{EntityID: id, State: state})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// Clear removes every saved state.
func (s *Store) Clear() error {
	return s.update(func(entries map[string]State) bool {
		if len(entries) == 0 {
			return false
		}
		for id := range entries {
			delete(entries, id)
		}
		return true
	})
}

func (s *Store) update(apply func(map[string]State) bool) error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release state file lock", logging.Error(err))
		}
	}()

	entries := s.read()
	if !apply(entries) {
		return nil
	}
	if err := s.write(entries); err != nil {
		return fmt.Errorf("persist player state: %w", err)
	}
	return nil
}

// read loads the file, treating missing or corrupt content as empty.
func (s *Store) read() map[string]State {
	entries := make(map[string]State)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "failed to read player state", "player_state_read_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the state file"),
				logging.String(logging.FieldImpact, "practices start from the first step"))
		}
		return entries
	}
	if len(data) == 0 {
		return entries
	}

	var decoded map[string]State
	if err := json.Unmarshal(data, &decoded); err != nil {
		logging.WarnWithContext(s.logger, "ignoring corrupt player state", "player_state_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file is rewritten on the next save"),
			logging.String(logging.FieldImpact, "practices start from the first step"))
		return entries
	}
	for id, state := range decoded {
		if strings.TrimSpace(id) == "" || state.CurrentIndex < 0 || state.Remaining < 0 {
			continue
		}
		entries[id] = state
	}
	return entries
}

// write stores the map atomically via a temp file.
func (s *Store) write(entries map[string]State) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
