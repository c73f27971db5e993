package addons

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StateFile is the name of the persisted user state file
const StateFile = "addons-state.json"

// State is the on-disk user state
type State struct {
	Games map[Game]*GameState `json:"games"`
}

// GameState holds per-game preferences. Disabled mods are keyed by
// identity string ("id" or "id@version", lowercase id).
type GameState struct {
	Favorites map[string]bool `json:"favorites,omitempty"`
	Disabled  map[string]bool `json:"disabled,omitempty"`
}

// StateKey returns the persisted key for an identity
func StateKey(id Identity) string {
	return id.Key().String()
}

// StateStore handles persistence of favorites and mod enablement
type StateStore struct {
	path  string
	state *State
	mu    sync.RWMutex
}

// NewStateStore creates a new state store
func NewStateStore(dataDir string) *StateStore {
	return &StateStore{
		path:  filepath.Join(dataDir, StateFile),
		state: &State{Games: make(map[Game]*GameState)},
	}
}

// Path returns the location of the state file
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state from disk. A missing file yields an empty state.
func (s *StateStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = &State{Games: make(map[Game]*GameState)}
			return nil
		}
		return err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Games == nil {
		state.Games = make(map[Game]*GameState)
	}

	s.state = &state
	return nil
}

// Save writes the state file. It takes the write lock because every save
// goes through the same temporary file.
func (s *StateStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *StateStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a crash never leaves a truncated file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *StateStore) game(g Game) *GameState {
	gs, ok := s.state.Games[g]
	if !ok {
		gs = &GameState{}
		s.state.Games[g] = gs
	}
	return gs
}

// IsFavorite reports whether the addon id is marked as favorite
func (s *StateStore) IsFavorite(g Game, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gs, ok := s.state.Games[g]
	return ok && gs.Favorites[strings.ToLower(id)]
}

// SetFavorite marks or unmarks a favorite and saves
func (s *StateStore) SetFavorite(g Game, id string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs := s.game(g)
	id = strings.ToLower(id)
	if favorite {
		if gs.Favorites == nil {
			gs.Favorites = make(map[string]bool)
		}
		gs.Favorites[id] = true
	} else {
		delete(gs.Favorites, id)
	}
	return s.saveLocked()
}

// DisabledMods returns a copy of the disabled identity keys for a game
func (s *StateStore) DisabledMods(g Game) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]bool)
	if gs, ok := s.state.Games[g]; ok {
		for k, v := range gs.Disabled {
			if v {
				result[k] = true
			}
		}
	}
	return result
}

// Persist records the enabled state of a mod and saves
func (s *StateStore) Persist(g Game, id Identity, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs := s.game(g)
	key := StateKey(id)
	if enabled {
		delete(gs.Disabled, key)
	} else {
		if gs.Disabled == nil {
			gs.Disabled = make(map[string]bool)
		}
		gs.Disabled[key] = true
	}
	return s.saveLocked()
}

// Forget drops every record of an identity, used after deletion
func (s *StateStore) Forget(g Game, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.state.Games[g]
	if !ok {
		return nil
	}
	delete(gs.Disabled, StateKey(id))
	return s.saveLocked()
}
