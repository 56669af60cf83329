// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package state persists what the adapter believes to be true across
// invocations: whether onboarding has been completed, which apps the user
// has explicitly removed from the dashboard (and thus must never be re-added
// automatically), which apps the adapter itself added, and when the last
// successful sync happened.
//
// The removed-set is the sole deletion memory: an app the user deletes
// through the dashboard UI without the adapter ever learning about it will
// reappear on the next full scan. That's a deliberate policy, not an
// accident.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Version is the current state schema version, recorded in every persisted
// state document for future migrations.
const Version = "1.0"

// App records an app the adapter added to the dashboard, keyed in
// State.DiscoveredApps by its container identifier.
type App struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}

// State is the adapter's durable memory.
type State struct {
	Version             string          `json:"version"`
	OnboardingCompleted bool            `json:"onboarding_completed"`
	RemovedApps         map[string]bool `json:"removed_apps"`
	LastSync            *time.Time      `json:"last_sync,omitempty"`
	DiscoveredApps      map[string]App  `json:"discovered_apps"`
}

// New returns a fresh default state: onboarding pending, nothing discovered,
// nothing removed, never synced.
func New() *State {
	return &State{
		Version:        Version,
		RemovedApps:    map[string]bool{},
		DiscoveredApps: map[string]App{},
	}
}

// MarkRemoved records that the user explicitly removed the app with the
// specified container identifier from the dashboard; the adapter will never
// re-add it until the mark is cleared again.
func (s *State) MarkRemoved(id string) { s.RemovedApps[id] = true }

// ClearRemoved removes the user-removal mark for the specified container
// identifier, making it discoverable again.
func (s *State) ClearRemoved(id string) { delete(s.RemovedApps, id) }

// IsRemoved reports whether the user explicitly removed the app with the
// specified container identifier.
func (s *State) IsRemoved(id string) bool { return s.RemovedApps[id] }

// Record remembers that the adapter added the specified app for the
// specified container identifier at the given time.
func (s *State) Record(id string, app App) { s.DiscoveredApps[id] = app }

// Forget drops the record for the specified container identifier from the
// discovered map. This only erases the adapter's memory: the dashboard-side
// app stays untouched, as the user may well want to keep the tile around.
func (s *State) Forget(id string) { delete(s.DiscoveredApps, id) }

// TouchSync updates the last-successful-sync timestamp to now.
func (s *State) TouchSync() {
	now := time.Now().UTC()
	s.LastSync = &now
}

// Store loads and persists State documents at a fixed filesystem path.
type Store struct {
	path string
}

// NewStore returns a Store reading and writing the state document at the
// specified path.
func NewStore(path string) *Store { return &Store{path: path} }

// Path returns the filesystem path this Store persists to.
func (st *Store) Path() string { return st.path }

// Load reads the persisted state. A missing state file simply means a fresh
// installation and yields the default state; a state file that exists but
// cannot be parsed also falls back to the default state with a warning,
// accepting the cost of redoing first-boot detection rather than crashing
// the adapter over a corrupt file.
func (st *Store) Load() (*State, error) {
	contents, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("cannot read state file %s: %w", st.path, err)
	}
	s := New()
	if err := json.Unmarshal(contents, s); err != nil {
		log.Warnf("state file %s is corrupt, falling back to defaults, reason: %s",
			st.path, err.Error())
		return New(), nil
	}
	if s.RemovedApps == nil {
		s.RemovedApps = map[string]bool{}
	}
	if s.DiscoveredApps == nil {
		s.DiscoveredApps = map[string]App{}
	}
	return s, nil
}

// Save persists the specified state atomically: the document is first
// written to a temporary file in the state file's directory and then renamed
// over the old document, so a crash mid-write leaves the previous state
// intact and a partially written document is never observable.
func (st *Store) Save(s *State) error {
	s.Version = Version
	contents, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal state: %w", err)
	}
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create state directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create temporary state file: %w", err)
	}
	tmpname := tmp.Name()
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return fmt.Errorf("cannot write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpname)
		return fmt.Errorf("cannot write state: %w", err)
	}
	if err := os.Rename(tmpname, st.path); err != nil {
		os.Remove(tmpname)
		return fmt.Errorf("cannot replace state file %s: %w", st.path, err)
	}
	return nil
}
