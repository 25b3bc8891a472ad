// Package roster holds the configuration record: team display names, each
// team's players, and the remembered save and background paths.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"golang.org/x/text/cases"
)

var ErrPlayerNotFound = errors.New("no player found")

// Record mirrors the JSON configuration file. Teams are indexed by team ID - 1.
type Record struct {
	Teams      []string            `json:"teams"`
	Players    map[string][]string `json:"players"`
	SaveRoute  *string             `json:"save_route"`
	ImageRoute *string             `json:"image_route"`
}

type Team struct {
	ID      int
	Name    string
	Players []string
}

type Player struct {
	Name   string
	Team   string
	TeamID int
}

// Store is a Record backed by a file. It is safe for concurrent use.
type Store struct {
	path string
	mu   sync.RWMutex
	rec  Record
}

func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	return &Store{path: path, rec: rec}, nil
}

// New returns a store for rec that persists to path.
func New(path string, rec Record) *Store {
	return &Store{path: path, rec: rec}
}

func (s *Store) Path() string { return s.path }

func (s *Store) TeamName(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > len(s.rec.Teams) {
		return "", false
	}
	return s.rec.Teams[id-1], true
}

func (s *Store) TeamID(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.Index(s.rec.Teams, name)
	return i + 1, i >= 0
}

func (s *Store) Teams() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]Team, len(s.rec.Teams))
	for i, name := range s.rec.Teams {
		teams[i] = Team{ID: i + 1, Name: name, Players: slices.Clone(s.rec.Players[name])}
	}
	return teams
}

// Players lists every player in team ID order, then roster order. Players
// filed under a team missing from the team list are skipped.
func (s *Store) Players() []Player {
	var out []Player
	for _, t := range s.Teams() {
		for _, p := range t.Players {
			out = append(out, Player{Name: p, Team: t.Name, TeamID: t.ID})
		}
	}
	return out
}

// FindPlayer returns the first player whose name contains query, ignoring case.
func (s *Store) FindPlayer(query string) (Player, error) {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return Player{}, ErrPlayerNotFound
	}
	for _, p := range s.Players() {
		if strings.Contains(fold.String(p.Name), q) {
			return p, nil
		}
	}
	return Player{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, query)
}

// PlayerTeam resolves a player's exact name to its team ID.
func (s *Store) PlayerTeam(name string) (int, error) {
	for _, p := range s.Players() {
		if p.Name == name {
			return p.TeamID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
}

func (s *Store) SaveRoute() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deref(s.rec.SaveRoute)
}

func (s *Store) ImageRoute() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deref(s.rec.ImageRoute)
}

// SetSaveRoute records dir as the save route and writes the record back.
func (s *Store) SetSaveRoute(dir string) error {
	return s.update(func(r *Record) { r.SaveRoute = ref(dir) })
}

// SetImageRoute records path as the background image and writes the record
// back. An empty path clears it.
func (s *Store) SetImageRoute(path string) error {
	return s.update(func(r *Record) { r.ImageRoute = ref(path) })
}

func (s *Store) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.rec
	rec.Teams = slices.Clone(s.rec.Teams)
	rec.Players = make(map[string][]string, len(s.rec.Players))
	for k, v := range s.rec.Players {
		rec.Players[k] = slices.Clone(v)
	}
	return rec
}

func (s *Store) update(fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rec
	fn(&next)
	data, err := json.MarshalIndent(next, "", "    ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	s.rec = next
	return nil
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
