package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Library holds every game definition found under the content directory,
// keyed by meta.id. It is built once at boot and read-only afterwards.
type Library struct {
	games map[string]*Game
}

// LoadLibrary scans dir for subdirectories containing a game.yaml and loads
// each one. A directory that fails to load aborts the boot; a content typo
// should be caught before the first session, not during it.
func LoadLibrary(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir %s: %w", dir, err)
	}
	lib := &Library{games: make(map[string]*Game)}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(sub, "game.yaml")); err != nil {
			continue
		}
		g, err := Load(sub)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name(), err)
		}
		if prev, dup := lib.games[g.Meta.ID]; dup {
			return nil, fmt.Errorf("game id %q declared twice (%q and %q)", g.Meta.ID, prev.Meta.Title, g.Meta.Title)
		}
		lib.games[g.Meta.ID] = g
	}
	if len(lib.games) == 0 {
		return nil, fmt.Errorf("content dir %s holds no game packages", dir)
	}
	return lib, nil
}

// NewLibrary builds a library from already-loaded games, for tests and
// embedded fixtures.
func NewLibrary(games ...*Game) *Library {
	lib := &Library{games: make(map[string]*Game, len(games))}
	for _, g := range games {
		lib.games[g.Meta.ID] = g
	}
	return lib
}

// Get returns the game with the given id, or nil.
func (lib *Library) Get(id string) *Game {
	return lib.games[id]
}

// List returns every loaded game sorted by id.
func (lib *Library) List() []*Game {
	out := make([]*Game, 0, len(lib.games))
	for _, g := range lib.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta.ID < out[j].Meta.ID })
	return out
}

// Count returns the number of loaded games.
func (lib *Library) Count() int { return len(lib.games) }
