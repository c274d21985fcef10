// Package session owns live playthroughs: one engine Runtime per session,
// turns serialized per session, state written behind every committed turn.
// Sessions idle out of memory but stay in the store; the next touch
// restores them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/persist"
	"github.com/plotplay/engine/internal/state"
)

var (
	// ErrNotFound means the id matches no live or stored session.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownGame rejects a game id the library does not carry.
	ErrUnknownGame = errors.New("unknown game")
)

// Session is one live playthrough. The mutex serializes turns; a client
// cannot observe interleaved turn effects.
type Session struct {
	ID     string
	GameID string

	mu   sync.Mutex
	rt   *engine.Runtime
	last atomic.Int64 // unix nanos of the last touch
}

func (s *Session) touch() { s.last.Store(time.Now().UnixNano()) }

// Config tunes the manager.
type Config struct {
	Engine      engine.Options
	IdleTimeout time.Duration // 0 disables eviction
	Seed        func() int64  // nil seeds new sessions from the wall clock
}

// Manager resolves session ids to runtimes, creating, restoring and
// evicting them as needed.
type Manager struct {
	lib   *game.Library
	store persist.Store
	ai    ai.Client
	log   *zap.Logger
	cfg   Config

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(lib *game.Library, store persist.Store, client ai.Client, log *zap.Logger, cfg Config) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Seed == nil {
		cfg.Seed = func() int64 { return time.Now().UnixNano() }
	}
	return &Manager{
		lib:      lib,
		store:    store,
		ai:       client,
		log:      log,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Start creates a session for the named game and persists its starting
// state. The returned summary and choices seed the client's first screen.
func (m *Manager) Start(ctx context.Context, gameID string) (*Session, *engine.Summary, []engine.Choice, error) {
	g := m.lib.Get(gameID)
	if g == nil {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}

	id := uuid.NewString()
	st := state.New(g, m.cfg.Seed())
	rt := engine.New(g, st, m.ai,
		m.log.With(zap.String("session", id), zap.String("game", gameID)),
		m.cfg.Engine)
	s := &Session{ID: id, GameID: gameID, rt: rt}
	s.touch()

	// Hold the session lock across publish, first save and first describe;
	// the id is routable the moment it lands in the map.
	s.mu.Lock()
	defer s.mu.Unlock()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.save(ctx, s)
	sum, choices := rt.Describe()
	m.log.Info("session started", zap.String("session", id), zap.String("game", gameID))
	return s, sum, choices, nil
}

// Get returns the live session, restoring it from the store if it was
// evicted or belongs to a previous process life.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.touch()
		return s, nil
	}
	m.mu.Unlock()

	rec, err := m.store.Load(ctx, id)
	if errors.Is(err, persist.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	g := m.lib.Get(rec.GameID)
	if g == nil {
		return nil, fmt.Errorf("%w: session %s plays %q", ErrUnknownGame, id, rec.GameID)
	}
	st := &state.GameState{}
	if err := json.Unmarshal(rec.State, st); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	s := &Session{ID: id, GameID: rec.GameID, rt: engine.New(g, st, m.ai,
		m.log.With(zap.String("session", id), zap.String("game", rec.GameID)),
		m.cfg.Engine)}
	s.touch()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[id]; ok {
		// lost the restore race; the first one in wins
		return cur, nil
	}
	m.sessions[id] = s
	m.log.Info("session restored", zap.String("session", id), zap.String("game", rec.GameID))
	return s, nil
}

// RunTurn executes one action against the session and writes the committed
// state behind. Turns on the same session run one at a time.
func (m *Manager) RunTurn(ctx context.Context, id string, action engine.Action) (*engine.TurnResult, error) {
	return m.runTurn(ctx, id, action, nil)
}

// RunTurnStream is RunTurn with progress frames forwarded to emit.
func (m *Manager) RunTurnStream(ctx context.Context, id string, action engine.Action, emit func(engine.StreamEvent)) (*engine.TurnResult, error) {
	return m.runTurn(ctx, id, action, emit)
}

func (m *Manager) runTurn(ctx context.Context, id string, action engine.Action, emit func(engine.StreamEvent)) (*engine.TurnResult, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var res *engine.TurnResult
	if emit == nil {
		res, err = s.rt.RunTurn(ctx, action)
	} else {
		res, err = s.rt.RunTurnStream(ctx, action, emit)
	}
	if err != nil {
		return nil, err
	}
	s.touch()
	m.save(ctx, s)
	return res, nil
}

// Describe re-emits the session's current summary and choices.
func (m *Manager) Describe(ctx context.Context, id string) (*engine.Summary, []engine.Choice, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, choices := s.rt.Describe()
	return sum, choices, nil
}

// Characters lists the session's cast.
func (m *Manager) Characters(ctx context.Context, id string) (engine.CharacterList, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return engine.CharacterList{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt.Characters(), nil
}

// Character builds one character card.
func (m *Manager) Character(ctx context.Context, id, charID string) (*engine.CharacterView, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rt.CharacterView(charID)
	if !ok {
		return nil, fmt.Errorf("%w: character %q", ErrNotFound, charID)
	}
	return v, nil
}

// StoryEvents returns the session's memory log.
func (m *Manager) StoryEvents(ctx context.Context, id string) ([]state.Memory, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt.StoryEvents(), nil
}

// Delete ends a session: drops it from memory and removes its stored row.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	err := m.store.Delete(ctx, id)
	if errors.Is(err, persist.ErrNotFound) {
		if !live {
			return ErrNotFound
		}
		return nil
	}
	return err
}

// Active returns the number of sessions resident in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions untouched for longer than the idle timeout from
// memory. Their rows stay; the next Get restores them. A session whose
// mutex is held is mid-turn and never evicted; Get touches before locking,
// so an in-flight request keeps its session out of range.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.IdleTimeout).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.last.Load() > cutoff {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		s.mu.Unlock()
		delete(m.sessions, id)
		evicted++
		m.log.Info("session evicted", zap.String("session", id))
	}
	return evicted
}

// save writes the session state behind the committed turn. A store failure
// is logged, not surfaced: the in-memory session is already committed and
// stays playable.
func (m *Manager) save(ctx context.Context, s *Session) {
	blob, err := json.Marshal(s.rt.State())
	if err != nil {
		m.log.Error("marshal session state", zap.String("session", s.ID), zap.Error(err))
		return
	}
	rec := persist.Record{
		SessionID: s.ID,
		GameID:    s.GameID,
		Turn:      s.rt.State().TurnCount,
		State:     blob,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.log.Error("save session", zap.String("session", s.ID), zap.Error(err))
	}
}
