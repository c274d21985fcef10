package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/persist"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newManager(t *testing.T, store persist.Store) *Manager {
	t.Helper()
	g, err := game.Load(filepath.Join("..", "game", "testdata", "cafe"))
	require.NoError(t, err)
	return NewManager(game.NewLibrary(g), store, ai.NewMock(), zap.NewNop(), Config{
		IdleTimeout: time.Hour,
		Seed:        func() int64 { return 1337 },
	})
}

func saySkip(text string) engine.Action {
	return engine.Action{Type: engine.ActSay, Text: text, SkipAI: true}
}

func TestStartCreatesAndPersists(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()
	m := newManager(t, store)

	s, sum, choices, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.Equal(t, "cafe_date", s.GameID)
	require.Equal(t, "cafe_patio", sum.Location.ID)
	require.NotEmpty(t, choices)

	rec, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "cafe_date", rec.GameID)
	require.Equal(t, 0, rec.Turn)
}

func TestStartUnknownGame(t *testing.T) {
	m := newManager(t, persist.NewMemory())
	_, _, _, err := m.Start(context.Background(), "space_opera")
	require.ErrorIs(t, err, ErrUnknownGame)
}

func TestTurnWritesBehind(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()
	m := newManager(t, store)
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)

	res, err := m.RunTurn(ctx, s.ID, saySkip("nice morning"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Turn)

	rec, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Turn)
	require.Contains(t, string(rec.State), `"turn_count":1`)
}

func TestEvictionAndResume(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()
	m := newManager(t, store)
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)
	_, err = m.RunTurn(ctx, s.ID, saySkip("one"))
	require.NoError(t, err)

	require.Equal(t, 1, m.EvictIdle(time.Now().Add(2*time.Hour)))
	require.Equal(t, 0, m.Active())

	// The stored row restores the session on the next touch.
	res, err := m.RunTurn(ctx, s.ID, saySkip("two"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Turn)
	require.Equal(t, 1, m.Active())
}

func TestEvictionSkipsFreshSessions(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, persist.NewMemory())
	_, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)
	require.Equal(t, 0, m.EvictIdle(time.Now()))
	require.Equal(t, 1, m.Active())
}

func TestRestoreAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()
	m1 := newManager(t, store)
	s, _, _, err := m1.Start(ctx, "cafe_date")
	require.NoError(t, err)
	_, err = m1.RunTurn(ctx, s.ID, saySkip("before the restart"))
	require.NoError(t, err)

	m2 := newManager(t, store)
	sum, choices, err := m2.Describe(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "cafe_patio", sum.Location.ID)
	require.NotEmpty(t, choices)

	res, err := m2.RunTurn(ctx, s.ID, saySkip("after the restart"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Turn)
}

func TestDeleteEndsSession(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()
	m := newManager(t, store)
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, s.ID))
	_, err = m.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(ctx, s.ID)
	require.ErrorIs(t, err, persist.ErrNotFound)

	require.ErrorIs(t, m.Delete(ctx, s.ID), ErrNotFound)
}

func TestGetUnknownSession(t *testing.T) {
	m := newManager(t, persist.NewMemory())
	_, err := m.Get(context.Background(), "no-such-id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTurnsSerializePerSession(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, persist.NewMemory())
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)

	const turns = 8
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.RunTurn(ctx, s.ID, saySkip("racing"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sum, _, err := m.Describe(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, sum)
	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, turns, got.rt.State().TurnCount)
}

func TestStreamDeliversFrames(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, persist.NewMemory())
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)

	var frames []engine.StreamEvent
	res, err := m.RunTurnStream(ctx, s.ID, engine.Action{Type: engine.ActSay, Text: "hi"},
		func(ev engine.StreamEvent) { frames = append(frames, ev) })
	require.NoError(t, err)
	require.Contains(t, res.Narrative, "The moment passes.")

	require.NotEmpty(t, frames)
	require.Equal(t, engine.StreamActionSummary, frames[0].Type)
	last := frames[len(frames)-1]
	require.Equal(t, engine.StreamComplete, last.Type)
	require.NotNil(t, last.Result)
	require.Equal(t, res.Turn, last.Result.Turn)

	var chunks string
	for _, f := range frames {
		if f.Type == engine.StreamNarrativeChunk {
			chunks += f.Text
		}
	}
	require.Equal(t, "The moment passes.", chunks)
}

func TestCharacterEndpointsRoute(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, persist.NewMemory())
	s, _, _, err := m.Start(ctx, "cafe_date")
	require.NoError(t, err)

	list, err := m.Characters(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "Alex", list.Player.Name)

	card, err := m.Character(ctx, s.ID, "emma")
	require.NoError(t, err)
	require.Equal(t, "Emma", card.Name)

	_, err = m.Character(ctx, s.ID, "nobody")
	require.ErrorIs(t, err, ErrNotFound)

	mems, err := m.StoryEvents(ctx, s.ID)
	require.NoError(t, err)
	require.Empty(t, mems)
}
