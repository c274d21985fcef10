package engine

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

const testSeed = 1337

func loadGame(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.Load(filepath.Join("..", "game", "testdata", "cafe"))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return g
}

// newRuntime builds a fresh session over the cafe fixture. The mock client
// keeps AI turns deterministic; pass nil for purely mechanical sessions.
func newRuntime(t *testing.T, client ai.Client) *Runtime {
	t.Helper()
	return newRuntimeOpts(t, client, Options{})
}

func newRuntimeOpts(t *testing.T, client ai.Client, opts Options) *Runtime {
	t.Helper()
	g := loadGame(t)
	return New(g, state.New(g, testSeed), client, zap.NewNop(), opts)
}

func mustTurn(t *testing.T, rt *Runtime, a Action) *TurnResult {
	t.Helper()
	res, err := rt.RunTurn(context.Background(), a)
	if err != nil {
		t.Fatalf("turn %q: %v", a.Type, err)
	}
	return res
}

// testCtx builds a minimal turn context for driving services directly,
// outside the full pipeline.
func testCtx(rt *Runtime) *turnCtx {
	tc := &turnCtx{
		turn:        rt.st.TurnCount + 1,
		rng:         rand.New(rand.NewSource(1)),
		snapshot:    rt.st.Clone(),
		gates:       map[string]bool{},
		meterDeltas: map[string]float64{},
		hooksRun:    map[string]bool{},
		warned:      map[string]bool{},
	}
	rt.resolvePresence(tc)
	rt.evaluateGates(tc)
	return tc
}

func saySkip(text string) Action {
	return Action{Type: ActSay, Text: text, SkipAI: true}
}

func intp(n int) *int { return &n }

func floatp(f float64) *float64 { return &f }

func wantLine(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("missing %q in:\n%s", want, got)
	}
}

func checkerCalls(m *ai.Mock) []ai.Request {
	var out []ai.Request
	for _, r := range m.Calls() {
		if r.Kind == ai.KindChecker {
			out = append(out, r)
		}
	}
	return out
}
