package engine

import (
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/game"
)

// runEvents fires qualifying events. Triggers and location scope evaluate
// against the turn-entry snapshot so this turn's own effects cannot enable
// or suppress them; cooldowns and once markers read live state, which
// earlier batch members have already updated. Deterministic events all
// fire, in declaration order. Random qualifiers each roll their weight as
// a percent chance, and if several pass the roll one is sampled by weight
// so a crowded turn does not cascade.
func (rt *Runtime) runEvents(tc *turnCtx) {
	snap := rt.snapEnv(tc)
	var randomPool []*game.Event

	for _, e := range rt.g.Events {
		if !rt.eventReady(e) {
			continue
		}
		if e.Location != "" && tc.snapshot.Position.Location != e.Location {
			continue
		}
		if !rt.evalIn(snap, e.When) {
			continue
		}
		if !e.Random {
			rt.fireEvent(tc, e)
			continue
		}
		p := e.Weight / 100
		if p > 1 {
			p = 1
		}
		if tc.rng.Float64() < p {
			randomPool = append(randomPool, e)
		}
	}

	switch len(randomPool) {
	case 0:
	case 1:
		rt.fireEvent(tc, randomPool[0])
	default:
		rt.fireEvent(tc, rt.sampleByWeight(tc, randomPool))
	}
}

// eventReady checks the live cooldown and once markers.
func (rt *Runtime) eventReady(e *game.Event) bool {
	if e.OncePerGame && rt.st.EventsOnce[e.ID] {
		return false
	}
	return rt.st.EventCooldowns[e.ID] <= 0
}

func (rt *Runtime) sampleByWeight(tc *turnCtx, pool []*game.Event) *game.Event {
	total := 0.0
	for _, e := range pool {
		total += e.Weight
	}
	r := tc.rng.Float64() * total
	for _, e := range pool {
		if r < e.Weight {
			return e
		}
		r -= e.Weight
	}
	return pool[len(pool)-1]
}

// fireEvent commits one event: markers, effects, beats, choice injection
// and any forced transition. A forced transition suppresses the AI phases
// of this turn; the rest of the pipeline still runs.
func (rt *Runtime) fireEvent(tc *turnCtx, e *game.Event) {
	tc.eventsFired = append(tc.eventsFired, e.ID)
	if e.Cooldown > 0 {
		if rt.st.EventCooldowns == nil {
			rt.st.EventCooldowns = make(map[string]int)
		}
		rt.st.EventCooldowns[e.ID] = e.Cooldown
	}
	if e.OncePerGame {
		if rt.st.EventsOnce == nil {
			rt.st.EventsOnce = make(map[string]bool)
		}
		rt.st.EventsOnce[e.ID] = true
	}

	rt.applyEffects(tc, e.Effects)
	tc.beats = append(tc.beats, e.Beats...)
	if len(e.Choices) > 0 {
		tc.eventChoices = append(tc.eventChoices, e.Choices...)
		tc.choiceEvents = append(tc.choiceEvents, e.ID)
	}
	if e.Goto != "" {
		tc.pendingGoto = e.Goto
		tc.forced = true
	}

	rt.log.Debug("event fired", zap.String("event", e.ID), zap.Int("turn", tc.turn))
}
