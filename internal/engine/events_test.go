package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func hasChoice(choices []Choice, id string) bool {
	for _, c := range choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

func TestEventCooldownSuppressesRefire(t *testing.T) {
	rt := newRuntime(t, nil)

	res := mustTurn(t, rt, saySkip("morning"))
	if !containsString(res.EventsFired, "cafe_morning_rush") {
		t.Fatalf("events = %v, want cafe_morning_rush on the first patio turn", res.EventsFired)
	}

	res = mustTurn(t, rt, saySkip("still morning"))
	if containsString(res.EventsFired, "cafe_morning_rush") {
		t.Errorf("events = %v, cooldown should suppress the refire", res.EventsFired)
	}
	// 240 set on fire, two 5-minute turns ticked off.
	if got := rt.State().EventCooldowns["cafe_morning_rush"]; got != 230 {
		t.Errorf("cooldown = %d, want 230", got)
	}
}

func TestOncePerGameEventAndChoiceWindow(t *testing.T) {
	rt := newRuntime(t, nil)
	player := rt.State().Char("player")

	// Triggers read the turn-entry snapshot: the rush still fires while we
	// walk inside, and its flag arms the barista for the next turn.
	mustTurn(t, rt, Action{Type: ActMove, Direction: "n", SkipAI: true})

	res := mustTurn(t, rt, saySkip("quiet in here now"))
	if !containsString(res.EventsFired, "barista_special") {
		t.Fatalf("events = %v, want barista_special", res.EventsFired)
	}
	if got := player.ItemCount("coffee"); got != 1 {
		t.Errorf("coffee = %d, want 1 on the house", got)
	}
	if !hasChoice(res.Choices, "thank_barista") {
		t.Fatalf("choices = %+v, want thank_barista offered", res.Choices)
	}
	if !rt.State().EventsOnce["barista_special"] {
		t.Error("once_per_game should be marked spent")
	}

	// The injected choice stays selectable for exactly one turn.
	before := player.Meters["energy"]
	mustTurn(t, rt, Action{Type: ActChoice, ChoiceID: "thank_barista", SkipAI: true})
	if got := player.Meters["energy"]; got != before+3 {
		t.Errorf("energy = %v, want %v", got, before+3)
	}

	_, err := rt.RunTurn(context.Background(), Action{Type: ActChoice, ChoiceID: "thank_barista", SkipAI: true})
	if !errors.Is(err, ErrUnknownChoice) {
		t.Errorf("err = %v, want ErrUnknownChoice once the window closes", err)
	}
}

func TestRandomEventsAreSeedDeterministic(t *testing.T) {
	run := func() [][]string {
		rt := newRuntime(t, nil)
		var fired [][]string
		for i := 0; i < 6; i++ {
			res := mustTurn(t, rt, saySkip("watch the river"))
			fired = append(fired, res.EventsFired)
		}
		return fired
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("event sequences diverged between identical sessions:\n%s", diff)
	}
}
