package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/plotplay/engine/internal/game"
)

func TestPurchaseSpendsMoneyAndStock(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "cafe_interior"

	mustTurn(t, rt, Action{Type: ActPurchase, ItemID: "coffee", Count: 2, SkipAI: true})

	p := st.Player()
	if got := p.Meters["money"]; got != 2 {
		t.Errorf("money = %v, want 2", got)
	}
	if got := p.ItemCount("coffee"); got != 2 {
		t.Errorf("coffee = %d, want 2", got)
	}
	if got := st.LocationStock("cafe_interior")["coffee"]; got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	if got := st.Time.HHMM(); got != "08:05" {
		t.Errorf("time = %s, want 08:05", got)
	}

	// Two dollars left; the same purchase now refuses and costs nothing.
	res := mustTurn(t, rt, Action{Type: ActPurchase, ItemID: "coffee", SkipAI: true})
	wantLine(t, res.Narrative, "You cannot afford the Cortado.")
	if p.Meters["money"] != 2 || p.ItemCount("coffee") != 2 {
		t.Errorf("refused purchase changed state: money=%v coffee=%d",
			p.Meters["money"], p.ItemCount("coffee"))
	}
	if got := st.Time.HHMM(); got != "08:05" {
		t.Errorf("refused purchase advanced time to %s", got)
	}
}

func TestPurchaseNeedsLocalStock(t *testing.T) {
	rt := newRuntime(t, nil)
	rt.State().Position.Location = "park"

	res := mustTurn(t, rt, Action{Type: ActPurchase, ItemID: "coffee", SkipAI: true})

	wantLine(t, res.Narrative, "There is no Cortado for sale here.")
	if got := rt.State().Player().Meters["money"]; got != 10 {
		t.Errorf("money = %v, want 10", got)
	}
}

func TestUseItemRunsHookAndConsumes(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "park"
	st.Player().Inventory["coffee"] = 1

	mustTurn(t, rt, Action{Type: ActUse, ItemID: "coffee", SkipAI: true})

	if got := st.Player().ItemCount("coffee"); got != 0 {
		t.Errorf("coffee = %d after use", got)
	}
	if got := st.Player().Meters["energy"]; got != 85 {
		t.Errorf("energy = %v, want 85", got)
	}

	res := mustTurn(t, rt, Action{Type: ActUse, ItemID: "coffee", SkipAI: true})
	wantLine(t, res.Narrative, "You do not have the Cortado.")
}

func TestGiveChecksPresenceThenTransfers(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Player().Inventory["flowers"] = 1

	// Emma is inside in the morning, not on the patio.
	res := mustTurn(t, rt, Action{Type: ActGive, ItemID: "flowers", Target: "emma", SkipAI: true})
	wantLine(t, res.Narrative, "Emma is not here.")
	if got := st.Player().ItemCount("flowers"); got != 1 {
		t.Errorf("refused give still transferred, flowers = %d", got)
	}

	st.Position.Location = "cafe_interior"
	mustTurn(t, rt, Action{Type: ActGive, ItemID: "flowers", Target: "emma", SkipAI: true})
	if st.Player().ItemCount("flowers") != 0 || st.Char("emma").ItemCount("flowers") != 1 {
		t.Error("give did not transfer the flowers")
	}
	// on_give hook moved trust.
	if got := st.Meter("emma", "trust"); got != 40 {
		t.Errorf("trust = %v, want 40", got)
	}
}

func TestGiveEffectEnforcesPresenceAndCanGive(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Player().Inventory["flowers"] = 1
	st.Player().Inventory["phone"] = 1

	// Emma is inside in the morning; an authored give cannot reach her.
	tc := testCtx(rt)
	rt.applyEffect(tc, &game.Effect{Type: game.EffInventoryGive, From: "player", To: "emma", Item: "flowers"})
	wantLine(t, refusals(tc), "Emma is not here.")
	if st.Player().ItemCount("flowers") != 1 || st.Char("emma").ItemCount("flowers") != 0 {
		t.Error("effect give transferred past an absent recipient")
	}

	st.Position.Location = "cafe_interior"
	tc = testCtx(rt)
	rt.applyEffect(tc, &game.Effect{Type: game.EffInventoryGive, From: "player", To: "emma", Item: "phone"})
	wantLine(t, refusals(tc), "You cannot give the Phone away.")
	if st.Char("emma").ItemCount("phone") != 0 {
		t.Error("effect give handed over an ungiveable item")
	}
}

func TestChoiceReChecksConditionsOnDispatch(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "cafe_interior"

	mustTurn(t, rt, Action{Type: ActChoice, ChoiceID: "order_coffee", SkipAI: true})
	if got := st.Player().ItemCount("coffee"); got != 1 {
		t.Errorf("coffee = %d, want 1", got)
	}
	if got := st.Player().Meters["money"]; got != 6 {
		t.Errorf("money = %v, want 6", got)
	}

	// Burn the cash; the stale choice refuses with its authored reason.
	st.Player().Meters["money"] = 2
	before := st.Time.HHMM()
	res := mustTurn(t, rt, Action{Type: ActChoice, ChoiceID: "order_coffee", SkipAI: true})
	wantLine(t, res.Narrative, "You dig through your pockets and come up short.")
	if got := st.Player().ItemCount("coffee"); got != 1 {
		t.Errorf("stale choice still purchased, coffee = %d", got)
	}
	if got := st.Time.HHMM(); got != before {
		t.Errorf("refused choice advanced time to %s", got)
	}
}

func TestUnlockedActionDispatch(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "park"

	mustTurn(t, rt, Action{Type: ActChoice, ChoiceID: "check_phone", SkipAI: true})
	if v, _ := st.Flags["checked_phone"].(bool); !v {
		t.Error("action effects did not run")
	}
	if got := st.Time.HHMM(); got != "08:01" {
		t.Errorf("time = %s, want 08:01", got)
	}

	// karaoke exists but was never unlocked.
	_, err := rt.RunTurn(context.Background(), Action{Type: ActChoice, ChoiceID: "karaoke", SkipAI: true})
	if !errors.Is(err, ErrUnknownChoice) {
		t.Errorf("locked action err = %v", err)
	}
	if st.TurnCount != 1 {
		t.Errorf("turn count = %d", st.TurnCount)
	}
}

func TestVisitCapTrimsChatter(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "park"
	st.TimeInCurrentNode = 43 // the node caps a visit at 45

	mustTurn(t, rt, saySkip("one"))
	if got := st.Time.HHMM(); got != "08:02" {
		t.Errorf("time = %s, want 08:02 (trimmed to the cap)", got)
	}

	mustTurn(t, rt, saySkip("two"))
	if got := st.Time.HHMM(); got != "08:02" {
		t.Errorf("time = %s, want 08:02 (cap exhausted)", got)
	}

	// An explicit cost is a statement, not a suggestion.
	mustTurn(t, rt, Action{Type: ActSay, Text: "three", SkipAI: true, TimeCost: intp(10)})
	if got := st.Time.HHMM(); got != "08:12" {
		t.Errorf("time = %s, want 08:12", got)
	}
}

func TestSellRespectsMoneyCeiling(t *testing.T) {
	rt := newRuntime(t, nil)
	st := rt.State()
	st.Position.Location = "park"

	mustTurn(t, rt, Action{Type: ActSell, ItemID: "phone", Price: floatp(600), SkipAI: true})

	if got := st.Player().Meters["money"]; got != 500 {
		t.Errorf("money = %v, want the 500 ceiling", got)
	}
	if got := st.Player().ItemCount("phone"); got != 0 {
		t.Errorf("phone = %d after sale", got)
	}
	if got := st.LocationStock("park")["phone"]; got != 1 {
		t.Errorf("shelved stock = %d, want 1", got)
	}
}

func TestActionSummaryFormats(t *testing.T) {
	rt := newRuntime(t, nil)
	tc := testCtx(rt)

	cases := []struct {
		a    Action
		want string
	}{
		{Action{Type: ActSay, Text: "hello"}, `You say: "hello"`},
		{Action{Type: ActDo, Text: "stretch and yawn"}, "You stretch and yawn"},
		{Action{Type: ActMove, Direction: "n"}, "You head n."},
		{Action{Type: ActGoto, Location: "park"}, "You make your way to Riverside Park."},
		{Action{Type: ActTravel, Location: "boutique", Method: "walk"}, "You travel to Marigold Boutique by walk."},
		{Action{Type: ActTravel, Location: "boutique"}, "You travel to Marigold Boutique."},
		{Action{Type: ActUse, ItemID: "coffee"}, "You use the Cortado."},
		{Action{Type: ActGive, ItemID: "flowers", Target: "emma"}, "You give Ranunculus Bunch to Emma."},
		{Action{Type: ActPurchase, ItemID: "coffee", Count: 2}, "You buy 2× Cortado."},
		{Action{Type: ActSell, ItemID: "coffee"}, "You sell the Cortado."},
	}
	for _, c := range cases {
		tc.action = c.a
		if got := rt.formatActionSummary(tc); got != c.want {
			t.Errorf("%s: got %q, want %q", c.a.Type, got, c.want)
		}
	}
}
