package engine

import (
	"fmt"

	"github.com/plotplay/engine/internal/game"
)

// validateAction rejects malformed requests before the turn touches any
// state. Choice resolution happens separately so an unknown choice can be
// distinguished from a bad shape.
func validateAction(a Action) error {
	if a.TimeCost != nil && *a.TimeCost < 0 {
		return fmt.Errorf("%w: negative time_cost", ErrInvalidAction)
	}
	if a.Count < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidAction)
	}
	switch a.Type {
	case ActSay, ActDo:
		if a.Text == "" {
			return fmt.Errorf("%w: %s needs text", ErrInvalidAction, a.Type)
		}
	case ActChoice:
		if a.ChoiceID == "" {
			return fmt.Errorf("%w: choice needs choice_id", ErrInvalidAction)
		}
	case ActUse:
		if a.ItemID == "" {
			return fmt.Errorf("%w: use needs item_id", ErrInvalidAction)
		}
	case ActGive:
		if a.ItemID == "" || a.Target == "" {
			return fmt.Errorf("%w: give needs item_id and target", ErrInvalidAction)
		}
	case ActMove:
		if a.Direction == "" {
			return fmt.Errorf("%w: move needs direction", ErrInvalidAction)
		}
	case ActGoto, ActTravel:
		if a.Location == "" {
			return fmt.Errorf("%w: %s needs location", ErrInvalidAction, a.Type)
		}
	case ActPurchase, ActSell:
		if a.ItemID == "" {
			return fmt.Errorf("%w: %s needs item_id", ErrInvalidAction, a.Type)
		}
	default:
		return fmt.Errorf("%w: unknown action_type %q", ErrInvalidAction, a.Type)
	}
	return nil
}

// formatActionSummary renders the player's input as the one-line intent the
// Writer narrates and the result echoes back.
func (rt *Runtime) formatActionSummary(tc *turnCtx) string {
	a := tc.action
	switch a.Type {
	case ActSay:
		return fmt.Sprintf("You say: %q", a.Text)
	case ActDo:
		return "You " + a.Text
	case ActChoice:
		if tc.choice != nil {
			return tc.choice.Prompt
		}
		if tc.actionDef != nil {
			return tc.actionDef.Prompt
		}
		return "You act."
	case ActUse:
		return fmt.Sprintf("You use the %s.", rt.thingName(a.ItemID))
	case ActGive:
		return fmt.Sprintf("You give %s to %s.", rt.thingName(a.ItemID), rt.charName(a.Target))
	case ActMove:
		return fmt.Sprintf("You head %s.", a.Direction)
	case ActGoto:
		return fmt.Sprintf("You make your way to %s.", rt.locationName(a.Location))
	case ActTravel:
		dest := rt.locationName(a.Location)
		if a.Method != "" {
			return fmt.Sprintf("You travel to %s by %s.", dest, a.Method)
		}
		return fmt.Sprintf("You travel to %s.", dest)
	case ActPurchase:
		return fmt.Sprintf("You buy %s.", rt.countedName(a.ItemID, a.Count))
	case ActSell:
		return fmt.Sprintf("You sell %s.", rt.countedName(a.ItemID, a.Count))
	}
	return ""
}

func (rt *Runtime) countedName(itemID string, count int) string {
	name := rt.thingName(itemID)
	if count > 1 {
		return fmt.Sprintf("%d× %s", count, name)
	}
	return "the " + name
}

// dispatchAction executes the mechanical half of the player action and
// resolves its time cost. Refused actions leave state untouched and cost
// nothing. Movement computes its own minutes; everything else goes through
// the time resolution chain.
func (rt *Runtime) dispatchAction(tc *turnCtx) {
	a := tc.action
	switch a.Type {
	case ActSay, ActDo:
		rt.resolveActionTime(tc)

	case ActChoice:
		if rt.dispatchChoice(tc) {
			rt.resolveActionTime(tc)
		}

	case ActUse:
		if rt.useItem(tc, game.PlayerID, a.ItemID) {
			rt.resolveActionTime(tc)
		}

	case ActGive:
		if rt.giveItem(tc, game.PlayerID, a.Target, a.ItemID, countOrOne(a.Count)) {
			rt.resolveActionTime(tc)
		}

	case ActMove:
		if !rt.companionsWilling(tc) {
			return
		}
		if minutes, ok := rt.moveDirection(tc, a.Direction); ok {
			tc.minutes = rt.overrideMinutes(tc, minutes)
		}

	case ActGoto:
		if !rt.companionsWilling(tc) {
			return
		}
		if minutes, ok := rt.moveTo(tc, a.Location, moveGoto); ok {
			tc.minutes = rt.overrideMinutes(tc, minutes)
		}

	case ActTravel:
		if !rt.companionsWilling(tc) {
			return
		}
		if minutes, ok := rt.travelTo(tc, a.Location, a.Method); ok {
			tc.minutes = rt.overrideMinutes(tc, minutes)
		}

	case ActPurchase:
		if rt.purchase(tc, game.PlayerID, a.Target, a.ItemID, countOrOne(a.Count), priceOf(a)) {
			rt.resolveActionTime(tc)
		}

	case ActSell:
		if rt.sell(tc, game.PlayerID, a.Target, a.ItemID, countOrOne(a.Count), priceOf(a)) {
			rt.resolveActionTime(tc)
		}
	}
}

// overrideMinutes lets an explicit time_cost replace a computed movement
// cost.
func (rt *Runtime) overrideMinutes(tc *turnCtx, computed int) int {
	if tc.action.TimeCost != nil {
		tc.explicitMinutes = true
		return *tc.action.TimeCost
	}
	return computed
}

func countOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func priceOf(a Action) float64 {
	if a.Price != nil {
		return *a.Price
	}
	return 0
}
