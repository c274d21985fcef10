package engine

import (
	"fmt"

	"github.com/plotplay/engine/internal/game"
)

// Choice kinds, in list priority order: the first entry claiming an id
// keeps it.
const (
	ChoiceNode    = "node"
	ChoiceDynamic = "dynamic"
	ChoiceAction  = "action"
	ChoiceMove    = "move"
	ChoiceTravel  = "travel"
	ChoiceEvent   = "event"
)

// buildChoices composes the next turn's choice list: authored node choices,
// dynamic choices, unlocked actions, movement and travel options, then
// choices injected by events fired this turn. Event choices stay selectable
// one extra turn through PendingEventChoices.
func (rt *Runtime) buildChoices(tc *turnCtx) []Choice {
	var out []Choice
	seen := make(map[string]bool)

	add := func(c Choice) {
		if c.ID == "" || seen[c.ID] {
			return
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	authored := func(kind string, ch *game.Choice) {
		ok := rt.evalAll(tc, ch.Conditions)
		if !ok && ch.DisabledReason == "" {
			return // hidden, not teased
		}
		c := Choice{ID: ch.ID, Prompt: ch.Prompt, Enabled: ok, Kind: kind}
		if !ok {
			c.Reason = ch.DisabledReason
		}
		add(c)
	}

	if n := rt.g.NodeByID(rt.st.CurrentNode); n != nil {
		for _, ch := range n.Choices {
			authored(ChoiceNode, ch)
		}
		for _, ch := range n.DynamicChoices {
			authored(ChoiceDynamic, ch)
		}
	}

	for _, a := range rt.g.Actions {
		if !rt.st.UnlockedActions[a.ID] {
			continue
		}
		if !rt.evalAll(tc, a.Conditions) {
			continue
		}
		add(Choice{ID: a.ID, Prompt: a.Prompt, Enabled: true, Kind: ChoiceAction})
	}

	if loc := rt.g.LocationByID(rt.st.Position.Location); loc != nil {
		for _, conn := range loc.Connections {
			dest := rt.g.LocationByID(conn.To)
			if dest == nil {
				continue
			}
			c := Choice{
				ID:      "move_" + conn.Direction,
				Prompt:  fmt.Sprintf("Go %s to %s", conn.Direction, rt.locationName(dest.ID)),
				Enabled: true,
				Kind:    ChoiceMove,
			}
			if !rt.locationUnlocked(tc, dest) {
				c.Enabled = false
				c.Reason = "Locked."
			}
			add(c)
		}
	}

	if z := rt.g.ZoneByID(rt.st.Position.Zone); z != nil {
		for _, zc := range z.Connections {
			dest := rt.g.ZoneByID(zc.To)
			if dest == nil || !rt.st.DiscoveredZones[dest.ID] {
				continue
			}
			add(Choice{
				ID:      "travel_" + dest.ID,
				Prompt:  fmt.Sprintf("Travel to %s", rt.zoneName(dest.ID)),
				Enabled: true,
				Kind:    ChoiceTravel,
			})
		}
	}

	for _, ch := range tc.eventChoices {
		authored(ChoiceEvent, ch)
	}
	rt.st.PendingEventChoices = tc.choiceEvents

	return out
}

// findChoice resolves a selected choice id before the turn starts: the
// current node's choices, then choices of events still pending from the
// previous turn, then unlocked actions.
func (rt *Runtime) findChoice(choiceID string) (*game.Choice, *game.ActionDef) {
	if n := rt.g.NodeByID(rt.st.CurrentNode); n != nil {
		for _, ch := range n.Choices {
			if ch.ID == choiceID {
				return ch, nil
			}
		}
		for _, ch := range n.DynamicChoices {
			if ch.ID == choiceID {
				return ch, nil
			}
		}
	}
	for _, eventID := range rt.st.PendingEventChoices {
		e := rt.g.EventByID(eventID)
		if e == nil {
			continue
		}
		for _, ch := range e.Choices {
			if ch.ID == choiceID {
				return ch, nil
			}
		}
	}
	if a := rt.g.ActionByID(choiceID); a != nil && rt.st.UnlockedActions[choiceID] {
		return nil, a
	}
	return nil, nil
}

// dispatchChoice runs a resolved choice or unlocked action. Conditions are
// re-checked against the live state; a list offered last turn may have gone
// stale.
func (rt *Runtime) dispatchChoice(tc *turnCtx) bool {
	switch {
	case tc.choice != nil:
		ch := tc.choice
		if !rt.evalAll(tc, ch.Conditions) {
			tc.refuse(ch.DisabledReason)
			return false
		}
		rt.applyEffects(tc, ch.OnSelect)
		if ch.Goto != "" {
			tc.pendingGoto = ch.Goto
		}
		return true
	case tc.actionDef != nil:
		a := tc.actionDef
		if !rt.st.UnlockedActions[a.ID] || !rt.evalAll(tc, a.Conditions) {
			tc.refuse("")
			return false
		}
		rt.applyEffects(tc, a.Effects)
		return true
	}
	return false
}
