package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

// applyModifier activates a modifier on a character. Exclusions in either
// direction block it; within a group, the default "highest" stacking keeps
// one modifier at a time and the newcomer wins. Re-applying an active
// modifier only refreshes its clock.
func (rt *Runtime) applyModifier(tc *turnCtx, charID, modID string, durationMin int, auto bool) {
	m := rt.g.ModifierByID(modID)
	cs := rt.st.Char(charID)
	if m == nil || cs == nil {
		rt.log.Warn("apply_modifier unresolved",
			zap.String("character", charID), zap.String("modifier", modID))
		return
	}

	if ms, active := cs.Modifiers[modID]; active {
		if durationMin > ms.RemainingMinutes {
			ms.RemainingMinutes = durationMin
		}
		return
	}

	active := make([]string, 0, len(cs.Modifiers))
	for id := range cs.Modifiers {
		active = append(active, id)
	}
	sort.Strings(active)

	for _, id := range active {
		other := rt.g.ModifierByID(id)
		if other == nil {
			continue
		}
		if other.Excludes(modID) || m.Excludes(id) {
			return
		}
	}
	if m.Group != "" {
		for _, id := range active {
			other := rt.g.ModifierByID(id)
			if other == nil || other.Group != m.Group {
				continue
			}
			if stacking(other) == game.StackAll && stacking(m) == game.StackAll {
				continue
			}
			rt.removeModifier(tc, charID, id)
		}
	}

	if cs.Modifiers == nil {
		cs.Modifiers = make(map[string]*state.ModifierState)
	}
	cs.Modifiers[modID] = &state.ModifierState{RemainingMinutes: durationMin, Auto: auto}

	rt.applyEffects(tc, m.EntryEffects)
	// Clamp ranges bite immediately, not just on the next write.
	for meterID, r := range m.ClampMeters {
		if r == nil {
			continue
		}
		cur := cs.Meters[meterID]
		if next := clampFloat(cur, r.Min, r.Max); next != cur {
			rt.setMeter(tc, charID, meterID, next, true, false)
		}
	}
}

// removeModifier deactivates first and runs exit effects after, so an exit
// effect reading the character sees the modifier already gone and its
// clamps lifted.
func (rt *Runtime) removeModifier(tc *turnCtx, charID, modID string) {
	cs := rt.st.Char(charID)
	if cs == nil {
		return
	}
	if _, active := cs.Modifiers[modID]; !active {
		return
	}
	delete(cs.Modifiers, modID)
	if m := rt.g.ModifierByID(modID); m != nil {
		rt.applyEffects(tc, m.ExitEffects)
	}
}

// autoActivateModifiers reconciles condition-driven modifiers on the
// player: conditions that hold activate, auto-applied ones whose condition
// lapsed clear. Explicitly applied modifiers never auto-clear.
func (rt *Runtime) autoActivateModifiers(tc *turnCtx) {
	cs := rt.st.Player()
	if cs == nil {
		return
	}
	for _, m := range rt.g.Modifiers {
		if m.When == "" {
			continue
		}
		holds := rt.evalWhen(tc, m.When)
		ms, active := cs.Modifiers[m.ID]
		switch {
		case holds && !active:
			rt.applyModifier(tc, game.PlayerID, m.ID, m.DurationDefaultMin, true)
		case !holds && active && ms.Auto:
			rt.removeModifier(tc, game.PlayerID, m.ID)
		}
	}
}

func stacking(m *game.Modifier) string {
	if m.Stacking == "" {
		return game.StackHighest
	}
	return m.Stacking
}

// activeModifierPrompts collects writer guidance lines from every modifier
// active on the given characters, in a stable order.
func (rt *Runtime) activeModifierPrompts(charIDs []string) []string {
	var prompts []string
	for _, charID := range charIDs {
		cs := rt.st.Char(charID)
		if cs == nil {
			continue
		}
		ids := make([]string, 0, len(cs.Modifiers))
		for id := range cs.Modifiers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m := rt.g.ModifierByID(id)
			if m == nil || m.Behavior.Prompt == "" {
				continue
			}
			prompts = append(prompts, rt.charName(charID)+": "+m.Behavior.Prompt)
		}
	}
	return prompts
}

// modifierAppearances collects appearance lines for one character's card.
func (rt *Runtime) modifierAppearances(charID string) []string {
	cs := rt.st.Char(charID)
	if cs == nil {
		return nil
	}
	ids := make([]string, 0, len(cs.Modifiers))
	for id := range cs.Modifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var lines []string
	for _, id := range ids {
		if m := rt.g.ModifierByID(id); m != nil && m.Appearance != "" {
			lines = append(lines, m.Appearance)
		}
	}
	return lines
}
