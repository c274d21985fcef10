package engine

import (
	"sort"

	"github.com/plotplay/engine/internal/game"
)

// advanceClock moves game time forward, crossing slot and day boundaries
// one at a time so per-slot and per-day decay each apply once per crossing.
// It also ticks event cooldowns, modifier durations and the visit timer.
func (rt *Runtime) advanceClock(tc *turnCtx, minutes int) {
	if minutes <= 0 {
		return
	}
	remaining := minutes
	for remaining > 0 {
		m := rt.st.Time.MinutesOfDay
		toMidnight := game.MinutesPerDay - m

		toSlotEnd := remaining + toMidnight // sentinel: never the minimum
		if end, ok := rt.g.Time.SlotEnd(m); ok {
			d := end - m
			if d <= 0 {
				d += game.MinutesPerDay
			}
			toSlotEnd = d
		}

		step := remaining
		if toMidnight < step {
			step = toMidnight
		}
		if toSlotEnd < step {
			step = toSlotEnd
		}

		rt.st.Time.MinutesOfDay += step
		remaining -= step

		if step == toSlotEnd {
			rt.applyDecay(tc, func(def *game.Meter) float64 { return def.DecayPerSlot })
		}
		if rt.st.Time.MinutesOfDay >= game.MinutesPerDay {
			rt.st.Time.MinutesOfDay -= game.MinutesPerDay
			rt.st.Time.Day++
			rt.applyDecay(tc, func(def *game.Meter) float64 { return def.DecayPerDay })
		}
	}

	rt.tickCooldowns(minutes)
	rt.tickModifierDurations(tc, minutes)
	rt.st.TimeInCurrentNode += minutes
}

// advanceSlots jumps to the next n slot boundaries. Without configured
// slots a "slot" degrades to the rest of the day.
func (rt *Runtime) advanceSlots(tc *turnCtx, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		m := rt.st.Time.MinutesOfDay
		d := game.MinutesPerDay - m
		if end, ok := rt.g.Time.SlotEnd(m); ok {
			d = end - m
			if d <= 0 {
				d += game.MinutesPerDay
			}
		}
		rt.advanceClock(tc, d)
	}
}

// applyDecay subtracts the selected decay rate from every meter that has
// one. Characters and meters iterate in sorted order so two runs of the
// same session stay byte-identical.
func (rt *Runtime) applyDecay(tc *turnCtx, rate func(*game.Meter) float64) {
	ids := make([]string, 0, len(rt.st.Characters))
	for id := range rt.st.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, charID := range ids {
		cs := rt.st.Characters[charID]
		meterIDs := make([]string, 0, len(cs.Meters))
		for id := range cs.Meters {
			meterIDs = append(meterIDs, id)
		}
		sort.Strings(meterIDs)

		for _, meterID := range meterIDs {
			def := rt.g.MeterDef(charID, meterID)
			if def == nil {
				continue
			}
			d := rate(def)
			if d == 0 {
				continue
			}
			// Decay is clock pressure, not an action: range clamps apply,
			// the per-turn delta cap does not.
			rt.setMeter(tc, charID, meterID, cs.Meters[meterID]-d, true, false)
		}
	}
}

func (rt *Runtime) tickCooldowns(minutes int) {
	for id, left := range rt.st.EventCooldowns {
		left -= minutes
		if left <= 0 {
			delete(rt.st.EventCooldowns, id)
		} else {
			rt.st.EventCooldowns[id] = left
		}
	}
}

// tickModifierDurations counts down timed modifiers and expires the ones
// that hit zero, running their exit effects.
func (rt *Runtime) tickModifierDurations(tc *turnCtx, minutes int) {
	charIDs := make([]string, 0, len(rt.st.Characters))
	for id := range rt.st.Characters {
		charIDs = append(charIDs, id)
	}
	sort.Strings(charIDs)

	for _, charID := range charIDs {
		cs := rt.st.Characters[charID]
		var expired []string
		for id, ms := range cs.Modifiers {
			if ms.RemainingMinutes <= 0 {
				continue // untimed
			}
			ms.RemainingMinutes -= minutes
			if ms.RemainingMinutes <= 0 {
				expired = append(expired, id)
			}
		}
		sort.Strings(expired)
		for _, id := range expired {
			rt.removeModifier(tc, charID, id)
		}
	}
}

// resolveActionTime fills tc.minutes for say/do/choice/use/give and the
// free-form kinds. Movement kinds compute their own cost and never pass
// through here. Resolution order: explicit request override, the choice or
// action definition, the node's time behavior, then the time defaults.
func (rt *Runtime) resolveActionTime(tc *turnCtx) {
	kind := tc.action.Type

	switch {
	case tc.action.TimeCost != nil:
		tc.minutes = *tc.action.TimeCost
		tc.explicitMinutes = true
	case tc.choice != nil && tc.choice.TimeCost > 0:
		tc.minutes = tc.choice.TimeCost
		tc.explicitMinutes = true
	case tc.choice != nil && tc.choice.TimeCategory != "":
		tc.minutes = rt.g.Time.Categories[tc.choice.TimeCategory]
	case tc.actionDef != nil && tc.actionDef.TimeCost > 0:
		tc.minutes = tc.actionDef.TimeCost
		tc.explicitMinutes = true
	case tc.actionDef != nil && tc.actionDef.TimeCategory != "":
		tc.minutes = rt.g.Time.Categories[tc.actionDef.TimeCategory]
	default:
		if cat, ok := rt.nodeTimeCategory(kind); ok {
			tc.minutes = rt.g.Time.Categories[cat]
		} else {
			tc.minutes = rt.g.Time.DefaultMinutes(kind)
		}
	}

	if !tc.explicitMinutes {
		rt.applyVisitCap(tc, kind)
	}
}

func (rt *Runtime) nodeTimeCategory(kind string) (string, bool) {
	n := rt.g.NodeByID(rt.st.CurrentNode)
	if n == nil || n.TimeBehavior == nil {
		return "", false
	}
	cat, ok := n.TimeBehavior.Categories[kind]
	return cat, ok
}

// applyVisitCap trims conversational time once a node visit has used up
// its budget. An explicit time_cost bypasses the cap.
func (rt *Runtime) applyVisitCap(tc *turnCtx, kind string) {
	switch kind {
	case ActSay, ActDo, ActChoice:
	default:
		return
	}
	limit := rt.g.Time.CapPerVisit()
	if n := rt.g.NodeByID(rt.st.CurrentNode); n != nil && n.TimeBehavior != nil && n.TimeBehavior.CapPerVisit > 0 {
		limit = n.TimeBehavior.CapPerVisit
	}
	if limit <= 0 {
		return
	}
	room := limit - rt.st.TimeInCurrentNode
	if room < 0 {
		room = 0
	}
	if tc.minutes > room {
		tc.minutes = room
	}
}
