package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

// applyChecker reconciles the Checker's report with the rules. Every delta
// is re-validated here: the model proposes, the engine disposes. A safety
// violation naming a gate forces that gate closed for the rest of the
// apply, so only the implicated deltas drop; the safe remainder still
// commits. Gated meters and flags that fail their gate surface the
// authored refusal once per gate.
func (rt *Runtime) applyChecker(tc *turnCtx, res *ai.CheckerResult) {
	refused := make(map[string]bool)
	if !res.Safety.OK {
		rt.log.Warn("checker flagged the turn",
			zap.Strings("violations", res.Safety.Violations), zap.Int("turn", tc.turn))
		for _, v := range res.Safety.Violations {
			charID, gateID := game.SplitGateRef(v, "")
			if c := rt.g.CharacterByID(charID); c != nil && c.GateByID(gateID) != nil {
				key := charID + "." + gateID
				tc.gates[key] = false
				if !refused[key] {
					refused[key] = true
					tc.refuse(rt.gateRefusal(charID, gateID))
				}
			}
		}
	}

	rt.applyCheckerMeters(tc, res, refused)
	rt.applyCheckerFlags(tc, res, refused)
	rt.applyCheckerInventory(tc, res)
	rt.applyCheckerClothing(tc, res)
	rt.applyCheckerModifiers(tc, res)

	if res.Location != nil && res.Location.ID != "" && res.Location.ID != rt.st.Position.Location {
		rt.moveTo(tc, res.Location.ID, moveChecker)
	}

	for _, id := range res.EventsFired {
		if rt.g.EventByID(id) != nil && !containsString(tc.eventsFired, id) {
			tc.eventsFired = append(tc.eventsFired, id)
		}
	}

	if res.NodeTransition != "" {
		rt.applyCheckerTransition(tc, res.NodeTransition)
	}

	chars := sortedKeys(res.CharacterMemories)
	for _, charID := range chars {
		text := res.CharacterMemories[charID]
		if text == "" || rt.g.CharacterByID(charID) == nil {
			continue
		}
		rt.st.PushMemory(state.Memory{
			Text:       text,
			Characters: []string{charID},
			Day:        rt.st.Time.Day,
		})
	}
}

func (rt *Runtime) applyCheckerMeters(tc *turnCtx, res *ai.CheckerResult, refused map[string]bool) {
	for _, owner := range sortedKeys(res.Meters) {
		cs := rt.st.Char(owner)
		if cs == nil {
			continue
		}
		for _, meterID := range sortedKeys(res.Meters[owner]) {
			def := rt.g.MeterDef(owner, meterID)
			if def == nil {
				rt.log.Debug("checker invented a meter",
					zap.String("character", owner), zap.String("meter", meterID))
				continue
			}
			set, n, err := ai.ParseDelta(res.Meters[owner][meterID])
			if err != nil {
				continue
			}
			if !rt.gatePermits(tc, def.RequiresGate, owner, refused) {
				continue
			}
			next := n
			if !set {
				next = cs.Meters[meterID] + n
			}
			rt.setMeter(tc, owner, meterID, next, true, true)
		}
	}
}

func (rt *Runtime) applyCheckerFlags(tc *turnCtx, res *ai.CheckerResult, refused map[string]bool) {
	for _, key := range sortedKeys(res.Flags) {
		val := res.Flags[key]
		if def, ok := rt.g.Flags[key]; ok && def.RequiresGate != "" {
			if !rt.gatePermits(tc, def.RequiresGate, "", refused) {
				continue
			}
		}
		if !rt.g.FlagValueAllowed(key, val) {
			continue
		}
		rt.st.Flags[key] = normalizeFlagValue(val)
	}
}

func (rt *Runtime) applyCheckerInventory(tc *turnCtx, res *ai.CheckerResult) {
	for _, owner := range sortedKeys(res.Inventory) {
		cs := rt.st.Char(owner)
		if cs == nil {
			continue
		}
		for _, itemID := range sortedKeys(res.Inventory[owner]) {
			set, n, err := ai.ParseDelta(res.Inventory[owner][itemID])
			if err != nil {
				continue
			}
			delta := int(n)
			if set {
				delta = int(n) - rt.heldCount(cs, itemID)
			}
			switch {
			case delta > 0:
				rt.addItem(tc, owner, itemID, delta)
			case delta < 0:
				rt.removeItem(tc, owner, itemID, -delta)
			}
		}
	}
}

func (rt *Runtime) applyCheckerClothing(tc *turnCtx, res *ai.CheckerResult) {
	for _, charID := range sortedKeys(res.Clothing) {
		for _, slot := range sortedKeys(res.Clothing[charID]) {
			layerState := res.Clothing[charID][slot]
			if !game.ValidClothingState(layerState) || !rt.g.KnownSlot(slot) {
				continue
			}
			rt.clothingSlotState(tc, charID, slot, layerState)
		}
	}
}

func (rt *Runtime) applyCheckerModifiers(tc *turnCtx, res *ai.CheckerResult) {
	for _, charID := range sortedKeys(res.Modifiers) {
		for _, op := range res.Modifiers[charID] {
			switch {
			case op.Apply != "":
				duration := op.DurationMin
				if m := rt.g.ModifierByID(op.Apply); m != nil && duration <= 0 {
					duration = m.DurationDefaultMin
				}
				rt.applyModifier(tc, charID, op.Apply, duration, false)
			case op.Remove != "":
				rt.removeModifier(tc, charID, op.Remove)
			}
		}
	}
}

// applyCheckerTransition honors a narrated scene change only when the
// current node authored it and its condition holds right now.
func (rt *Runtime) applyCheckerTransition(tc *turnCtx, toID string) {
	n := rt.g.NodeByID(rt.st.CurrentNode)
	if n == nil {
		return
	}
	for _, t := range n.Transitions {
		if t.To != toID {
			continue
		}
		if rt.evalWhen(tc, t.When) && rt.canEnterNode(tc, toID) {
			tc.pendingGoto = toID
		}
		return
	}
	rt.log.Debug("checker proposed unauthored transition", zap.String("node", toID))
}

// gatePermits checks a requires_gate reference against this turn's gate
// table, appending the authored refusal the first time a gate blocks.
func (rt *Runtime) gatePermits(tc *turnCtx, ref, defaultOwner string, refused map[string]bool) bool {
	if ref == "" {
		return true
	}
	charID, gateID := game.SplitGateRef(ref, defaultOwner)
	key := charID + "." + gateID
	if tc.gates[key] {
		return true
	}
	if !refused[key] {
		refused[key] = true
		tc.refuse(rt.gateRefusal(charID, gateID))
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
