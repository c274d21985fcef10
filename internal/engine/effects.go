package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/game"
)

// applyEffects runs a batch in order. Every failure inside an effect is a
// warning and a skip, never a turn abort: authored content must not be able
// to crash a session.
func (rt *Runtime) applyEffects(tc *turnCtx, effs []*game.Effect) {
	for _, e := range effs {
		rt.applyEffect(tc, e)
	}
}

func (rt *Runtime) applyEffect(tc *turnCtx, e *game.Effect) {
	if e == nil {
		return
	}
	// For conditionals When selects the branch; for everything else it is
	// a guard.
	if e.Type == game.EffConditional {
		if rt.evalWhen(tc, e.When) {
			rt.applyEffects(tc, e.Then)
		} else {
			rt.applyEffects(tc, e.Otherwise)
		}
		return
	}
	if e.When != "" && !rt.evalWhen(tc, e.When) {
		return
	}

	switch e.Type {
	case game.EffMeterChange:
		rt.effMeterChange(tc, e)
	case game.EffFlagSet:
		rt.effFlagSet(tc, e)
	case game.EffInventoryAdd:
		rt.addItem(tc, ownerOrPlayer(e.Owner), e.Item, e.CountOrOne())
	case game.EffInventoryRemove:
		rt.removeItem(tc, ownerOrPlayer(e.Owner), e.Item, e.CountOrOne())
	case game.EffInventoryTake:
		rt.takeItem(tc, ownerOrPlayer(e.Owner), e.Item, e.CountOrOne())
	case game.EffInventoryDrop:
		rt.dropItem(tc, ownerOrPlayer(e.Owner), e.Item, e.CountOrOne())
	case game.EffInventoryGive:
		rt.giveItem(tc, ownerOrPlayer(e.From), e.To, e.Item, e.CountOrOne())
	case game.EffPurchase:
		rt.purchase(tc, ownerOrPlayer(e.Buyer), e.Seller, e.Item, e.CountOrOne(), e.Price)
	case game.EffSell:
		rt.sell(tc, ownerOrPlayer(e.Seller), e.Buyer, e.Item, e.CountOrOne(), e.Price)
	case game.EffClothingPutOn:
		rt.clothingPutOn(tc, ownerOrPlayer(e.Target), e.Item)
	case game.EffClothingTakeOff:
		rt.clothingTakeOff(tc, ownerOrPlayer(e.Target), e.Item)
	case game.EffClothingState:
		rt.clothingSetState(tc, ownerOrPlayer(e.Target), e.Item, e.State)
	case game.EffClothingSlot:
		rt.clothingSlotState(tc, ownerOrPlayer(e.Target), e.Slot, e.State)
	case game.EffOutfitPutOn:
		rt.outfitPutOn(tc, ownerOrPlayer(e.Target), e.Outfit)
	case game.EffOutfitTakeOff:
		rt.outfitTakeOff(tc, ownerOrPlayer(e.Target))
	case game.EffMove:
		rt.effMove(tc, e.Direction)
	case game.EffMoveTo:
		if minutes, ok := rt.moveTo(tc, e.Location, moveGoto); ok {
			tc.minutes += minutes
		}
	case game.EffTravelTo:
		if minutes, ok := rt.travelTo(tc, e.Location, e.Method); ok {
			tc.minutes += minutes
		}
	case game.EffAdvanceTime:
		rt.advanceClock(tc, e.Minutes)
	case game.EffAdvanceTimeSlot:
		rt.advanceSlots(tc, e.Slots)
	case game.EffApplyModifier:
		duration := e.DurationMin
		if m := rt.g.ModifierByID(e.Modifier); m != nil && duration <= 0 {
			duration = m.DurationDefaultMin
		}
		rt.applyModifier(tc, ownerOrPlayer(e.Target), e.Modifier, duration, false)
	case game.EffRemoveModifier:
		rt.removeModifier(tc, ownerOrPlayer(e.Target), e.Modifier)
	case game.EffUnlock:
		rt.setLocks(e.Category, e.IDs, false)
	case game.EffLock:
		rt.setLocks(e.Category, e.IDs, true)
	case game.EffGoto:
		tc.pendingGoto = e.Node
	case game.EffRandom:
		rt.effRandom(tc, e)
	default:
		rt.log.Warn("unknown effect type", zap.String("type", e.Type))
	}
}

func ownerOrPlayer(owner string) string {
	if owner == "" {
		return game.PlayerID
	}
	return owner
}

func (rt *Runtime) effMeterChange(tc *turnCtx, e *game.Effect) {
	owner := ownerOrPlayer(e.Target)
	cs := rt.st.Char(owner)
	if cs == nil {
		rt.log.Warn("meter_change on unknown character", zap.String("target", owner))
		return
	}
	val, ok := e.NumberValue()
	if !ok {
		rt.log.Warn("meter_change value is not a number", zap.String("meter", e.Meter))
		return
	}
	cur := cs.Meters[e.Meter]
	var next float64
	switch e.Op {
	case "add", "":
		next = cur + val
	case "subtract":
		next = cur - val
	case "set":
		next = val
	case "multiply":
		next = cur * val
	case "divide":
		if val == 0 {
			rt.log.Warn("meter_change divide by zero", zap.String("meter", e.Meter))
			return
		}
		next = cur / val
	default:
		rt.log.Warn("meter_change unknown op", zap.String("op", e.Op))
		return
	}
	rt.setMeter(tc, owner, e.Meter, next, e.RespectsCaps(), e.CapsPerTurn())
}

// setMeter is the single write path for meters: per-turn delta cap first,
// then definition range, then any narrower ranges active modifiers clamp to.
// The per-turn cap counts gross movement, so alternating signs cannot dodge
// it.
func (rt *Runtime) setMeter(tc *turnCtx, owner, meter string, next float64, respectCaps, capPerTurn bool) {
	cs := rt.st.Char(owner)
	if cs == nil {
		return
	}
	def := rt.g.MeterDef(owner, meter)
	cur := cs.Meters[meter]

	if capPerTurn && def != nil && def.DeltaCapPerTurn > 0 {
		key := owner + "." + meter
		room := def.DeltaCapPerTurn - tc.meterDeltas[key]
		if room < 0 {
			room = 0
		}
		delta := next - cur
		if math.Abs(delta) > room {
			if delta > 0 {
				delta = room
			} else {
				delta = -room
			}
		}
		next = cur + delta
	}
	if respectCaps {
		if def != nil {
			next = clampFloat(next, def.Min, def.Max)
		}
		for id := range cs.Modifiers {
			m := rt.g.ModifierByID(id)
			if m == nil {
				continue
			}
			if r, ok := m.ClampMeters[meter]; ok && r != nil {
				next = clampFloat(next, r.Min, r.Max)
			}
		}
	}

	if applied := next - cur; applied != 0 {
		tc.meterDeltas[owner+"."+meter] += math.Abs(applied)
	}
	if cs.Meters == nil {
		cs.Meters = make(map[string]float64)
	}
	cs.Meters[meter] = next
}

func (rt *Runtime) effFlagSet(tc *turnCtx, e *game.Effect) {
	if !rt.g.FlagValueAllowed(e.Key, e.Value) {
		rt.log.Warn("flag_set value rejected",
			zap.String("key", e.Key), zap.Any("value", e.Value))
		return
	}
	rt.st.Flags[e.Key] = normalizeFlagValue(e.Value)
}

// normalizeFlagValue converts integer values to float64 so a flag compares
// the same before and after a JSON round trip.
func normalizeFlagValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// setLocks flips lock state per category. Actions live in a positive
// unlocked set; endings additionally record unlock order for the summary.
func (rt *Runtime) setLocks(category string, ids []string, locked bool) {
	for _, id := range ids {
		switch category {
		case game.CatActions:
			if locked {
				delete(rt.st.UnlockedActions, id)
			} else {
				if rt.st.UnlockedActions == nil {
					rt.st.UnlockedActions = make(map[string]bool)
				}
				rt.st.UnlockedActions[id] = true
			}
		case game.CatEndings:
			rt.st.SetLocked(category, id, locked)
			if !locked {
				rt.st.UnlockEnding(id)
			}
		default:
			rt.st.SetLocked(category, id, locked)
		}
	}
}

func (rt *Runtime) effRandom(tc *turnCtx, e *game.Effect) {
	total := 0.0
	for _, arm := range e.Choices {
		if arm.Weight > 0 {
			total += arm.Weight
		}
	}
	if total <= 0 {
		return
	}
	r := tc.rng.Float64() * total
	for _, arm := range e.Choices {
		if arm.Weight <= 0 {
			continue
		}
		if r < arm.Weight {
			rt.applyEffects(tc, arm.Effects)
			return
		}
		r -= arm.Weight
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
