package engine

import (
	"sort"
	"strings"

	"github.com/plotplay/engine/internal/game"
)

// evaluateGates recomputes every character gate for this turn, then applies
// modifier safety clamps: disallowed gates force closed, allowed gates
// force open, allow winning over disallow.
func (rt *Runtime) evaluateGates(tc *turnCtx) {
	tc.gates = make(map[string]bool)
	for _, c := range rt.g.Characters {
		for _, gd := range c.Gates {
			tc.gates[c.ID+"."+gd.ID] = rt.gateOpen(tc, gd)
		}
	}

	rt.clampGates(tc, false)
	rt.clampGates(tc, true)
}

// gateOpen evaluates the three condition forms; any form that holds opens
// the gate.
func (rt *Runtime) gateOpen(tc *turnCtx, gd *game.Gate) bool {
	if gd.When != "" && rt.evalWhen(tc, gd.When) {
		return true
	}
	for _, src := range gd.WhenAny {
		if rt.evalWhen(tc, src) {
			return true
		}
	}
	if len(gd.WhenAll) > 0 && rt.evalAll(tc, gd.WhenAll) {
		return true
	}
	return false
}

// clampGates walks every active modifier and forces the gates its safety
// block names. A bare gate id touches that gate on every character that
// declares it; "char.gate" touches one.
func (rt *Runtime) clampGates(tc *turnCtx, allow bool) {
	charIDs := make([]string, 0, len(rt.st.Characters))
	for id := range rt.st.Characters {
		charIDs = append(charIDs, id)
	}
	sort.Strings(charIDs)

	for _, charID := range charIDs {
		cs := rt.st.Characters[charID]
		modIDs := make([]string, 0, len(cs.Modifiers))
		for id := range cs.Modifiers {
			modIDs = append(modIDs, id)
		}
		sort.Strings(modIDs)

		for _, modID := range modIDs {
			m := rt.g.ModifierByID(modID)
			if m == nil {
				continue
			}
			refs := m.Safety.DisallowGates
			if allow {
				refs = m.Safety.AllowGates
			}
			for _, ref := range refs {
				rt.forceGate(tc, ref, allow)
			}
		}
	}
}

func (rt *Runtime) forceGate(tc *turnCtx, ref string, open bool) {
	if strings.ContainsRune(ref, '.') {
		if _, ok := tc.gates[ref]; ok {
			tc.gates[ref] = open
		}
		return
	}
	for _, c := range rt.g.Characters {
		if c.GateByID(ref) != nil {
			tc.gates[c.ID+"."+ref] = open
		}
	}
}

// gateRefusal resolves the authored refusal line for a "char.gate"
// reference, with a generic fallback.
func (rt *Runtime) gateRefusal(charID, gateID string) string {
	if c := rt.g.CharacterByID(charID); c != nil {
		if gd := c.GateByID(gateID); gd != nil && gd.Refusal != "" {
			return gd.Refusal
		}
	}
	return rt.charName(charID) + " is not ready for that."
}
