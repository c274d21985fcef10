package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/expr"
	"github.com/plotplay/engine/internal/state"
)

// evalEnv binds condition expressions to a state view. Conditions normally
// read the live state; event triggers read the turn-entry snapshot so an
// action's own effects cannot veto or force the events of the same turn.
type evalEnv struct {
	rt *Runtime
	st *state.GameState
	tc *turnCtx
}

func (rt *Runtime) env(tc *turnCtx) *evalEnv {
	return &evalEnv{rt: rt, st: rt.st, tc: tc}
}

func (rt *Runtime) snapEnv(tc *turnCtx) *evalEnv {
	return &evalEnv{rt: rt, st: tc.snapshot, tc: tc}
}

// evalWhen compiles and evaluates one condition against the live state.
// Empty conditions hold; broken ones are false with a warning.
func (rt *Runtime) evalWhen(tc *turnCtx, src string) bool {
	return rt.evalIn(rt.env(tc), src)
}

// evalAll holds when every condition in the list holds.
func (rt *Runtime) evalAll(tc *turnCtx, srcs []string) bool {
	for _, src := range srcs {
		if !rt.evalWhen(tc, src) {
			return false
		}
	}
	return true
}

func (rt *Runtime) evalIn(env *evalEnv, src string) bool {
	if src == "" {
		return true
	}
	e, err := rt.g.CompileExpr(src)
	if err != nil {
		env.Warnf("compile %q: %v", src, err)
		return false
	}
	return e.EvalBool(env)
}

func (e *evalEnv) Lookup(segs []string) (expr.Value, bool) {
	if len(segs) == 0 {
		return expr.Null, false
	}
	switch segs[0] {
	case "time":
		return e.lookupTime(segs)
	case "location":
		return e.lookupLocation(segs)
	case "present":
		if len(segs) != 1 {
			return expr.Null, false
		}
		return expr.StringList(e.tc.present), true
	case "meters":
		if len(segs) != 3 {
			return expr.Null, false
		}
		cs := e.st.Char(segs[1])
		if cs == nil {
			return expr.Null, false
		}
		v, ok := cs.Meters[segs[2]]
		if !ok {
			return expr.Null, false
		}
		return expr.Number(v), true
	case "flags":
		if len(segs) != 2 {
			return expr.Null, false
		}
		v, ok := e.st.Flags[segs[1]]
		if !ok {
			return expr.Null, false
		}
		return expr.Of(v), true
	case "modifiers":
		if len(segs) != 2 {
			return expr.Null, false
		}
		cs := e.st.Char(segs[1])
		if cs == nil {
			return expr.Null, false
		}
		ids := make([]string, 0, len(cs.Modifiers))
		for id := range cs.Modifiers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return expr.StringList(ids), true
	case "inventory":
		return e.lookupInventory(segs)
	case "clothing":
		return e.lookupClothing(segs)
	case "gates":
		if len(segs) != 3 {
			return expr.Null, false
		}
		open, ok := e.tc.gates[segs[1]+"."+segs[2]]
		if !ok {
			return expr.Null, false
		}
		return expr.Bool(open), true
	case "arcs":
		return e.lookupArc(segs)
	}
	return expr.Null, false
}

func (e *evalEnv) lookupTime(segs []string) (expr.Value, bool) {
	if len(segs) != 2 {
		return expr.Null, false
	}
	switch segs[1] {
	case "day":
		return expr.Number(float64(e.st.Time.Day)), true
	case "slot":
		return expr.String(e.st.Time.Slot(&e.rt.g.Time)), true
	case "time_hhmm":
		return expr.String(e.st.Time.HHMM()), true
	case "weekday":
		return expr.String(e.st.Time.Weekday(&e.rt.g.Time)), true
	}
	return expr.Null, false
}

func (e *evalEnv) lookupLocation(segs []string) (expr.Value, bool) {
	if len(segs) != 2 {
		return expr.Null, false
	}
	switch segs[1] {
	case "zone":
		return expr.String(e.st.Position.Zone), true
	case "id":
		return expr.String(e.st.Position.Location), true
	case "privacy":
		loc := e.rt.g.LocationByID(e.st.Position.Location)
		if loc == nil {
			return expr.Null, false
		}
		return expr.String(loc.Privacy), true
	}
	return expr.Null, false
}

// lookupInventory accepts inventory.<owner>.<item> and the long form
// inventory.<owner>.items.<item>. Clothing counts are visible here too.
func (e *evalEnv) lookupInventory(segs []string) (expr.Value, bool) {
	switch len(segs) {
	case 3:
	case 4:
		if segs[2] != "items" {
			return expr.Null, false
		}
		segs = []string{segs[0], segs[1], segs[3]}
	default:
		return expr.Null, false
	}
	cs := e.st.Char(segs[1])
	if cs == nil {
		return expr.Null, false
	}
	return expr.Number(float64(cs.ItemCount(segs[2]) + cs.ClothingCount(segs[2]))), true
}

func (e *evalEnv) lookupClothing(segs []string) (expr.Value, bool) {
	if len(segs) < 3 {
		return expr.Null, false
	}
	cs := e.st.Char(segs[1])
	if cs == nil {
		return expr.Null, false
	}
	switch {
	case len(segs) == 3 && segs[2] == "outfit":
		return expr.String(cs.ActiveOutfit), true
	case len(segs) == 4 && segs[2] == "layers":
		layer := cs.WornIn(segs[3])
		if layer == nil {
			return expr.Null, true // empty slot, not an authoring mistake
		}
		return expr.String(layer.State), true
	}
	return expr.Null, false
}

func (e *evalEnv) lookupArc(segs []string) (expr.Value, bool) {
	if len(segs) != 3 {
		return expr.Null, false
	}
	a := e.rt.g.ArcByID(segs[1])
	if a == nil {
		return expr.Null, false
	}
	switch segs[2] {
	case "stage":
		return expr.String(e.st.ArcStage(a)), true
	case "history":
		return expr.StringList(e.st.ArcHistory[a.ID]), true
	}
	return expr.Null, false
}

func (e *evalEnv) Call(name string, args []expr.Value) (expr.Value, error) {
	switch name {
	case "has":
		if len(args) != 1 || args[0].Kind != expr.KindString {
			return expr.Null, fmt.Errorf("has() needs an item id string")
		}
		p := e.st.Player()
		return expr.Bool(p.ItemCount(args[0].S)+p.ClothingCount(args[0].S) > 0), nil
	case "npc_present":
		if len(args) != 1 || args[0].Kind != expr.KindString {
			return expr.Null, fmt.Errorf("npc_present() needs a character id string")
		}
		return expr.Bool(e.tc.isPresent(args[0].S)), nil
	case "rand":
		if len(args) != 1 || args[0].Kind != expr.KindNumber {
			return expr.Null, fmt.Errorf("rand() needs a probability number")
		}
		return expr.Bool(e.tc.rng.Float64() < args[0].N), nil
	case "knows_outfit":
		if len(args) != 2 || args[0].Kind != expr.KindString || args[1].Kind != expr.KindString {
			return expr.Null, fmt.Errorf("knows_outfit() needs character and outfit ids")
		}
		cs := e.st.Char(args[0].S)
		return expr.Bool(cs != nil && cs.OwnedOutfits[args[1].S]), nil
	case "can_wear_outfit":
		if len(args) != 2 || args[0].Kind != expr.KindString || args[1].Kind != expr.KindString {
			return expr.Null, fmt.Errorf("can_wear_outfit() needs character and outfit ids")
		}
		return expr.Bool(e.canWearOutfit(args[0].S, args[1].S)), nil
	}
	return expr.Null, fmt.Errorf("unknown function %s()", name)
}

func (e *evalEnv) canWearOutfit(charID, outfitID string) bool {
	cs := e.st.Char(charID)
	o := e.rt.g.OutfitByID(outfitID)
	if cs == nil || o == nil || !cs.OwnedOutfits[outfitID] {
		return false
	}
	for _, item := range o.Items {
		if cs.ClothingCount(item) == 0 {
			return false
		}
	}
	return true
}

// Warnf logs each distinct diagnostic once per turn. Broken author
// expressions would otherwise spam every phase that re-evaluates them.
func (e *evalEnv) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.tc.warned[msg] {
		return
	}
	e.tc.warned[msg] = true
	e.rt.log.Warn("condition", zap.String("detail", msg), zap.Int("turn", e.tc.turn))
}
