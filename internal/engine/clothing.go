package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

// clothingPutOn wears an owned clothing item, claiming every slot it
// occupies. A contested slot goes to the newcomer; the previous layer stays
// in the inventory. Manual layering breaks the active-outfit claim.
func (rt *Runtime) clothingPutOn(tc *turnCtx, target, itemID string) bool {
	cs := rt.st.Char(target)
	ci := rt.g.ClothingByID(itemID)
	if cs == nil || ci == nil {
		return false
	}
	if cs.ClothingCount(itemID) == 0 {
		tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(itemID)))
		return false
	}
	if rt.clothingLocked(tc, ci) {
		tc.refuse(fmt.Sprintf("The %s cannot be worn yet.", rt.thingName(itemID)))
		return false
	}
	if cs.ClothingWorn == nil {
		cs.ClothingWorn = make(map[string]*state.WornLayer)
	}
	for _, slot := range ci.Occupies {
		cs.ClothingWorn[slot] = &state.WornLayer{Item: itemID, State: game.ClothingIntact}
	}
	cs.ActiveOutfit = ""
	return true
}

// clothingTakeOff frees every slot the item occupies. The item stays owned.
// Locked and concealed items will not come off; strip the outer layer first.
func (rt *Runtime) clothingTakeOff(tc *turnCtx, target, itemID string) bool {
	cs := rt.st.Char(target)
	ci := rt.g.ClothingByID(itemID)
	if cs == nil || ci == nil || !cs.Wearing(itemID) {
		return false
	}
	if rt.clothingLocked(tc, ci) {
		tc.refuse(fmt.Sprintf("The %s will not come off.", rt.thingName(itemID)))
		return false
	}
	if rt.itemConcealed(cs, itemID) {
		tc.refuse(fmt.Sprintf("The %s is covered by another layer.", rt.thingName(itemID)))
		return false
	}
	rt.stripWornItem(cs, itemID)
	cs.ActiveOutfit = ""
	return true
}

// clothingSetState adjusts the layer state of a worn item. "removed" is
// take-off by another name; "opened" needs a can_open item. Locked items
// only ever move back to intact, and concealed slots cannot change at all.
func (rt *Runtime) clothingSetState(tc *turnCtx, target, itemID, layerState string) bool {
	cs := rt.st.Char(target)
	ci := rt.g.ClothingByID(itemID)
	if cs == nil || ci == nil || !cs.Wearing(itemID) {
		return false
	}
	if layerState != game.ClothingIntact && rt.clothingLocked(tc, ci) {
		tc.refuse(fmt.Sprintf("The %s stays put.", rt.thingName(itemID)))
		return false
	}
	if rt.itemConcealed(cs, itemID) {
		tc.refuse(fmt.Sprintf("The %s is covered by another layer.", rt.thingName(itemID)))
		return false
	}
	if layerState == game.ClothingRemoved {
		rt.stripWornItem(cs, itemID)
		cs.ActiveOutfit = ""
		return true
	}
	if layerState == game.ClothingOpened && !ci.CanOpen {
		tc.refuse(fmt.Sprintf("The %s does not open.", rt.thingName(itemID)))
		return false
	}
	for _, layer := range cs.ClothingWorn {
		if layer.Item == itemID {
			layer.State = layerState
		}
	}
	return true
}

// clothingSlotState adjusts whatever occupies a slot, if anything.
func (rt *Runtime) clothingSlotState(tc *turnCtx, target, slot, layerState string) bool {
	cs := rt.st.Char(target)
	if cs == nil {
		return false
	}
	layer := cs.WornIn(slot)
	if layer == nil {
		return false
	}
	return rt.clothingSetState(tc, target, layer.Item, layerState)
}

// outfitPutOn composes a full outfit: members apply in declaration order,
// later items winning contested slots. Requires ownership of the outfit
// and of every member item.
func (rt *Runtime) outfitPutOn(tc *turnCtx, target, outfitID string) bool {
	cs := rt.st.Char(target)
	o := rt.g.OutfitByID(outfitID)
	if cs == nil || o == nil {
		return false
	}
	if !cs.OwnedOutfits[outfitID] {
		tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(outfitID)))
		return false
	}
	for _, itemID := range o.Items {
		if cs.ClothingCount(itemID) == 0 {
			tc.refuse(fmt.Sprintf("You are missing the %s.", rt.thingName(itemID)))
			return false
		}
	}
	cs.ClothingWorn = make(map[string]*state.WornLayer)
	for _, itemID := range o.Items {
		ci := rt.g.ClothingByID(itemID)
		if ci == nil {
			continue
		}
		for _, slot := range ci.Occupies {
			cs.ClothingWorn[slot] = &state.WornLayer{Item: itemID, State: game.ClothingIntact}
		}
	}
	cs.ActiveOutfit = outfitID
	return true
}

// outfitTakeOff strips everything worn.
func (rt *Runtime) outfitTakeOff(tc *turnCtx, target string) bool {
	cs := rt.st.Char(target)
	if cs == nil {
		return false
	}
	cs.ClothingWorn = make(map[string]*state.WornLayer)
	cs.ActiveOutfit = ""
	return true
}

// clothingLocked resolves the live lock for a clothing item, consuming the
// unlock_when condition the first time it holds.
func (rt *Runtime) clothingLocked(tc *turnCtx, ci *game.ClothingItem) bool {
	if !rt.st.Locked(game.CatClothing, ci.ID, ci.Locked) {
		return false
	}
	if ci.UnlockWhen != "" && rt.evalWhen(tc, ci.UnlockWhen) {
		rt.st.SetLocked(game.CatClothing, ci.ID, false)
		return false
	}
	return true
}

func allLayersIntact(cs *state.CharacterState) bool {
	for _, layer := range cs.ClothingWorn {
		if layer.State != game.ClothingIntact {
			return false
		}
	}
	return true
}

// slotConcealed reports whether an intact item worn further out in the
// slot order hides this slot. Opened and displaced layers stop concealing,
// and a garment never conceals its own slots.
func (rt *Runtime) slotConcealed(cs *state.CharacterState, slot string) bool {
	cur := cs.WornIn(slot)
	pri := rt.g.SlotPriority(slot)
	for otherSlot, layer := range cs.ClothingWorn {
		if otherSlot == slot || layer.State != game.ClothingIntact {
			continue
		}
		if cur != nil && layer.Item == cur.Item {
			continue
		}
		if rt.g.SlotPriority(otherSlot) >= pri {
			continue
		}
		ci := rt.g.ClothingByID(layer.Item)
		if ci != nil && ci.ConcealsSlot(slot) {
			return true
		}
	}
	return false
}

// itemConcealed reports whether any slot the worn item occupies sits under
// an intact outer layer, which freezes it until the outer item is opened,
// displaced or removed.
func (rt *Runtime) itemConcealed(cs *state.CharacterState, itemID string) bool {
	ci := rt.g.ClothingByID(itemID)
	if ci == nil {
		return false
	}
	for _, slot := range ci.Occupies {
		layer := cs.WornIn(slot)
		if layer != nil && layer.Item == itemID && rt.slotConcealed(cs, slot) {
			return true
		}
	}
	return false
}

// appearanceSummary renders what a character visibly wears, outermost slot
// first, for the writer's character cards. Concealed layers stay out of the
// description; the writer should not know about them either.
func (rt *Runtime) appearanceSummary(charID string) string {
	cs := rt.st.Char(charID)
	if cs == nil || len(cs.ClothingWorn) == 0 {
		return "nothing notable"
	}
	if cs.ActiveOutfit != "" && allLayersIntact(cs) {
		if o := rt.g.OutfitByID(cs.ActiveOutfit); o != nil && o.Name != "" {
			return o.Name
		}
	}

	slots := make([]string, 0, len(cs.ClothingWorn))
	for slot := range cs.ClothingWorn {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		pi, pj := rt.g.SlotPriority(slots[i]), rt.g.SlotPriority(slots[j])
		if pi != pj {
			return pi < pj
		}
		return slots[i] < slots[j]
	})

	var parts []string
	seen := make(map[string]bool)
	for _, slot := range slots {
		layer := cs.ClothingWorn[slot]
		if seen[layer.Item] || rt.slotConcealed(cs, slot) {
			continue
		}
		seen[layer.Item] = true
		part := rt.thingName(layer.Item)
		if ci := rt.g.ClothingByID(layer.Item); ci != nil {
			if line, ok := ci.States[layer.State]; ok && line != "" {
				part = line
			} else if layer.State != game.ClothingIntact {
				part += " (" + layer.State + ")"
			}
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "nothing notable"
	}
	return strings.Join(parts, ", ")
}
