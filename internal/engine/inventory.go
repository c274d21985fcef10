package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

// addItem puts count units of an item, clothing item or outfit into a
// character's possession. Non-stackable items and clothing hold at most one
// unit; extra copies are silently absorbed.
func (rt *Runtime) addItem(tc *turnCtx, owner, id string, count int) {
	cs := rt.st.Char(owner)
	if cs == nil {
		rt.log.Warn("inventory add on unknown character", zap.String("owner", owner))
		return
	}
	switch {
	case rt.g.ItemByID(id) != nil:
		it := rt.g.ItemByID(id)
		if cs.Inventory == nil {
			cs.Inventory = make(map[string]int)
		}
		before := cs.Inventory[id]
		after := before + count
		if !it.Stackable && after > 1 {
			after = 1
		}
		cs.Inventory[id] = after
		if after > before {
			rt.runItemHook(tc, "get:"+owner+":"+id, it.OnGet)
		}
	case rt.g.ClothingByID(id) != nil:
		if cs.ClothingInventory == nil {
			cs.ClothingInventory = make(map[string]int)
		}
		cs.ClothingInventory[id] = 1
	case rt.g.OutfitByID(id) != nil:
		rt.grantOutfit(cs, id)
	default:
		rt.log.Warn("inventory add of unknown id", zap.String("id", id))
	}
}

// removeItem takes count units away. Clothing leaving the inventory also
// leaves the body; outfits take their granted member items with them.
func (rt *Runtime) removeItem(tc *turnCtx, owner, id string, count int) {
	cs := rt.st.Char(owner)
	if cs == nil {
		return
	}
	switch {
	case rt.g.ItemByID(id) != nil:
		it := rt.g.ItemByID(id)
		before := cs.Inventory[id]
		after := before - count
		if after < 0 {
			after = 0
		}
		if after == 0 {
			delete(cs.Inventory, id)
		} else {
			cs.Inventory[id] = after
		}
		if after < before {
			rt.runItemHook(tc, "lost:"+owner+":"+id, it.OnLost)
		}
	case rt.g.ClothingByID(id) != nil:
		delete(cs.ClothingInventory, id)
		rt.stripWornItem(cs, id)
	case rt.g.OutfitByID(id) != nil:
		rt.revokeOutfit(cs, id)
	}
}

// takeItem moves stock from the player's current location into an
// inventory.
func (rt *Runtime) takeItem(tc *turnCtx, owner, id string, count int) {
	stock := rt.st.LocationStock(rt.st.Position.Location)
	avail := stock[id]
	if avail < count {
		count = avail
	}
	if count <= 0 {
		return
	}
	stock[id] -= count
	if stock[id] <= 0 {
		delete(stock, id)
	}
	rt.addItem(tc, owner, id, count)
}

// dropItem leaves items at the current location. Undroppable items refuse.
func (rt *Runtime) dropItem(tc *turnCtx, owner, id string, count int) {
	cs := rt.st.Char(owner)
	if cs == nil {
		return
	}
	if it := rt.g.ItemByID(id); it != nil && !it.CanDrop() {
		tc.refuse(fmt.Sprintf("The %s stays with you.", rt.thingName(id)))
		return
	}
	have := cs.Inventory[id] + cs.ClothingInventory[id]
	if count > have {
		count = have
	}
	if count <= 0 {
		return
	}
	rt.removeItem(tc, owner, id, count)
	stock := rt.st.LocationStock(rt.st.Position.Location)
	stock[id] += count
}

// giveItem transfers between characters and runs the item's on_give hook.
// Both parties must be in the scene and the item must allow giving, no
// matter whether the player action or an authored effect asked for it.
func (rt *Runtime) giveItem(tc *turnCtx, from, to, id string, count int) bool {
	src := rt.st.Char(from)
	dst := rt.st.Char(to)
	if src == nil || dst == nil {
		rt.log.Warn("give between unknown characters",
			zap.String("from", from), zap.String("to", to))
		return false
	}
	for _, charID := range []string{from, to} {
		if !tc.isPresent(charID) {
			tc.refuse(fmt.Sprintf("%s is not here.", rt.charName(charID)))
			return false
		}
	}
	switch {
	case rt.g.ItemByID(id) != nil:
		it := rt.g.ItemByID(id)
		if !it.CanGive {
			tc.refuse(fmt.Sprintf("You cannot give the %s away.", rt.thingName(id)))
			return false
		}
		have := src.Inventory[id]
		if count > have {
			count = have
		}
		if count <= 0 {
			tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(id)))
			return false
		}
		rt.removeItem(tc, from, id, count)
		rt.addItem(tc, to, id, count)
		rt.runItemHook(tc, "give:"+from+":"+to+":"+id, it.OnGive)
	case rt.g.ClothingByID(id) != nil:
		if src.ClothingCount(id) == 0 {
			tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(id)))
			return false
		}
		rt.removeItem(tc, from, id, 1)
		rt.addItem(tc, to, id, 1)
	case rt.g.OutfitByID(id) != nil:
		if !src.OwnedOutfits[id] {
			tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(id)))
			return false
		}
		rt.revokeOutfit(src, id)
		rt.grantOutfit(dst, id)
	default:
		return false
	}
	return true
}

// useItem runs an item's on_use hook and consumes one unit of consumables.
func (rt *Runtime) useItem(tc *turnCtx, owner, id string) bool {
	cs := rt.st.Char(owner)
	it := rt.g.ItemByID(id)
	if cs == nil || it == nil {
		return false
	}
	if cs.Inventory[id] <= 0 {
		tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(id)))
		return false
	}
	rt.runItemHook(tc, "use:"+owner+":"+id, it.OnUse)
	if it.Consumable {
		rt.removeItem(tc, owner, id, 1)
	}
	return true
}

// purchase moves goods from a seller (a character id, or "" for the
// current location's stock) to the buyer against the money meter. A refused
// purchase changes nothing.
func (rt *Runtime) purchase(tc *turnCtx, buyer, seller, id string, count int, price float64) bool {
	cs := rt.st.Char(buyer)
	if cs == nil {
		return false
	}
	if rt.g.OutfitByID(id) != nil {
		count = 1
	}

	unit := price
	if unit <= 0 {
		unit = rt.thingValue(id)
	}
	total := unit * float64(count)

	// Source must actually hold the goods.
	if seller == "" {
		stock := rt.st.LocationStock(rt.st.Position.Location)
		if stock[id] < count {
			tc.refuse(fmt.Sprintf("There is no %s for sale here.", rt.thingName(id)))
			return false
		}
	} else {
		scs := rt.st.Char(seller)
		if scs == nil || rt.heldCount(scs, id) < count {
			tc.refuse(fmt.Sprintf("%s does not have the %s.", rt.charName(seller), rt.thingName(id)))
			return false
		}
	}

	if !rt.canAfford(buyer, total) {
		tc.refuse(fmt.Sprintf("You cannot afford the %s.", rt.thingName(id)))
		return false
	}

	rt.moveMoney(tc, buyer, -total)
	if seller != "" {
		rt.moveMoney(tc, seller, total)
		rt.removeItem(tc, seller, id, count)
	} else {
		stock := rt.st.LocationStock(rt.st.Position.Location)
		stock[id] -= count
		if stock[id] <= 0 {
			delete(stock, id)
		}
	}
	rt.addItem(tc, buyer, id, count)
	return true
}

// sell is the purchase mirror: goods leave the seller, money arrives. An
// empty buyer is the location itself, which pays out of thin air and
// shelves the goods.
func (rt *Runtime) sell(tc *turnCtx, seller, buyer, id string, count int, price float64) bool {
	cs := rt.st.Char(seller)
	if cs == nil {
		return false
	}
	if rt.g.OutfitByID(id) != nil {
		count = 1
	}
	if rt.heldCount(cs, id) < count {
		tc.refuse(fmt.Sprintf("You do not have the %s.", rt.thingName(id)))
		return false
	}

	unit := price
	if unit <= 0 {
		unit = rt.thingValue(id)
	}
	total := unit * float64(count)

	if buyer != "" && !rt.canAfford(buyer, total) {
		tc.refuse(fmt.Sprintf("%s cannot afford the %s.", rt.charName(buyer), rt.thingName(id)))
		return false
	}

	rt.removeItem(tc, seller, id, count)
	if buyer != "" {
		rt.moveMoney(tc, buyer, -total)
		rt.addItem(tc, buyer, id, count)
	} else {
		stock := rt.st.LocationStock(rt.st.Position.Location)
		stock[id] += count
	}
	rt.moveMoney(tc, seller, total)
	return true
}

// heldCount counts an id across an inventory, clothing and outfits.
func (rt *Runtime) heldCount(cs *state.CharacterState, id string) int {
	switch {
	case rt.g.ItemByID(id) != nil:
		return cs.Inventory[id]
	case rt.g.ClothingByID(id) != nil:
		return cs.ClothingInventory[id]
	case rt.g.OutfitByID(id) != nil:
		if cs.OwnedOutfits[id] {
			return 1
		}
	}
	return 0
}

// canAfford checks that spending amount keeps the money meter at or above
// its floor.
func (rt *Runtime) canAfford(charID string, amount float64) bool {
	cs := rt.st.Char(charID)
	if cs == nil {
		return false
	}
	meter := rt.g.MoneyMeter()
	floor := 0.0
	if def := rt.g.MeterDef(charID, meter); def != nil {
		floor = def.Min
	}
	return cs.Meters[meter]-amount >= floor
}

// moveMoney credits (or debits) the money meter outside the per-turn delta
// cap: a transaction either happens in full or not at all.
func (rt *Runtime) moveMoney(tc *turnCtx, charID string, amount float64) {
	cs := rt.st.Char(charID)
	if cs == nil || amount == 0 {
		return
	}
	meter := rt.g.MoneyMeter()
	next := cs.Meters[meter] + amount
	if ceiling := rt.g.Economy.MaxMoney; ceiling > 0 && next > ceiling {
		next = ceiling
	}
	rt.setMeter(tc, charID, meter, next, true, false)
}

// thingValue resolves the base price of an item, clothing item or outfit.
func (rt *Runtime) thingValue(id string) float64 {
	if it := rt.g.ItemByID(id); it != nil {
		return it.Value
	}
	if ci := rt.g.ClothingByID(id); ci != nil {
		return ci.Value
	}
	if o := rt.g.OutfitByID(id); o != nil {
		return o.Value
	}
	return 0
}

// runItemHook fires an item hook once per turn per key. Hooks that re-add
// or re-remove the same item would otherwise ping-pong forever.
func (rt *Runtime) runItemHook(tc *turnCtx, key string, effects []*game.Effect) {
	if len(effects) == 0 || tc.hooksRun[key] {
		return
	}
	tc.hooksRun[key] = true
	rt.applyEffects(tc, effects)
}

// grantOutfit registers ownership and hands over any member items a
// grant_items outfit carries, remembering which ones arrived with it.
func (rt *Runtime) grantOutfit(cs *state.CharacterState, outfitID string) {
	o := rt.g.OutfitByID(outfitID)
	if o == nil {
		return
	}
	if cs.OwnedOutfits == nil {
		cs.OwnedOutfits = make(map[string]bool)
	}
	cs.OwnedOutfits[outfitID] = true
	if !o.GrantItems {
		return
	}
	var granted []string
	for _, itemID := range o.Items {
		if cs.ClothingInventory[itemID] > 0 {
			continue
		}
		if cs.ClothingInventory == nil {
			cs.ClothingInventory = make(map[string]int)
		}
		cs.ClothingInventory[itemID] = 1
		granted = append(granted, itemID)
	}
	if len(granted) > 0 {
		sort.Strings(granted)
		if cs.GrantedOutfitItems == nil {
			cs.GrantedOutfitItems = make(map[string][]string)
		}
		cs.GrantedOutfitItems[outfitID] = granted
	}
}

// revokeOutfit removes ownership and takes back exactly the member items
// the outfit granted on acquisition.
func (rt *Runtime) revokeOutfit(cs *state.CharacterState, outfitID string) {
	delete(cs.OwnedOutfits, outfitID)
	if cs.ActiveOutfit == outfitID {
		cs.ActiveOutfit = ""
	}
	for _, itemID := range cs.GrantedOutfitItems[outfitID] {
		delete(cs.ClothingInventory, itemID)
		rt.stripWornItem(cs, itemID)
	}
	delete(cs.GrantedOutfitItems, outfitID)
}

// stripWornItem clears every slot a departing clothing item occupied.
func (rt *Runtime) stripWornItem(cs *state.CharacterState, itemID string) {
	for slot, layer := range cs.ClothingWorn {
		if layer.Item == itemID {
			delete(cs.ClothingWorn, slot)
		}
	}
}
