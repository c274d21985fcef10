package state

// Clone deep-copies the state. The orchestrator snapshots before every turn
// so a fatal mid-turn error can roll back cleanly.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s

	out.Characters = make(map[string]*CharacterState, len(s.Characters))
	for id, cs := range s.Characters {
		out.Characters[id] = cs.clone()
	}

	out.Flags = cloneMap(s.Flags)
	out.DiscoveredLocations = cloneMap(s.DiscoveredLocations)
	out.DiscoveredZones = cloneMap(s.DiscoveredZones)
	out.UnlockedActions = cloneMap(s.UnlockedActions)
	out.UnlockedEndings = cloneSlice(s.UnlockedEndings)
	out.ArcProgress = cloneMap(s.ArcProgress)
	out.EventCooldowns = cloneMap(s.EventCooldowns)
	out.EventsOnce = cloneMap(s.EventsOnce)
	out.PendingEventChoices = cloneSlice(s.PendingEventChoices)
	out.VisitedNodes = cloneMap(s.VisitedNodes)
	out.NarrativeHistory = cloneSlice(s.NarrativeHistory)
	out.MemoryLog = cloneSlice(s.MemoryLog)

	if s.LocationInventory != nil {
		out.LocationInventory = make(map[string]map[string]int, len(s.LocationInventory))
		for loc, stock := range s.LocationInventory {
			out.LocationInventory[loc] = cloneMap(stock)
		}
	}
	if s.Locks != nil {
		out.Locks = make(map[string]map[string]bool, len(s.Locks))
		for cat, byID := range s.Locks {
			out.Locks[cat] = cloneMap(byID)
		}
	}
	if s.ArcHistory != nil {
		out.ArcHistory = make(map[string][]string, len(s.ArcHistory))
		for id, hist := range s.ArcHistory {
			out.ArcHistory[id] = cloneSlice(hist)
		}
	}
	return &out
}

func (cs *CharacterState) clone() *CharacterState {
	if cs == nil {
		return nil
	}
	out := *cs
	out.Meters = cloneMap(cs.Meters)
	out.Inventory = cloneMap(cs.Inventory)
	out.ClothingInventory = cloneMap(cs.ClothingInventory)
	out.OwnedOutfits = cloneMap(cs.OwnedOutfits)

	if cs.Modifiers != nil {
		out.Modifiers = make(map[string]*ModifierState, len(cs.Modifiers))
		for id, m := range cs.Modifiers {
			mc := *m
			out.Modifiers[id] = &mc
		}
	}
	if cs.ClothingWorn != nil {
		out.ClothingWorn = make(map[string]*WornLayer, len(cs.ClothingWorn))
		for slot, l := range cs.ClothingWorn {
			lc := *l
			out.ClothingWorn[slot] = &lc
		}
	}
	if cs.GrantedOutfitItems != nil {
		out.GrantedOutfitItems = make(map[string][]string, len(cs.GrantedOutfitItems))
		for id, items := range cs.GrantedOutfitItems {
			out.GrantedOutfitItems[id] = cloneSlice(items)
		}
	}
	return &out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
