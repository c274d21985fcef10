package state

import (
	"sort"

	"github.com/plotplay/engine/internal/game"
)

// New builds the initial session state from a validated game definition.
// seed becomes the session's base RNG seed (turn N uses baseSeed+N).
func New(g *game.Game, seed int64) *GameState {
	minutes, err := game.ParseHHMM(g.Start.Time)
	if err != nil {
		minutes = 8 * 60
	}

	s := &GameState{
		Time:                Clock{Day: g.Start.Day, MinutesOfDay: minutes},
		Characters:          make(map[string]*CharacterState, len(g.Characters)),
		Flags:               make(map[string]any, len(g.Flags)),
		DiscoveredLocations: make(map[string]bool),
		DiscoveredZones:     make(map[string]bool),
		CurrentNode:         g.Start.Node,
		VisitedNodes:        map[string]bool{g.Start.Node: true},
		BaseRNGSeed:         seed,
	}

	start := g.LocationByID(g.Start.Location)
	s.Position = Position{Zone: g.Start.Zone, Location: g.Start.Location}
	if s.Position.Zone == "" && start != nil {
		s.Position.Zone = start.Zone
	}

	for _, c := range g.Characters {
		s.Characters[c.ID] = newCharacterState(g, c)
	}
	// A game may omit the player row; the player still needs meters.
	if s.Characters[game.PlayerID] == nil {
		s.Characters[game.PlayerID] = newCharacterState(g, &game.Character{ID: game.PlayerID})
	}

	for key, def := range g.Flags {
		s.Flags[key] = flagDefault(def)
	}

	for _, z := range g.Zones {
		if z.StartsDiscovered() {
			s.DiscoveredZones[z.ID] = true
		}
		for _, l := range z.Locations {
			if l.StartsDiscovered() {
				s.DiscoveredLocations[l.ID] = true
			}
			if len(l.Items) > 0 {
				stock := s.LocationStock(l.ID)
				for id, n := range l.Items {
					stock[id] = n
				}
			}
		}
	}
	// The starting place is always known, whatever the author declared.
	s.DiscoveredLocations[g.Start.Location] = true
	s.DiscoveredZones[s.Position.Zone] = true

	for _, a := range g.Actions {
		if a.Unlocked {
			if s.UnlockedActions == nil {
				s.UnlockedActions = make(map[string]bool)
			}
			s.UnlockedActions[a.ID] = true
		}
	}

	for _, a := range g.Arcs {
		if len(a.Stages) == 0 {
			continue
		}
		if s.ArcProgress == nil {
			s.ArcProgress = make(map[string]int, len(g.Arcs))
			s.ArcHistory = make(map[string][]string, len(g.Arcs))
		}
		s.ArcProgress[a.ID] = 0
		s.ArcHistory[a.ID] = []string{a.Stages[0].ID}
	}

	return s
}

func newCharacterState(g *game.Game, c *game.Character) *CharacterState {
	cs := &CharacterState{
		Meters:      make(map[string]float64),
		LocationPin: c.Location,
	}

	// Player meters come from the player set; NPCs overlay their own meters
	// on the shared template.
	if c.ID == game.PlayerID {
		for id, m := range g.Meters.Player {
			cs.Meters[id] = m.Default
		}
	} else {
		for id, m := range g.Meters.Template {
			cs.Meters[id] = m.Default
		}
	}
	for id, m := range c.Meters {
		cs.Meters[id] = m.Default
	}

	if len(c.Inventory) > 0 {
		cs.Inventory = make(map[string]int, len(c.Inventory))
		for id, n := range c.Inventory {
			cs.Inventory[id] = n
		}
	}

	if len(c.ClothingItems) > 0 {
		cs.ClothingInventory = make(map[string]int, len(c.ClothingItems))
		for _, id := range c.ClothingItems {
			cs.ClothingInventory[id] = 1
		}
	}

	for _, outfitID := range c.Outfits {
		if cs.OwnedOutfits == nil {
			cs.OwnedOutfits = make(map[string]bool, len(c.Outfits))
		}
		cs.OwnedOutfits[outfitID] = true
		grantOutfitItems(g, cs, outfitID)
	}

	if c.WearOutfit != "" {
		if o := g.OutfitByID(c.WearOutfit); o != nil {
			wearOutfit(g, cs, o)
		}
	}
	return cs
}

// grantOutfitItems applies acquisition-time item grants: member items the
// character does not own arrive with the outfit and are recorded so that
// losing the outfit takes back exactly those.
func grantOutfitItems(g *game.Game, cs *CharacterState, outfitID string) {
	o := g.OutfitByID(outfitID)
	if o == nil || !o.GrantItems {
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

// wearOutfit composes worn slots from an outfit definition: items apply in
// declaration order, later items winning contested slots.
func wearOutfit(g *game.Game, cs *CharacterState, o *game.Outfit) {
	cs.ClothingWorn = make(map[string]*WornLayer)
	for _, itemID := range o.Items {
		ci := g.ClothingByID(itemID)
		if ci == nil || cs.ClothingInventory[itemID] == 0 {
			continue
		}
		for _, slot := range ci.Occupies {
			cs.ClothingWorn[slot] = &WornLayer{Item: itemID, State: game.ClothingIntact}
		}
	}
	cs.ActiveOutfit = o.ID
}

func flagDefault(def *game.FlagDef) any {
	if def.Default != nil {
		return def.Default
	}
	switch def.Type {
	case "bool":
		return false
	case "number":
		return 0
	case "string":
		return ""
	}
	return nil
}
