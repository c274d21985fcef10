// Package game holds the immutable game definition: the typed form of a
// game package (game.yaml plus includes) and the id indexes the engine
// resolves against every turn. Definitions never change after Load; one
// *Game is shared by every session playing it.
package game

import (
	"fmt"

	"github.com/plotplay/engine/internal/expr"
)

type Game struct {
	Meta      Meta                `yaml:"meta"`
	Narration Narration           `yaml:"narration"`
	Start     Start               `yaml:"start"`
	Meters    MeterConfig         `yaml:"meters"`
	Flags     map[string]*FlagDef `yaml:"flags"`
	Time      TimeConfig          `yaml:"time"`
	Economy   Economy             `yaml:"economy"`
	Wardrobe  Wardrobe            `yaml:"wardrobe"`
	Movement  MovementConfig      `yaml:"movement"`

	Characters    []*Character    `yaml:"characters"`
	Zones         []*Zone         `yaml:"zones"`
	Locations     []*Location     `yaml:"locations"` // flat form; merged into zones by the loader
	Items         []*Item         `yaml:"items"`
	ClothingItems []*ClothingItem `yaml:"clothing_items"`
	Outfits       []*Outfit       `yaml:"outfits"`
	Modifiers     []*Modifier     `yaml:"modifiers"`
	Nodes         []*Node         `yaml:"nodes"`
	Events        []*Event        `yaml:"events"`
	Arcs          []*Arc          `yaml:"arcs"`
	Actions       []*ActionDef    `yaml:"actions"`

	exprs *expr.Cache

	characterByID map[string]*Character
	zoneByID      map[string]*Zone
	locationByID  map[string]*Location
	itemByID      map[string]*Item
	clothingByID  map[string]*ClothingItem
	outfitByID    map[string]*Outfit
	modifierByID  map[string]*Modifier
	nodeByID      map[string]*Node
	eventByID     map[string]*Event
	arcByID       map[string]*Arc
	actionByID    map[string]*ActionDef
	slotOrder     map[string]int // clothing slot → priority (lower = outer)
}

type Meta struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Author        string `yaml:"author"`
	Version       string `yaml:"version"`
	ContentRating string `yaml:"content_rating"`
	Description   string `yaml:"description"`
}

type Narration struct {
	POV           string `yaml:"pov"`   // "first", "second", "third"
	Tense         string `yaml:"tense"` // "past", "present"
	MaxParagraphs int    `yaml:"max_paragraphs"`
	Style         string `yaml:"style"`
}

type Start struct {
	Zone     string `yaml:"zone"`
	Location string `yaml:"location"`
	Node     string `yaml:"node"`
	Day      int    `yaml:"day"`      // defaults to 1
	Time     string `yaml:"time"`     // "HH:MM", defaults to 08:00
	RNGSeed  int64  `yaml:"rng_seed"` // 0: seeded from entropy at session start
}

type Economy struct {
	Currency   string  `yaml:"currency"`
	MoneyMeter string  `yaml:"money_meter"` // defaults to "money"
	MaxMoney   float64 `yaml:"max_money"`   // 0: meter max governs
}

type Wardrobe struct {
	// SlotOrder lists clothing slots outermost first; concealment follows
	// this order.
	SlotOrder []string `yaml:"slot_order"`
}

// buildIndexes wires every id→definition map. Loader calls it after merging
// includes; tests building a Game literal call it directly.
func (g *Game) buildIndexes() error {
	g.exprs = expr.NewCache()

	g.characterByID = make(map[string]*Character, len(g.Characters))
	for _, c := range g.Characters {
		if _, dup := g.characterByID[c.ID]; dup {
			return fmt.Errorf("duplicate character id %q", c.ID)
		}
		g.characterByID[c.ID] = c
	}

	g.zoneByID = make(map[string]*Zone, len(g.Zones))
	g.locationByID = make(map[string]*Location)
	for _, z := range g.Zones {
		if _, dup := g.zoneByID[z.ID]; dup {
			return fmt.Errorf("duplicate zone id %q", z.ID)
		}
		g.zoneByID[z.ID] = z
		for _, l := range z.Locations {
			l.Zone = z.ID
			if _, dup := g.locationByID[l.ID]; dup {
				return fmt.Errorf("duplicate location id %q", l.ID)
			}
			g.locationByID[l.ID] = l
		}
	}

	g.itemByID = make(map[string]*Item, len(g.Items))
	for _, it := range g.Items {
		if _, dup := g.itemByID[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		g.itemByID[it.ID] = it
	}

	g.clothingByID = make(map[string]*ClothingItem, len(g.ClothingItems))
	for _, ci := range g.ClothingItems {
		if _, dup := g.clothingByID[ci.ID]; dup {
			return fmt.Errorf("duplicate clothing item id %q", ci.ID)
		}
		g.clothingByID[ci.ID] = ci
	}

	g.outfitByID = make(map[string]*Outfit, len(g.Outfits))
	for _, o := range g.Outfits {
		if _, dup := g.outfitByID[o.ID]; dup {
			return fmt.Errorf("duplicate outfit id %q", o.ID)
		}
		g.outfitByID[o.ID] = o
	}

	g.modifierByID = make(map[string]*Modifier, len(g.Modifiers))
	for _, m := range g.Modifiers {
		if _, dup := g.modifierByID[m.ID]; dup {
			return fmt.Errorf("duplicate modifier id %q", m.ID)
		}
		g.modifierByID[m.ID] = m
	}

	g.nodeByID = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := g.nodeByID[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		g.nodeByID[n.ID] = n
	}

	g.eventByID = make(map[string]*Event, len(g.Events))
	for _, e := range g.Events {
		if _, dup := g.eventByID[e.ID]; dup {
			return fmt.Errorf("duplicate event id %q", e.ID)
		}
		g.eventByID[e.ID] = e
	}

	g.arcByID = make(map[string]*Arc, len(g.Arcs))
	for _, a := range g.Arcs {
		if _, dup := g.arcByID[a.ID]; dup {
			return fmt.Errorf("duplicate arc id %q", a.ID)
		}
		g.arcByID[a.ID] = a
	}

	g.actionByID = make(map[string]*ActionDef, len(g.Actions))
	for _, a := range g.Actions {
		if _, dup := g.actionByID[a.ID]; dup {
			return fmt.Errorf("duplicate action id %q", a.ID)
		}
		g.actionByID[a.ID] = a
	}

	g.slotOrder = make(map[string]int, len(g.Wardrobe.SlotOrder))
	for i, s := range g.Wardrobe.SlotOrder {
		g.slotOrder[s] = i
	}
	return nil
}

func (g *Game) CharacterByID(id string) *Character   { return g.characterByID[id] }
func (g *Game) ZoneByID(id string) *Zone             { return g.zoneByID[id] }
func (g *Game) LocationByID(id string) *Location     { return g.locationByID[id] }
func (g *Game) ItemByID(id string) *Item             { return g.itemByID[id] }
func (g *Game) ClothingByID(id string) *ClothingItem { return g.clothingByID[id] }
func (g *Game) OutfitByID(id string) *Outfit         { return g.outfitByID[id] }
func (g *Game) ModifierByID(id string) *Modifier     { return g.modifierByID[id] }
func (g *Game) NodeByID(id string) *Node             { return g.nodeByID[id] }
func (g *Game) EventByID(id string) *Event           { return g.eventByID[id] }
func (g *Game) ArcByID(id string) *Arc               { return g.arcByID[id] }
func (g *Game) ActionByID(id string) *ActionDef      { return g.actionByID[id] }

// SlotPriority returns the concealment priority of a clothing slot
// (0 = outermost). Unknown slots sink below every defined one.
func (g *Game) SlotPriority(slot string) int {
	if p, ok := g.slotOrder[slot]; ok {
		return p
	}
	return len(g.Wardrobe.SlotOrder)
}

// KnownSlot reports whether slot is part of the wardrobe slot set.
func (g *Game) KnownSlot(slot string) bool {
	_, ok := g.slotOrder[slot]
	return ok
}

// CompileExpr returns the cached compiled form of an author expression.
func (g *Game) CompileExpr(src string) (*expr.Expr, error) {
	return g.exprs.Get(src)
}

// MoneyMeter returns the meter id holding currency (default "money").
func (g *Game) MoneyMeter() string {
	if g.Economy.MoneyMeter != "" {
		return g.Economy.MoneyMeter
	}
	return "money"
}

// MeterDef resolves a meter definition for a character: the player uses
// the player set; everyone else overlays per-character meters on the
// character template.
func (g *Game) MeterDef(charID, meterID string) *Meter {
	if charID == PlayerID {
		return g.Meters.Player[meterID]
	}
	if c := g.CharacterByID(charID); c != nil {
		if m, ok := c.Meters[meterID]; ok {
			return m
		}
	}
	return g.Meters.Template[meterID]
}

// PlayerID is the distinguished character id for the player.
const PlayerID = "player"
