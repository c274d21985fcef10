package engine

import (
	"sort"

	"github.com/plotplay/engine/internal/game"
)

// Summary is the player-facing snapshot attached to every turn result.
// Hidden meters and flags stay out; this is UI surface, not save data.
type Summary struct {
	Time     TimeSummary        `json:"time"`
	Location LocationSummary    `json:"location"`
	Node     NodeSummary        `json:"node"`
	Player   PlayerSummary      `json:"player"`
	Present  []CharacterSummary `json:"present,omitempty"`
	Exits    []ExitSummary      `json:"exits,omitempty"`
	Flags    []FlagValue        `json:"flags,omitempty"`
	Endings  []string           `json:"unlocked_endings,omitempty"`
}

type TimeSummary struct {
	Day     int    `json:"day"`
	HHMM    string `json:"time"`
	Slot    string `json:"slot,omitempty"`
	Weekday string `json:"weekday,omitempty"`
}

type LocationSummary struct {
	Zone     string `json:"zone"`
	ZoneName string `json:"zone_name"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Privacy  string `json:"privacy,omitempty"`
}

type NodeSummary struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type"`
}

type PlayerSummary struct {
	Meters    []MeterValue `json:"meters,omitempty"`
	Money     float64      `json:"money"`
	Currency  string       `json:"currency,omitempty"`
	Inventory []ItemLine   `json:"inventory,omitempty"`
	Wearing   string       `json:"wearing,omitempty"`
	Modifiers []string     `json:"modifiers,omitempty"`
}

type CharacterSummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Meters    []MeterValue `json:"meters,omitempty"`
	Wearing   string       `json:"wearing,omitempty"`
	Modifiers []string     `json:"modifiers,omitempty"`
}

type MeterValue struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type ItemLine struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ExitSummary struct {
	Direction string `json:"direction"`
	To        string `json:"to"`
	Name      string `json:"name"`
	Locked    bool   `json:"locked,omitempty"`
}

type FlagValue struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Visible bool   `json:"visible"`
}

// buildSummary renders the current state for the client.
func (rt *Runtime) buildSummary(tc *turnCtx) *Summary {
	s := &Summary{
		Time: TimeSummary{
			Day:     rt.st.Time.Day,
			HHMM:    rt.st.Time.HHMM(),
			Slot:    rt.st.Time.Slot(&rt.g.Time),
			Weekday: rt.st.Time.Weekday(&rt.g.Time),
		},
		Location: LocationSummary{
			Zone:     rt.st.Position.Zone,
			ZoneName: rt.zoneName(rt.st.Position.Zone),
			ID:       rt.st.Position.Location,
			Name:     rt.locationName(rt.st.Position.Location),
		},
		Player:  rt.playerSummary(),
		Endings: append([]string(nil), rt.st.UnlockedEndings...),
	}
	if loc := rt.g.LocationByID(rt.st.Position.Location); loc != nil {
		s.Location.Privacy = loc.Privacy
		for _, conn := range loc.Connections {
			dest := rt.g.LocationByID(conn.To)
			if dest == nil {
				continue
			}
			s.Exits = append(s.Exits, ExitSummary{
				Direction: conn.Direction,
				To:        conn.To,
				Name:      rt.locationName(conn.To),
				Locked:    rt.st.Locked(game.CatLocations, dest.ID, dest.Locked),
			})
		}
	}
	if n := rt.g.NodeByID(rt.st.CurrentNode); n != nil {
		s.Node = NodeSummary{ID: n.ID, Title: n.Title, Type: n.Type}
	}

	for _, charID := range tc.present {
		if charID == game.PlayerID {
			continue
		}
		s.Present = append(s.Present, CharacterSummary{
			ID:        charID,
			Name:      rt.charName(charID),
			Meters:    rt.visibleMeters(charID),
			Wearing:   rt.appearanceSummary(charID),
			Modifiers: rt.activeModifierIDs(charID),
		})
	}

	// Every flag is reported; hidden ones carry visible=false so the UI
	// can suppress them without the backend losing authority over state.
	for _, key := range sortedKeys(rt.st.Flags) {
		visible := true
		if def, ok := rt.g.Flags[key]; ok && def.Hidden {
			visible = false
		}
		s.Flags = append(s.Flags, FlagValue{Key: key, Value: rt.st.Flags[key], Visible: visible})
	}
	return s
}

func (rt *Runtime) playerSummary() PlayerSummary {
	p := rt.st.Player()
	ps := PlayerSummary{
		Meters:    rt.visibleMeters(game.PlayerID),
		Currency:  rt.g.Economy.Currency,
		Wearing:   rt.appearanceSummary(game.PlayerID),
		Modifiers: rt.activeModifierIDs(game.PlayerID),
	}
	if p == nil {
		return ps
	}
	ps.Money = p.Meters[rt.g.MoneyMeter()]

	itemIDs := make([]string, 0, len(p.Inventory)+len(p.ClothingInventory))
	for id := range p.Inventory {
		itemIDs = append(itemIDs, id)
	}
	for id := range p.ClothingInventory {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)
	for _, id := range itemIDs {
		count := p.Inventory[id] + p.ClothingInventory[id]
		if count <= 0 {
			continue
		}
		ps.Inventory = append(ps.Inventory, ItemLine{ID: id, Name: rt.thingName(id), Count: count})
	}
	return ps
}

// visibleMeters lists a character's non-hidden meters with their ranges.
// The money meter is excluded from the player list; it rides separately.
func (rt *Runtime) visibleMeters(charID string) []MeterValue {
	cs := rt.st.Char(charID)
	if cs == nil {
		return nil
	}
	money := rt.g.MoneyMeter()
	ids := make([]string, 0, len(cs.Meters))
	for id := range cs.Meters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []MeterValue
	for _, id := range ids {
		if charID == game.PlayerID && id == money {
			continue
		}
		def := rt.g.MeterDef(charID, id)
		if def == nil || def.Hidden {
			continue
		}
		out = append(out, MeterValue{ID: id, Value: cs.Meters[id], Min: def.Min, Max: def.Max})
	}
	return out
}

func (rt *Runtime) activeModifierIDs(charID string) []string {
	cs := rt.st.Char(charID)
	if cs == nil || len(cs.Modifiers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(cs.Modifiers))
	for id := range cs.Modifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
