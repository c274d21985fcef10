// Package state holds the mutable per-session game state: everything a turn
// may change and everything persistence must round-trip. Definitions stay in
// the game package; state stores only values, keyed by definition ids.
package state

import (
	"github.com/plotplay/engine/internal/game"
)

// Bounds for the rolling logs. Old entries fall off the front.
const (
	MaxNarrativeHistory = 50
	MaxMemoryLog        = 200
)

// Clock is game-internal time. Slot and weekday are derived from the time
// config, never stored.
type Clock struct {
	Day          int `json:"day"`
	MinutesOfDay int `json:"minutes_of_day"`
}

// HHMM renders the clock as "HH:MM".
func (c Clock) HHMM() string { return game.FormatHHMM(c.MinutesOfDay) }

// Slot returns the configured slot window covering the current minute.
func (c Clock) Slot(tc *game.TimeConfig) string { return tc.SlotFor(c.MinutesOfDay) }

// Weekday returns the configured weekday name for the current day.
func (c Clock) Weekday(tc *game.TimeConfig) string { return tc.Weekday(c.Day) }

// Position is the player's current place in the world.
type Position struct {
	Zone     string `json:"zone"`
	Location string `json:"location"`
}

// WornLayer is one occupied clothing slot.
type WornLayer struct {
	Item  string `json:"item"`
	State string `json:"state"` // intact|opened|displaced
}

// ModifierState tracks one active modifier instance.
type ModifierState struct {
	// RemainingMinutes counts down with game time; 0 means no expiry.
	RemainingMinutes int `json:"remaining_minutes"`
	// Auto marks modifiers applied by their when condition; only those are
	// auto-removed when the condition turns false.
	Auto bool `json:"auto,omitempty"`
}

// CharacterState is the mutable half of a character (player included).
type CharacterState struct {
	Meters            map[string]float64        `json:"meters"`
	Modifiers         map[string]*ModifierState `json:"modifiers,omitempty"`
	Inventory         map[string]int            `json:"inventory,omitempty"`
	ClothingInventory map[string]int            `json:"clothing_inventory,omitempty"`
	OwnedOutfits      map[string]bool           `json:"owned_outfits,omitempty"`
	ClothingWorn      map[string]*WornLayer     `json:"clothing_worn,omitempty"`
	ActiveOutfit      string                    `json:"active_outfit,omitempty"`
	// GrantedOutfitItems records which member items an outfit acquisition
	// granted, so removing the outfit returns exactly those.
	GrantedOutfitItems map[string][]string `json:"granted_outfit_items,omitempty"`
	// LocationPin places the character somewhere regardless of schedule.
	LocationPin string `json:"location_pin,omitempty"`
}

// Memory is one entry of the rolling character-memory log.
type Memory struct {
	Text       string   `json:"text"`
	Characters []string `json:"characters"`
	Day        int      `json:"day"`
}

// GameState is the complete mutable session state. It has no behavior beyond
// storage accessors; every mutation happens inside the turn pipeline.
type GameState struct {
	Time     Clock    `json:"time"`
	Position Position `json:"position"`

	Characters map[string]*CharacterState `json:"characters"`
	Flags      map[string]any             `json:"flags"`

	// LocationInventory holds per-location item stock (shops, dropped items).
	LocationInventory map[string]map[string]int `json:"location_inventory,omitempty"`

	DiscoveredLocations map[string]bool `json:"discovered_locations"`
	DiscoveredZones     map[string]bool `json:"discovered_zones"`

	UnlockedActions map[string]bool `json:"unlocked_actions,omitempty"`
	UnlockedEndings []string        `json:"unlocked_endings,omitempty"`

	// Locks is the live lock table by category ("locations", "items", ...).
	// True means locked; ids absent fall back to the definition default.
	Locks map[string]map[string]bool `json:"locks,omitempty"`

	ArcProgress map[string]int      `json:"arc_progress,omitempty"`
	ArcHistory  map[string][]string `json:"arc_history,omitempty"`

	EventCooldowns map[string]int  `json:"event_cooldowns,omitempty"`
	EventsOnce     map[string]bool `json:"events_once,omitempty"`

	// PendingEventChoices lists events whose choices were offered on the
	// previous turn and may still be selected. Rewritten every turn.
	PendingEventChoices []string `json:"pending_event_choices,omitempty"`

	CurrentNode string `json:"current_node"`
	// VisitedNodes records every node ever entered, for once nodes.
	VisitedNodes map[string]bool `json:"visited_nodes,omitempty"`
	// NodeEntryApplied is true once the current node's entry effects ran for
	// this visit.
	NodeEntryApplied  bool `json:"node_entry_applied"`
	TurnsInNode       int  `json:"turns_in_node"`
	TimeInCurrentNode int  `json:"time_in_current_node"` // minutes, for the visit cap

	TurnCount int `json:"turn_count"`

	NarrativeHistory    []string `json:"narrative_history,omitempty"`
	MemoryLog           []Memory `json:"memory_log,omitempty"`
	NarrativeSummary    string   `json:"narrative_summary,omitempty"`
	AITurnsSinceSummary int      `json:"ai_turns_since_summary"`

	BaseRNGSeed int64 `json:"base_rng_seed"`
}

// Char returns the state block for a character id, or nil.
func (s *GameState) Char(id string) *CharacterState {
	return s.Characters[id]
}

// Player returns the player's state block.
func (s *GameState) Player() *CharacterState {
	return s.Characters[game.PlayerID]
}

// Meter reads a meter value; missing meters read as 0.
func (s *GameState) Meter(charID, meterID string) float64 {
	if c := s.Characters[charID]; c != nil {
		return c.Meters[meterID]
	}
	return 0
}

// Flag reads a flag value; missing flags read as nil.
func (s *GameState) Flag(key string) any {
	return s.Flags[key]
}

// ItemCount reads a character's general inventory count.
func (cs *CharacterState) ItemCount(itemID string) int {
	return cs.Inventory[itemID]
}

// ClothingCount reads a character's clothing inventory count (0 or 1).
func (cs *CharacterState) ClothingCount(itemID string) int {
	return cs.ClothingInventory[itemID]
}

// WornIn returns the layer occupying a slot, or nil.
func (cs *CharacterState) WornIn(slot string) *WornLayer {
	return cs.ClothingWorn[slot]
}

// Wearing reports whether the item occupies any slot right now.
func (cs *CharacterState) Wearing(itemID string) bool {
	for _, l := range cs.ClothingWorn {
		if l.Item == itemID {
			return true
		}
	}
	return false
}

// LocationStock returns the live stock map for a location, creating it on
// first write access.
func (s *GameState) LocationStock(locationID string) map[string]int {
	if s.LocationInventory == nil {
		s.LocationInventory = make(map[string]map[string]int)
	}
	stock, ok := s.LocationInventory[locationID]
	if !ok {
		stock = make(map[string]int)
		s.LocationInventory[locationID] = stock
	}
	return stock
}

// Locked reports the live lock state for a category/id pair, falling back
// to the supplied definition default.
func (s *GameState) Locked(category, id string, defDefault bool) bool {
	if byID, ok := s.Locks[category]; ok {
		if v, ok := byID[id]; ok {
			return v
		}
	}
	return defDefault
}

// SetLocked records an explicit lock override.
func (s *GameState) SetLocked(category, id string, locked bool) {
	if s.Locks == nil {
		s.Locks = make(map[string]map[string]bool)
	}
	byID, ok := s.Locks[category]
	if !ok {
		byID = make(map[string]bool)
		s.Locks[category] = byID
	}
	byID[id] = locked
}

// EndingUnlocked reports whether an ending id has been unlocked.
func (s *GameState) EndingUnlocked(id string) bool {
	for _, e := range s.UnlockedEndings {
		if e == id {
			return true
		}
	}
	return false
}

// UnlockEnding appends an ending id once, preserving unlock order.
func (s *GameState) UnlockEnding(id string) {
	if !s.EndingUnlocked(id) {
		s.UnlockedEndings = append(s.UnlockedEndings, id)
	}
}

// ArcStage returns the current stage id for an arc given its definition.
func (s *GameState) ArcStage(a *game.Arc) string {
	idx := s.ArcProgress[a.ID]
	if idx < 0 || idx >= len(a.Stages) {
		return ""
	}
	return a.Stages[idx].ID
}

// PushNarrative appends prose to the bounded narrative history.
func (s *GameState) PushNarrative(text string) {
	if text == "" {
		return
	}
	s.NarrativeHistory = append(s.NarrativeHistory, text)
	if over := len(s.NarrativeHistory) - MaxNarrativeHistory; over > 0 {
		s.NarrativeHistory = s.NarrativeHistory[over:]
	}
}

// PushMemory appends a memory entry to the bounded memory log.
func (s *GameState) PushMemory(m Memory) {
	s.MemoryLog = append(s.MemoryLog, m)
	if over := len(s.MemoryLog) - MaxMemoryLog; over > 0 {
		s.MemoryLog = s.MemoryLog[over:]
	}
}
