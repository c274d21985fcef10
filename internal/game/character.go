package game

import "strings"

// Meter is a bounded numeric variable attached to a character. Decay values
// are subtracted at day/slot boundaries; negative decay regenerates.
type Meter struct {
	Min             float64            `yaml:"min"`
	Max             float64            `yaml:"max"`
	Default         float64            `yaml:"default"`
	DecayPerDay     float64            `yaml:"decay_per_day"`
	DecayPerSlot    float64            `yaml:"decay_per_slot"`
	DeltaCapPerTurn float64            `yaml:"delta_cap_per_turn"` // 0: uncapped
	Hidden          bool               `yaml:"hidden"`
	Thresholds      map[string]float64 `yaml:"thresholds"` // label → floor value, for character cards

	// RequiresGate ties AI-proposed deltas to a gate: "gate" (on the meter's
	// owner) or "char.gate". Authored effects are not gated by this.
	RequiresGate string `yaml:"requires_gate"`
}

// MeterConfig splits meter definitions between the player and the template
// shared by every NPC. Characters may add or override meters individually.
type MeterConfig struct {
	Player   map[string]*Meter `yaml:"player"`
	Template map[string]*Meter `yaml:"character_template"`
}

// FlagDef types a global flag and optionally restricts its values.
type FlagDef struct {
	Type          string `yaml:"type"` // "bool", "number" or "string"
	Default       any    `yaml:"default"`
	AllowedValues []any  `yaml:"allowed_values"`
	Hidden        bool   `yaml:"hidden"`
	Description   string `yaml:"description"`

	// RequiresGate ties AI-proposed writes to a gate, qualified as
	// "char.gate". Authored effects are not gated by this.
	RequiresGate string `yaml:"requires_gate"`
}

// Gate is an author-defined boolean permission, recomputed every turn. A
// gate is true when `when` holds, or any of `when_any`, or all of
// `when_all`. Acceptance and refusal lines feed the Writer and the refusal
// path of the Checker.
type Gate struct {
	ID         string   `yaml:"id"`
	When       string   `yaml:"when"`
	WhenAny    []string `yaml:"when_any"`
	WhenAll    []string `yaml:"when_all"`
	Acceptance string   `yaml:"acceptance"`
	Refusal    string   `yaml:"refusal"`
}

// ScheduleRule places a character at a location when its condition holds.
// Rules are evaluated in declaration order; first match wins.
type ScheduleRule struct {
	When     string `yaml:"when"`
	Location string `yaml:"location"`
}

type Character struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Age           int    `yaml:"age"`
	Gender        string `yaml:"gender"`
	Pronouns      string `yaml:"pronouns"`
	Personality   string `yaml:"personality"`
	Appearance    string `yaml:"appearance"`
	DialogueStyle string `yaml:"dialogue_style"`

	Meters   map[string]*Meter `yaml:"meters"` // overlays the character template
	Gates    []*Gate           `yaml:"gates"`
	Schedule []*ScheduleRule   `yaml:"schedule"`

	// Starting state.
	Inventory     map[string]int `yaml:"inventory"`
	ClothingItems []string       `yaml:"clothing_items"`
	Outfits       []string       `yaml:"outfits"`
	WearOutfit    string         `yaml:"wear_outfit"`
	Location      string         `yaml:"location"` // initial pin; empty = schedule only
}

// GateByID returns the character's gate definition, or nil.
func (c *Character) GateByID(id string) *Gate {
	for _, g := range c.Gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// SplitGateRef resolves a "char.gate" or bare "gate" reference against a
// default owner.
func SplitGateRef(ref, defaultOwner string) (charID, gateID string) {
	if i := strings.IndexByte(ref, '.'); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return defaultOwner, ref
}
