package game

// Effect kinds. The resolver switches on these; unknown kinds are logged
// and skipped without aborting the batch.
const (
	EffMeterChange     = "meter_change"
	EffFlagSet         = "flag_set"
	EffInventoryAdd    = "inventory_add"
	EffInventoryRemove = "inventory_remove"
	EffInventoryTake   = "inventory_take"
	EffInventoryDrop   = "inventory_drop"
	EffInventoryGive   = "inventory_give"
	EffPurchase        = "inventory_purchase"
	EffSell            = "inventory_sell"
	EffClothingPutOn   = "clothing_put_on"
	EffClothingTakeOff = "clothing_take_off"
	EffClothingState   = "clothing_state"
	EffClothingSlot    = "clothing_slot_state"
	EffOutfitPutOn     = "outfit_put_on"
	EffOutfitTakeOff   = "outfit_take_off"
	EffMove            = "move"
	EffMoveTo          = "move_to"
	EffTravelTo        = "travel_to"
	EffAdvanceTime     = "advance_time"
	EffAdvanceTimeSlot = "advance_time_slot"
	EffApplyModifier   = "apply_modifier"
	EffRemoveModifier  = "remove_modifier"
	EffUnlock          = "unlock"
	EffLock            = "lock"
	EffGoto            = "goto"
	EffConditional     = "conditional"
	EffRandom          = "random"
)

// Lockable categories for lock/unlock effects.
const (
	CatLocations = "locations"
	CatZones     = "zones"
	CatItems     = "items"
	CatClothing  = "clothing"
	CatOutfits   = "outfits"
	CatActions   = "actions"
	CatEndings   = "endings"
)

// Effect is one atomic unit of state change. A single flat shape covers all
// kinds; Type selects which fields are meaningful. The optional When guard
// skips the effect silently when false.
type Effect struct {
	Type string `yaml:"type" json:"type"`
	When string `yaml:"when,omitempty" json:"when,omitempty"`

	// meter_change
	Target      string `yaml:"target,omitempty" json:"target,omitempty"`
	Meter       string `yaml:"meter,omitempty" json:"meter,omitempty"`
	Op          string `yaml:"op,omitempty" json:"op,omitempty"` // add|subtract|set|multiply|divide
	Value       any    `yaml:"value,omitempty" json:"value,omitempty"`
	RespectCaps *bool  `yaml:"respect_caps,omitempty" json:"respect_caps,omitempty"`
	CapPerTurn  *bool  `yaml:"cap_per_turn,omitempty" json:"cap_per_turn,omitempty"`

	// flag_set
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// inventory_*
	Owner  string  `yaml:"owner,omitempty" json:"owner,omitempty"`
	Item   string  `yaml:"item,omitempty" json:"item,omitempty"`
	Count  int     `yaml:"count,omitempty" json:"count,omitempty"` // defaults to 1
	From   string  `yaml:"from,omitempty" json:"from,omitempty"`
	To     string  `yaml:"to,omitempty" json:"to,omitempty"`
	Buyer  string  `yaml:"buyer,omitempty" json:"buyer,omitempty"`
	Seller string  `yaml:"seller,omitempty" json:"seller,omitempty"`
	Price  float64 `yaml:"price,omitempty" json:"price,omitempty"`

	// clothing_* / outfit_*
	State  string `yaml:"state,omitempty" json:"state,omitempty"`
	Slot   string `yaml:"slot,omitempty" json:"slot,omitempty"`
	Outfit string `yaml:"outfit,omitempty" json:"outfit,omitempty"`

	// move / move_to / travel_to
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`
	Location  string `yaml:"location,omitempty" json:"location,omitempty"`
	Method    string `yaml:"method,omitempty" json:"method,omitempty"`

	// advance_time / advance_time_slot
	Minutes int `yaml:"minutes,omitempty" json:"minutes,omitempty"`
	Slots   int `yaml:"slots,omitempty" json:"slots,omitempty"`

	// apply_modifier / remove_modifier
	Modifier    string `yaml:"modifier,omitempty" json:"modifier,omitempty"`
	DurationMin int    `yaml:"duration_min,omitempty" json:"duration_min,omitempty"`

	// lock / unlock
	Category string   `yaml:"category,omitempty" json:"category,omitempty"`
	IDs      []string `yaml:"ids,omitempty" json:"ids,omitempty"`

	// goto
	Node string `yaml:"node,omitempty" json:"node,omitempty"`

	// conditional
	Then      []*Effect `yaml:"then,omitempty" json:"then,omitempty"`
	Otherwise []*Effect `yaml:"otherwise,omitempty" json:"otherwise,omitempty"`

	// random
	Choices []*WeightedEffects `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// WeightedEffects is one arm of a random effect.
type WeightedEffects struct {
	Weight  float64   `yaml:"weight" json:"weight"`
	Effects []*Effect `yaml:"effects" json:"effects"`
}

// CountOrOne returns Count, defaulting the YAML zero value to 1.
func (e *Effect) CountOrOne() int {
	if e.Count <= 0 {
		return 1
	}
	return e.Count
}

// RespectsCaps reports whether meter clamping applies (default true).
func (e *Effect) RespectsCaps() bool {
	return e.RespectCaps == nil || *e.RespectCaps
}

// CapsPerTurn reports whether the per-turn delta cap applies (default true).
func (e *Effect) CapsPerTurn() bool {
	return e.CapPerTurn == nil || *e.CapPerTurn
}

// NumberValue coerces Value for meter arithmetic.
func (e *Effect) NumberValue() (float64, bool) {
	switch v := e.Value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	return 0, false
}
