package game

// Item is a general inventory item. Hook effect lists run on ownership
// transitions; `use` runs OnUse and consumes one unit when Consumable.
type Item struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Stackable  bool `yaml:"stackable"`
	Consumable bool `yaml:"consumable"`
	// Droppable defaults to true; can_give is opt-in.
	Droppable *bool   `yaml:"droppable"`
	CanGive   bool    `yaml:"can_give"`
	Value     float64 `yaml:"value"`

	OnGet  []*Effect `yaml:"on_get"`
	OnLost []*Effect `yaml:"on_lost"`
	OnGive []*Effect `yaml:"on_give"`
	OnUse  []*Effect `yaml:"on_use"`
}

// CanDrop reports whether the item may be left at a location.
func (it *Item) CanDrop() bool {
	return it.Droppable == nil || *it.Droppable
}

// Clothing layer states.
const (
	ClothingIntact    = "intact"
	ClothingOpened    = "opened"
	ClothingDisplaced = "displaced"
	ClothingRemoved   = "removed"
)

// ValidClothingState reports whether s names a layer state.
func ValidClothingState(s string) bool {
	switch s {
	case ClothingIntact, ClothingOpened, ClothingDisplaced, ClothingRemoved:
		return true
	}
	return false
}

// ClothingItem is a wearable. It occupies one or more slots and may conceal
// inner slots while intact. Clothing never stacks: owned count is 0 or 1.
type ClothingItem struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Occupies []string `yaml:"occupies"`
	Conceals []string `yaml:"conceals"`
	CanOpen  bool     `yaml:"can_open"`

	Locked     bool   `yaml:"locked"`
	UnlockWhen string `yaml:"unlock_when"`

	Value float64 `yaml:"value"`

	// Per-state appearance lines for prompt composition, keyed by layer
	// state ("intact", "opened", "displaced").
	States map[string]string `yaml:"states"`
}

// ConcealsSlot reports whether this item hides the given slot while intact.
func (ci *ClothingItem) ConcealsSlot(slot string) bool {
	for _, s := range ci.Conceals {
		if s == slot {
			return true
		}
	}
	return false
}

// Outfit is an ordered set of clothing items composed slot by slot; later
// items win contested slots. GrantItems outfits hand the player any member
// items they do not already own when the outfit is acquired.
type Outfit struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Items       []string `yaml:"items"`
	GrantItems  bool     `yaml:"grant_items"`
	Value       float64  `yaml:"value"`
}
