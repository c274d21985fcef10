package game

// Modifier stacking policies within a group.
const (
	StackHighest = "highest"
	StackAll     = "all"
)

// Modifier is a temporary overlay on a character: drunk, injured, soaked.
// Modifiers with a When condition auto-activate and auto-clear; explicit
// ones come and go through effects. Durations are minutes of game time.
type Modifier struct {
	ID    string `yaml:"id"`
	Group string `yaml:"group"`

	When               string `yaml:"when"`                 // auto-activation condition
	DurationDefaultMin int    `yaml:"duration_default_min"` // 0: no expiry

	Appearance string           `yaml:"appearance"` // writer-facing description
	Behavior   ModifierBehavior `yaml:"behavior"`
	Safety     ModifierSafety   `yaml:"safety"`

	// ClampMeters narrows a meter's range while the modifier is active.
	ClampMeters map[string]*ClampRange `yaml:"clamp_meters"`

	EntryEffects []*Effect `yaml:"entry_effects"`
	ExitEffects  []*Effect `yaml:"exit_effects"`

	Exclusions []string `yaml:"exclusions"` // modifier ids barred while this is active
	Stacking   string   `yaml:"stacking"`   // defaults to "highest"
}

type ModifierBehavior struct {
	Prompt string `yaml:"prompt"` // extra writer guidance while active
	// TravelTimeMultiplier scales active-method travel time (0 = no effect).
	TravelTimeMultiplier float64 `yaml:"travel_time_multiplier"`
}

// ModifierSafety clamps gates while the modifier is active: DisallowGates
// are forced false after gate evaluation.
type ModifierSafety struct {
	DisallowGates []string `yaml:"disallow_gates"`
	AllowGates    []string `yaml:"allow_gates"`
}

type ClampRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Excludes reports whether other is barred while this modifier is active.
func (m *Modifier) Excludes(other string) bool {
	for _, x := range m.Exclusions {
		if x == other {
			return true
		}
	}
	return false
}
