package game

// Node types.
const (
	NodeScene     = "scene"
	NodeHub       = "hub"
	NodeEncounter = "encounter"
	NodeEnding    = "ending"
)

type Node struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"` // defaults to "scene"
	Title string `yaml:"title"`

	Preconditions []string `yaml:"preconditions"`
	Once          bool     `yaml:"once"`
	// Locked nodes (typically endings) refuse transitions until an unlock
	// effect names them.
	Locked bool `yaml:"locked"`

	EntryEffects []*Effect `yaml:"entry_effects"`
	ExitEffects  []*Effect `yaml:"exit_effects"`

	Beats     []string   `yaml:"beats"`
	Narration *Narration `yaml:"narration"` // per-node override of game narration

	Choices        []*Choice     `yaml:"choices"`
	DynamicChoices []*Choice     `yaml:"dynamic_choices"`
	Transitions    []*Transition `yaml:"transitions"`

	TimeBehavior *TimeBehavior `yaml:"time_behavior"`
}

// IsEnding reports whether entering this node terminates the session.
func (n *Node) IsEnding() bool { return n.Type == NodeEnding }

// TimeBehavior overrides time-cost resolution while the player is in this
// node.
type TimeBehavior struct {
	Categories  map[string]string `yaml:"categories"`    // action kind → time category
	CapPerVisit int               `yaml:"cap_per_visit"` // minutes; 0: fall through to time defaults
}

type Choice struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`

	Conditions []string `yaml:"conditions"`
	// When conditions fail and DisabledReason is set, the choice is listed
	// disabled with this reason instead of being hidden.
	DisabledReason string `yaml:"disabled_reason"`

	OnSelect []*Effect `yaml:"on_select"`
	Goto     string    `yaml:"goto"` // queued node transition

	TimeCost     int    `yaml:"time_cost"` // explicit minutes bypass the visit cap
	TimeCategory string `yaml:"time_category"`
}

// Transition sends the story to another node when its condition holds.
// An empty When always matches.
type Transition struct {
	To   string `yaml:"to"`
	When string `yaml:"when"`
}

// ActionDef is a globally unlockable action, surfaced in the choice list
// when unlocked and its conditions pass.
type ActionDef struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`

	Conditions []string  `yaml:"conditions"`
	Effects    []*Effect `yaml:"effects"`

	TimeCost     int    `yaml:"time_cost"`
	TimeCategory string `yaml:"time_category"`

	Unlocked bool `yaml:"unlocked"` // available from the start
}
