package game

// Event fires after the player action resolves, when it is off cooldown,
// not spent, and its trigger holds. Random events additionally pass a
// Bernoulli draw with probability min(weight/100, 1); when several random
// events qualify in the same turn, one is sampled by weight.
type Event struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`

	When     string  `yaml:"when"`     // trigger condition; empty = always
	Location string  `yaml:"location"` // scope to a location id; empty = anywhere
	Random   bool    `yaml:"random"`
	Weight   float64 `yaml:"weight"` // percent chance for random events

	Cooldown    int  `yaml:"cooldown"` // minutes before this event may fire again
	OncePerGame bool `yaml:"once_per_game"`

	Effects []*Effect `yaml:"effects"`
	Beats   []string  `yaml:"beats"`
	Choices []*Choice `yaml:"choices"` // injected into the next choice list
	Goto    string    `yaml:"goto"`    // forced node transition
}

// Arc is a long-running storyline: an ordered stage ladder. The stage after
// the current one advances when its condition holds; on_advance effects of
// the stage being left run first, then on_enter of the stage entered.
type Arc struct {
	ID        string      `yaml:"id"`
	Title     string      `yaml:"title"`
	Character string      `yaml:"character"` // optional owner, for character views
	Stages    []*ArcStage `yaml:"stages"`
}

type ArcStage struct {
	ID          string    `yaml:"id"`
	AdvanceWhen string    `yaml:"advance_when"` // condition to enter this stage
	OnEnter     []*Effect `yaml:"on_enter"`
	OnAdvance   []*Effect `yaml:"on_advance"`
}

// StageIndex returns the position of a stage id, or -1.
func (a *Arc) StageIndex(id string) int {
	for i, s := range a.Stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}
