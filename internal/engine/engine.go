// Package engine runs turns: it owns the deterministic pipeline that takes
// one player action through validation, authored effects, events, the
// Writer/Checker calls, node transitions, time and arc bookkeeping, and
// produces the next TurnResult. One Runtime serves one session; the game
// definition it reads is shared and never written.
package engine

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

var (
	// ErrSessionEnded refuses actions after an ending node was entered.
	ErrSessionEnded = errors.New("session has ended")
	// ErrInvalidAction rejects malformed requests before any state changes.
	ErrInvalidAction = errors.New("invalid action")
	// ErrUnknownChoice rejects choice ids that resolve to nothing.
	ErrUnknownChoice = errors.New("unknown choice")
)

// Options tunes the AI phases. Zero values disable nothing; they fall back
// to conservative defaults.
type Options struct {
	WriterDeadline        time.Duration
	CheckerDeadline       time.Duration
	HistoryWindow         int // narrative turns sent to the Writer
	MemorySummaryInterval int // AI turns between rolling summary refreshes
}

func (o Options) withDefaults() Options {
	if o.WriterDeadline <= 0 {
		o.WriterDeadline = 60 * time.Second
	}
	if o.CheckerDeadline <= 0 {
		o.CheckerDeadline = 30 * time.Second
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 6
	}
	if o.MemorySummaryInterval <= 0 {
		o.MemorySummaryInterval = 10
	}
	return o
}

// Runtime drives one session. It is not safe for concurrent use; the
// session layer serializes turns.
type Runtime struct {
	g    *game.Game
	st   *state.GameState
	ai   ai.Client
	log  *zap.Logger
	opts Options
}

// New builds a Runtime over an existing state (fresh or restored).
func New(g *game.Game, st *state.GameState, client ai.Client, log *zap.Logger, opts Options) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{g: g, st: st, ai: client, log: log, opts: opts.withDefaults()}
}

// Game returns the shared game definition.
func (rt *Runtime) Game() *game.Game { return rt.g }

// State returns the live session state. Callers must not mutate it while a
// turn is running.
func (rt *Runtime) State() *state.GameState { return rt.st }

// Ended reports whether the session sits on an ending node.
func (rt *Runtime) Ended() bool {
	n := rt.g.NodeByID(rt.st.CurrentNode)
	return n != nil && n.IsEnding()
}

// Action kinds accepted by RunTurn.
const (
	ActSay      = "say"
	ActDo       = "do"
	ActChoice   = "choice"
	ActUse      = "use"
	ActGive     = "give"
	ActMove     = "move"
	ActGoto     = "goto"
	ActTravel   = "travel"
	ActPurchase = "purchase"
	ActSell     = "sell"
)

// Action is one player input.
type Action struct {
	Type     string   `json:"action_type"`
	Text     string   `json:"text,omitempty"`      // say/do content
	ChoiceID string   `json:"choice_id,omitempty"` // choice
	ItemID   string   `json:"item_id,omitempty"`   // use/give/purchase/sell
	Target   string   `json:"target,omitempty"`    // give recipient; purchase/sell counterparty
	Count    int      `json:"count,omitempty"`     // purchase/sell, defaults to 1
	Price    *float64 `json:"price,omitempty"`     // purchase/sell override

	Direction string `json:"direction,omitempty"` // move
	Location  string `json:"location,omitempty"`  // goto/travel destination
	Method    string `json:"method,omitempty"`    // travel method

	// WithCharacters asks present companions to come along on a movement
	// action. Any unwilling companion fails the whole move.
	WithCharacters []string `json:"with_characters,omitempty"`

	TimeCost *int `json:"time_cost,omitempty"` // explicit minutes override

	SkipAI          bool `json:"skip_ai,omitempty"`
	SkipNodeEffects bool `json:"skip_node_effects,omitempty"`
}

// Choice is one entry of the composed choice list.
type Choice struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"` // why a disabled choice is closed
	Kind    string `json:"kind"`             // node|dynamic|action|move|travel|event
}

// TurnResult is what a committed turn returns.
type TurnResult struct {
	Turn              int      `json:"turn"`
	Narrative         string   `json:"narrative"`
	StateSummary      *Summary `json:"state_summary"`
	Choices           []Choice `json:"choices"`
	ActionSummary     string   `json:"action_summary"`
	EventsFired       []string `json:"events_fired"`
	MilestonesReached []string `json:"milestones_reached"`
	AIFailed          bool     `json:"ai_failed,omitempty"`
	Ended             bool     `json:"ended,omitempty"`
}

// Stream event types emitted by RunTurnStream, in order: the action summary
// first, narrative chunks while the Writer runs, checker status, then the
// complete result.
const (
	StreamActionSummary  = "action_summary"
	StreamNarrativeChunk = "narrative_chunk"
	StreamCheckerStatus  = "checker_status"
	StreamComplete       = "complete"
)

// StreamEvent is one server-push frame of a streamed turn.
type StreamEvent struct {
	Type   string      `json:"type"`
	Text   string      `json:"text,omitempty"`
	Result *TurnResult `json:"result,omitempty"`
}

// turnCtx carries everything scoped to a single turn.
type turnCtx struct {
	turn     int
	rng      *rand.Rand
	snapshot *state.GameState
	action   Action

	skipAI bool
	forced bool // event forced a transition; AI phases are skipped

	present []string        // character ids here this turn, player first
	gates   map[string]bool // "char.gate" → open

	actionSummary string
	beats         []string // event beats, surfaced when the turn ends proseless
	parts         []string // refusal lines, always surfaced
	prose         string   // writer output

	// resolved by findChoice when the action is a choice
	choice    *game.Choice
	actionDef *game.ActionDef

	minutes         int  // resolved action time
	explicitMinutes bool // minutes came from an explicit time_cost

	pendingGoto string
	nodeChanged bool

	eventsFired  []string
	eventChoices []*game.Choice
	choiceEvents []string // events whose choices stay selectable next turn
	milestones   []string

	meterDeltas map[string]float64 // "owner.meter" → net turn delta, for caps
	hooksRun    map[string]bool    // item hook dedup within the turn
	warned      map[string]bool    // expression warning dedup within the turn

	aiFailed bool
	checker  *ai.CheckerResult
}

func (tc *turnCtx) refuse(text string) {
	if text == "" {
		text = "That does not work right now."
	}
	tc.parts = append(tc.parts, text)
}

func (tc *turnCtx) isPresent(charID string) bool {
	for _, id := range tc.present {
		if id == charID {
			return true
		}
	}
	return false
}
