package ai

import (
	"fmt"
	"strings"
)

// Envelope is the structured turn context the engine assembles for the
// model calls. It is plain data; BuildWriterRequest and BuildCheckerRequest
// render it to prompts so the transports never see engine types.
type Envelope struct {
	GameTitle string
	Rating    string
	Style     StyleHints

	Time     TimeInfo
	Location LocationInfo
	Node     NodeInfo

	Player     CharacterCard
	Characters []CharacterCard // present NPCs, in presence order

	ModifierPrompts []string // behavior lines from active modifiers
	Beats           []string // authored guidance: node beats, fired event beats
	Memories        []string // relevant character memories, oldest first

	NarrativeSummary string
	RecentTurns      []string // last few narrative entries, oldest first

	ActionSummary string
	WantSummary   bool // ask the Checker for a fresh rolling summary
}

type StyleHints struct {
	POV           string
	Tense         string
	Voice         string
	MaxParagraphs int
}

type TimeInfo struct {
	Day     int
	HHMM    string
	Slot    string
	Weekday string
}

type LocationInfo struct {
	Zone    string
	ID      string
	Name    string
	Privacy string
}

type NodeInfo struct {
	ID    string
	Type  string
	Title string
}

// CharacterCard is the per-character slice of the envelope. Gates carry the
// authored acceptance and refusal guidance so the Writer can voice consent
// boundaries without seeing raw numbers.
type CharacterCard struct {
	ID        string
	Name      string
	Meters    []MeterReading
	Gates     []GateReading
	Outfit    string   // appearance summary, outermost first
	Modifiers []string // appearance lines from active modifiers
}

type MeterReading struct {
	ID        string
	Value     float64
	Threshold string // label of the highest threshold reached, if any
}

type GateReading struct {
	ID         string
	Open       bool
	Acceptance string
	Refusal    string
}

// BuildWriterRequest renders the prose prompt.
func BuildWriterRequest(env Envelope) Request {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are the narrator of %q, an interactive story", env.GameTitle)
	if env.Rating != "" {
		fmt.Fprintf(&sys, " (rating: %s)", env.Rating)
	}
	sys.WriteString(".\n")
	if env.Style.POV != "" || env.Style.Tense != "" {
		fmt.Fprintf(&sys, "Write in %s person, %s tense.", env.Style.POV, env.Style.Tense)
	}
	if env.Style.Voice != "" {
		fmt.Fprintf(&sys, " Voice: %s.", env.Style.Voice)
	}
	sys.WriteString("\n")
	maxPara := env.Style.MaxParagraphs
	if maxPara <= 0 {
		maxPara = 2
	}
	fmt.Fprintf(&sys, "Write at most %d paragraphs.\n", maxPara)
	sys.WriteString(`Rules:
- Narrate only the player's action and its immediate consequences.
- Never mention numbers, meters, stats, game mechanics or JSON.
- A closed gate means the character declines; use the refusal line as the emotional truth of the moment.
- Do not move the scene to another place or time on your own.
- Do not speak or act for the player beyond their stated action.`)

	var usr strings.Builder
	usr.WriteString("## Scene\n")
	fmt.Fprintf(&usr, "Day %d (%s), %s, %s.\n", env.Time.Day, env.Time.Weekday, env.Time.HHMM, env.Time.Slot)
	fmt.Fprintf(&usr, "Location: %s (%s, privacy %s).\n", locationLabel(env.Location), env.Location.Zone, env.Location.Privacy)
	if env.Node.Title != "" {
		fmt.Fprintf(&usr, "Current beat: %s (%s).\n", env.Node.Title, env.Node.Type)
	}

	writeCard(&usr, "## You", env.Player)
	if len(env.Characters) > 0 {
		usr.WriteString("\n## Present\n")
		for _, c := range env.Characters {
			writeCard(&usr, "### "+displayName(c), c)
		}
	}
	if len(env.ModifierPrompts) > 0 {
		usr.WriteString("\n## Current states\n")
		for _, p := range env.ModifierPrompts {
			fmt.Fprintf(&usr, "- %s\n", p)
		}
	}
	if env.NarrativeSummary != "" {
		usr.WriteString("\n## Story so far\n")
		usr.WriteString(env.NarrativeSummary)
		usr.WriteString("\n")
	}
	if len(env.Memories) > 0 {
		usr.WriteString("\n## Remembered\n")
		for _, m := range env.Memories {
			fmt.Fprintf(&usr, "- %s\n", m)
		}
	}
	if len(env.RecentTurns) > 0 {
		usr.WriteString("\n## Recent turns\n")
		for _, t := range env.RecentTurns {
			usr.WriteString(t)
			usr.WriteString("\n\n")
		}
	}
	if len(env.Beats) > 0 {
		usr.WriteString("\n## Guidance\n")
		for _, b := range env.Beats {
			fmt.Fprintf(&usr, "- %s\n", b)
		}
	}
	usr.WriteString("\n## Player action\n")
	usr.WriteString(env.ActionSummary)
	usr.WriteString("\n\nContinue the scene.")

	return Request{Kind: KindWriter, System: sys.String(), User: usr.String()}
}

// BuildCheckerRequest renders the state-extraction prompt over the Writer's
// prose. The reply must be a single JSON object in the CheckerResult schema.
func BuildCheckerRequest(env Envelope, prose string) Request {
	var sys strings.Builder
	sys.WriteString(`You read a turn of interactive fiction and report what changed as JSON.
Reply with one JSON object and nothing else. Schema (all keys optional):
{
  "safety": {"ok": true, "violations": []},
  "meters": {"<character>": {"<meter>": "+5" | "-3" | "=40"}},
  "flags": {"<flag>": <value>},
  "inventory": {"<character>": {"<item>": "+1" | "-1"}},
  "clothing": {"<character>": {"<slot>": "intact" | "opened" | "displaced" | "removed"}},
  "modifiers": {"<character>": [{"apply": "<id>", "duration_min": 30} | {"remove": "<id>"}]},
  "location": {"zone": "<zone>", "id": "<location>"} or null,
  "events_fired": ["<event id>"],
  "node_transition": "<node id>" or "",
  "character_memories": {"<character>": "<one line>"},
  "narrative_summary": "<two or three sentences>"
}
Report only changes the prose actually depicts. Do not invent changes.
Meter deltas are small: a warm moment is +2 or +3, a breakthrough +5.
If the prose depicts nothing that violates a stated boundary, safety.ok is true.`)

	var usr strings.Builder
	usr.WriteString("## State before the turn\n")
	fmt.Fprintf(&usr, "Time: day %d, %s (%s). Location: %s in zone %s.\n",
		env.Time.Day, env.Time.HHMM, env.Time.Slot, env.Location.ID, env.Location.Zone)
	writeCheckerCard(&usr, env.Player)
	for _, c := range env.Characters {
		writeCheckerCard(&usr, c)
	}
	usr.WriteString("\n## Player action\n")
	usr.WriteString(env.ActionSummary)
	usr.WriteString("\n\n## Prose\n")
	usr.WriteString(prose)
	usr.WriteString("\n\nEmit the JSON object now.")
	if env.WantSummary {
		usr.WriteString(" Include a fresh narrative_summary of the story so far.")
	}

	return Request{Kind: KindChecker, System: sys.String(), User: usr.String(), JSONMode: true}
}

func writeCard(sb *strings.Builder, heading string, c CharacterCard) {
	sb.WriteString("\n")
	sb.WriteString(heading)
	sb.WriteString("\n")
	for _, m := range c.Meters {
		if m.Threshold != "" {
			fmt.Fprintf(sb, "- %s: %s\n", m.ID, m.Threshold)
		}
	}
	if c.Outfit != "" {
		fmt.Fprintf(sb, "- wearing: %s\n", c.Outfit)
	}
	for _, line := range c.Modifiers {
		fmt.Fprintf(sb, "- %s\n", line)
	}
	for _, g := range c.Gates {
		if g.Open && g.Acceptance != "" {
			fmt.Fprintf(sb, "- would accept: %s\n", g.Acceptance)
		}
		if !g.Open && g.Refusal != "" {
			fmt.Fprintf(sb, "- would refuse: %s\n", g.Refusal)
		}
	}
}

// writeCheckerCard includes raw meter values; the Checker needs numbers the
// Writer must never see.
func writeCheckerCard(sb *strings.Builder, c CharacterCard) {
	fmt.Fprintf(sb, "%s (%s):", displayName(c), c.ID)
	if len(c.Meters) == 0 {
		sb.WriteString(" no meters")
	}
	for i, m := range c.Meters {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, " %s=%g", m.ID, m.Value)
	}
	sb.WriteString("\n")
	for _, g := range c.Gates {
		state := "closed"
		if g.Open {
			state = "open"
		}
		fmt.Fprintf(sb, "  gate %s: %s\n", g.ID, state)
	}
}

func displayName(c CharacterCard) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func locationLabel(l LocationInfo) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}
