package engine

import (
	"sort"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/game"
)

// presentMemoryWindow bounds how many remembered moments ride along.
const presentMemoryWindow = 5

// buildEnvelope assembles the turn context for the model calls. The Writer
// sees thresholds and appearance, never numbers; numbers travel only on the
// Checker's side of the same envelope.
func (rt *Runtime) buildEnvelope(tc *turnCtx) ai.Envelope {
	n := rt.g.NodeByID(rt.st.CurrentNode)
	loc := rt.g.LocationByID(rt.st.Position.Location)

	env := ai.Envelope{
		GameTitle: rt.g.Meta.Title,
		Rating:    rt.g.Meta.ContentRating,
		Style:     rt.styleHints(n),
		Time: ai.TimeInfo{
			Day:     rt.st.Time.Day,
			HHMM:    rt.st.Time.HHMM(),
			Slot:    rt.st.Time.Slot(&rt.g.Time),
			Weekday: rt.st.Time.Weekday(&rt.g.Time),
		},
		Location: ai.LocationInfo{
			Zone: rt.st.Position.Zone,
			ID:   rt.st.Position.Location,
		},
		Player:           rt.buildCard(tc, game.PlayerID),
		ModifierPrompts:  rt.activeModifierPrompts(tc.present),
		NarrativeSummary: rt.st.NarrativeSummary,
		ActionSummary:    tc.actionSummary,
		WantSummary:      rt.st.AITurnsSinceSummary+1 >= rt.opts.MemorySummaryInterval,
	}
	if loc != nil {
		env.Location.Name = loc.Name
		env.Location.Privacy = loc.Privacy
	}
	if n != nil {
		env.Node = ai.NodeInfo{ID: n.ID, Type: n.Type, Title: n.Title}
		env.Beats = append(env.Beats, n.Beats...)
	}
	env.Beats = append(env.Beats, tc.beats...)

	for _, charID := range tc.present {
		if charID == game.PlayerID {
			continue
		}
		env.Characters = append(env.Characters, rt.buildCard(tc, charID))
	}

	env.Memories = rt.presentMemories(tc)

	if hist := rt.st.NarrativeHistory; len(hist) > 0 {
		from := len(hist) - rt.opts.HistoryWindow
		if from < 0 {
			from = 0
		}
		env.RecentTurns = append(env.RecentTurns, hist[from:]...)
	}
	return env
}

// styleHints resolves narration style with the node override winning.
func (rt *Runtime) styleHints(n *game.Node) ai.StyleHints {
	h := ai.StyleHints{
		POV:           rt.g.Narration.POV,
		Tense:         rt.g.Narration.Tense,
		Voice:         rt.g.Narration.Style,
		MaxParagraphs: rt.g.Narration.MaxParagraphs,
	}
	if n != nil && n.Narration != nil {
		if n.Narration.POV != "" {
			h.POV = n.Narration.POV
		}
		if n.Narration.Tense != "" {
			h.Tense = n.Narration.Tense
		}
		if n.Narration.Style != "" {
			h.Voice = n.Narration.Style
		}
		if n.Narration.MaxParagraphs > 0 {
			h.MaxParagraphs = n.Narration.MaxParagraphs
		}
	}
	return h
}

// buildCard renders one character for the envelope: visible meters with
// their threshold labels, this turn's gate verdicts with the authored
// acceptance and refusal lines, and what they visibly wear.
func (rt *Runtime) buildCard(tc *turnCtx, charID string) ai.CharacterCard {
	card := ai.CharacterCard{
		ID:        charID,
		Name:      rt.cardName(charID),
		Outfit:    rt.appearanceSummary(charID),
		Modifiers: rt.modifierAppearances(charID),
	}

	cs := rt.st.Char(charID)
	if cs != nil {
		meterIDs := make([]string, 0, len(cs.Meters))
		for id := range cs.Meters {
			meterIDs = append(meterIDs, id)
		}
		sort.Strings(meterIDs)
		for _, meterID := range meterIDs {
			def := rt.g.MeterDef(charID, meterID)
			if def == nil || def.Hidden {
				continue
			}
			card.Meters = append(card.Meters, ai.MeterReading{
				ID:        meterID,
				Value:     cs.Meters[meterID],
				Threshold: thresholdLabel(def, cs.Meters[meterID]),
			})
		}
	}

	if c := rt.g.CharacterByID(charID); c != nil {
		for _, gd := range c.Gates {
			card.Gates = append(card.Gates, ai.GateReading{
				ID:         gd.ID,
				Open:       tc.gates[charID+"."+gd.ID],
				Acceptance: gd.Acceptance,
				Refusal:    gd.Refusal,
			})
		}
	}
	return card
}

func (rt *Runtime) cardName(charID string) string {
	if charID == game.PlayerID {
		if c := rt.g.CharacterByID(charID); c != nil && c.Name != "" {
			return c.Name
		}
		return "You"
	}
	return rt.charName(charID)
}

// thresholdLabel picks the label of the highest threshold floor the value
// has reached.
func thresholdLabel(def *game.Meter, value float64) string {
	best := ""
	bestFloor := 0.0
	found := false
	for label, floor := range def.Thresholds {
		if value < floor {
			continue
		}
		if !found || floor > bestFloor || (floor == bestFloor && label < best) {
			best, bestFloor, found = label, floor, true
		}
	}
	return best
}

// presentMemories picks the most recent remembered moments involving the
// characters in the room, oldest first.
func (rt *Runtime) presentMemories(tc *turnCtx) []string {
	var picked []string
	for i := len(rt.st.MemoryLog) - 1; i >= 0 && len(picked) < presentMemoryWindow; i-- {
		m := rt.st.MemoryLog[i]
		for _, charID := range m.Characters {
			if tc.isPresent(charID) {
				picked = append(picked, m.Text)
				break
			}
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}
