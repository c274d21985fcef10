package engine

import (
	"math/rand"
	"strings"

	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

// viewCtx builds a read-only turn context: presence and gates resolved
// against the live state, the committed turn's RNG stream, no snapshot.
func (rt *Runtime) viewCtx() *turnCtx {
	tc := &turnCtx{
		turn:   rt.st.TurnCount,
		rng:    rand.New(rand.NewSource(rt.st.BaseRNGSeed + int64(rt.st.TurnCount))),
		gates:  map[string]bool{},
		warned: map[string]bool{},
	}
	tc.snapshot = rt.st
	rt.resolvePresence(tc)
	rt.evaluateGates(tc)
	return tc
}

// Describe renders the current state summary and choice list without
// running a turn. Pending event choices are re-listed, never consumed, so
// a state read cannot shorten their selection window.
func (rt *Runtime) Describe() (*Summary, []Choice) {
	tc := rt.viewCtx()
	for _, eventID := range rt.st.PendingEventChoices {
		if e := rt.g.EventByID(eventID); e != nil {
			tc.eventChoices = append(tc.eventChoices, e.Choices...)
		}
	}
	tc.choiceEvents = append([]string(nil), rt.st.PendingEventChoices...)
	choices := rt.buildChoices(tc)
	return rt.buildSummary(tc), choices
}

// CharacterRef names one character.
type CharacterRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CharacterListEntry is one row of the cast list.
type CharacterListEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Present  bool   `json:"present"`
	Location string `json:"location,omitempty"` // empty while unplaced
}

// CharacterList is the cast as the client sees it.
type CharacterList struct {
	Player     CharacterRef         `json:"player"`
	Characters []CharacterListEntry `json:"characters"`
}

// Characters lists the cast with live presence and placement.
func (rt *Runtime) Characters() CharacterList {
	tc := rt.viewCtx()
	out := CharacterList{
		Player: CharacterRef{ID: game.PlayerID, Name: rt.charName(game.PlayerID)},
	}
	for _, c := range rt.g.Characters {
		if c.ID == game.PlayerID {
			continue
		}
		out.Characters = append(out.Characters, CharacterListEntry{
			ID:       c.ID,
			Name:     c.Name,
			Present:  tc.isPresent(c.ID),
			Location: rt.characterLocation(tc, c),
		})
	}
	return out
}

// GateView is one permission gate with its current evaluation.
type GateView struct {
	ID         string `json:"id"`
	Allow      bool   `json:"allow"`
	Condition  string `json:"condition,omitempty"`
	Acceptance string `json:"acceptance,omitempty"`
	Refusal    string `json:"refusal,omitempty"`
}

// CharacterView is the full character card.
type CharacterView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Age           int            `json:"age,omitempty"`
	Gender        string         `json:"gender,omitempty"`
	Pronouns      string         `json:"pronouns,omitempty"`
	Personality   string         `json:"personality,omitempty"`
	Appearance    string         `json:"appearance,omitempty"`
	DialogueStyle string         `json:"dialogue_style,omitempty"`
	Gates         []GateView     `json:"gates,omitempty"`
	Memories      []state.Memory `json:"memories,omitempty"`
	Meters        []MeterValue   `json:"meters,omitempty"`
	Modifiers     []string       `json:"modifiers,omitempty"`
	Wearing       string         `json:"wearing,omitempty"`
	Present       bool           `json:"present"`
	Location      string         `json:"location,omitempty"`
}

// CharacterView builds the card for one character. The player sees every
// memory; other cards carry only the memories tagged with them. The second
// return is false for ids outside the cast.
func (rt *Runtime) CharacterView(charID string) (*CharacterView, bool) {
	c := rt.g.CharacterByID(charID)
	if c == nil && charID != game.PlayerID {
		return nil, false
	}
	tc := rt.viewCtx()

	v := &CharacterView{
		ID:        charID,
		Name:      rt.charName(charID),
		Meters:    rt.visibleMeters(charID),
		Modifiers: rt.activeModifierIDs(charID),
		Wearing:   rt.appearanceSummary(charID),
	}
	if c != nil {
		v.Age = c.Age
		v.Gender = c.Gender
		v.Pronouns = c.Pronouns
		v.Personality = c.Personality
		v.Appearance = c.Appearance
		v.DialogueStyle = c.DialogueStyle
		for _, gd := range c.Gates {
			v.Gates = append(v.Gates, GateView{
				ID:         gd.ID,
				Allow:      tc.gates[charID+"."+gd.ID],
				Condition:  gateCondition(gd),
				Acceptance: gd.Acceptance,
				Refusal:    gd.Refusal,
			})
		}
	}

	if charID == game.PlayerID {
		v.Present = true
		v.Location = rt.st.Position.Location
		v.Memories = append(v.Memories, rt.st.MemoryLog...)
		return v, true
	}

	v.Present = tc.isPresent(charID)
	v.Location = rt.characterLocation(tc, c)
	for _, mem := range rt.st.MemoryLog {
		for _, id := range mem.Characters {
			if id == charID {
				v.Memories = append(v.Memories, mem)
				break
			}
		}
	}
	return v, true
}

// StoryEvents returns the memory log, oldest first.
func (rt *Runtime) StoryEvents() []state.Memory {
	return append([]state.Memory(nil), rt.st.MemoryLog...)
}

func gateCondition(gd *game.Gate) string {
	switch {
	case gd.When != "":
		return gd.When
	case len(gd.WhenAll) > 0:
		return strings.Join(gd.WhenAll, " and ")
	case len(gd.WhenAny) > 0:
		return strings.Join(gd.WhenAny, " or ")
	}
	return ""
}
