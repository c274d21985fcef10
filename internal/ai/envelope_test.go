package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEnvelope() Envelope {
	return Envelope{
		GameTitle: "A Riverside Morning",
		Rating:    "mature",
		Style:     StyleHints{POV: "second", Tense: "present", Voice: "warm, grounded", MaxParagraphs: 3},
		Time:      TimeInfo{Day: 1, HHMM: "08:15", Slot: "morning", Weekday: "saturday"},
		Location:  LocationInfo{Zone: "riverside", ID: "cafe_patio", Name: "Cafe Patio", Privacy: "low"},
		Node:      NodeInfo{ID: "cafe_hub", Type: "hub", Title: "Morning at the Cafe"},
		Player: CharacterCard{
			ID: "player", Name: "Alex",
			Meters: []MeterReading{{ID: "money", Value: 10}, {ID: "energy", Value: 70}},
		},
		Characters: []CharacterCard{{
			ID: "emma", Name: "Emma",
			Meters: []MeterReading{{ID: "trust", Value: 30, Threshold: "wary"}},
			Gates: []GateReading{{
				ID: "accept_kiss", Open: false,
				Refusal: "Emma steps back, not ready for that yet.",
			}},
			Outfit: "a yellow sundress and flats",
		}},
		ModifierPrompts:  []string{"The player is visibly drunk."},
		Beats:            []string{"The espresso machine hisses."},
		Memories:         []string{"Emma: Alex remembered her order."},
		NarrativeSummary: "Alex and Emma have been circling each other for days.",
		RecentTurns:      []string{"You wave. Emma smiles."},
		ActionSummary:    `You say: "Morning, Emma."`,
	}
}

func TestBuildWriterRequest(t *testing.T) {
	req := BuildWriterRequest(sampleEnvelope())
	require.Equal(t, KindWriter, req.Kind)
	require.False(t, req.JSONMode)

	require.Contains(t, req.System, `"A Riverside Morning"`)
	require.Contains(t, req.System, "second person, present tense")
	require.Contains(t, req.System, "at most 3 paragraphs")
	require.Contains(t, req.System, "Never mention numbers")

	for _, want := range []string{
		"Day 1 (saturday), 08:15, morning",
		"Cafe Patio",
		"privacy low",
		"Emma",
		"trust: wary",
		"would refuse: Emma steps back, not ready for that yet.",
		"a yellow sundress and flats",
		"The player is visibly drunk.",
		"The espresso machine hisses.",
		"Alex remembered her order.",
		"circling each other",
		"You wave. Emma smiles.",
		`You say: "Morning, Emma."`,
	} {
		require.Contains(t, req.User, want)
	}
	// Raw numbers stay out of the writer prompt.
	require.NotContains(t, req.User, "trust=30")
	require.NotContains(t, req.User, "money")
}

func TestBuildWriterRequestDefaults(t *testing.T) {
	req := BuildWriterRequest(Envelope{GameTitle: "Tiny", Style: StyleHints{}})
	require.Contains(t, req.System, "at most 2 paragraphs")
}

func TestBuildCheckerRequest(t *testing.T) {
	env := sampleEnvelope()
	prose := "Emma laughs and waves you over."
	req := BuildCheckerRequest(env, prose)

	require.Equal(t, KindChecker, req.Kind)
	require.True(t, req.JSONMode)
	require.Contains(t, req.System, `"safety"`)
	require.Contains(t, req.System, `"node_transition"`)
	require.Contains(t, req.User, "trust=30")
	require.Contains(t, req.User, "gate accept_kiss: closed")
	require.Contains(t, req.User, prose)
	require.Contains(t, req.User, "Emit the JSON object now.")
	require.NotContains(t, req.User, "narrative_summary of the story so far")

	env.WantSummary = true
	req = BuildCheckerRequest(env, prose)
	require.Contains(t, req.User, "fresh narrative_summary")
}

func TestCheckerRetryDirective(t *testing.T) {
	require.True(t, strings.Contains(CheckerRetryDirective, "JSON object only"))
}
