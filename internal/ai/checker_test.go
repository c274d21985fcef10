package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCheckerFullDocument(t *testing.T) {
	raw := `{
		"safety": {"ok": false, "violations": ["boundary"]},
		"meters": {"emma": {"trust": "+5", "attraction": "=20"}},
		"flags": {"first_kiss": true, "weather": "rain"},
		"inventory": {"player": {"coffee": "-1"}},
		"clothing": {"emma": {"top": "displaced"}},
		"modifiers": {"player": [{"apply": "drunk", "duration_min": 30}, {"remove": "tipsy"}]},
		"location": {"zone": "riverside", "id": "park"},
		"events_fired": ["cafe_morning_rush"],
		"node_transition": "first_date",
		"character_memories": {"emma": "Alex bought her flowers."},
		"narrative_summary": "They met at the cafe."
	}`
	res, err := ParseChecker(raw)
	require.NoError(t, err)
	require.False(t, res.Safety.OK)
	require.Equal(t, []string{"boundary"}, res.Safety.Violations)
	require.Equal(t, "+5", res.Meters["emma"]["trust"])
	require.Equal(t, true, res.Flags["first_kiss"])
	require.Equal(t, "-1", res.Inventory["player"]["coffee"])
	require.Equal(t, "displaced", res.Clothing["emma"]["top"])
	require.Len(t, res.Modifiers["player"], 2)
	require.Equal(t, "drunk", res.Modifiers["player"][0].Apply)
	require.Equal(t, 30, res.Modifiers["player"][0].DurationMin)
	require.Equal(t, "tipsy", res.Modifiers["player"][1].Remove)
	require.Equal(t, "park", res.Location.ID)
	require.Equal(t, []string{"cafe_morning_rush"}, res.EventsFired)
	require.Equal(t, "first_date", res.NodeTransition)
	require.Equal(t, "Alex bought her flowers.", res.CharacterMemories["emma"])
	require.Equal(t, "They met at the cafe.", res.NarrativeSummary)
}

func TestParseCheckerToleratesWrapping(t *testing.T) {
	for name, raw := range map[string]string{
		"fenced":    "```json\n{\"meters\": {\"emma\": {\"trust\": \"+2\"}}}\n```",
		"prose":     "Here is the result:\n{\"meters\": {\"emma\": {\"trust\": \"+2\"}}}\nDone!",
		"bare":      `{"meters": {"emma": {"trust": "+2"}}}`,
		"brace_str": `note {"meters": {"emma": {"trust": "+2"}}, "narrative_summary": "a } inside"} end`,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := ParseChecker(raw)
			require.NoError(t, err)
			require.Equal(t, "+2", res.Meters["emma"]["trust"])
		})
	}
}

func TestParseCheckerDefaultsAndUnknowns(t *testing.T) {
	res, err := ParseChecker(`{"mood": "wistful", "confidence": 0.9}`)
	require.NoError(t, err)
	require.True(t, res.Safety.OK, "absent safety block means no violations")
	require.Empty(t, res.Meters)

	res, err = ParseChecker(`{}`)
	require.NoError(t, err)
	require.True(t, res.Safety.OK)
}

func TestParseCheckerRejectsGarbage(t *testing.T) {
	_, err := ParseChecker("I could not determine any state changes.")
	require.Error(t, err)

	_, err = ParseChecker(`{"meters": ["not", "a", "map"]}`)
	require.Error(t, err, "known key with wrong shape fails the parse")

	_, err = ParseChecker(`{"meters": {"emma": {"trust"`)
	require.Error(t, err)
}

func TestParseDelta(t *testing.T) {
	cases := []struct {
		in   string
		set  bool
		n    float64
		fail bool
	}{
		{in: "+5", n: 5},
		{in: "-3", n: -3},
		{in: "=40", set: true, n: 40},
		{in: " +2 ", n: 2},
		{in: "= 7", set: true, n: 7},
		{in: "5", fail: true},
		{in: "", fail: true},
		{in: "+abc", fail: true},
		{in: "~3", fail: true},
	}
	for _, tc := range cases {
		set, n, err := ParseDelta(tc.in)
		if tc.fail {
			require.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.set, set, "input %q", tc.in)
		require.Equal(t, tc.n, n, "input %q", tc.in)
	}
}
