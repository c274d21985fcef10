package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/state"
)

func choiceIDs(choices []Choice) []string {
	ids := make([]string, 0, len(choices))
	for _, c := range choices {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestSummaryReportsHiddenFlags(t *testing.T) {
	rt := newRuntime(t, nil)
	res := mustTurn(t, rt, saySkip("hello"))

	flags := make(map[string]FlagValue)
	for _, f := range res.StateSummary.Flags {
		flags[f.Key] = f
	}
	for _, key := range []string{"morning_rush_seen", "checked_phone"} {
		f, ok := flags[key]
		if !ok {
			t.Fatalf("flag %q missing from summary", key)
		}
		if f.Visible {
			t.Errorf("flag %q reported visible", key)
		}
	}
	f, ok := flags["first_kiss"]
	if !ok {
		t.Fatal("flag first_kiss missing from summary")
	}
	if !f.Visible {
		t.Error("flag first_kiss reported hidden")
	}
}

func TestDescribeMatchesCommittedTurn(t *testing.T) {
	rt := newRuntime(t, nil)
	res := mustTurn(t, rt, saySkip("hello"))

	pendingBefore := append([]string(nil), rt.st.PendingEventChoices...)
	sum, choices := rt.Describe()

	if diff := cmp.Diff(choiceIDs(res.Choices), choiceIDs(choices)); diff != "" {
		t.Errorf("describe choices diverge from the turn's (-turn +describe):\n%s", diff)
	}
	if diff := cmp.Diff(pendingBefore, rt.st.PendingEventChoices); diff != "" {
		t.Errorf("describe consumed pending event choices:\n%s", diff)
	}
	if sum.Location.ID != rt.st.Position.Location {
		t.Errorf("summary location = %q, state at %q", sum.Location.ID, rt.st.Position.Location)
	}
	if sum.Time.Day != rt.st.Time.Day || sum.Time.HHMM != rt.st.Time.HHMM() {
		t.Errorf("summary clock = day %d %s, state day %d %s",
			sum.Time.Day, sum.Time.HHMM, rt.st.Time.Day, rt.st.Time.HHMM())
	}
}

func TestDescribeIsRepeatable(t *testing.T) {
	rt := newRuntime(t, nil)
	mustTurn(t, rt, saySkip("hello"))

	_, first := rt.Describe()
	_, second := rt.Describe()
	if diff := cmp.Diff(choiceIDs(first), choiceIDs(second)); diff != "" {
		t.Errorf("back-to-back describes diverge:\n%s", diff)
	}
}

func TestCharactersListPlacesCast(t *testing.T) {
	rt := newRuntime(t, nil)
	list := rt.Characters()

	if list.Player.ID != game.PlayerID || list.Player.Name != "Alex" {
		t.Errorf("player ref = %+v", list.Player)
	}
	var emma *CharacterListEntry
	for i := range list.Characters {
		if list.Characters[i].ID == "emma" {
			emma = &list.Characters[i]
		}
	}
	if emma == nil {
		t.Fatalf("emma missing from cast list: %+v", list.Characters)
	}
	// 08:00 on the patio: Emma works the counter inside.
	if emma.Present {
		t.Error("emma present on the patio at open")
	}
	if emma.Location != "cafe_interior" {
		t.Errorf("emma location = %q, want cafe_interior", emma.Location)
	}
}

func TestCharacterViewGatesAndMemories(t *testing.T) {
	rt := newRuntime(t, nil)
	rt.st.PushMemory(state.Memory{Text: "Met at the counter.", Characters: []string{"emma"}, Day: 1})
	rt.st.PushMemory(state.Memory{Text: "Watched the river.", Day: 1})

	v, ok := rt.CharacterView("emma")
	if !ok {
		t.Fatal("emma view missing")
	}
	if v.Name != "Emma" || v.Appearance == "" {
		t.Errorf("card basics = %q / %q", v.Name, v.Appearance)
	}
	if v.Wearing == "" {
		t.Error("emma wears nothing notable?")
	}
	if len(v.Memories) != 1 || v.Memories[0].Text != "Met at the counter." {
		t.Errorf("emma memories = %+v, want only the tagged one", v.Memories)
	}

	var kiss *GateView
	for i := range v.Gates {
		if v.Gates[i].ID == "accept_kiss" {
			kiss = &v.Gates[i]
		}
	}
	if kiss == nil {
		t.Fatalf("accept_kiss gate missing: %+v", v.Gates)
	}
	if kiss.Allow {
		t.Error("accept_kiss open at starting trust")
	}
	if kiss.Condition == "" || kiss.Refusal == "" {
		t.Errorf("gate card incomplete: %+v", kiss)
	}

	pv, ok := rt.CharacterView(game.PlayerID)
	if !ok {
		t.Fatal("player view missing")
	}
	if !pv.Present || pv.Location != "cafe_patio" {
		t.Errorf("player placement = present %v at %q", pv.Present, pv.Location)
	}
	if len(pv.Memories) != 2 {
		t.Errorf("player sees %d memories, want all 2", len(pv.Memories))
	}

	if _, ok := rt.CharacterView("nobody"); ok {
		t.Error("unknown character produced a view")
	}

	if got := rt.StoryEvents(); len(got) != 2 {
		t.Errorf("story events = %d entries, want 2", len(got))
	}
}
