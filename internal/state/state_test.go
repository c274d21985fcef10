package state

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/plotplay/engine/internal/game"
)

func fixture(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.Load(filepath.Join("..", "game", "testdata", "cafe"))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return g
}

func TestNewSeedsFromStart(t *testing.T) {
	g := fixture(t)
	s := New(g, 99)

	if s.Time.Day != 1 || s.Time.HHMM() != "08:00" {
		t.Errorf("time = day %d %s", s.Time.Day, s.Time.HHMM())
	}
	if s.Time.Slot(&g.Time) != "morning" {
		t.Errorf("slot = %q", s.Time.Slot(&g.Time))
	}
	if s.Position.Zone != "riverside" || s.Position.Location != "cafe_patio" {
		t.Errorf("position = %+v", s.Position)
	}
	if s.CurrentNode != "cafe_hub" {
		t.Errorf("node = %q", s.CurrentNode)
	}
	if s.BaseRNGSeed != 99 {
		t.Errorf("seed = %d", s.BaseRNGSeed)
	}
}

func TestNewSeedsCharacters(t *testing.T) {
	g := fixture(t)
	s := New(g, 1)

	p := s.Player()
	if p == nil {
		t.Fatal("player state missing")
	}
	if p.Meters["money"] != 10 || p.Meters["energy"] != 70 {
		t.Errorf("player meters = %v", p.Meters)
	}
	if p.ItemCount("phone") != 1 {
		t.Errorf("player phone count = %d", p.ItemCount("phone"))
	}
	if p.WornIn("top") == nil || p.WornIn("top").Item != "tshirt" {
		t.Errorf("player top = %+v", p.WornIn("top"))
	}

	e := s.Char("emma")
	if e == nil {
		t.Fatal("emma state missing")
	}
	if e.Meters["trust"] != 30 {
		t.Errorf("emma trust = %v, want 30 (character override)", e.Meters["trust"])
	}
	if e.Meters["attraction"] != 0 {
		t.Errorf("emma attraction = %v, want template default 0", e.Meters["attraction"])
	}
	if e.ActiveOutfit != "emma_casual" {
		t.Errorf("emma outfit = %q", e.ActiveOutfit)
	}
	if w := e.WornIn("bottom"); w == nil || w.Item != "sundress" || w.State != game.ClothingIntact {
		t.Errorf("emma bottom = %+v", w)
	}
}

func TestNewGrantsOutfitItems(t *testing.T) {
	g := fixture(t)
	e := New(g, 1).Char("emma")

	// date_out has grant_items: red_dress and heels arrive with it.
	if e.ClothingCount("red_dress") != 1 || e.ClothingCount("heels") != 1 {
		t.Fatalf("granted clothing = %v", e.ClothingInventory)
	}
	want := []string{"heels", "red_dress"}
	if diff := cmp.Diff(want, e.GrantedOutfitItems["date_out"]); diff != "" {
		t.Errorf("granted record mismatch (-want +got):\n%s", diff)
	}
	// sundress was already owned, so emma_casual granted nothing.
	if _, ok := e.GrantedOutfitItems["emma_casual"]; ok {
		t.Error("emma_casual should not record grants")
	}
}

func TestNewSeedsWorld(t *testing.T) {
	g := fixture(t)
	s := New(g, 1)

	if !s.DiscoveredLocations["cafe_patio"] || !s.DiscoveredLocations["bar"] {
		t.Errorf("discovered = %v", s.DiscoveredLocations)
	}
	if s.DiscoveredLocations["hidden_garden"] {
		t.Error("hidden_garden should start undiscovered")
	}
	if s.LocationInventory["cafe_interior"]["coffee"] != 10 {
		t.Errorf("cafe stock = %v", s.LocationInventory["cafe_interior"])
	}
	if s.Flags["first_kiss"] != false {
		t.Errorf("first_kiss default = %v", s.Flags["first_kiss"])
	}
	if s.Flags["weather"] != "clear" {
		t.Errorf("weather default = %v", s.Flags["weather"])
	}
	if !s.UnlockedActions["check_phone"] || s.UnlockedActions["karaoke"] {
		t.Errorf("unlocked actions = %v", s.UnlockedActions)
	}
	if s.ArcStage(g.ArcByID("emma_romance")) != "strangers" {
		t.Errorf("arc stage = %q", s.ArcStage(g.ArcByID("emma_romance")))
	}
	if got := s.ArcHistory["emma_romance"]; len(got) != 1 || got[0] != "strangers" {
		t.Errorf("arc history = %v", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	g := fixture(t)
	s := New(g, 1)
	s.Player().Modifiers = map[string]*ModifierState{"drunk": {RemainingMinutes: 30}}
	s.PushMemory(Memory{Text: "met emma", Characters: []string{"emma"}, Day: 1})

	snap := s.Clone()

	s.Player().Meters["money"] = 0
	s.Player().Inventory["coffee"] = 3
	s.Player().Modifiers["drunk"].RemainingMinutes = 5
	s.Flags["first_kiss"] = true
	s.LocationStock("cafe_interior")["coffee"] = 0
	s.SetLocked("locations", "bar", false)
	s.UnlockEnding("emma_good_ending")
	s.ArcProgress["emma_romance"] = 2
	s.ArcHistory["emma_romance"] = append(s.ArcHistory["emma_romance"], "x")
	s.Player().ClothingWorn["top"].State = game.ClothingDisplaced

	if snap.Player().Meters["money"] != 10 {
		t.Error("clone shares meters")
	}
	if snap.Player().ItemCount("coffee") != 0 {
		t.Error("clone shares inventory")
	}
	if snap.Player().Modifiers["drunk"].RemainingMinutes != 30 {
		t.Error("clone shares modifier state")
	}
	if snap.Flags["first_kiss"] != false {
		t.Error("clone shares flags")
	}
	if snap.LocationInventory["cafe_interior"]["coffee"] != 10 {
		t.Error("clone shares location stock")
	}
	if snap.Locked("locations", "bar", true) != true {
		t.Error("clone shares lock table")
	}
	if snap.EndingUnlocked("emma_good_ending") {
		t.Error("clone shares endings")
	}
	if len(snap.ArcHistory["emma_romance"]) != 1 {
		t.Error("clone shares arc history")
	}
	if snap.Player().ClothingWorn["top"].State != game.ClothingIntact {
		t.Error("clone shares worn layers")
	}
}

func TestStateRoundTripsJSON(t *testing.T) {
	g := fixture(t)
	s := New(g, 7)
	s.PushNarrative("first turn prose")
	s.PushMemory(Memory{Text: "bought coffee", Characters: []string{"emma"}, Day: 1})
	s.SetLocked("items", "coffee", true)

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back GameState
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}

	if back.Time != s.Time || back.Position != s.Position {
		t.Errorf("time/position changed: %+v %+v", back.Time, back.Position)
	}
	if back.Player().Meters["money"] != 10 {
		t.Errorf("money = %v", back.Player().Meters["money"])
	}
	if !back.Locked("items", "coffee", false) {
		t.Error("lock table lost")
	}
	if len(back.MemoryLog) != 1 || back.MemoryLog[0].Text != "bought coffee" {
		t.Errorf("memory log = %+v", back.MemoryLog)
	}
}

func TestPushBounds(t *testing.T) {
	s := &GameState{}
	for i := 0; i < MaxNarrativeHistory+10; i++ {
		s.PushNarrative("turn")
	}
	if len(s.NarrativeHistory) != MaxNarrativeHistory {
		t.Errorf("history = %d", len(s.NarrativeHistory))
	}
	for i := 0; i < MaxMemoryLog+10; i++ {
		s.PushMemory(Memory{Text: "m"})
	}
	if len(s.MemoryLog) != MaxMemoryLog {
		t.Errorf("memory = %d", len(s.MemoryLog))
	}
}
