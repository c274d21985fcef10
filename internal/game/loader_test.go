package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) *Game {
	t.Helper()
	g, err := Load(filepath.Join("testdata", "cafe"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

func TestLoadMergesIncludes(t *testing.T) {
	g := loadFixture(t)

	if g.Meta.ID != "cafe_date" {
		t.Fatalf("meta.id = %q, want cafe_date", g.Meta.ID)
	}
	if len(g.Zones) != 2 {
		t.Errorf("zones = %d, want 2", len(g.Zones))
	}
	if len(g.Characters) != 2 {
		t.Errorf("characters = %d, want 2", len(g.Characters))
	}
	if len(g.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(g.Nodes))
	}
	if len(g.Events) != 4 {
		t.Errorf("events = %d, want 4", len(g.Events))
	}
	if got := g.LocationByID("bar"); got == nil || got.Zone != "downtown" {
		t.Errorf("bar location zone = %+v, want downtown", got)
	}
	if g.NodeByID("first_date") == nil {
		t.Error("first_date node missing from index")
	}
	if g.ArcByID("emma_romance") == nil {
		t.Error("emma_romance arc missing from index")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	g := loadFixture(t)

	if got := g.ModifierByID("soaked").Stacking; got != StackHighest {
		t.Errorf("soaked stacking = %q, want highest", got)
	}
	if got := g.LocationByID("park").Privacy; got != PrivacyNone {
		t.Errorf("park privacy = %q, want none", got)
	}
	if !g.LocationByID("park").StartsDiscovered() {
		t.Error("park should start discovered")
	}
	if g.LocationByID("hidden_garden").StartsDiscovered() {
		t.Error("hidden_garden should start undiscovered")
	}
	if g.ItemByID("phone").CanDrop() {
		t.Error("phone should not be droppable")
	}
	if !g.ItemByID("coffee").CanDrop() {
		t.Error("coffee should default to droppable")
	}
}

func TestMeterResolution(t *testing.T) {
	g := loadFixture(t)

	if m := g.MeterDef("emma", "trust"); m == nil || m.Default != 30 {
		t.Errorf("emma trust = %+v, want default 30 from character override", m)
	}
	if m := g.MeterDef("emma", "attraction"); m == nil || m.DeltaCapPerTurn != 15 {
		t.Errorf("emma attraction = %+v, want template fallback", m)
	}
	if m := g.MeterDef(PlayerID, "money"); m == nil || m.Max != 500 {
		t.Errorf("player money = %+v, want player set", m)
	}
	if g.MoneyMeter() != "money" {
		t.Errorf("money meter = %q", g.MoneyMeter())
	}
}

func TestSlotOrder(t *testing.T) {
	g := loadFixture(t)

	if p := g.SlotPriority("outerwear"); p != 0 {
		t.Errorf("outerwear priority = %d, want 0", p)
	}
	if p := g.SlotPriority("underwear_top"); p <= g.SlotPriority("top") {
		t.Error("underwear_top should rank below top")
	}
	if g.KnownSlot("hat") {
		t.Error("hat is not a declared slot")
	}
}

func writeGame(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const minimalGame = `
meta: { id: tiny, title: Tiny }
start: { zone: z, location: room, node: here }
zones:
  - id: z
    locations:
      - { id: room, name: Room }
nodes:
  - { id: here, title: Here }
`

func TestLoadMinimalGame(t *testing.T) {
	dir := writeGame(t, map[string]string{"game.yaml": minimalGame})
	g, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Start.Time != "08:00" || g.Start.Day != 1 {
		t.Errorf("start defaults = %q day %d", g.Start.Time, g.Start.Day)
	}
	if g.NodeByID("here").Type != NodeScene {
		t.Errorf("node type default = %q", g.NodeByID("here").Type)
	}
	if g.Narration.MaxParagraphs != 2 {
		t.Errorf("max_paragraphs default = %d", g.Narration.MaxParagraphs)
	}
}

func TestLoadRejectsNestedIncludes(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"game.yaml": minimalGame + "\nincludes: [part.yaml]\n",
		"part.yaml": "includes: [deeper.yaml]\n",
	})
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "max depth") {
		t.Fatalf("err = %v, want include depth error", err)
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"game.yaml": minimalGame + "\nincludes: [\"../escape.yaml\"]\n",
	})
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("err = %v, want traversal error", err)
	}
}

func TestLoadRejectsBrokenRefs(t *testing.T) {
	bad := strings.Replace(minimalGame, "node: here", "node: nowhere", 1)
	dir := writeGame(t, map[string]string{"game.yaml": bad})
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("err = %v, want unknown start node error", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dup := minimalGame + `
items:
  - { id: rock, name: Rock }
  - { id: rock, name: Other Rock }
`
	dir := writeGame(t, map[string]string{"game.yaml": dup})
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate item") {
		t.Fatalf("err = %v, want duplicate id error", err)
	}
}

func TestLibrary(t *testing.T) {
	lib, err := LoadLibrary("testdata")
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if lib.Count() != 1 {
		t.Fatalf("count = %d, want 1", lib.Count())
	}
	if lib.Get("cafe_date") == nil {
		t.Fatal("cafe_date not registered")
	}
	if lib.Get("missing") != nil {
		t.Fatal("unknown id should return nil")
	}
	if got := lib.List(); len(got) != 1 || got[0].Meta.ID != "cafe_date" {
		t.Fatalf("List = %v", got)
	}
}

func TestLibraryEmptyDir(t *testing.T) {
	if _, err := LoadLibrary(t.TempDir()); err == nil {
		t.Fatal("want error for content dir without games")
	}
}
