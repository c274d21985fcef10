package game

import (
	"strings"
	"testing"
)

// validateYAML loads a package from raw YAML and returns every validation
// error as one string for matching.
func validateYAML(t *testing.T, body string) string {
	t.Helper()
	dir := writeGame(t, map[string]string{"game.yaml": body})
	_, err := Load(dir)
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestValidateCatches(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "transition to unknown node",
			yaml: minimalGame + `
events: []
`,
			want: "", // control: minimal game is valid
		},
		{
			name: "bad transition target",
			yaml: strings.Replace(minimalGame, "- { id: here, title: Here }",
				"- { id: here, title: Here, transitions: [{ to: gone }] }", 1),
			want: "unknown node \"gone\"",
		},
		{
			name: "meter default outside range",
			yaml: minimalGame + `
meters:
  player:
    mood: { min: 0, max: 10, default: 50 }
`,
			want: "default 50 outside",
		},
		{
			name: "flag default type mismatch",
			yaml: minimalGame + `
flags:
  broken: { type: bool, default: "yes" }
`,
			want: "does not match type",
		},
		{
			name: "gate without condition",
			yaml: minimalGame + `
characters:
  - id: npc
    name: NPC
    gates:
      - { id: empty_gate }
`,
			want: "has no condition",
		},
		{
			name: "outfit with unknown member",
			yaml: minimalGame + `
outfits:
  - { id: look, name: Look, items: [ghost_dress] }
`,
			want: "not a known clothing item",
		},
		{
			name: "clothing slot outside wardrobe",
			yaml: minimalGame + `
wardrobe: { slot_order: [top] }
clothing_items:
  - { id: boots, name: Boots, occupies: [feet] }
`,
			want: "not in wardrobe.slot_order",
		},
		{
			name: "random event without weight",
			yaml: minimalGame + `
events:
  - { id: maybe, random: true }
`,
			want: "weight > 0",
		},
		{
			name: "arc stage missing advance condition",
			yaml: minimalGame + `
arcs:
  - id: a
    stages:
      - { id: one }
      - { id: two }
`,
			want: "advance_when required",
		},
		{
			name: "requires_gate on unknown character",
			yaml: minimalGame + `
flags:
  secret: { type: bool, default: false, requires_gate: ghost.allow }
`,
			want: "unknown character \"ghost\"",
		},
		{
			name: "unparseable condition",
			yaml: strings.Replace(minimalGame, "- { id: here, title: Here }",
				"- { id: here, title: Here, preconditions: [\"flags.x ==\"] }", 1),
			want: "preconditions",
		},
		{
			name: "unknown effect type",
			yaml: minimalGame + `
items:
  - id: orb
    name: Orb
    on_use:
      - { type: teleport_everyone }
`,
			want: "unknown effect type",
		},
		{
			name: "goto effect to unknown node",
			yaml: minimalGame + `
items:
  - id: map
    name: Map
    on_use:
      - { type: goto, node: atlantis }
`,
			want: "goto unknown node",
		},
		{
			name: "lock with unknown category",
			yaml: minimalGame + `
items:
  - id: key
    name: Key
    on_use:
      - { type: unlock, category: doors, ids: [x] }
`,
			want: "unknown category",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := validateYAML(t, tc.yaml)
			if tc.want == "" {
				if got != "" {
					t.Fatalf("unexpected error: %s", got)
				}
				return
			}
			if !strings.Contains(got, tc.want) {
				t.Fatalf("error %q does not mention %q", got, tc.want)
			}
		})
	}
}

func TestFlagValueAllowed(t *testing.T) {
	g := loadFixture(t)

	if !g.FlagValueAllowed("first_kiss", true) {
		t.Error("bool flag should accept bool")
	}
	if g.FlagValueAllowed("first_kiss", "sure") {
		t.Error("bool flag should reject string")
	}
	if !g.FlagValueAllowed("weather", "rain") {
		t.Error("weather should accept listed value")
	}
	if g.FlagValueAllowed("weather", "hail") {
		t.Error("weather should reject unlisted value")
	}
	if !g.FlagValueAllowed("undeclared_anything", 3) {
		t.Error("undeclared flags are untyped")
	}
}

func TestFixtureValidates(t *testing.T) {
	g := loadFixture(t)
	if errs := Validate(g); len(errs) > 0 {
		t.Fatalf("fixture should validate cleanly, got %v", errs)
	}
}
