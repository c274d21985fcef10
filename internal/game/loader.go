package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// includePart is the shape of an included file: only the recognized root
// keys may appear. Includes cannot nest.
type includePart struct {
	Includes []string `yaml:"includes"`

	Flags map[string]*FlagDef `yaml:"flags"`

	Characters    []*Character    `yaml:"characters"`
	Zones         []*Zone         `yaml:"zones"`
	Locations     []*Location     `yaml:"locations"`
	Items         []*Item         `yaml:"items"`
	ClothingItems []*ClothingItem `yaml:"clothing_items"`
	Outfits       []*Outfit       `yaml:"outfits"`
	Modifiers     []*Modifier     `yaml:"modifiers"`
	Nodes         []*Node         `yaml:"nodes"`
	Events        []*Event        `yaml:"events"`
	Arcs          []*Arc          `yaml:"arcs"`
	Actions       []*ActionDef    `yaml:"actions"`
	Wardrobe      Wardrobe        `yaml:"wardrobe"`
}

// Load reads a game package: dir/game.yaml plus its includes, merged,
// normalized and validated. The returned Game is immutable.
func Load(dir string) (*Game, error) {
	g, err := load(dir)
	if err != nil {
		return nil, err
	}
	if errs := Validate(g); len(errs) > 0 {
		return nil, fmt.Errorf("validate %s: %w", g.Meta.ID, errs[0])
	}
	return g, nil
}

// Check loads dir like Load but collects every validation problem instead
// of stopping at the first. Parse and structure errors still abort with a
// nil Game.
func Check(dir string) (*Game, []error) {
	g, err := load(dir)
	if err != nil {
		return nil, []error{err}
	}
	return g, Validate(g)
}

func load(dir string) (*Game, error) {
	rootPath := filepath.Join(dir, "game.yaml")
	raw, err := os.ReadFile(rootPath)
	if err != nil {
		return nil, fmt.Errorf("read game package: %w", err)
	}

	g := &Game{}
	if err := yaml.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("parse %s: %w", rootPath, err)
	}

	var rootInc struct {
		Includes []string `yaml:"includes"`
	}
	if err := yaml.Unmarshal(raw, &rootInc); err != nil {
		return nil, fmt.Errorf("parse includes of %s: %w", rootPath, err)
	}
	for _, name := range rootInc.Includes {
		if strings.Contains(name, "..") {
			return nil, fmt.Errorf("include %q escapes the package directory", name)
		}
		ipath := filepath.Join(dir, name)
		iraw, err := os.ReadFile(ipath)
		if err != nil {
			return nil, fmt.Errorf("read include %s: %w", name, err)
		}
		var part includePart
		if err := yaml.Unmarshal(iraw, &part); err != nil {
			return nil, fmt.Errorf("parse include %s: %w", name, err)
		}
		if len(part.Includes) > 0 {
			return nil, fmt.Errorf("include %s declares its own includes (max depth is 1)", name)
		}
		mergePart(g, &part)
	}

	if err := normalize(g); err != nil {
		return nil, err
	}
	if err := g.buildIndexes(); err != nil {
		return nil, err
	}
	return g, nil
}

func mergePart(g *Game, p *includePart) {
	g.Characters = append(g.Characters, p.Characters...)
	g.Zones = append(g.Zones, p.Zones...)
	g.Locations = append(g.Locations, p.Locations...)
	g.Items = append(g.Items, p.Items...)
	g.ClothingItems = append(g.ClothingItems, p.ClothingItems...)
	g.Outfits = append(g.Outfits, p.Outfits...)
	g.Modifiers = append(g.Modifiers, p.Modifiers...)
	g.Nodes = append(g.Nodes, p.Nodes...)
	g.Events = append(g.Events, p.Events...)
	g.Arcs = append(g.Arcs, p.Arcs...)
	g.Actions = append(g.Actions, p.Actions...)
	for k, v := range p.Flags {
		if g.Flags == nil {
			g.Flags = make(map[string]*FlagDef)
		}
		if _, exists := g.Flags[k]; !exists {
			g.Flags[k] = v
		}
	}
	if len(g.Wardrobe.SlotOrder) == 0 {
		g.Wardrobe = p.Wardrobe
	}
}

// normalize fills defaults and folds flat locations into their zones.
func normalize(g *Game) error {
	zoneByID := make(map[string]*Zone, len(g.Zones))
	for _, z := range g.Zones {
		zoneByID[z.ID] = z
	}
	for _, l := range g.Locations {
		if l.Zone == "" {
			return fmt.Errorf("location %q outside a zone needs a zone field", l.ID)
		}
		z, ok := zoneByID[l.Zone]
		if !ok {
			return fmt.Errorf("location %q names unknown zone %q", l.ID, l.Zone)
		}
		z.Locations = append(z.Locations, l)
	}
	g.Locations = nil

	for _, z := range g.Zones {
		for _, l := range z.Locations {
			if l.Privacy == "" {
				l.Privacy = PrivacyNone
			}
		}
	}
	for _, n := range g.Nodes {
		if n.Type == "" {
			n.Type = NodeScene
		}
	}
	for _, m := range g.Modifiers {
		if m.Stacking == "" {
			m.Stacking = StackHighest
		}
	}
	if g.Start.Day == 0 {
		g.Start.Day = 1
	}
	if g.Start.Time == "" {
		g.Start.Time = "08:00"
	}
	if g.Narration.MaxParagraphs == 0 {
		g.Narration.MaxParagraphs = 2
	}
	return nil
}
