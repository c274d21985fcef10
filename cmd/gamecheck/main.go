// gamecheck validates PlotPlay game packages and prints a content summary.
package main

import (
	"fmt"
	"os"

	"github.com/plotplay/engine/internal/game"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gamecheck <game-dir> [game-dir ...]")
		os.Exit(1)
	}

	failed := false
	for _, dir := range os.Args[1:] {
		if !checkPackage(dir) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkPackage(dir string) bool {
	g, errs := game.Check(dir)
	if g == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", dir, errs[0])
		return false
	}

	fmt.Printf("%s: %q v%s by %s\n", g.Meta.ID, g.Meta.Title, g.Meta.Version, g.Meta.Author)
	printCount("characters", len(g.Characters))
	printCount("zones", len(g.Zones))
	printCount("locations", countLocations(g))
	printCount("items", len(g.Items))
	printCount("clothing items", len(g.ClothingItems))
	printCount("outfits", len(g.Outfits))
	printCount("modifiers", len(g.Modifiers))
	printCount("flags", len(g.Flags))
	printCount("nodes", len(g.Nodes))
	printCount("events", len(g.Events))
	printCount("arcs", len(g.Arcs))

	if len(errs) == 0 {
		fmt.Printf("  OK\n\n")
		return true
	}
	for _, err := range errs {
		fmt.Printf("  ERROR %v\n", err)
	}
	fmt.Printf("  %d problem(s)\n\n", len(errs))
	return false
}

func printCount(label string, n int) {
	if n == 0 {
		return
	}
	fmt.Printf("  %-16s %d\n", label, n)
}

func countLocations(g *game.Game) int {
	total := 0
	for _, z := range g.Zones {
		total += len(z.Locations)
	}
	return total
}
