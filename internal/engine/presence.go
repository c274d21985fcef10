package engine

import "github.com/plotplay/engine/internal/game"

// resolvePresence recomputes who shares the player's location. A location
// pin beats the schedule; schedule rules match first-hit in declaration
// order. The player always leads the list.
func (rt *Runtime) resolvePresence(tc *turnCtx) {
	present := []string{game.PlayerID}
	here := rt.st.Position.Location

	for _, c := range rt.g.Characters {
		if c.ID == game.PlayerID {
			continue
		}
		if rt.characterLocation(tc, c) == here {
			present = append(present, c.ID)
		}
	}
	tc.present = present
}

// characterLocation resolves where a character stands right now.
func (rt *Runtime) characterLocation(tc *turnCtx, c *game.Character) string {
	if cs := rt.st.Char(c.ID); cs != nil && cs.LocationPin != "" {
		return cs.LocationPin
	}
	for _, rule := range c.Schedule {
		if rt.evalWhen(tc, rule.When) {
			return rule.Location
		}
	}
	return ""
}
