package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/plotplay/engine/internal/game"
)

// moveMode distinguishes how a location change was requested; access rules
// and time costs differ per mode.
type moveMode int

const (
	moveLocal   moveMode = iota // follow one connection
	moveGoto                    // jump within the zone
	moveChecker                 // narrated move reported by the checker; free
)

func (rt *Runtime) effMove(tc *turnCtx, direction string) {
	if minutes, ok := rt.moveDirection(tc, direction); ok {
		tc.minutes += minutes
	}
}

// moveDirection follows a local connection. Arrival discovers the
// destination; the exit being visible from here is discovery enough.
func (rt *Runtime) moveDirection(tc *turnCtx, direction string) (int, bool) {
	cur := rt.g.LocationByID(rt.st.Position.Location)
	if cur == nil {
		return 0, false
	}
	conn := cur.ConnectionByDirection(direction)
	if conn == nil {
		tc.refuse("You cannot go that way.")
		return 0, false
	}
	dest := rt.g.LocationByID(conn.To)
	if dest == nil {
		return 0, false
	}
	if !rt.locationUnlocked(tc, dest) {
		tc.refuse(fmt.Sprintf("%s is locked.", rt.locationName(dest.ID)))
		return 0, false
	}
	minutes := rt.localMoveCost(conn)
	rt.arrive(tc, dest)
	return minutes, true
}

// moveTo jumps to a location in the current zone. The destination must be
// known (discovered, or its discovery conditions hold right now) and
// reachable through the zone's connection graph.
func (rt *Runtime) moveTo(tc *turnCtx, locationID string, mode moveMode) (int, bool) {
	dest := rt.g.LocationByID(locationID)
	if dest == nil {
		return 0, false
	}
	if mode == moveChecker {
		// The checker skips the time cost, not discovery or locks.
		if !rt.locationKnown(tc, dest) || !rt.locationUnlocked(tc, dest) {
			return 0, false
		}
		rt.arrive(tc, dest)
		return 0, true
	}
	if dest.Zone != rt.st.Position.Zone {
		return rt.travelTo(tc, locationID, "")
	}
	if dest.ID == rt.st.Position.Location {
		return 0, false
	}
	if !rt.locationKnown(tc, dest) {
		tc.refuse("You do not know where that is.")
		return 0, false
	}
	if !rt.locationUnlocked(tc, dest) {
		tc.refuse(fmt.Sprintf("%s is locked.", rt.locationName(dest.ID)))
		return 0, false
	}

	cur := rt.g.LocationByID(rt.st.Position.Location)
	if conn := cur.ConnectionTo(dest.ID); conn != nil {
		minutes := rt.localMoveCost(conn)
		rt.arrive(tc, dest)
		return minutes, true
	}
	if !rt.reachableInZone(cur, dest) {
		tc.refuse("You cannot get there from here.")
		return 0, false
	}
	minutes := rt.g.Movement.Local.GotoDefault
	if minutes <= 0 {
		minutes = rt.g.Movement.Local.BaseTime
	}
	rt.arrive(tc, dest)
	return minutes, true
}

// travelTo crosses zones. The zone edge must exist and allow the method;
// entry/exit mode additionally routes through declared doors.
func (rt *Runtime) travelTo(tc *turnCtx, locationID, method string) (int, bool) {
	dest := rt.g.LocationByID(locationID)
	if dest == nil {
		return 0, false
	}
	if dest.Zone == rt.st.Position.Zone {
		return rt.moveTo(tc, locationID, moveGoto)
	}
	destZone := rt.g.ZoneByID(dest.Zone)
	curZone := rt.g.ZoneByID(rt.st.Position.Zone)
	if destZone == nil || curZone == nil {
		return 0, false
	}

	var edge *game.ZoneConnection
	for _, zc := range curZone.Connections {
		if zc.To == destZone.ID {
			edge = zc
			break
		}
	}
	if edge == nil {
		tc.refuse(fmt.Sprintf("There is no way to travel to %s from here.", rt.zoneName(destZone.ID)))
		return 0, false
	}

	if method == "" {
		method = rt.defaultMethod(edge)
	}
	tm := rt.g.Movement.Methods[method]
	if tm == nil || !edge.AllowsMethod(method) {
		tc.refuse(fmt.Sprintf("You cannot travel there by %s.", method))
		return 0, false
	}

	if !rt.zoneKnown(tc, destZone) {
		tc.refuse("You do not know how to get there.")
		return 0, false
	}
	if !rt.zoneUnlocked(tc, destZone) {
		tc.refuse(fmt.Sprintf("%s is closed to you.", rt.zoneName(destZone.ID)))
		return 0, false
	}
	if !rt.locationUnlocked(tc, dest) {
		tc.refuse(fmt.Sprintf("%s is locked.", rt.locationName(dest.ID)))
		return 0, false
	}

	if rt.g.Movement.UseEntryExit {
		if len(curZone.Exits) > 0 && !containsString(curZone.Exits, rt.st.Position.Location) {
			tc.refuse(fmt.Sprintf("You need to leave %s through %s.",
				rt.zoneName(curZone.ID), rt.locationName(curZone.Exits[0])))
			return 0, false
		}
		if len(destZone.Entrances) > 0 && !containsString(destZone.Entrances, dest.ID) {
			if d := rt.g.LocationByID(destZone.Entrances[0]); d != nil {
				dest = d
			}
		}
	}

	minutes := rt.travelCost(edge, tm)
	rt.arrive(tc, dest)
	return minutes, true
}

// defaultMethod picks the alphabetically first configured method this edge
// allows, so an unspecified method resolves the same way every turn.
func (rt *Runtime) defaultMethod(edge *game.ZoneConnection) string {
	names := make([]string, 0, len(rt.g.Movement.Methods))
	for name := range rt.g.Movement.Methods {
		if edge.AllowsMethod(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// localMoveCost is base time scaled by the connection's distance class.
func (rt *Runtime) localMoveCost(conn *game.Connection) int {
	base := float64(rt.g.Movement.Local.BaseTime)
	if conn.Distance != "" {
		if mod, ok := rt.g.Movement.Local.DistanceModifiers[conn.Distance]; ok {
			base *= mod
		}
	}
	return int(math.Round(base))
}

// travelCost resolves a zone edge's time for a method, then scales active
// methods by the player's modifier travel multipliers.
func (rt *Runtime) travelCost(edge *game.ZoneConnection, tm *game.TravelMethod) int {
	distance := edge.Distance
	if distance <= 0 {
		distance = 1
	}
	var minutes float64
	switch {
	case tm.TimeCost > 0:
		minutes = float64(tm.TimeCost) * distance
	case tm.Category != "":
		minutes = float64(rt.g.Time.Categories[tm.Category]) * distance
	case tm.Speed > 0:
		minutes = distance / tm.Speed
	default:
		minutes = distance * float64(rt.g.Movement.Local.BaseTime)
	}
	if tm.Active {
		if p := rt.st.Player(); p != nil {
			ids := make([]string, 0, len(p.Modifiers))
			for id := range p.Modifiers {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				m := rt.g.ModifierByID(id)
				if m != nil && m.Behavior.TravelTimeMultiplier > 0 {
					minutes *= m.Behavior.TravelTimeMultiplier
				}
			}
		}
	}
	return int(math.Round(minutes))
}

// companionsWilling verifies every requested escort is present and willing
// to come. Willingness is the companion's follow_player gate, plus an
// action-specific follow_player_<kind> gate when the character declares
// one. Any refusal fails the whole move before it starts.
func (rt *Runtime) companionsWilling(tc *turnCtx) bool {
	ok := true
	for _, charID := range tc.action.WithCharacters {
		if charID == game.PlayerID {
			continue
		}
		if !tc.isPresent(charID) {
			tc.refuse(fmt.Sprintf("%s is not here.", rt.charName(charID)))
			ok = false
			continue
		}
		if !tc.gates[charID+".follow_player"] {
			tc.refuse(rt.gateRefusal(charID, "follow_player"))
			ok = false
			continue
		}
		kindGate := "follow_player_" + tc.action.Type
		if c := rt.g.CharacterByID(charID); c != nil && c.GateByID(kindGate) != nil {
			if !tc.gates[charID+"."+kindGate] {
				tc.refuse(rt.gateRefusal(charID, kindGate))
				ok = false
			}
		}
	}
	return ok
}

// arrive commits a position change: requested escorts follow, the place
// becomes discovered, presence re-resolves for the new location.
func (rt *Runtime) arrive(tc *turnCtx, dest *game.Location) {
	// The gate re-check covers arrivals that bypassed companionsWilling
	// (checker-narrated moves, move effects).
	for _, charID := range tc.action.WithCharacters {
		if charID == game.PlayerID || !tc.isPresent(charID) {
			continue
		}
		if tc.gates[charID+".follow_player"] {
			if cs := rt.st.Char(charID); cs != nil {
				cs.LocationPin = dest.ID
			}
		}
	}

	rt.st.Position.Zone = dest.Zone
	rt.st.Position.Location = dest.ID
	rt.st.DiscoveredLocations[dest.ID] = true
	rt.st.DiscoveredZones[dest.Zone] = true

	rt.resolvePresence(tc)
}

// locationKnown reports discovery, letting currently satisfiable discovery
// conditions count as known.
func (rt *Runtime) locationKnown(tc *turnCtx, loc *game.Location) bool {
	if rt.st.DiscoveredLocations[loc.ID] {
		return true
	}
	if len(loc.DiscoveryConditions) == 0 {
		return loc.StartsDiscovered()
	}
	return rt.evalAll(tc, loc.DiscoveryConditions)
}

func (rt *Runtime) zoneKnown(tc *turnCtx, z *game.Zone) bool {
	if rt.st.DiscoveredZones[z.ID] {
		return true
	}
	if len(z.DiscoveryConditions) == 0 {
		return z.StartsDiscovered()
	}
	return rt.evalAll(tc, z.DiscoveryConditions)
}

// locationUnlocked resolves the live lock, consuming unlock_when the first
// time it holds.
func (rt *Runtime) locationUnlocked(tc *turnCtx, loc *game.Location) bool {
	if !rt.st.Locked(game.CatLocations, loc.ID, loc.Locked) {
		return true
	}
	if loc.UnlockWhen != "" && rt.evalWhen(tc, loc.UnlockWhen) {
		rt.st.SetLocked(game.CatLocations, loc.ID, false)
		return true
	}
	return false
}

func (rt *Runtime) zoneUnlocked(tc *turnCtx, z *game.Zone) bool {
	if !rt.st.Locked(game.CatZones, z.ID, z.Locked) {
		return true
	}
	if z.UnlockWhen != "" && rt.evalWhen(tc, z.UnlockWhen) {
		rt.st.SetLocked(game.CatZones, z.ID, false)
		return true
	}
	return false
}

// reachableInZone walks the zone's directed connection graph.
func (rt *Runtime) reachableInZone(from, to *game.Location) bool {
	if from == nil || to == nil {
		return false
	}
	visited := map[string]bool{from.ID: true}
	queue := []string{from.ID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		loc := rt.g.LocationByID(cur)
		if loc == nil {
			continue
		}
		for _, c := range loc.Connections {
			if c.To == to.ID {
				return true
			}
			if !visited[c.To] {
				visited[c.To] = true
				queue = append(queue, c.To)
			}
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
