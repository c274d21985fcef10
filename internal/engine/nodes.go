package engine

import (
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/game"
)

// runPendingNodeEntry applies the current node's entry effects when a
// previous transition deferred them (session start, restored session, or a
// move that skipped node effects).
func (rt *Runtime) runPendingNodeEntry(tc *turnCtx) {
	if rt.st.NodeEntryApplied || tc.action.SkipNodeEffects {
		return
	}
	n := rt.g.NodeByID(rt.st.CurrentNode)
	if n == nil {
		return
	}
	rt.applyEffects(tc, n.EntryEffects)
	rt.st.NodeEntryApplied = true
}

// resolveNodeTransitions decides where the story sits after this turn: a
// queued goto wins, then the current node's authored transitions in order.
// A queued goto that cannot be entered falls back to the authored list.
func (rt *Runtime) resolveNodeTransitions(tc *turnCtx) {
	if tc.pendingGoto != "" {
		if rt.canEnterNode(tc, tc.pendingGoto) {
			rt.doTransition(tc, tc.pendingGoto)
			return
		}
		rt.log.Warn("queued transition refused",
			zap.String("node", tc.pendingGoto), zap.Int("turn", tc.turn))
	}

	n := rt.g.NodeByID(rt.st.CurrentNode)
	if n == nil {
		return
	}
	for _, t := range n.Transitions {
		if !rt.evalWhen(tc, t.When) {
			continue
		}
		if !rt.canEnterNode(tc, t.To) {
			continue
		}
		rt.doTransition(tc, t.To)
		return
	}
}

// canEnterNode gates a transition target: the node must exist, a once node
// must be unvisited, preconditions must hold, and a locked ending must
// have been unlocked.
func (rt *Runtime) canEnterNode(tc *turnCtx, id string) bool {
	n := rt.g.NodeByID(id)
	if n == nil {
		rt.log.Warn("transition to unknown node", zap.String("node", id))
		return false
	}
	if n.Once && rt.st.VisitedNodes[id] {
		return false
	}
	if !rt.evalAll(tc, n.Preconditions) {
		return false
	}
	locked := n.Locked
	if n.IsEnding() {
		locked = rt.st.Locked(game.CatEndings, id, n.Locked)
	}
	return !locked
}

// doTransition leaves the current node and enters the next: exit effects,
// the switch, then entry effects. skip_node_effects defers the entry
// effects to a later turn instead of running them now.
func (rt *Runtime) doTransition(tc *turnCtx, toID string) {
	from := rt.g.NodeByID(rt.st.CurrentNode)
	to := rt.g.NodeByID(toID)
	if to == nil {
		return
	}

	if !tc.action.SkipNodeEffects && from != nil {
		rt.applyEffects(tc, from.ExitEffects)
	}

	rt.st.CurrentNode = toID
	rt.st.TurnsInNode = 0
	rt.st.TimeInCurrentNode = 0
	rt.st.NodeEntryApplied = false
	if rt.st.VisitedNodes == nil {
		rt.st.VisitedNodes = make(map[string]bool)
	}
	rt.st.VisitedNodes[toID] = true
	tc.nodeChanged = true

	if !tc.action.SkipNodeEffects {
		rt.applyEffects(tc, to.EntryEffects)
		rt.st.NodeEntryApplied = true
	}

	if to.IsEnding() {
		rt.st.UnlockEnding(toID)
	}

	rt.log.Info("node transition",
		zap.String("from", nodeID(from)), zap.String("to", toID), zap.Int("turn", tc.turn))
}

func nodeID(n *game.Node) string {
	if n == nil {
		return ""
	}
	return n.ID
}
