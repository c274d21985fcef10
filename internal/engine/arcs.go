package engine

// maxArcHopsPerTurn bounds how many stages one arc may climb in a single
// turn, so a chain of always-true conditions cannot spin forever.
const maxArcHopsPerTurn = 4

// advanceArcs climbs each arc while the next stage's condition holds:
// on_advance of the stage being left, the move, then on_enter of the stage
// entered. Each stage reached is reported as a milestone.
func (rt *Runtime) advanceArcs(tc *turnCtx) {
	for _, a := range rt.g.Arcs {
		for hop := 0; hop < maxArcHopsPerTurn; hop++ {
			idx := rt.st.ArcProgress[a.ID]
			if idx+1 >= len(a.Stages) {
				break
			}
			next := a.Stages[idx+1]
			if next.AdvanceWhen == "" || !rt.evalWhen(tc, next.AdvanceWhen) {
				break
			}

			rt.applyEffects(tc, a.Stages[idx].OnAdvance)
			rt.st.ArcProgress[a.ID] = idx + 1
			rt.st.ArcHistory[a.ID] = append(rt.st.ArcHistory[a.ID], next.ID)
			rt.applyEffects(tc, next.OnEnter)

			tc.milestones = append(tc.milestones, a.ID+":"+next.ID)
		}
	}
}
