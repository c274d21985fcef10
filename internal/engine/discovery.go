package engine

// runDiscovery surfaces zones and locations whose discovery conditions now
// hold. Discovery is one-way: nothing here ever becomes undiscovered.
func (rt *Runtime) runDiscovery(tc *turnCtx) {
	for _, z := range rt.g.Zones {
		if !rt.st.DiscoveredZones[z.ID] && len(z.DiscoveryConditions) > 0 &&
			rt.evalAll(tc, z.DiscoveryConditions) {
			rt.st.DiscoveredZones[z.ID] = true
		}
		for _, l := range z.Locations {
			if !rt.st.DiscoveredLocations[l.ID] && len(l.DiscoveryConditions) > 0 &&
				rt.evalAll(tc, l.DiscoveryConditions) {
				rt.st.DiscoveredLocations[l.ID] = true
			}
		}
	}
}
