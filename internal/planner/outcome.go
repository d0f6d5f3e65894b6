package planner

// Outcome is the per-cycle result of trajectory computation. The planner
// produces a fresh value every cycle and hands it to the communication
// layer by value; nothing downstream mutates or retains it.
type Outcome struct {
	// Success is false when the optimizer failed to produce a feasible
	// trajectory this cycle.
	Success bool

	// FollowingNewTopology is true on the cycle the planner adopts a
	// different maneuver class than the one it was following.
	FollowingNewTopology bool

	// SelectedTopologyID identifies the guided path the planner is
	// following, or the non-guided sentinel when it is following none.
	SelectedTopologyID int
}
