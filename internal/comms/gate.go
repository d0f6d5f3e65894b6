package comms

import (
	"fmt"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
)

// Permits maps the planner lifecycle state to communication permission.
// The mapping is total over the closed state enumeration: every variant
// is matched explicitly and an undeclared value panics instead of
// defaulting. Silent fallthrough here is exactly the defect class this
// gate exists to rule out, so adding a lifecycle state without a gating
// rule must fail loudly, not quietly suppress broadcasts.
func Permits(s planner.State) bool {
	switch s {
	case planner.Planning, planner.Tracking:
		return true
	case planner.Uninitialized,
		planner.Startup,
		planner.WaitingForFirstPose,
		planner.InitializingObstacles,
		planner.GoalReached,
		planner.Resetting,
		planner.Errored:
		return false
	default:
		panic(fmt.Sprintf("comms: no gating rule for planner state %v", s))
	}
}
