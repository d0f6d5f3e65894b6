package comms

import (
	"time"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
)

// HeartbeatDue reports whether the time-based trigger fires. A robot that
// has never broadcast must not be indistinguishable from one that
// broadcast very recently, so an absent last-broadcast timestamp counts
// as due. Pure function.
func HeartbeatDue(now, lastBroadcast time.Time, hasBroadcast bool, interval time.Duration) bool {
	if !hasBroadcast {
		return true
	}
	return now.Sub(lastBroadcast) >= interval
}

// TopologySwitchDetected reports whether something discontinuous happened
// this cycle that peers must learn about immediately, independent of
// elapsed time: the cycle failed, the planner adopted a new topology, or
// it is following the non-guided sentinel path. Pure function.
func TopologySwitchDetected(out planner.Outcome, nonGuidedID int) bool {
	return !out.Success ||
		out.FollowingNewTopology ||
		out.SelectedTopologyID == nonGuidedID
}
