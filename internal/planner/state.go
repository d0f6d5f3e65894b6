// Package planner holds the domain types the communication layer consumes
// from the local motion planner: its coarse lifecycle state and the result
// of a single planning cycle.
package planner

import "fmt"

// State is the planner's coarse lifecycle state. It is a closed enumeration:
// every consumer that switches over it must handle all variants, and the
// comms gate test iterates All() to keep that honest when a state is added.
type State int

const (
	// Uninitialized is the zero value, before the planner node is constructed.
	Uninitialized State = iota
	// Startup covers node construction up to the first configuration load.
	Startup
	// WaitingForFirstPose means localization has not yet produced a pose.
	WaitingForFirstPose
	// InitializingObstacles means the obstacle representation is being built.
	InitializingObstacles
	// Planning is the nominal operating state: computing trajectories.
	Planning
	// Tracking is the nominal operating state: following a computed trajectory.
	Tracking
	// GoalReached means the current goal is done and no trajectory is active.
	GoalReached
	// Resetting means the planner is tearing down for a new scenario run.
	Resetting
	// Errored means the planner hit an unrecoverable fault.
	Errored

	stateCount // sentinel, keep last
)

var stateNames = [...]string{
	Uninitialized:         "uninitialized",
	Startup:               "startup",
	WaitingForFirstPose:   "waiting_for_first_pose",
	InitializingObstacles: "initializing_obstacles",
	Planning:              "planning",
	Tracking:              "tracking",
	GoalReached:           "goal_reached",
	Resetting:             "resetting",
	Errored:               "errored",
}

// String returns the snake_case name used in logs and recorded samples.
func (s State) String() string {
	if s < 0 || s >= stateCount {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is a declared lifecycle state.
func (s State) Valid() bool {
	return s >= 0 && s < stateCount
}

// All returns every declared lifecycle state, in declaration order.
func All() []State {
	states := make([]State, 0, int(stateCount))
	for s := State(0); s < stateCount; s++ {
		states = append(states, s)
	}
	return states
}
