// Package comms decides, once per planning cycle, whether the local robot
// broadcasts its latest trajectory and topology to its peers. The decision
// fuses three independent inputs: a lifecycle gate, a topology-switch
// trigger and a time-based heartbeat. Getting the fusion wrong is silent
// and safety-relevant (a suppressed heartbeat makes a healthy robot look
// dead to collaborators), so the composition below keeps the two triggers
// as independent booleans and never lets one short-circuit the other.
package comms

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
)

// Engine is the per-robot broadcast decision engine. It owns the
// last-broadcast bookkeeping and mutates it only inside Decide, on a true
// decision. One engine instance serves one robot; the caller serializes
// cycles (one Decide call per planning cycle, single writer), so Decide
// takes no lock. If that invariant ever changes, the read-modify-write of
// the timestamp needs a single critical section around Decide.
type Engine struct {
	switchOnly  bool
	interval    time.Duration
	nonGuidedID int
	logger      *zap.Logger

	lastBroadcast time.Time
	hasBroadcast  bool
}

// NewEngine builds an engine from validated configuration. The
// configuration is re-checked here because the engine must never run with
// an unvalidated heartbeat interval.
func NewEngine(cfg config.CommsConfig, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("comms config rejected: %w", err)
	}
	return &Engine{
		switchOnly:  cfg.TopologySwitchOnly,
		interval:    cfg.HeartbeatInterval,
		nonGuidedID: cfg.ResolvedNonGuidedID(),
		logger:      logger.Named("comms"),
	}, nil
}

// Decide returns whether the robot broadcasts this cycle.
//
// The gate is absolute: a forbidden lifecycle state suppresses everything
// else. Past the gate, the policy depends on the configured mode. In
// legacy mode (topology_switch_only false) the robot communicates
// unconditionally; heartbeat and topology checks are bypassed entirely,
// not evaluated. In switch-only mode both sub-triggers are computed every
// cycle and OR-combined, so enabling switch-only mode can never starve
// the heartbeat fallback.
//
// The last-broadcast timestamp advances to now only on a true decision.
// Callers invoke Decide exactly once per cycle with a monotonic now.
func (e *Engine) Decide(state planner.State, out planner.Outcome, now time.Time) bool {
	if !Permits(state) {
		return false
	}

	result := true
	if e.switchOnly {
		// Both triggers evaluated unconditionally, then combined. No early
		// return between here and the OR: that control-flow shape is what
		// produced the starved-heartbeat defect this engine replaces.
		topologyTrigger := TopologySwitchDetected(out, e.nonGuidedID)
		heartbeatTrigger := HeartbeatDue(now, e.lastBroadcast, e.hasBroadcast, e.interval)
		result = topologyTrigger || heartbeatTrigger

		if result && e.logger.Core().Enabled(zap.DebugLevel) {
			e.logger.Debug("broadcast triggered",
				zap.Bool("topology_trigger", topologyTrigger),
				zap.Bool("heartbeat_trigger", heartbeatTrigger),
				zap.Int("selected_topology_id", out.SelectedTopologyID),
			)
		}
	}

	if result {
		e.lastBroadcast = now
		e.hasBroadcast = true
	}
	return result
}

// LastBroadcast returns the timestamp of the last true decision and
// whether one has happened yet.
func (e *Engine) LastBroadcast() (time.Time, bool) {
	return e.lastBroadcast, e.hasBroadcast
}

// Sample converts a decision into the numeric 1.0/0.0 form the recording
// sink stores, so callers log the decided value without re-deriving it.
func Sample(decision bool) float64 {
	if decision {
		return 1.0
	}
	return 0.0
}
