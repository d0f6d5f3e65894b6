package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/comms"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/recorder"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/transport"
)

// Clock supplies the monotonic "now" the decision engine consumes.
type Clock func() time.Time

// Script produces the planner's lifecycle state and cycle outcome for a
// given cycle number. It stands in for the real planner during bring-up.
type Script interface {
	Next(cycle uint64) (planner.State, planner.Outcome)
}

// StageScript is a deterministic Script: a short startup sequence, then
// nominal operation with a topology switch every SwitchEvery cycles and a
// failed cycle every FailEvery cycles (zero disables either).
type StageScript struct {
	SwitchEvery uint64
	FailEvery   uint64
	TopologyID  int
}

// Next implements Script.
func (s StageScript) Next(cycle uint64) (planner.State, planner.Outcome) {
	switch cycle {
	case 0:
		return planner.Startup, planner.Outcome{}
	case 1:
		return planner.WaitingForFirstPose, planner.Outcome{}
	case 2:
		return planner.InitializingObstacles, planner.Outcome{}
	}

	out := planner.Outcome{Success: true, SelectedTopologyID: s.TopologyID}
	if s.FailEvery > 0 && cycle%s.FailEvery == 0 {
		out.Success = false
	}
	if s.SwitchEvery > 0 && cycle%s.SwitchEvery == 0 {
		out.FollowingNewTopology = true
	}

	state := planner.Planning
	if cycle%2 == 0 {
		state = planner.Tracking
	}
	return state, out
}

// Robot drives one simulated planning loop: one engine decision per
// cycle, broadcast on true, sample recorded either way. Cycles are
// serialized on this goroutine, which is the single-writer guarantee the
// engine's bookkeeping relies on.
type Robot struct {
	id     string
	engine *comms.Engine
	script Script
	bus    transport.Broadcaster
	rec    recorder.Recorder
	logger *zap.Logger
	clock  Clock
	period time.Duration
	cycles int
}

// NewRobot wires one robot's planning loop.
func NewRobot(
	id string,
	engine *comms.Engine,
	script Script,
	bus transport.Broadcaster,
	rec recorder.Recorder,
	logger *zap.Logger,
	clock Clock,
	period time.Duration,
	cycles int,
) *Robot {
	return &Robot{
		id:     id,
		engine: engine,
		script: script,
		bus:    bus,
		rec:    rec,
		logger: logger.Named("robot").With(zap.String("robot_id", id)),
		clock:  clock,
		period: period,
		cycles: cycles,
	}
}

// Run executes planning cycles until the context is cancelled or the
// configured cycle count is reached (zero means unbounded).
func (r *Robot) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("robot loop started", zap.Duration("cycle_period", r.period))

	var cycle uint64
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("robot loop stopped", zap.Uint64("cycles_run", cycle))
			return ctx.Err()
		case <-ticker.C:
			if err := r.step(ctx, cycle); err != nil {
				return err
			}
			cycle++
			if r.cycles > 0 && cycle >= uint64(r.cycles) {
				r.logger.Info("robot loop finished", zap.Uint64("cycles_run", cycle))
				return nil
			}
		}
	}
}

// step runs a single planning cycle end to end.
func (r *Robot) step(ctx context.Context, cycle uint64) error {
	state, out := r.script.Next(cycle)
	now := r.clock()

	decision := r.engine.Decide(state, out, now)

	// The engine hands back the decision value itself, so the recorded
	// sample is exactly what was decided, not a re-derivation.
	sample := recorder.Sample{
		RobotID:            r.id,
		Cycle:              cycle,
		State:              state.String(),
		Decision:           comms.Sample(decision),
		SelectedTopologyID: out.SelectedTopologyID,
		RecordedAt:         now,
	}
	if err := r.rec.Record(ctx, sample); err != nil {
		// Recording failures must not silence the robot.
		r.logger.Warn("failed to record decision sample", zap.Uint64("cycle", cycle), zap.Error(err))
	}

	if !decision {
		return nil
	}

	snap := transport.NewSnapshot(r.id, cycle, state, out, now)
	if err := r.bus.Broadcast(ctx, snap); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Error("broadcast failed", zap.Uint64("cycle", cycle), zap.Error(err))
	}
	return nil
}
