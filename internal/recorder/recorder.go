// Package recorder persists the per-cycle broadcast decision so
// experiment analysis can reconstruct exactly when each robot chose to
// communicate. The engine exposes the decision value; this package only
// stores it, keyed by robot and cycle.
package recorder

import (
	"context"
	"time"
)

// Sample is one recorded decision. Decision is the numeric 1.0/0.0 form
// of the engine's boolean, which is what the analysis tooling plots.
type Sample struct {
	RobotID            string    `json:"robot_id"`
	Cycle              uint64    `json:"cycle"`
	State              string    `json:"state"`
	Decision           float64   `json:"decision"`
	SelectedTopologyID int       `json:"selected_topology_id"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// Recorder is a decision-sample sink.
type Recorder interface {
	// Record persists one sample. Implementations may buffer.
	Record(ctx context.Context, s Sample) error

	// Close flushes buffers and releases resources.
	Close() error
}

// Nop discards every sample. Used when recording is disabled.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Sample) error { return nil }

// Close implements Recorder.
func (Nop) Close() error { return nil }

var _ Recorder = Nop{}
