// Package transport is the boundary between the decision engine and the
// network. The engine only emits a boolean; implementations of
// Broadcaster consume it by actually publishing the robot's trajectory
// snapshot. The wire format used between real robots is out of scope
// here; the loopback bus below carries Go values in process, which is
// what bring-up simulations and tests need.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("transport: bus closed")

// Snapshot is what a robot shares with its peers on a true decision:
// enough for collaborators to track its topology choice and freshness.
type Snapshot struct {
	// MessageID uniquely identifies this broadcast.
	MessageID string

	// RobotID identifies the sender.
	RobotID string

	// Cycle is the sender's planning-cycle counter.
	Cycle uint64

	// SelectedTopologyID is the topology the sender is following.
	SelectedTopologyID int

	// State is the sender's lifecycle state at broadcast time.
	State planner.State

	// SentAt is the sender's clock at broadcast time.
	SentAt time.Time
}

// Broadcaster publishes a snapshot to peers. Implementations report
// transport failures to the caller; the decision engine never sees them.
type Broadcaster interface {
	Broadcast(ctx context.Context, snap Snapshot) error
}

// NewSnapshot stamps a snapshot with a fresh message id.
func NewSnapshot(robotID string, cycle uint64, state planner.State, out planner.Outcome, now time.Time) Snapshot {
	return Snapshot{
		MessageID:          uuid.New().String(),
		RobotID:            robotID,
		Cycle:              cycle,
		SelectedTopologyID: out.SelectedTopologyID,
		State:              state,
		SentAt:             now,
	}
}

// LoopbackBus is an in-process Broadcaster that fans snapshots out to
// subscribers. One bus models the shared medium of a simulated fleet.
type LoopbackBus struct {
	mu     sync.RWMutex
	subs   []chan Snapshot
	closed bool
}

// NewLoopbackBus creates an empty bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{}
}

// Broadcast delivers the snapshot to every subscriber. Slow subscribers
// drop messages rather than block the sender's planning cycle.
func (b *LoopbackBus) Broadcast(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber buffer full; freshness beats completeness here.
		}
	}
	return nil
}

// Subscribe returns a channel receiving every future broadcast. The
// channel is closed when the bus closes.
func (b *LoopbackBus) Subscribe(buffer int) <-chan Snapshot {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Snapshot, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Close shuts the bus down and closes all subscriber channels.
func (b *LoopbackBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

var _ Broadcaster = (*LoopbackBus)(nil)
