package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/planner"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/transport"
)

// fakeClock is a settable clock for driving sweeps deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMonitor(t *testing.T) (*Monitor, *fakeClock) {
	t.Helper()
	m, err := New(config.MonitorConfig{
		StaleAfter:    6 * time.Second,
		CheckInterval: 500 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	m.SetClock(clock.Now)
	return m, clock
}

func snapshotFrom(robotID string) transport.Snapshot {
	return transport.NewSnapshot(robotID, 1, planner.Tracking,
		planner.Outcome{Success: true, SelectedTopologyID: 1}, time.Now())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(config.MonitorConfig{StaleAfter: 0, CheckInterval: time.Second}, zap.NewNop())
	require.Error(t, err)
}

func TestMonitor_SilentPeerGoesStale(t *testing.T) {
	m, clock := newTestMonitor(t)

	var staleMu sync.Mutex
	var stale []string
	m.OnStale(func(id string) {
		staleMu.Lock()
		defer staleMu.Unlock()
		stale = append(stale, id)
	})

	m.Observe(snapshotFrom("robot_0"))
	m.Observe(snapshotFrom("robot_1"))

	// Within the bound nobody is stale.
	clock.Advance(5 * time.Second)
	m.Sweep()
	assert.Empty(t, m.StalePeers())

	// robot_1 keeps talking, robot_0 goes silent.
	m.Observe(snapshotFrom("robot_1"))
	clock.Advance(5 * time.Second)
	m.Sweep()

	assert.Equal(t, []string{"robot_0"}, m.StalePeers())
	assert.True(t, m.IsStale("robot_0"))
	assert.False(t, m.IsStale("robot_1"))

	staleMu.Lock()
	assert.Equal(t, []string{"robot_0"}, stale)
	staleMu.Unlock()

	// The callback fires once per staleness transition, not per sweep.
	m.Sweep()
	staleMu.Lock()
	assert.Len(t, stale, 1)
	staleMu.Unlock()
}

func TestMonitor_StalePeerRecovers(t *testing.T) {
	m, clock := newTestMonitor(t)

	var recoveredMu sync.Mutex
	var recovered []string
	m.OnRecovered(func(id string) {
		recoveredMu.Lock()
		defer recoveredMu.Unlock()
		recovered = append(recovered, id)
	})

	m.Observe(snapshotFrom("robot_0"))
	clock.Advance(10 * time.Second)
	m.Sweep()
	require.True(t, m.IsStale("robot_0"))

	m.Observe(snapshotFrom("robot_0"))
	assert.False(t, m.IsStale("robot_0"))

	recoveredMu.Lock()
	assert.Equal(t, []string{"robot_0"}, recovered)
	recoveredMu.Unlock()
}

func TestMonitor_UnknownPeerIsNotStale(t *testing.T) {
	m, _ := newTestMonitor(t)
	assert.False(t, m.IsStale("never_seen"))
	_, ok := m.LastHeard("never_seen")
	assert.False(t, ok)
}

func TestMonitor_RunConsumesAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestMonitor(t)
	broadcasts := make(chan transport.Snapshot, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, broadcasts)
	}()

	broadcasts <- snapshotFrom("robot_2")
	require.Eventually(t, func() bool {
		_, ok := m.LastHeard("robot_2")
		return ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestMonitor_RunStopsWhenChannelCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestMonitor(t)
	broadcasts := make(chan transport.Snapshot)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(context.Background(), broadcasts)
	}()

	close(broadcasts)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on channel close")
	}
}
