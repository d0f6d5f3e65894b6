// Package monitor watches peer broadcasts and flags robots that have gone
// silent past the configured staleness bound. It is the observer for the
// failure mode the decision engine guards against: a robot whose comms are
// wrongly suppressed shows up here as stale while perfectly healthy.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/transport"
)

type peerRecord struct {
	lastHeard time.Time
	stale     bool
}

// Monitor tracks last-heard-from timestamps per peer and sweeps them
// periodically. Safe for concurrent use.
type Monitor struct {
	staleAfter    time.Duration
	checkInterval time.Duration
	logger        *zap.Logger

	// now is replaceable in tests.
	now func() time.Time

	mu          sync.Mutex
	peers       map[string]*peerRecord
	onStale     func(robotID string)
	onRecovered func(robotID string)
}

// New builds a monitor from validated configuration.
func New(cfg config.MonitorConfig, logger *zap.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("monitor config rejected: %w", err)
	}
	return &Monitor{
		staleAfter:    cfg.StaleAfter,
		checkInterval: cfg.CheckInterval,
		logger:        logger.Named("monitor"),
		now:           time.Now,
		peers:         make(map[string]*peerRecord),
	}, nil
}

// OnStale registers a callback invoked when a peer crosses the staleness
// bound. Register before Run; the callback runs on the sweep goroutine.
func (m *Monitor) OnStale(fn func(robotID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStale = fn
}

// OnRecovered registers a callback invoked when a stale peer is heard
// from again.
func (m *Monitor) OnRecovered(fn func(robotID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRecovered = fn
}

// Observe records a received broadcast from a peer.
func (m *Monitor) Observe(snap transport.Snapshot) {
	m.mu.Lock()
	rec, ok := m.peers[snap.RobotID]
	if !ok {
		rec = &peerRecord{}
		m.peers[snap.RobotID] = rec
	}
	rec.lastHeard = m.now()
	recovered := rec.stale
	rec.stale = false
	callback := m.onRecovered
	m.mu.Unlock()

	if recovered {
		m.logger.Info("peer recovered", zap.String("robot_id", snap.RobotID))
		if callback != nil {
			callback(snap.RobotID)
		}
	}
}

// Run consumes broadcasts from the given channel and sweeps for stale
// peers until the context is cancelled or the channel closes.
func (m *Monitor) Run(ctx context.Context, broadcasts <-chan transport.Snapshot) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-broadcasts:
			if !ok {
				return
			}
			m.Observe(snap)
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep marks peers silent past the staleness bound and fires callbacks.
// Exposed so tests can drive it with a fake clock.
func (m *Monitor) Sweep() {
	now := m.now()

	m.mu.Lock()
	var newlyStale []string
	for id, rec := range m.peers {
		if !rec.stale && now.Sub(rec.lastHeard) > m.staleAfter {
			rec.stale = true
			newlyStale = append(newlyStale, id)
		}
	}
	callback := m.onStale
	m.mu.Unlock()

	sort.Strings(newlyStale)
	for _, id := range newlyStale {
		m.logger.Warn("peer stale, treating as disconnected",
			zap.String("robot_id", id),
			zap.Duration("stale_after", m.staleAfter),
		)
		if callback != nil {
			callback(id)
		}
	}
}

// IsStale reports whether the peer is currently marked stale. Unknown
// peers are not stale; they have simply never been heard from.
func (m *Monitor) IsStale(robotID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.peers[robotID]
	return ok && rec.stale
}

// LastHeard returns when the peer was last heard from.
func (m *Monitor) LastHeard(robotID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.peers[robotID]
	if !ok {
		return time.Time{}, false
	}
	return rec.lastHeard, true
}

// StalePeers returns the sorted ids of all currently stale peers.
func (m *Monitor) StalePeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, rec := range m.peers {
		if rec.stale {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SetClock overrides the monitor's clock. Tests only.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
