// Package sim runs multi-robot bring-up scenarios in process: a fleet of
// simulated planning loops sharing one loopback medium, each deciding per
// cycle whether to broadcast, with every decision recorded and every
// peer's freshness monitored.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/comms"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/monitor"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/recorder"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/transport"
)

// Fleet owns the simulated robots and the shared infrastructure around
// them: the loopback bus, the staleness monitor and the sample recorder.
type Fleet struct {
	robots  []*Robot
	bus     *transport.LoopbackBus
	monitor *monitor.Monitor
	rec     recorder.Recorder
	logger  *zap.Logger
}

// NewFleet builds a fleet from validated configuration.
func NewFleet(cfg *config.Config, rec recorder.Recorder, logger *zap.Logger) (*Fleet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fleet configuration rejected: %w", err)
	}

	bus := transport.NewLoopbackBus()
	mon, err := monitor.New(cfg.Monitor, logger)
	if err != nil {
		return nil, err
	}

	robots := make([]*Robot, 0, cfg.Fleet.Robots)
	for i := 0; i < cfg.Fleet.Robots; i++ {
		engine, err := comms.NewEngine(cfg.Comms, logger)
		if err != nil {
			return nil, err
		}
		// Stagger the scripted switches so robots do not all fire at once.
		script := StageScript{
			SwitchEvery: uint64(20 + 3*i),
			FailEvery:   uint64(50 + 7*i),
			TopologyID:  i % max(cfg.Comms.NPaths, 1),
		}
		robots = append(robots, NewRobot(
			fmt.Sprintf("robot_%d", i),
			engine,
			script,
			bus,
			rec,
			logger,
			time.Now,
			cfg.Fleet.CyclePeriod,
			cfg.Fleet.Cycles,
		))
	}

	return &Fleet{
		robots:  robots,
		bus:     bus,
		monitor: mon,
		rec:     rec,
		logger:  logger.Named("fleet"),
	}, nil
}

// Monitor exposes the fleet's staleness monitor.
func (f *Fleet) Monitor() *monitor.Monitor {
	return f.monitor
}

// Run executes the scenario until all robots finish their configured
// cycle count or the context is cancelled.
func (f *Fleet) Run(ctx context.Context) error {
	f.logger.Info("scenario starting", zap.Int("robots", len(f.robots)))

	// The monitor runs outside the robot group: it must outlive the robots
	// and is stopped by the bus closing underneath it, not by group error
	// propagation.
	broadcasts := f.bus.Subscribe(256)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		f.monitor.Run(ctx, broadcasts)
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, robot := range f.robots {
		group.Go(func() error {
			return robot.Run(groupCtx)
		})
	}

	err := group.Wait()
	f.bus.Close()
	<-monitorDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scenario failed: %w", err)
	}
	f.logger.Info("scenario finished", zap.Strings("stale_peers", f.monitor.StalePeers()))
	return nil
}
