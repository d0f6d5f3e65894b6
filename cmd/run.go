package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/observability"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/recorder"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/sim"
)

var (
	flagRobots     int
	flagCycles     int
	flagSwitchOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a multi-robot bring-up scenario.",
	Long: `Run drives a fleet of simulated planning loops against the broadcast
decision engine. Each robot decides once per cycle whether to communicate;
decisions are recorded per cycle and peer freshness is monitored so a
wrongly silenced robot shows up as stale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}

		// CLI flags override the config file for quick experiments.
		if cmd.Flags().Changed("robots") {
			cfg.Fleet.Robots = flagRobots
		}
		if cmd.Flags().Changed("cycles") {
			cfg.Fleet.Cycles = flagCycles
		}
		if cmd.Flags().Changed("switch-only") {
			cfg.Comms.TopologySwitchOnly = flagSwitchOnly
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return runScenario(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().IntVar(&flagRobots, "robots", 0, "number of simulated robots (overrides config)")
	runCmd.Flags().IntVar(&flagCycles, "cycles", 0, "planning cycles per robot, 0 runs until interrupted (overrides config)")
	runCmd.Flags().BoolVar(&flagSwitchOnly, "switch-only", false, "broadcast only on topology switches plus the heartbeat fallback (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runScenario(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	rec, err := newRecorder(ctx, cfg.Recorder, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Warn("failed to close recorder", zap.Error(err))
		}
	}()

	fleet, err := sim.NewFleet(cfg, rec, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := fleet.Run(ctx); err != nil {
		return err
	}

	logger.Info("run complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("switch_only", cfg.Comms.TopologySwitchOnly),
		zap.Strings("stale_peers", fleet.Monitor().StalePeers()),
	)
	return nil
}

// newRecorder builds the configured decision-sample sink.
func newRecorder(ctx context.Context, cfg config.RecorderConfig, logger *zap.Logger) (recorder.Recorder, error) {
	switch cfg.Backend {
	case "none":
		return recorder.Nop{}, nil
	case "jsonl":
		rec, err := recorder.NewJSONLRecorder(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("recording decision samples", zap.String("backend", "jsonl"), zap.String("path", cfg.Path))
		return rec, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		store, err := recorder.NewStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("recording decision samples", zap.String("backend", "postgres"))
		return store, nil
	default:
		// Unreachable past config validation.
		return nil, fmt.Errorf("unknown recorder backend %q", cfg.Backend)
	}
}
