// Package config loads and validates the process-wide configuration.
// Everything is read once at startup through viper; the rest of the
// program receives immutable values and never touches viper again.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultHeartbeatInterval is the fallback heartbeat period. The value is
// 2 seconds; keep the constant name and the value in agreement when
// changing it, and change it here rather than inlining a literal anywhere.
const DefaultHeartbeatInterval = 2 * time.Second

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Comms    CommsConfig    `mapstructure:"comms" yaml:"comms"`
	Fleet    FleetConfig    `mapstructure:"fleet" yaml:"fleet"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Monitor  MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CommsConfig configures the per-cycle broadcast decision engine.
type CommsConfig struct {
	// TopologySwitchOnly selects the decision policy. False is the legacy
	// mode: broadcast every cycle the lifecycle gate permits. True limits
	// broadcasts to topology switches plus the heartbeat fallback.
	TopologySwitchOnly bool `mapstructure:"topology_switch_only" yaml:"topology_switch_only"`

	// HeartbeatInterval is the maximum silence between broadcasts in
	// switch-only mode. Defaults to DefaultHeartbeatInterval (2s).
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`

	// NonGuidedTopologyID is the sentinel the planner reports when it is
	// not following any guided path. Negative means "derive from NPaths".
	NonGuidedTopologyID int `mapstructure:"non_guided_topology_id" yaml:"non_guided_topology_id"`

	// NPaths is the number of precomputed guided paths. Only consulted
	// when NonGuidedTopologyID is negative; the sentinel is then 2*NPaths,
	// matching how the planner numbers its homotopy classes.
	NPaths int `mapstructure:"n_paths" yaml:"n_paths"`
}

// ResolvedNonGuidedID returns the non-guided sentinel, deriving it from
// the configured path count when no explicit id was supplied.
func (c CommsConfig) ResolvedNonGuidedID() int {
	if c.NonGuidedTopologyID >= 0 {
		return c.NonGuidedTopologyID
	}
	return 2 * c.NPaths
}

// Validate rejects configurations the decision engine must never run with.
func (c CommsConfig) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("comms.heartbeat_interval must be a positive duration, got %s", c.HeartbeatInterval)
	}
	if c.NonGuidedTopologyID < 0 && c.NPaths <= 0 {
		return fmt.Errorf("comms.n_paths must be positive when comms.non_guided_topology_id is not set")
	}
	return nil
}

// FleetConfig configures the bring-up simulation loop.
type FleetConfig struct {
	Robots      int           `mapstructure:"robots" yaml:"robots"`
	CyclePeriod time.Duration `mapstructure:"cycle_period" yaml:"cycle_period"`
	Cycles      int           `mapstructure:"cycles" yaml:"cycles"`
}

// Validate checks the fleet settings.
func (c FleetConfig) Validate() error {
	if c.Robots <= 0 {
		return fmt.Errorf("fleet.robots must be a positive integer")
	}
	if c.CyclePeriod <= 0 {
		return fmt.Errorf("fleet.cycle_period must be a positive duration")
	}
	if c.Cycles < 0 {
		return fmt.Errorf("fleet.cycles must not be negative")
	}
	return nil
}

// RecorderConfig selects and configures the decision-sample sink.
type RecorderConfig struct {
	// Backend is "jsonl", "postgres" or "none".
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Path        string `mapstructure:"path" yaml:"path"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// Validate checks the recorder settings.
func (c RecorderConfig) Validate() error {
	switch c.Backend {
	case "none":
	case "jsonl":
		if c.Path == "" {
			return fmt.Errorf("recorder.path is required for the jsonl backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("recorder.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("recorder.backend must be one of none, jsonl, postgres; got %q", c.Backend)
	}
	return nil
}

// MonitorConfig configures the peer staleness monitor.
type MonitorConfig struct {
	// StaleAfter is how long a peer may stay silent before it is reported
	// stale. Should be 2-3x the peers' heartbeat interval.
	StaleAfter    time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
}

// Validate checks the monitor settings.
func (c MonitorConfig) Validate() error {
	if c.StaleAfter <= 0 {
		return fmt.Errorf("monitor.stale_after must be a positive duration")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be a positive duration")
	}
	return nil
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "fleetcomm")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Comms --
	v.SetDefault("comms.topology_switch_only", false)
	v.SetDefault("comms.heartbeat_interval", DefaultHeartbeatInterval)
	v.SetDefault("comms.non_guided_topology_id", -1)
	v.SetDefault("comms.n_paths", 4)

	// -- Fleet --
	v.SetDefault("fleet.robots", 3)
	v.SetDefault("fleet.cycle_period", "100ms")
	v.SetDefault("fleet.cycles", 0) // 0 means run until interrupted

	// -- Recorder --
	v.SetDefault("recorder.backend", "jsonl")
	v.SetDefault("recorder.path", "fleetcomm_samples.jsonl")

	// -- Monitor --
	v.SetDefault("monitor.stale_after", 3*DefaultHeartbeatInterval)
	v.SetDefault("monitor.check_interval", "500ms")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// A failure here is fatal to process initialization: no component runs
// with an unvalidated configuration.
func (c *Config) Validate() error {
	if err := c.Comms.Validate(); err != nil {
		return err
	}
	if err := c.Fleet.Validate(); err != nil {
		return err
	}
	if err := c.Recorder.Validate(); err != nil {
		return err
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	if level := strings.ToLower(c.Logger.Level); level != "" {
		switch level {
		case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
		default:
			return fmt.Errorf("logger.level %q is not a valid zap level", c.Logger.Level)
		}
	}
	return nil
}
