package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	// The heartbeat default is contractual: 2 seconds, explicitly.
	assert.Equal(t, 2*time.Second, cfg.Comms.HeartbeatInterval)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.Comms.HeartbeatInterval)
	assert.False(t, cfg.Comms.TopologySwitchOnly)

	// Defaults must pass their own validation.
	require.NoError(t, cfg.Validate())
}

func TestCommsConfig_ResolvedNonGuidedID(t *testing.T) {
	tests := []struct {
		name string
		cfg  CommsConfig
		want int
	}{
		{
			name: "explicit id wins",
			cfg:  CommsConfig{NonGuidedTopologyID: 7, NPaths: 4},
			want: 7,
		},
		{
			name: "explicit zero is a valid id",
			cfg:  CommsConfig{NonGuidedTopologyID: 0, NPaths: 4},
			want: 0,
		},
		{
			name: "derived as twice the path count",
			cfg:  CommsConfig{NonGuidedTopologyID: -1, NPaths: 4},
			want: 8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolvedNonGuidedID())
		})
	}
}

func TestCommsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CommsConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  CommsConfig{HeartbeatInterval: DefaultHeartbeatInterval, NPaths: 4, NonGuidedTopologyID: -1},
		},
		{
			name:    "zero interval rejected",
			cfg:     CommsConfig{HeartbeatInterval: 0, NPaths: 4, NonGuidedTopologyID: -1},
			wantErr: "heartbeat_interval",
		},
		{
			name:    "negative interval rejected",
			cfg:     CommsConfig{HeartbeatInterval: -time.Second, NPaths: 4, NonGuidedTopologyID: -1},
			wantErr: "heartbeat_interval",
		},
		{
			name:    "derivation without path count rejected",
			cfg:     CommsConfig{HeartbeatInterval: DefaultHeartbeatInterval, NPaths: 0, NonGuidedTopologyID: -1},
			wantErr: "n_paths",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("comms.heartbeat_interval", "0s")

	cfg, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfig_Validate_BadRecorderBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Recorder.Backend = "kafka"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder.backend")
}

func TestConfig_Validate_BadLoggerLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Logger.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger.level")
}

func TestConfig_Validate_PostgresNeedsURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Recorder.Backend = "postgres"
	cfg.Recorder.DatabaseURL = ""
	require.Error(t, cfg.Validate())

	cfg.Recorder.DatabaseURL = "postgres://localhost:5432/fleetcomm"
	require.NoError(t, cfg.Validate())
}
