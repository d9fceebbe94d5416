package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rc-physics-lab/internal/simulator"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, simulator.DefaultTrackLength, cfg.Simulation.TrackLength)
	assert.Equal(t, simulator.DefaultParameters(), cfg.Simulation.Parameters)
	assert.Equal(t, time.Second/60, cfg.Simulation.TickInterval())
	assert.Equal(t, "rclab", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "pid", cfg.Cruise.Type)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
simulation:
  track_length: 35
  tick_rate: 120
  parameters:
    mass: 2.2
mqtt:
  broker: tcp://broker:1883
cruise:
  type: simple
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("RCLAB_SERVER_PORT", "9100")

	cfg, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 35.0, cfg.Simulation.TrackLength)
	assert.Equal(t, time.Second/120, cfg.Simulation.TickInterval())
	assert.Equal(t, 2.2, cfg.Simulation.Parameters.Mass)
	assert.Equal(t, 0.03, cfg.Simulation.Parameters.WheelRadius)
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "simple", cfg.Cruise.Type)
}

func TestLoad_MQTTEnvFallback(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://fallback:1883")
	t.Setenv("MQTT_USERNAME", "car")

	cfg, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "tcp://fallback:1883", cfg.MQTT.Broker)
	assert.Equal(t, "car", cfg.MQTT.Username)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)

	bad := *cfg
	bad.Simulation.TrackLength = 0
	assert.ErrorIs(t, bad.Validate(), simulator.ErrInvalidParameter)

	bad = *cfg
	bad.Simulation.Parameters.Mass = -1
	assert.ErrorIs(t, bad.Validate(), simulator.ErrInvalidParameter)

	bad = *cfg
	bad.Simulation.TickRate = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Cruise.Type = "bangbang"
	assert.Error(t, bad.Validate())
}
