package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"rc-physics-lab/internal/simulator"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Store      StoreConfig      `mapstructure:"store"`
	Cruise     CruiseConfig     `mapstructure:"cruise"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SimulationConfig struct {
	TrackLength float64              `mapstructure:"track_length"`
	TickRate    int                  `mapstructure:"tick_rate"` // Hz
	AutoStart   bool                 `mapstructure:"auto_start"`
	Parameters  simulator.Parameters `mapstructure:"parameters"`
}

// TickInterval is the period of the session loop.
func (s SimulationConfig) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.TickRate)
}

type MQTTConfig struct {
	Broker          string `mapstructure:"broker"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	PublishInterval int    `mapstructure:"publish_interval"` // ms
	HomeAssistant   bool   `mapstructure:"home_assistant"`
	DeviceID        string `mapstructure:"device_id"`
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type CruiseConfig struct {
	Type             string  `mapstructure:"type"` // pid | simple
	Kp               float64 `mapstructure:"kp"`
	Ki               float64 `mapstructure:"ki"`
	Kd               float64 `mapstructure:"kd"`
	SmoothingFactor  float64 `mapstructure:"smoothing_factor"`
	MaxTimeGap       float64 `mapstructure:"max_time_gap"`
	MaxStepPerSecond float64 `mapstructure:"max_step_per_second"`
	HysteresisMargin float64 `mapstructure:"hysteresis_margin"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	d := simulator.DefaultParameters()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("simulation.track_length", simulator.DefaultTrackLength)
	v.SetDefault("simulation.tick_rate", 60)
	v.SetDefault("simulation.auto_start", false)
	v.SetDefault("simulation.parameters.mass", d.Mass)
	v.SetDefault("simulation.parameters.wheel_radius", d.WheelRadius)
	v.SetDefault("simulation.parameters.motor_efficiency", d.MotorEfficiency)
	v.SetDefault("simulation.parameters.friction_coeff", d.FrictionCoeff)
	v.SetDefault("simulation.parameters.air_resistance", d.AirResistance)
	v.SetDefault("simulation.parameters.max_torque", d.MaxTorque)
	v.SetDefault("simulation.parameters.battery_voltage", d.BatteryVoltage)
	v.SetDefault("simulation.parameters.battery_current", d.BatteryCurrent)
	v.SetDefault("simulation.parameters.battery_capacity", d.BatteryCapacity)
	v.SetDefault("simulation.parameters.internal_resistance", d.InternalResistance)
	v.SetDefault("simulation.parameters.throttle", d.Throttle)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "rc-physics-lab")
	v.SetDefault("mqtt.topic_prefix", "rclab")
	v.SetDefault("mqtt.publish_interval", 500)
	v.SetDefault("mqtt.home_assistant", false)
	v.SetDefault("mqtt.device_id", "rc_physics_lab")

	v.SetDefault("store.path", "rclab.db")

	v.SetDefault("cruise.type", "pid")
	v.SetDefault("cruise.kp", 0.15)
	v.SetDefault("cruise.ki", 0.05)
	v.SetDefault("cruise.kd", 0.01)
	v.SetDefault("cruise.smoothing_factor", 0.2)
	v.SetDefault("cruise.max_time_gap", 1.0)
	v.SetDefault("cruise.max_step_per_second", 2.0)
	v.SetDefault("cruise.hysteresis_margin", 0.3)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from . or ./config, then RCLAB_* environment
// variables. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom is Load with an explicit viper instance and an optional config
// file path.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("RCLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.MQTT.Broker == "" {
		config.MQTT.Broker = os.Getenv("MQTT_BROKER")
	}
	if config.MQTT.Username == "" {
		config.MQTT.Username = os.Getenv("MQTT_USERNAME")
	}
	if config.MQTT.Password == "" {
		config.MQTT.Password = os.Getenv("MQTT_PASSWORD")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	track := simulator.TrackConfig{TrackLength: c.Simulation.TrackLength}
	if err := track.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if c.Simulation.TickRate <= 0 || c.Simulation.TickRate > 1000 {
		return fmt.Errorf("simulation.tick_rate=%d must be in 1..1000", c.Simulation.TickRate)
	}
	if _, err := (simulator.ParameterUpdate{}).Apply(c.Simulation.Parameters); err != nil {
		return fmt.Errorf("simulation.parameters: %w", err)
	}
	switch c.Cruise.Type {
	case "pid", "simple":
	default:
		return fmt.Errorf("cruise.type %q must be pid or simple", c.Cruise.Type)
	}
	return nil
}
