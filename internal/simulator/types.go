package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	DefaultTrackLength = 20.0 // m
	// MaxStep bounds dt so a stalled frame cannot destabilise the integrator.
	MaxStep = 0.1 // s
)

var ErrInvalidParameter = errors.New("invalid parameter")

// Parameters are the externally mutable inputs of the simulation.
type Parameters struct {
	Mass               float64 `json:"mass" mapstructure:"mass"`                               // kg
	WheelRadius        float64 `json:"wheel_radius" mapstructure:"wheel_radius"`               // m
	MotorEfficiency    float64 `json:"motor_efficiency" mapstructure:"motor_efficiency"`       // 0–1
	FrictionCoeff      float64 `json:"friction_coeff" mapstructure:"friction_coeff"`           // μ
	AirResistance      float64 `json:"air_resistance" mapstructure:"air_resistance"`           // kg/m
	MaxTorque          float64 `json:"max_torque" mapstructure:"max_torque"`                   // N·m
	BatteryVoltage     float64 `json:"battery_voltage" mapstructure:"battery_voltage"`         // V
	BatteryCurrent     float64 `json:"battery_current" mapstructure:"battery_current"`         // A
	BatteryCapacity    float64 `json:"battery_capacity" mapstructure:"battery_capacity"`       // mAh
	InternalResistance float64 `json:"internal_resistance" mapstructure:"internal_resistance"` // Ω
	Throttle           float64 `json:"throttle" mapstructure:"throttle"`                       // 0–1
}

// DefaultParameters describes a 1.5 kg car on a 7.2 V NiMH stick pack.
func DefaultParameters() Parameters {
	return Parameters{
		Mass:               1.5,
		WheelRadius:        0.03,
		MotorEfficiency:    0.8,
		FrictionCoeff:      0.02,
		AirResistance:      0.1,
		MaxTorque:          0.5,
		BatteryVoltage:     7.2,
		BatteryCurrent:     10,
		BatteryCapacity:    3000,
		InternalResistance: 0.1,
		Throttle:           0,
	}
}

func invalid(field string, v float64, rule string) error {
	return fmt.Errorf("%s=%v must be %s: %w", field, v, rule, ErrInvalidParameter)
}

func checkPositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, v, "> 0")
	}
	return nil
}

func checkNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, v, ">= 0")
	}
	return nil
}

func clampUnit(field string, v float64) (float64, error) {
	if math.IsNaN(v) {
		return 0, invalid(field, v, "a number")
	}
	return math.Max(0, math.Min(1, v)), nil
}

// Validate checks every field. Throttle and efficiency are expected already
// clamped.
func (p Parameters) Validate() error {
	return errors.Join(
		checkPositive("mass", p.Mass),
		checkPositive("wheel_radius", p.WheelRadius),
		checkPositive("battery_voltage", p.BatteryVoltage),
		checkPositive("battery_current", p.BatteryCurrent),
		checkPositive("battery_capacity", p.BatteryCapacity),
		checkNonNegative("friction_coeff", p.FrictionCoeff),
		checkNonNegative("air_resistance", p.AirResistance),
		checkNonNegative("max_torque", p.MaxTorque),
		checkNonNegative("internal_resistance", p.InternalResistance),
		checkNonNegative("motor_efficiency", p.MotorEfficiency),
		checkNonNegative("throttle", p.Throttle),
	)
}

// ParameterUpdate is a partial update; nil fields are left unchanged.
type ParameterUpdate struct {
	Mass               *float64 `json:"mass,omitempty"`
	WheelRadius        *float64 `json:"wheel_radius,omitempty"`
	MotorEfficiency    *float64 `json:"motor_efficiency,omitempty"`
	FrictionCoeff      *float64 `json:"friction_coeff,omitempty"`
	AirResistance      *float64 `json:"air_resistance,omitempty"`
	MaxTorque          *float64 `json:"max_torque,omitempty"`
	BatteryVoltage     *float64 `json:"battery_voltage,omitempty"`
	BatteryCurrent     *float64 `json:"battery_current,omitempty"`
	BatteryCapacity    *float64 `json:"battery_capacity,omitempty"`
	InternalResistance *float64 `json:"internal_resistance,omitempty"`
	Throttle           *float64 `json:"throttle,omitempty"`
}

// Float returns a pointer to v, for building updates.
func Float(v float64) *float64 { return &v }

// Apply returns p with the update applied. Throttle and motor efficiency are
// clamped to [0,1]; every other field is rejected when out of range. Nothing
// is applied if any field is rejected.
func (u ParameterUpdate) Apply(p Parameters) (Parameters, error) {
	var errs []error
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setUnit := func(field string, dst *float64, src *float64) {
		if src == nil {
			return
		}
		v, err := clampUnit(field, *src)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = v
	}

	next := p
	set(&next.Mass, u.Mass)
	set(&next.WheelRadius, u.WheelRadius)
	set(&next.FrictionCoeff, u.FrictionCoeff)
	set(&next.AirResistance, u.AirResistance)
	set(&next.MaxTorque, u.MaxTorque)
	set(&next.BatteryVoltage, u.BatteryVoltage)
	set(&next.BatteryCurrent, u.BatteryCurrent)
	set(&next.BatteryCapacity, u.BatteryCapacity)
	set(&next.InternalResistance, u.InternalResistance)
	setUnit("motor_efficiency", &next.MotorEfficiency, u.MotorEfficiency)
	setUnit("throttle", &next.Throttle, u.Throttle)

	if len(errs) == 0 {
		errs = append(errs, next.Validate())
	}
	if err := errors.Join(errs...); err != nil {
		return p, err
	}
	return next, nil
}

// Empty reports whether the update carries no field.
func (u ParameterUpdate) Empty() bool {
	return u == ParameterUpdate{}
}

// TrackConfig is fixed for a session.
type TrackConfig struct {
	TrackLength float64 `json:"track_length" mapstructure:"track_length"` // m
}

func (t TrackConfig) Validate() error {
	return checkPositive("track_length", t.TrackLength)
}

// Forces is the force balance of the last tick, in newtons.
type Forces struct {
	Motor    float64 `json:"motor"`
	Friction float64 `json:"friction"`
	Air      float64 `json:"air"`
	Net      float64 `json:"net"`
}

// State is mutated only by the integrator.
type State struct {
	Position      float64 `json:"position"`       // m
	Velocity      float64 `json:"velocity"`       // m/s
	Acceleration  float64 `json:"acceleration"`   // m/s²
	BatteryCharge float64 `json:"battery_charge"` // %
	LapCount      int     `json:"lap_count"`
	LapTime       float64 `json:"lap_time"`      // s
	BestLapTime   float64 `json:"best_lap_time"` // s, +Inf before the first lap
	TotalEnergy   float64 `json:"total_energy"`  // J
	IsRunning     bool    `json:"is_running"`
	ElapsedTime   float64 `json:"elapsed_time"` // s
	Forces        Forces  `json:"forces"`
}

// InitialState is the car at rest on a full battery.
func InitialState() State {
	return State{
		BatteryCharge: 100,
		BestLapTime:   math.Inf(1),
	}
}

// HasBestLap reports whether a lap has been completed with a finite time.
func (s State) HasBestLap() bool {
	return !math.IsInf(s.BestLapTime, 1)
}

// Exhausted reports whether the battery is empty.
func (s State) Exhausted() bool {
	return s.BatteryCharge <= 0
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// MarshalJSON encodes a missing best lap as null.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(struct {
		alias
		BestLapTime *float64 `json:"best_lap_time"`
	}{alias(s), finiteOrNil(s.BestLapTime)})
}

func (s *State) UnmarshalJSON(data []byte) error {
	type alias State
	aux := struct {
		*alias
		BestLapTime *float64 `json:"best_lap_time"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.BestLapTime = math.Inf(1)
	if aux.BestLapTime != nil {
		s.BestLapTime = *aux.BestLapTime
	}
	return nil
}

// LapEvent is emitted when the car crosses the finish line.
type LapEvent struct {
	Lap           int      `json:"lap"`
	LapTime       float64  `json:"lap_time"`
	BestLapTime   *float64 `json:"best_lap_time"`
	IsBest        bool     `json:"is_best"`
	TotalEnergy   float64  `json:"total_energy"`
	BatteryCharge float64  `json:"battery_charge"`
	ElapsedTime   float64  `json:"elapsed_time"`
}
