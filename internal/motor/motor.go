// Package motor estimates the current drawn by a small DC motor and an
// approximate shaft speed from a proportional back-EMF model. The model is
// an educational approximation and is kept exactly as is.
package motor

import (
	"encoding/json"
	"math"

	"rc-physics-lab/internal/units"
)

// MaxVoltageRatio caps supply/rated voltage to avoid unbounded extrapolation.
const MaxVoltageRatio = 1.5

// LoadedCurrentResult is the Ohm's-law current through motor and pack.
type LoadedCurrentResult struct {
	SupplyVoltage      float64 `json:"supply_voltage"`
	MotorResistance    float64 `json:"motor_resistance"`
	InternalResistance float64 `json:"internal_resistance"`
	TotalResistance    float64 `json:"total_resistance"`
	Current            float64 `json:"current"`
	Degenerate         bool    `json:"degenerate"`
	Reason             string  `json:"reason,omitempty"`
}

// LoadedCurrent returns V / (motorR + internalR). A non-positive total
// resistance gives zero current flagged as degenerate.
func LoadedCurrent(supplyVoltage, motorResistance, internalResistance float64) LoadedCurrentResult {
	r := LoadedCurrentResult{
		SupplyVoltage:      supplyVoltage,
		MotorResistance:    motorResistance,
		InternalResistance: internalResistance,
		TotalResistance:    motorResistance + internalResistance,
	}
	if r.TotalResistance <= 0 {
		r.Degenerate = true
		r.Reason = "total resistance is zero or negative, current is undefined"
		return r
	}
	r.Current = supplyVoltage / r.TotalResistance
	return r
}

// SpeedEstimate is the result of EstimateSpeed. RPM is nil when the preset
// is not a rotating motor, which is distinct from a stalled motor at 0.
type SpeedEstimate struct {
	Preset           string   `json:"preset"`
	Current          float64  `json:"current"`
	SupplyVoltage    float64  `json:"supply_voltage"`
	VoltageRatio     float64  `json:"voltage_ratio"`
	BackEMFVoltage   float64  `json:"back_emf_voltage"`
	EffectiveVoltage float64  `json:"effective_voltage"`
	SpeedRatio       float64  `json:"speed_ratio"`
	RPM              *float64 `json:"rpm"`
}

// HasSpeed reports whether the estimate carries an RPM value.
func (s SpeedEstimate) HasSpeed() bool { return s.RPM != nil }

// EstimateSpeed applies
//
//	voltageRatio = min(V/rated, 1.5)
//	effective    = V - I·Ra
//	speedRatio   = max(0, effective/rated)
//	rpm          = noLoadRPM · speedRatio · voltageRatio
func EstimateSpeed(current, supplyVoltage float64, preset units.MotorPreset) SpeedEstimate {
	s := SpeedEstimate{Preset: preset.Name, Current: current, SupplyVoltage: supplyVoltage}
	if !preset.Rotates() || preset.RatedVoltage <= 0 {
		return s
	}

	s.VoltageRatio = math.Min(supplyVoltage/preset.RatedVoltage, MaxVoltageRatio)
	s.BackEMFVoltage = current * preset.ArmatureResistance
	s.EffectiveVoltage = supplyVoltage - s.BackEMFVoltage
	s.SpeedRatio = math.Max(0, s.EffectiveVoltage/preset.RatedVoltage)

	rpm := *preset.NoLoadRPM * s.SpeedRatio * s.VoltageRatio
	s.RPM = &rpm
	return s
}

// Estimate chains LoadedCurrent and EstimateSpeed for a preset fed by a
// pack with the given internal resistance.
func Estimate(supplyVoltage, internalResistance float64, preset units.MotorPreset) (LoadedCurrentResult, SpeedEstimate) {
	lc := LoadedCurrent(supplyVoltage, preset.ArmatureResistance, internalResistance)
	return lc, EstimateSpeed(lc.Current, supplyVoltage, preset)
}

// MarshalJSON adds the derived rad/s figure next to rpm.
func (s SpeedEstimate) MarshalJSON() ([]byte, error) {
	type alias SpeedEstimate
	var radPerSec *float64
	if s.RPM != nil {
		w := *s.RPM * 2 * math.Pi / 60
		radPerSec = &w
	}
	return json.Marshal(struct {
		alias
		RadPerSec *float64 `json:"rad_per_sec"`
	}{alias(s), radPerSec})
}
