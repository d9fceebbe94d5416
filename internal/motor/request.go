package motor

import (
	"errors"
	"fmt"
	"math"

	"rc-physics-lab/internal/units"
)

var ErrInvalidInput = errors.New("invalid motor input")

type CurrentRequest struct {
	SupplyVoltage      float64 `json:"supply_voltage"`
	MotorResistance    float64 `json:"motor_resistance"`
	InternalResistance float64 `json:"internal_resistance"`
	// Preset fills MotorResistance from the armature resistance when set.
	Preset string `json:"preset,omitempty"`
}

func (r *CurrentRequest) Validate() error {
	if r.Preset != "" {
		p, err := units.Motor(r.Preset)
		if err != nil {
			return err
		}
		r.MotorResistance = p.ArmatureResistance
	}
	if math.IsNaN(r.SupplyVoltage) || r.SupplyVoltage <= 0 {
		return fmt.Errorf("supply_voltage must be > 0: %w", ErrInvalidInput)
	}
	if math.IsNaN(r.MotorResistance) || math.IsNaN(r.InternalResistance) {
		return fmt.Errorf("resistances must be numbers: %w", ErrInvalidInput)
	}
	return nil
}

func (r CurrentRequest) Calculate() LoadedCurrentResult {
	return LoadedCurrent(r.SupplyVoltage, r.MotorResistance, r.InternalResistance)
}

type SpeedRequest struct {
	Preset        string  `json:"preset"`
	SupplyVoltage float64 `json:"supply_voltage"`
	// Current is derived from the preset and InternalResistance when nil.
	Current            *float64 `json:"current,omitempty"`
	InternalResistance float64  `json:"internal_resistance"`
}

func (r SpeedRequest) Validate() error {
	if _, err := units.Motor(r.Preset); err != nil {
		return err
	}
	if math.IsNaN(r.SupplyVoltage) || r.SupplyVoltage <= 0 {
		return fmt.Errorf("supply_voltage must be > 0: %w", ErrInvalidInput)
	}
	if r.Current != nil && (math.IsNaN(*r.Current) || *r.Current < 0) {
		return fmt.Errorf("current must be >= 0: %w", ErrInvalidInput)
	}
	return nil
}

// Calculate assumes Validate succeeded.
func (r SpeedRequest) Calculate() SpeedEstimate {
	preset, _ := units.Motor(r.Preset)
	if r.Current != nil {
		return EstimateSpeed(*r.Current, r.SupplyVoltage, preset)
	}
	_, s := Estimate(r.SupplyVoltage, r.InternalResistance, preset)
	return s
}
