package battery

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidInput = errors.New("invalid battery input")

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be > 0, got %v: %w", name, v, ErrInvalidInput)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s must be >= 0, got %v: %w", name, v, ErrInvalidInput)
	}
	return nil
}

// MassRequest carries the stoichiometric inputs in grams.
type MassRequest struct {
	ZincMass             float64 `json:"zinc_mass"`
	ManganeseDioxideMass float64 `json:"manganese_dioxide_mass"`
	Voltage              float64 `json:"voltage"`
	ElectronsPerReaction int     `json:"electrons_per_reaction,omitempty"`
}

func (r *MassRequest) Validate() error {
	if r.ElectronsPerReaction == 0 {
		r.ElectronsPerReaction = 2
	}
	if r.ElectronsPerReaction < 1 {
		return fmt.Errorf("electrons_per_reaction must be a positive integer: %w", ErrInvalidInput)
	}
	return errors.Join(
		positive("zinc_mass", r.ZincMass),
		positive("manganese_dioxide_mass", r.ManganeseDioxideMass),
		positive("voltage", r.Voltage),
	)
}

func (r MassRequest) Calculate() MassResult {
	return FromMass(r.ZincMass, r.ManganeseDioxideMass, r.Voltage, r.ElectronsPerReaction)
}

// CapacityRequest carries the commercial-rating inputs.
type CapacityRequest struct {
	CapacityMah   float64 `json:"capacity_mah"`
	CellVoltage   float64 `json:"cell_voltage"`
	SeriesCount   int     `json:"series_count"`
	ParallelCount int     `json:"parallel_count"`
}

func (r *CapacityRequest) Validate() error {
	if r.SeriesCount == 0 {
		r.SeriesCount = 1
	}
	if r.ParallelCount == 0 {
		r.ParallelCount = 1
	}
	var countErr error
	if r.SeriesCount < 1 || r.ParallelCount < 1 {
		countErr = fmt.Errorf("series_count and parallel_count must be >= 1: %w", ErrInvalidInput)
	}
	return errors.Join(
		positive("capacity_mah", r.CapacityMah),
		positive("cell_voltage", r.CellVoltage),
		countErr,
	)
}

func (r CapacityRequest) Calculate() CapacityResult {
	return FromCapacity(r.CapacityMah, r.CellVoltage, r.SeriesCount, r.ParallelCount)
}

type LoadedVoltageRequest struct {
	OpenCircuitVoltage float64 `json:"open_circuit_voltage"`
	Current            float64 `json:"current"`
	InternalResistance float64 `json:"internal_resistance"`
}

func (r LoadedVoltageRequest) Validate() error {
	return errors.Join(
		positive("open_circuit_voltage", r.OpenCircuitVoltage),
		nonNegative("current", r.Current),
		nonNegative("internal_resistance", r.InternalResistance),
	)
}

func (r LoadedVoltageRequest) Calculate() LoadedVoltageResult {
	return LoadedVoltage(r.OpenCircuitVoltage, r.Current, r.InternalResistance)
}

type RuntimeRequest struct {
	CapacityMah float64 `json:"capacity_mah"`
	Current     float64 `json:"current"`
}

// Validate allows a zero or negative current: that is the idle case.
func (r RuntimeRequest) Validate() error {
	if math.IsNaN(r.Current) {
		return fmt.Errorf("current is NaN: %w", ErrInvalidInput)
	}
	return positive("capacity_mah", r.CapacityMah)
}

func (r RuntimeRequest) Calculate() Runtime {
	return EstimateRuntime(r.CapacityMah, r.Current)
}
