// Package battery computes charge, energy and voltage sag for a zinc /
// manganese dioxide cell, either from reactant masses or from a commercial
// capacity rating.
package battery

import (
	"encoding/json"
	"math"

	"rc-physics-lab/internal/units"
)

// Reagent identifies one side of the Zn + 2MnO₂ reaction.
type Reagent string

const (
	Zinc             Reagent = "Zn"
	ManganeseDioxide Reagent = "MnO2"
)

// MassResult is produced by FromMass.
type MassResult struct {
	ZincMoles             float64 `json:"zinc_moles"`
	ManganeseDioxideMoles float64 `json:"manganese_dioxide_moles"`
	LimitingReagent       Reagent `json:"limiting_reagent"`
	ExcessReagent         Reagent `json:"excess_reagent"`
	ExcessMolesRemaining  float64 `json:"excess_moles_remaining"`
	ReactionMoles         float64 `json:"reaction_moles"`
	ElectronMoles         float64 `json:"electron_moles"`
	Charge                float64 `json:"charge_c"`
	Voltage               float64 `json:"voltage"`
	EnergyJoules          float64 `json:"energy_j"`
	EnergyWh              float64 `json:"energy_wh"`
	CapacityMah           float64 `json:"capacity_mah"`
}

// FromMass runs the stoichiometric path. Zinc is limiting when
// moles(Zn) <= moles(MnO₂)/2, so an exact stoichiometric match resolves
// to zinc.
func FromMass(zincMass, manganeseDioxideMass, voltage float64, electronsPerReaction int) MassResult {
	znMoles := zincMass / units.ZincMolarMass
	mnMoles := manganeseDioxideMass / units.ManganeseDioxideMolarMass

	r := MassResult{
		ZincMoles:             znMoles,
		ManganeseDioxideMoles: mnMoles,
		Voltage:               voltage,
	}

	needed := mnMoles / units.ManganeseDioxideCoefficient
	if znMoles <= needed {
		r.LimitingReagent = Zinc
		r.ExcessReagent = ManganeseDioxide
		r.ReactionMoles = znMoles / units.ZincCoefficient
		r.ExcessMolesRemaining = mnMoles - r.ReactionMoles*units.ManganeseDioxideCoefficient
	} else {
		r.LimitingReagent = ManganeseDioxide
		r.ExcessReagent = Zinc
		r.ReactionMoles = mnMoles / units.ManganeseDioxideCoefficient
		r.ExcessMolesRemaining = znMoles - r.ReactionMoles*units.ZincCoefficient
	}

	r.ElectronMoles = r.ReactionMoles * float64(electronsPerReaction)
	r.Charge = r.ElectronMoles * units.Faraday
	r.EnergyJoules = voltage * r.Charge
	r.EnergyWh = r.EnergyJoules / units.SecondsPerHour
	r.CapacityMah = r.Charge / units.CoulombsPerMah
	return r
}

// CapacityResult is produced by FromCapacity.
type CapacityResult struct {
	CellVoltage     float64 `json:"cell_voltage"`
	CellCapacityMah float64 `json:"cell_capacity_mah"`
	CellCharge      float64 `json:"cell_charge_c"`
	SeriesCount     int     `json:"series_count"`
	ParallelCount   int     `json:"parallel_count"`
	PackVoltage     float64 `json:"pack_voltage"`
	PackCapacityMah float64 `json:"pack_capacity_mah"`
	PackCharge      float64 `json:"pack_charge_c"`
	EnergyJoules    float64 `json:"energy_j"`
	EnergyWh        float64 `json:"energy_wh"`
}

// FromCapacity converts a commercial mAh rating into pack charge and energy.
func FromCapacity(capacityMah, cellVoltage float64, seriesCount, parallelCount int) CapacityResult {
	cellCharge := capacityMah / 1000 * units.SecondsPerHour
	packVoltage := cellVoltage * float64(seriesCount)
	packCharge := cellCharge * float64(parallelCount)
	energy := packVoltage * packCharge

	return CapacityResult{
		CellVoltage:     cellVoltage,
		CellCapacityMah: capacityMah,
		CellCharge:      cellCharge,
		SeriesCount:     seriesCount,
		ParallelCount:   parallelCount,
		PackVoltage:     packVoltage,
		PackCapacityMah: capacityMah * float64(parallelCount),
		PackCharge:      packCharge,
		EnergyJoules:    energy,
		EnergyWh:        energy / units.SecondsPerHour,
	}
}

// LoadedVoltageResult describes terminal voltage under load.
type LoadedVoltageResult struct {
	OpenCircuitVoltage float64 `json:"open_circuit_voltage"`
	Current            float64 `json:"current"`
	InternalResistance float64 `json:"internal_resistance"`
	LoadedVoltage      float64 `json:"loaded_voltage"`
	VoltageDrop        float64 `json:"voltage_drop"`
	PowerLoss          float64 `json:"power_loss_w"`
	Collapsed          bool    `json:"collapsed"`
}

// LoadedVoltage applies the I·R sag. The terminal voltage never goes below 0.
func LoadedVoltage(openCircuitVoltage, current, internalResistance float64) LoadedVoltageResult {
	drop := current * internalResistance
	loaded := openCircuitVoltage - drop
	collapsed := loaded < 0
	if collapsed {
		loaded = 0
	}
	return LoadedVoltageResult{
		OpenCircuitVoltage: openCircuitVoltage,
		Current:            current,
		InternalResistance: internalResistance,
		LoadedVoltage:      loaded,
		VoltageDrop:        drop,
		PowerLoss:          current * current * internalResistance,
		Collapsed:          collapsed,
	}
}

// Runtime is the time a pack lasts at a constant draw. Hours is +Inf and
// Unbounded is set when nothing is drawn.
type Runtime struct {
	CapacityMah float64 `json:"capacity_mah"`
	Current     float64 `json:"current"`
	Hours       float64 `json:"hours"`
	Minutes     float64 `json:"minutes"`
	Unbounded   bool    `json:"unbounded"`
}

// EstimateRuntime returns capacity/current in hours.
func EstimateRuntime(capacityMah, currentA float64) Runtime {
	r := Runtime{CapacityMah: capacityMah, Current: currentA}
	if currentA <= 0 {
		r.Hours = math.Inf(1)
		r.Minutes = math.Inf(1)
		r.Unbounded = true
		return r
	}
	r.Hours = capacityMah / 1000 / currentA
	r.Minutes = r.Hours * 60
	return r
}

// MarshalJSON encodes unbounded durations as null.
func (r Runtime) MarshalJSON() ([]byte, error) {
	type wire struct {
		CapacityMah float64  `json:"capacity_mah"`
		Current     float64  `json:"current"`
		Hours       *float64 `json:"hours"`
		Minutes     *float64 `json:"minutes"`
		Unbounded   bool     `json:"unbounded"`
	}
	w := wire{CapacityMah: r.CapacityMah, Current: r.Current, Unbounded: r.Unbounded}
	if !r.Unbounded {
		w.Hours = &r.Hours
		w.Minutes = &r.Minutes
	}
	return json.Marshal(w)
}

// PackEnergy is the energy in joules stored in a pack of the given voltage
// and mAh rating.
func PackEnergy(voltage, capacityMah float64) float64 {
	return voltage * capacityMah * units.CoulombsPerMah
}

// RemainingPercent converts drawn energy into a 0–100 state of charge.
func RemainingPercent(energyUsed, fullEnergy float64) float64 {
	if fullEnergy <= 0 {
		return 0
	}
	return math.Max(0, 100-energyUsed/fullEnergy*100)
}
