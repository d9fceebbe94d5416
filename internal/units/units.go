// Package units holds the physical constants and named component presets
// shared by the calculators and the vehicle simulator.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	Faraday = 96485.0 // C/mol
	Gravity = 9.81    // m/s²

	ZincMolarMass             = 65.38  // g/mol
	ManganeseDioxideMolarMass = 86.936 // g/mol

	// Zn + 2MnO₂ → ZnO + Mn₂O₃
	ZincCoefficient             = 1.0
	ManganeseDioxideCoefficient = 2.0
	ElectronsPerReaction        = 2

	SecondsPerHour = 3600.0
	// Coulombs per mAh.
	CoulombsPerMah = 3.6
)

// Mu0 is the permeability of free space (H/m).
const Mu0 = 4 * math.Pi * 1e-7

var ErrUnknownPreset = errors.New("unknown preset")

// relativePermeability maps a core material to μᵣ.
var relativePermeability = map[string]float64{
	"air":     1.0,
	"vacuum":  1.0,
	"ferrite": 2000.0,
	"iron":    5000.0,
	"nickel":  600.0,
	"steel":   100.0,
}

// RelativePermeability returns μᵣ for material. Unknown names fall back to 1.
func RelativePermeability(material string) (float64, bool) {
	mu, ok := relativePermeability[strings.ToLower(strings.TrimSpace(material))]
	if !ok {
		return 1.0, false
	}
	return mu, true
}

// Materials lists the known core materials, sorted.
func Materials() []string {
	names := maps.Keys(relativePermeability)
	slices.Sort(names)
	return names
}

// BatteryPreset describes a commercial cell or pack.
type BatteryPreset struct {
	Name               string  `json:"name"`
	Label              string  `json:"label"`
	CellVoltage        float64 `json:"cell_voltage"`        // V
	CapacityMah        float64 `json:"capacity_mah"`        // mAh
	InternalResistance float64 `json:"internal_resistance"` // Ω per cell
}

// MotorPreset describes a small DC motor or a non-rotating coil.
// NoLoadRPM is nil for coils.
type MotorPreset struct {
	Name               string   `json:"name"`
	Label              string   `json:"label"`
	RatedVoltage       float64  `json:"rated_voltage"`       // V
	NoLoadRPM          *float64 `json:"no_load_rpm"`         // rpm
	ArmatureResistance float64  `json:"armature_resistance"` // Ω
}

// Rotates reports whether the preset is an actual motor.
func (m MotorPreset) Rotates() bool {
	return m.NoLoadRPM != nil && *m.NoLoadRPM > 0
}

func rpm(v float64) *float64 { return &v }

var batteryPresets = map[string]BatteryPreset{
	"aa-alkaline": {Name: "aa-alkaline", Label: "AA alkaline", CellVoltage: 1.5, CapacityMah: 2500, InternalResistance: 0.15},
	"aa-nimh":     {Name: "aa-nimh", Label: "AA NiMH", CellVoltage: 1.2, CapacityMah: 2000, InternalResistance: 0.03},
	"9v":          {Name: "9v", Label: "9V alkaline", CellVoltage: 9.0, CapacityMah: 550, InternalResistance: 1.7},
	"nimh-7.2":    {Name: "nimh-7.2", Label: "7.2V NiMH stick pack", CellVoltage: 7.2, CapacityMah: 3000, InternalResistance: 0.1},
	"lipo-2s":     {Name: "lipo-2s", Label: "2S LiPo", CellVoltage: 7.4, CapacityMah: 2200, InternalResistance: 0.02},
}

var motorPresets = map[string]MotorPreset{
	"130":  {Name: "130", Label: "130 hobby motor", RatedVoltage: 3.0, NoLoadRPM: rpm(8500), ArmatureResistance: 1.9},
	"280":  {Name: "280", Label: "280 toy motor", RatedVoltage: 6.0, NoLoadRPM: rpm(12000), ArmatureResistance: 1.2},
	"540":  {Name: "540", Label: "540 brushed RC motor", RatedVoltage: 7.2, NoLoadRPM: rpm(20000), ArmatureResistance: 0.12},
	"coil": {Name: "coil", Label: "Electromagnet coil", RatedVoltage: 6.0, NoLoadRPM: nil, ArmatureResistance: 4.0},
}

// Battery looks up a battery preset by name.
func Battery(name string) (BatteryPreset, error) {
	p, ok := batteryPresets[name]
	if !ok {
		return BatteryPreset{}, fmt.Errorf("battery %q: %w", name, ErrUnknownPreset)
	}
	return p, nil
}

// Motor looks up a motor preset by name.
func Motor(name string) (MotorPreset, error) {
	p, ok := motorPresets[name]
	if !ok {
		return MotorPreset{}, fmt.Errorf("motor %q: %w", name, ErrUnknownPreset)
	}
	return p, nil
}

// BatteryPresets returns every battery preset ordered by name.
func BatteryPresets() []BatteryPreset {
	names := maps.Keys(batteryPresets)
	slices.Sort(names)
	out := make([]BatteryPreset, 0, len(names))
	for _, n := range names {
		out = append(out, batteryPresets[n])
	}
	return out
}

// MotorPresets returns every motor preset ordered by name.
func MotorPresets() []MotorPreset {
	names := maps.Keys(motorPresets)
	slices.Sort(names)
	out := make([]MotorPreset, 0, len(names))
	for _, n := range names {
		out = append(out, motorPresets[n])
	}
	return out
}
