// Package magnetic computes the magnetic flux density of simple current
// carrying configurations.
package magnetic

import (
	"errors"
	"fmt"
	"math"

	"rc-physics-lab/internal/units"
)

// Configuration names the geometry a Field was computed for.
type Configuration string

const (
	Solenoid Configuration = "solenoid"
	Loop     Configuration = "loop"
	Wire     Configuration = "wire"
)

var ErrInvalidGeometry = errors.New("invalid field geometry")

// Field is a flux density with display conversions.
type Field struct {
	Configuration        Configuration `json:"configuration"`
	Tesla                float64       `json:"tesla"`
	MilliTesla           float64       `json:"millitesla"`
	MicroTesla           float64       `json:"microtesla"`
	RelativePermeability float64       `json:"relative_permeability"`
	Material             string        `json:"material,omitempty"`
	KnownMaterial        bool          `json:"known_material"`
}

func newField(c Configuration, b, mur float64) Field {
	return Field{
		Configuration:        c,
		Tesla:                b,
		MilliTesla:           b * 1e3,
		MicroTesla:           b * 1e6,
		RelativePermeability: mur,
		KnownMaterial:        true,
	}
}

// SolenoidField returns B = μ₀·μᵣ·N·I/L. An unrecognised material is
// treated as air.
func SolenoidField(turns, current, length float64, material string) Field {
	mur, known := units.RelativePermeability(material)
	f := newField(Solenoid, units.Mu0*mur*turns*current/length, mur)
	f.Material = material
	f.KnownMaterial = known
	return f
}

// LoopField returns the field at the centre of a flat coil,
// B ≈ μ₀·N·I/(2r).
func LoopField(turns, current, radius float64) Field {
	return newField(Loop, units.Mu0*turns*current/(2*radius), 1)
}

// WireField returns B = μ₀·I/(2πr) at distance r from a long straight wire.
func WireField(current, distance float64) Field {
	return newField(Wire, units.Mu0*current/(2*math.Pi*distance), 1)
}

func geometry(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be > 0, got %v: %w", name, v, ErrInvalidGeometry)
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be finite: %w", name, ErrInvalidGeometry)
	}
	return nil
}

type SolenoidRequest struct {
	Turns    float64 `json:"turns"`
	Current  float64 `json:"current"`
	Length   float64 `json:"length"`
	Material string  `json:"material"`
}

func (r SolenoidRequest) Validate() error {
	return errors.Join(geometry("turns", r.Turns), finite("current", r.Current), geometry("length", r.Length))
}

func (r SolenoidRequest) Calculate() Field {
	return SolenoidField(r.Turns, r.Current, r.Length, r.Material)
}

type LoopRequest struct {
	Turns   float64 `json:"turns"`
	Current float64 `json:"current"`
	Radius  float64 `json:"radius"`
}

func (r LoopRequest) Validate() error {
	return errors.Join(geometry("turns", r.Turns), finite("current", r.Current), geometry("radius", r.Radius))
}

func (r LoopRequest) Calculate() Field {
	return LoopField(r.Turns, r.Current, r.Radius)
}

type WireRequest struct {
	Current  float64 `json:"current"`
	Distance float64 `json:"distance"`
}

func (r WireRequest) Validate() error {
	return errors.Join(finite("current", r.Current), geometry("distance", r.Distance))
}

func (r WireRequest) Calculate() Field {
	return WireField(r.Current, r.Distance)
}
