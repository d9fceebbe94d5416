package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMu0(t *testing.T) {
	assert.InDelta(t, 1.25663706e-6, Mu0, 1e-14)
}

func TestRelativePermeability(t *testing.T) {
	mu, ok := RelativePermeability(" Iron ")
	assert.True(t, ok)
	assert.Equal(t, 5000.0, mu)

	mu, ok = RelativePermeability("cheese")
	assert.False(t, ok)
	assert.Equal(t, 1.0, mu)
}

func TestMaterialsSorted(t *testing.T) {
	assert.Equal(t, []string{"air", "ferrite", "iron", "nickel", "steel", "vacuum"}, Materials())
}

func TestPresetLookup(t *testing.T) {
	b, err := Battery("nimh-7.2")
	require.NoError(t, err)
	assert.Equal(t, 7.2, b.CellVoltage)

	_, err = Battery("d-cell")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	m, err := Motor("540")
	require.NoError(t, err)
	assert.True(t, m.Rotates())

	coil, err := Motor("coil")
	require.NoError(t, err)
	assert.False(t, coil.Rotates())

	_, err = Motor("")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestPresetListsAreOrdered(t *testing.T) {
	batteries := BatteryPresets()
	require.Len(t, batteries, 5)
	for i := 1; i < len(batteries); i++ {
		assert.Less(t, batteries[i-1].Name, batteries[i].Name)
	}

	motors := MotorPresets()
	require.Len(t, motors, 4)
	assert.Equal(t, "130", motors[0].Name)
	assert.Equal(t, "coil", motors[len(motors)-1].Name)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, 96485.0, Faraday)
	assert.Equal(t, 3600.0/1000, CoulombsPerMah)
}

func TestMu0IsConstant(t *testing.T) {
	const mu0 = Mu0
	assert.InDelta(t, 4e-7, mu0/math.Pi, 1e-18)
}
