package battery

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMass_MoleConversion(t *testing.T) {
	masses := []struct{ zn, mn float64 }{
		{1, 2}, {0.5, 10}, {13.076, 17.3872}, {250, 1},
	}
	for _, m := range masses {
		r := FromMass(m.zn, m.mn, 1.5, 2)
		assert.InEpsilon(t, m.zn/65.38, r.ZincMoles, 1e-9)
		assert.InEpsilon(t, m.mn/86.936, r.ManganeseDioxideMoles, 1e-9)
	}
}

func TestFromMass_ReferenceScenario(t *testing.T) {
	r := FromMass(1, 2, 1.5, 2)

	assert.InDelta(t, 0.01530, r.ZincMoles, 1e-5)
	assert.InDelta(t, 0.02301, r.ManganeseDioxideMoles, 1e-5)
	// 0.0153 mol Zn needs 0.0306 mol MnO₂, only 0.0230 is present.
	assert.Equal(t, ManganeseDioxide, r.LimitingReagent)
	assert.Equal(t, Zinc, r.ExcessReagent)
	assert.InDelta(t, r.ManganeseDioxideMoles/2, r.ReactionMoles, 1e-12)
	assert.InDelta(t, r.ZincMoles-r.ReactionMoles, r.ExcessMolesRemaining, 1e-12)
	assert.InDelta(t, 2220, r.Charge, 1.0)
	assert.InDelta(t, 1.5*r.Charge, r.EnergyJoules, 1e-9)
	assert.InDelta(t, r.EnergyJoules/3600, r.EnergyWh, 1e-12)
	assert.InDelta(t, r.Charge/3.6, r.CapacityMah, 1e-9)
}

func TestFromMass_ZincLimiting(t *testing.T) {
	r := FromMass(1, 100, 1.5, 2)

	assert.Equal(t, Zinc, r.LimitingReagent)
	assert.Equal(t, ManganeseDioxide, r.ExcessReagent)
	assert.InDelta(t, r.ZincMoles, r.ReactionMoles, 1e-12)
	assert.InDelta(t, r.ManganeseDioxideMoles-2*r.ZincMoles, r.ExcessMolesRemaining, 1e-12)
	assert.InDelta(t, r.ZincMoles*2*96485, r.Charge, 1e-6)
}

func TestFromMass_ExactRatioFavoursZinc(t *testing.T) {
	// 1 mol Zn against exactly 2 mol MnO₂.
	r := FromMass(65.38, 2*86.936, 1.5, 2)

	assert.Equal(t, Zinc, r.LimitingReagent)
	assert.InDelta(t, 0, r.ExcessMolesRemaining, 1e-12)
	assert.InDelta(t, 2*96485, r.Charge, 1e-6)
}

func TestFromMass_ZeroMassDoesNotPanic(t *testing.T) {
	r := FromMass(0, 0, 1.5, 2)
	assert.Equal(t, 0.0, r.Charge)
	assert.Equal(t, 0.0, r.EnergyJoules)
	assert.Equal(t, Zinc, r.LimitingReagent)
}

func TestFromMass_ElectronsPerReaction(t *testing.T) {
	two := FromMass(1, 100, 1.5, 2)
	one := FromMass(1, 100, 1.5, 1)
	assert.InDelta(t, two.Charge/2, one.Charge, 1e-9)
}

func TestFromCapacity_ReferenceScenario(t *testing.T) {
	r := FromCapacity(2000, 1.5, 4, 1)

	assert.InDelta(t, 6.0, r.PackVoltage, 1e-12)
	assert.InDelta(t, 2000, r.PackCapacityMah, 1e-12)
	assert.InDelta(t, 7200, r.PackCharge, 1e-9)
	assert.InDelta(t, 43200, r.EnergyJoules, 1e-6)
	assert.InDelta(t, 12.0, r.EnergyWh, 1e-9)
}

func TestFromCapacity_Parallel(t *testing.T) {
	r := FromCapacity(2000, 1.2, 6, 2)

	assert.InDelta(t, 7.2, r.PackVoltage, 1e-12)
	assert.InDelta(t, 4000, r.PackCapacityMah, 1e-12)
	assert.InDelta(t, 2*r.CellCharge, r.PackCharge, 1e-9)
	assert.InDelta(t, 7.2*14400, r.EnergyJoules, 1e-6)
}

func TestLoadedVoltage(t *testing.T) {
	r := LoadedVoltage(6.0, 1.0, 1.2)

	assert.InDelta(t, 4.8, r.LoadedVoltage, 1e-12)
	assert.InDelta(t, 1.2, r.VoltageDrop, 1e-12)
	// I²·R, not (I·R)².
	assert.InDelta(t, 1.2, r.PowerLoss, 1e-12)
	assert.False(t, r.Collapsed)
}

func TestLoadedVoltage_ClampsAtZero(t *testing.T) {
	r := LoadedVoltage(6.0, 20, 1.2)

	assert.Equal(t, 0.0, r.LoadedVoltage)
	assert.True(t, r.Collapsed)
	assert.InDelta(t, 24.0, r.VoltageDrop, 1e-12)
	assert.InDelta(t, 480.0, r.PowerLoss, 1e-9)
}

func TestEstimateRuntime(t *testing.T) {
	r := EstimateRuntime(3000, 1.5)
	assert.InDelta(t, 2.0, r.Hours, 1e-12)
	assert.InDelta(t, 120.0, r.Minutes, 1e-9)
	assert.False(t, r.Unbounded)

	for _, current := range []float64{0, -2} {
		idle := EstimateRuntime(3000, current)
		assert.True(t, math.IsInf(idle.Hours, 1))
		assert.True(t, idle.Unbounded)
	}
}

func TestRuntime_MarshalUnboundedAsNull(t *testing.T) {
	b, err := json.Marshal(EstimateRuntime(3000, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"capacity_mah":3000,"current":0,"hours":null,"minutes":null,"unbounded":true}`, string(b))

	b, err = json.Marshal(EstimateRuntime(1000, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"capacity_mah":1000,"current":2,"hours":0.5,"minutes":30,"unbounded":false}`, string(b))
}

func TestRequests_Validate(t *testing.T) {
	m := MassRequest{ZincMass: 1, ManganeseDioxideMass: 2, Voltage: 1.5}
	require.NoError(t, m.Validate())
	assert.Equal(t, 2, m.ElectronsPerReaction)

	bad := MassRequest{ZincMass: 0, ManganeseDioxideMass: 2, Voltage: -1}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "zinc_mass")
	assert.Contains(t, err.Error(), "voltage")

	c := CapacityRequest{CapacityMah: 2000, CellVoltage: 1.5, SeriesCount: 4}
	require.NoError(t, c.Validate())
	assert.Equal(t, 1, c.ParallelCount)

	c = CapacityRequest{CapacityMah: 2000, CellVoltage: 1.5, SeriesCount: -1}
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	assert.NoError(t, RuntimeRequest{CapacityMah: 1000, Current: 0}.Validate())
	assert.Error(t, RuntimeRequest{CapacityMah: 0, Current: 1}.Validate())
	assert.Error(t, LoadedVoltageRequest{OpenCircuitVoltage: 6, Current: -1}.Validate())
}

func TestRemainingPercent(t *testing.T) {
	full := PackEnergy(7.2, 3000)
	assert.InDelta(t, 77760, full, 1e-6)
	assert.Equal(t, 100.0, RemainingPercent(0, full))
	assert.InDelta(t, 50.0, RemainingPercent(full/2, full), 1e-12)
	assert.Equal(t, 0.0, RemainingPercent(2*full, full))
	assert.Equal(t, 0.0, RemainingPercent(1, 0))
}
