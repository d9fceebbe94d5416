package motor

import (
	"encoding/json"
	"testing"

	"rc-physics-lab/internal/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preset(t *testing.T, name string) units.MotorPreset {
	t.Helper()
	p, err := units.Motor(name)
	require.NoError(t, err)
	return p
}

func TestLoadedCurrent(t *testing.T) {
	r := LoadedCurrent(6.0, 1.2, 0.3)
	assert.InDelta(t, 4.0, r.Current, 1e-12)
	assert.InDelta(t, 1.5, r.TotalResistance, 1e-12)
	assert.False(t, r.Degenerate)
}

func TestLoadedCurrent_ZeroResistance(t *testing.T) {
	r := LoadedCurrent(6.0, 0, 0)
	assert.Equal(t, 0.0, r.Current)
	assert.True(t, r.Degenerate)
	assert.NotEmpty(t, r.Reason)

	r = LoadedCurrent(6.0, 1, -2)
	assert.True(t, r.Degenerate)
}

func TestEstimateSpeed_Formula(t *testing.T) {
	p := preset(t, "280") // 6 V, 12000 rpm, 1.2 Ω
	s := EstimateSpeed(2.0, 6.0, p)

	require.True(t, s.HasSpeed())
	assert.InDelta(t, 1.0, s.VoltageRatio, 1e-12)
	assert.InDelta(t, 2.4, s.BackEMFVoltage, 1e-12)
	assert.InDelta(t, 3.6, s.EffectiveVoltage, 1e-12)
	assert.InDelta(t, 0.6, s.SpeedRatio, 1e-12)
	assert.InDelta(t, 7200, *s.RPM, 1e-9)
}

func TestEstimateSpeed_VoltageRatioCapped(t *testing.T) {
	p := preset(t, "130") // 3 V rated
	s := EstimateSpeed(0, 12.0, p)

	assert.Equal(t, MaxVoltageRatio, s.VoltageRatio)
	// speedRatio = 12/3 = 4, rpm = 8500·4·1.5
	assert.InDelta(t, 8500*4*1.5, *s.RPM, 1e-9)
}

func TestEstimateSpeed_NegativeEffectiveVoltageClamps(t *testing.T) {
	p := preset(t, "280")
	s := EstimateSpeed(10, 6.0, p)

	require.NotNil(t, s.RPM)
	assert.Equal(t, 0.0, s.SpeedRatio)
	assert.Equal(t, 0.0, *s.RPM)
}

func TestEstimateSpeed_CoilHasNoSpeed(t *testing.T) {
	s := EstimateSpeed(1.5, 6.0, preset(t, "coil"))
	assert.False(t, s.HasSpeed())
	assert.Nil(t, s.RPM)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rpm":null`)
	assert.Contains(t, string(b), `"rad_per_sec":null`)
}

func TestEstimate_Chain(t *testing.T) {
	p := preset(t, "540")
	lc, s := Estimate(7.2, 0.1, p)

	assert.InDelta(t, 7.2/0.22, lc.Current, 1e-9)
	require.NotNil(t, s.RPM)
	assert.InDelta(t, lc.Current, s.Current, 1e-12)
}

func TestSpeedRequest(t *testing.T) {
	current := 2.0
	req := SpeedRequest{Preset: "280", SupplyVoltage: 6, Current: &current}
	require.NoError(t, req.Validate())
	assert.InDelta(t, 7200, *req.Calculate().RPM, 1e-9)

	assert.ErrorIs(t, SpeedRequest{Preset: "v8", SupplyVoltage: 6}.Validate(), units.ErrUnknownPreset)
	assert.ErrorIs(t, SpeedRequest{Preset: "280", SupplyVoltage: 0}.Validate(), ErrInvalidInput)
}

func TestCurrentRequest_Preset(t *testing.T) {
	req := CurrentRequest{Preset: "280", SupplyVoltage: 6, InternalResistance: 0.3}
	require.NoError(t, req.Validate())
	assert.InDelta(t, 4.0, req.Calculate().Current, 1e-12)
}
