package simulator

import (
	"encoding/json"
	"math"
	"testing"

	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/motor"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T, track float64) *Simulator {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Disable logs for tests

	sim, err := New(DefaultParameters(), TrackConfig{TrackLength: track}, logger)
	require.NoError(t, err)
	return sim
}

func frictionless() Parameters {
	p := DefaultParameters()
	p.FrictionCoeff = 0
	p.AirResistance = 0
	p.Throttle = 0
	return p
}

func TestComputeForces_NoFrictionAtRest(t *testing.T) {
	p := DefaultParameters()

	f := ComputeForces(0, 0, p)
	assert.Equal(t, 0.0, f.Friction)
	assert.Equal(t, 0.0, f.Net)

	f = ComputeForces(2, 1, p)
	assert.InDelta(t, 0.5/0.03*0.8, f.Motor, 1e-9)
	assert.InDelta(t, -0.02*1.5*9.81, f.Friction, 1e-9)
	assert.InDelta(t, -0.4, f.Air, 1e-9)
	assert.InDelta(t, f.Motor+f.Friction+f.Air, f.Net, 1e-12)
}

func TestIntegrate_LapWrap(t *testing.T) {
	s := InitialState()
	s.Position = 19.999
	s.Velocity = 0.2

	next, lap := Integrate(s, frictionless(), 20, 0.01)

	require.NotNil(t, lap)
	assert.InDelta(t, 0.001, next.Position, 1e-9)
	assert.InDelta(t, 0.2, next.Velocity, 1e-12)
	assert.Equal(t, 1, next.LapCount)
	assert.InDelta(t, 0.01, next.LapTime, 1e-12)
	// A zero-length lap never counts as a best lap.
	assert.False(t, lap.IsBest)
	assert.False(t, next.HasBestLap())
	assert.Nil(t, lap.BestLapTime)
}

func TestIntegrate_BestLap(t *testing.T) {
	p := frictionless()
	s := InitialState()
	s.Velocity = 1

	cross := func(s State, lapTime float64) (State, *LapEvent) {
		s.Position = 19.995
		s.LapTime = lapTime
		return Integrate(s, p, 20, 0.01)
	}

	s, lap := cross(s, 5)
	require.NotNil(t, lap)
	assert.True(t, lap.IsBest)
	assert.Equal(t, 5.0, s.BestLapTime)

	s, lap = cross(s, 7)
	require.NotNil(t, lap)
	assert.False(t, lap.IsBest)
	assert.Equal(t, 5.0, s.BestLapTime)

	s, lap = cross(s, 3)
	require.NotNil(t, lap)
	assert.True(t, lap.IsBest)
	assert.Equal(t, 3.0, s.BestLapTime)
	assert.Equal(t, 3, s.LapCount)
	require.NotNil(t, lap.BestLapTime)
	assert.Equal(t, 3.0, *lap.BestLapTime)
}

func TestIntegrate_VelocityNeverNegative(t *testing.T) {
	p := DefaultParameters()
	p.FrictionCoeff = 5
	s := InitialState()
	s.Velocity = 0.01

	next, _ := Integrate(s, p, 20, MaxStep)
	assert.Equal(t, 0.0, next.Velocity)
	assert.GreaterOrEqual(t, next.Position, s.Position)
}

func TestIntegrate_EnergyMonotonic(t *testing.T) {
	p := DefaultParameters()
	p.Throttle = 0.6
	s := InitialState()

	for i := 0; i < 500; i++ {
		next, _ := Integrate(s, p, 20, 0.02)
		assert.GreaterOrEqual(t, next.TotalEnergy, s.TotalEnergy)
		assert.LessOrEqual(t, next.BatteryCharge, s.BatteryCharge)
		assert.GreaterOrEqual(t, next.BatteryCharge, 0.0)
		assert.GreaterOrEqual(t, next.Velocity, 0.0)
		s = next
	}
	// 7.2 V · 10 A · 0.6 over 10 s.
	assert.InDelta(t, 432, s.TotalEnergy, 1e-6)
	full := battery.PackEnergy(p.BatteryVoltage, p.BatteryCapacity)
	assert.InDelta(t, 100-432/full*100, s.BatteryCharge, 1e-9)
}

func TestIntegrate_NoDrainWithoutThrottle(t *testing.T) {
	s := InitialState()
	s.Velocity = 3

	next, _ := Integrate(s, DefaultParameters(), 20, 0.05)
	assert.Equal(t, 0.0, next.TotalEnergy)
	assert.Equal(t, 100.0, next.BatteryCharge)
	assert.Less(t, next.Velocity, s.Velocity)
}

func TestIntegrate_ExhaustedBatteryForcesThrottleOff(t *testing.T) {
	p := DefaultParameters()
	p.Throttle = 1
	p.BatteryCapacity = 0.001 // 0.026 J, gone in a single tick

	s, _ := Integrate(InitialState(), p, 20, 0.01)
	assert.Equal(t, 0.0, s.BatteryCharge)
	assert.True(t, s.Exhausted())
	assert.Equal(t, 0.0, EffectiveThrottle(s, p))

	energy := s.TotalEnergy
	next, _ := Integrate(s, p, 20, 0.01)
	assert.Equal(t, 0.0, next.Forces.Motor)
	assert.Equal(t, energy, next.TotalEnergy)
	assert.Equal(t, 0.0, next.BatteryCharge)
}

func TestSimulator_TickOnlyWhileRunning(t *testing.T) {
	sim := newTestSimulator(t, DefaultTrackLength)

	assert.False(t, sim.Tick(0.05))
	assert.Equal(t, InitialState(), sim.GetState())

	sim.Start()
	assert.False(t, sim.Tick(0))
	assert.False(t, sim.Tick(-1))
	assert.True(t, sim.Tick(0.05))
	assert.InDelta(t, 0.05, sim.GetState().ElapsedTime, 1e-12)

	// Large gaps are clamped to MaxStep.
	assert.True(t, sim.Tick(2))
	assert.InDelta(t, 0.05+MaxStep, sim.GetState().ElapsedTime, 1e-12)

	sim.Stop()
	assert.False(t, sim.Tick(0.05))
	assert.False(t, sim.GetState().IsRunning)
}

func TestSimulator_ResetIsIdempotent(t *testing.T) {
	sim := newTestSimulator(t, DefaultTrackLength)
	require.NoError(t, sim.SetThrottle(0.8))
	sim.Start()
	for i := 0; i < 50; i++ {
		sim.Tick(0.05)
	}
	require.Greater(t, sim.GetState().Position, 0.0)

	sim.Reset()
	first := sim.GetState()
	sim.Reset()

	assert.Equal(t, InitialState(), first)
	assert.Equal(t, first, sim.GetState())
	assert.Equal(t, 0.0, sim.GetParameters().Throttle)
	assert.False(t, sim.GetState().IsRunning)
}

func TestSimulator_LapCallback(t *testing.T) {
	sim := newTestSimulator(t, 2)
	var laps []LapEvent
	sim.SetLapCallback(func(e LapEvent) { laps = append(laps, e) })

	require.NoError(t, sim.SetThrottle(1))
	sim.Start()
	for i := 0; i < 200; i++ {
		sim.Tick(0.05)
	}

	state := sim.GetState()
	require.NotEmpty(t, laps)
	assert.Equal(t, state.LapCount, len(laps))
	for i, lap := range laps {
		assert.Equal(t, i+1, lap.Lap)
	}
	assert.True(t, state.HasBestLap())
	assert.Less(t, state.Position, 2.0)
}

func TestSimulator_SetParameters(t *testing.T) {
	sim := newTestSimulator(t, DefaultTrackLength)

	err := sim.SetParameters(ParameterUpdate{Mass: Float(-1), Throttle: Float(0.5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, DefaultParameters(), sim.GetParameters())

	require.NoError(t, sim.SetParameters(ParameterUpdate{Throttle: Float(1.7), MotorEfficiency: Float(-0.3)}))
	p := sim.GetParameters()
	assert.Equal(t, 1.0, p.Throttle)
	assert.Equal(t, 0.0, p.MotorEfficiency)

	assert.Error(t, sim.SetParameters(ParameterUpdate{Throttle: Float(math.NaN())}))
	assert.Error(t, sim.SetParameters(ParameterUpdate{WheelRadius: Float(0)}))
	assert.Error(t, sim.SetParameters(ParameterUpdate{BatteryCapacity: Float(math.Inf(1))}))
	assert.True(t, ParameterUpdate{}.Empty())
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	_, err := New(DefaultParameters(), TrackConfig{TrackLength: 0}, logger)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	p := DefaultParameters()
	p.Mass = 0
	_, err = New(p, TrackConfig{TrackLength: 20}, logger)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	p = DefaultParameters()
	p.Throttle = 3
	sim, err := New(p, TrackConfig{TrackLength: 20}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim.GetParameters().Throttle)
}

func TestSimulator_BatteryTransfer(t *testing.T) {
	sim := newTestSimulator(t, DefaultTrackLength)
	pack := battery.FromCapacity(2000, 1.2, 6, 1)
	load := motor.LoadedCurrent(pack.PackVoltage, 1.2, 0.1)

	transfer, err := NewTransfer(pack, load, true)
	require.NoError(t, err)
	require.NoError(t, sim.ApplyBatteryTransfer(transfer))

	p := sim.GetParameters()
	assert.InDelta(t, 7.2, p.BatteryVoltage, 1e-12)
	assert.InDelta(t, 7.2/1.3, p.BatteryCurrent, 1e-12)
	assert.InDelta(t, 2000, p.BatteryCapacity, 1e-12)

	transfer, err = NewTransfer(battery.FromCapacity(5000, 3.7, 2, 1), load, false)
	require.NoError(t, err)
	assert.Nil(t, transfer.PackCapacityMah)
	require.NoError(t, sim.ApplyBatteryTransfer(transfer))
	assert.InDelta(t, 2000, sim.GetParameters().BatteryCapacity, 1e-12)

	_, err = NewTransfer(pack, motor.LoadedCurrent(7.2, 0, 0), true)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestState_JSON(t *testing.T) {
	b, err := json.Marshal(InitialState())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "best_lap_time")
	assert.Nil(t, raw["best_lap_time"])
	assert.Equal(t, 100.0, raw["battery_charge"])

	var decoded State
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, math.IsInf(decoded.BestLapTime, 1))

	s := InitialState()
	s.BestLapTime = 4.2
	b, err = json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, 4.2, decoded.BestLapTime)
}
