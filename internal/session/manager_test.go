package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"rc-physics-lab/internal/config"
	"rc-physics-lab/internal/models"
	"rc-physics-lab/internal/regulation"
	"rc-physics-lab/internal/simulator"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{
			TrackLength: 5,
			TickRate:    100,
			Parameters:  simulator.DefaultParameters(),
		},
		Cruise: config.CruiseConfig{
			Type:             "pid",
			Kp:               0.15,
			Ki:               0.05,
			Kd:               0.01,
			SmoothingFactor:  0.2,
			MaxTimeGap:       1.0,
			MaxStepPerSecond: 2.0,
		},
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Disable logs for tests

	cfg := testConfig()
	sim, err := simulator.New(cfg.Simulation.Parameters, simulator.TrackConfig{TrackLength: cfg.Simulation.TrackLength}, logger)
	require.NoError(t, err)
	regulator, err := regulation.CreateRegulator(regulation.PIDRegulation, cfg, logger)
	require.NoError(t, err)
	return NewManager(cfg, sim, regulator, logger)
}

func TestManager_AdvancePublishesFrames(t *testing.T) {
	m := newTestManager(t)

	var frames []models.Frame
	m.SetFrameCallback(func(f models.Frame) { frames = append(frames, f) })

	first := m.Advance(0.02)
	assert.Equal(t, uint64(1), first.Sequence)
	assert.False(t, first.State.IsRunning)
	assert.Equal(t, 0.0, first.State.ElapsedTime)

	m.StartRun()
	require.NoError(t, m.SetThrottle(0.5))
	for i := 0; i < 10; i++ {
		m.Advance(0.02)
	}

	require.Len(t, frames, 11)
	last := frames[len(frames)-1]
	assert.Equal(t, uint64(11), last.Sequence)
	assert.Equal(t, m.RunID(), last.RunID)
	assert.InDelta(t, 0.2, last.State.ElapsedTime, 1e-9)
	assert.Equal(t, 0.5, last.EffectiveThrottle)

	held, _ := m.GetFrameData().Get()
	assert.Equal(t, last.Sequence, held.Sequence)
}

func TestManager_LapRecordsCarryRunID(t *testing.T) {
	m := newTestManager(t)

	var laps []LapRecord
	m.SetLapCallback(func(l LapRecord) { laps = append(laps, l) })

	m.StartRun()
	require.NoError(t, m.SetThrottle(1))
	for i := 0; i < 300; i++ {
		m.Advance(0.02)
	}

	require.NotEmpty(t, laps)
	for i, lap := range laps {
		assert.Equal(t, m.RunID(), lap.RunID)
		assert.Equal(t, i+1, lap.Lap)
	}
}

func TestManager_ResetStartsNewRun(t *testing.T) {
	m := newTestManager(t)
	runID := m.RunID()

	m.StartRun()
	require.NoError(t, m.EnableCruise(3))
	for i := 0; i < 20; i++ {
		m.Advance(0.02)
	}

	newID := m.ResetRun()
	assert.NotEqual(t, runID, newID)
	assert.Equal(t, newID, m.RunID())

	status := m.GetStatus()
	assert.Equal(t, false, status["cruise_enabled"])
	assert.Equal(t, false, status["running"])
	assert.Equal(t, simulator.InitialState(), m.Simulator().GetState())

	frame, _ := m.GetFrameData().Get()
	assert.Equal(t, newID, frame.RunID)
	assert.Equal(t, uint64(1), frame.Sequence)
}

func TestManager_CruiseDrivesThrottle(t *testing.T) {
	m := newTestManager(t)

	m.StartRun()
	require.NoError(t, m.EnableCruise(3))
	for i := 0; i < 50; i++ {
		m.Advance(0.02)
	}

	frame, _ := m.GetFrameData().Get()
	assert.True(t, frame.Cruise.Enabled)
	assert.Equal(t, 3.0, frame.Cruise.TargetSpeed)
	assert.Equal(t, "PID Regulator", frame.Cruise.Regulator)
	assert.NotEmpty(t, frame.Cruise.Reason)
	assert.Greater(t, frame.State.Velocity, 0.0)

	// Manual throttle takes over
	require.NoError(t, m.SetThrottle(0.2))
	enabled, _ := m.cruise.Get()
	assert.False(t, enabled)
	assert.Equal(t, 0.2, m.Simulator().GetParameters().Throttle)
}

func TestManager_EnableCruiseValidation(t *testing.T) {
	m := newTestManager(t)
	assert.ErrorIs(t, m.EnableCruise(-1), simulator.ErrInvalidParameter)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	sim, err := simulator.New(simulator.DefaultParameters(), simulator.TrackConfig{TrackLength: 20}, logger)
	require.NoError(t, err)
	noCruise := NewManager(testConfig(), sim, nil, logger)
	assert.Error(t, noCruise.EnableCruise(2))
}

func TestManager_StartStopsOnCancel(t *testing.T) {
	m := newTestManager(t)
	m.config.Simulation.AutoStart = true

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Start(ctx)
	}()
	wg.Wait()

	state := m.Simulator().GetState()
	assert.True(t, state.IsRunning)
	assert.Greater(t, state.ElapsedTime, 0.0)
}

// interruptingRegulator issues a manual throttle from another goroutine while
// a cruise decision is being computed.
type interruptingRegulator struct {
	manager *Manager
	wg      sync.WaitGroup
	once    sync.Once
}

func (r *interruptingRegulator) Calculate(input regulation.RegulationInput) regulation.RegulationOutput {
	r.once.Do(func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.manager.SetThrottle(0.2)
		}()
		time.Sleep(20 * time.Millisecond)
	})
	return regulation.RegulationOutput{Throttle: 0.9, IsDriving: true, Reason: "test"}
}

func (r *interruptingRegulator) Reset()                            {}
func (r *interruptingRegulator) GetName() string                   { return "interrupting" }
func (r *interruptingRegulator) GetStatus() map[string]interface{} { return map[string]interface{}{} }

func TestManager_ManualThrottleDuringRegulationWins(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Disable logs for tests

	cfg := testConfig()
	sim, err := simulator.New(cfg.Simulation.Parameters, simulator.TrackConfig{TrackLength: cfg.Simulation.TrackLength}, logger)
	require.NoError(t, err)
	regulator := &interruptingRegulator{}
	m := NewManager(cfg, sim, regulator, logger)
	regulator.manager = m

	m.StartRun()
	require.NoError(t, m.EnableCruise(3))
	m.Advance(0.01)
	regulator.wg.Wait()

	enabled, _ := m.cruise.Get()
	assert.False(t, enabled)
	assert.Equal(t, 0.2, m.Simulator().GetParameters().Throttle)
}
