// Package session drives a simulator from a wall-clock ticker and fans the
// resulting frames and lap events out to the adapters.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"rc-physics-lab/internal/config"
	"rc-physics-lab/internal/models"
	"rc-physics-lab/internal/regulation"
	"rc-physics-lab/internal/simulator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LapRecord is a lap event tagged with the run it belongs to.
type LapRecord struct {
	RunID string `json:"run_id"`
	simulator.LapEvent
}

type Manager struct {
	config *config.Config
	logger *logrus.Logger

	sim       *simulator.Simulator
	regulator regulation.RegulationService
	frameData *models.FrameData
	cruise    *models.CruiseSetpoint

	runID        string
	sequence     uint64
	lastUpdate   time.Time
	lastDecision string
	epoch        time.Time

	mutex sync.RWMutex
	// control serialises throttle writers: cruise regulation and manual input.
	control sync.Mutex

	onFrame func(frame models.Frame)
	onLap   func(lap LapRecord)
}

// NewManager wires sim to the manager. regulator may be nil, in which case
// cruise control is unavailable.
func NewManager(cfg *config.Config, sim *simulator.Simulator, regulator regulation.RegulationService, logger *logrus.Logger) *Manager {
	m := &Manager{
		config:    cfg,
		logger:    logger,
		sim:       sim,
		regulator: regulator,
		frameData: models.NewFrameData(),
		cruise:    models.NewCruiseSetpoint(),
		runID:     uuid.NewString(),
		epoch:     time.Unix(0, 0),
	}
	sim.SetLapCallback(m.handleLap)
	return m
}

func (m *Manager) SetFrameCallback(callback func(models.Frame)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onFrame = callback
}

func (m *Manager) SetLapCallback(callback func(LapRecord)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onLap = callback
}

func (m *Manager) Simulator() *simulator.Simulator {
	return m.sim
}

func (m *Manager) GetFrameData() *models.FrameData {
	return m.frameData
}

func (m *Manager) RunID() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.runID
}

// Start runs the tick loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	interval := m.config.Simulation.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Infof("Starting session manager (tick every %s)", interval)
	if m.config.Simulation.AutoStart {
		m.sim.Start()
	}

	m.mutex.Lock()
	m.lastUpdate = time.Now()
	m.mutex.Unlock()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping session manager")
			return
		case now := <-ticker.C:
			m.mutex.Lock()
			dt := now.Sub(m.lastUpdate).Seconds()
			m.lastUpdate = now
			m.mutex.Unlock()
			m.Advance(dt)
		}
	}
}

// Advance runs one frame: cruise regulation, one simulator tick and the
// frame fan-out. dt is clamped by the simulator.
func (m *Manager) Advance(dt float64) models.Frame {
	m.regulate()
	m.sim.Tick(dt)
	return m.publishFrame()
}

func (m *Manager) regulate() {
	m.control.Lock()
	defer m.control.Unlock()

	enabled, target := m.cruise.Get()
	if !enabled || m.regulator == nil {
		return
	}

	state, params := m.sim.Snapshot()
	if !state.IsRunning {
		return
	}

	output := m.regulator.Calculate(regulation.RegulationInput{
		Velocity:      state.Velocity,
		TargetSpeed:   target,
		MaxThrottle:   1,
		BatteryCharge: state.BatteryCharge,
		Timestamp:     m.epoch.Add(time.Duration(state.ElapsedTime * float64(time.Second))),
	})

	m.mutex.Lock()
	m.lastDecision = output.Reason
	m.mutex.Unlock()

	if math.Abs(output.Throttle-params.Throttle) < 1e-9 {
		return
	}
	if err := m.sim.SetThrottle(output.Throttle); err != nil {
		m.logger.Errorf("Cruise: failed to apply throttle %.3f: %v", output.Throttle, err)
	}
}

func (m *Manager) publishFrame() models.Frame {
	state, params := m.sim.Snapshot()
	enabled, target := m.cruise.Get()

	m.mutex.Lock()
	m.sequence++
	frame := models.Frame{
		RunID:             m.runID,
		Sequence:          m.sequence,
		State:             state,
		Parameters:        params,
		EffectiveThrottle: simulator.EffectiveThrottle(state, params),
		Cruise: models.CruiseStatus{
			Enabled:     enabled,
			TargetSpeed: target,
			Reason:      m.lastDecision,
		},
		Timestamp: time.Now(),
	}
	if m.regulator != nil {
		frame.Cruise.Regulator = m.regulator.GetName()
	}
	onFrame := m.onFrame
	m.mutex.Unlock()

	m.frameData.Update(frame)
	if onFrame != nil {
		onFrame(frame)
	}
	return frame
}

func (m *Manager) handleLap(event simulator.LapEvent) {
	m.mutex.RLock()
	record := LapRecord{RunID: m.runID, LapEvent: event}
	onLap := m.onLap
	m.mutex.RUnlock()

	m.logger.Infof("Run %s: lap %d in %.2fs", record.RunID, event.Lap, event.LapTime)
	if onLap != nil {
		onLap(record)
	}
}

func (m *Manager) StartRun() {
	m.sim.Start()
}

func (m *Manager) StopRun() {
	m.sim.Stop()
}

// ResetRun resets the simulator and the regulator and begins a new run id.
func (m *Manager) ResetRun() string {
	m.control.Lock()
	m.sim.Reset()
	if m.regulator != nil {
		m.regulator.Reset()
	}
	m.cruise.Update(false, 0)
	m.control.Unlock()

	m.mutex.Lock()
	m.runID = uuid.NewString()
	m.sequence = 0
	m.lastDecision = ""
	runID := m.runID
	m.mutex.Unlock()

	m.publishFrame()
	m.logger.Infof("New run %s", runID)
	return runID
}

// SetThrottle applies a manual throttle. Manual input overrides cruise.
func (m *Manager) SetThrottle(throttle float64) error {
	m.control.Lock()
	defer m.control.Unlock()
	m.disableCruise()
	return m.sim.SetThrottle(throttle)
}

// SetParameters applies a partial update. A throttle in the update
// disables cruise.
func (m *Manager) SetParameters(update simulator.ParameterUpdate) error {
	m.control.Lock()
	defer m.control.Unlock()
	if update.Throttle != nil {
		m.disableCruise()
	}
	return m.sim.SetParameters(update)
}

// EnableCruise asks the regulator to hold targetSpeed (m/s).
func (m *Manager) EnableCruise(targetSpeed float64) error {
	if m.regulator == nil {
		return fmt.Errorf("cruise control is not configured")
	}
	if math.IsNaN(targetSpeed) || math.IsInf(targetSpeed, 0) || targetSpeed < 0 {
		return fmt.Errorf("target_speed=%v must be >= 0: %w", targetSpeed, simulator.ErrInvalidParameter)
	}
	m.control.Lock()
	m.regulator.Reset()
	m.cruise.Update(true, targetSpeed)
	m.control.Unlock()
	m.logger.Infof("Cruise enabled at %.2fm/s (%s)", targetSpeed, m.regulator.GetName())
	return nil
}

func (m *Manager) DisableCruise() {
	m.control.Lock()
	defer m.control.Unlock()
	m.disableCruise()
}

func (m *Manager) disableCruise() {
	enabled, _ := m.cruise.Get()
	if !enabled {
		return
	}
	m.cruise.Update(false, 0)
	if err := m.sim.SetThrottle(0); err != nil {
		m.logger.Errorf("Cruise: failed to release throttle: %v", err)
	}
	m.logger.Info("Cruise disabled")
}

func (m *Manager) GetStatus() map[string]interface{} {
	status := m.sim.GetStatus()

	m.mutex.RLock()
	status["run_id"] = m.runID
	status["sequence"] = m.sequence
	status["cruise_reason"] = m.lastDecision
	m.mutex.RUnlock()

	enabled, target := m.cruise.Get()
	status["cruise_enabled"] = enabled
	status["cruise_target"] = target
	if m.regulator != nil {
		status["regulator"] = m.regulator.GetStatus()
	}
	return status
}
