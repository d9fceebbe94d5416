// Package simulator is the stateful RC car model: an RC car driven around a
// closed track by its motor against friction and air drag while the battery
// drains.
//
// A Simulator owns its Parameters and State. Readers get copies, writers go
// through SetParameters / Start / Stop / Reset, and Tick is the only code
// path that mutates State. All methods are safe for concurrent use.
package simulator

import (
	"fmt"
	"math"
	"sync"

	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/motor"

	"github.com/sirupsen/logrus"
)

type Simulator struct {
	logger *logrus.Logger
	track  TrackConfig
	mutex  sync.RWMutex

	params Parameters
	state  State

	onLap func(LapEvent)
}

// New validates the initial parameters and track and returns a stopped
// simulator at rest.
func New(params Parameters, track TrackConfig, logger *logrus.Logger) (*Simulator, error) {
	if err := track.Validate(); err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}
	normalized, err := ParameterUpdate{
		MotorEfficiency: Float(params.MotorEfficiency),
		Throttle:        Float(params.Throttle),
	}.Apply(params)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	return &Simulator{
		logger: logger,
		track:  track,
		params: normalized,
		state:  InitialState(),
	}, nil
}

// SetLapCallback registers fn to be called after every completed lap.
// fn runs on the ticking goroutine, outside the simulator lock.
func (s *Simulator) SetLapCallback(fn func(LapEvent)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onLap = fn
}

// SetParameters applies a partial update atomically.
func (s *Simulator) SetParameters(update ParameterUpdate) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next, err := update.Apply(s.params)
	if err != nil {
		s.logger.Warnf("Rejected parameter update: %v", err)
		return err
	}
	s.params = next
	return nil
}

// SetThrottle is a shortcut for the most frequent update.
func (s *Simulator) SetThrottle(throttle float64) error {
	return s.SetParameters(ParameterUpdate{Throttle: Float(throttle)})
}

// Tick advances the simulation by dt seconds. It is a no-op, returning
// false, while stopped or for a non-positive dt.
func (s *Simulator) Tick(dt float64) bool {
	if dt <= 0 || math.IsNaN(dt) {
		return false
	}
	if dt > MaxStep {
		dt = MaxStep
	}

	s.mutex.Lock()
	if !s.state.IsRunning {
		s.mutex.Unlock()
		return false
	}
	wasExhausted := s.state.Exhausted()
	next, lap := Integrate(s.state, s.params, s.track.TrackLength, dt)
	s.state = next
	onLap := s.onLap
	s.mutex.Unlock()

	if !wasExhausted && next.Exhausted() {
		s.logger.Warnf("Battery exhausted after %.1fJ, throttle forced to 0", next.TotalEnergy)
	}
	if lap != nil {
		s.logger.Debugf("Lap %d completed in %.3fs (best=%v)", lap.Lap, lap.LapTime, lap.IsBest)
		if onLap != nil {
			onLap(*lap)
		}
	}
	return true
}

func (s *Simulator) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.state.IsRunning {
		s.state.IsRunning = true
		s.logger.Info("Simulation started")
	}
}

func (s *Simulator) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state.IsRunning {
		s.state.IsRunning = false
		s.logger.Info("Simulation stopped")
	}
}

// Reset restores the rest state, stops the simulation and zeroes throttle.
func (s *Simulator) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = InitialState()
	s.params.Throttle = 0
	s.logger.Info("Simulation reset")
}

// GetState returns a copy of the current state.
func (s *Simulator) GetState() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// GetParameters returns a copy of the current parameters.
func (s *Simulator) GetParameters() Parameters {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.params
}

// Snapshot returns state and parameters read under a single lock so that
// they describe the same frame.
func (s *Simulator) Snapshot() (State, Parameters) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state, s.params
}

func (s *Simulator) Track() TrackConfig {
	return s.track
}

func (s *Simulator) GetStatus() map[string]interface{} {
	state, params := s.Snapshot()
	return map[string]interface{}{
		"running":            state.IsRunning,
		"position":           state.Position,
		"velocity":           state.Velocity,
		"battery_charge":     state.BatteryCharge,
		"lap_count":          state.LapCount,
		"best_lap_time":      finiteOrNil(state.BestLapTime),
		"total_energy":       state.TotalEnergy,
		"throttle":           params.Throttle,
		"effective_throttle": EffectiveThrottle(state, params),
		"track_length":       s.track.TrackLength,
	}
}

// Transfer carries a battery calculator result into the simulation.
type Transfer struct {
	PackVoltage     float64  `json:"pack_voltage"`
	MotorCurrent    float64  `json:"motor_current"`
	PackCapacityMah *float64 `json:"pack_capacity_mah,omitempty"`
}

// NewTransfer derives the transfer from a commercial pack and the loaded
// motor current. Capacity is carried only when withCapacity is set.
func NewTransfer(pack battery.CapacityResult, load motor.LoadedCurrentResult, withCapacity bool) (Transfer, error) {
	if load.Degenerate {
		return Transfer{}, fmt.Errorf("motor current: %s: %w", load.Reason, ErrInvalidParameter)
	}
	t := Transfer{PackVoltage: pack.PackVoltage, MotorCurrent: load.Current}
	if withCapacity {
		t.PackCapacityMah = Float(pack.PackCapacityMah)
	}
	return t, nil
}

// ApplyBatteryTransfer writes pack voltage, motor current and optionally
// capacity into the parameters through the normal validation path.
func (s *Simulator) ApplyBatteryTransfer(t Transfer) error {
	update := ParameterUpdate{
		BatteryVoltage:  Float(t.PackVoltage),
		BatteryCurrent:  Float(t.MotorCurrent),
		BatteryCapacity: t.PackCapacityMah,
	}
	if err := s.SetParameters(update); err != nil {
		return fmt.Errorf("battery transfer: %w", err)
	}
	s.logger.Infof("Battery transfer applied: %.2fV, %.2fA", t.PackVoltage, t.MotorCurrent)
	return nil
}
