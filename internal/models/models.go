package models

import (
	"sync"
	"time"

	"rc-physics-lab/internal/simulator"
)

// Frame is one published snapshot of a run.
type Frame struct {
	RunID             string               `json:"run_id"`
	Sequence          uint64               `json:"sequence"`
	State             simulator.State      `json:"state"`
	Parameters        simulator.Parameters `json:"parameters"`
	EffectiveThrottle float64              `json:"effective_throttle"`
	Cruise            CruiseStatus         `json:"cruise"`
	Timestamp         time.Time            `json:"timestamp"`
}

type CruiseStatus struct {
	Enabled     bool    `json:"enabled"`
	TargetSpeed float64 `json:"target_speed"`
	Regulator   string  `json:"regulator,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

type FrameData struct {
	Frame     Frame
	Timestamp time.Time
	mutex     sync.RWMutex
}

func NewFrameData() *FrameData {
	return &FrameData{
		Frame:     Frame{State: simulator.InitialState()},
		Timestamp: time.Now(),
	}
}

func (fd *FrameData) Update(frame Frame) {
	fd.mutex.Lock()
	defer fd.mutex.Unlock()
	fd.Frame = frame
	fd.Timestamp = time.Now()
}

func (fd *FrameData) Get() (Frame, time.Time) {
	fd.mutex.RLock()
	defer fd.mutex.RUnlock()
	return fd.Frame, fd.Timestamp
}

// CruiseSetpoint holds the speed the cruise regulator aims for.
type CruiseSetpoint struct {
	Enabled     bool
	TargetSpeed float64
	Timestamp   time.Time
	mutex       sync.RWMutex
}

func NewCruiseSetpoint() *CruiseSetpoint {
	return &CruiseSetpoint{
		Enabled:   false,
		Timestamp: time.Now(),
	}
}

func (cs *CruiseSetpoint) Update(enabled bool, targetSpeed float64) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	cs.Enabled = enabled
	if enabled {
		cs.TargetSpeed = targetSpeed
	}
	cs.Timestamp = time.Now()
}

func (cs *CruiseSetpoint) Get() (bool, float64) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return cs.Enabled, cs.TargetSpeed
}
