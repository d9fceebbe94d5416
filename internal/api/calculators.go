package api

import (
	"net/http"

	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/magnetic"
	"rc-physics-lab/internal/motor"
	"rc-physics-lab/internal/units"
)

type presetsResponse struct {
	Batteries []units.BatteryPreset `json:"batteries"`
	Motors    []units.MotorPreset   `json:"motors"`
	Materials []string              `json:"materials"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, presetsResponse{
		Batteries: units.BatteryPresets(),
		Motors:    units.MotorPresets(),
		Materials: units.Materials(),
	})
}

func (s *Server) handleBatteryMass(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &battery.MassRequest{}, func(req *battery.MassRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleBatteryCapacity(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &battery.CapacityRequest{}, func(req *battery.CapacityRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleLoadedVoltage(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &battery.LoadedVoltageRequest{}, func(req *battery.LoadedVoltageRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &battery.RuntimeRequest{}, func(req *battery.RuntimeRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleSolenoid(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &magnetic.SolenoidRequest{}, func(req *magnetic.SolenoidRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &magnetic.LoopRequest{}, func(req *magnetic.LoopRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleWire(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &magnetic.WireRequest{}, func(req *magnetic.WireRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleMotorCurrent(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &motor.CurrentRequest{}, func(req *motor.CurrentRequest) interface{} {
		return req.Calculate()
	})
}

func (s *Server) handleMotorSpeed(w http.ResponseWriter, r *http.Request) {
	calculate(w, r, &motor.SpeedRequest{}, func(req *motor.SpeedRequest) interface{} {
		return req.Calculate()
	})
}
