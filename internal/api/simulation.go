package api

import (
	"net/http"

	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/motor"
	"rc-physics-lab/internal/simulator"
	"rc-physics-lab/internal/units"
)

func (s *Server) handleSimState(w http.ResponseWriter, r *http.Request) {
	frame, _ := s.manager.GetFrameData().Get()
	frame.State, frame.Parameters = s.manager.Simulator().Snapshot()
	frame.RunID = s.manager.RunID()
	respondJSON(w, http.StatusOK, frame)
}

func (s *Server) handleSimStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.GetStatus())
}

func (s *Server) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Simulator().GetParameters())
}

func (s *Server) handlePatchParameters(w http.ResponseWriter, r *http.Request) {
	var update simulator.ParameterUpdate
	if err := decode(r, &update); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.Empty() {
		respondError(w, http.StatusBadRequest, "no parameter given")
		return
	}
	if err := s.manager.SetParameters(update); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.manager.Simulator().GetParameters())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.manager.StartRun()
	respondJSON(w, http.StatusOK, s.manager.Simulator().GetState())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.manager.StopRun()
	respondJSON(w, http.StatusOK, s.manager.Simulator().GetState())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	runID := s.manager.ResetRun()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"state":  s.manager.Simulator().GetState(),
	})
}

// transferRequest describes a pack and a motor. The pack comes either from
// a preset or from explicit cell values.
type transferRequest struct {
	BatteryPreset      string   `json:"battery_preset,omitempty"`
	CapacityMah        float64  `json:"capacity_mah,omitempty"`
	CellVoltage        float64  `json:"cell_voltage,omitempty"`
	SeriesCount        int      `json:"series_count,omitempty"`
	ParallelCount      int      `json:"parallel_count,omitempty"`
	InternalResistance *float64 `json:"internal_resistance,omitempty"` // pack total, Ω
	MotorPreset        string   `json:"motor_preset,omitempty"`
	MotorResistance    float64  `json:"motor_resistance,omitempty"`
	IncludeCapacity    bool     `json:"include_capacity"`
}

func (req transferRequest) build() (simulator.Transfer, error) {
	pack := battery.CapacityRequest{
		CapacityMah:   req.CapacityMah,
		CellVoltage:   req.CellVoltage,
		SeriesCount:   req.SeriesCount,
		ParallelCount: req.ParallelCount,
	}
	cellResistance := 0.0
	if req.BatteryPreset != "" {
		preset, err := units.Battery(req.BatteryPreset)
		if err != nil {
			return simulator.Transfer{}, err
		}
		pack.CapacityMah = preset.CapacityMah
		pack.CellVoltage = preset.CellVoltage
		cellResistance = preset.InternalResistance
	}
	if err := pack.Validate(); err != nil {
		return simulator.Transfer{}, err
	}
	result := pack.Calculate()

	internal := cellResistance * float64(pack.SeriesCount) / float64(pack.ParallelCount)
	if req.InternalResistance != nil {
		internal = *req.InternalResistance
	}

	current := motor.CurrentRequest{
		SupplyVoltage:      result.PackVoltage,
		MotorResistance:    req.MotorResistance,
		InternalResistance: internal,
		Preset:             req.MotorPreset,
	}
	if err := current.Validate(); err != nil {
		return simulator.Transfer{}, err
	}

	return simulator.NewTransfer(result, current.Calculate(), req.IncludeCapacity)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	transfer, err := req.build()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.manager.Simulator().ApplyBatteryTransfer(transfer); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transfer":   transfer,
		"parameters": s.manager.Simulator().GetParameters(),
	})
}

type cruiseRequest struct {
	TargetSpeed *float64 `json:"target_speed"`
}

func (s *Server) handleEnableCruise(w http.ResponseWriter, r *http.Request) {
	var req cruiseRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TargetSpeed == nil {
		respondError(w, http.StatusBadRequest, "target_speed is required")
		return
	}
	if err := s.manager.EnableCruise(*req.TargetSpeed); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":      true,
		"target_speed": *req.TargetSpeed,
	})
}

func (s *Server) handleDisableCruise(w http.ResponseWriter, r *http.Request) {
	s.manager.DisableCruise()
	respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
}
