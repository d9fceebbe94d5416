package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

const (
	defaultLapLimit = 50
	maxLapLimit     = 1000
)

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "store disabled")
		return false
	}
	return true
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	start := time.Now()

	runID := r.URL.Query().Get("run_id")
	if runID == "current" {
		runID = s.manager.RunID()
	}

	limit := defaultLapLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxLapLimit {
		limit = maxLapLimit
	}

	laps, err := s.store.GetLaps(runID, limit)
	if err != nil {
		s.logger.Errorf("Failed to query laps: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithMeta(w, laps, &meta{
		Total:   len(laps),
		Limit:   limit,
		RunID:   runID,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleBestLap(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "current" {
		runID = s.manager.RunID()
	}
	lap, err := s.store.BestLap(runID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, lap)
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	settings, err := s.store.GetSettings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	setting, err := s.store.GetSetting(mux.Vars(r)["key"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

type settingRequest struct {
	Value *string `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req settingRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Value == nil {
		respondError(w, http.StatusBadRequest, "value is required")
		return
	}
	setting, err := s.store.PutSetting(mux.Vars(r)["key"], *req.Value)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	key := mux.Vars(r)["key"]
	if err := s.store.DeleteSetting(key); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": key})
}
