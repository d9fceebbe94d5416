// Package api exposes the calculators, the simulation and the persisted data
// over a JSON REST API, plus the websocket frame stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rc-physics-lab/internal/config"
	"rc-physics-lab/internal/session"
	"rc-physics-lab/internal/store"
	"rc-physics-lab/internal/stream"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server represents the API server
type Server struct {
	config  *config.Config
	logger  *logrus.Logger
	manager *session.Manager
	store   *store.Service
	hub     *stream.Hub
	router  *mux.Router
	server  *http.Server
}

// NewServer wires the routes. store and hub may be nil; their endpoints
// then answer 503.
func NewServer(cfg *config.Config, manager *session.Manager, st *store.Service, hub *stream.Hub, logger *logrus.Logger) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger,
		manager: manager,
		store:   st,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/presets", s.handlePresets).Methods("GET")

	// Calculators
	api.HandleFunc("/battery/mass", s.handleBatteryMass).Methods("POST")
	api.HandleFunc("/battery/capacity", s.handleBatteryCapacity).Methods("POST")
	api.HandleFunc("/battery/loaded-voltage", s.handleLoadedVoltage).Methods("POST")
	api.HandleFunc("/battery/runtime", s.handleRuntime).Methods("POST")
	api.HandleFunc("/field/solenoid", s.handleSolenoid).Methods("POST")
	api.HandleFunc("/field/loop", s.handleLoop).Methods("POST")
	api.HandleFunc("/field/wire", s.handleWire).Methods("POST")
	api.HandleFunc("/motor/current", s.handleMotorCurrent).Methods("POST")
	api.HandleFunc("/motor/speed", s.handleMotorSpeed).Methods("POST")

	// Simulation
	api.HandleFunc("/sim/state", s.handleSimState).Methods("GET")
	api.HandleFunc("/sim/status", s.handleSimStatus).Methods("GET")
	api.HandleFunc("/sim/parameters", s.handleGetParameters).Methods("GET")
	api.HandleFunc("/sim/parameters", s.handlePatchParameters).Methods("PATCH")
	api.HandleFunc("/sim/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sim/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/sim/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sim/transfer", s.handleTransfer).Methods("POST")
	api.HandleFunc("/sim/cruise", s.handleEnableCruise).Methods("POST")
	api.HandleFunc("/sim/cruise", s.handleDisableCruise).Methods("DELETE")

	// Persisted data
	api.HandleFunc("/laps", s.handleLaps).Methods("GET")
	api.HandleFunc("/laps/best", s.handleBestLap).Methods("GET")
	api.HandleFunc("/settings", s.handleListSettings).Methods("GET")
	api.HandleFunc("/settings/{key}", s.handleGetSetting).Methods("GET")
	api.HandleFunc("/settings/{key}", s.handlePutSetting).Methods("PUT")
	api.HandleFunc("/settings/{key}", s.handleDeleteSetting).Methods("DELETE")

	if s.hub != nil {
		s.router.Handle("/ws/state", s.hub)
	}

	s.router.Use(s.loggingMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start serves HTTP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting HTTP server on %s", addr)

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down server...")
		s.server.Close()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop() {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		s.server.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int    `json:"total,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	QueryMs int64  `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}

// decode reads a JSON body into v.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

type validator interface {
	Validate() error
}

// calculate decodes req, validates it and responds with compute(req).
func calculate[T validator](w http.ResponseWriter, r *http.Request, req T, compute func(T) interface{}) {
	if err := decode(r, req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, compute(req))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"run_id": s.manager.RunID(),
		"store":  s.store != nil,
		"stream": s.hub != nil,
	})
}
