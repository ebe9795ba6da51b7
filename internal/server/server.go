// Package server exposes parameter sweeps over HTTP and JSON-RPC 2.0.
// Models are registered by name at startup; a request picks a model,
// describes the sweep inputs and outputs, and polls for progress while
// the engine runs the cases in the background.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/SWEEPR/internal/config"
	"github.com/copyleftdev/SWEEPR/internal/logging"
	"github.com/copyleftdev/SWEEPR/internal/sweep"
	"github.com/copyleftdev/SWEEPR/internal/sweep/engine"
)

// Logger is the logging interface the server depends on.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// ModelDefinition binds a registered model name to its factory and
// solver callbacks.
type ModelDefinition struct {
	Factory  sweep.ModelFactory
	Evaluate sweep.EvaluateFunc
	Recover  sweep.RecoverFunc
}

// SweepState tracks one sweep job. Reads and writes go through the
// server's mutex; CasesDone additionally tolerates concurrent updates
// from the engine's case callback.
type SweepState struct {
	ID          string
	Model       string
	Status      string // "pending", "running", "completed", "failed"
	StartTime   time.Time
	EndTime     *time.Time
	TotalCases  int
	CasesDone   int
	LastUpdated time.Time
	Error       string
	ResultFiles []string
}

// Server manages sweep jobs and their HTTP and JSON-RPC surfaces.
type Server struct {
	cfg    *config.Config
	logger Logger

	models map[string]ModelDefinition

	sweeps   map[string]*SweepState
	sweepsMu sync.RWMutex
}

// NewServer creates a Server with an empty model registry.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		models: make(map[string]ModelDefinition),
		sweeps: make(map[string]*SweepState),
	}
}

// RegisterModel makes a model available to sweep requests under name.
func (s *Server) RegisterModel(name string, def ModelDefinition) {
	s.models[name] = def
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sweeps", s.handleStartSweep)
		r.Get("/sweeps/{id}", s.handleSweepStatus)
	})
	r.Post("/rpc", s.handleJSONRPC)
}

// parameterRequest describes one sweep input in a request body.
type parameterRequest struct {
	Target   string  `json:"target"`
	Sampling string  `json:"sampling"` // "linear", "uniform", "normal", "fixed"
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Value    float64 `json:"value"`
}

type sweepRequest struct {
	Model          string             `json:"model"`
	Parameters     []parameterRequest `json:"parameters"`
	Outputs        []string           `json:"outputs"`
	NumSamples     int                `json:"num_samples"`
	Workers        int                `json:"workers"`
	Seed           int64              `json:"seed"`
	InterpolateNaN bool               `json:"interpolate_nan"`
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "sweep.start":
		var req sweepRequest
		if len(request.Params) == 0 || json.Unmarshal(request.Params[0], &req) != nil {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		result, err = s.startSweep(req)
	case "sweep.status":
		var p struct {
			SweepID string `json:"sweep_id"`
		}
		if len(request.Params) == 0 || json.Unmarshal(request.Params[0], &p) != nil {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		result, err = s.sweepStatus(p.SweepID)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// startSweep validates the request, registers a job, and launches the
// engine in the background. Parameter binding happens up front against a
// fresh model instance so a bad target fails the request, not the job.
func (s *Server) startSweep(req sweepRequest) (interface{}, error) {
	def, ok := s.models[req.Model]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", req.Model)
	}
	if len(req.Parameters) == 0 {
		return nil, fmt.Errorf("at least one sweep parameter is required")
	}
	if len(req.Outputs) == 0 {
		return nil, fmt.Errorf("at least one output is required")
	}

	prototype, err := def.Factory()
	if err != nil {
		return nil, fmt.Errorf("cannot create model: %v", err)
	}
	params, err := buildParameters(prototype, req.Parameters)
	if err != nil {
		return nil, err
	}

	samplingType, err := sweep.DeriveSamplingType(params)
	if err != nil {
		return nil, err
	}
	totalCases, err := sweep.CountCases(params, samplingType, req.NumSamples)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers < 1 {
		workers = s.cfg.Sweep.Workers
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Sweep.Seed
	}

	id := fmt.Sprintf("sweep_%d", time.Now().UnixNano())
	outputDir := filepath.Join(s.cfg.Sweep.OutputDir, id)

	state := &SweepState{
		ID:          id,
		Model:       req.Model,
		Status:      "pending",
		StartTime:   time.Now(),
		TotalCases:  totalCases,
		LastUpdated: time.Now(),
	}
	s.sweepsMu.Lock()
	s.sweeps[id] = state
	s.sweepsMu.Unlock()

	opts := engine.Options{
		Evaluate:       def.Evaluate,
		Recover:        def.Recover,
		NumWorkers:     workers,
		Seed:           seed,
		NumSamples:     req.NumSamples,
		OutputDir:      outputDir,
		InterpolateNaN: req.InterpolateNaN || s.cfg.Sweep.InterpolateNaN,
		OnCaseDone: func(rank int, status sweep.SolveStatus) {
			s.sweepsMu.Lock()
			state.CasesDone++
			state.LastUpdated = time.Now()
			s.sweepsMu.Unlock()
		},
		Logger: logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
			"sweep_id": id,
		})),
	}

	go s.runSweep(state, def.Factory, params, req.Outputs, opts)

	return map[string]interface{}{
		"sweep_id":    id,
		"status":      "pending",
		"total_cases": totalCases,
	}, nil
}

func (s *Server) runSweep(state *SweepState, factory sweep.ModelFactory, params []sweep.Parameter, outputs []string, opts engine.Options) {
	s.sweepsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.sweepsMu.Unlock()

	_, err := engine.Run(context.Background(), factory, params, outputs, opts)

	s.sweepsMu.Lock()
	defer s.sweepsMu.Unlock()
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	if err != nil {
		s.logger.Error("sweep failed", map[string]interface{}{
			"sweep_id": state.ID,
			"error":    err.Error(),
		})
		state.Status = "failed"
		state.Error = err.Error()
		return
	}
	state.Status = "completed"
	state.ResultFiles = []string{
		filepath.Join(opts.OutputDir, "global_results.csv"),
		filepath.Join(opts.OutputDir, "results.msgpack"),
	}
	if opts.InterpolateNaN {
		state.ResultFiles = append(state.ResultFiles,
			filepath.Join(opts.OutputDir, "interpolated_global_results.csv"))
	}
	s.logger.Info("sweep completed", map[string]interface{}{
		"sweep_id": state.ID,
		"cases":    state.TotalCases,
	})
}

func (s *Server) sweepStatus(id string) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("sweep_id is required")
	}

	s.sweepsMu.RLock()
	defer s.sweepsMu.RUnlock()

	state, exists := s.sweeps[id]
	if !exists {
		return nil, fmt.Errorf("sweep not found")
	}

	progress := 0.0
	if state.TotalCases > 0 {
		progress = float64(state.CasesDone) / float64(state.TotalCases)
	}
	response := map[string]interface{}{
		"sweep_id":    state.ID,
		"model":       state.Model,
		"status":      state.Status,
		"progress":    progress,
		"cases_done":  state.CasesDone,
		"total_cases": state.TotalCases,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}
	if len(state.ResultFiles) > 0 {
		response["result_files"] = state.ResultFiles
	}
	return response, nil
}

// buildParameters binds each requested input to the model, producing
// the sample columns the combination builder consumes.
func buildParameters(m sweep.Model, reqs []parameterRequest) ([]sweep.Parameter, error) {
	params := make([]sweep.Parameter, 0, len(reqs))
	for _, pr := range reqs {
		var (
			spec sweep.SampleSpec
			err  error
		)
		switch pr.Sampling {
		case "linear":
			spec, err = sweep.NewLinearSample(m, pr.Target, pr.Lower, pr.Upper, pr.Count)
		case "uniform":
			spec, err = sweep.NewUniformSample(m, pr.Target, pr.Lower, pr.Upper)
		case "normal":
			spec, err = sweep.NewNormalSample(m, pr.Target, pr.Mean, pr.StdDev)
		case "fixed":
			spec, err = sweep.NewFixedSample(m, pr.Target, pr.Value)
		default:
			return nil, fmt.Errorf("unknown sampling %q for target %q", pr.Sampling, pr.Target)
		}
		if err != nil {
			return nil, err
		}
		params = append(params, sweep.Parameter{Name: pr.Target, Sample: spec})
	}
	return params, nil
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

// handleStartSweep is the REST face of sweep.start.
func (s *Server) handleStartSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startSweep(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleSweepStatus is the REST face of sweep.status.
func (s *Server) handleSweepStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing sweep ID", http.StatusBadRequest)
		return
	}

	result, err := s.sweepStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
