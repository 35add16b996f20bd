package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/copyleftdev/dever/internal/config"
	derrors "github.com/copyleftdev/dever/internal/errors"
	"github.com/copyleftdev/dever/internal/logging"
	"github.com/copyleftdev/dever/internal/optimization"
	"github.com/copyleftdev/dever/internal/optimization/de"
)

var (
	errNotFound = derrors.New("optimization not found")
	errTerminal = derrors.New("optimization already finished")
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeNotFound       = -32001
	codeConflict       = -32002
)

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *Metrics
	registry *prometheus.Registry

	// Worker slots bound the number of running jobs
	slots *semaphore.Weighted
	// Population storage shared by all jobs; nil when unlimited
	budget *semaphore.Weighted
	pool   *de.MatrixPool

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map and every state
	wg              sync.WaitGroup
}

// NewServer creates a new server instance. Metrics are registered on reg
// and served from it on /metrics.
func NewServer(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       NewMetrics(reg),
		registry:      reg,
		slots:         semaphore.NewWeighted(int64(cfg.Optimization.WorkerCount)),
		pool:          de.NewMatrixPool(cfg.Optimization.PoolLimit),
		optimizations: make(map[string]*OptimizationState),
	}
	if cfg.Optimization.MemoryLimit > 0 {
		s.budget = semaphore.NewWeighted(cfg.Optimization.MemoryLimit)
	}
	return s
}

// Router returns the full HTTP handler: middleware, API routes, health
// check and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(derrors.RecoveryMiddleware(s.logger))
	r.Use(derrors.ErrorHandler(s.logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("health check")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type idParams struct {
	OptimizationID string `json:"optimization_id"`
}

// decodeParams accepts params given either as an object or as a
// single-element array holding the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return optimization.InvalidConfigf("missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return optimization.InvalidConfigf("invalid parameter format: %v", err)
		}
		if len(list) == 0 {
			return optimization.InvalidConfigf("missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return optimization.InvalidConfigf("invalid parameter format, expected object: %v", err)
	}
	return nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var p startParams
		if err = decodeParams(request.Params, &p); err == nil {
			var state *OptimizationState
			if state, err = s.startOptimization(p); err == nil {
				result = startResponse{ID: state.ID, Status: StatusPending}
			}
		}
	case "optimization.status":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.status(p.OptimizationID)
		}
	case "optimization.cancel":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			if err = s.cancelOptimization(p.OptimizationID); err == nil {
				result = map[string]string{"status": "cancellation requested"}
			}
		}
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, rpcCode(err), err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func rpcCode(err error) int {
	switch {
	case derrors.Is(err, optimization.ErrInvalidConfig):
		return codeInvalidParams
	case derrors.Is(err, errNotFound):
		return codeNotFound
	case derrors.Is(err, errTerminal):
		return codeConflict
	default:
		return codeServerError
	}
}

func httpStatus(err error) int {
	switch {
	case derrors.Is(err, optimization.ErrInvalidConfig):
		return http.StatusBadRequest
	case derrors.Is(err, errNotFound):
		return http.StatusNotFound
	case derrors.Is(err, errTerminal):
		return http.StatusConflict
	case derrors.Is(err, optimization.ErrOutOfMemory):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Debug("rpc error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]string{"error": err.Error()})
}

type startResponse struct {
	ID     string `json:"optimization_id"`
	Status string `json:"status"`
}

type solutionJSON struct {
	Parameters []float64 `json:"parameters"`
	Value      float64   `json:"value"`
}

type historyJSON struct {
	Iteration int `json:"iteration"`
	solutionJSON
}

type statusResponse struct {
	ID           string        `json:"optimization_id"`
	Function     string        `json:"function"`
	Status       string        `json:"status"`
	Progress     float64       `json:"progress"`
	Seed         int64         `json:"seed"`
	StartTime    string        `json:"start_time"`
	LastUpdate   string        `json:"last_update"`
	EndTime      string        `json:"end_time,omitempty"`
	Iterations   int           `json:"iterations,omitempty"`
	Evaluations  int           `json:"evaluations,omitempty"`
	Warnings     int           `json:"warnings,omitempty"`
	Converged    bool          `json:"converged,omitempty"`
	Error        string        `json:"error,omitempty"`
	BestSolution *solutionJSON `json:"best_solution,omitempty"`
	CurrentBest  *solutionJSON `json:"current_best,omitempty"`
	History      []historyJSON `json:"history,omitempty"`
}

func toSolutionJSON(s *optimization.Solution) *solutionJSON {
	if s == nil {
		return nil
	}
	return &solutionJSON{Parameters: s.Parameters, Value: s.Value}
}

// status returns a snapshot of a job.
func (s *Server) status(id string) (*statusResponse, error) {
	if id == "" {
		return nil, optimization.InvalidConfigf("optimization_id is required")
	}

	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, errNotFound
	}

	response := &statusResponse{
		ID:         state.ID,
		Function:   state.Function,
		Status:     state.Status,
		Progress:   state.Progress,
		Seed:       state.Seed,
		StartTime:  state.StartTime.Format(time.RFC3339),
		LastUpdate: state.LastUpdated.Format(time.RFC3339),
		Error:      state.Error,
	}
	if state.EndTime != nil {
		response.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if res := state.Result; res != nil {
		response.Iterations = res.Iterations
		response.Evaluations = res.Evaluations
		response.Warnings = res.Warnings
		response.Converged = res.Converged
		response.BestSolution = toSolutionJSON(res.BestSolution)
	}

	if state.Optimizer != nil {
		history := state.Optimizer.GetHistory()
		response.History = make([]historyJSON, 0, len(history))
		for _, eval := range history {
			response.History = append(response.History, historyJSON{
				Iteration:    eval.Iteration,
				solutionJSON: *toSolutionJSON(eval.Solution),
			})
		}
		response.CurrentBest = toSolutionJSON(state.Optimizer.GetBestSolution())
	}

	return response, nil
}

// Close cancels every job and waits for them to stop.
func (s *Server) Close() error {
	s.optimizationsMu.RLock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var p startParams
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, optimization.InvalidConfigf("invalid request body: %v", err))
		return
	}

	state, err := s.startOptimization(p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startResponse{ID: state.ID, Status: StatusPending})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelOptimization(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}
