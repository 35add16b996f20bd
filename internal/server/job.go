package server

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	derrors "github.com/copyleftdev/dever/internal/errors"
	"github.com/copyleftdev/dever/internal/optimization"
	"github.com/copyleftdev/dever/internal/optimization/de"
	"github.com/copyleftdev/dever/internal/optimization/functions"
)

// Job states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

func terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// OptimizationState represents the state of an optimization job.
// Fields are guarded by the server's optimizationsMu.
type OptimizationState struct {
	ID          string
	Function    string
	Status      string
	Seed        int64
	StartTime   time.Time
	EndTime     *time.Time
	Progress    float64
	Error       string
	Result      *optimization.OptimizationResult
	Optimizer   optimization.Optimizer
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// startParams are the parameters of optimization.start and POST
// /api/v1/optimize. Unset fields take the server's configured defaults.
type startParams struct {
	Function             string    `json:"function"`
	Dimensions           int       `json:"dimensions,omitempty"`
	Bounds               []float64 `json:"bounds,omitempty"`
	PopulationSize       *int      `json:"population_size,omitempty"`
	CrossoverProbability *float64  `json:"crossover_probability,omitempty"`
	AmplificationFactor  *float64  `json:"amplification_factor,omitempty"`
	Lambda               *float64  `json:"lambda,omitempty"`
	MaxIterations        *uint64   `json:"max_iterations,omitempty"`
	Threshold            *float64  `json:"threshold,omitempty"`
	BinomialCrossover    *bool     `json:"binomial_crossover,omitempty"`
	Seed                 int64     `json:"seed,omitempty"`
	Polish               bool      `json:"polish,omitempty"`
}

// problem resolves p against the catalogue and the server defaults.
func (s *Server) problem(p startParams) (functions.Function, de.Target, de.Config, error) {
	invalid := func(format string, args ...interface{}) error {
		return optimization.InvalidConfigf(format, args...).WithComponent("server").WithOperation("start")
	}

	if p.Function == "" {
		return functions.Function{}, de.Target{}, de.Config{}, invalid("function is required")
	}
	fn, err := functions.Lookup(p.Function)
	if err != nil {
		return functions.Function{}, de.Target{}, de.Config{}, err
	}
	target, err := fn.Target(p.Dimensions)
	if err != nil {
		return functions.Function{}, de.Target{}, de.Config{}, err
	}
	switch len(p.Bounds) {
	case 0:
	case 2:
		target.LeftBound, target.RightBound = p.Bounds[0], p.Bounds[1]
	default:
		return functions.Function{}, de.Target{}, de.Config{}, invalid("bounds must be [left, right], got %d values", len(p.Bounds))
	}

	defaults := s.cfg.Optimization
	cfg := de.Config{
		PopulationSize:       defaults.PopulationSize,
		CrossoverProbability: defaults.CrossoverProbability,
		AmplificationFactor:  defaults.AmplificationFactor,
		Lambda:               defaults.Lambda,
		Stop:                 de.AfterIterations(defaults.MaxIterations),
	}
	if defaults.BinomialCrossover {
		cfg.Crossover = de.CrossoverBinomial
	}
	if p.PopulationSize != nil {
		cfg.PopulationSize = *p.PopulationSize
	}
	if p.CrossoverProbability != nil {
		cfg.CrossoverProbability = *p.CrossoverProbability
	}
	if p.AmplificationFactor != nil {
		cfg.AmplificationFactor = *p.AmplificationFactor
	}
	if p.Lambda != nil {
		cfg.Lambda = *p.Lambda
	}
	if p.BinomialCrossover != nil {
		cfg.Crossover = de.CrossoverReference
		if *p.BinomialCrossover {
			cfg.Crossover = de.CrossoverBinomial
		}
	}
	switch {
	case p.MaxIterations != nil && p.Threshold != nil:
		return functions.Function{}, de.Target{}, de.Config{}, invalid("max_iterations and threshold are mutually exclusive")
	case p.MaxIterations != nil:
		cfg.Stop = de.AfterIterations(*p.MaxIterations)
	case p.Threshold != nil:
		cfg.Stop = de.WhenSatisfied(*p.Threshold)
	}

	if err := cfg.Validate(target); err != nil {
		return functions.Function{}, de.Target{}, de.Config{}, err
	}
	return fn, target, cfg, nil
}

// startOptimization validates p, registers a pending job and starts it in
// the background. The job waits for a free worker slot before running.
func (s *Server) startOptimization(p startParams) (*OptimizationState, error) {
	fn, target, cfg, err := s.problem(p)
	if err != nil {
		return nil, err
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	id := uuid.NewString()
	jobLogger := s.logger.With(zap.String("optimization_id", id), zap.String("function", fn.Name))

	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Function:    fn.Name,
		Status:      StatusPending,
		Seed:        seed,
		StartTime:   now,
		LastUpdated: now,
	}

	opts := []de.Option{
		de.WithLogger(jobLogger),
		de.WithMatrixPool(s.pool),
		de.WithObserver(s.progress(state, cfg.Stop, jobLogger)),
	}
	if s.budget != nil {
		opts = append(opts, de.WithMemoryBudget(s.budget))
	}
	if p.Polish {
		opts = append(opts, de.WithPolish())
	}
	optimizer, err := de.NewOptimizer(cfg, opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state.Optimizer = optimizer
	state.CancelFunc = cancel

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()
	s.metrics.jobsStarted.Inc()

	problem := optimization.OptimizerConfig{
		Objective:  fn.Objective,
		Dimensions: target.Dimensions,
		Bounds:     [2]float64{target.LeftBound, target.RightBound},
		RandomSeed: seed,
	}

	jobLogger.Info("optimization accepted",
		zap.Int("dimensions", target.Dimensions),
		zap.Float64("left_bound", target.LeftBound),
		zap.Float64("right_bound", target.RightBound),
		zap.Int("population_size", cfg.PopulationSize),
		zap.Stringer("stop", cfg.Stop.Kind),
		zap.Int64("seed", seed),
	)

	s.wg.Add(1)
	go s.runOptimization(ctx, state, problem, jobLogger)
	return state, nil
}

// runOptimization executes one job in its own goroutine.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, problem optimization.OptimizerConfig, log *zap.Logger) {
	defer s.wg.Done()
	defer state.CancelFunc()

	if err := s.slots.Acquire(ctx, 1); err != nil {
		s.finish(state, nil, err, log)
		return
	}
	defer s.slots.Release(1)

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	s.metrics.jobsActive.Inc()
	start := time.Now()
	result, err := state.Optimizer.Optimize(ctx, problem)
	s.metrics.jobDuration.Observe(time.Since(start).Seconds())
	s.metrics.jobsActive.Dec()

	s.finish(state, result, err, log)
}

// finish moves a job to its terminal state. A job cancelled by request
// stays cancelled.
func (s *Server) finish(state *OptimizationState, result *optimization.OptimizationResult, err error, log *zap.Logger) {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	if result != nil {
		state.Result = result
		s.metrics.integrityWarnings.Add(float64(result.Warnings))
	}

	switch {
	case state.Status == StatusCancelled:
	case err == nil:
		state.Status = StatusCompleted
		state.Progress = 1
		log.Info("optimization completed",
			zap.Int("iterations", result.Iterations),
			zap.Int("evaluations", result.Evaluations),
			zap.Float64("best_value", result.BestSolution.Value),
			zap.Bool("converged", result.Converged),
		)
	case derrors.Is(err, context.Canceled):
		state.Status = StatusCancelled
	default:
		state.Status = StatusFailed
		state.Error = err.Error()
		log.Error("optimization failed", derrors.Fields(derrors.Wrapf(err, "minimize %s", state.Function))...)
	}

	s.metrics.jobsFinished.WithLabelValues(state.Status).Inc()
}

// progress returns an observer that records per-generation progress and
// logs it at most once per configured interval.
func (s *Server) progress(state *OptimizationState, stop de.StopCondition, log *zap.Logger) func(de.Generation) {
	limiter := rate.NewLimiter(rate.Every(s.cfg.Optimization.ProgressInterval), 1)
	lastEvaluations := 0

	return func(g de.Generation) {
		s.metrics.generations.Inc()
		s.metrics.evaluations.Add(float64(g.Evaluations - lastEvaluations))
		lastEvaluations = g.Evaluations

		s.optimizationsMu.Lock()
		if stop.Kind == de.StopAfterIterations {
			total := float64(stop.Iterations) + 1
			state.Progress = math.Min(float64(g.Iteration)/total, 1)
		}
		state.LastUpdated = time.Now()
		s.optimizationsMu.Unlock()

		if limiter.Allow() {
			log.Info("optimization progress",
				zap.Uint64("iteration", g.Iteration),
				zap.Float64("best_value", g.BestValue),
				zap.Int("evaluations", g.Evaluations),
			)
		}
	}
}

// cancelOptimization cancels a pending or running job.
func (s *Server) cancelOptimization(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return errNotFound
	}
	if terminal(state.Status) {
		return derrors.Wrapf(errTerminal, "cannot cancel optimization with status %s", state.Status).WithJob(id)
	}

	state.CancelFunc()
	now := time.Now()
	state.Status = StatusCancelled
	state.LastUpdated = now

	s.logger.Info("optimization cancelled", zap.String("optimization_id", id))
	return nil
}
