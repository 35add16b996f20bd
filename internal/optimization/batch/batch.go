// Package batch repeats independent minimizer runs and summarises their
// results.
package batch

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/dever/internal/optimization"
	"github.com/copyleftdev/dever/internal/optimization/de"
)

// Spec describes a batch of runs.
type Spec struct {
	Target de.Target
	Config de.Config
	// Tries is the number of independent runs.
	Tries int
	// Workers bounds the number of concurrent runs. Zero uses GOMAXPROCS.
	Workers int
	// Seed seeds run i with Seed+i, so results do not depend on Workers.
	Seed int64
	// Options are passed to every run. Observers are called from
	// several goroutines at once.
	Options []de.Option
	// Log receives per-chunk progress. Nil disables it.
	Log *zap.Logger
}

// Stats summarises the best values of a set of runs.
type Stats struct {
	Runs   int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	// Best is the point that attained Min.
	Best de.Vector
}

// newStats summarises values, where bests[i] attained values[i]. Ties for
// the minimum keep the lowest index.
func newStats(values []float64, bests []de.Vector) Stats {
	if len(values) == 0 {
		return Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	}
	s := Stats{
		Runs: len(values),
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Best: bests[floats.MinIdx(values)],
	}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

// Merge folds other into s. Runs, extremes, mean and sample standard
// deviation are combined as if both sets of runs had been summarised
// together. On a tie for the minimum s keeps its own Best.
func (s *Stats) Merge(other Stats) {
	if other.Runs == 0 {
		return
	}
	if s.Runs == 0 {
		*s = other
		return
	}

	n1, n2 := float64(s.Runs), float64(other.Runs)
	n := n1 + n2
	delta := other.Mean - s.Mean
	m2 := s.StdDev*s.StdDev*(n1-1) + other.StdDev*other.StdDev*(n2-1) + delta*delta*n1*n2/n

	if other.Min < s.Min {
		s.Min = other.Min
		s.Best = other.Best
	}
	if other.Max > s.Max {
		s.Max = other.Max
	}
	s.Mean = (s.Mean*n1 + other.Mean*n2) / n
	s.StdDev = math.Sqrt(m2 / (n - 1))
	s.Runs += other.Runs
}

// Run performs spec.Tries independent runs split into contiguous chunks,
// one per worker, and merges the chunk summaries in order. The first
// failing run cancels the rest.
func Run(ctx context.Context, spec Spec) (*Stats, error) {
	if spec.Tries < 1 {
		return nil, optimization.InvalidConfigf("try count must be at least 1, got %d", spec.Tries).
			WithComponent("batch").WithOperation("run")
	}
	if err := spec.Config.Validate(spec.Target); err != nil {
		return nil, err
	}
	workers := spec.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > spec.Tries {
		workers = spec.Tries
	}
	log := spec.Log
	if log == nil {
		log = zap.NewNop()
	}

	pool := de.NewMatrixPool(0)
	opts := append([]de.Option{de.WithMatrixPool(pool)}, spec.Options...)

	chunk := (spec.Tries + workers - 1) / workers
	parts := make([]Stats, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		first := w * chunk
		last := min(first+chunk, spec.Tries)
		if first >= last {
			continue
		}
		g.Go(func() error {
			values := make([]float64, 0, last-first)
			bests := make([]de.Vector, 0, last-first)
			for i := first; i < last; i++ {
				rng := rand.New(rand.NewSource(spec.Seed + int64(i)))
				res, err := de.Run(gctx, spec.Target, spec.Config, rng, opts...)
				if err != nil {
					return optimization.WrapErrorf(err, "run %d", i).WithComponent("batch")
				}
				values = append(values, res.Value)
				bests = append(bests, res.Best)
			}
			parts[w] = newStats(values, bests)
			log.Debug("batch chunk finished",
				zap.Int("worker", w),
				zap.Int("runs", len(values)),
				zap.Float64("min", parts[w].Min),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total Stats
	for _, part := range parts {
		total.Merge(part)
	}
	return &total, nil
}
