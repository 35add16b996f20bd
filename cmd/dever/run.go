package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/copyleftdev/dever/internal/optimization"
	"github.com/copyleftdev/dever/internal/optimization/de"
	"github.com/copyleftdev/dever/internal/optimization/functions"
)

func newRunCmd(app *cli) *cobra.Command {
	var (
		algo     algorithmFlags
		function string
		dims     int
		seed     int64
		polish   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Minimize one catalogue function",
		Long: `Runs a single minimization and prints the best point found.
A seed of 0 seeds from the clock; the seed used is always printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := functions.Lookup(function)
			if err != nil {
				return err
			}
			target, err := fn.Target(dims)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			log := app.logger.With(zap.String("function", fn.Name), zap.Int64("seed", seed))

			opts := []de.Option{
				de.WithLogger(log),
				de.WithObserver(progressLogger(log)),
			}
			if polish {
				opts = append(opts, de.WithPolish())
			}
			op, err := de.NewOptimizer(algo.config(cmd), opts...)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := op.Optimize(cmd.Context(), optimization.OptimizerConfig{
				Objective:  fn.Objective,
				Dimensions: target.Dimensions,
				Bounds:     [2]float64{target.LeftBound, target.RightBound},
				RandomSeed: seed,
				Verbose:    true,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "function:    %s (%d dimensions)\n", fn.Name, target.Dimensions)
			fmt.Fprintf(out, "seed:        %d\n", seed)
			fmt.Fprintf(out, "iterations:  %d\n", res.Iterations)
			fmt.Fprintf(out, "evaluations: %d\n", res.Evaluations)
			if res.Warnings > 0 {
				fmt.Fprintf(out, "warnings:    %d\n", res.Warnings)
			}
			fmt.Fprintf(out, "elapsed:     %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "best value:  %.10g\n", res.BestSolution.Value)
			fmt.Fprintf(out, "best point:  %v\n", res.BestSolution.Parameters)
			if cmd.Flags().Changed("threshold") {
				fmt.Fprintf(out, "converged:   %t\n", res.Converged)
			}
			return nil
		},
	}

	algo.register(cmd)
	cmd.Flags().StringVar(&function, "function", "", "Catalogue function to minimize (required)")
	cmd.Flags().IntVar(&dims, "dims", 0, "Dimensions, required for functions of any dimensionality")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed, 0 seeds from the clock")
	cmd.Flags().BoolVar(&polish, "polish", false, "Refine the result with Nelder-Mead")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}

// progressLogger logs the best value at most once per second.
func progressLogger(log *zap.Logger) func(de.Generation) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	return func(g de.Generation) {
		if limiter.Allow() {
			log.Info("progress",
				zap.Uint64("iteration", g.Iteration),
				zap.Float64("best_value", g.BestValue),
				zap.Int("evaluations", g.Evaluations),
			)
		}
	}
}
