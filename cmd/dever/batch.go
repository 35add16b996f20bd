package main

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/dever/internal/config"
	"github.com/copyleftdev/dever/internal/optimization/batch"
	"github.com/copyleftdev/dever/internal/optimization/functions"
)

func newBatchCmd(app *cli) *cobra.Command {
	var (
		algo    algorithmFlags
		names   []string
		dims    int
		tries   int
		workers int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Repeat minimizations and print min/avg/max per function",
		Long: `Runs --try-count independent minimizations of every listed function.
Run i is seeded with --seed+i, so the summary does not depend on --workers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := algo.config(cmd)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FUNCTION\tDIMS\tRUNS\tMIN\tAVG\tMAX\tSTDDEV")
			for _, name := range names {
				fn, err := functions.Lookup(name)
				if err != nil {
					return err
				}
				d := dims
				if fn.Dimensions != 0 {
					d = fn.Dimensions
				}
				target, err := fn.Target(d)
				if err != nil {
					return err
				}

				stats, err := batch.Run(cmd.Context(), batch.Spec{
					Target:  target,
					Config:  cfg,
					Tries:   tries,
					Workers: workers,
					Seed:    seed,
					Log:     app.logger.Named(fn.Name),
				})
				if err != nil {
					return fmt.Errorf("%s: %w", fn.Name, err)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%.3g\n",
					fn.Name, target.Dimensions, stats.Runs, stats.Min, stats.Mean, stats.Max, stats.StdDev)
			}
			return w.Flush()
		},
	}

	algo.register(cmd)
	cmd.Flags().StringSliceVar(&names, "functions", []string{"sphere", "rastrigin", "ackley", "rosenbrock"}, "Comma-separated catalogue functions")
	cmd.Flags().IntVar(&dims, "dims", 10, "Dimensions for functions of any dimensionality")
	cmd.Flags().IntVar(&tries, "try-count", 10, "Independent runs per function")
	cmd.Flags().IntVar(&workers, "workers", config.GetEnvAsInt("OPT_WORKER_COUNT", runtime.NumCPU()), "Concurrent runs")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed of the first run")
	return cmd
}
