package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/dever/internal/config"
	"github.com/copyleftdev/dever/internal/logging"
	"github.com/copyleftdev/dever/internal/optimization/de"
)

// cli carries state shared by the subcommands.
type cli struct {
	logLevel  string
	logFormat string
	logger    *zap.Logger
}

func newRootCmd() *cobra.Command {
	app := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "dever",
		Short: "Box-bounded minimization with differential evolution",
		Long: `dever minimizes benchmark objectives with DE/rand-to-best/1/bin,
either once with a fixed seed or repeatedly to collect statistics.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Config{
				Level:  app.logLevel,
				Format: app.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			app.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&app.logLevel, "log-level", config.GetEnv("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&app.logFormat, "log-format", config.GetEnv("LOG_FORMAT", "console"), "Log format (console, json)")

	root.AddCommand(
		newRunCmd(app),
		newBatchCmd(app),
		newFunctionsCmd(),
	)
	return root
}

// algorithmFlags are the minimizer parameters shared by run and batch.
type algorithmFlags struct {
	pop       int
	crossover float64
	amplifier float64
	lambda    float64
	iters     uint64
	threshold float64
	binomial  bool
}

func (f *algorithmFlags) register(cmd *cobra.Command) {
	defaults := de.DefaultConfig()
	flags := cmd.Flags()
	flags.IntVar(&f.pop, "pop", config.GetEnvAsInt("DE_POPULATION_SIZE", defaults.PopulationSize), "Population size")
	flags.Float64Var(&f.crossover, "crossover", defaults.CrossoverProbability, "Crossover probability CR")
	flags.Float64Var(&f.amplifier, "amplifier", defaults.AmplificationFactor, "Amplification factor F")
	flags.Float64Var(&f.lambda, "lambda", defaults.Lambda, "Pull toward the best individual")
	flags.Uint64Var(&f.iters, "iters", defaults.Stop.Iterations, "Stop after this many generations past the first")
	flags.Float64Var(&f.threshold, "threshold", 0, "Stop once the best value drops below this")
	flags.BoolVar(&f.binomial, "binomial", config.GetEnvAsBool("DE_BINOMIAL_CROSSOVER", false), "Draw crossover decisions from [0, 1)")
	cmd.MarkFlagsMutuallyExclusive("iters", "threshold")
}

func (f *algorithmFlags) config(cmd *cobra.Command) de.Config {
	cfg := de.Config{
		PopulationSize:       f.pop,
		CrossoverProbability: f.crossover,
		AmplificationFactor:  f.amplifier,
		Lambda:               f.lambda,
		Stop:                 de.AfterIterations(f.iters),
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Stop = de.WhenSatisfied(f.threshold)
	}
	if f.binomial {
		cfg.Crossover = de.CrossoverBinomial
	}
	return cfg
}
