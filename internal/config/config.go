package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// WorkerCount bounds the number of jobs running at once.
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"10"`
		// MemoryLimit bounds the population storage of all running jobs,
		// in bytes. Zero disables the limit.
		MemoryLimit int64 `env:"DE_MEMORY_LIMIT" envDefault:"0"`
		// PoolLimit bounds the idle population storage kept for reuse
		// between jobs, in bytes.
		PoolLimit int64 `env:"DE_POOL_LIMIT" envDefault:"67108864"`
		// ProgressInterval is the minimum gap between progress log lines
		// of one job.
		ProgressInterval time.Duration `env:"DE_PROGRESS_INTERVAL" envDefault:"1s"`

		PopulationSize       int     `env:"DE_POPULATION_SIZE" envDefault:"50"`
		CrossoverProbability float64 `env:"DE_CROSSOVER" envDefault:"0.9"`
		AmplificationFactor  float64 `env:"DE_AMPLIFICATION" envDefault:"0.5"`
		Lambda               float64 `env:"DE_LAMBDA" envDefault:"0.5"`
		MaxIterations        uint64  `env:"DE_MAX_ITERATIONS" envDefault:"1000"`
		// BinomialCrossover compares crossover draws from [0, 1) with the
		// crossover probability instead of integer draws.
		BinomialCrossover bool `env:"DE_BINOMIAL_CROSSOVER" envDefault:"false"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if cfg.Optimization.WorkerCount < 1 {
		return nil, fmt.Errorf("OPT_WORKER_COUNT must be at least 1, got %d", cfg.Optimization.WorkerCount)
	}
	if cfg.Optimization.PoolLimit < 1 {
		return nil, fmt.Errorf("DE_POOL_LIMIT must be positive, got %d", cfg.Optimization.PoolLimit)
	}
	if cfg.Optimization.MemoryLimit < 0 {
		return nil, fmt.Errorf("DE_MEMORY_LIMIT must not be negative, got %d", cfg.Optimization.MemoryLimit)
	}

	return cfg, nil
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns the value of the environment variable as int or the default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool returns the value of the environment variable as bool or the default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
