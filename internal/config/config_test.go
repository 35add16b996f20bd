package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	opt := cfg.Optimization
	assert.Equal(t, 10, opt.WorkerCount)
	assert.Equal(t, 50, opt.PopulationSize)
	assert.Equal(t, 0.9, opt.CrossoverProbability)
	assert.Equal(t, 0.5, opt.AmplificationFactor)
	assert.Equal(t, 0.5, opt.Lambda)
	assert.Equal(t, uint64(1000), opt.MaxIterations)
	assert.Zero(t, opt.MemoryLimit)
	assert.Equal(t, int64(64<<20), opt.PoolLimit)
	assert.Equal(t, time.Second, opt.ProgressInterval)
	assert.False(t, opt.BinomialCrossover)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("OPT_WORKER_COUNT", "4")
	t.Setenv("DE_POPULATION_SIZE", "120")
	t.Setenv("DE_CROSSOVER", "0.3")
	t.Setenv("DE_MAX_ITERATIONS", "25")
	t.Setenv("DE_MEMORY_LIMIT", "1048576")
	t.Setenv("DE_POOL_LIMIT", "4096")
	t.Setenv("DE_PROGRESS_INTERVAL", "250ms")
	t.Setenv("DE_BINOMIAL_CROSSOVER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.Optimization.WorkerCount)
	assert.Equal(t, 120, cfg.Optimization.PopulationSize)
	assert.Equal(t, 0.3, cfg.Optimization.CrossoverProbability)
	assert.Equal(t, uint64(25), cfg.Optimization.MaxIterations)
	assert.Equal(t, int64(1<<20), cfg.Optimization.MemoryLimit)
	assert.Equal(t, int64(4096), cfg.Optimization.PoolLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Optimization.ProgressInterval)
	assert.True(t, cfg.Optimization.BinomialCrossover)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero workers", "OPT_WORKER_COUNT", "0"},
		{"negative memory limit", "DE_MEMORY_LIMIT", "-1"},
		{"zero pool limit", "DE_POOL_LIMIT", "0"},
		{"malformed number", "DE_POPULATION_SIZE", "many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DEVER_TEST_STRING", "value")
	t.Setenv("DEVER_TEST_INT", "42")
	t.Setenv("DEVER_TEST_BOOL", "true")
	t.Setenv("DEVER_TEST_BAD", "not-a-number")

	assert.Equal(t, "value", GetEnv("DEVER_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("DEVER_TEST_UNSET", "fallback"))
	assert.Equal(t, 42, GetEnvAsInt("DEVER_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvAsInt("DEVER_TEST_BAD", 7))
	assert.True(t, GetEnvAsBool("DEVER_TEST_BOOL", false))
	assert.False(t, GetEnvAsBool("DEVER_TEST_BAD", false))
}
