package synth

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/period"
)

func testPeriods() period.Config {
	return period.Config{
		Distribution: period.DistributionSnapped,
		Min:          10_000,
		Max:          40_000,
		Step:         10_000,
	}
}

func testConfig() Config {
	return Config{
		Utilization: 1.6,
		NumChains:   4,
		MinTasks:    2,
		MaxTasks:    5,
		JobWindow:   JobWindow{Min: 1, Max: 1_000_000},
		MaxAttempts: 100,
		Periods:     testPeriods(),
	}
}

func TestGenerate_Shape(t *testing.T) {
	config := testConfig()
	s, err := NewSynthesizer(config, util.NewRand(1))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		ts, err := s.Generate(chaincontext.Background())
		require.NoError(t, err)
		require.Len(t, ts.Chains, config.NumChains)
		for _, c := range ts.Chains {
			assert.GreaterOrEqual(t, c.Len(), config.MinTasks)
			assert.LessOrEqual(t, c.Len(), config.MaxTasks)
			assert.Zero(t, c.Period%10_000)
			for _, task := range c.Tasks {
				assert.GreaterOrEqual(t, task.ExecTime, int64(1))
			}
		}
		jobs, err := ts.JobCount()
		require.NoError(t, err)
		assert.True(t, config.JobWindow.Contains(jobs))
	}
}

func TestGenerate_UtilizationWithinRoundingTolerance(t *testing.T) {
	config := testConfig()
	s, err := NewSynthesizer(config, util.NewRand(2))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		ts, err := s.Generate(chaincontext.Background())
		require.NoError(t, err)
		// Each chain budget is rounded to the nearest unit; tasks may add at most one unit each
		// when the budget is raised to the chain length.
		tolerance := 0.0
		for _, c := range ts.Chains {
			tolerance += float64(c.Len()) / float64(c.Period)
		}
		assert.InDelta(t, config.Utilization, ts.Utilization(), tolerance)
	}
}

func TestGenerate_UtilizationCap(t *testing.T) {
	config := testConfig()
	config.Utilization = 3.5
	config.UtilizationCap = 1
	s, err := NewSynthesizer(config, util.NewRand(3))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		ts, err := s.Generate(chaincontext.Background())
		require.NoError(t, err)
		for _, c := range ts.Chains {
			// Rounding the chain budget can add half a unit.
			assert.LessOrEqual(t, c.Utilization(), 1+1.0/float64(c.Period))
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := NewSynthesizer(testConfig(), util.NewRand(42))
	require.NoError(t, err)
	b, err := NewSynthesizer(testConfig(), util.NewRand(42))
	require.NoError(t, err)

	setsA, err := a.GenerateN(chaincontext.Background(), 5)
	require.NoError(t, err)
	setsB, err := b.GenerateN(chaincontext.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, setsA, setsB)
}

func TestGenerate_JobWindowExhausted(t *testing.T) {
	config := testConfig()
	config.JobWindow = JobWindow{Min: 1_000_000_000, Max: 2_000_000_000}
	config.MaxAttempts = 5
	s, err := NewSynthesizer(config, util.NewRand(1))
	require.NoError(t, err)

	_, err = s.Generate(chaincontext.Background())
	var outOfRange *chainerrors.ErrJobCountOutOfRange
	require.True(t, errors.As(err, &outOfRange))
	assert.Equal(t, 5, outOfRange.Attempts)
	assert.Equal(t, int64(1_000_000_000), outOfRange.Min)
}

func TestGenerate_Cancelled(t *testing.T) {
	config := testConfig()
	config.JobWindow = JobWindow{Min: 1_000_000_000, Max: 2_000_000_000}
	config.MaxAttempts = 0
	s, err := NewSynthesizer(config, util.NewRand(1))
	require.NoError(t, err)

	ctx, cancel := chaincontext.WithCancel(chaincontext.Background())
	cancel()
	_, err = s.Generate(ctx)
	assert.Error(t, err)
}

func TestNewSynthesizer_Invalid(t *testing.T) {
	// Samples below the granularity would floor to a zero period.
	coarseLogUniform := period.Config{Distribution: period.DistributionLogUniform, Min: 1000, Max: 100_000, Step: 5000}
	tests := map[string]func(*Config){
		"zero utilization":    func(c *Config) { c.Utilization = 0 },
		"no chains":           func(c *Config) { c.NumChains = 0 },
		"no tasks":            func(c *Config) { c.MinTasks = 0 },
		"max below min tasks": func(c *Config) { c.MaxTasks = 1 },
		"inverted window":     func(c *Config) { c.JobWindow = JobWindow{Min: 10, Max: 5} },
		"infeasible cap":      func(c *Config) { c.UtilizationCap = 0.1 },
		"coarse periods":      func(c *Config) { c.Periods = coarseLogUniform },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			config := testConfig()
			mutate(&config)
			_, err := NewSynthesizer(config, util.NewRand(1))
			var invalid *chainerrors.ErrInvalidArgument
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestJobWindow_Contains(t *testing.T) {
	w := JobWindow{Min: 1000, Max: 5000}
	assert.True(t, w.Contains(1000))
	assert.True(t, w.Contains(5000))
	assert.False(t, w.Contains(999))
	assert.False(t, w.Contains(5001))
	assert.True(t, JobWindow{}.Contains(123456789))
}

func TestRandomized(t *testing.T) {
	r, err := NewRandomized(RandomizedConfig{
		MaxChains:             5,
		MaxTasks:              4,
		Threads:               4,
		NormalizedUtilization: 0.5,
		JobWindow:             JobWindow{Min: 1, Max: 1_000_000},
		MaxAttempts:           100,
		Periods:               testPeriods(),
	}, util.NewRand(5))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		config := r.Draw()
		assert.GreaterOrEqual(t, config.NumChains, 2)
		assert.LessOrEqual(t, config.NumChains, 5)
		assert.GreaterOrEqual(t, config.MinTasks, 2)
		assert.LessOrEqual(t, config.MinTasks, 4)
		assert.Equal(t, config.MinTasks, config.MaxTasks)
		assert.GreaterOrEqual(t, config.Utilization, MinRandomizedUtilization)
		assert.LessOrEqual(t, config.Utilization, 2.0)
		assert.Equal(t, 1.0, config.UtilizationCap)
	}

	sets, err := r.GenerateN(chaincontext.Background(), 10)
	require.NoError(t, err)
	for _, ts := range sets {
		n, uniform := ts.UniformChainLength()
		assert.True(t, uniform)
		assert.GreaterOrEqual(t, n, 2)
	}
}

func TestNewRandomized_Invalid(t *testing.T) {
	_, err := NewRandomized(RandomizedConfig{MaxChains: 1, MaxTasks: 2, Threads: 1, NormalizedUtilization: 1, Periods: testPeriods()}, util.NewRand(1))
	var invalid *chainerrors.ErrInvalidArgument
	assert.True(t, errors.As(err, &invalid))
}
