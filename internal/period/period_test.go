package period

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
)

func TestSnapped_Snap(t *testing.T) {
	s := &Snapped{Min: 50, Max: 200, Step: 10}
	tests := map[string]struct {
		raw      int64
		expected int64
	}{
		"below range":    {raw: 3, expected: 50},
		"above range":    {raw: 1000, expected: 200},
		"exact":          {raw: 120, expected: 120},
		"round down":     {raw: 124, expected: 120},
		"round up":       {raw: 126, expected: 130},
		"tie goes down":  {raw: 125, expected: 120},
		"upper boundary": {raw: 199, expected: 200},
		"lower boundary": {raw: 50, expected: 50},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, s.Snap(tc.raw))
		})
	}
}

func TestSnapped_MaxNotOnGrid(t *testing.T) {
	s := &Snapped{Min: 50, Max: 205, Step: 10}
	assert.Equal(t, int64(200), s.Snap(205))
	assert.Equal(t, int64(200), s.Snap(203))
}

func TestSnapped_SampleWithinAllowedSet(t *testing.T) {
	sampler, err := NewSampler(DefaultSnappedConfig())
	require.NoError(t, err)
	rng := util.NewRand(7)
	for i := 0; i < 1000; i++ {
		p := sampler.Sample(rng)
		assert.GreaterOrEqual(t, p, int64(50_000_000))
		assert.LessOrEqual(t, p, int64(200_000_000))
		assert.Zero(t, p%10_000_000)
	}
}

func TestLogUniform_SampleWithinRange(t *testing.T) {
	sampler, err := NewSampler(DefaultLogUniformConfig())
	require.NoError(t, err)
	rng := util.NewRand(7)
	short := 0
	for i := 0; i < 2000; i++ {
		p := sampler.Sample(rng)
		assert.GreaterOrEqual(t, p, int64(10_000))
		assert.LessOrEqual(t, p, int64(100_000))
		assert.Zero(t, p%5_000)
		if p < 55_000 {
			short++
		}
	}
	// Log-uniform sampling puts most of the mass on short periods.
	assert.Greater(t, short, 1000)
}

func TestLogUniform_MinEqualToGranularity(t *testing.T) {
	sampler, err := NewSampler(Config{Distribution: DistributionLogUniform, Min: 5000, Max: 100000, Step: 5000})
	require.NoError(t, err)
	rng := util.NewRand(3)
	for i := 0; i < 2000; i++ {
		p := sampler.Sample(rng)
		assert.GreaterOrEqual(t, p, int64(5000))
		assert.Zero(t, p%5000)
	}
}

func TestNewSampler_Deterministic(t *testing.T) {
	sampler, err := NewSampler(DefaultLogUniformConfig())
	require.NoError(t, err)
	a, b := util.NewRand(42), util.NewRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, sampler.Sample(a), sampler.Sample(b))
	}
}

func TestNewSampler_Invalid(t *testing.T) {
	tests := map[string]Config{
		"unknown distribution":  {Distribution: "normal", Min: 1, Max: 2, Step: 1},
		"zero step":             {Distribution: DistributionSnapped, Min: 1, Max: 2, Step: 0},
		"max below min":         {Distribution: DistributionLogUniform, Min: 10, Max: 2, Step: 1},
		"raw range inverted":    {Distribution: DistributionSnapped, Min: 1, Max: 10, Step: 1, RawMin: 8, RawMax: 2},
		"min below granularity": {Distribution: DistributionLogUniform, Min: 1000, Max: 100000, Step: 5000},
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewSampler(config)
			var invalid *chainerrors.ErrInvalidArgument
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
