package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
)

func TestNewChain(t *testing.T) {
	tests := map[string]struct {
		period      int64
		budgets     []int64
		expectError bool
	}{
		"valid":           {period: 100, budgets: []int64{1, 2, 3}},
		"zero budget":     {period: 100, budgets: []int64{0}},
		"zero period":     {period: 0, budgets: []int64{1}, expectError: true},
		"no tasks":        {period: 100, budgets: nil, expectError: true},
		"negative budget": {period: 100, budgets: []int64{1, -1}, expectError: true},
		"negative period": {period: -5, budgets: []int64{1}, expectError: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := NewChain(tc.period, tc.budgets...)
			if tc.expectError {
				var invalid *chainerrors.ErrInvalidArgument
				assert.True(t, errors.As(err, &invalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tc.budgets), c.Len())
			assert.True(t, c.Tasks[0].IsTimer())
			for i, task := range c.Tasks {
				assert.Equal(t, i, task.Index)
			}
		})
	}
}

func TestChainAggregates(t *testing.T) {
	c := MustNewChain(200000, 30000, 50000, 22069)
	assert.Equal(t, int64(102069), c.ExecTime())
	assert.Equal(t, int64(22069), c.LastExecTime())
	assert.Equal(t, int64(200000), c.Deadline())
	assert.InDelta(t, 0.510345, c.Utilization(), 1e-6)
	assert.Equal(t, []int64{30000, 50000, 22069}, c.Budgets())
}

func TestTaskSetAggregates(t *testing.T) {
	ts := NewTaskSet(
		MustNewChain(50, 1, 2),
		MustNewChain(100, 5, 5, 5),
		MustNewChain(75, 3),
	)
	h, err := ts.Hyperperiod()
	require.NoError(t, err)
	assert.Equal(t, int64(300), h)

	jobs, err := ts.JobCount()
	require.NoError(t, err)
	// 6 instances x 2 tasks + 3 x 3 + 4 x 1
	assert.Equal(t, int64(25), jobs)

	assert.Equal(t, 6, ts.NumTasks())
	assert.Equal(t, []int{2, 3, 1}, ts.ChainLengths())
	assert.Equal(t, []int64{50, 100, 75}, ts.Periods())
	assert.InDelta(t, 3.0/50+15.0/100+3.0/75, ts.Utilization(), 1e-12)

	_, uniform := ts.UniformChainLength()
	assert.False(t, uniform)
}

func TestUniformChainLength(t *testing.T) {
	ts := NewTaskSet(MustNewChain(50, 1, 2), MustNewChain(100, 5, 5))
	n, ok := ts.UniformChainLength()
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = NewTaskSet().UniformChainLength()
	assert.False(t, ok)
}
