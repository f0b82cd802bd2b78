// Package partition splits a total (a utilization or an integer execution budget) into a fixed number of
// positive shares with a prescribed sum.
package partition

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
)

// DefaultAttempts bounds rejection sampling in CappedFloats when the caller passes no budget.
const DefaultAttempts = 10000

// Floats returns n non-negative values summing to sum, drawn uniformly from the simplex
// (a flat Dirichlet). No per-share bound is applied; see CappedFloats.
func Floats(rng *rand.Rand, n int, sum float64) ([]float64, error) {
	if n < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "n",
			Value:   n,
			Message: "must be at least 1",
		})
	}
	if sum < 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "sum",
			Value:   sum,
			Message: "must be finite and non-negative",
		})
	}
	if n == 1 {
		return []float64{sum}, nil
	}
	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = 1
	}
	x := distmv.NewDirichlet(alpha, rng).Rand(nil)
	floats.Scale(sum, x)
	// Put any rounding residue on the largest share so the sum is as exact as float64 allows.
	x[floats.MaxIdx(x)] += sum - floats.Sum(x)
	return x, nil
}

// CappedFloats is Floats with every share additionally bounded by limit. A limit <= 0 disables the bound.
// Samples are drawn uniformly from the capped simplex by rejection; when the sum is above half of
// n*limit the complement limit-x_i is sampled instead, which keeps the acceptance rate reasonable
// close to the n*limit boundary.
func CappedFloats(rng *rand.Rand, n int, sum, limit float64, attempts int) ([]float64, error) {
	if limit <= 0 {
		return Floats(rng, n, sum)
	}
	if n < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "n", Value: n, Message: "must be at least 1"})
	}
	if sum > float64(n)*limit {
		return nil, errors.WithStack(&chainerrors.ErrPartitionInfeasible{
			Shares:  n,
			Target:  sum,
			Message: "sum exceeds shares x cap",
		})
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	complement := 2*sum > float64(n)*limit
	target := sum
	if complement {
		target = float64(n)*limit - sum
	}
	for i := 0; i < attempts; i++ {
		x, err := Floats(rng, n, target)
		if err != nil {
			return nil, err
		}
		if floats.Max(x) > limit {
			continue
		}
		if complement {
			for j := range x {
				x[j] = limit - x[j]
			}
		}
		return x, nil
	}
	return nil, errors.WithStack(&chainerrors.ErrPartitionInfeasible{
		Shares:  n,
		Target:  sum,
		Message: "no sample within the cap; increase the attempt budget",
	})
}

// RoundAndScale converts values to integers summing exactly to target while preserving their proportions.
// Values are scaled to the target and floored; the units lost to flooring go to the values with the
// largest fractional remainders.
func RoundAndScale(values []float64, target int64) []int64 {
	rv := make([]int64, len(values))
	total := floats.Sum(values)
	if total == 0 || len(values) == 0 {
		return rv
	}
	fractions := make([]float64, len(values))
	var assigned int64
	for i, v := range values {
		scaled := v / total * float64(target)
		whole := math.Floor(scaled)
		rv[i] = int64(whole)
		fractions[i] = scaled - whole
		assigned += rv[i]
	}
	indices := make([]int, len(values))
	for i := range indices {
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(a, b int) int {
		switch {
		case fractions[a] > fractions[b]:
			return -1
		case fractions[a] < fractions[b]:
			return 1
		default:
			return 0
		}
	})
	for i := int64(0); i < target-assigned; i++ {
		rv[indices[int(i)%len(indices)]]++
	}
	return rv
}

// PositiveIntegers partitions total into n integers of at least one each, in proportions drawn from the
// simplex. One unit is reserved per share before the remainder is split. If total < n it is raised to n;
// the second return value reports that adjustment, in which case the realized sum differs from the request.
func PositiveIntegers(rng *rand.Rand, n int, total int64) ([]int64, bool, error) {
	if n < 1 {
		return nil, false, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "n", Value: n, Message: "must be at least 1"})
	}
	clamped := false
	if total < int64(n) {
		total = int64(n)
		clamped = true
	}
	remainder := total - int64(n)
	parts := make([]int64, n)
	if remainder > 0 {
		raw, err := Floats(rng, n, float64(remainder))
		if err != nil {
			return nil, false, err
		}
		parts = RoundAndScale(raw, remainder)
	}
	for i := range parts {
		parts[i]++
	}
	return parts, clamped, nil
}
