// Package analysis bounds the end-to-end response time of processing chains served by a multi-threaded
// executor. For chain k on m threads the bound is R_k = L* + C_k^last, where L* is the least fixed point of
//
//	f_k(L) = C_k - C_k^last + (1/m) * sum_{i != k} W_i(L)
//	W_i(L) = (n_i(L) - 1) * C_i + min((L - C_i) mod T_i, C_i)
//	n_i(L) = ceil((L - C_i) / T_i) + 1
//
// found by iterating from L = 0. A chain is schedulable iff R_k <= T_k.
package analysis

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

// ChainParams are the per-chain aggregates the analysis works on.
type ChainParams struct {
	Period int64
	// Summed execution time of all callbacks of the chain.
	ExecTime int64
	// Execution time of the final callback.
	LastExecTime int64
}

// ParamsFromChain reduces a chain to the aggregates used by the analysis.
func ParamsFromChain(c model.Chain) ChainParams {
	return ChainParams{
		Period:       c.Period,
		ExecTime:     c.ExecTime(),
		LastExecTime: c.LastExecTime(),
	}
}

func ParamsFromTaskSet(ts *model.TaskSet) []ChainParams {
	rv := make([]ChainParams, len(ts.Chains))
	for i, c := range ts.Chains {
		rv[i] = ParamsFromChain(c)
	}
	return rv
}

// Releases is n_i(L), the number of releases of chain c that can interfere within a window of length L.
func Releases(c ChainParams, L float64) float64 {
	return math.Ceil((L-float64(c.ExecTime))/float64(c.Period)) + 1
}

// Workload is W_i(L), the execution time chain c can demand within a window of length L.
func Workload(c ChainParams, L float64) float64 {
	exec := float64(c.ExecTime)
	carryIn := math.Min(util.FloorMod(L-exec, float64(c.Period)), exec)
	return (Releases(c, L)-1)*exec + carryIn
}

// Interference is f_k(L) for chain k of chains on the given number of threads.
func Interference(chains []ChainParams, k int, L float64, threads int) float64 {
	workload := 0.0
	for i, c := range chains {
		if i != k {
			workload += Workload(c, L)
		}
	}
	return float64(chains[k].ExecTime-chains[k].LastExecTime) + workload/float64(threads)
}

// Verdict is the outcome of analysing a single chain.
type Verdict int

const (
	Schedulable Verdict = iota
	Unschedulable
	// Indeterminate marks a chain whose fixed point was not found within the iteration budget.
	Indeterminate
)

func (v Verdict) String() string {
	switch v {
	case Schedulable:
		return "schedulable"
	case Unschedulable:
		return "unschedulable"
	case Indeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

type Config struct {
	Threads int `validate:"gte=1"`
	// Iteration stops once two consecutive values differ by at most Tolerance.
	Tolerance     float64 `validate:"gt=0"`
	MaxIterations int     `validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{
		Threads:       1,
		Tolerance:     1e-6,
		MaxIterations: 1000,
	}
}

// Analyzer applies the response-time bound for a fixed number of threads.
type Analyzer struct {
	config Config
}

func NewAnalyzer(config Config) (*Analyzer, error) {
	if config.Threads < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "threads", Value: config.Threads, Message: "must be at least 1"})
	}
	if !(config.Tolerance > 0) {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "tolerance", Value: config.Tolerance, Message: "must be positive"})
	}
	if config.MaxIterations < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "maxIterations",
			Value:   config.MaxIterations,
			Message: "must be at least 1",
		})
	}
	return &Analyzer{config: config}, nil
}

func (a *Analyzer) Threads() int {
	return a.config.Threads
}

// FixedPoint returns L* for chain k together with the number of iterations used. If the iteration does not
// settle within the budget an *chainerrors.ErrNonConvergence is returned.
func (a *Analyzer) FixedPoint(chains []ChainParams, k int) (float64, int, error) {
	L := 0.0
	for i := 1; i <= a.config.MaxIterations; i++ {
		next := Interference(chains, k, L, a.config.Threads)
		if math.IsInf(next, 0) || math.IsNaN(next) {
			return 0, i, errors.WithStack(&chainerrors.ErrNonConvergence{Chain: k, Iterations: i, Last: next})
		}
		if math.Abs(next-L) <= a.config.Tolerance {
			return next, i, nil
		}
		L = next
	}
	return 0, a.config.MaxIterations, errors.WithStack(&chainerrors.ErrNonConvergence{
		Chain:      k,
		Iterations: a.config.MaxIterations,
		Last:       L,
	})
}

// ChainResult is the analysis outcome of one chain. TaskSet and Chain are numbered from 1.
type ChainResult struct {
	TaskSet      int
	Chain        int
	ResponseTime float64
	Deadline     int64
	Verdict      Verdict
	Iterations   int
}

// AnalyzeChain bounds the response time of chain k. A chain that does not converge is reported as
// Indeterminate with a zero response time.
func (a *Analyzer) AnalyzeChain(chains []ChainParams, k int) ChainResult {
	rv := ChainResult{
		Chain:    k + 1,
		Deadline: chains[k].Period,
	}
	L, iterations, err := a.FixedPoint(chains, k)
	rv.Iterations = iterations
	if err != nil {
		rv.Verdict = Indeterminate
		return rv
	}
	rv.ResponseTime = L + float64(chains[k].LastExecTime)
	if rv.ResponseTime <= float64(rv.Deadline) {
		rv.Verdict = Schedulable
	} else {
		rv.Verdict = Unschedulable
	}
	return rv
}

type TaskSetResult struct {
	Chains []ChainResult
	// True iff every chain is Schedulable.
	Schedulable bool
}

// AnalyzeTaskSet analyses every chain of a task set. Non-converging chains are logged and make the set
// unschedulable, but do not stop the analysis of the remaining chains.
func (a *Analyzer) AnalyzeTaskSet(ctx *chaincontext.Context, chains []ChainParams) TaskSetResult {
	rv := TaskSetResult{
		Chains:      make([]ChainResult, len(chains)),
		Schedulable: len(chains) > 0,
	}
	for k := range chains {
		result := a.AnalyzeChain(chains, k)
		if result.Verdict == Indeterminate {
			ctx.Warnf("chain %d did not converge after %d iterations", result.Chain, result.Iterations)
		}
		if result.Verdict != Schedulable {
			rv.Schedulable = false
		}
		rv.Chains[k] = result
	}
	return rv
}

type BatchResult struct {
	Threads  int
	TaskSets []TaskSetResult
	// Number of fully schedulable task sets.
	Schedulable int
	// Number of chains, over all task sets, whose verdict is Indeterminate.
	Indeterminate int
}

// Ratio is the fraction of task sets that are schedulable.
func (r *BatchResult) Ratio() float64 {
	if len(r.TaskSets) == 0 {
		return 0
	}
	return float64(r.Schedulable) / float64(len(r.TaskSets))
}

// ChainResults returns the results of all chains of all task sets in order.
func (r *BatchResult) ChainResults() []ChainResult {
	var rv []ChainResult
	for _, ts := range r.TaskSets {
		rv = append(rv, ts.Chains...)
	}
	return rv
}

// AnalyzeBatch analyses every task set of a batch independently.
func (a *Analyzer) AnalyzeBatch(ctx *chaincontext.Context, sets [][]ChainParams) *BatchResult {
	rv := &BatchResult{
		Threads:  a.config.Threads,
		TaskSets: make([]TaskSetResult, len(sets)),
	}
	for i, chains := range sets {
		result := a.AnalyzeTaskSet(chaincontext.WithLogField(ctx, "taskSet", i+1), chains)
		for j := range result.Chains {
			result.Chains[j].TaskSet = i + 1
			if result.Chains[j].Verdict == Indeterminate {
				rv.Indeterminate++
			}
		}
		if result.Schedulable {
			rv.Schedulable++
		}
		rv.TaskSets[i] = result
	}
	ctx.Infof(
		"%d of %d task sets schedulable on %d threads (%d chains indeterminate)",
		rv.Schedulable, len(sets), a.config.Threads, rv.Indeterminate,
	)
	return rv
}

// AnalyzeTaskSets is AnalyzeBatch over task sets of the data model.
func (a *Analyzer) AnalyzeTaskSets(ctx *chaincontext.Context, sets []*model.TaskSet) *BatchResult {
	params := make([][]ChainParams, len(sets))
	for i, ts := range sets {
		params[i] = ParamsFromTaskSet(ts)
	}
	return a.AnalyzeBatch(ctx, params)
}
