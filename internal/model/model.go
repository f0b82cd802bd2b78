package model

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
)

// Task is one callback of a chain. Index 0 is the timer callback; every other task is a subscription
// triggered by its predecessor.
type Task struct {
	// Position within the owning chain.
	Index int
	// Execution budget in the time unit of the task set (ns or µs).
	ExecTime int64
}

// IsTimer reports whether the task is the source of its chain.
func (t Task) IsTimer() bool {
	return t.Index == 0
}

// Chain is an ordered sequence of callbacks released once per period. The deadline is implicit, i.e.
// equal to the period.
type Chain struct {
	Period int64
	Tasks  []Task
}

// NewChain returns a chain with the given period and one task per budget.
func NewChain(period int64, budgets ...int64) (Chain, error) {
	if period <= 0 {
		return Chain{}, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "period",
			Value:   period,
			Message: "must be positive",
		})
	}
	if len(budgets) == 0 {
		return Chain{}, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "budgets",
			Value:   budgets,
			Message: "a chain needs at least one task",
		})
	}
	tasks := make([]Task, len(budgets))
	for i, b := range budgets {
		if b < 0 {
			return Chain{}, errors.WithStack(&chainerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("budgets[%d]", i),
				Value:   b,
				Message: "must not be negative",
			})
		}
		tasks[i] = Task{Index: i, ExecTime: b}
	}
	return Chain{Period: period, Tasks: tasks}, nil
}

// MustNewChain is NewChain but panics on invalid input.
func MustNewChain(period int64, budgets ...int64) Chain {
	c, err := NewChain(period, budgets...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Chain) Len() int {
	return len(c.Tasks)
}

func (c Chain) Deadline() int64 {
	return c.Period
}

// ExecTime is the summed budget of all tasks of the chain.
func (c Chain) ExecTime() int64 {
	var rv int64
	for _, t := range c.Tasks {
		rv += t.ExecTime
	}
	return rv
}

// LastExecTime is the budget of the final callback of the chain.
func (c Chain) LastExecTime() int64 {
	if len(c.Tasks) == 0 {
		return 0
	}
	return c.Tasks[len(c.Tasks)-1].ExecTime
}

func (c Chain) Utilization() float64 {
	return float64(c.ExecTime()) / float64(c.Period)
}

// Budgets returns the execution budgets of the chain's tasks in order.
func (c Chain) Budgets() []int64 {
	rv := make([]int64, len(c.Tasks))
	for i, t := range c.Tasks {
		rv[i] = t.ExecTime
	}
	return rv
}

// TaskSet is a set of mutually independent chains.
type TaskSet struct {
	Chains []Chain
}

func NewTaskSet(chains ...Chain) *TaskSet {
	return &TaskSet{Chains: chains}
}

func (ts *TaskSet) Periods() []int64 {
	rv := make([]int64, len(ts.Chains))
	for i, c := range ts.Chains {
		rv[i] = c.Period
	}
	return rv
}

// ChainLengths returns the number of tasks of every chain, in order.
func (ts *TaskSet) ChainLengths() []int {
	rv := make([]int, len(ts.Chains))
	for i, c := range ts.Chains {
		rv[i] = c.Len()
	}
	return rv
}

func (ts *TaskSet) NumTasks() int {
	n := 0
	for _, c := range ts.Chains {
		n += c.Len()
	}
	return n
}

// Hyperperiod is the least common multiple of all chain periods.
func (ts *TaskSet) Hyperperiod() (int64, error) {
	h, err := util.LcmAll(ts.Periods()...)
	if err != nil {
		return 0, errors.WithStack(&chainerrors.ErrHyperperiod{Message: err.Error()})
	}
	return h, nil
}

// JobCount is the number of jobs released over one hyperperiod, counting every task of every chain.
func (ts *TaskSet) JobCount() (int64, error) {
	h, err := ts.Hyperperiod()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range ts.Chains {
		n += h / c.Period * int64(c.Len())
	}
	return n, nil
}

func (ts *TaskSet) Utilization() float64 {
	u := 0.0
	for _, c := range ts.Chains {
		u += c.Utilization()
	}
	return u
}

// UniformChainLength returns the common chain length and true if all chains have the same length.
func (ts *TaskSet) UniformChainLength() (int, bool) {
	if len(ts.Chains) == 0 {
		return 0, false
	}
	n := ts.Chains[0].Len()
	for _, c := range ts.Chains[1:] {
		if c.Len() != n {
			return 0, false
		}
	}
	return n, true
}
