// Package jobs expands task sets into the job-level input of the schedulability solver: one job per task
// and period instance within the hyperperiod, plus the precedence edges between consecutive tasks of a chain.
package jobs

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

// DeadlineMode selects the absolute deadline written for every job.
type DeadlineMode string

const (
	// DeadlineOpen gives every job the same far-away deadline, so the solver reports response times
	// instead of deadline misses.
	DeadlineOpen DeadlineMode = "open"
	// DeadlineImplicit sets the deadline of a job to its release plus the chain period.
	DeadlineImplicit DeadlineMode = "implicit"
)

const DefaultOpenDeadline int64 = 1_000_000_000_000

type Config struct {
	DeadlineMode DeadlineMode `validate:"oneof=open implicit"`
	// Deadline used in DeadlineOpen mode.
	OpenDeadline int64 `validate:"gt=0"`
	// Best-case cost as a fraction of the worst case. 1 means no execution time variability.
	BCETRatio float64 `validate:"gt=0,lte=1"`
}

func DefaultConfig() Config {
	return Config{
		DeadlineMode: DeadlineOpen,
		OpenDeadline: DefaultOpenDeadline,
		BCETRatio:    1,
	}
}

// Priorities holds one priority per task, indexed by chain and then by position in the chain.
// Priorities of a task set are exactly 1..N for N tasks; a lower value is a higher priority.
type Priorities [][]int

type Expander struct {
	config Config
}

func NewExpander(config Config) (*Expander, error) {
	switch config.DeadlineMode {
	case DeadlineOpen:
		if config.OpenDeadline <= 0 {
			return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
				Name:    "openDeadline",
				Value:   config.OpenDeadline,
				Message: "must be positive",
			})
		}
	case DeadlineImplicit:
	default:
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "deadlineMode",
			Value:   config.DeadlineMode,
			Message: fmt.Sprintf("expected %q or %q", DeadlineOpen, DeadlineImplicit),
		})
	}
	if config.BCETRatio <= 0 || config.BCETRatio > 1 || math.IsNaN(config.BCETRatio) {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "bcetRatio",
			Value:   config.BCETRatio,
			Message: "must be in (0, 1]",
		})
	}
	return &Expander{config: config}, nil
}

// AssignPriorities draws a random priority assignment in which timers (the first task of every chain)
// hold the priorities 1..NC and subscriptions hold NC+1..N, each class permuted uniformly at random.
func AssignPriorities(rng *rand.Rand, ts *model.TaskSet) Priorities {
	numChains := len(ts.Chains)
	timers := rng.Perm(numChains)
	subscriptions := rng.Perm(ts.NumTasks() - numChains)
	rv := make(Priorities, numChains)
	next := 0
	for i, c := range ts.Chains {
		rv[i] = make([]int, c.Len())
		for j, task := range c.Tasks {
			if task.IsTimer() {
				rv[i][j] = timers[i] + 1
			} else {
				rv[i][j] = subscriptions[next] + numChains + 1
				next++
			}
		}
	}
	return rv
}

// FlatPriorities converts priorities listed task by task in chain order into Priorities.
func FlatPriorities(ts *model.TaskSet, flat []int) (Priorities, error) {
	if len(flat) != ts.NumTasks() {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "priorities",
			Value:   flat,
			Message: fmt.Sprintf("expected %d priorities", ts.NumTasks()),
		})
	}
	rv := make(Priorities, len(ts.Chains))
	offset := 0
	for i, c := range ts.Chains {
		rv[i] = slices.Clone(flat[offset : offset+c.Len()])
		offset += c.Len()
	}
	return rv, nil
}

// Expand draws priorities with AssignPriorities and expands ts with them.
func (e *Expander) Expand(rng *rand.Rand, ts *model.TaskSet) (*model.JobSet, error) {
	return e.ExpandWithPriorities(ts, AssignPriorities(rng, ts))
}

type expansionTask struct {
	priority     int
	predPriority int
	period       int64
	execTime     int64
}

// ExpandWithPriorities expands ts into jobs and precedence edges using the given priorities.
// Tasks are emitted in ascending priority order and job ids count from 1 across the whole set. The k-th
// job of a subscription is linked to the k-th job of the preceding task of its chain.
func (e *Expander) ExpandWithPriorities(ts *model.TaskSet, priorities Priorities) (*model.JobSet, error) {
	if err := validatePriorities(ts, priorities); err != nil {
		return nil, err
	}
	hyperperiod, err := ts.Hyperperiod()
	if err != nil {
		return nil, err
	}

	tasks := make([]expansionTask, 0, ts.NumTasks())
	for i, c := range ts.Chains {
		for j, task := range c.Tasks {
			t := expansionTask{
				priority: priorities[i][j],
				period:   c.Period,
				execTime: task.ExecTime,
			}
			if !task.IsTimer() {
				t.predPriority = priorities[i][j-1]
			}
			tasks = append(tasks, t)
		}
	}
	slices.SortFunc(tasks, func(a, b expansionTask) int {
		return a.priority - b.priority
	})

	// Job ids are handed out in emission order, so the first job of every task is known up front.
	firstJob := make(map[int]int, len(tasks))
	numJobs := 1
	for _, t := range tasks {
		if hyperperiod%t.period != 0 {
			return nil, errors.WithStack(&chainerrors.ErrHyperperiod{
				Hyperperiod: hyperperiod,
				Period:      t.period,
				Message:     "period does not divide the hyperperiod",
			})
		}
		firstJob[t.priority] = numJobs
		numJobs += int(hyperperiod / t.period)
	}

	rv := &model.JobSet{
		Hyperperiod: hyperperiod,
		Jobs:        make([]model.Job, 0, numJobs-1),
	}
	jobId := 1
	for _, t := range tasks {
		n := hyperperiod / t.period
		for k := int64(0); k < n; k++ {
			release := k * t.period
			rv.Jobs = append(rv.Jobs, model.Job{
				TaskId:     t.priority,
				JobId:      jobId,
				ArrivalMin: release,
				ArrivalMax: release,
				CostMin:    e.bestCase(t.execTime),
				CostMax:    t.execTime,
				Deadline:   e.deadline(release, t.period),
				Priority:   jobId,
			})
			if t.predPriority != 0 {
				rv.Edges = append(rv.Edges, model.PrecedenceEdge{
					PredTaskId: t.predPriority,
					PredJobId:  firstJob[t.predPriority] + int(k),
					SuccTaskId: t.priority,
					SuccJobId:  jobId,
				})
			}
			jobId++
		}
	}
	return rv, nil
}

func (e *Expander) bestCase(execTime int64) int64 {
	if e.config.BCETRatio >= 1 {
		return execTime
	}
	return int64(math.Floor(e.config.BCETRatio * float64(execTime)))
}

func (e *Expander) deadline(release, period int64) int64 {
	if e.config.DeadlineMode == DeadlineImplicit {
		return release + period
	}
	return e.config.OpenDeadline
}

func validatePriorities(ts *model.TaskSet, priorities Priorities) error {
	if len(priorities) != len(ts.Chains) {
		return errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "priorities",
			Value:   len(priorities),
			Message: fmt.Sprintf("expected priorities for %d chains", len(ts.Chains)),
		})
	}
	n := ts.NumTasks()
	seen := make([]bool, n+1)
	for i, c := range ts.Chains {
		if len(priorities[i]) != c.Len() {
			return errors.WithStack(&chainerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("priorities[%d]", i),
				Value:   priorities[i],
				Message: fmt.Sprintf("expected %d priorities", c.Len()),
			})
		}
		for _, p := range priorities[i] {
			if p < 1 || p > n || seen[p] {
				return errors.WithStack(&chainerrors.ErrInvalidArgument{
					Name:    fmt.Sprintf("priorities[%d]", i),
					Value:   p,
					Message: fmt.Sprintf("priorities must be a permutation of 1..%d", n),
				})
			}
			seen[p] = true
		}
	}
	return nil
}
