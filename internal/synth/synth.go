// Package synth generates random task sets of independent chains with a prescribed total utilization.
package synth

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
	"github.com/RaduLucianR/sag-ros-experiments/internal/partition"
	"github.com/RaduLucianR/sag-ros-experiments/internal/period"
)

// JobWindow is the accepted range of jobs per hyperperiod, bounds included. A zero Max disables the check.
type JobWindow struct {
	Min int64 `validate:"gte=0"`
	Max int64 `validate:"gte=0"`
}

func (w JobWindow) Contains(jobs int64) bool {
	if w.Max == 0 {
		return true
	}
	return jobs >= w.Min && jobs <= w.Max
}

type Config struct {
	// Total utilization of the task set.
	Utilization float64 `validate:"gt=0"`
	NumChains   int     `validate:"gte=1"`
	// The number of tasks of every chain is drawn uniformly from [MinTasks, MaxTasks].
	MinTasks  int `validate:"gte=1"`
	MaxTasks  int `validate:"gtefield=MinTasks"`
	JobWindow JobWindow
	// Number of task sets to try before giving up. Zero means no limit.
	MaxAttempts int `validate:"gte=0"`
	// Upper bound on the utilization of a single chain. Zero disables the bound, in which case chains
	// above 1 are logged but kept.
	UtilizationCap float64 `validate:"gte=0"`
	Periods        period.Config
}

func (c Config) validate() error {
	switch {
	case c.Utilization <= 0 || math.IsNaN(c.Utilization) || math.IsInf(c.Utilization, 0):
		return &chainerrors.ErrInvalidArgument{Name: "utilization", Value: c.Utilization, Message: "must be positive"}
	case c.NumChains < 1:
		return &chainerrors.ErrInvalidArgument{Name: "numChains", Value: c.NumChains, Message: "must be at least 1"}
	case c.MinTasks < 1:
		return &chainerrors.ErrInvalidArgument{Name: "minTasks", Value: c.MinTasks, Message: "must be at least 1"}
	case c.MaxTasks < c.MinTasks:
		return &chainerrors.ErrInvalidArgument{Name: "maxTasks", Value: c.MaxTasks, Message: "must not be below minTasks"}
	case c.JobWindow.Max != 0 && c.JobWindow.Max < c.JobWindow.Min:
		return &chainerrors.ErrInvalidArgument{Name: "jobWindow", Value: c.JobWindow, Message: "max must not be below min"}
	case c.MaxAttempts < 0:
		return &chainerrors.ErrInvalidArgument{Name: "maxAttempts", Value: c.MaxAttempts, Message: "must not be negative"}
	case c.UtilizationCap < 0:
		return &chainerrors.ErrInvalidArgument{Name: "utilizationCap", Value: c.UtilizationCap, Message: "must not be negative"}
	case c.UtilizationCap > 0 && c.Utilization > float64(c.NumChains)*c.UtilizationCap:
		return &chainerrors.ErrInvalidArgument{
			Name:    "utilization",
			Value:   c.Utilization,
			Message: "exceeds numChains x utilizationCap",
		}
	}
	return nil
}

// Synthesizer draws task sets according to a Config. It is not safe for concurrent use; parallel callers
// should create one Synthesizer per goroutine, each with its own random source.
type Synthesizer struct {
	config  Config
	sampler period.Sampler
	rng     *rand.Rand
}

func NewSynthesizer(config Config, rng *rand.Rand) (*Synthesizer, error) {
	if err := config.validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	sampler, err := period.NewSampler(config.Periods)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{
		config:  config,
		sampler: sampler,
		rng:     rng,
	}, nil
}

// Generate returns one task set whose job count per hyperperiod lies within the configured window.
// Rejected task sets are discarded and redrawn in full.
func (s *Synthesizer) Generate(ctx *chaincontext.Context) (*model.TaskSet, error) {
	var jobs int64
	for attempt := 1; s.config.MaxAttempts == 0 || attempt <= s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts, err := s.draw(ctx)
		if err != nil {
			return nil, err
		}
		jobs, err = ts.JobCount()
		if err != nil {
			var hyperperiodErr *chainerrors.ErrHyperperiod
			if errors.As(err, &hyperperiodErr) {
				ctx.Debugf("rejecting task set: %s", err)
				continue
			}
			return nil, err
		}
		if !s.config.JobWindow.Contains(jobs) {
			ctx.Debugf("rejecting task set with %d jobs (attempt %d)", jobs, attempt)
			continue
		}
		return ts, nil
	}
	return nil, errors.WithStack(&chainerrors.ErrJobCountOutOfRange{
		JobCount: jobs,
		Min:      s.config.JobWindow.Min,
		Max:      s.config.JobWindow.Max,
		Attempts: s.config.MaxAttempts,
	})
}

// GenerateN returns n task sets drawn one after another from the same random source.
func (s *Synthesizer) GenerateN(ctx *chaincontext.Context, n int) ([]*model.TaskSet, error) {
	rv := make([]*model.TaskSet, n)
	for i := range rv {
		ts, err := s.Generate(chaincontext.WithLogField(ctx, "taskSet", i))
		if err != nil {
			return nil, errors.WithMessagef(err, "generating task set %d", i)
		}
		rv[i] = ts
	}
	ctx.Infof("generated %d task sets with utilization %.3f", n, s.config.Utilization)
	return rv, nil
}

func (s *Synthesizer) draw(ctx *chaincontext.Context) (*model.TaskSet, error) {
	shares, err := partition.CappedFloats(s.rng, s.config.NumChains, s.config.Utilization, s.config.UtilizationCap, 0)
	if err != nil {
		return nil, err
	}
	chains := make([]model.Chain, s.config.NumChains)
	for i, u := range shares {
		if s.config.UtilizationCap == 0 && u > 1 {
			ctx.Warnf("chain %d has utilization %.3f > 1", i, u)
		}
		numTasks := s.config.MinTasks
		if s.config.MaxTasks > s.config.MinTasks {
			numTasks += s.rng.Intn(s.config.MaxTasks - s.config.MinTasks + 1)
		}
		p := s.sampler.Sample(s.rng)
		execTime := int64(math.Round(float64(p) * u))
		if execTime < int64(numTasks) {
			execTime = int64(numTasks)
		}
		budgets, _, err := partition.PositiveIntegers(s.rng, numTasks, execTime)
		if err != nil {
			return nil, err
		}
		chain, err := model.NewChain(p, budgets...)
		if err != nil {
			return nil, err
		}
		chains[i] = chain
	}
	return model.NewTaskSet(chains...), nil
}
