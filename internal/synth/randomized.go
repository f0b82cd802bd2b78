package synth

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
	"github.com/RaduLucianR/sag-ros-experiments/internal/period"
)

// MinRandomizedUtilization is the lower bound of the total utilization drawn per randomized task set.
const MinRandomizedUtilization = 0.1

// RandomizedConfig draws the shape of every task set at random: the number of chains uniformly from
// [2, MaxChains], a common chain length uniformly from [2, MaxTasks] and the total utilization uniformly
// from [0.1, min(Threads*NormalizedUtilization, chains)]. No chain exceeds utilization 1.
type RandomizedConfig struct {
	MaxChains             int     `validate:"gte=2"`
	MaxTasks              int     `validate:"gte=2"`
	Threads               int     `validate:"gte=1"`
	NormalizedUtilization float64 `validate:"gt=0"`
	JobWindow             JobWindow
	MaxAttempts           int `validate:"gte=0"`
	Periods               period.Config
}

type Randomized struct {
	config RandomizedConfig
	rng    *rand.Rand
}

func NewRandomized(config RandomizedConfig, rng *rand.Rand) (*Randomized, error) {
	if config.MaxChains < 2 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "maxChains", Value: config.MaxChains, Message: "must be at least 2"})
	}
	if config.MaxTasks < 2 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "maxTasks", Value: config.MaxTasks, Message: "must be at least 2"})
	}
	if config.Threads < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "threads", Value: config.Threads, Message: "must be at least 1"})
	}
	if config.NormalizedUtilization <= 0 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "normalizedUtilization",
			Value:   config.NormalizedUtilization,
			Message: "must be positive",
		})
	}
	if _, err := period.NewSampler(config.Periods); err != nil {
		return nil, err
	}
	return &Randomized{config: config, rng: rng}, nil
}

// Draw picks the parameters of the next task set.
func (r *Randomized) Draw() Config {
	numChains := 2 + r.rng.Intn(r.config.MaxChains-1)
	numTasks := 2 + r.rng.Intn(r.config.MaxTasks-1)
	upper := math.Min(float64(r.config.Threads)*r.config.NormalizedUtilization, float64(numChains))
	if upper < MinRandomizedUtilization {
		upper = MinRandomizedUtilization
	}
	u := MinRandomizedUtilization + r.rng.Float64()*(upper-MinRandomizedUtilization)
	return Config{
		Utilization:    u,
		NumChains:      numChains,
		MinTasks:       numTasks,
		MaxTasks:       numTasks,
		JobWindow:      r.config.JobWindow,
		MaxAttempts:    r.config.MaxAttempts,
		UtilizationCap: 1,
		Periods:        r.config.Periods,
	}
}

// Generate draws fresh parameters and returns one task set built from them.
func (r *Randomized) Generate(ctx *chaincontext.Context) (*model.TaskSet, error) {
	config := r.Draw()
	s, err := NewSynthesizer(config, r.rng)
	if err != nil {
		return nil, err
	}
	ctx.Debugf("drew %d chains of %d tasks with utilization %.3f", config.NumChains, config.MinTasks, config.Utilization)
	return s.Generate(ctx)
}

func (r *Randomized) GenerateN(ctx *chaincontext.Context, n int) ([]*model.TaskSet, error) {
	rv := make([]*model.TaskSet, n)
	for i := range rv {
		ts, err := r.Generate(chaincontext.WithLogField(ctx, "taskSet", i))
		if err != nil {
			return nil, errors.WithMessagef(err, "generating task set %d", i)
		}
		rv[i] = ts
	}
	return rv, nil
}
