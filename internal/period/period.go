// Package period draws chain periods from a configured distribution.
package period

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
)

// Distribution selects a Sampler implementation.
type Distribution string

const (
	DistributionSnapped    Distribution = "snapped"
	DistributionLogUniform Distribution = "loguniform"
)

// Sampler returns one period per call, drawing randomness from rng only.
type Sampler interface {
	Sample(rng *rand.Rand) int64
}

// Config describes a period distribution. Fields not relevant to the selected distribution are ignored.
type Config struct {
	Distribution Distribution `validate:"oneof=snapped loguniform"`
	// Bounds of the allowed periods.
	Min int64 `validate:"gt=0"`
	Max int64 `validate:"gtefield=Min"`
	// Spacing of the allowed periods for snapped sampling and the granularity for log-uniform sampling.
	Step int64 `validate:"gt=0"`
	// Range of the raw draw before snapping. Zero values default to [Min, Max].
	RawMin int64
	RawMax int64
}

// DefaultSnappedConfig samples 50 to 200 ms in steps of 10 ms, expressed in nanoseconds.
func DefaultSnappedConfig() Config {
	return Config{
		Distribution: DistributionSnapped,
		Min:          50_000_000,
		Max:          200_000_000,
		Step:         10_000_000,
		RawMin:       50_000_000,
		RawMax:       200_000_000,
	}
}

// DefaultLogUniformConfig samples 10000 to 100000 with granularity 5000, expressed in microseconds.
func DefaultLogUniformConfig() Config {
	return Config{
		Distribution: DistributionLogUniform,
		Min:          10_000,
		Max:          100_000,
		Step:         5_000,
	}
}

// NewSampler returns the Sampler described by config.
func NewSampler(config Config) (Sampler, error) {
	if config.Min <= 0 || config.Max < config.Min || config.Step <= 0 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "periods",
			Value:   fmt.Sprintf("min=%d max=%d step=%d", config.Min, config.Max, config.Step),
			Message: "need 0 < min <= max and step > 0",
		})
	}
	switch config.Distribution {
	case DistributionSnapped:
		rawMin, rawMax := config.RawMin, config.RawMax
		if rawMin == 0 && rawMax == 0 {
			rawMin, rawMax = config.Min, config.Max
		}
		if rawMax < rawMin {
			return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
				Name:    "rawMax",
				Value:   rawMax,
				Message: fmt.Sprintf("must not be below rawMin %d", rawMin),
			})
		}
		return &Snapped{
			Min:    config.Min,
			Max:    config.Max,
			Step:   config.Step,
			RawMin: rawMin,
			RawMax: rawMax,
		}, nil
	case DistributionLogUniform:
		if config.Min < config.Step {
			return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
				Name:    "min",
				Value:   config.Min,
				Message: fmt.Sprintf("must not be below the granularity %d", config.Step),
			})
		}
		return &LogUniform{
			Min:         config.Min,
			Max:         config.Max,
			Granularity: config.Step,
		}, nil
	default:
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "distribution",
			Value:   config.Distribution,
			Message: fmt.Sprintf("expected %q or %q", DistributionSnapped, DistributionLogUniform),
		})
	}
}

// Snapped draws a raw period uniformly from [RawMin, RawMax], clips it to [Min, Max] and returns the
// closest of Min, Min+Step, ..., up to Max. Ties go to the smaller value.
type Snapped struct {
	Min    int64
	Max    int64
	Step   int64
	RawMin int64
	RawMax int64
}

func (s *Snapped) Sample(rng *rand.Rand) int64 {
	raw := distuv.Uniform{Min: float64(s.RawMin), Max: float64(s.RawMax), Src: rng}.Rand()
	return s.Snap(int64(math.Round(raw)))
}

// Snap maps a raw period onto the allowed set.
func (s *Snapped) Snap(raw int64) int64 {
	if raw < s.Min {
		raw = s.Min
	}
	if raw > s.Max {
		raw = s.Max
	}
	// Largest allowed value not above Max.
	last := s.Min + (s.Max-s.Min)/s.Step*s.Step
	k := (raw - s.Min) / s.Step
	lower := s.Min + k*s.Step
	upper := lower + s.Step
	if upper > last || raw-lower <= upper-raw {
		return lower
	}
	return upper
}

// LogUniform draws r uniformly from [ln(Min), ln(Max+Granularity)] and returns
// floor(e^r / Granularity) * Granularity, which favours short periods. Min must not be below Granularity,
// so every sample is positive.
type LogUniform struct {
	Min         int64
	Max         int64
	Granularity int64
}

func (s *LogUniform) Sample(rng *rand.Rand) int64 {
	lo := math.Log(float64(s.Min))
	hi := math.Log(float64(s.Max + s.Granularity))
	r := distuv.Uniform{Min: lo, Max: hi, Src: rng}.Rand()
	p := int64(math.Floor(math.Exp(r)/float64(s.Granularity))) * s.Granularity
	// e^ln(Min) can round to just below Min.
	if floor := s.Min / s.Granularity * s.Granularity; p < floor {
		p = floor
	}
	return p
}
