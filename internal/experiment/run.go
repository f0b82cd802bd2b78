package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/RaduLucianR/sag-ros-experiments/internal/chainfile"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
	"github.com/RaduLucianR/sag-ros-experiments/internal/synth"
)

// generator is implemented by synth.Synthesizer and synth.Randomized.
type generator interface {
	GenerateN(ctx *chaincontext.Context, n int) ([]*model.TaskSet, error)
}

// Point is one batch of a sweep.
type Point struct {
	// Total utilization, or normalized utilization for randomized sweeps.
	Utilization float64
	Seed        uint64
	ChainFile   string
	// Folder holding the job and precedence files. Empty if the spec does not expand jobs.
	JobDir   string
	TaskSets int
}

func (p Point) Label() string {
	return strconv.FormatFloat(p.Utilization, 'f', -1, 64)
}

// Points returns the batches of a spec with their output paths and derived seeds, without generating anything.
func Points(spec *Spec) []Point {
	utilizations := spec.Utilizations
	if spec.Randomized != nil {
		utilizations = spec.Randomized.NormalizedUtilizations
	}
	rv := make([]Point, len(utilizations))
	for i, u := range utilizations {
		p := Point{Utilization: u, Seed: util.DeriveSeed(spec.Seed, i)}
		p.ChainFile = filepath.Join(spec.OutputDir, fmt.Sprintf("tasksets_%s.txt", p.Label()))
		if spec.Jobs != nil {
			p.JobDir = filepath.Join(spec.OutputDir, fmt.Sprintf("util%s", p.Label()))
		}
		rv[i] = p
	}
	return rv
}

func newGenerator(spec *Spec, p Point, rng *rand.Rand) (generator, error) {
	if r := spec.Randomized; r != nil {
		return synth.NewRandomized(synth.RandomizedConfig{
			MaxChains:             r.MaxChains,
			MaxTasks:              r.MaxTasks,
			Threads:               r.Threads,
			NormalizedUtilization: p.Utilization,
			JobWindow:             spec.JobWindow,
			MaxAttempts:           spec.MaxAttempts,
			Periods:               spec.Periods,
		}, rng)
	}
	return synth.NewSynthesizer(synth.Config{
		Utilization:    p.Utilization,
		NumChains:      spec.Chains,
		MinTasks:       spec.MinTasks,
		MaxTasks:       spec.MaxTasks,
		JobWindow:      spec.JobWindow,
		MaxAttempts:    spec.MaxAttempts,
		UtilizationCap: spec.UtilizationCap,
		Periods:        spec.Periods,
	}, rng)
}

// Run generates every point of a spec in parallel. Each point draws from its own source seeded from the
// spec seed and its index, so the output does not depend on scheduling. A failing point does not stop the
// others; all failures are returned together.
func Run(ctx *chaincontext.Context, spec *Spec) ([]Point, error) {
	points := Points(spec)
	if len(points) == 0 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "utilizations", Value: points, Message: "no points to generate"})
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	ctx = chaincontext.WithLogFields(ctx, map[string]interface{}{"experiment": spec.Name, "id": spec.Id})

	var mu sync.Mutex
	var failures *multierror.Error
	g, ctx := chaincontext.ErrGroup(ctx)
	for i := range points {
		i := i
		g.Go(func() error {
			if err := runPoint(chaincontext.WithLogField(ctx, "point", points[i].Label()), spec, &points[i]); err != nil {
				mu.Lock()
				failures = multierror.Append(failures, errors.WithMessagef(err, "point %s", points[i].Label()))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return points, err
	}
	ctx.Infof("experiment %s finished %d points", spec.Name, len(points))
	return points, failures.ErrorOrNil()
}

func runPoint(ctx *chaincontext.Context, spec *Spec, p *Point) error {
	rng := util.NewRand(p.Seed)
	gen, err := newGenerator(spec, *p, rng)
	if err != nil {
		return err
	}
	sets, err := gen.GenerateN(ctx, spec.TaskSetsPerPoint)
	if err != nil {
		return err
	}
	if err := chainfile.WriteFile(p.ChainFile, sets); err != nil {
		return err
	}
	p.TaskSets = len(sets)
	if spec.Jobs == nil {
		return nil
	}
	expander, err := jobs.NewExpander(*spec.Jobs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.JobDir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	for i, ts := range sets {
		js, err := expander.Expand(rng, ts)
		if err != nil {
			return errors.WithMessagef(err, "expanding task set %d", i)
		}
		if _, _, err := jobs.WriteTaskSetFiles(p.JobDir, strconv.Itoa(i), js); err != nil {
			return err
		}
	}
	ctx.Debugf("wrote %d job files to %s", len(sets), p.JobDir)
	return nil
}
