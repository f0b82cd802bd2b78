// Package experiment runs generation sweeps described in YAML files: one batch of task sets per
// utilization point, written as chain files and optionally expanded into solver inputs.
package experiment

import (
	"path/filepath"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/renstrom/shortuuid"
	"github.com/spf13/viper"

	commonconfig "github.com/RaduLucianR/sag-ros-experiments/internal/common/config"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
	"github.com/RaduLucianR/sag-ros-experiments/internal/period"
	"github.com/RaduLucianR/sag-ros-experiments/internal/synth"
)

// Spec describes one sweep.
type Spec struct {
	// Defaults to the name of the file the spec was loaded from.
	Name string
	// Assigned when the spec is loaded.
	Id   string
	Seed uint64
	// Number of task sets generated per point.
	TaskSetsPerPoint int `validate:"gte=1"`
	// Number of chains and tasks per chain for fixed points.
	Chains   int
	MinTasks int
	MaxTasks int
	// One point per total utilization. Ignored when Randomized is set.
	Utilizations   []float64
	UtilizationCap float64 `validate:"gte=0"`
	Periods        period.Config
	JobWindow      synth.JobWindow
	MaxAttempts    int `validate:"gte=0"`
	Randomized     *RandomizedSpec
	// If set, every task set is also expanded into job and precedence files, one folder per point.
	Jobs *jobs.Config
	// A leading ~ is expanded to the home directory.
	OutputDir string `validate:"required"`
}

// RandomizedSpec draws the shape of every task set at random, one point per normalized utilization.
type RandomizedSpec struct {
	MaxChains              int `validate:"gte=2"`
	MaxTasks               int `validate:"gte=2"`
	Threads                int `validate:"gte=1"`
	NormalizedUtilizations []float64
}

func SpecsFromPattern(pattern string) ([]*Spec, error) {
	filePaths, err := zglob.Glob(pattern)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return SpecsFromFilePaths(filePaths)
}

func SpecsFromFilePaths(filePaths []string) ([]*Spec, error) {
	rv := make([]*Spec, len(filePaths))
	for i, filePath := range filePaths {
		spec, err := SpecFromFilePath(filePath)
		if err != nil {
			return nil, err
		}
		rv[i] = spec
	}
	return rv, nil
}

func SpecFromFilePath(filePath string) (*Spec, error) {
	rv := &Spec{}
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in experiment spec %s", filePath)
		return nil, errors.WithStack(err)
	}
	if err := v.Unmarshal(rv, commonconfig.CustomHooks...); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal experiment spec %s", filePath)
		return nil, errors.WithStack(err)
	}

	// If no name is provided, set it to be the filename.
	if rv.Name == "" {
		fileName := filepath.Base(filePath)
		fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName))
		rv.Name = fileName
	}
	outputDir, err := homedir.Expand(rv.OutputDir)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid output directory in experiment spec %s", filePath)
	}
	rv.OutputDir = outputDir
	initialiseSpec(rv)
	if err := commonconfig.Validate(rv); err != nil {
		return nil, errors.WithMessagef(err, "invalid experiment spec %s", filePath)
	}
	return rv, nil
}

func initialiseSpec(spec *Spec) {
	if spec.Id == "" {
		spec.Id = shortuuid.New()
	}
	if spec.Periods == (period.Config{}) {
		spec.Periods = period.DefaultSnappedConfig()
	}
	if spec.MaxTasks == 0 {
		spec.MaxTasks = spec.MinTasks
	}
	if spec.Jobs != nil {
		defaults := jobs.DefaultConfig()
		if spec.Jobs.DeadlineMode == "" {
			spec.Jobs.DeadlineMode = defaults.DeadlineMode
		}
		if spec.Jobs.OpenDeadline == 0 {
			spec.Jobs.OpenDeadline = defaults.OpenDeadline
		}
		if spec.Jobs.BCETRatio == 0 {
			spec.Jobs.BCETRatio = defaults.BCETRatio
		}
	}
}
