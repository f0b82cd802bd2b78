// Package configuration holds the configuration of the rtchains command and its defaults.
package configuration

import (
	"time"

	"github.com/RaduLucianR/sag-ros-experiments/internal/analysis"
	"github.com/RaduLucianR/sag-ros-experiments/internal/augment"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/config"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/logging"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
	"github.com/RaduLucianR/sag-ros-experiments/internal/period"
	"github.com/RaduLucianR/sag-ros-experiments/internal/solver"
	"github.com/RaduLucianR/sag-ros-experiments/internal/synth"
)

type Config struct {
	Logging logging.Config
	// Seed of every random source. Commands given --seed override it.
	Seed     uint64
	Synth    synth.Config
	Jobs     jobs.Config
	Analysis analysis.Config
	Solver   solver.Config
	Augment  AugmentConfig
	// Number of task sets written by the generate command.
	TaskSets int `validate:"gte=1"`
}

type AugmentConfig struct {
	Overhead int64          `validate:"gte=0"`
	Column   augment.Column `validate:"oneof=min max both"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: logging.Config{
			Level:  "info",
			Format: logging.FormatText,
		},
		Seed: 1,
		Synth: synth.Config{
			Utilization:    2,
			NumChains:      5,
			MinTasks:       10,
			MaxTasks:       10,
			JobWindow:      synth.JobWindow{Min: 1000, Max: 5000},
			MaxAttempts:    10000,
			UtilizationCap: 1,
			Periods:        period.DefaultSnappedConfig(),
		},
		Jobs:     jobs.DefaultConfig(),
		Analysis: analysis.DefaultConfig(),
		Solver: solver.Config{
			Binary:     "nptest",
			Threads:    1,
			Workers:    1,
			Attempts:   1,
			RetryDelay: time.Second,
		},
		Augment: AugmentConfig{
			Overhead: augment.DefaultOverhead,
			Column:   augment.ColumnBoth,
		},
		TaskSets: 100,
	}
}

// Load returns the defaults overridden by the given files, in order, and validates the result.
func Load(paths ...string) (Config, error) {
	c := Default()
	if err := config.Load(&c, paths...); err != nil {
		return c, err
	}
	if err := config.Validate(&c); err != nil {
		return c, err
	}
	return c, nil
}
