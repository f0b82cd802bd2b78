package cmd

import (
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/RaduLucianR/sag-ros-experiments/internal/chainfile"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

func expandCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <chain file>",
		Short: "Expand every task set of a chain file into job and precedence CSV files for the solver.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, a, args[0])
		},
	}
	cmd.Flags().String("dir", ".", "Folder receiving task_set_<i>.csv and pred_<i>.csv.")
	cmd.Flags().String("deadlineMode", "", "Job deadlines: open or implicit. Overrides the configured mode.")
	cmd.Flags().Int("chainLength", 0, "If set, only task sets whose chains all have this many tasks are expanded.")
	cmd.Flags().IntSlice("priorities", nil, "Fixed priorities, one per task in chain order. Defaults to random priorities.")
	return cmd
}

func runExpand(cmd *cobra.Command, a *App, path string) error {
	flags := cmd.Flags()
	dir, err := flags.GetString("dir")
	if err != nil {
		return err
	}
	config := a.Config.Jobs
	if flags.Changed("deadlineMode") {
		mode, err := flags.GetString("deadlineMode")
		if err != nil {
			return err
		}
		config.DeadlineMode = jobs.DeadlineMode(mode)
	}
	chainLength, err := flags.GetInt("chainLength")
	if err != nil {
		return err
	}
	fixed, err := flags.GetIntSlice("priorities")
	if err != nil {
		return err
	}
	expander, err := jobs.NewExpander(config)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer util.CloseResource(path, f)
	var result *chainfile.Result
	if chainLength > 0 {
		result, err = chainfile.ParseFixed(ctx, f, chainLength)
	} else {
		result, err = chainfile.Parse(ctx, f)
	}
	if err != nil {
		return err
	}
	if err := result.SkippedErr(); err != nil {
		ctx.Warnf("skipped %d lines of %s: %s", len(result.Skipped), path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	rng := a.rand()
	var failures *multierror.Error
	expanded := 0
	for i, ts := range result.TaskSets {
		js, err := expandTaskSet(expander, rng, ts, fixed)
		if err != nil {
			// A task set that cannot be expanded does not stop the others.
			ctx.WithError(err).Warnf("skipping task set %d of %s", i, path)
			failures = multierror.Append(failures, errors.WithMessagef(err, "task set %d", i))
			continue
		}
		if _, _, err := jobs.WriteTaskSetFiles(dir, strconv.Itoa(i), js); err != nil {
			return err
		}
		expanded++
	}
	ctx.Infof("expanded %d of %d task sets from %s into %s", expanded, len(result.TaskSets), path, dir)
	return failures.ErrorOrNil()
}

func expandTaskSet(expander *jobs.Expander, rng *rand.Rand, ts *model.TaskSet, fixed []int) (*model.JobSet, error) {
	if len(fixed) == 0 {
		return expander.Expand(rng, ts)
	}
	priorities, err := jobs.FlatPriorities(ts, fixed)
	if err != nil {
		return nil, err
	}
	return expander.ExpandWithPriorities(ts, priorities)
}
