package cmd

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/slices"
	"github.com/RaduLucianR/sag-ros-experiments/internal/experiment"
)

func experimentCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Generate the task sets of every sweep described by the matching experiment specs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiments(cmd, a)
		},
	}
	cmd.Flags().String("specs", "", "Glob pattern specifying experiment specs.")
	return cmd
}

func runExperiments(cmd *cobra.Command, a *App) error {
	pattern, err := cmd.Flags().GetString("specs")
	if err != nil {
		return err
	}
	specs, err := experiment.SpecsFromPattern(pattern)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return errors.Errorf("no experiment specs match %q", pattern)
	}
	ctx := commandContext(cmd)
	ctx.Infof("Experiments: %v", slices.Map(specs, func(s *experiment.Spec) string { return s.Name }))
	if cmd.Flags().Changed(seedFlag) {
		for _, spec := range specs {
			spec.Seed = a.Config.Seed
		}
	}

	var failures *multierror.Error
	for _, spec := range specs {
		points, err := experiment.Run(chaincontext.WithLogField(ctx, "spec", spec.Name), spec)
		for _, p := range points {
			ctx.Infof("%s: %d task sets at %s written to %s", spec.Name, p.TaskSets, p.Label(), p.ChainFile)
		}
		if err != nil {
			failures = multierror.Append(failures, errors.WithMessagef(err, "experiment %s", spec.Name))
		}
	}
	return failures.ErrorOrNil()
}
