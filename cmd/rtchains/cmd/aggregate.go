package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/results"
)

func aggregateCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <results file>",
		Short: "Count schedulable task sets per folder in a solver results file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, a, args[0])
		},
	}
	cmd.Flags().String(outFlag, "", "Output file for the summary. Defaults to stdout.")
	return cmd
}

func runAggregate(cmd *cobra.Command, a *App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer util.CloseResource(path, f)
	groups, err := results.Aggregate(f)
	if err != nil {
		return err
	}
	out, closeOut, err := output(cmd, a)
	if err != nil {
		return err
	}
	defer closeOut()
	return results.WriteSummary(out, groups)
}
