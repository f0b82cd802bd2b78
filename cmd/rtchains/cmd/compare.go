package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/results"
)

func compareCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <job file> <response time file>",
		Short: "Compute end-to-end chain response times from the per-job response times reported by the solver.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, a, args[0], args[1])
		},
	}
	cmd.Flags().StringSlice("pairs", nil, "Chains as source:sink task id pairs, e.g. 1:4,2:7.")
	cmd.Flags().String(outFlag, "", "Output file. Defaults to stdout.")
	return cmd
}

func runCompare(cmd *cobra.Command, a *App, jobsPath, wcrtPath string) error {
	raw, err := cmd.Flags().GetStringSlice("pairs")
	if err != nil {
		return err
	}
	pairs := make([]results.ChainPair, len(raw))
	for i, s := range raw {
		if pairs[i], err = results.ParseChainPair(s); err != nil {
			return err
		}
	}
	ctx := commandContext(cmd)
	responses, err := results.CompareChainFiles(jobsPath, wcrtPath, pairs)
	if err != nil {
		if responses == nil {
			return err
		}
		ctx.WithError(err).Warn("some chains could not be compared")
	}
	out, closeOut, err := output(cmd, a)
	if err != nil {
		return err
	}
	defer closeOut()
	return results.WriteComparison(out, responses)
}
