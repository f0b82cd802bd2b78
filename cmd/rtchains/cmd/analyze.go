package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/analysis"
	"github.com/RaduLucianR/sag-ros-experiments/internal/chainfile"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/slices"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

func analyzeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <chain file>...",
		Short: "Bound the response times of all chains and print the schedulable ratio per thread count.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, args)
		},
	}
	cmd.Flags().IntSlice("threads", nil, "Thread counts to analyse. Defaults to the configured thread count.")
	cmd.Flags().Int("maxThreads", 0, "Analyse every thread count from 1 to this value.")
	cmd.Flags().String("responseTimes", "", "Write the per-chain results to this CSV file. Needs a single thread count.")
	cmd.Flags().String(outFlag, "", "Output file for the threads,ratio rows. Defaults to stdout.")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *App, paths []string) error {
	flags := cmd.Flags()
	threads, err := flags.GetIntSlice("threads")
	if err != nil {
		return err
	}
	maxThreads, err := flags.GetInt("maxThreads")
	if err != nil {
		return err
	}
	if maxThreads > 0 {
		threads = append(threads, analysis.ThreadRange(1, maxThreads)...)
	}
	if len(threads) == 0 {
		threads = []int{a.Config.Analysis.Threads}
	}
	threads = slices.Unique(threads)
	responseTimesPath, err := flags.GetString("responseTimes")
	if err != nil {
		return err
	}
	if responseTimesPath != "" && len(threads) != 1 {
		return errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "responseTimes",
			Value:   threads,
			Message: "per-chain results need exactly one thread count",
		})
	}

	ctx := commandContext(cmd)
	var sets []*model.TaskSet
	for _, path := range paths {
		result, err := chainfile.ParseFile(ctx, path)
		if err != nil {
			return err
		}
		if len(result.Skipped) > 0 {
			ctx.Warnf("skipped %d lines of %s", len(result.Skipped), path)
		}
		sets = append(sets, result.TaskSets...)
	}
	ctx.Infof("analysing %d task sets on %v threads", len(sets), threads)

	points, err := analysis.Sweep(ctx, slices.Map(sets, analysis.ParamsFromTaskSet), threads, a.Config.Analysis)
	if err != nil {
		return err
	}
	out, closeOut, err := output(cmd, a)
	if err != nil {
		return err
	}
	defer closeOut()
	if err := analysis.WriteSweep(out, points); err != nil {
		return err
	}
	if responseTimesPath == "" {
		return nil
	}
	f, err := createFile(responseTimesPath)
	if err != nil {
		return err
	}
	defer util.CloseResource(responseTimesPath, f)
	return analysis.WriteResponseTimes(f, points[0].Result)
}
