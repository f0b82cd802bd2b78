package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/chainfile"
	"github.com/RaduLucianR/sag-ros-experiments/internal/synth"
)

func generateCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random task sets of independent chains and write them in the chain format.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a)
		},
	}
	cmd.Flags().Float64("utilization", 0, "Total utilization of every task set.")
	cmd.Flags().Int("chains", 0, "Number of chains per task set.")
	cmd.Flags().Int("minTasks", 0, "Minimum number of tasks per chain.")
	cmd.Flags().Int("maxTasks", 0, "Maximum number of tasks per chain.")
	cmd.Flags().Int("count", 0, "Number of task sets to generate.")
	cmd.Flags().String(outFlag, "", "Output file. Defaults to stdout.")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *App) error {
	config := a.Config.Synth
	count := a.Config.TaskSets
	flags := cmd.Flags()
	var err error
	if flags.Changed("utilization") {
		if config.Utilization, err = flags.GetFloat64("utilization"); err != nil {
			return err
		}
	}
	if flags.Changed("chains") {
		if config.NumChains, err = flags.GetInt("chains"); err != nil {
			return err
		}
	}
	if flags.Changed("minTasks") {
		if config.MinTasks, err = flags.GetInt("minTasks"); err != nil {
			return err
		}
		if !flags.Changed("maxTasks") && config.MaxTasks < config.MinTasks {
			config.MaxTasks = config.MinTasks
		}
	}
	if flags.Changed("maxTasks") {
		if config.MaxTasks, err = flags.GetInt("maxTasks"); err != nil {
			return err
		}
	}
	if flags.Changed("count") {
		if count, err = flags.GetInt("count"); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	s, err := synth.NewSynthesizer(config, a.rand())
	if err != nil {
		return err
	}
	sets, err := s.GenerateN(ctx, count)
	if err != nil {
		return err
	}
	out, closeOut, err := output(cmd, a)
	if err != nil {
		return err
	}
	defer closeOut()
	return chainfile.Write(out, sets)
}
