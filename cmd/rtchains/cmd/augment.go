package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RaduLucianR/sag-ros-experiments/internal/augment"
)

func augmentCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "augment <job file>...",
		Short: "Add a fixed overhead to the execution times of job files, writing aug_<name> next to each input.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAugment(cmd, a, args)
		},
	}
	cmd.Flags().Int64("overhead", 0, "Overhead added to every job. Overrides the configured overhead.")
	cmd.Flags().String("column", "", "Cost column to augment: min, max or both. Overrides the configured column.")
	return cmd
}

func runAugment(cmd *cobra.Command, a *App, paths []string) error {
	flags := cmd.Flags()
	config := a.Config.Augment
	var err error
	if flags.Changed("overhead") {
		if config.Overhead, err = flags.GetInt64("overhead"); err != nil {
			return err
		}
	}
	if flags.Changed("column") {
		column, err := flags.GetString("column")
		if err != nil {
			return err
		}
		config.Column = augment.Column(column)
	}
	ctx := commandContext(cmd)
	for _, path := range paths {
		outPath, err := augment.Augment(path, config.Overhead, config.Column)
		if err != nil {
			return err
		}
		ctx.Infof("wrote %s", outPath)
	}
	return nil
}
