package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/logging"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/configuration"
)

const (
	configFlag = "config"
	seedFlag   = "seed"
	outFlag    = "out"
)

// App holds the state shared by all sub-commands once the configuration has been loaded.
type App struct {
	Config configuration.Config
	Out    io.Writer
}

func (a *App) rand() *rand.Rand {
	return util.NewRand(a.Config.Seed)
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	a := &App{Config: configuration.Default(), Out: os.Stdout}
	cmd := &cobra.Command{
		Use:           "rtchains",
		Short:         "rtchains generates, converts and analyses task sets of ROS 2 processing chains.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd, a)
		},
	}
	cmd.PersistentFlags().StringSlice(configFlag, nil, "Configuration files, merged in order on top of the defaults.")
	cmd.PersistentFlags().Uint64(seedFlag, 0, "Seed of every random source. Overrides the configured seed.")

	cmd.AddCommand(
		generateCmd(a),
		expandCmd(a),
		analyzeCmd(a),
		augmentCmd(a),
		solveCmd(a),
		aggregateCmd(a),
		compareCmd(a),
		experimentCmd(a),
	)
	return cmd
}

func initApp(cmd *cobra.Command, a *App) error {
	paths, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return err
	}
	config, err := configuration.Load(paths...)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed(seedFlag) {
		if config.Seed, err = cmd.Flags().GetUint64(seedFlag); err != nil {
			return err
		}
	}
	if err := logging.ConfigureLogging(config.Logging); err != nil {
		return err
	}
	a.Config = config
	a.Out = cmd.OutOrStdout()
	return nil
}

func commandContext(cmd *cobra.Command) *chaincontext.Context {
	return chaincontext.New(cmd.Context(), log.WithField("command", cmd.Name()))
}

// output returns the writer for the --out flag: stdout if the flag is empty or "-", a new file otherwise.
func output(cmd *cobra.Command, a *App) (io.Writer, func(), error) {
	path, err := cmd.Flags().GetString(outFlag)
	if err != nil {
		return nil, nil, err
	}
	if path == "" || path == "-" {
		return a.Out, func() {}, nil
	}
	f, err := createFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { util.CloseResource(path, f) }, nil
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}
