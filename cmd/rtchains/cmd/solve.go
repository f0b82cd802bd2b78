package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/weaveworks/promrus"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/solver"
)

func solveCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <folder>",
		Short: "Run the schedulability solver on every task_set_<id>.csv / pred_<id>.csv pair below a folder.",
		Long: "Run the schedulability solver on every task_set_<id>.csv / pred_<id>.csv pair below a folder. " +
			"Results are appended to the results file; pairs already recorded there are skipped, so an " +
			"interrupted batch can be resumed by running the same command again.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, a, args[0])
		},
	}
	cmd.Flags().String("results", "results.csv", "Results file.")
	cmd.Flags().String("binary", "", "Solver binary. Overrides the configured binary.")
	cmd.Flags().Int("threads", 0, "Executor threads passed to the solver. Overrides the configured count.")
	cmd.Flags().Int("workers", 0, "Solver processes run at the same time. Overrides the configured count.")
	cmd.Flags().Duration("timeout", 0, "Per-run timeout. Overrides the configured timeout.")
	cmd.Flags().Int("attempts", 0, "Times a failing run is tried. Overrides the configured count.")
	cmd.Flags().Int("metricsPort", 0, "Serve Prometheus metrics on this port while the batch runs. Disabled if 0.")
	return cmd
}

func runSolve(cmd *cobra.Command, a *App, root string) error {
	flags := cmd.Flags()
	config := a.Config.Solver
	var err error
	if flags.Changed("binary") {
		if config.Binary, err = flags.GetString("binary"); err != nil {
			return err
		}
	}
	if flags.Changed("threads") {
		if config.Threads, err = flags.GetInt("threads"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if config.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if config.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("attempts") {
		if config.Attempts, err = flags.GetInt("attempts"); err != nil {
			return err
		}
	}
	resultsPath, err := flags.GetString("results")
	if err != nil {
		return err
	}
	metricsPort, err := flags.GetInt("metricsPort")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	reg := prometheus.NewRegistry()
	runner, err := solver.NewRunner(config, solver.ExecRunner{}, solver.NewMetrics(reg))
	if err != nil {
		return err
	}
	if metricsPort > 0 {
		stop := serveMetrics(ctx, reg, metricsPort)
		defer stop()
	}
	pairs, err := solver.Discover(ctx, root)
	if err != nil {
		return err
	}
	ctx.Infof("found %d task sets below %s", len(pairs), root)
	summary, err := runner.Run(ctx, pairs, resultsPath)
	if summary != nil {
		fmt.Fprintln(a.Out, summary)
	}
	return err
}

var registerLogMetrics sync.Once

// countLogMessages hooks the standard logger into a per-level message counter on the default registry.
func countLogMessages(ctx *chaincontext.Context) {
	registerLogMetrics.Do(func() {
		hook, err := promrus.NewPrometheusHook()
		if err != nil {
			ctx.WithError(err).Warn("failed to register log message metrics")
			return
		}
		log.AddHook(hook)
	})
}

// metricsHandler serves the solver metrics in reg together with the default registry.
func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{reg, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

// serveMetrics exposes reg over http until the returned function is called.
func serveMetrics(ctx *chaincontext.Context, reg *prometheus.Registry, port int) func() {
	countLogMessages(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler(reg))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		ctx.Infof("serving metrics on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ctx.WithError(err).Error("metrics server failed")
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			ctx.WithError(err).Warn("failed to shut down metrics server")
		}
	}
}
