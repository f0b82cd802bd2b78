// Package solver runs an external schedulability solver over a folder tree of job and precedence files,
// appending one result line per task set to a results file. Batches can be interrupted and resumed:
// task files already recorded in the results file are skipped.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/renstrom/shortuuid"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
)

// CommandRunner runs an external command and returns what it wrote to stdout and stderr.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type Config struct {
	// Path of the solver binary.
	Binary string `validate:"required"`
	// Number of executor threads passed to the solver with -m.
	Threads int `validate:"gte=1"`
	// Number of solver processes run at the same time.
	Workers int `validate:"gte=1"`
	// Per-run timeout. Zero means no timeout.
	Timeout time.Duration `validate:"gte=0"`
	// Number of times a failing run is tried before it is recorded as failed. Zero is treated as one.
	Attempts   int           `validate:"gte=0"`
	RetryDelay time.Duration `validate:"gte=0"`
}

type Runner struct {
	config   Config
	commands CommandRunner
	metrics  *Metrics
}

func NewRunner(config Config, commands CommandRunner, metrics *Metrics) (*Runner, error) {
	if config.Binary == "" {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "binary", Value: config.Binary, Message: "must not be empty"})
	}
	if config.Threads < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "threads", Value: config.Threads, Message: "must be at least 1"})
	}
	if config.Workers < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "workers", Value: config.Workers, Message: "must be at least 1"})
	}
	return &Runner{
		config:   config,
		commands: commands,
		metrics:  metrics,
	}, nil
}

// Summary counts the outcomes of one batch.
type Summary struct {
	BatchId   string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func (s *Summary) String() string {
	return fmt.Sprintf(
		"{BatchId: %s, Total: %d, Succeeded: %d, Failed: %d, Skipped: %d}",
		s.BatchId, s.Total, s.Succeeded, s.Failed, s.Skipped,
	)
}

// Args returns the solver command line arguments for a pair.
func (r *Runner) Args(pair Pair) []string {
	return []string{pair.TaskFile, "-m", strconv.Itoa(r.config.Threads), "-p", pair.PredFile}
}

// Run solves every pair not yet recorded in the results file and appends one line per pair to it. The first
// line of solver output is recorded on success; on failure an error line is recorded instead, which does
// not count as processed on a later run. Individual failures do not stop the batch; they are returned
// together as a multierror after all pairs have been attempted.
func (r *Runner) Run(ctx *chaincontext.Context, pairs []Pair, resultsPath string) (*Summary, error) {
	summary := &Summary{
		BatchId: shortuuid.New(),
		Total:   len(pairs),
	}
	ctx = chaincontext.WithLogField(ctx, "batch", summary.BatchId)
	processed, err := LoadProcessed(resultsPath)
	if err != nil {
		return nil, err
	}
	out, err := os.OpenFile(resultsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			ctx.WithError(err).Warnf("failed to close %s", resultsPath)
		}
	}()

	var mu sync.Mutex
	var failures *multierror.Error
	var writeErr error
	// Lines are written in input order as soon as every earlier pair has finished, so an interrupted
	// batch still leaves all completed results on disk.
	lines := make([]string, len(pairs))
	done := make([]bool, len(pairs))
	next := 0
	record := func(i int, line string) {
		lines[i], done[i] = line, true
		for ; next < len(lines) && done[next]; next++ {
			if writeErr != nil || lines[next] == "" {
				continue
			}
			if _, err := out.WriteString(lines[next] + "\n"); err != nil {
				writeErr = errors.WithStack(err)
			}
		}
	}

	g, ctx := chaincontext.ErrGroup(ctx)
	g.SetLimit(r.config.Workers)
	for i, pair := range pairs {
		i, pair := i, pair
		if processed[pair.TaskFile] {
			ctx.Debugf("skipping already processed file %s", pair.TaskFile)
			summary.Skipped++
			r.metrics.RecordRun(outcomeSkipped, 0)
			mu.Lock()
			done[i] = true
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			line, err := r.solve(ctx, pair)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ctx.WithError(err).Warnf("solver failed on %s", pair.TaskFile)
				failures = multierror.Append(failures, err)
				summary.Failed++
				record(i, err.Error())
				return nil
			}
			summary.Succeeded++
			record(i, line)
			return writeErr
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if writeErr != nil {
		return summary, writeErr
	}
	ctx.Infof("solver batch finished: %s", summary)
	return summary, failures.ErrorOrNil()
}

// solve runs the solver on a pair, retrying failed runs up to the configured number of attempts.
func (r *Runner) solve(ctx *chaincontext.Context, pair Pair) (string, error) {
	attempts := uint(1)
	if r.config.Attempts > 1 {
		attempts = uint(r.config.Attempts)
	}
	start := time.Now()
	var line string
	err := retry.Do(
		func() error {
			var err error
			line, err = r.attempt(ctx, pair)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(r.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			ctx.WithError(err).Debugf("attempt %d on %s failed", n+1, pair.TaskFile)
		}),
	)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.RecordRun(outcomeFailure, elapsed)
		return "", err
	}
	r.metrics.RecordRun(outcomeSuccess, elapsed)
	return line, nil
}

func (r *Runner) attempt(ctx *chaincontext.Context, pair Pair) (string, error) {
	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = chaincontext.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	stdout, stderr, err := r.commands.Run(runCtx, r.config.Binary, r.Args(pair)...)
	if err != nil {
		message := strings.Join(strings.Fields(firstNonEmpty(strings.TrimSpace(stderr), err.Error())), " ")
		return "", errors.Errorf("error processing %s and %s: %s", pair.TaskFile, pair.PredFile, message)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
	return line, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
