package solver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	// Task files for which the command fails.
	failing map[string]bool
	// Task files for which the command fails the given number of times before succeeding.
	flaky map[string]int
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.failing[args[0]] {
		return "", "bad input\nsecond line", errors.New("exit status 1")
	}
	if f.flaky[args[0]] > 0 {
		f.flaky[args[0]]--
		return "", "", errors.New("signal: killed")
	}
	return args[0] + ", 1, 12, 34\ntrailing output\n", "", nil
}

func touch(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
}

func testTree(t *testing.T) string {
	root := t.TempDir()
	touch(t, filepath.Join(root, "tasksets_02", "task_set_1.csv"))
	touch(t, filepath.Join(root, "tasksets_02", "pred_1.csv"))
	touch(t, filepath.Join(root, "tasksets_01", "task_set_0.csv"))
	touch(t, filepath.Join(root, "tasksets_01", "pred_0.csv"))
	touch(t, filepath.Join(root, "tasksets_01", "task_set_10.csv"))
	touch(t, filepath.Join(root, "tasksets_01", "pred_10.csv"))
	// No precedence file.
	touch(t, filepath.Join(root, "tasksets_01", "task_set_2.csv"))
	// Not a task file.
	touch(t, filepath.Join(root, "tasksets_01", "aug_task_set_0.csv"))
	touch(t, filepath.Join(root, "task_set_top.csv"))
	touch(t, filepath.Join(root, "pred_top.csv"))
	return root
}

func TestDiscover(t *testing.T) {
	root := testTree(t)
	pairs, err := Discover(chaincontext.Background(), root)
	require.NoError(t, err)

	var ids []string
	for _, p := range pairs {
		ids = append(ids, p.Id)
		assert.Equal(t, filepath.Dir(p.TaskFile), filepath.Dir(p.PredFile))
		assert.Equal(t, "pred_"+p.Id+".csv", filepath.Base(p.PredFile))
	}
	assert.Equal(t, []string{"top", "0", "10", "1"}, ids)
	assert.True(t, sort.SliceIsSorted(pairs, func(i, j int) bool { return pairs[i].TaskFile < pairs[j].TaskFile }))
}

func TestLoadProcessed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	processed, err := LoadProcessed(path)
	require.NoError(t, err)
	assert.Empty(t, processed)

	require.NoError(t, os.WriteFile(path, []byte("a/task_set_1.csv, 1, 2\n\n  b/task_set_2.csv ,0\nerror processing c and d: boom\n"), 0o644))
	processed, err = LoadProcessed(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"a/task_set_1.csv":               true,
		"b/task_set_2.csv":               true,
		"error processing c and d: boom": true,
	}, processed)
}

func TestRunner_Run(t *testing.T) {
	root := testTree(t)
	pairs, err := Discover(chaincontext.Background(), root)
	require.NoError(t, err)
	resultsPath := filepath.Join(t.TempDir(), "results.csv")

	failing := filepath.Join(root, "tasksets_02", "task_set_1.csv")
	commands := &fakeRunner{failing: map[string]bool{failing: true}}
	reg := prometheus.NewRegistry()
	runner, err := NewRunner(Config{Binary: "nptest", Threads: 4, Workers: 2}, commands, NewMetrics(reg))
	require.NoError(t, err)

	summary, err := runner.Run(chaincontext.Background(), pairs, resultsPath)
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 1)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.NotEmpty(t, summary.BatchId)

	for _, call := range commands.calls {
		require.Len(t, call, 6)
		assert.Equal(t, "nptest", call[0])
		assert.Equal(t, []string{"-m", "4", "-p"}, call[2:5])
	}

	content, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 4)
	// One line per pair, in input order whatever the completion order.
	for i, line := range lines {
		if pairs[i].TaskFile == failing {
			assert.Equal(t, "error processing "+failing+" and "+pairs[i].PredFile+": bad input second line", line)
		} else {
			assert.Equal(t, pairs[i].TaskFile+", 1, 12, 34", line)
		}
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(runner.metrics.runs.WithLabelValues(outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(runner.metrics.runs.WithLabelValues(outcomeFailure)))

	// A second run only retries the failed pair.
	commands.failing = nil
	commands.calls = nil
	summary, err = runner.Run(chaincontext.Background(), pairs, resultsPath)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, commands.calls, 1)
	assert.Equal(t, failing, commands.calls[0][1])
	assert.Equal(t, 3.0, testutil.ToFloat64(runner.metrics.runs.WithLabelValues(outcomeSkipped)))

	processed, err := LoadProcessed(resultsPath)
	require.NoError(t, err)
	for _, p := range pairs {
		assert.True(t, processed[p.TaskFile])
	}
}

func TestRunner_Run_KeepsInputOrderWithManyWorkers(t *testing.T) {
	root := t.TempDir()
	var pairs []Pair
	for _, id := range []string{"0", "1", "2", "3", "4", "5", "6", "7"} {
		pair := Pair{
			Id:       id,
			TaskFile: filepath.Join(root, "task_set_"+id+".csv"),
			PredFile: filepath.Join(root, "pred_"+id+".csv"),
		}
		pairs = append(pairs, pair)
	}
	resultsPath := filepath.Join(t.TempDir(), "results.csv")
	// The first pair has already been processed.
	require.NoError(t, os.WriteFile(resultsPath, []byte(pairs[0].TaskFile+", 1, 12, 34\n"), 0o644))

	runner, err := NewRunner(Config{Binary: "nptest", Threads: 1, Workers: 8}, &fakeRunner{}, NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	summary, err := runner.Run(chaincontext.Background(), pairs, resultsPath)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 7, summary.Succeeded)

	content, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, len(pairs))
	for i, line := range lines {
		assert.Equal(t, pairs[i].TaskFile+", 1, 12, 34", line)
	}
}

func TestRunner_Run_Retries(t *testing.T) {
	tests := map[string]struct {
		attempts          int
		failures          int
		expectedCalls     int
		expectedSucceeded int
	}{
		"single attempt fails": {
			attempts:          0,
			failures:          1,
			expectedCalls:     1,
			expectedSucceeded: 0,
		},
		"second attempt succeeds": {
			attempts:          3,
			failures:          1,
			expectedCalls:     2,
			expectedSucceeded: 1,
		},
		"every attempt fails": {
			attempts:          2,
			failures:          5,
			expectedCalls:     2,
			expectedSucceeded: 0,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			pair := Pair{Id: "0", TaskFile: filepath.Join(root, "task_set_0.csv"), PredFile: filepath.Join(root, "pred_0.csv")}
			commands := &fakeRunner{flaky: map[string]int{pair.TaskFile: tc.failures}}
			reg := prometheus.NewRegistry()
			runner, err := NewRunner(Config{Binary: "nptest", Threads: 1, Workers: 1, Attempts: tc.attempts}, commands, NewMetrics(reg))
			require.NoError(t, err)

			summary, err := runner.Run(chaincontext.Background(), []Pair{pair}, filepath.Join(root, "results.csv"))
			assert.Len(t, commands.calls, tc.expectedCalls)
			assert.Equal(t, tc.expectedSucceeded, summary.Succeeded)
			assert.Equal(t, 1-tc.expectedSucceeded, summary.Failed)
			if tc.expectedSucceeded == 1 {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewRunner_Invalid(t *testing.T) {
	tests := map[string]Config{
		"no binary":  {Threads: 1, Workers: 1},
		"no threads": {Binary: "nptest", Workers: 1},
		"no workers": {Binary: "nptest", Threads: 1},
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRunner(config, &fakeRunner{}, nil)
			var invalid *chainerrors.ErrInvalidArgument
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
