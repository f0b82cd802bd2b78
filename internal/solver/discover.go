package solver

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
)

var taskFilePattern = regexp.MustCompile(`^task_set_(.+)\.csv$`)

// Pair is one solver input: a job file and the precedence file with the same id.
type Pair struct {
	Id       string
	TaskFile string
	PredFile string
}

// Discover finds every task_set_<id>.csv below root that has a pred_<id>.csv next to it. Pairs are
// returned in lexicographic order of the task file path. Task files without a precedence file are logged
// and left out.
func Discover(ctx *chaincontext.Context, root string) ([]Pair, error) {
	candidates := make(map[string]bool)
	for _, pattern := range []string{
		filepath.Join(root, "task_set_*.csv"),
		filepath.Join(root, "**", "task_set_*.csv"),
	} {
		matches, err := zglob.Glob(pattern)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		for _, match := range matches {
			candidates[filepath.Clean(match)] = true
		}
	}
	taskFiles := maps.Keys(candidates)
	slices.Sort(taskFiles)

	var rv []Pair
	for _, taskFile := range taskFiles {
		m := taskFilePattern.FindStringSubmatch(filepath.Base(taskFile))
		if m == nil {
			continue
		}
		_, predName := jobs.TaskSetFileNames(m[1])
		predFile := filepath.Join(filepath.Dir(taskFile), predName)
		if _, err := os.Stat(predFile); err != nil {
			ctx.Warnf("missing predecessor file for %s (expected %s)", taskFile, predFile)
			continue
		}
		rv = append(rv, Pair{Id: m[1], TaskFile: taskFile, PredFile: predFile})
	}
	return rv, nil
}

// LoadProcessed returns the task files already recorded in the results file, i.e. the first field of
// every non-empty line. A missing results file means nothing has been processed yet.
func LoadProcessed(resultsPath string) (map[string]bool, error) {
	rv := make(map[string]bool)
	f, err := os.Open(resultsPath)
	if errors.Is(err, os.ErrNotExist) {
		return rv, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer util.CloseResource(resultsPath, f)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		first, _, _ := strings.Cut(line, ",")
		rv[strings.TrimSpace(first)] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return rv, nil
}
