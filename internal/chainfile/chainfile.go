// Package chainfile reads and writes the tab-separated chain format shared with the response-time analysis
// and task-set generation tools:
//
//	<period>\t<exec_time>\t<deadline>\t<task_id>\t<chain_id>
//	...
//	-
//
// Consecutive lines with the same chain id form one chain whose period is taken from its first line.
// A line holding only "-" closes the current task set. Blank lines are ignored.
package chainfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

const (
	separator = "-"
	numFields = 5
)

// Result holds the task sets read from a chain file together with everything that was dropped on the way.
type Result struct {
	TaskSets []*model.TaskSet
	// Lines that could not be interpreted.
	Skipped []*chainerrors.ErrParse
	// Number of task sets dropped by ParseFixed because of a chain length mismatch.
	Rejected int
}

// SkippedErr returns the skipped lines as a single error, or nil if no line was skipped.
func (r *Result) SkippedErr() error {
	var result *multierror.Error
	for _, err := range r.Skipped {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type chainBuilder struct {
	id      int64
	period  int64
	budgets []int64
	line    int
}

// Parse reads every task set from r. Chains may differ in length; the per-set chain lengths are
// available from model.TaskSet.ChainLengths. Lines with fewer than five fields or with non-integer
// fields are skipped. Only read failures are returned as errors.
func Parse(ctx *chaincontext.Context, r io.Reader) (*Result, error) {
	rv := &Result{}
	var chains []model.Chain
	var current *chainBuilder

	skip := func(lineNumber int, text, message string) {
		err := &chainerrors.ErrParse{Line: lineNumber, Text: text, Message: message}
		ctx.Debugf("skipping %s", err)
		rv.Skipped = append(rv.Skipped, err)
	}
	closeChain := func() {
		if current == nil {
			return
		}
		chain, err := model.NewChain(current.period, current.budgets...)
		if err != nil {
			skip(current.line, fmt.Sprintf("chain %d", current.id), err.Error())
		} else {
			chains = append(chains, chain)
		}
		current = nil
	}
	closeSet := func() {
		closeChain()
		if len(chains) > 0 {
			rv.TaskSets = append(rv.TaskSets, model.NewTaskSet(chains...))
		}
		chains = nil
	}

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == separator {
			closeSet()
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < numFields {
			skip(lineNumber, line, fmt.Sprintf("expected %d fields but got %d", numFields, len(fields)))
			continue
		}
		values := make([]int64, numFields)
		valid := true
		for i := 0; i < numFields; i++ {
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				skip(lineNumber, line, fmt.Sprintf("field %d is not an integer", i+1))
				valid = false
				break
			}
			values[i] = v
		}
		if !valid {
			continue
		}
		period, execTime, chainId := values[0], values[1], values[4]
		if current == nil || current.id != chainId {
			closeChain()
			current = &chainBuilder{id: chainId, period: period, line: lineNumber}
		}
		current.budgets = append(current.budgets, execTime)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	closeSet()
	ctx.Debugf("parsed %d task sets, skipped %d lines", len(rv.TaskSets), len(rv.Skipped))
	return rv, nil
}

// ParseFixed is Parse for files whose chains all have chainLength tasks. Task sets containing a chain of
// any other length are logged and dropped.
func ParseFixed(ctx *chaincontext.Context, r io.Reader, chainLength int) (*Result, error) {
	if chainLength < 1 {
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "chainLength",
			Value:   chainLength,
			Message: "must be at least 1",
		})
	}
	rv, err := Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	kept := rv.TaskSets[:0]
	for i, ts := range rv.TaskSets {
		if n, ok := ts.UniformChainLength(); !ok || n != chainLength {
			ctx.Warnf("dropping task set %d: chain lengths %v, expected %d", i, ts.ChainLengths(), chainLength)
			rv.Rejected++
			continue
		}
		kept = append(kept, ts)
	}
	rv.TaskSets = kept
	return rv, nil
}

// ParseFile is Parse on the file at path.
func ParseFile(ctx *chaincontext.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer util.CloseResource(path, f)
	rv, err := Parse(chaincontext.WithLogField(ctx, "file", path), f)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", path)
	}
	return rv, nil
}

// Write serialises sets in the chain format. The deadline column repeats the period, task ids count
// from 1 within each set and chain ids count from 1.
func Write(w io.Writer, sets []*model.TaskSet) error {
	bw := bufio.NewWriter(w)
	for _, ts := range sets {
		taskId := 1
		for i, c := range ts.Chains {
			for _, task := range c.Tasks {
				if _, err := fmt.Fprintf(bw, "%d\t%d\t%d\t%d\t%d\n", c.Period, task.ExecTime, c.Deadline(), taskId, i+1); err != nil {
					return errors.WithStack(err)
				}
				taskId++
			}
		}
		if _, err := bw.WriteString(separator + "\n"); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(bw.Flush())
}

// WriteFile is Write to a newly created file at path.
func WriteFile(path string, sets []*model.TaskSet) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = errors.WithStack(closeErr)
		}
	}()
	return Write(f, sets)
}
