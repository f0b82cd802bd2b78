package analysis

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
)

// SweepPoint is the schedulability ratio of a batch for one thread count.
type SweepPoint struct {
	Threads int
	Ratio   float64
	Result  *BatchResult
}

// Sweep analyses the same batch for every thread count in threads. Thread counts are analysed
// concurrently; the returned points are in the order of threads.
func Sweep(ctx *chaincontext.Context, sets [][]ChainParams, threads []int, config Config) ([]SweepPoint, error) {
	analyzers := make([]*Analyzer, len(threads))
	for i, m := range threads {
		c := config
		c.Threads = m
		a, err := NewAnalyzer(c)
		if err != nil {
			return nil, err
		}
		analyzers[i] = a
	}
	rv := make([]SweepPoint, len(threads))
	g, ctx := chaincontext.ErrGroup(ctx)
	for i, a := range analyzers {
		i, a := i, a
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := a.AnalyzeBatch(chaincontext.WithLogField(ctx, "threads", a.Threads()), sets)
			rv[i] = SweepPoint{
				Threads: a.Threads(),
				Ratio:   result.Ratio(),
				Result:  result,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rv, nil
}

// ThreadRange returns the thread counts from..to inclusive.
func ThreadRange(from, to int) []int {
	var rv []int
	for m := from; m <= to; m++ {
		rv = append(rv, m)
	}
	return rv
}

var ResponseTimesHeader = []string{"TaskSet", "Chain", "R", "D", "Verdict", "Iterations"}

// WriteResponseTimes writes one CSV row per analysed chain.
func WriteResponseTimes(w io.Writer, result *BatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResponseTimesHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, r := range result.ChainResults() {
		record := []string{
			strconv.Itoa(r.TaskSet),
			strconv.Itoa(r.Chain),
			strconv.FormatFloat(r.ResponseTime, 'f', -1, 64),
			strconv.FormatInt(r.Deadline, 10),
			r.Verdict.String(),
			strconv.Itoa(r.Iterations),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// WriteSweep writes one "threads,ratio" row per point, without a header, as consumed by the plotting scripts.
func WriteSweep(w io.Writer, points []SweepPoint) error {
	cw := csv.NewWriter(w)
	for _, p := range points {
		record := []string{strconv.Itoa(p.Threads), strconv.FormatFloat(p.Ratio, 'f', -1, 64)}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}
