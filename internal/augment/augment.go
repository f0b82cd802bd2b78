// Package augment adds a fixed framework overhead to the execution times of a job CSV.
package augment

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
)

// Column selects which cost columns receive the overhead.
type Column string

const (
	ColumnMin  Column = "min"
	ColumnMax  Column = "max"
	ColumnBoth Column = "both"
)

// DefaultOverhead is the executor overhead per callback, in microseconds.
const DefaultOverhead int64 = 5000

// OutputPrefix is prepended to the input file name to form the output file name.
const OutputPrefix = "aug_"

func (c Column) indices() ([]int, error) {
	switch c {
	case ColumnMin:
		return []int{jobs.ColumnCostMin}, nil
	case ColumnMax:
		return []int{jobs.ColumnCostMax}, nil
	case ColumnBoth:
		return []int{jobs.ColumnCostMin, jobs.ColumnCostMax}, nil
	default:
		return nil, errors.WithStack(&chainerrors.ErrInvalidArgument{
			Name:    "column",
			Value:   c,
			Message: fmt.Sprintf("expected %q, %q or %q", ColumnMin, ColumnMax, ColumnBoth),
		})
	}
}

// Transform copies the job CSV from r to w, adding overhead to the selected cost columns. The header and
// all other fields are copied unchanged.
func Transform(r io.Reader, w io.Writer, overhead int64, column Column) error {
	indices, err := column.indices()
	if err != nil {
		return err
	}
	cr := csv.NewReader(r)
	cw := csv.NewWriter(w)
	header, err := cr.Read()
	if err != nil {
		return errors.Wrap(err, "reading header")
	}
	if err := cw.Write(header); err != nil {
		return errors.WithStack(err)
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.WithStack(err)
		}
		for _, i := range indices {
			if i >= len(record) {
				line, _ := cr.FieldPos(0)
				return errors.Errorf("line %d: expected at least %d columns", line, i+1)
			}
			v, err := strconv.ParseInt(record[i], 10, 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return errors.Errorf("line %d: %q is not an integer", line, record[i])
			}
			record[i] = strconv.FormatInt(v+overhead, 10)
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// Augment applies Transform to the file at path and writes the result to aug_<name> in the same directory.
// It returns the output path. The input file is left untouched, and no output file is left behind on error.
func Augment(path string, overhead int64, column Column) (outPath string, err error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer util.CloseResource(path, in)

	outPath = filepath.Join(filepath.Dir(path), OutputPrefix+filepath.Base(path))
	out, err := os.Create(outPath)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = errors.WithStack(closeErr)
		}
		if err != nil {
			if removeErr := os.Remove(outPath); removeErr != nil {
				log.WithError(removeErr).Warnf("failed to remove %s", outPath)
			}
			outPath = ""
		}
	}()
	if err := Transform(in, out, overhead, column); err != nil {
		return "", errors.WithMessagef(err, "augmenting %s", path)
	}
	return outPath, nil
}
