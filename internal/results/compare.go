package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/jobs"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

// Columns read from the response-time table.
const (
	ColumnTaskId = "Task ID"
	ColumnWCRT   = "WCRT"
)

// ChainPair names the first and the last task of a chain.
type ChainPair struct {
	Source int
	Sink   int
}

// ParseChainPair parses "a:b".
func ParseChainPair(s string) (ChainPair, error) {
	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return ChainPair{}, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "pair", Value: s, Message: "expected source:sink"})
	}
	source, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return ChainPair{}, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "pair", Value: s, Message: "source is not an integer"})
	}
	sink, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return ChainPair{}, errors.WithStack(&chainerrors.ErrInvalidArgument{Name: "pair", Value: s, Message: "sink is not an integer"})
	}
	return ChainPair{Source: source, Sink: sink}, nil
}

// ChainResponse is the end-to-end response time observed for one chain.
type ChainResponse struct {
	ChainPair
	ResponseTime float64
}

// table reduces a csv file to the task id column and one value column, in file order.
type table struct {
	name   string
	taskId []int
	value  []float64
}

func (t *table) rows(taskId int) []float64 {
	var rv []float64
	for i, id := range t.taskId {
		if id == taskId {
			rv = append(rv, t.value[i])
		}
	}
	return rv
}

func arrivalTable(jobList []model.Job) *table {
	t := &table{name: "jobs"}
	for _, j := range jobList {
		t.taskId = append(t.taskId, j.TaskId)
		t.value = append(t.value, float64(j.ArrivalMin))
	}
	return t
}

func readTable(name string, r io.Reader, valueColumn string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.WithMessagef(err, "reading header of %s", name)
	}
	idIdx, valueIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case ColumnTaskId:
			idIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if idIdx < 0 || valueIdx < 0 {
		return nil, errors.Errorf("%s: header %v lacks %q or %q", name, header, ColumnTaskId, valueColumn)
	}
	t := &table{name: name}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %s", name)
		}
		line, _ := cr.FieldPos(0)
		id, err := strconv.Atoi(strings.TrimSpace(record[idIdx]))
		if err != nil {
			return nil, errors.WithStack(&chainerrors.ErrParse{Line: line, Text: record[idIdx], Message: ColumnTaskId + " is not an integer"})
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			return nil, errors.WithStack(&chainerrors.ErrParse{Line: line, Text: record[valueIdx], Message: valueColumn + " is not a number"})
		}
		t.taskId = append(t.taskId, id)
		t.value = append(t.value, value)
	}
	return t, nil
}

// CompareChains pairs the k-th job of each source task in the job table with the k-th job of the sink
// task in the response-time table and returns max(WCRT_sink - ArrivalMin_source) per pair. A pair whose
// tasks have different job counts is left out of the result and reported as ErrRowCountMismatch; the
// other pairs are still computed.
func CompareChains(jobsCSV, wcrtCSV io.Reader, pairs []ChainPair) ([]ChainResponse, error) {
	jobList, err := jobs.ReadJobs(jobsCSV)
	if err != nil {
		return nil, err
	}
	return compareChains(jobList, wcrtCSV, pairs)
}

// CompareChainFiles runs CompareChains on two files.
func CompareChainFiles(jobsPath, wcrtPath string, pairs []ChainPair) ([]ChainResponse, error) {
	jobList, err := jobs.ReadJobsFile(jobsPath)
	if err != nil {
		return nil, err
	}
	wcrtFile, err := os.Open(wcrtPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer util.CloseResource(wcrtPath, wcrtFile)
	return compareChains(jobList, wcrtFile, pairs)
}

func compareChains(jobList []model.Job, wcrtCSV io.Reader, pairs []ChainPair) ([]ChainResponse, error) {
	arrivals := arrivalTable(jobList)
	responses, err := readTable("response times", wcrtCSV, ColumnWCRT)
	if err != nil {
		return nil, err
	}
	var rv []ChainResponse
	var mismatches *multierror.Error
	for _, pair := range pairs {
		a := arrivals.rows(pair.Source)
		b := responses.rows(pair.Sink)
		if len(a) != len(b) {
			mismatches = multierror.Append(mismatches, errors.WithStack(&chainerrors.ErrRowCountMismatch{
				Left:      fmt.Sprintf("task %d", pair.Source),
				LeftRows:  len(a),
				Right:     fmt.Sprintf("task %d", pair.Sink),
				RightRows: len(b),
			}))
			continue
		}
		if len(a) == 0 {
			continue
		}
		worst := b[0] - a[0]
		for k := 1; k < len(a); k++ {
			if d := b[k] - a[k]; d > worst {
				worst = d
			}
		}
		rv = append(rv, ChainResponse{ChainPair: pair, ResponseTime: worst})
	}
	return rv, mismatches.ErrorOrNil()
}

var ComparisonHeader = []string{"source", "sink", "response_time"}

func WriteComparison(w io.Writer, responses []ChainResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ComparisonHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, r := range responses {
		record := []string{
			strconv.Itoa(r.Source),
			strconv.Itoa(r.Sink),
			strconv.FormatFloat(r.ResponseTime, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}
