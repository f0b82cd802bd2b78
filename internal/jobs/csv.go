package jobs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/util"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

var (
	JobsHeader       = []string{"Task ID", "Job ID", "Arrival min", "Arrival max", "Cost min", "Cost max", "Deadline", "Priority"}
	PrecedenceHeader = []string{"PredTaskID", "PredJobID", "SuccTaskID", "SuccJobID"}
)

// Column positions of the job CSV.
const (
	ColumnTaskId = iota
	ColumnJobId
	ColumnArrivalMin
	ColumnArrivalMax
	ColumnCostMin
	ColumnCostMax
	ColumnDeadline
	ColumnPriority
)

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func WriteJobs(w io.Writer, jobs []model.Job) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(JobsHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, j := range jobs {
		record := []string{
			strconv.Itoa(j.TaskId),
			strconv.Itoa(j.JobId),
			itoa(j.ArrivalMin),
			itoa(j.ArrivalMax),
			itoa(j.CostMin),
			itoa(j.CostMax),
			itoa(j.Deadline),
			strconv.Itoa(j.Priority),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func WritePrecedence(w io.Writer, edges []model.PrecedenceEdge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PrecedenceHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, e := range edges {
		record := []string{
			strconv.Itoa(e.PredTaskId),
			strconv.Itoa(e.PredJobId),
			strconv.Itoa(e.SuccTaskId),
			strconv.Itoa(e.SuccJobId),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// ReadJobs reads a job CSV written by WriteJobs or by any tool using the same header.
func ReadJobs(r io.Reader) ([]model.Job, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(JobsHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading job header")
	}
	if !slices.Equal(header, JobsHeader) {
		return nil, errors.Errorf("unexpected job header %v", header)
	}
	var rv []model.Job
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		values := make([]int64, len(record))
		for i, field := range record {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return nil, errors.Errorf("line %d: column %q: %q is not an integer", line, JobsHeader[i], field)
			}
			values[i] = v
		}
		rv = append(rv, model.Job{
			TaskId:     int(values[ColumnTaskId]),
			JobId:      int(values[ColumnJobId]),
			ArrivalMin: values[ColumnArrivalMin],
			ArrivalMax: values[ColumnArrivalMax],
			CostMin:    values[ColumnCostMin],
			CostMax:    values[ColumnCostMax],
			Deadline:   values[ColumnDeadline],
			Priority:   int(values[ColumnPriority]),
		})
	}
	return rv, nil
}

// ReadJobsFile is ReadJobs on the file at path.
func ReadJobsFile(path string) ([]model.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer util.CloseResource(path, f)
	rv, err := ReadJobs(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", path)
	}
	return rv, nil
}

// TaskSetFileNames returns the job and precedence file names used for the task set with the given id.
func TaskSetFileNames(id string) (string, string) {
	return fmt.Sprintf("task_set_%s.csv", id), fmt.Sprintf("pred_%s.csv", id)
}

// WriteTaskSetFiles writes task_set_<id>.csv and pred_<id>.csv into dir and returns their paths.
func WriteTaskSetFiles(dir, id string, js *model.JobSet) (string, string, error) {
	jobsName, predName := TaskSetFileNames(id)
	jobsPath := filepath.Join(dir, jobsName)
	predPath := filepath.Join(dir, predName)
	if err := writeFile(jobsPath, func(w io.Writer) error { return WriteJobs(w, js.Jobs) }); err != nil {
		return "", "", err
	}
	if err := writeFile(predPath, func(w io.Writer) error { return WritePrecedence(w, js.Edges) }); err != nil {
		return "", "", err
	}
	return jobsPath, predPath, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = errors.WithStack(closeErr)
		}
	}()
	if err := write(f); err != nil {
		return errors.WithMessagef(err, "writing %s", path)
	}
	return nil
}
