// Package chainerrors contains the typed errors returned while synthesising, converting and analysing
// task chains. Callers look for these types with errors.As to decide whether a failure is local to one
// item of a batch (a line, a task set, a chain) or fatal to the whole run.
//
// If several items of a batch fail, the batch operation returns a multierror.Error from package
// github.com/hashicorp/go-multierror wrapping the individual errors.
package chainerrors

import (
	"fmt"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "period"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrParse is returned for a chain file line that could not be interpreted.
type ErrParse struct {
	Line    int    // 1-based line number
	Text    string // The offending line
	Message string
}

func (err *ErrParse) Error() string {
	return fmt.Sprintf("line %d %q: %s", err.Line, err.Text, err.Message)
}

// ErrPartitionInfeasible is returned when a sum cannot be split into the requested number of shares
// under the given constraints.
type ErrPartitionInfeasible struct {
	Shares  int
	Target  float64
	Message string
}

func (err *ErrPartitionInfeasible) Error() string {
	return fmt.Sprintf("cannot partition %v into %d shares: %s", err.Target, err.Shares, err.Message)
}

// ErrJobCountOutOfRange is returned when no task set with a job count inside the accepted window
// could be synthesised.
type ErrJobCountOutOfRange struct {
	JobCount int64
	Min      int64
	Max      int64
	Attempts int
}

func (err *ErrJobCountOutOfRange) Error() string {
	return fmt.Sprintf(
		"job count %d outside [%d, %d] after %d attempts", err.JobCount, err.Min, err.Max, err.Attempts,
	)
}

// ErrNonConvergence is returned when a fixed-point iteration did not settle within its budget.
type ErrNonConvergence struct {
	Chain      int
	Iterations int
	Last       float64
}

func (err *ErrNonConvergence) Error() string {
	return fmt.Sprintf(
		"fixed point for chain %d did not converge after %d iterations (last value %v)",
		err.Chain, err.Iterations, err.Last,
	)
}

// ErrRowCountMismatch is returned when two tables that should be compared row by row differ in length.
type ErrRowCountMismatch struct {
	Left      string
	LeftRows  int
	Right     string
	RightRows int
}

func (err *ErrRowCountMismatch) Error() string {
	return fmt.Sprintf("%s has %d rows but %s has %d rows", err.Left, err.LeftRows, err.Right, err.RightRows)
}

// ErrHyperperiod signals a violation of the data model: a period that does not divide the hyperperiod,
// or a hyperperiod that does not fit in an int64.
type ErrHyperperiod struct {
	Hyperperiod int64
	Period      int64
	Message     string
}

func (err *ErrHyperperiod) Error() string {
	return fmt.Sprintf("hyperperiod %d, period %d: %s", err.Hyperperiod, err.Period, err.Message)
}
