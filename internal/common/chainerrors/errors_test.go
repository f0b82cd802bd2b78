package chainerrors

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected string
	}{
		"invalid argument": {
			err:      &ErrInvalidArgument{Name: "period", Value: -1},
			expected: `value -1 is invalid for field "period"`,
		},
		"invalid argument with message": {
			err:      &ErrInvalidArgument{Name: "period", Value: 0, Message: "must be positive"},
			expected: `value 0 is invalid for field "period"; must be positive`,
		},
		"parse": {
			err:      &ErrParse{Line: 3, Text: "100\t2", Message: "expected 5 fields"},
			expected: `line 3 "100\t2": expected 5 fields`,
		},
		"row count mismatch": {
			err:      &ErrRowCountMismatch{Left: "task 1", LeftRows: 2, Right: "task 4", RightRows: 3},
			expected: "task 1 has 2 rows but task 4 has 3 rows",
		},
		"job count": {
			err:      &ErrJobCountOutOfRange{JobCount: 10, Min: 500, Max: 1000, Attempts: 4},
			expected: "job count 10 outside [500, 1000] after 4 attempts",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestErrorsAs(t *testing.T) {
	var result *multierror.Error
	result = multierror.Append(result, errors.WithMessage(&ErrNonConvergence{Chain: 2, Iterations: 10}, "task set 1"))
	result = multierror.Append(result, errors.WithStack(&ErrParse{Line: 1}))

	var nonConvergence *ErrNonConvergence
	assert.True(t, errors.As(result.Errors[0], &nonConvergence))
	assert.Equal(t, 2, nonConvergence.Chain)

	var parseErr *ErrParse
	assert.True(t, errors.As(result.Errors[1], &parseErr))
	assert.False(t, errors.As(result.Errors[1], &nonConvergence))
}
