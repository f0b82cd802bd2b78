package chainfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chaincontext"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/chainerrors"
	"github.com/RaduLucianR/sag-ros-experiments/internal/model"
)

const twoSets = `100	10	100	1	1
100	20	100	2	1
200	30	200	3	2
200	40	200	4	2
-
50	1	50	1	1
50	2	50	2	1
150	3	150	3	2
150	4	150	4	2
-
`

func TestParse_TwoTaskSets(t *testing.T) {
	result, err := Parse(chaincontext.Background(), strings.NewReader(twoSets))
	require.NoError(t, err)
	require.Len(t, result.TaskSets, 2)
	assert.Empty(t, result.Skipped)
	assert.NoError(t, result.SkippedErr())

	assert.Equal(t, model.NewTaskSet(
		model.MustNewChain(100, 10, 20),
		model.MustNewChain(200, 30, 40),
	), result.TaskSets[0])
	assert.Equal(t, model.NewTaskSet(
		model.MustNewChain(50, 1, 2),
		model.MustNewChain(150, 3, 4),
	), result.TaskSets[1])
}

func TestParse_VariableLengths(t *testing.T) {
	input := "10 1 10 1 1\n10 1 10 2 1\n10 1 10 3 1\n20 5 20 4 2\n-\n"
	result, err := Parse(chaincontext.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.TaskSets, 1)
	assert.Equal(t, []int{3, 1}, result.TaskSets[0].ChainLengths())
}

func TestParse_PeriodFromFirstLineOfChain(t *testing.T) {
	input := "10 1 10 1 7\n99 2 99 2 7\n-\n"
	result, err := Parse(chaincontext.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.TaskSets, 1)
	assert.Equal(t, model.NewTaskSet(model.MustNewChain(10, 1, 2)), result.TaskSets[0])
}

func TestParse_Tolerance(t *testing.T) {
	input := strings.Join([]string{
		"",
		"100\t10\t100\t1\t1",
		"garbage",
		"100\t20\t100",
		"100\tx\t100\t2\t1",
		"   ",
		"100\t30\t100\t3\t1",
		"-",
		"-",
		"40\t4\t40\t1\t1",
	}, "\n")
	result, err := Parse(chaincontext.Background(), strings.NewReader(input))
	require.NoError(t, err)

	// Consecutive separators do not produce empty sets and a missing final separator still closes the set.
	require.Len(t, result.TaskSets, 2)
	assert.Equal(t, model.NewTaskSet(model.MustNewChain(100, 10, 30)), result.TaskSets[0])
	assert.Equal(t, model.NewTaskSet(model.MustNewChain(40, 4)), result.TaskSets[1])

	require.Len(t, result.Skipped, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{result.Skipped[0].Line, result.Skipped[1].Line, result.Skipped[2].Line})
	var parseErr *chainerrors.ErrParse
	assert.True(t, errors.As(result.SkippedErr(), &parseErr))
}

func TestParse_InvalidChainIsSkipped(t *testing.T) {
	input := "0 1 0 1 1\n0 1 0 2 1\n10 1 10 3 2\n-\n"
	result, err := Parse(chaincontext.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.TaskSets, 1)
	assert.Equal(t, model.NewTaskSet(model.MustNewChain(10, 1)), result.TaskSets[0])
	assert.Len(t, result.Skipped, 1)
}

func TestParseFixed(t *testing.T) {
	input := "10 1 10 1 1\n10 1 10 2 1\n-\n10 1 10 1 1\n20 1 20 2 2\n-\n"
	result, err := ParseFixed(chaincontext.Background(), strings.NewReader(input), 2)
	require.NoError(t, err)
	require.Len(t, result.TaskSets, 1)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []int{2}, result.TaskSets[0].ChainLengths())

	_, err = ParseFixed(chaincontext.Background(), strings.NewReader(input), 0)
	var invalid *chainerrors.ErrInvalidArgument
	assert.True(t, errors.As(err, &invalid))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []*model.TaskSet{
		model.NewTaskSet(model.MustNewChain(100, 10, 20), model.MustNewChain(200, 30)),
	})
	require.NoError(t, err)
	assert.Equal(t, "100\t10\t100\t1\t1\n100\t20\t100\t2\t1\n200\t30\t200\t3\t2\n-\n", buf.String())
}

func TestWriteParseRoundTrip(t *testing.T) {
	sets := []*model.TaskSet{
		model.NewTaskSet(
			model.MustNewChain(50000, 3119, 3123),
			model.MustNewChain(50000, 5928, 5000, 6986),
			model.MustNewChain(200000, 22069),
		),
		model.NewTaskSet(model.MustNewChain(10, 1, 1, 1, 1)),
	}
	path := filepath.Join(t.TempDir(), "tasksets.txt")
	require.NoError(t, WriteFile(path, sets))

	result, err := ParseFile(chaincontext.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, sets, result.TaskSets)
	assert.Empty(t, result.Skipped)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(chaincontext.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
