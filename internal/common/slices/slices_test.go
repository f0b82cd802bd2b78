package slices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	tests := map[string]struct {
		input    []int
		expected []string
	}{
		"values": {input: []int{1, 3, 5}, expected: []string{"1", "3", "5"}},
		"empty":  {input: []int{}, expected: []string{}},
		"nil":    {input: nil, expected: nil},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Map(tc.input, strconv.Itoa))
		})
	}
}

func TestUnique(t *testing.T) {
	tests := map[string]struct {
		input    []int
		expected []int
	}{
		"no duplicates": {input: []int{3, 1, 2}, expected: []int{3, 1, 2}},
		"keeps first":   {input: []int{4, 2, 4, 1, 2}, expected: []int{4, 2, 1}},
		"empty":         {input: []int{}, expected: []int{}},
		"nil":           {input: nil, expected: nil},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Unique(tc.input))
		})
	}
}
