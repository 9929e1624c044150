package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetKeysSorted(t *testing.T) {
	m := map[string]int{"b": 1, "c": 2, "a": 3}

	assert := assert.New(t)
	assert.Equal([]string{"a", "b", "c"}, GetKeys(m))
	assert.Empty(GetKeys(map[int]bool{}))
}

func TestCountSinglePass(t *testing.T) {
	counts := Count([]string{"C", "E", "C", "G", "C"})

	assert := assert.New(t)
	assert.Equal(map[string]int{"C": 3, "E": 1, "G": 1}, counts)
	assert.Empty(Count([]string(nil)))
}

func TestUniqueKeepsFirstOccurrence(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, Unique([]int{3, 1, 3, 2, 1}))
}

func TestSortedEqual(t *testing.T) {
	assert := assert.New(t)
	a := []string{"b", "a"}
	assert.True(SortedEqual(a, []string{"a", "b"}))
	assert.Equal([]string{"b", "a"}, a, "input must not be reordered")
	assert.False(SortedEqual([]string{"a"}, []string{"a", "b"}))
	assert.False(SortedEqual([]string{"a", "c"}, []string{"a", "b"}))
}
