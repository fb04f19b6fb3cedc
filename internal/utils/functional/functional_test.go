package functional

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Map([]string{"a", "bb", "ccc"}, func(s string) int { return len(s) }))
}

func TestFilter(t *testing.T) {
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 }))
}

func TestDistinctBy(t *testing.T) {
	got := DistinctBy([]string{"Go", "rust", "go", "Rust", "zig"}, strings.ToLower)

	assert.Equal(t, []string{"Go", "rust", "zig"}, got)
}
