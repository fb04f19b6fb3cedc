package collectionutils

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pair struct {
	key   string
	value int
}

func TestAssociate(t *testing.T) {
	m := Associate([]pair{{"a", 1}, {"b", 2}}, func(p pair) (string, int) { return p.key, p.value })

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy([]pair{{"a", 1}, {"b", 2}, {"a", 3}}, func(p pair) string { return p.key })

	assert.Equal(t, []pair{{"a", 1}, {"a", 3}}, groups["a"])
	assert.Equal(t, []pair{{"b", 2}}, groups["b"])
}

func TestGetOrDefault(t *testing.T) {
	m := map[int64]bool{1: true}

	assert.True(t, GetOrDefault(m, 1, false))
	assert.False(t, GetOrDefault(m, 2, false))
}

func TestKeys(t *testing.T) {
	keys := Keys(map[int]string{3: "c", 1: "a"})
	sort.Ints(keys)

	assert.Equal(t, []int{1, 3}, keys)
}
