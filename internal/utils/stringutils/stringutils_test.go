package stringutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain title", input: "How to train your dragon", want: "how-to-train-your-dragon"},
		{name: "punctuation removed", input: "It's done, finally!", want: "its-done-finally"},
		{name: "accents stripped", input: "Crème brûlée à la café", want: "creme-brulee-a-la-cafe"},
		{name: "repeated separators collapse", input: "  go --  is _ fun  ", want: "go-is-fun"},
		{name: "digits kept", input: "Top 10 Go tips", want: "top-10-go-tips"},
		{name: "nothing left", input: "?!#", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestInClause(t *testing.T) {
	placeholders, args := InClause(3, []int64{7, 8, 9})

	assert.Equal(t, "$3, $4, $5", placeholders)
	assert.Equal(t, []any{int64(7), int64(8), int64(9)}, args)
}

func TestInClause_Empty(t *testing.T) {
	placeholders, args := InClause(1, []string{})

	assert.Empty(t, placeholders)
	assert.Empty(t, args)
}
