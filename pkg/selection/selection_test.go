package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pool(values ...uint64) []Candidate {
	out := make([]Candidate, len(values))
	for i, v := range values {
		out[i] = Candidate{Value: v, Index: uint64(i)}
	}
	return out
}

func values(cs []Candidate) []uint64 {
	out := make([]uint64, len(cs))
	for i, c := range cs {
		out[i] = c.Value
	}
	return out
}

func TestPick(t *testing.T) {
	tests := []struct {
		name   string
		values []uint64
		target uint64
		count  int
	}{
		{"unreachable target", []uint64{2, 1, 4, 3, 5, 7, 6}, 100, 0},
		{"reachable with four", []uint64{2, 1, 4, 3, 5, 7, 6}, 20, 4},
		{"single note", []uint64{1}, 1, 1},
		{"two notes", []uint64{1, 2}, 2, 2},
		{"three notes", []uint64{1, 3, 2}, 2, 3},
		{"four notes", []uint64{4, 2, 1, 3}, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pick(pool(tt.values...), tt.target)
			assert.Len(t, got, tt.count)
		})
	}
}

func TestPick_FirstLexicographicCombination(t *testing.T) {
	got := pick(pool(2, 1, 4, 3, 5, 7, 6), 20)
	require.Len(t, got, 4)
	assert.Equal(t, uint64(20), Total(got))
	// Every combination starting with 1 sums to at most 19.
	assert.Equal(t, []uint64{2, 5, 6, 7}, values(got))
}

func TestPick_SmallTargetUsesSmallestNotes(t *testing.T) {
	got := pick(pool(50, 10, 40, 20, 30), 1)
	assert.Equal(t, []uint64{10, 20, 30, 40}, values(got))
}

func TestSelect_Errors(t *testing.T) {
	_, err := Select(pool(2, 1, 4, 3, 5, 7, 6), 100)
	assert.ErrorIs(t, err, ErrNotEnoughBalance)

	// Total covers the target but no four notes do.
	_, err = Select(pool(1, 1, 1, 1, 1, 1), 5)
	assert.ErrorIs(t, err, ErrNoteCombination)

	_, err = Select(nil, 0)
	assert.ErrorIs(t, err, ErrNoteCombination)

	_, err = Select(nil, 1)
	assert.ErrorIs(t, err, ErrNotEnoughBalance)
}

func TestSelect_CoversTarget(t *testing.T) {
	for target := uint64(1); target <= 22; target++ {
		got, err := Select(pool(2, 1, 4, 3, 5, 7, 6), target)
		require.NoError(t, err, "target %d", target)
		assert.LessOrEqual(t, len(got), MaxInputNotes)
		assert.GreaterOrEqual(t, Total(got), target)
	}
}

func TestChange(t *testing.T) {
	sel := pool(5, 7)
	assert.Equal(t, uint64(2), Change(sel, 10))
	assert.Equal(t, uint64(0), Change(sel, 12))
	assert.Equal(t, uint64(0), Change(sel, 20))
}

func TestTotal_Saturates(t *testing.T) {
	assert.Equal(t, uint64(1<<64-1), Total(pool(1<<63, 1<<63, 1)))
}
