// Package selection picks the notes that fund a transaction.
//
// At most MaxInputNotes notes may be spent by one transaction. When the
// pool is larger, the smallest-value-first lexicographic walk over 4-note
// combinations returns the first combination whose total covers the
// target. This keeps small notes moving and is deterministic for a given
// pool, but it is not a minimal-change search.
package selection

import (
	"errors"
	"math"
	"slices"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

// MaxInputNotes is the maximum number of inputs per transaction.
const MaxInputNotes = 4

var (
	ErrNotEnoughBalance = errors.New("selection: not enough balance")
	ErrNoteCombination  = errors.New("selection: no combination of notes covers the target")
)

// Candidate is an opened note that can be spent.
type Candidate struct {
	Note    note.Note
	Value   uint64
	Blinder crypto.Scalar
	Index   uint64
	Opening *merkle.Opening
}

// CandidateFromOwned adapts a classified note.
func CandidateFromOwned(o note.Owned) Candidate {
	return Candidate{Note: o.Note, Value: o.Value, Blinder: o.Blinder, Index: o.Index}
}

// Total sums candidate values, saturating at MaxUint64.
func Total(cs []Candidate) uint64 {
	var sum uint64
	for _, c := range cs {
		sum = addSat(sum, c.Value)
	}
	return sum
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// Select returns at most MaxInputNotes candidates whose sum covers target.
func Select(pool []Candidate, target uint64) ([]Candidate, error) {
	if Total(pool) < target {
		return nil, ErrNotEnoughBalance
	}
	picked := pick(pool, target)
	if len(picked) == 0 {
		return nil, ErrNoteCombination
	}
	return picked, nil
}

// Change is the amount selected beyond target, returned to the sender.
func Change(selected []Candidate, target uint64) uint64 {
	total := Total(selected)
	if total <= target {
		return 0
	}
	return total - target
}

func pick(pool []Candidate, target uint64) []Candidate {
	if len(pool) <= MaxInputNotes {
		return slices.Clone(pool)
	}
	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return pickLexicographic(sorted, target)
}

// pickLexicographic walks 4-index combinations of sorted in lexicographic
// order and returns the first one whose values sum to at least target.
func pickLexicographic(sorted []Candidate, target uint64) []Candidate {
	n := len(sorted)
	indices := [MaxInputNotes]int{0, 1, 2, 3}
	for {
		var sum uint64
		for _, i := range indices {
			sum = addSat(sum, sorted[i].Value)
		}
		if sum >= target {
			out := make([]Candidate, 0, MaxInputNotes)
			for _, i := range indices {
				out = append(out, sorted[i])
			}
			return out
		}

		i := MaxInputNotes - 1
		for indices[i] == i+n-MaxInputNotes {
			if i == 0 {
				return nil
			}
			i--
		}
		indices[i]++
		for j := i + 1; j < MaxInputNotes; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}
