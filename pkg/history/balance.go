package history

import (
	"sort"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/selection"
)

// Balance is the total value of a set of notes and the most one
// transaction can spend from it.
type Balance struct {
	Value   uint64 `json:"value"`
	Maximum uint64 `json:"maximum"`
}

// ComputeBalance sums values and the largest MaxInputNotes of them. Sums
// saturate at MaxUint64.
func ComputeBalance(values []uint64) Balance {
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	var b Balance
	for i, v := range sorted {
		b.Value = addSaturating(b.Value, v)
		if i < selection.MaxInputNotes {
			b.Maximum = addSaturating(b.Maximum, v)
		}
	}
	return b
}

// BalanceOf classifies notes under ks and computes their balance. Every
// note must be owned by one of the keys.
func BalanceOf(ks *keys.KeySet, notes []note.Note) (Balance, error) {
	owned, err := note.Classify(ks, notes)
	if err != nil {
		return Balance{}, err
	}
	values := make([]uint64, len(owned))
	for i := range owned {
		values[i] = owned[i].Value
	}
	return ComputeBalance(values), nil
}

func addSaturating(a, b uint64) uint64 {
	if a > ^uint64(0)-b {
		return ^uint64(0)
	}
	return a + b
}
