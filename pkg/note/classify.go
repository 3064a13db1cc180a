package note

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
)

// Owned is a note opened under one of the wallet's keys.
type Owned struct {
	Note      Note
	Index     uint64
	Value     uint64
	Blinder   crypto.Scalar
	Nullifier fr.Element
}

// Leaf is a tree leaf as returned by a node: a positioned note and the
// height of the block that created it.
type Leaf struct {
	BlockHeight uint64
	Note        Note
}

// ScanResult collects the leaves a wallet owns.
type ScanResult struct {
	Notes        []Note
	Nullifiers   []fr.Element
	BlockHeights []uint64
	PublicKeys   []keys.PublicKey
	LastPos      uint64
}

type hashedNote struct {
	hash [fr.Bytes]byte
	note Note
}

// Sanitize sorts notes by content hash and drops exact duplicates, so the
// same list in any order always yields the same result.
func Sanitize(notes []Note) []Note {
	hashed := make([]hashedNote, len(notes))
	for i, n := range notes {
		h := n.Hash()
		hashed[i] = hashedNote{hash: h.Bytes(), note: n}
	}
	slices.SortStableFunc(hashed, func(a, b hashedNote) int {
		return bytes.Compare(a.hash[:], b.hash[:])
	})
	out := make([]Note, 0, len(hashed))
	for i, h := range hashed {
		if i > 0 && h.hash == hashed[i-1].hash {
			continue
		}
		out = append(out, h.note)
	}
	return out
}

// Merge concatenates note lists and sanitizes the result.
func Merge(lists ...[]Note) []Note {
	var all []Note
	for _, l := range lists {
		all = append(all, l...)
	}
	return Sanitize(all)
}

// Filter drops every note whose flag is set and sanitizes the rest. Both
// slices must have the same length.
func Filter(notes []Note, remove []bool) ([]Note, error) {
	if len(notes) != len(remove) {
		return nil, fmt.Errorf("note: %d notes but %d flags", len(notes), len(remove))
	}
	kept := make([]Note, 0, len(notes))
	for i, n := range notes {
		if !remove[i] {
			kept = append(kept, n)
		}
	}
	return Sanitize(kept), nil
}

// OpenOwned opens a note under the first key index that owns it.
func OpenOwned(ks *keys.KeySet, n Note) (Owned, error) {
	idx, ok := ks.Owner(n.StealthAddress)
	if !ok {
		return Owned{}, ErrNotOwned
	}
	vk, err := ks.ViewKey(idx)
	if err != nil {
		return Owned{}, err
	}
	value, blinder, err := n.Open(&vk)
	if err != nil {
		return Owned{}, err
	}
	sk, err := ks.SecretKey(idx)
	if err != nil {
		return Owned{}, err
	}
	return Owned{
		Note:      n,
		Index:     idx,
		Value:     value,
		Blinder:   blinder,
		Nullifier: n.Nullifier(sk),
	}, nil
}

// Classify sanitizes notes and opens each one. Every note must be owned by
// some key index; the first failure aborts the whole call.
func Classify(ks *keys.KeySet, notes []Note) ([]Owned, error) {
	clean := Sanitize(notes)
	out := make([]Owned, 0, len(clean))
	for _, n := range clean {
		o, err := OpenOwned(ks, n)
		if err != nil {
			return nil, fmt.Errorf("note %s: %w", n.HashHex(), err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Nullifiers returns the nullifier of each note, in input order.
func Nullifiers(ks *keys.KeySet, notes []Note) ([]fr.Element, error) {
	out := make([]fr.Element, 0, len(notes))
	for i, n := range notes {
		idx, ok := ks.Owner(n.StealthAddress)
		if !ok {
			return nil, fmt.Errorf("note %d: %w", i, ErrNotOwned)
		}
		sk, err := ks.SecretKey(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, n.Nullifier(sk))
	}
	return out, nil
}

// NullifierSet indexes nullifiers for membership tests.
type NullifierSet map[fr.Element]struct{}

// NewNullifierSet builds a set from a list.
func NewNullifierSet(nullifiers []fr.Element) NullifierSet {
	s := make(NullifierSet, len(nullifiers))
	for _, n := range nullifiers {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether n is in the set.
func (s NullifierSet) Contains(n fr.Element) bool {
	_, ok := s[n]
	return ok
}

// Partition splits owned notes into unspent and spent, a note being spent
// iff its nullifier appears in existing.
func Partition(owned []Owned, existing []fr.Element) (unspent, spent []Owned) {
	set := NewNullifierSet(existing)
	for _, o := range owned {
		if set.Contains(o.Nullifier) {
			spent = append(spent, o)
		} else {
			unspent = append(unspent, o)
		}
	}
	return unspent, spent
}

// ScanLeaves keeps the leaves owned by any key index, the first owning
// index winning. Unowned leaves are skipped. LastPos is the highest position
// among all leaves, owned or not.
func ScanLeaves(ks *keys.KeySet, leaves []Leaf) ScanResult {
	var res ScanResult
	for _, l := range leaves {
		res.LastPos = max(res.LastPos, l.Note.Pos)
		idx, ok := ks.Owner(l.Note.StealthAddress)
		if !ok {
			continue
		}
		sk, err := ks.SecretKey(idx)
		if err != nil {
			continue
		}
		pk, _ := ks.PublicKey(idx)
		res.Notes = append(res.Notes, l.Note)
		res.Nullifiers = append(res.Nullifiers, l.Note.Nullifier(sk))
		res.BlockHeights = append(res.BlockHeights, l.BlockHeight)
		res.PublicKeys = append(res.PublicKeys, pk)
	}
	return res
}
