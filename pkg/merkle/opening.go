package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
)

var ErrInvalidOpening = errors.New("merkle: invalid opening encoding")

// Opening proves that a leaf sits under Root. Branch[i] holds the Arity
// siblings at level i (leaves first) and Positions[i] the index of the
// path node among them.
type Opening struct {
	Root      fr.Element
	Branch    [][Arity]fr.Element
	Positions []uint8
}

// Depth returns the number of levels in the path.
func (o Opening) Depth() int {
	return len(o.Branch)
}

// Verify recomputes the root from leaf.
func (o Opening) Verify(leaf fr.Element) bool {
	if len(o.Branch) != len(o.Positions) {
		return false
	}
	current := leaf
	for i, level := range o.Branch {
		p := o.Positions[i]
		if int(p) >= Arity || !level[p].Equal(&current) {
			return false
		}
		current = hashNode(level)
	}
	return current.Equal(&o.Root)
}

// Size is the encoded size of an opening of the given depth.
func Size(depth int) int {
	return fr.Bytes + 4 + depth*(Arity*fr.Bytes+1)
}

// Bytes encodes the opening as root ‖ LE32(depth) ‖ levels, each level
// being its Arity siblings followed by the position byte.
func (o Opening) Bytes() []byte {
	buf := make([]byte, 0, Size(o.Depth()))
	root := o.Root.Bytes()
	buf = append(buf, root[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(o.Depth()))
	for i, level := range o.Branch {
		for j := range level {
			b := level[j].Bytes()
			buf = append(buf, b[:]...)
		}
		buf = append(buf, o.Positions[i])
	}
	return buf
}

// FromBytes decodes an opening and returns the bytes consumed.
func FromBytes(b []byte) (Opening, int, error) {
	if len(b) < fr.Bytes+4 {
		return Opening{}, 0, ErrInvalidOpening
	}
	var o Opening
	var err error
	if o.Root, err = crypto.ElementFromBytes(b[:fr.Bytes]); err != nil {
		return Opening{}, 0, fmt.Errorf("%w: root", ErrInvalidOpening)
	}
	depth := int(binary.LittleEndian.Uint32(b[fr.Bytes:]))
	if depth > 64 || len(b) < Size(depth) {
		return Opening{}, 0, fmt.Errorf("%w: depth %d", ErrInvalidOpening, depth)
	}
	o.Branch = make([][Arity]fr.Element, depth)
	o.Positions = make([]uint8, depth)
	off := fr.Bytes + 4
	for i := 0; i < depth; i++ {
		for j := 0; j < Arity; j++ {
			if o.Branch[i][j], err = crypto.ElementFromBytes(b[off : off+fr.Bytes]); err != nil {
				return Opening{}, 0, fmt.Errorf("%w: level %d", ErrInvalidOpening, i)
			}
			off += fr.Bytes
		}
		if b[off] >= Arity {
			return Opening{}, 0, fmt.Errorf("%w: position %d", ErrInvalidOpening, b[off])
		}
		o.Positions[i] = b[off]
		off++
	}
	return o, off, nil
}
