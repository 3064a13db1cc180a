// Package merkle implements the arity-4 Poseidon tree that commits to every
// note, and the openings that prove a note's membership under a root.
package merkle

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
)

const (
	// Arity is the number of children per node.
	Arity = 4

	// Depth is the default tree height used by the note tree.
	Depth = 17
)

var ErrPositionOutOfRange = errors.New("merkle: position out of range")

// Tree is a sparse arity-4 tree. Missing nodes take the value of an empty
// subtree of their height.
type Tree struct {
	depth int
	nodes []map[uint64]fr.Element // nodes[0] are leaves
	empty []fr.Element
}

// NewTree returns an empty tree of the given depth.
func NewTree(depth int) *Tree {
	t := &Tree{
		depth: depth,
		nodes: make([]map[uint64]fr.Element, depth+1),
		empty: make([]fr.Element, depth+1),
	}
	for i := range t.nodes {
		t.nodes[i] = make(map[uint64]fr.Element)
	}
	for i := 1; i <= depth; i++ {
		var children [Arity]fr.Element
		for j := range children {
			children[j] = t.empty[i-1]
		}
		t.empty[i] = hashNode(children)
	}
	return t
}

func hashNode(children [Arity]fr.Element) fr.Element {
	return crypto.Poseidon(children[:]...)
}

// Capacity is the number of leaves the tree can hold.
func (t *Tree) Capacity() uint64 {
	c := uint64(1)
	for i := 0; i < t.depth; i++ {
		c *= Arity
	}
	return c
}

func (t *Tree) node(level int, index uint64) fr.Element {
	if v, ok := t.nodes[level][index]; ok {
		return v
	}
	return t.empty[level]
}

// Insert sets the leaf at pos and updates its ancestors.
func (t *Tree) Insert(pos uint64, leaf fr.Element) error {
	if pos >= t.Capacity() {
		return fmt.Errorf("%w: %d", ErrPositionOutOfRange, pos)
	}
	t.nodes[0][pos] = leaf
	index := pos
	for level := 1; level <= t.depth; level++ {
		index /= Arity
		var children [Arity]fr.Element
		for j := range children {
			children[j] = t.node(level-1, index*Arity+uint64(j))
		}
		t.nodes[level][index] = hashNode(children)
	}
	return nil
}

// Root returns the current root.
func (t *Tree) Root() fr.Element {
	return t.node(t.depth, 0)
}

// Opening returns the membership proof of the leaf at pos.
func (t *Tree) Opening(pos uint64) (Opening, error) {
	if pos >= t.Capacity() {
		return Opening{}, fmt.Errorf("%w: %d", ErrPositionOutOfRange, pos)
	}
	o := Opening{
		Root:      t.Root(),
		Branch:    make([][Arity]fr.Element, t.depth),
		Positions: make([]uint8, t.depth),
	}
	index := pos
	for level := 0; level < t.depth; level++ {
		parent := index / Arity
		for j := 0; j < Arity; j++ {
			o.Branch[level][j] = t.node(level, parent*Arity+uint64(j))
		}
		o.Positions[level] = uint8(index % Arity)
		index = parent
	}
	return o, nil
}
