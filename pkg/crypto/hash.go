// Package crypto holds the primitives the Phoenix wallet core is built on:
// JubJub scalars and points, the hash functions used for notes, nullifiers
// and the transaction-binding hash, Schnorr signatures over JubJub, BLS stake
// keys and the deterministic random stream used for key derivation.
//
// Curve and field arithmetic come from gnark-crypto (BLS12-381 and its
// embedded twisted Edwards curve). This package only decides which values are
// hashed, signed and combined.
package crypto

import (
	"encoding/binary"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
	blake2b "github.com/minio/blake2b-simd"
)

// Personalization strings for BLAKE2b (all 16 bytes).
const (
	TxHashPersonalization        = "PhoenixTxHash___"
	GeneratorNUMSPersonalization = "PhoenixNUMS_Gen_"
)

// blake2bNew256 creates a BLAKE2b-256 hash with the given personalization.
// The personalization is a separate parameter of the function, not a key.
func blake2bNew256(personalization string) (hash.Hash, error) {
	config := &blake2b.Config{
		Size:   32,
		Person: []byte(personalization),
	}
	return blake2b.New(config)
}

// Blake2b256 hashes the concatenation of parts under a personalization.
func Blake2b256(personalization string, parts ...[]byte) [32]byte {
	h, err := blake2bNew256(personalization)
	if err != nil {
		// Only reachable with a personalization longer than 16 bytes.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Poseidon hashes field elements with the Poseidon2 Merkle-Damgard
// construction. The number of elements is absorbed first so inputs of
// different length never collide.
func Poseidon(elems ...fr.Element) fr.Element {
	h := poseidon2.NewMerkleDamgardHasher()
	var n fr.Element
	n.SetUint64(uint64(len(elems)))
	b := n.Bytes()
	h.Write(b[:])
	for i := range elems {
		b = elems[i].Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// HashToScalar reduces a Poseidon digest of elems into the JubJub scalar field.
func HashToScalar(elems ...fr.Element) Scalar {
	d := Poseidon(elems...)
	return ScalarFromElement(d)
}

// PRF derives a 32-byte key from a shared point with MiMC, keyed by a
// domain tag. Used to derive note encryption keys from the DH secret.
func PRF(tag uint64, p Point) [32]byte {
	h := mimc.NewMiMC()
	var t fr.Element
	t.SetUint64(tag)
	for _, e := range []fr.Element{t, p.X(), p.Y()} {
		b := e.Bytes()
		h.Write(b[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// BytesToElements packs arbitrary bytes into field elements, 31 bytes per
// element, so every chunk is canonical. The byte length is prepended.
func BytesToElements(data []byte) []fr.Element {
	out := make([]fr.Element, 0, 1+(len(data)+30)/31)
	var l fr.Element
	l.SetUint64(uint64(len(data)))
	out = append(out, l)
	for start := 0; start < len(data); start += 31 {
		end := min(start+31, len(data))
		var e fr.Element
		e.SetBytes(data[start:end])
		out = append(out, e)
	}
	return out
}

// ElementFromUint64 lifts a u64 into the BLS scalar field.
func ElementFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// ElementFromDigest reduces a 32-byte digest into the BLS scalar field.
func ElementFromDigest(d [32]byte) fr.Element {
	var e fr.Element
	e.SetBytes(d[:])
	return e
}

// ElementFromBytes decodes a canonical big-endian field element.
func ElementFromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != fr.Bytes {
		return e, ErrInvalidEncoding
	}
	if err := e.SetBytesCanonical(b); err != nil {
		return e, ErrInvalidEncoding
	}
	return e, nil
}

// putUint64 appends v in little-endian order.
func putUint64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}
