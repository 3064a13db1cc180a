package crypto

import (
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/chacha20"
)

// RNGSeedSize is the size of the seed keying an RNG stream.
const RNGSeedSize = 32

// RNG is a deterministic ChaCha20 keystream. Two RNGs built from the same
// seed yield the same sequence, which is what makes key derivation and
// transaction assembly reproducible.
type RNG struct {
	c *chacha20.Cipher
}

var _ io.Reader = (*RNG)(nil)

// NewRNG keys a stream with seed and a zero nonce.
func NewRNG(seed [RNGSeedSize]byte) *RNG {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed above.
		panic(err)
	}
	return &RNG{c: c}
}

// DeriveRNG seeds a stream with SHA-256(seed ‖ LE64(index) ‖ tag).
func DeriveRNG(seed []byte, index uint64, tag string) *RNG {
	h := sha256.New()
	h.Write(seed)
	h.Write(putUint64(nil, index))
	h.Write([]byte(tag))
	var s [RNGSeedSize]byte
	copy(s[:], h.Sum(nil))
	return NewRNG(s)
}

// Read fills p with keystream bytes. It never fails.
func (r *RNG) Read(p []byte) (int, error) {
	clear(p)
	r.c.XORKeyStream(p, p)
	return len(p), nil
}

// Scalar draws a uniformly distributed JubJub scalar.
func (r *RNG) Scalar() Scalar {
	var b [64]byte
	r.Read(b[:])
	return ScalarFromWide(b)
}

// Element draws a uniformly distributed BLS scalar.
func (r *RNG) Element() fr.Element {
	var b [64]byte
	r.Read(b[:])
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(b[:]))
	return e
}
