// Package keys derives the Phoenix key hierarchy from a wallet seed.
//
// Every key is a pure function of (seed, index). A spend key is drawn from
// a ChaCha20 stream seeded with SHA-256(seed ‖ LE64(index) ‖ "SSK"); stake
// keys use the tag "SK". View and public keys follow from the spend key.
package keys

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
)

const (
	// MaxKey is the number of addresses derived per seed. Valid indices are
	// 0..MaxKey-1.
	MaxKey = 3

	// SeedSize is the size of a wallet seed in bytes.
	SeedSize = 64

	// PublicKeySize is the encoded size of a PublicKey, ViewKey and
	// StealthAddress.
	PublicKeySize = 2 * crypto.PointSize

	spendTag = "SSK"
	stakeTag = "SK"
)

var (
	ErrInvalidSeed     = errors.New("keys: seed must be 64 bytes")
	ErrIndexOutOfRange = errors.New("keys: key index out of range")
	ErrInvalidKey      = errors.New("keys: invalid key encoding")
)

// Seed is the 64-byte wallet secret every key is derived from.
type Seed [SeedSize]byte

// SeedFromBytes validates the seed length.
func SeedFromBytes(b []byte) (Seed, error) {
	var s Seed
	if len(b) != SeedSize {
		return s, ErrInvalidSeed
	}
	copy(s[:], b)
	return s, nil
}

// PassphraseSeed derives a seed as SHA-512(passphrase ‖ "SEED").
func PassphraseSeed(passphrase string) Seed {
	return Seed(sha512.Sum512([]byte(passphrase + "SEED")))
}

func checkIndex(index uint64) error {
	if index >= MaxKey {
		return fmt.Errorf("%w: %d (max %d)", ErrIndexOutOfRange, index, MaxKey-1)
	}
	return nil
}

// SecretKey is the spend key pair (a, b).
type SecretKey struct {
	A crypto.Scalar
	B crypto.Scalar
}

// DeriveSecretKey derives the spend key at index.
func DeriveSecretKey(seed Seed, index uint64) (SecretKey, error) {
	if err := checkIndex(index); err != nil {
		return SecretKey{}, err
	}
	rng := crypto.DeriveRNG(seed[:], index, spendTag)
	return SecretKey{A: rng.Scalar(), B: rng.Scalar()}, nil
}

// DeriveViewKey derives the view key at index.
func DeriveViewKey(seed Seed, index uint64) (ViewKey, error) {
	sk, err := DeriveSecretKey(seed, index)
	if err != nil {
		return ViewKey{}, err
	}
	return sk.ViewKey(), nil
}

// DerivePublicKey derives the public key at index.
func DerivePublicKey(seed Seed, index uint64) (PublicKey, error) {
	sk, err := DeriveSecretKey(seed, index)
	if err != nil {
		return PublicKey{}, err
	}
	return sk.PublicKey(), nil
}

// DeriveStakeSecretKey derives the BLS stake key at index.
func DeriveStakeSecretKey(seed Seed, index uint64) (crypto.StakeSecretKey, error) {
	if err := checkIndex(index); err != nil {
		return crypto.StakeSecretKey{}, err
	}
	return crypto.NewStakeSecretKey(crypto.DeriveRNG(seed[:], index, stakeTag)), nil
}

// ViewKey returns (a, b·G).
func (sk SecretKey) ViewKey() ViewKey {
	return ViewKey{A: sk.A, B: crypto.MulBase(sk.B)}
}

// PublicKey returns (a·G, b·G).
func (sk SecretKey) PublicKey() PublicKey {
	return PublicKey{A: crypto.MulBase(sk.A), B: crypto.MulBase(sk.B)}
}

// NoteSecret returns sk_r = H(a·R) + b, the one-time secret of a note sent
// to the stealth address. sk_r·G equals the address's pkR.
func (sk SecretKey) NoteSecret(sa StealthAddress) crypto.Scalar {
	return stealthHash(sa.R.Mul(sk.A)).Add(sk.B)
}

// ViewKey can recognize notes and decrypt them, but not spend them.
type ViewKey struct {
	A crypto.Scalar
	B crypto.Point
}

// Owns reports whether the stealth address was generated for this key.
func (vk ViewKey) Owns(sa StealthAddress) bool {
	expected := crypto.MulBase(stealthHash(sa.R.Mul(vk.A))).Add(vk.B)
	return expected.Equal(sa.PkR)
}

// SharedSecret returns a·R, equal to the sender's r·A.
func (vk ViewKey) SharedSecret(sa StealthAddress) crypto.Point {
	return sa.R.Mul(vk.A)
}

// PublicKey returns the public key matching this view key.
func (vk ViewKey) PublicKey() PublicKey {
	return PublicKey{A: crypto.MulBase(vk.A), B: vk.B}
}

// Bytes encodes the view key as a ‖ B.
func (vk ViewKey) Bytes() [PublicKeySize]byte {
	var out [PublicKeySize]byte
	copy(out[:crypto.ScalarSize], vk.A[:])
	b := vk.B.Bytes()
	copy(out[crypto.ScalarSize:], b[:])
	return out
}

// ViewKeyFromBytes decodes a ‖ B.
func ViewKeyFromBytes(b []byte) (ViewKey, error) {
	if len(b) != PublicKeySize {
		return ViewKey{}, ErrInvalidKey
	}
	a, err := crypto.ScalarFromBytes(b[:crypto.ScalarSize])
	if err != nil {
		return ViewKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	p, err := crypto.PointFromBytes(b[crypto.ScalarSize:])
	if err != nil {
		return ViewKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ViewKey{A: a, B: p}, nil
}

// PublicKey is the address notes are sent to.
type PublicKey struct {
	A crypto.Point
	B crypto.Point
}

// StealthAddress derives a one-time address for this key with randomness r.
func (pk PublicKey) StealthAddress(r crypto.Scalar) StealthAddress {
	return StealthAddress{
		R:   crypto.MulBase(r),
		PkR: crypto.MulBase(stealthHash(pk.A.Mul(r))).Add(pk.B),
	}
}

// SharedSecret returns r·A, the sender side of the note DH.
func (pk PublicKey) SharedSecret(r crypto.Scalar) crypto.Point {
	return pk.A.Mul(r)
}

func (pk PublicKey) Equal(o PublicKey) bool {
	return pk.A.Equal(o.A) && pk.B.Equal(o.B)
}

// Bytes encodes the key as A ‖ B.
func (pk PublicKey) Bytes() [PublicKeySize]byte {
	return encodePair(pk.A, pk.B)
}

// String returns the base58 address.
func (pk PublicKey) String() string {
	b := pk.Bytes()
	return base58.Encode(b[:])
}

// PublicKeyFromBytes decodes A ‖ B.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	a, bb, err := decodePair(b)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{A: a, B: bb}, nil
}

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	b := base58.Decode(s)
	if len(b) == 0 {
		return PublicKey{}, fmt.Errorf("%w: not base58", ErrInvalidKey)
	}
	return PublicKeyFromBytes(b)
}

// StealthAddress is the one-time destination of a note.
type StealthAddress struct {
	R   crypto.Point
	PkR crypto.Point
}

func (sa StealthAddress) Equal(o StealthAddress) bool {
	return sa.R.Equal(o.R) && sa.PkR.Equal(o.PkR)
}

// Bytes encodes the address as R ‖ pkR.
func (sa StealthAddress) Bytes() [PublicKeySize]byte {
	return encodePair(sa.R, sa.PkR)
}

// StealthAddressFromBytes decodes R ‖ pkR.
func StealthAddressFromBytes(b []byte) (StealthAddress, error) {
	r, pkr, err := decodePair(b)
	if err != nil {
		return StealthAddress{}, err
	}
	return StealthAddress{R: r, PkR: pkr}, nil
}

func stealthHash(p crypto.Point) crypto.Scalar {
	return crypto.HashToScalar(p.X(), p.Y())
}

func encodePair(a, b crypto.Point) [PublicKeySize]byte {
	var out [PublicKeySize]byte
	ab := a.Bytes()
	bb := b.Bytes()
	copy(out[:crypto.PointSize], ab[:])
	copy(out[crypto.PointSize:], bb[:])
	return out
}

func decodePair(b []byte) (crypto.Point, crypto.Point, error) {
	if len(b) != PublicKeySize {
		return crypto.Point{}, crypto.Point{}, ErrInvalidKey
	}
	a, err := crypto.PointFromBytes(b[:crypto.PointSize])
	if err != nil {
		return crypto.Point{}, crypto.Point{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	bb, err := crypto.PointFromBytes(b[crypto.PointSize:])
	if err != nil {
		return crypto.Point{}, crypto.Point{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return a, bb, nil
}
