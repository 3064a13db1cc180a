// Package note implements Phoenix notes: the value-carrying outputs of a
// shielded transaction, how a wallet recognizes and opens them, and the
// bulk operations (sanitize, classify, partition) run over note lists.
package note

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
)

// Type distinguishes notes with a public value from notes with an
// encrypted one.
type Type uint8

const (
	Transparent Type = 0
	Obfuscated  Type = 1
)

func (t Type) String() string {
	switch t {
	case Transparent:
		return "transparent"
	case Obfuscated:
		return "obfuscated"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

const (
	// PlainSize is the size of value ‖ blinder.
	PlainSize = 8 + crypto.ScalarSize

	// EncryptedDataSize is the size of the sealed value ‖ blinder.
	EncryptedDataSize = PlainSize + chacha20poly1305.Overhead

	// Size is the encoded size of a note.
	Size = 1 + crypto.PointSize + fr.Bytes + keys.PublicKeySize + 8 + EncryptedDataSize

	// UnsetPos marks a note that has not been inserted in the tree yet.
	UnsetPos = math.MaxUint64

	encryptionKeyTag = 1
)

var (
	ErrNotOwned           = errors.New("note: not owned by view key")
	ErrViewKeyRequired    = errors.New("note: view key required for obfuscated note")
	ErrDecryption         = errors.New("note: decryption failed")
	ErrCommitmentMismatch = errors.New("note: value commitment mismatch")
	ErrInvalidNote        = errors.New("note: invalid encoding")
)

// Note is a commitment to a value locked to a stealth address.
type Note struct {
	Type            Type
	ValueCommitment crypto.Point
	Nonce           fr.Element
	StealthAddress  keys.StealthAddress
	Pos             uint64
	EncryptedData   [EncryptedDataSize]byte
}

// Commitment returns value·G + blinder·G_NUMS.
func Commitment(value uint64, blinder crypto.Scalar) crypto.Point {
	return crypto.MulBase(crypto.ScalarFromUint64(value)).
		Add(crypto.GeneratorNUMS().Mul(blinder))
}

// Deterministic builds a note from explicit randomness: r picks the stealth
// address, blinder hides the value, nonce keys the ciphertext. The same
// arguments always produce the same note.
func Deterministic(typ Type, r crypto.Scalar, nonce fr.Element, receiver keys.PublicKey, value uint64, blinder crypto.Scalar) Note {
	n := Note{
		Type:            typ,
		ValueCommitment: Commitment(value, blinder),
		Nonce:           nonce,
		StealthAddress:  receiver.StealthAddress(r),
		Pos:             UnsetPos,
	}
	plain := encodePlain(value, blinder)
	switch typ {
	case Transparent:
		copy(n.EncryptedData[:], plain[:])
	default:
		aead := noteCipher(receiver.SharedSecret(r))
		sealed := aead.Seal(nil, cipherNonce(nonce), plain[:], n.aad())
		copy(n.EncryptedData[:], sealed)
	}
	return n
}

// New draws r, nonce and blinder from rng.
func New(rng *crypto.RNG, typ Type, receiver keys.PublicKey, value uint64) Note {
	r := rng.Scalar()
	nonce := rng.Element()
	blinder := rng.Scalar()
	return Deterministic(typ, r, nonce, receiver, value, blinder)
}

// NewObfuscated builds an obfuscated note with a caller-chosen blinder,
// as needed when the blinder must also go to a prover.
func NewObfuscated(rng *crypto.RNG, receiver keys.PublicKey, value uint64, blinder crypto.Scalar) Note {
	r := rng.Scalar()
	nonce := rng.Element()
	return Deterministic(Obfuscated, r, nonce, receiver, value, blinder)
}

// Open recovers value and blinder. A nil view key is only accepted for
// transparent notes; a non-nil one must own the note.
func (n Note) Open(vk *keys.ViewKey) (uint64, crypto.Scalar, error) {
	if vk != nil && !vk.Owns(n.StealthAddress) {
		return 0, crypto.Scalar{}, ErrNotOwned
	}
	var plain []byte
	switch n.Type {
	case Transparent:
		plain = n.EncryptedData[:PlainSize]
	case Obfuscated:
		if vk == nil {
			return 0, crypto.Scalar{}, ErrViewKeyRequired
		}
		aead := noteCipher(vk.SharedSecret(n.StealthAddress))
		out, err := aead.Open(nil, cipherNonce(n.Nonce), n.EncryptedData[:], n.aad())
		if err != nil {
			return 0, crypto.Scalar{}, ErrDecryption
		}
		plain = out
	default:
		return 0, crypto.Scalar{}, ErrInvalidNote
	}
	value := binary.LittleEndian.Uint64(plain[:8])
	blinder, err := crypto.ScalarFromBytes(plain[8:PlainSize])
	if err != nil {
		return 0, crypto.Scalar{}, ErrDecryption
	}
	if !Commitment(value, blinder).Equal(n.ValueCommitment) {
		return 0, crypto.Scalar{}, ErrCommitmentMismatch
	}
	return value, blinder, nil
}

// Value returns the note value visible to vk.
func (n Note) Value(vk *keys.ViewKey) (uint64, error) {
	v, _, err := n.Open(vk)
	return v, err
}

// BlindingFactor returns the commitment blinder visible to vk.
func (n Note) BlindingFactor(vk *keys.ViewKey) (crypto.Scalar, error) {
	_, b, err := n.Open(vk)
	return b, err
}

// Nullifier returns Poseidon(sk_r·G_NUMS, pos), which marks the note spent
// once published.
func (n Note) Nullifier(sk keys.SecretKey) fr.Element {
	return NullifierFromKey(NullifierKey(sk, n.StealthAddress), n.Pos)
}

// NullifierKey returns pk_r' = sk_r·G_NUMS for the note's address.
func NullifierKey(sk keys.SecretKey, sa keys.StealthAddress) crypto.Point {
	return crypto.GeneratorNUMS().Mul(sk.NoteSecret(sa))
}

// NullifierFromKey hashes a nullifier key with a tree position.
func NullifierFromKey(pkRPrime crypto.Point, pos uint64) fr.Element {
	return crypto.Poseidon(pkRPrime.X(), pkRPrime.Y(), crypto.ElementFromUint64(pos))
}

// Hash commits to every field of the note, position included.
func (n Note) Hash() fr.Element {
	elems := []fr.Element{
		crypto.ElementFromUint64(uint64(n.Type)),
		n.ValueCommitment.X(), n.ValueCommitment.Y(),
		n.Nonce,
		n.StealthAddress.R.X(), n.StealthAddress.R.Y(),
		n.StealthAddress.PkR.X(), n.StealthAddress.PkR.Y(),
		crypto.ElementFromUint64(n.Pos),
	}
	elems = append(elems, crypto.BytesToElements(n.EncryptedData[:])...)
	return crypto.Poseidon(elems...)
}

// UnpositionedHash hashes the note as it was when created, before the
// tree assigned it a position.
func (n Note) UnpositionedHash() fr.Element {
	n.Pos = UnsetPos
	return n.Hash()
}

// HashHex returns Hash as hex. Errors name notes by it.
func (n Note) HashHex() string {
	h := n.Hash()
	b := h.Bytes()
	return hex.EncodeToString(b[:])
}

// Equal reports whether both notes encode identically.
func (n Note) Equal(o Note) bool {
	a, b := n.Bytes(), o.Bytes()
	return bytes.Equal(a[:], b[:])
}

// Bytes encodes the note as
// type ‖ commitment ‖ nonce ‖ R ‖ pkR ‖ LE64(pos) ‖ encrypted data.
func (n Note) Bytes() [Size]byte {
	buf := make([]byte, 0, Size)
	buf = append(buf, byte(n.Type))
	c := n.ValueCommitment.Bytes()
	buf = append(buf, c[:]...)
	nonce := n.Nonce.Bytes()
	buf = append(buf, nonce[:]...)
	sa := n.StealthAddress.Bytes()
	buf = append(buf, sa[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, n.Pos)
	buf = append(buf, n.EncryptedData[:]...)
	var out [Size]byte
	copy(out[:], buf)
	return out
}

// FromBytes decodes a note produced by Bytes.
func FromBytes(b []byte) (Note, error) {
	if len(b) != Size {
		return Note{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNote, Size, len(b))
	}
	var n Note
	n.Type = Type(b[0])
	if n.Type != Transparent && n.Type != Obfuscated {
		return Note{}, fmt.Errorf("%w: unknown type %d", ErrInvalidNote, b[0])
	}
	off := 1
	c, err := crypto.PointFromBytes(b[off : off+crypto.PointSize])
	if err != nil {
		return Note{}, fmt.Errorf("%w: commitment: %v", ErrInvalidNote, err)
	}
	n.ValueCommitment = c
	off += crypto.PointSize
	n.Nonce, err = crypto.ElementFromBytes(b[off : off+fr.Bytes])
	if err != nil {
		return Note{}, fmt.Errorf("%w: nonce: %v", ErrInvalidNote, err)
	}
	off += fr.Bytes
	n.StealthAddress, err = keys.StealthAddressFromBytes(b[off : off+keys.PublicKeySize])
	if err != nil {
		return Note{}, fmt.Errorf("%w: stealth address: %v", ErrInvalidNote, err)
	}
	off += keys.PublicKeySize
	n.Pos = binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	copy(n.EncryptedData[:], b[off:])
	return n, nil
}

func (n Note) aad() []byte {
	c := n.ValueCommitment.Bytes()
	return c[:]
}

func encodePlain(value uint64, blinder crypto.Scalar) [PlainSize]byte {
	var p [PlainSize]byte
	binary.LittleEndian.PutUint64(p[:8], value)
	copy(p[8:], blinder[:])
	return p
}

func noteCipher(shared crypto.Point) cipher.AEAD {
	key := crypto.PRF(encryptionKeyTag, shared)
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		// Key size is fixed.
		panic(err)
	}
	return aead
}

func cipherNonce(nonce fr.Element) []byte {
	b := nonce.Bytes()
	return b[fr.Bytes-chacha20poly1305.NonceSize:]
}
