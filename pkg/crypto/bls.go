package crypto

import (
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Stake keys are BLS12-381 keys: public keys on G2, signatures on G1.
const (
	StakePublicKeySize = bls12381.SizeOfG2AffineCompressed
	StakeSignatureSize = bls12381.SizeOfG1AffineCompressed
)

var stakeDST = []byte("PHOENIX_STAKE_BLS12381G1_XMD:SHA-256_SSWU_RO_")

// StakeSecretKey is a BLS secret scalar.
type StakeSecretKey struct {
	s fr.Element
}

// StakePublicKey is sk·G2.
type StakePublicKey struct {
	p bls12381.G2Affine
}

// StakeSignature is a BLS signature on G1.
type StakeSignature struct {
	p bls12381.G1Affine
}

// NewStakeSecretKey draws a secret key from rng.
func NewStakeSecretKey(rng *RNG) StakeSecretKey {
	for {
		s := rng.Element()
		if !s.IsZero() {
			return StakeSecretKey{s: s}
		}
	}
}

func (sk StakeSecretKey) bigInt() *big.Int {
	var v big.Int
	sk.s.BigInt(&v)
	return &v
}

// PublicKey returns sk·G2.
func (sk StakeSecretKey) PublicKey() StakePublicKey {
	_, _, _, g2 := bls12381.Generators()
	var pk StakePublicKey
	pk.p.ScalarMultiplication(&g2, sk.bigInt())
	return pk
}

func stakeMessagePoint(pk StakePublicKey, msg []byte) (bls12381.G1Affine, error) {
	pkb := pk.Bytes()
	buf := make([]byte, 0, len(pkb)+len(msg))
	buf = append(buf, pkb[:]...)
	buf = append(buf, msg...)
	return bls12381.HashToG1(buf, stakeDST)
}

// Sign signs msg bound to the signer's public key.
func (sk StakeSecretKey) Sign(msg []byte) (StakeSignature, error) {
	h, err := stakeMessagePoint(sk.PublicKey(), msg)
	if err != nil {
		return StakeSignature{}, err
	}
	var sig StakeSignature
	sig.p.ScalarMultiplication(&h, sk.bigInt())
	return sig, nil
}

// Verify checks e(sig, G2) == e(H(pk ‖ msg), pk).
func (pk StakePublicKey) Verify(msg []byte, sig StakeSignature) bool {
	h, err := stakeMessagePoint(pk, msg)
	if err != nil {
		return false
	}
	_, _, _, g2 := bls12381.Generators()
	var negG2 bls12381.G2Affine
	negG2.Neg(&g2)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig.p, h},
		[]bls12381.G2Affine{negG2, pk.p},
	)
	return err == nil && ok
}

// Equal reports whether both keys are the same point.
func (pk StakePublicKey) Equal(o StakePublicKey) bool {
	return pk.p.Equal(&o.p)
}

// Bytes returns the compressed encoding.
func (pk StakePublicKey) Bytes() [StakePublicKeySize]byte {
	return pk.p.Bytes()
}

// StakePublicKeyFromBytes decodes a compressed G2 point; subgroup membership
// is checked by the decoder.
func StakePublicKeyFromBytes(b []byte) (StakePublicKey, error) {
	var pk StakePublicKey
	if len(b) != StakePublicKeySize {
		return pk, ErrInvalidEncoding
	}
	if _, err := pk.p.SetBytes(b); err != nil {
		return pk, ErrInvalidEncoding
	}
	return pk, nil
}

// Bytes returns the compressed encoding.
func (s StakeSignature) Bytes() [StakeSignatureSize]byte {
	return s.p.Bytes()
}

// StakeSignatureFromBytes decodes a compressed G1 point.
func StakeSignatureFromBytes(b []byte) (StakeSignature, error) {
	var s StakeSignature
	if len(b) != StakeSignatureSize {
		return s, ErrInvalidEncoding
	}
	if _, err := s.p.SetBytes(b); err != nil {
		return s, ErrInvalidEncoding
	}
	return s, nil
}
