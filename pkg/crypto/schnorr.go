package crypto

import "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

// Encoded signature sizes.
const (
	SignatureSize       = PointSize + ScalarSize
	DoubleSignatureSize = 2*PointSize + ScalarSize
)

// Signature is a Schnorr signature over JubJub with generator G.
type Signature struct {
	U Scalar
	R Point
}

// DoubleSignature proves knowledge of one secret behind two public keys,
// sk·G and sk·G_NUMS, with a shared challenge.
type DoubleSignature struct {
	U      Scalar
	R      Point
	RPrime Point
}

func challenge(msg fr.Element, points ...Point) Scalar {
	elems := make([]fr.Element, 0, 2*len(points)+1)
	for _, p := range points {
		elems = append(elems, p.X(), p.Y())
	}
	elems = append(elems, msg)
	return HashToScalar(elems...)
}

// Sign signs msg with sk, drawing the nonce from rng.
func Sign(rng *RNG, sk Scalar, msg fr.Element) Signature {
	r := rng.Scalar()
	R := MulBase(r)
	c := challenge(msg, R)
	return Signature{U: r.Sub(c.Mul(sk)), R: R}
}

// Verify checks the signature against pk = sk·G.
func (s Signature) Verify(pk Point, msg fr.Element) bool {
	c := challenge(msg, s.R)
	return MulBase(s.U).Add(pk.Mul(c)).Equal(s.R)
}

// Bytes encodes the signature as U ‖ R.
func (s Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	copy(out[:ScalarSize], s.U[:])
	r := s.R.Bytes()
	copy(out[ScalarSize:], r[:])
	return out
}

// SignatureFromBytes decodes U ‖ R.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureSize {
		return Signature{}, ErrInvalidEncoding
	}
	u, err := ScalarFromBytes(b[:ScalarSize])
	if err != nil {
		return Signature{}, err
	}
	r, err := PointFromBytes(b[ScalarSize:])
	if err != nil {
		return Signature{}, err
	}
	return Signature{U: u, R: r}, nil
}

// SignDouble produces a double signature of msg under sk.
func SignDouble(rng *RNG, sk Scalar, msg fr.Element) DoubleSignature {
	r := rng.Scalar()
	R := MulBase(r)
	RPrime := GeneratorNUMS().Mul(r)
	c := challenge(msg, R, RPrime)
	return DoubleSignature{U: r.Sub(c.Mul(sk)), R: R, RPrime: RPrime}
}

// Verify checks the signature against pk = sk·G and pkPrime = sk·G_NUMS.
func (s DoubleSignature) Verify(pk, pkPrime Point, msg fr.Element) bool {
	c := challenge(msg, s.R, s.RPrime)
	if !MulBase(s.U).Add(pk.Mul(c)).Equal(s.R) {
		return false
	}
	return GeneratorNUMS().Mul(s.U).Add(pkPrime.Mul(c)).Equal(s.RPrime)
}

// Bytes encodes the signature as U ‖ R ‖ R'.
func (s DoubleSignature) Bytes() [DoubleSignatureSize]byte {
	var out [DoubleSignatureSize]byte
	copy(out[:ScalarSize], s.U[:])
	r := s.R.Bytes()
	copy(out[ScalarSize:], r[:])
	rp := s.RPrime.Bytes()
	copy(out[ScalarSize+PointSize:], rp[:])
	return out
}

// DoubleSignatureFromBytes decodes U ‖ R ‖ R'.
func DoubleSignatureFromBytes(b []byte) (DoubleSignature, error) {
	if len(b) != DoubleSignatureSize {
		return DoubleSignature{}, ErrInvalidEncoding
	}
	u, err := ScalarFromBytes(b[:ScalarSize])
	if err != nil {
		return DoubleSignature{}, err
	}
	r, err := PointFromBytes(b[ScalarSize : ScalarSize+PointSize])
	if err != nil {
		return DoubleSignature{}, err
	}
	rp, err := PointFromBytes(b[ScalarSize+PointSize:])
	if err != nil {
		return DoubleSignature{}, err
	}
	return DoubleSignature{U: u, R: r, RPrime: rp}, nil
}
