package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// ScalarSize and PointSize are the encoded sizes of JubJub scalars and points.
const (
	ScalarSize = 32
	PointSize  = 32
)

// ErrInvalidEncoding is returned for bytes that do not decode to a canonical
// scalar, field element or curve point.
var ErrInvalidEncoding = errors.New("crypto: invalid encoding")

var (
	curveOnce sync.Once
	curve     twistededwards.CurveParams
	order     *big.Int
	generator Point
	nums      Point
	identity  Point
)

func initCurve() {
	curve = twistededwards.GetEdwardsCurve()
	order = new(big.Int).Set(&curve.Order)
	generator = Point{p: curve.Base}
	identity = Point{p: twistededwards.NewPointAffine(fr.NewElement(0), fr.NewElement(1))}
	nums = hashToPoint(GeneratorNUMSPersonalization)
}

// hashToPoint finds a point of the prime-order subgroup with no known
// discrete log relative to the base generator (try-and-increment).
func hashToPoint(personalization string) Point {
	var cofactor big.Int
	curve.Cofactor.BigInt(&cofactor)
	for ctr := uint64(0); ; ctr++ {
		var c [8]byte
		binary.LittleEndian.PutUint64(c[:], ctr)
		d := Blake2b256(personalization, c[:])
		var p twistededwards.PointAffine
		if _, err := p.SetBytes(d[:]); err != nil || !p.IsOnCurve() {
			continue
		}
		p.ScalarMultiplication(&p, &cofactor)
		if p.IsZero() {
			continue
		}
		return Point{p: p}
	}
}

// Order returns the order of the JubJub prime-order subgroup.
func Order() *big.Int {
	curveOnce.Do(initCurve)
	return new(big.Int).Set(order)
}

// Scalar is an element of the JubJub scalar field, stored as canonical
// little-endian bytes.
type Scalar [ScalarSize]byte

// ScalarFromUint64 returns v as a scalar.
func ScalarFromUint64(v uint64) Scalar {
	return ScalarFromBigInt(new(big.Int).SetUint64(v))
}

// ScalarFromBigInt reduces v modulo the subgroup order.
func ScalarFromBigInt(v *big.Int) Scalar {
	curveOnce.Do(initCurve)
	r := new(big.Int).Mod(v, order)
	be := r.FillBytes(make([]byte, ScalarSize))
	var s Scalar
	for i := range be {
		s[i] = be[ScalarSize-1-i]
	}
	return s
}

// ScalarFromWide reduces 64 little-endian bytes modulo the subgroup order.
func ScalarFromWide(b [64]byte) Scalar {
	be := make([]byte, 64)
	for i := range b {
		be[i] = b[63-i]
	}
	return ScalarFromBigInt(new(big.Int).SetBytes(be))
}

// ScalarFromElement reduces a BLS scalar into the JubJub scalar field.
func ScalarFromElement(e fr.Element) Scalar {
	var v big.Int
	e.BigInt(&v)
	return ScalarFromBigInt(&v)
}

// ScalarFromBytes decodes a canonical little-endian scalar.
func ScalarFromBytes(b []byte) (Scalar, error) {
	var s Scalar
	if len(b) != ScalarSize {
		return s, ErrInvalidEncoding
	}
	copy(s[:], b)
	curveOnce.Do(initCurve)
	if s.BigInt().Cmp(order) >= 0 {
		return Scalar{}, ErrInvalidEncoding
	}
	return s, nil
}

// BigInt returns the scalar as an integer.
func (s Scalar) BigInt() *big.Int {
	be := make([]byte, ScalarSize)
	for i := range s {
		be[i] = s[ScalarSize-1-i]
	}
	return new(big.Int).SetBytes(be)
}

// Element lifts the scalar into the BLS scalar field, which is larger.
func (s Scalar) Element() fr.Element {
	var e fr.Element
	e.SetBigInt(s.BigInt())
	return e
}

func (s Scalar) Add(o Scalar) Scalar {
	return ScalarFromBigInt(new(big.Int).Add(s.BigInt(), o.BigInt()))
}

func (s Scalar) Sub(o Scalar) Scalar {
	return ScalarFromBigInt(new(big.Int).Sub(s.BigInt(), o.BigInt()))
}

func (s Scalar) Mul(o Scalar) Scalar {
	return ScalarFromBigInt(new(big.Int).Mul(s.BigInt(), o.BigInt()))
}

func (s Scalar) Neg() Scalar {
	return ScalarFromBigInt(new(big.Int).Neg(s.BigInt()))
}

func (s Scalar) IsZero() bool {
	return s == Scalar{}
}

// Bytes returns the canonical little-endian encoding.
func (s Scalar) Bytes() []byte {
	return s[:]
}

// Point is a point of the JubJub prime-order subgroup in affine form.
type Point struct {
	p twistededwards.PointAffine
}

// Generator returns the base point G.
func Generator() Point {
	curveOnce.Do(initCurve)
	return generator
}

// GeneratorNUMS returns the second generator used for blinders and the
// nullifier key; its discrete log relative to G is unknown.
func GeneratorNUMS() Point {
	curveOnce.Do(initCurve)
	return nums
}

// Identity returns the neutral element.
func Identity() Point {
	curveOnce.Do(initCurve)
	return identity
}

// MulBase returns s·G.
func MulBase(s Scalar) Point {
	return Generator().Mul(s)
}

// PointFromBytes decodes a compressed point and rejects non-canonical
// encodings and points outside the prime-order subgroup.
func PointFromBytes(b []byte) (Point, error) {
	curveOnce.Do(initCurve)
	if len(b) != PointSize {
		return Point{}, ErrInvalidEncoding
	}
	var p twistededwards.PointAffine
	if _, err := p.SetBytes(b); err != nil {
		return Point{}, ErrInvalidEncoding
	}
	if !p.IsOnCurve() {
		return Point{}, ErrInvalidEncoding
	}
	enc := p.Bytes()
	if !bytes.Equal(enc[:], b) {
		return Point{}, ErrInvalidEncoding
	}
	var check twistededwards.PointAffine
	check.ScalarMultiplication(&p, order)
	if !check.IsZero() {
		return Point{}, ErrInvalidEncoding
	}
	return Point{p: p}, nil
}

func (p Point) Add(q Point) Point {
	var r Point
	r.p.Add(&p.p, &q.p)
	return r
}

func (p Point) Sub(q Point) Point {
	return p.Add(q.Neg())
}

func (p Point) Neg() Point {
	var r Point
	r.p.Neg(&p.p)
	return r
}

// Mul returns s·p.
func (p Point) Mul(s Scalar) Point {
	var r Point
	r.p.ScalarMultiplication(&p.p, s.BigInt())
	return r
}

func (p Point) Equal(q Point) bool {
	return p.p.Equal(&q.p)
}

func (p Point) IsIdentity() bool {
	return p.p.IsZero()
}

// Bytes returns the 32-byte compressed encoding.
func (p Point) Bytes() [PointSize]byte {
	return p.p.Bytes()
}

// X returns the affine x coordinate.
func (p Point) X() fr.Element {
	return p.p.X
}

// Y returns the affine y coordinate.
func (p Point) Y() fr.Element {
	return p.p.Y
}
