package utx

// Wire format of unproven and proven transactions.
//
//	File format: magic (4 bytes) || version (u32le) || body
//
// Sequences and byte strings carry LEB128 varint length prefixes, optional
// fields a 0x00/0x01 presence byte, integers are little-endian and field
// elements use their canonical 32-byte encoding.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

const (
	UnprovenMagic = "PUTX"
	ProvenMagic   = "PTXN"
	Version1      = uint32(1)

	// maxSequence bounds decoded sequence lengths.
	maxSequence = 1 << 16
	// capHint bounds the capacity reserved from a decoded length.
	capHint = 16
)

var (
	errSequenceTooLong = errors.New("sequence too long")
	errTooManyInputs   = errors.New("too many inputs")
)

// Serialize encodes an unproven transaction.
// Format: "PUTX" || I2LEOSP_32(1) || body
func Serialize(tx *UnprovenTransaction) ([]byte, error) {
	if len(tx.Inputs) > MaxInputs {
		return nil, tooManyInputs(len(tx.Inputs))
	}
	buf := new(bytes.Buffer)
	buf.WriteString(UnprovenMagic)
	binary.Write(buf, binary.LittleEndian, Version1)

	if tx.Signed {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
	encodeVarInt(buf, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		encodeBytes(buf, encodeInput(&tx.Inputs[i], tx.Signed))
	}
	encodeVarInt(buf, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		encodeOutput(buf, &tx.Outputs[i])
	}
	writeElement(buf, tx.Anchor)
	f := tx.Fee.Bytes()
	buf.Write(f[:])
	if tx.Crossover == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		encodeCrossoverInfo(buf, tx.Crossover)
	}
	encodeOptionCall(buf, tx.Call)
	return buf.Bytes(), nil
}

func tooManyInputs(n int) error {
	return &ConstructionError{
		Code:    ErrTooManyInputs,
		Message: fmt.Sprintf("%d inputs, at most %d per transaction", n, MaxInputs),
		Cause:   errTooManyInputs,
	}
}

// Parse decodes an unproven transaction.
func Parse(data []byte) (*UnprovenTransaction, error) {
	r, err := openEnvelope(data, UnprovenMagic)
	if err != nil {
		return nil, err
	}
	tx, err := decodeUnproven(r)
	if err != nil {
		return nil, &ParseError{Message: "decode failed", Cause: err}
	}
	if r.Len() != 0 {
		return nil, &ParseError{Message: fmt.Sprintf("%d trailing bytes", r.Len())}
	}
	return tx, nil
}

// SerializeTransaction encodes a proven transaction.
// Format: "PTXN" || I2LEOSP_32(1) || body
func SerializeTransaction(tx *Transaction) ([]byte, error) {
	if len(tx.Nullifiers) > MaxInputs {
		return nil, tooManyInputs(len(tx.Nullifiers))
	}
	buf := new(bytes.Buffer)
	buf.WriteString(ProvenMagic)
	binary.Write(buf, binary.LittleEndian, Version1)

	encodeVarInt(buf, uint64(len(tx.Nullifiers)))
	for i := range tx.Nullifiers {
		writeElement(buf, tx.Nullifiers[i])
	}
	encodeVarInt(buf, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		n := tx.Outputs[i].Bytes()
		buf.Write(n[:])
	}
	writeElement(buf, tx.Anchor)
	f := tx.Fee.Bytes()
	buf.Write(f[:])
	if tx.Crossover == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		c := tx.Crossover.Bytes()
		buf.Write(c[:])
	}
	encodeOptionCall(buf, tx.Call)
	encodeBytes(buf, tx.Proof)
	return buf.Bytes(), nil
}

// ParseTransaction decodes a proven transaction.
func ParseTransaction(data []byte) (*Transaction, error) {
	r, err := openEnvelope(data, ProvenMagic)
	if err != nil {
		return nil, err
	}
	tx, err := decodeProven(r)
	if err != nil {
		return nil, &ParseError{Message: "decode failed", Cause: err}
	}
	if r.Len() != 0 {
		return nil, &ParseError{Message: fmt.Sprintf("%d trailing bytes", r.Len())}
	}
	return tx, nil
}

func openEnvelope(data []byte, magic string) (*bytes.Reader, error) {
	if len(data) < 8 {
		return nil, &ParseError{Message: "data too short"}
	}
	if string(data[0:4]) != magic {
		return nil, &ParseError{Message: "invalid magic bytes"}
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != Version1 {
		return nil, &ParseError{Message: fmt.Sprintf("unsupported version: %d", version)}
	}
	return bytes.NewReader(data[8:]), nil
}

// Bytes encodes the fee as LE64(gas limit) ‖ LE64(gas price) ‖ address.
func (f Fee) Bytes() [FeeSize]byte {
	var out [FeeSize]byte
	binary.LittleEndian.PutUint64(out[0:8], f.GasLimit)
	binary.LittleEndian.PutUint64(out[8:16], f.GasPrice)
	sa := f.StealthAddress.Bytes()
	copy(out[16:], sa[:])
	return out
}

// FeeFromBytes decodes a fee.
func FeeFromBytes(b []byte) (Fee, error) {
	if len(b) != FeeSize {
		return Fee{}, fmt.Errorf("fee: expected %d bytes, got %d", FeeSize, len(b))
	}
	sa, err := keys.StealthAddressFromBytes(b[16:])
	if err != nil {
		return Fee{}, fmt.Errorf("fee: %w", err)
	}
	return Fee{
		GasLimit:       binary.LittleEndian.Uint64(b[0:8]),
		GasPrice:       binary.LittleEndian.Uint64(b[8:16]),
		StealthAddress: sa,
	}, nil
}

// Bytes encodes the crossover as commitment ‖ nonce ‖ ciphertext.
func (c Crossover) Bytes() [CrossoverSize]byte {
	var out [CrossoverSize]byte
	vc := c.ValueCommitment.Bytes()
	copy(out[:crypto.PointSize], vc[:])
	n := c.Nonce.Bytes()
	copy(out[crypto.PointSize:crypto.PointSize+fr.Bytes], n[:])
	copy(out[crypto.PointSize+fr.Bytes:], c.EncryptedData[:])
	return out
}

// CrossoverFromBytes decodes a crossover.
func CrossoverFromBytes(b []byte) (Crossover, error) {
	if len(b) != CrossoverSize {
		return Crossover{}, fmt.Errorf("crossover: expected %d bytes, got %d", CrossoverSize, len(b))
	}
	var c Crossover
	var err error
	if c.ValueCommitment, err = crypto.PointFromBytes(b[:crypto.PointSize]); err != nil {
		return Crossover{}, fmt.Errorf("crossover commitment: %w", err)
	}
	if c.Nonce, err = crypto.ElementFromBytes(b[crypto.PointSize : crypto.PointSize+fr.Bytes]); err != nil {
		return Crossover{}, fmt.Errorf("crossover nonce: %w", err)
	}
	copy(c.EncryptedData[:], b[crypto.PointSize+fr.Bytes:])
	return c, nil
}

// encodeInput writes an input; pk_r' and the signature are only present
// once the transaction is signed.
func encodeInput(in *Input, signed bool) []byte {
	buf := new(bytes.Buffer)
	writeElement(buf, in.Nullifier)
	n := in.Note.Bytes()
	buf.Write(n[:])
	binary.Write(buf, binary.LittleEndian, in.Value)
	buf.Write(in.Blinder[:])
	if signed {
		pk := in.PkRPrime.Bytes()
		buf.Write(pk[:])
		sig := in.Signature.Bytes()
		buf.Write(sig[:])
	}
	buf.Write(in.Opening.Bytes())
	return buf.Bytes()
}

func decodeInput(data []byte, signed bool) (Input, error) {
	r := bytes.NewReader(data)
	var in Input
	var err error
	if in.Nullifier, err = readElement(r); err != nil {
		return Input{}, fmt.Errorf("nullifier: %w", err)
	}
	if in.Note, err = readNote(r); err != nil {
		return Input{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &in.Value); err != nil {
		return Input{}, err
	}
	if in.Blinder, err = readScalar(r); err != nil {
		return Input{}, fmt.Errorf("blinder: %w", err)
	}
	if signed {
		if in.PkRPrime, err = readPoint(r); err != nil {
			return Input{}, fmt.Errorf("pk_r': %w", err)
		}
		sig, err := readFixed(r, crypto.DoubleSignatureSize)
		if err != nil {
			return Input{}, err
		}
		if in.Signature, err = crypto.DoubleSignatureFromBytes(sig); err != nil {
			return Input{}, fmt.Errorf("signature: %w", err)
		}
	}
	rest := data[len(data)-r.Len():]
	o, n, err := merkle.FromBytes(rest)
	if err != nil {
		return Input{}, err
	}
	if n != len(rest) {
		return Input{}, fmt.Errorf("input: %d trailing bytes", len(rest)-n)
	}
	in.Opening = o
	return in, nil
}

func encodeOutput(w io.Writer, out *Output) {
	n := out.Note.Bytes()
	w.Write(n[:])
	binary.Write(w, binary.LittleEndian, out.Value)
	w.Write(out.Blinder[:])
}

func decodeOutput(r io.Reader) (Output, error) {
	var out Output
	var err error
	if out.Note, err = readNote(r); err != nil {
		return Output{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
		return Output{}, err
	}
	if out.Blinder, err = readScalar(r); err != nil {
		return Output{}, fmt.Errorf("blinder: %w", err)
	}
	return out, nil
}

func encodeCall(w io.Writer, c *CallData) {
	w.Write(c.Contract[:])
	encodeString(w, c.Method)
	encodeBytes(w, c.Payload)
}

func decodeCall(r io.Reader) (*CallData, error) {
	var c CallData
	if _, err := io.ReadFull(r, c.Contract[:]); err != nil {
		return nil, err
	}
	var err error
	if c.Method, err = decodeString(r); err != nil {
		return nil, err
	}
	if c.Payload, err = decodeBytes(r); err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeOptionCall(w io.Writer, c *CallData) {
	if c == nil {
		w.Write([]byte{0x00})
		return
	}
	w.Write([]byte{0x01})
	encodeCall(w, c)
}

func decodeOptionCall(r io.Reader) (*CallData, error) {
	present, err := readFlag(r)
	if err != nil || !present {
		return nil, err
	}
	return decodeCall(r)
}

func decodeOptionCrossover(r io.Reader) (*Crossover, error) {
	present, err := readFlag(r)
	if err != nil || !present {
		return nil, err
	}
	b, err := readFixed(r, CrossoverSize)
	if err != nil {
		return nil, err
	}
	c, err := CrossoverFromBytes(b)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeCrossoverInfo(w io.Writer, ci *CrossoverInfo) {
	c := ci.Crossover.Bytes()
	w.Write(c[:])
	binary.Write(w, binary.LittleEndian, ci.Value)
	w.Write(ci.Blinder[:])
}

func decodeOptionCrossoverInfo(r io.Reader) (*CrossoverInfo, error) {
	c, err := decodeOptionCrossover(r)
	if err != nil || c == nil {
		return nil, err
	}
	ci := &CrossoverInfo{Crossover: *c}
	if err := binary.Read(r, binary.LittleEndian, &ci.Value); err != nil {
		return nil, err
	}
	if ci.Blinder, err = readScalar(r); err != nil {
		return nil, fmt.Errorf("crossover blinder: %w", err)
	}
	return ci, nil
}

func decodeUnproven(r io.Reader) (*UnprovenTransaction, error) {
	tx := &UnprovenTransaction{}

	signed, err := readFlag(r)
	if err != nil {
		return nil, err
	}
	tx.Signed = signed

	nIn, err := decodeLength(r)
	if err != nil {
		return nil, err
	}
	if nIn > MaxInputs {
		return nil, fmt.Errorf("%w: %d, at most %d", errTooManyInputs, nIn, MaxInputs)
	}
	tx.Inputs = make([]Input, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		b, err := decodeBytes(r)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		in, err := decodeInput(b, tx.Signed)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := decodeLength(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]Output, 0, min(nOut, capHint))
	for i := uint64(0); i < nOut; i++ {
		out, err := decodeOutput(r)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	if tx.Anchor, err = readElement(r); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	if tx.Fee, err = readFee(r); err != nil {
		return nil, err
	}
	if tx.Crossover, err = decodeOptionCrossoverInfo(r); err != nil {
		return nil, err
	}
	if tx.Call, err = decodeOptionCall(r); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeProven(r io.Reader) (*Transaction, error) {
	tx := &Transaction{}

	n, err := decodeLength(r)
	if err != nil {
		return nil, err
	}
	if n > MaxInputs {
		return nil, fmt.Errorf("%w: %d nullifiers, at most %d", errTooManyInputs, n, MaxInputs)
	}
	tx.Nullifiers = make([]fr.Element, 0, n)
	for i := uint64(0); i < n; i++ {
		e, err := readElement(r)
		if err != nil {
			return nil, fmt.Errorf("nullifier %d: %w", i, err)
		}
		tx.Nullifiers = append(tx.Nullifiers, e)
	}

	n, err = decodeLength(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]note.Note, 0, min(n, capHint))
	for i := uint64(0); i < n; i++ {
		nt, err := readNote(r)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs = append(tx.Outputs, nt)
	}

	if tx.Anchor, err = readElement(r); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	if tx.Fee, err = readFee(r); err != nil {
		return nil, err
	}
	if tx.Crossover, err = decodeOptionCrossover(r); err != nil {
		return nil, err
	}
	if tx.Call, err = decodeOptionCall(r); err != nil {
		return nil, err
	}
	if tx.Proof, err = decodeBytes(r); err != nil {
		return nil, fmt.Errorf("proof: %w", err)
	}
	return tx, nil
}

func readFixed(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readFlag(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("invalid option tag 0x%02x", b[0])
	}
}

func writeElement(w io.Writer, e fr.Element) {
	b := e.Bytes()
	w.Write(b[:])
}

func readElement(r io.Reader) (fr.Element, error) {
	b, err := readFixed(r, fr.Bytes)
	if err != nil {
		return fr.Element{}, err
	}
	return crypto.ElementFromBytes(b)
}

func readScalar(r io.Reader) (crypto.Scalar, error) {
	b, err := readFixed(r, crypto.ScalarSize)
	if err != nil {
		return crypto.Scalar{}, err
	}
	return crypto.ScalarFromBytes(b)
}

func readPoint(r io.Reader) (crypto.Point, error) {
	b, err := readFixed(r, crypto.PointSize)
	if err != nil {
		return crypto.Point{}, err
	}
	return crypto.PointFromBytes(b)
}

func readNote(r io.Reader) (note.Note, error) {
	b, err := readFixed(r, note.Size)
	if err != nil {
		return note.Note{}, err
	}
	return note.FromBytes(b)
}

func readFee(r io.Reader) (Fee, error) {
	b, err := readFixed(r, FeeSize)
	if err != nil {
		return Fee{}, err
	}
	return FeeFromBytes(b)
}

func encodeVarInt(w io.Writer, n uint64) error {
	// LEB128
	for {
		b := uint8(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		w.Write([]byte{b})
		if n == 0 {
			break
		}
	}
	return nil
}

func decodeVarInt(r io.Reader) (uint64, error) {
	var result uint64
	var shift uint

	for {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, errors.New("varint overflows u64")
		}

		result |= uint64(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
	}

	return result, nil
}

func decodeLength(r io.Reader) (uint64, error) {
	n, err := decodeVarInt(r)
	if err != nil {
		return 0, err
	}
	if n > maxSequence {
		return 0, errSequenceTooLong
	}
	return n, nil
}

func encodeString(w io.Writer, s string) error {
	return encodeBytes(w, []byte(s))
}

func encodeBytes(w io.Writer, b []byte) error {
	encodeVarInt(w, uint64(len(b)))
	w.Write(b)
	return nil
}

func decodeBytes(r io.Reader) ([]byte, error) {
	length, err := decodeVarInt(r)
	if err != nil {
		return nil, err
	}
	if length > 1<<26 {
		return nil, errSequenceTooLong
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func decodeString(r io.Reader) (string, error) {
	b, err := decodeBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
