package utx

import (
	"bytes"
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

// hashInputBytes concatenates the public fields in the order they are
// bound: nullifiers, output notes, anchor, fee, crossover, call. Optional
// parts are preceded by a presence byte.
func hashInputBytes(nullifiers []fr.Element, outputs []note.Note, anchor fr.Element, fee Fee, crossover *Crossover, call *CallData) []byte {
	buf := new(bytes.Buffer)
	for i := range nullifiers {
		b := nullifiers[i].Bytes()
		buf.Write(b[:])
	}
	for i := range outputs {
		b := outputs[i].Bytes()
		buf.Write(b[:])
	}
	a := anchor.Bytes()
	buf.Write(a[:])
	f := fee.Bytes()
	buf.Write(f[:])
	if crossover == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		c := crossover.Bytes()
		buf.Write(c[:])
	}
	if call == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		encodeCall(buf, call)
	}
	return buf.Bytes()
}

func bindingHash(input []byte) fr.Element {
	return crypto.ElementFromDigest(crypto.Blake2b256(crypto.TxHashPersonalization, input))
}

// HashInputBytes returns the bytes the binding hash is computed over.
func (tx *UnprovenTransaction) HashInputBytes() []byte {
	return hashInputBytes(tx.Nullifiers(), tx.OutputNotes(), tx.Anchor, tx.Fee, tx.PublicCrossover(), tx.Call)
}

// BindingHash returns the transaction-binding hash every input signs.
func (tx *UnprovenTransaction) BindingHash() fr.Element {
	return bindingHash(tx.HashInputBytes())
}

// HashInputBytes returns the bytes the transaction hash is computed over.
// They match those of the unproven transaction it was proven from.
func (tx *Transaction) HashInputBytes() []byte {
	return hashInputBytes(tx.Nullifiers, tx.Outputs, tx.Anchor, tx.Fee, tx.Crossover, tx.Call)
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() fr.Element {
	return bindingHash(tx.HashInputBytes())
}

// ID returns the hex encoding of the transaction hash.
func (tx *Transaction) ID() string {
	hash := tx.Hash()
	h := hash.Bytes()
	return hex.EncodeToString(h[:])
}
