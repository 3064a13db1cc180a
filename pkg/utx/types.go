// Package utx implements the unproven transaction: the fully signed,
// not-yet-proven Phoenix transaction a wallet hands to an external prover,
// and the proven Transaction the prover hands back.
//
// An UnprovenTransaction carries every witness the prover needs (openings,
// note values, blinders, signatures) next to the public fields that end up
// in the final transaction (nullifiers, output notes, anchor, fee,
// crossover, call). The public fields are bound together by the
// transaction-binding hash, which every input signs.
package utx

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

// ContractIDSize is the size of a contract identifier.
const ContractIDSize = 32

// MaxInputs is the maximum number of inputs one transaction spends.
const MaxInputs = 4

// ContractID identifies the contract a transaction calls.
type ContractID [ContractIDSize]byte

// UnprovenTransaction is a transaction ready for proving.
//
// The Creator sets the fee, the Constructor adds inputs, outputs, crossover
// and call, the IoFinalizer fixes the anchor and the Signer fills in each
// input's signature. Once Signed is true the public fields must not change.
type UnprovenTransaction struct {
	Inputs    []Input        // Notes being spent, in signing order
	Outputs   []Output       // Notes being created
	Anchor    fr.Element     // Tree root every input opening proves against
	Fee       Fee            // Gas budget and refund address
	Crossover *CrossoverInfo // Value moved into a contract call (optional)
	Call      *CallData      // Contract call (optional)
	Signed    bool           // Set by the Signer once every input is signed
}

// Input is a note being spent together with its spend witness.
type Input struct {
	Nullifier fr.Element             // Poseidon(pk_r', pos), published on chain
	Opening   merkle.Opening         // Membership proof of the note
	Note      note.Note              // The note being spent
	Value     uint64                 // Note value, witness only
	Blinder   crypto.Scalar          // Commitment blinder, witness only
	PkRPrime  crypto.Point           // sk_r·G_NUMS, binds the nullifier to the signer
	Signature crypto.DoubleSignature // Double signature over the binding hash
}

// Output is a freshly created note with its opening values.
type Output struct {
	Note    note.Note     // The created note
	Value   uint64        // Note value, witness only
	Blinder crypto.Scalar // Commitment blinder, witness only
}

// Fee is the gas budget of a transaction and the stealth address that
// receives the unspent remainder.
type Fee struct {
	GasLimit       uint64
	GasPrice       uint64
	StealthAddress keys.StealthAddress
}

// FeeSize is the encoded size of a Fee.
const FeeSize = 16 + keys.PublicKeySize

// Crossover is the obfuscated part of a note moved into a contract call:
// the commitment, nonce and ciphertext without the stealth address.
type Crossover struct {
	ValueCommitment crypto.Point
	Nonce           fr.Element
	EncryptedData   [note.EncryptedDataSize]byte
}

// CrossoverSize is the encoded size of a Crossover.
const CrossoverSize = crypto.PointSize + fr.Bytes + note.EncryptedDataSize

// CrossoverInfo is a crossover together with its opening values, as the
// prover needs them.
type CrossoverInfo struct {
	Crossover Crossover
	Value     uint64
	Blinder   crypto.Scalar
}

// CallData is a contract call.
type CallData struct {
	Contract ContractID
	Method   string
	Payload  []byte
}

// Transaction is the proven form broadcast to the network.
type Transaction struct {
	Nullifiers []fr.Element
	Outputs    []note.Note
	Anchor     fr.Element
	Fee        Fee
	Crossover  *Crossover
	Call       *CallData
	Proof      []byte
}

// GasBudget returns gas limit × gas price, saturating at MaxUint64.
func (f Fee) GasBudget() uint64 {
	if f.GasPrice != 0 && f.GasLimit > ^uint64(0)/f.GasPrice {
		return ^uint64(0)
	}
	return f.GasLimit * f.GasPrice
}

// NewFee draws a fresh refund address for refund.
func NewFee(rng *crypto.RNG, gasLimit, gasPrice uint64, refund keys.PublicKey) Fee {
	return Fee{
		GasLimit:       gasLimit,
		GasPrice:       gasPrice,
		StealthAddress: refund.StealthAddress(rng.Scalar()),
	}
}

// SplitNote turns an obfuscated note into the fee address and crossover a
// contract call spends. The returned fee has zero gas fields.
func SplitNote(n note.Note) (Fee, Crossover, error) {
	if n.Type != note.Obfuscated {
		return Fee{}, Crossover{}, &ConstructionError{
			Code:    ErrInvalidInput,
			Message: "crossover requires an obfuscated note",
		}
	}
	return Fee{StealthAddress: n.StealthAddress}, Crossover{
		ValueCommitment: n.ValueCommitment,
		Nonce:           n.Nonce,
		EncryptedData:   n.EncryptedData,
	}, nil
}

// Nullifiers returns the input nullifiers in order.
func (tx *UnprovenTransaction) Nullifiers() []fr.Element {
	out := make([]fr.Element, len(tx.Inputs))
	for i := range tx.Inputs {
		out[i] = tx.Inputs[i].Nullifier
	}
	return out
}

// PublicCrossover returns the crossover without its opening values.
func (tx *UnprovenTransaction) PublicCrossover() *Crossover {
	if tx.Crossover == nil {
		return nil
	}
	c := tx.Crossover.Crossover
	return &c
}

// OutputNotes returns the output notes in order.
func (tx *UnprovenTransaction) OutputNotes() []note.Note {
	out := make([]note.Note, len(tx.Outputs))
	for i := range tx.Outputs {
		out[i] = tx.Outputs[i].Note
	}
	return out
}

// HasOutput reports whether a note with the given unpositioned hash is
// among the outputs.
func (tx *Transaction) HasOutput(hash fr.Element) bool {
	for i := range tx.Outputs {
		h := tx.Outputs[i].UnpositionedHash()
		if h.Equal(&hash) {
			return true
		}
	}
	return false
}
