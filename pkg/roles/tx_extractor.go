package roles

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// TxExtractor turns a signed unproven transaction and its proof into the
// proof-bearing Transaction.
//
// The Transaction Extractor role:
//   - Verifies the transaction is signed and every signature checks out
//     against the binding hash
//   - Drops the witnesses (openings, values, blinders, signatures)
//   - Attaches the proof returned by the prover
//
// This is the final role. The resulting Transaction hashes to the same
// binding hash the inputs signed.
type TxExtractor struct {
	tx *utx.UnprovenTransaction
}

// NewTxExtractor creates a new Transaction Extractor.
func NewTxExtractor(tx *utx.UnprovenTransaction) *TxExtractor {
	return &TxExtractor{tx: tx}
}

// Extract attaches proof and returns the final transaction.
func (e *TxExtractor) Extract(proof []byte) (*utx.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	if len(proof) == 0 {
		return nil, &utx.FinalizationError{Code: utx.ErrInvalidInput, Message: "empty proof"}
	}

	return &utx.Transaction{
		Nullifiers: e.tx.Nullifiers(),
		Outputs:    e.tx.OutputNotes(),
		Anchor:     e.tx.Anchor,
		Fee:        e.tx.Fee,
		Crossover:  e.tx.PublicCrossover(),
		Call:       e.tx.Call,
		Proof:      append([]byte(nil), proof...),
	}, nil
}

// ExtractBytes attaches proof and returns the encoded transaction together
// with its hex hash.
func (e *TxExtractor) ExtractBytes(proof []byte) ([]byte, string, error) {
	tx, err := e.Extract(proof)
	if err != nil {
		return nil, "", err
	}
	b, err := utx.SerializeTransaction(tx)
	if err != nil {
		return nil, "", &utx.FinalizationError{Code: utx.ErrInvalidInput, Message: "serialization failed", Cause: err}
	}
	return b, tx.ID(), nil
}

// validate checks that every input carries a valid double signature over
// the current binding hash.
func (e *TxExtractor) validate() error {
	if !e.tx.Signed {
		return &utx.FinalizationError{Code: utx.ErrUnsigned, Message: "transaction inputs are not signed"}
	}
	if len(e.tx.Inputs) > MaxInputs {
		return &utx.FinalizationError{
			Code:    utx.ErrTooManyInputs,
			Message: fmt.Sprintf("%d inputs, at most %d per transaction", len(e.tx.Inputs), MaxInputs),
		}
	}
	hash := e.tx.BindingHash()
	for i := range e.tx.Inputs {
		in := &e.tx.Inputs[i]
		if !in.Signature.Verify(in.Note.StealthAddress.PkR, in.PkRPrime, hash) {
			return &utx.FinalizationError{
				Code:    utx.ErrInvalidSignature,
				Message: fmt.Sprintf("input %d signature does not verify", i),
			}
		}
	}
	return nil
}
