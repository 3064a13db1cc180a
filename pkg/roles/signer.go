package roles

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Signer signs every input over the transaction-binding hash.
//
// For each input the Signer:
//   - Derives the one-time note secret sk_r from the owning key
//   - Recovers the note blinder under the owning view key
//   - Computes pk_r' = sk_r·G_NUMS
//   - Double-signs the binding hash with sk_r
//
// The binding hash covers nullifiers, output notes, anchor, fee, crossover
// and call, so nothing but witnesses may change once signing starts.
type Signer struct {
	tx *utx.UnprovenTransaction
}

// NewSigner creates a new Signer.
func NewSigner(tx *utx.UnprovenTransaction) *Signer {
	return &Signer{tx: tx}
}

// SignInput signs the input at index with sk, the key that owns its note.
func (s *Signer) SignInput(rng *crypto.RNG, index int, sk keys.SecretKey) error {
	if index < 0 || index >= len(s.tx.Inputs) {
		return &utx.SignatureError{
			InputIndex: index,
			Message:    fmt.Sprintf("input index out of bounds (have %d inputs)", len(s.tx.Inputs)),
		}
	}
	in := &s.tx.Inputs[index]

	vk := sk.ViewKey()
	blinder, err := in.Note.BlindingFactor(&vk)
	if err != nil {
		return &utx.ConstructionError{
			Code:    utx.ErrBlinderRecovery,
			Message: fmt.Sprintf("input %d cannot be opened by its key", index),
			Cause:   err,
		}
	}

	hash := s.tx.BindingHash()
	skR := sk.NoteSecret(in.Note.StealthAddress)

	in.Blinder = blinder
	in.PkRPrime = note.NullifierKey(sk, in.Note.StealthAddress)
	in.Signature = crypto.SignDouble(rng, skR, hash)
	return nil
}

// SignAll signs every input with the key at the same position in sks and
// marks the transaction signed.
func (s *Signer) SignAll(rng *crypto.RNG, sks []keys.SecretKey) error {
	if err := checkInputCount(len(s.tx.Inputs)); err != nil {
		return err
	}
	if len(sks) != len(s.tx.Inputs) {
		return &utx.SignatureError{
			InputIndex: len(sks),
			Message:    fmt.Sprintf("%d keys for %d inputs", len(sks), len(s.tx.Inputs)),
		}
	}
	for i := range s.tx.Inputs {
		if err := s.SignInput(rng, i, sks[i]); err != nil {
			return err
		}
	}
	s.tx.Signed = true
	return nil
}

// Finish returns the signed transaction.
//
// The transaction is now ready for the external prover, either as
// utx.Serialize bytes or as ProverBytes.
func (s *Signer) Finish() *utx.UnprovenTransaction {
	return s.tx
}
