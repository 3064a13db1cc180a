package roles

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// PreInput is a note about to be spent: the note, its opening, its value
// and the secret key that owns it.
type PreInput struct {
	Note      note.Note
	Opening   merkle.Opening
	Value     uint64
	SecretKey keys.SecretKey
}

// OutputRequest describes a note to create.
type OutputRequest struct {
	Type     note.Type // Transparent or Obfuscated
	Receiver string    // Base58 public key of the receiver
	Value    uint64    // Value in LUX
	RefID    *uint64   // Used as the note nonce when set
}

// CallRequest is a contract call whose contract id is still base58 encoded.
type CallRequest struct {
	Contract string
	Method   string
	Payload  []byte
}

// Constructor adds inputs, outputs, crossover and call to a transaction.
//
// The Constructor:
//   - Computes the nullifier of every input from its owning key
//   - Builds output notes from fresh randomness
//   - Attaches the optional crossover and contract call
//
// The secret keys of the inputs are kept for the Signer and never leave
// the Constructor except through SecretKeys.
type Constructor struct {
	tx   *utx.UnprovenTransaction
	keys []keys.SecretKey
}

// NewConstructor creates a new Constructor from an existing transaction.
//
// The transaction should have been created by the Creator role.
func NewConstructor(tx *utx.UnprovenTransaction) *Constructor {
	return &Constructor{tx: tx}
}

// AddInput adds a note to spend and computes its nullifier.
//
// Blinder, one-time key and signature are filled in by the Signer once the
// binding hash is known.
func (c *Constructor) AddInput(in PreInput) error {
	if c.tx.Signed {
		return &utx.ConstructionError{Code: utx.ErrInvalidInput, Message: "inputs not modifiable after signing"}
	}
	if err := checkInputCount(len(c.tx.Inputs) + 1); err != nil {
		return err
	}

	c.tx.Inputs = append(c.tx.Inputs, utx.Input{
		Nullifier: in.Note.Nullifier(in.SecretKey),
		Opening:   in.Opening,
		Note:      in.Note,
		Value:     in.Value,
	})
	c.keys = append(c.keys, in.SecretKey)
	return nil
}

// AddOutput creates a note for req.
//
// A fresh r and blinder are drawn from rng for every output, and a fresh
// nonce unless req.RefID is set. The plaintext value and blinder are kept
// next to the note since the note alone does not reveal them.
func (c *Constructor) AddOutput(rng *crypto.RNG, req OutputRequest) error {
	if c.tx.Signed {
		return &utx.ConstructionError{Code: utx.ErrInvalidInput, Message: "outputs not modifiable after signing"}
	}
	receiver, err := keys.ParsePublicKey(req.Receiver)
	if err != nil {
		return &utx.ConstructionError{
			Code:    utx.ErrInvalidAddress,
			Message: "receiver is not a public key",
			Cause:   err,
		}
	}

	r := rng.Scalar()
	blinder := rng.Scalar()
	nonce := rng.Element()
	if req.RefID != nil {
		nonce = crypto.ElementFromUint64(*req.RefID)
	}

	n := note.Deterministic(req.Type, r, nonce, receiver, req.Value, blinder)
	c.tx.Outputs = append(c.tx.Outputs, utx.Output{
		Note:    n,
		Value:   req.Value,
		Blinder: blinder,
	})
	return nil
}

// SetCrossover attaches the crossover, or removes it when ci is nil.
func (c *Constructor) SetCrossover(ci *utx.CrossoverInfo) error {
	if c.tx.Signed {
		return &utx.ConstructionError{Code: utx.ErrInvalidInput, Message: "crossover not modifiable after signing"}
	}
	c.tx.Crossover = ci
	return nil
}

// SetCall decodes the contract id of req and attaches the call. The
// method and payload are carried through unchanged.
func (c *Constructor) SetCall(req CallRequest) error {
	if c.tx.Signed {
		return &utx.ConstructionError{Code: utx.ErrInvalidInput, Message: "call not modifiable after signing"}
	}
	contract, err := ParseContractID(req.Contract)
	if err != nil {
		return err
	}
	c.tx.Call = &utx.CallData{
		Contract: contract,
		Method:   req.Method,
		Payload:  req.Payload,
	}
	return nil
}

// SecretKeys returns the owning key of every input, in input order.
func (c *Constructor) SecretKeys() []keys.SecretKey {
	return c.keys
}

// Finish returns the constructed transaction.
//
// After all inputs and outputs have been added, call this to get the
// transaction ready for the next role (IO Finalizer).
func (c *Constructor) Finish() *utx.UnprovenTransaction {
	return c.tx
}

// ParseContractID decodes a base58 contract id, which must be exactly
// ContractIDSize bytes.
func ParseContractID(s string) (utx.ContractID, error) {
	var id utx.ContractID
	decoded := base58.Decode(s)
	if len(decoded) != utx.ContractIDSize {
		return id, &utx.ConstructionError{
			Code:    utx.ErrInvalidContractID,
			Message: fmt.Sprintf("contract id decodes to %d bytes, want %d", len(decoded), utx.ContractIDSize),
		}
	}
	copy(id[:], decoded)
	return id, nil
}

// FormatContractID returns the base58 form of id.
func FormatContractID(id utx.ContractID) string {
	return base58.Encode(id[:])
}
