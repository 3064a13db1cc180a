// Package roles implements unproven transaction assembly as a sequence of
// roles, each with one responsibility:
//   - Creator: initializes an empty transaction carrying the fee
//   - Constructor: adds inputs (with nullifiers), outputs, crossover and call
//   - IO Finalizer: fixes the anchor from the first input's opening
//   - Signer: recovers blinders and double-signs the binding hash per input
//   - Transaction Extractor: attaches a proof and produces the final form
//
// Assemble runs them in order for the common single-party case. The roles
// can also be driven one by one, for example to inspect the binding hash
// before signing.
package roles

import (
	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Creator initializes a base transaction with no inputs or outputs.
//
// The Creator sets the fee every later role agrees on. Inputs, outputs,
// crossover and call are added by the Constructor.
type Creator struct {
	fee utx.Fee
}

// NewCreator creates a new Creator for the given fee.
func NewCreator(fee utx.Fee) *Creator {
	return &Creator{fee: fee}
}

// Create returns the empty transaction, ready for the Constructor.
func (c *Creator) Create() *utx.UnprovenTransaction {
	return &utx.UnprovenTransaction{
		Inputs:  []utx.Input{},
		Outputs: []utx.Output{},
		Fee:     c.fee,
	}
}

// NewCrossover builds the fee and crossover of a contract call moving value.
//
// An obfuscated note of value is created to refund; its stealth address
// becomes the fee's refund address and the rest becomes the crossover.
func NewCrossover(
	rng *crypto.RNG,
	refund keys.PublicKey,
	value uint64,
	blinder crypto.Scalar,
	gasLimit uint64,
	gasPrice uint64,
) (utx.Fee, *utx.CrossoverInfo, error) {
	n := note.NewObfuscated(rng, refund, value, blinder)
	fee, crossover, err := utx.SplitNote(n)
	if err != nil {
		return utx.Fee{}, nil, err
	}
	fee.GasLimit = gasLimit
	fee.GasPrice = gasPrice
	return fee, &utx.CrossoverInfo{
		Crossover: crossover,
		Value:     value,
		Blinder:   blinder,
	}, nil
}
