package roles

import (
	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Assemble runs Creator, Constructor, IO Finalizer and Signer in order and
// returns the signed unproven transaction.
//
// Nullifiers are computed first, then the anchor is fixed, then outputs,
// crossover and call are added and finally every input is signed over the
// binding hash. No transaction is returned on failure.
func Assemble(
	rng *crypto.RNG,
	inputs []PreInput,
	outputs []OutputRequest,
	fee utx.Fee,
	crossover *utx.CrossoverInfo,
	call *CallRequest,
) (*utx.UnprovenTransaction, error) {
	tx := NewCreator(fee).Create()

	constructor := NewConstructor(tx)
	for _, in := range inputs {
		if err := constructor.AddInput(in); err != nil {
			return nil, err
		}
	}

	if err := NewIoFinalizer(tx).Finalize(); err != nil {
		return nil, err
	}

	for _, out := range outputs {
		if err := constructor.AddOutput(rng, out); err != nil {
			return nil, err
		}
	}
	if err := constructor.SetCrossover(crossover); err != nil {
		return nil, err
	}
	if call != nil {
		if err := constructor.SetCall(*call); err != nil {
			return nil, err
		}
	}
	tx = constructor.Finish()

	signer := NewSigner(tx)
	if err := signer.SignAll(rng, constructor.SecretKeys()); err != nil {
		return nil, err
	}
	return signer.Finish(), nil
}
