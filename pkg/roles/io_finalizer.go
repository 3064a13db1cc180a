package roles

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// MaxInputs is the maximum number of inputs one transaction spends.
const MaxInputs = utx.MaxInputs

func checkInputCount(n int) error {
	if n > MaxInputs {
		return &utx.ConstructionError{
			Code:    utx.ErrTooManyInputs,
			Message: fmt.Sprintf("%d inputs, at most %d per transaction", n, MaxInputs),
		}
	}
	return nil
}

// IoFinalizer fixes the anchor of a transaction.
//
// The anchor is the root carried by the first input's opening. All inputs
// must share it; that is a precondition on the caller, the IO Finalizer
// does not verify the other openings.
type IoFinalizer struct {
	tx *utx.UnprovenTransaction
}

// NewIoFinalizer creates a new IO Finalizer.
func NewIoFinalizer(tx *utx.UnprovenTransaction) *IoFinalizer {
	return &IoFinalizer{tx: tx}
}

// Finalize sets the anchor. It fails when there is no input to take the
// anchor from.
func (f *IoFinalizer) Finalize() error {
	if len(f.tx.Inputs) == 0 {
		return &utx.ConstructionError{
			Code:    utx.ErrNoInputs,
			Message: "no input to take the anchor from",
		}
	}
	if err := checkInputCount(len(f.tx.Inputs)); err != nil {
		return err
	}
	f.tx.Anchor = f.tx.Inputs[0].Opening.Root
	return nil
}

// Finish returns the finalized transaction.
func (f *IoFinalizer) Finish() *utx.UnprovenTransaction {
	return f.tx
}
