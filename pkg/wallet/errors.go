package wallet

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/selection"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
)

// Funding errors are those of input selection, so callers can match them
// with errors.Is regardless of the layer they come from.
var (
	ErrNotEnoughBalance = selection.ErrNotEnoughBalance
	ErrNoteCombination  = selection.ErrNoteCombination
)

// StoreError wraps a failure of the key store.
type StoreError struct {
	Cause error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %v", e.Cause) }
func (e *StoreError) Unwrap() error { return e.Cause }

// StateError wraps a failure of the state client. It is forwarded as is,
// never retried.
type StateError struct {
	Op    string // State client method that failed
	Cause error
}

func (e *StateError) Error() string { return fmt.Sprintf("state %s: %v", e.Op, e.Cause) }
func (e *StateError) Unwrap() error { return e.Cause }

// ProverError wraps a failure of the prover client.
type ProverError struct {
	Op    string // Prover client method that failed
	Cause error
}

func (e *ProverError) Error() string { return fmt.Sprintf("prover %s: %v", e.Op, e.Cause) }
func (e *ProverError) Unwrap() error { return e.Cause }

// AlreadyStakedError is returned when staking with a key that already has
// a stake.
type AlreadyStakedError struct {
	Key   crypto.StakePublicKey
	Stake stake.Data
}

func (e *AlreadyStakedError) Error() string {
	return fmt.Sprintf("key already staked %d", e.Stake.Amount.Value)
}

// NotStakedError is returned when unstaking with a key that has no stake.
type NotStakedError struct {
	Key   crypto.StakePublicKey
	Stake stake.Data
}

func (e *NotStakedError) Error() string { return "key not staked" }

// NoRewardError is returned when withdrawing with a key that has no reward.
type NoRewardError struct {
	Key   crypto.StakePublicKey
	Stake stake.Data
}

func (e *NoRewardError) Error() string { return "key has no reward" }
