// Package api is the request/response boundary of the wallet core.
//
// Every operation takes a JSON argument struct and returns a response
// struct or an error. Hosts that cannot hold Go values call Dispatcher.Call
// with an operation name and JSON arguments and receive a uniform Result:
//
//	public_keys, view_keys, seed           - key derivation
//	check_note_ownership, unspent_spent_notes, balance,
//	merge_notes, filter_notes, nullifiers  - note classification
//	execute                                - unproven transaction assembly
//	unproven_tx_to_bytes, prove_tx         - prover hand-off
//	get_history                            - history reconciliation
//	get_stake_info, get_stct_proof, get_stake_call_data,
//	get_wfct_proof, get_unstake_call_data,
//	get_withdraw_call_data, get_allow_call_data - staking
//	new_mnemonic, get_mnemonic_seed,
//	dusk_to_lux, lux_to_dusk               - helpers
//
// No operation keeps state between calls and every random value comes
// from the caller's rng_seed.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	ErrInvalidArgs = errors.New("api: invalid arguments")
	ErrUnknownOp   = errors.New("api: unknown operation")
)

// Result is the uniform response of Dispatcher.Call. A failed call carries
// no payload.
type Result struct {
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type handler func(args []byte) (any, error)

// handle decodes the JSON arguments of fn.
func handle[A, R any](fn func(A) (R, error)) handler {
	return func(raw []byte) (any, error) {
		var args A
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return fn(args)
	}
}

var handlers = map[string]handler{
	"public_keys":            handle(PublicKeys),
	"view_keys":              handle(ViewKeys),
	"seed":                   handle(Seed),
	"check_note_ownership":   handle(CheckNoteOwnership),
	"unspent_spent_notes":    handle(UnspentSpentNotes),
	"balance":                handle(Balance),
	"execute":                handle(Execute),
	"merge_notes":            handle(MergeNotes),
	"filter_notes":           handle(FilterNotes),
	"nullifiers":             handle(Nullifiers),
	"get_history":            handle(GetHistory),
	"unproven_tx_to_bytes":   handle(UnprovenTxToBytes),
	"prove_tx":               handle(ProveTx),
	"get_stake_info":         handle(GetStakeInfo),
	"get_stct_proof":         handle(GetSTCTProof),
	"get_stake_call_data":    handle(GetStakeCallData),
	"get_wfct_proof":         handle(GetWFCTProof),
	"get_unstake_call_data":  handle(GetUnstakeCallData),
	"get_withdraw_call_data": handle(GetWithdrawCallData),
	"get_allow_call_data":    handle(GetAllowCallData),
	"new_mnemonic":           handle(NewMnemonic),
	"get_mnemonic_seed":      handle(GetMnemonicSeed),
	"dusk_to_lux":            handle(DuskToLux),
	"lux_to_dusk":            handle(LuxToDusk),
}

// Operations lists the operation names Call accepts, sorted.
func Operations() []string {
	ops := make([]string, 0, len(handlers))
	for op := range handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Dispatcher routes operations by name.
type Dispatcher struct {
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil logger discards all logs.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Do runs op and returns its response or error.
func (d *Dispatcher) Do(op string, args []byte) (any, error) {
	h, ok := handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	return h(args)
}

// Call runs op and wraps the outcome in a Result. Failures are logged at
// debug level without their arguments, which may hold seeds.
func (d *Dispatcher) Call(op string, args []byte) Result {
	resp, err := d.Do(op, args)
	if err != nil {
		d.logger.Debug("operation failed", zap.String("op", op), zap.Error(err))
		return Result{}
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		d.logger.Debug("response encoding failed", zap.String("op", op), zap.Error(err))
		return Result{}
	}
	return Result{Success: true, Payload: payload}
}
