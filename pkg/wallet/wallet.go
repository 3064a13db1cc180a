// Package wallet drives the wallet core against its collaborators: a key
// store holding the seed, a state client reading the chain and a prover
// client turning unproven transactions into proven ones.
//
// Every operation is a synchronous call. Randomness comes from the RNG the
// caller passes in, so the same inputs produce the same transaction.
package wallet

import (
	"context"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/history"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/selection"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Store provides the seed keys are derived from.
type Store interface {
	Seed(ctx context.Context) (keys.Seed, error)
}

// StateClient reads the chain state.
type StateClient interface {
	// FetchNotes returns the notes the view key owns, spent or not.
	FetchNotes(ctx context.Context, vk keys.ViewKey) ([]note.Note, error)
	// FetchExistingNullifiers returns the subset of nullifiers already
	// published on chain.
	FetchExistingNullifiers(ctx context.Context, nullifiers []fr.Element) ([]fr.Element, error)
	// FetchOpening returns the membership proof of a positioned note.
	FetchOpening(ctx context.Context, n note.Note) (merkle.Opening, error)
	// FetchStake returns the stake record of a key, nil if there is none.
	FetchStake(ctx context.Context, pk crypto.StakePublicKey) (*stake.Data, error)
}

// ProverClient proves transactions and the stake contract's crossover
// circuits.
type ProverClient interface {
	ComputeProofAndPropagate(ctx context.Context, tx *utx.UnprovenTransaction) (*utx.Transaction, error)
	RequestSTCTProof(ctx context.Context, req stake.STCTRequest) ([]byte, error)
	RequestWFCTProof(ctx context.Context, req stake.WFCTRequest) ([]byte, error)
}

// SeedStore is a Store over a seed held in memory.
type SeedStore keys.Seed

// Seed returns the seed.
func (s SeedStore) Seed(context.Context) (keys.Seed, error) {
	return keys.Seed(s), nil
}

// Wallet is the high-level wallet.
type Wallet struct {
	store  Store
	state  StateClient
	prover ProverClient
	logger *zap.Logger
}

// New creates a wallet. A nil logger discards all logs.
func New(store Store, state StateClient, prover ProverClient, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{store: store, state: state, prover: prover, logger: logger}
}

func (w *Wallet) keySet(ctx context.Context) (*keys.KeySet, error) {
	seed, err := w.store.Seed(ctx)
	if err != nil {
		return nil, &StoreError{Cause: err}
	}
	return keys.NewKeySet(seed), nil
}

// PublicKey returns the public key at index.
func (w *Wallet) PublicKey(ctx context.Context, index uint64) (keys.PublicKey, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return keys.PublicKey{}, err
	}
	return ks.PublicKey(index)
}

// StakePublicKey returns the stake public key at index.
func (w *Wallet) StakePublicKey(ctx context.Context, index uint64) (crypto.StakePublicKey, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return crypto.StakePublicKey{}, err
	}
	sk, err := ks.StakeSecretKey(index)
	if err != nil {
		return crypto.StakePublicKey{}, err
	}
	return sk.PublicKey(), nil
}

// unspent returns the opened notes of index whose nullifiers are not yet
// on chain.
func (w *Wallet) unspent(ctx context.Context, ks *keys.KeySet, index uint64) ([]selection.Candidate, error) {
	sk, err := ks.SecretKey(index)
	if err != nil {
		return nil, err
	}
	vk := sk.ViewKey()

	notes, err := w.state.FetchNotes(ctx, vk)
	if err != nil {
		return nil, &StateError{Op: "fetch notes", Cause: err}
	}

	candidates := make([]selection.Candidate, 0, len(notes))
	nullifiers := make([]fr.Element, 0, len(notes))
	for i := range notes {
		value, blinder, err := notes[i].Open(&vk)
		if err != nil {
			return nil, errors.Wrapf(err, "open note %d", i)
		}
		candidates = append(candidates, selection.Candidate{
			Note:    notes[i],
			Value:   value,
			Blinder: blinder,
			Index:   index,
		})
		nullifiers = append(nullifiers, notes[i].Nullifier(sk))
	}

	existing, err := w.state.FetchExistingNullifiers(ctx, nullifiers)
	if err != nil {
		return nil, &StateError{Op: "fetch existing nullifiers", Cause: err}
	}
	spent := note.NewNullifierSet(existing)

	out := candidates[:0]
	for i := range candidates {
		if !spent.Contains(nullifiers[i]) {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

// inputsAndChange selects the notes of the sender covering target and
// returns them as inputs, together with a change output to refund when
// the selection exceeds target.
func (w *Wallet) inputsAndChange(
	ctx context.Context,
	ks *keys.KeySet,
	senderIndex uint64,
	refund keys.PublicKey,
	target uint64,
) ([]roles.PreInput, []roles.OutputRequest, error) {
	sk, err := ks.SecretKey(senderIndex)
	if err != nil {
		return nil, nil, err
	}
	pool, err := w.unspent(ctx, ks, senderIndex)
	if err != nil {
		return nil, nil, err
	}

	selected, err := selection.Select(pool, target)
	if err != nil {
		return nil, nil, err
	}

	inputs := make([]roles.PreInput, 0, len(selected))
	for _, c := range selected {
		opening, err := w.state.FetchOpening(ctx, c.Note)
		if err != nil {
			return nil, nil, &StateError{Op: "fetch opening", Cause: err}
		}
		inputs = append(inputs, roles.PreInput{
			Note:      c.Note,
			Opening:   opening,
			Value:     c.Value,
			SecretKey: sk,
		})
	}

	var outputs []roles.OutputRequest
	change := selection.Change(selected, target)
	if change > 0 {
		outputs = append(outputs, roles.OutputRequest{
			Type:     note.Obfuscated,
			Receiver: refund.String(),
			Value:    change,
		})
	}

	w.logger.Debug(
		"selected inputs",
		zap.Uint64("sender", senderIndex),
		zap.Int("pool", len(pool)),
		zap.Int("inputs", len(inputs)),
		zap.Uint64("change", change),
	)
	return inputs, outputs, nil
}

// prove assembles the transaction and hands it to the prover.
func (w *Wallet) prove(
	ctx context.Context,
	rng *crypto.RNG,
	inputs []roles.PreInput,
	outputs []roles.OutputRequest,
	fee utx.Fee,
	crossover *utx.CrossoverInfo,
	call *utx.CallData,
) (*utx.Transaction, error) {
	var req *roles.CallRequest
	if call != nil {
		req = &roles.CallRequest{
			Contract: roles.FormatContractID(call.Contract),
			Method:   call.Method,
			Payload:  call.Payload,
		}
	}

	tx, err := roles.Assemble(rng, inputs, outputs, fee, crossover, req)
	if err != nil {
		return nil, err
	}

	proven, err := w.prover.ComputeProofAndPropagate(ctx, tx)
	if err != nil {
		return nil, &ProverError{Op: "compute proof", Cause: err}
	}
	w.logger.Info(
		"transaction propagated",
		zap.String("id", proven.ID()),
		zap.Int("inputs", len(tx.Inputs)),
		zap.Int("outputs", len(tx.Outputs)),
	)
	return proven, nil
}

// Transfer sends value to receiver. Change and the gas refund go to
// refund. A non-nil refID becomes the nonce of the receiver's note.
func (w *Wallet) Transfer(
	ctx context.Context,
	rng *crypto.RNG,
	senderIndex uint64,
	refund keys.PublicKey,
	receiver keys.PublicKey,
	value uint64,
	gasLimit uint64,
	gasPrice uint64,
	refID *uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	fee := utx.Fee{GasLimit: gasLimit, GasPrice: gasPrice}
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, addSat(value, fee.GasBudget()))
	if err != nil {
		return nil, err
	}

	outputs = append(outputs, roles.OutputRequest{
		Type:     note.Obfuscated,
		Receiver: receiver.String(),
		Value:    value,
		RefID:    refID,
	})
	return w.prove(ctx, rng, inputs, outputs, utx.NewFee(rng, gasLimit, gasPrice, refund), nil, nil)
}

// Execute calls method of contract with payload, paying only gas.
func (w *Wallet) Execute(
	ctx context.Context,
	rng *crypto.RNG,
	contract utx.ContractID,
	method string,
	payload []byte,
	senderIndex uint64,
	refund keys.PublicKey,
	gasLimit uint64,
	gasPrice uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	fee := utx.NewFee(rng, gasLimit, gasPrice, refund)
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, fee.GasBudget())
	if err != nil {
		return nil, err
	}
	call := &utx.CallData{Contract: contract, Method: method, Payload: payload}
	return w.prove(ctx, rng, inputs, outputs, fee, nil, call)
}

func (w *Wallet) fetchStake(ctx context.Context, pk crypto.StakePublicKey) (stake.Data, error) {
	d, err := w.state.FetchStake(ctx, pk)
	if err != nil {
		return stake.Data{}, &StateError{Op: "fetch stake", Cause: err}
	}
	if d == nil {
		return stake.Data{}, nil
	}
	return *d, nil
}

// Stake moves value from the sender's notes into a stake of the key at
// stakerIndex.
func (w *Wallet) Stake(
	ctx context.Context,
	rng *crypto.RNG,
	senderIndex uint64,
	stakerIndex uint64,
	refund keys.PublicKey,
	value uint64,
	gasLimit uint64,
	gasPrice uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	sender, err := ks.SecretKey(senderIndex)
	if err != nil {
		return nil, err
	}
	stakeSK, err := ks.StakeSecretKey(stakerIndex)
	if err != nil {
		return nil, err
	}
	pk := stakeSK.PublicKey()

	budget := utx.Fee{GasLimit: gasLimit, GasPrice: gasPrice}.GasBudget()
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, addSat(value, budget))
	if err != nil {
		return nil, err
	}

	data, err := w.fetchStake(ctx, pk)
	if err != nil {
		return nil, err
	}
	if data.Amount != nil {
		return nil, &AlreadyStakedError{Key: pk, Stake: data}
	}

	req, err := stake.NewSTCTRequest(rng, sender, refund, value, gasLimit, gasPrice)
	if err != nil {
		return nil, err
	}
	proof, err := w.prover.RequestSTCTProof(ctx, req)
	if err != nil {
		return nil, &ProverError{Op: "request stct proof", Cause: err}
	}

	call, err := stake.StakeCall(stakeSK, data.Counter, value, proof)
	if err != nil {
		return nil, err
	}
	return w.prove(ctx, rng, inputs, outputs, req.Fee, &req.Crossover, call)
}

// Unstake returns the stake of the key at stakerIndex to the sender.
func (w *Wallet) Unstake(
	ctx context.Context,
	rng *crypto.RNG,
	senderIndex uint64,
	stakerIndex uint64,
	refund keys.PublicKey,
	gasLimit uint64,
	gasPrice uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	senderPK, err := ks.PublicKey(senderIndex)
	if err != nil {
		return nil, err
	}
	stakeSK, err := ks.StakeSecretKey(stakerIndex)
	if err != nil {
		return nil, err
	}
	pk := stakeSK.PublicKey()

	budget := utx.Fee{GasLimit: gasLimit, GasPrice: gasPrice}.GasBudget()
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, budget)
	if err != nil {
		return nil, err
	}

	data, err := w.fetchStake(ctx, pk)
	if err != nil {
		return nil, err
	}
	if data.Amount == nil {
		return nil, &NotStakedError{Key: pk, Stake: data}
	}

	req, err := stake.NewWFCTRequest(rng, senderPK, refund, data.Amount.Value, gasLimit, gasPrice)
	if err != nil {
		return nil, err
	}
	proof, err := w.prover.RequestWFCTProof(ctx, req)
	if err != nil {
		return nil, &ProverError{Op: "request wfct proof", Cause: err}
	}

	call, err := stake.UnstakeCall(stakeSK, data.Counter, req.UnstakeNote, proof)
	if err != nil {
		return nil, err
	}
	return w.prove(ctx, rng, inputs, outputs, req.Fee, &req.Crossover, call)
}

// Withdraw sends the reward of the key at stakerIndex to the sender.
func (w *Wallet) Withdraw(
	ctx context.Context,
	rng *crypto.RNG,
	senderIndex uint64,
	stakerIndex uint64,
	refund keys.PublicKey,
	gasLimit uint64,
	gasPrice uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	senderPK, err := ks.PublicKey(senderIndex)
	if err != nil {
		return nil, err
	}
	stakeSK, err := ks.StakeSecretKey(stakerIndex)
	if err != nil {
		return nil, err
	}
	pk := stakeSK.PublicKey()

	budget := utx.Fee{GasLimit: gasLimit, GasPrice: gasPrice}.GasBudget()
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, budget)
	if err != nil {
		return nil, err
	}

	data, err := w.fetchStake(ctx, pk)
	if err != nil {
		return nil, err
	}
	if data.Reward == 0 {
		return nil, &NoRewardError{Key: pk, Stake: data}
	}

	call, err := stake.WithdrawCall(rng, stakeSK, senderPK, data.Counter)
	if err != nil {
		return nil, err
	}
	fee, crossover, err := stake.NewGasCrossover(rng, refund, gasLimit, gasPrice)
	if err != nil {
		return nil, err
	}
	return w.prove(ctx, rng, inputs, outputs, fee, crossover, call)
}

// Allow lets staker stake, signed by the stake key at ownerIndex.
func (w *Wallet) Allow(
	ctx context.Context,
	rng *crypto.RNG,
	senderIndex uint64,
	ownerIndex uint64,
	staker crypto.StakePublicKey,
	refund keys.PublicKey,
	gasLimit uint64,
	gasPrice uint64,
) (*utx.Transaction, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return nil, err
	}
	ownerSK, err := ks.StakeSecretKey(ownerIndex)
	if err != nil {
		return nil, err
	}

	budget := utx.Fee{GasLimit: gasLimit, GasPrice: gasPrice}.GasBudget()
	inputs, outputs, err := w.inputsAndChange(ctx, ks, senderIndex, refund, budget)
	if err != nil {
		return nil, err
	}

	data, err := w.fetchStake(ctx, ownerSK.PublicKey())
	if err != nil {
		return nil, err
	}

	call, err := stake.AllowCall(ownerSK, staker, data.Counter)
	if err != nil {
		return nil, err
	}
	fee, crossover, err := stake.NewGasCrossover(rng, refund, gasLimit, gasPrice)
	if err != nil {
		return nil, err
	}
	return w.prove(ctx, rng, inputs, outputs, fee, crossover, call)
}

// Balance returns the unspent balance of the key at index.
func (w *Wallet) Balance(ctx context.Context, index uint64) (history.Balance, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return history.Balance{}, err
	}
	pool, err := w.unspent(ctx, ks, index)
	if err != nil {
		return history.Balance{}, err
	}
	values := make([]uint64, len(pool))
	for i := range pool {
		values[i] = pool[i].Value
	}
	return history.ComputeBalance(values), nil
}

// StakeInfo returns the stake state of the stake key at index.
func (w *Wallet) StakeInfo(ctx context.Context, index uint64) (stake.Info, error) {
	ks, err := w.keySet(ctx)
	if err != nil {
		return stake.Info{}, err
	}
	sk, err := ks.StakeSecretKey(index)
	if err != nil {
		return stake.Info{}, err
	}
	d, err := w.state.FetchStake(ctx, sk.PublicKey())
	if err != nil {
		return stake.Info{}, &StateError{Op: "fetch stake", Cause: err}
	}
	return stake.InfoFromData(d), nil
}

func addSat(a, b uint64) uint64 {
	if a > ^uint64(0)-b {
		return ^uint64(0)
	}
	return a + b
}
