package api

import (
	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// GetStakeInfo summarizes a stake record.
func GetStakeInfo(args GetStakeInfoArgs) (stake.Info, error) {
	return stake.InfoFromData(args.StakeData), nil
}

type crossoverArgs struct {
	seed   keys.Seed
	rng    *crypto.RNG
	refund keys.PublicKey
}

func decodeCrossoverArgs(seed, rngSeed []byte, refund string) (crossoverArgs, error) {
	var a crossoverArgs
	var err error
	if a.seed, err = decodeSeed(seed); err != nil {
		return a, err
	}
	if a.rng, err = decodeRNG(rngSeed); err != nil {
		return a, err
	}
	if a.refund, err = decodePublicKey("refund", refund); err != nil {
		return a, err
	}
	return a, nil
}

func encodeFeeCrossover(fee utx.Fee, ci utx.CrossoverInfo) (f, c, b []byte) {
	fb := fee.Bytes()
	cb := ci.Crossover.Bytes()
	return fb[:], cb[:], ci.Blinder.Bytes()
}

// GetSTCTProof builds the prover input moving Value into the stake
// contract, signed by the sender's note secret.
func GetSTCTProof(args CrossoverProofArgs) (STCTProofResponse, error) {
	a, err := decodeCrossoverArgs(args.Seed, args.RNGSeed, args.Refund)
	if err != nil {
		return STCTProofResponse{}, err
	}
	sender, err := keys.DeriveSecretKey(a.seed, args.SenderIndex)
	if err != nil {
		return STCTProofResponse{}, invalid("sender_index", err)
	}
	req, err := stake.NewSTCTRequest(a.rng, sender, a.refund, args.Value, args.GasLimit, args.GasPrice)
	if err != nil {
		return STCTProofResponse{}, err
	}
	fee, crossover, blinder := encodeFeeCrossover(req.Fee, req.Crossover)
	sig := req.Signature.Bytes()
	return STCTProofResponse{
		Bytes:     req.Bytes(),
		Signature: sig[:],
		Fee:       fee,
		Crossover: crossover,
		Blinder:   blinder,
	}, nil
}

// GetStakeCallData builds the stake call of the stake key at StakerIndex.
func GetStakeCallData(args GetStakeCallDataArgs) (CallDataResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return CallDataResponse{}, err
	}
	sk, err := keys.DeriveStakeSecretKey(seed, args.StakerIndex)
	if err != nil {
		return CallDataResponse{}, invalid("staker_index", err)
	}
	call, err := stake.StakeCall(sk, args.Counter, args.Value, args.Proof)
	if err != nil {
		return CallDataResponse{}, invalid("proof", err)
	}
	return callResponse(call), nil
}

// GetWFCTProof builds the prover input withdrawing Value from the stake
// contract back to the sender.
func GetWFCTProof(args CrossoverProofArgs) (WFCTProofResponse, error) {
	a, err := decodeCrossoverArgs(args.Seed, args.RNGSeed, args.Refund)
	if err != nil {
		return WFCTProofResponse{}, err
	}
	sender, err := keys.DerivePublicKey(a.seed, args.SenderIndex)
	if err != nil {
		return WFCTProofResponse{}, invalid("sender_index", err)
	}
	req, err := stake.NewWFCTRequest(a.rng, sender, a.refund, args.Value, args.GasLimit, args.GasPrice)
	if err != nil {
		return WFCTProofResponse{}, err
	}
	fee, crossover, blinder := encodeFeeCrossover(req.Fee, req.Crossover)
	unstake := req.UnstakeNote.Bytes()
	return WFCTProofResponse{
		Bytes:       req.Bytes(),
		UnstakeNote: unstake[:],
		Fee:         fee,
		Crossover:   crossover,
		Blinder:     blinder,
	}, nil
}

// GetUnstakeCallData builds the unstake call of the stake key at
// SenderIndex, releasing UnstakeNote.
func GetUnstakeCallData(args GetUnstakeCallDataArgs) (CallDataResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return CallDataResponse{}, err
	}
	sk, err := keys.DeriveStakeSecretKey(seed, args.SenderIndex)
	if err != nil {
		return CallDataResponse{}, invalid("sender_index", err)
	}
	n, err := note.FromBytes(args.UnstakeNote)
	if err != nil {
		return CallDataResponse{}, invalid("unstake_note", err)
	}
	call, err := stake.UnstakeCall(sk, args.Counter, n, args.UnstakeProof)
	if err != nil {
		return CallDataResponse{}, invalid("unstake_proof", err)
	}
	return callResponse(call), nil
}

// GetWithdrawCallData builds the withdraw call of the stake key at
// OwnerIndex, sending the reward to the sender.
func GetWithdrawCallData(args GasCallDataArgs) (GasCallDataResponse, error) {
	a, err := decodeCrossoverArgs(args.Seed, args.RNGSeed, args.Refund)
	if err != nil {
		return GasCallDataResponse{}, err
	}
	sender, err := keys.DerivePublicKey(a.seed, args.SenderIndex)
	if err != nil {
		return GasCallDataResponse{}, invalid("sender_index", err)
	}
	sk, err := keys.DeriveStakeSecretKey(a.seed, args.OwnerIndex)
	if err != nil {
		return GasCallDataResponse{}, invalid("owner_index", err)
	}
	call, err := stake.WithdrawCall(a.rng, sk, sender, args.Counter)
	if err != nil {
		return GasCallDataResponse{}, err
	}
	return gasCallResponse(a, call, args.GasLimit, args.GasPrice)
}

// GetAllowCallData builds the allow call by which the stake key at
// SenderIndex lets the stake key at OwnerIndex stake.
func GetAllowCallData(args GasCallDataArgs) (GasCallDataResponse, error) {
	a, err := decodeCrossoverArgs(args.Seed, args.RNGSeed, args.Refund)
	if err != nil {
		return GasCallDataResponse{}, err
	}
	owner, err := keys.DeriveStakeSecretKey(a.seed, args.SenderIndex)
	if err != nil {
		return GasCallDataResponse{}, invalid("sender_index", err)
	}
	staker, err := keys.DeriveStakeSecretKey(a.seed, args.OwnerIndex)
	if err != nil {
		return GasCallDataResponse{}, invalid("owner_index", err)
	}
	call, err := stake.AllowCall(owner, staker.PublicKey(), args.Counter)
	if err != nil {
		return GasCallDataResponse{}, err
	}
	return gasCallResponse(a, call, args.GasLimit, args.GasPrice)
}

func gasCallResponse(a crossoverArgs, call *utx.CallData, gasLimit, gasPrice uint64) (GasCallDataResponse, error) {
	fee, ci, err := stake.NewGasCrossover(a.rng, a.refund, gasLimit, gasPrice)
	if err != nil {
		return GasCallDataResponse{}, err
	}
	f, c, b := encodeFeeCrossover(fee, *ci)
	return GasCallDataResponse{
		CallDataResponse: callResponse(call),
		Fee:              f,
		Crossover:        c,
		Blinder:          b,
	}, nil
}

func callResponse(call *utx.CallData) CallDataResponse {
	return CallDataResponse{
		Contract: roles.FormatContractID(call.Contract),
		Method:   call.Method,
		Payload:  call.Payload,
	}
}
