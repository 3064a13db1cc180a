package api

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/selection"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Execute assembles a signed unproven transaction.
//
// The inputs must all be owned by the sender key and each must have an
// opening at its position. At most four of them are selected to cover gas,
// the output value and the crossover value; the excess goes back to refund
// as an obfuscated change note, created before the transfer output.
func Execute(args ExecuteArgs) (TxResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return TxResponse{}, err
	}
	rng, err := decodeRNG(args.RNGSeed)
	if err != nil {
		return TxResponse{}, err
	}
	refund, err := decodePublicKey("refund", args.Refund)
	if err != nil {
		return TxResponse{}, err
	}
	sk, err := keys.DeriveSecretKey(seed, args.SenderIndex)
	if err != nil {
		return TxResponse{}, invalid("sender_index", err)
	}
	vk := sk.ViewKey()

	notes, err := decodeNotes(args.Inputs)
	if err != nil {
		return TxResponse{}, err
	}
	openings, err := decodeOpenings(args.Openings)
	if err != nil {
		return TxResponse{}, err
	}

	pool := make([]selection.Candidate, 0, len(notes))
	for _, n := range note.Sanitize(notes) {
		value, blinder, err := n.Open(&vk)
		if err != nil {
			return TxResponse{}, fmt.Errorf("input %s: %w", n.HashHex(), err)
		}
		opening, ok := openings[n.Pos]
		if !ok {
			return TxResponse{}, fmt.Errorf("%w: no opening for position %d", ErrInvalidArgs, n.Pos)
		}
		pool = append(pool, selection.Candidate{
			Note:    n,
			Value:   value,
			Blinder: blinder,
			Index:   args.SenderIndex,
			Opening: &opening,
		})
	}

	var crossover *utx.CrossoverInfo
	if args.Crossover != nil {
		if crossover, err = decodeCrossover(args.Crossover); err != nil {
			return TxResponse{}, err
		}
	}

	var fee utx.Fee
	if len(args.Fee) > 0 {
		if fee, err = utx.FeeFromBytes(args.Fee); err != nil {
			return TxResponse{}, invalid("fee", err)
		}
	} else {
		fee = utx.NewFee(rng, args.GasLimit, args.GasPrice, refund)
	}

	target := fee.GasBudget()
	if args.Output != nil {
		target = addSaturating(target, args.Output.Value)
	}
	if crossover != nil {
		target = addSaturating(target, crossover.Value)
	}

	selected, err := selection.Select(pool, target)
	if err != nil {
		return TxResponse{}, err
	}
	inputs := make([]roles.PreInput, len(selected))
	for i, c := range selected {
		inputs[i] = roles.PreInput{Note: c.Note, Opening: *c.Opening, Value: c.Value, SecretKey: sk}
	}

	var outputs []roles.OutputRequest
	if change := selection.Change(selected, target); change > 0 {
		outputs = append(outputs, roles.OutputRequest{Type: note.Obfuscated, Receiver: args.Refund, Value: change})
	}
	if o := args.Output; o != nil {
		typ, err := parseNoteType(o.Type)
		if err != nil {
			return TxResponse{}, err
		}
		outputs = append(outputs, roles.OutputRequest{Type: typ, Receiver: o.Receiver, Value: o.Value, RefID: o.RefID})
	}

	var call *roles.CallRequest
	if c := args.Call; c != nil {
		call = &roles.CallRequest{Contract: c.Contract, Method: c.Method, Payload: c.Payload}
	}

	tx, err := roles.Assemble(rng, inputs, outputs, fee, crossover, call)
	if err != nil {
		return TxResponse{}, err
	}
	b, err := utx.Serialize(tx)
	if err != nil {
		return TxResponse{}, err
	}
	return TxResponse{Tx: b}, nil
}

// UnprovenTxToBytes converts an encoded unproven transaction into the
// bytes the prover consumes.
func UnprovenTxToBytes(args UnprovenTxArgs) (BytesResponse, error) {
	tx, err := utx.Parse(args.Tx)
	if err != nil {
		return BytesResponse{}, invalid("tx", err)
	}
	b, err := tx.ProverBytes()
	if err != nil {
		return BytesResponse{}, err
	}
	return BytesResponse{Bytes: b}, nil
}

// ProveTx attaches proof to a signed unproven transaction and returns the
// encoded transaction with its hash.
func ProveTx(args ProveTxArgs) (ProveTxResponse, error) {
	tx, err := utx.Parse(args.Tx)
	if err != nil {
		return ProveTxResponse{}, invalid("unproven_tx", err)
	}
	b, hash, err := roles.NewTxExtractor(tx).ExtractBytes(args.Proof)
	if err != nil {
		return ProveTxResponse{}, err
	}
	return ProveTxResponse{Bytes: b, Hash: hash}, nil
}

func decodeOpenings(args []OpeningArg) (map[uint64]merkle.Opening, error) {
	out := make(map[uint64]merkle.Opening, len(args))
	for i, a := range args {
		o, n, err := merkle.FromBytes(a.Opening)
		if err == nil && n != len(a.Opening) {
			err = fmt.Errorf("%d trailing bytes", len(a.Opening)-n)
		}
		if err != nil {
			return nil, invalid(fmt.Sprintf("openings[%d]", i), err)
		}
		out[a.Pos] = o
	}
	return out, nil
}

func decodeCrossover(a *CrossoverArg) (*utx.CrossoverInfo, error) {
	c, err := utx.CrossoverFromBytes(a.Crossover)
	if err != nil {
		return nil, invalid("crossover", err)
	}
	blinder, err := crypto.ScalarFromBytes(a.Blinder)
	if err != nil {
		return nil, invalid("crossover.blinder", err)
	}
	return &utx.CrossoverInfo{Crossover: c, Value: a.Value, Blinder: blinder}, nil
}

func addSaturating(a, b uint64) uint64 {
	if a > ^uint64(0)-b {
		return ^uint64(0)
	}
	return a + b
}
