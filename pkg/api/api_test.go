package api

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/history"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

var testSeed = keys.PassphraseSeed("api")

func rngSeed(b byte) []byte {
	s := make([]byte, crypto.RNGSeedSize)
	s[0] = b
	return s
}

func call(t *testing.T, op string, args any, resp any) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res := NewDispatcher(zap.NewNop()).Call(op, raw)
	require.True(t, res.Success, op)
	require.NoError(t, json.Unmarshal(res.Payload, resp))
}

// wallet holds positioned notes owned by index 0 and their openings.
type wallet struct {
	pk       keys.PublicKey
	notes    []note.Note
	openings []OpeningArg
}

func newWallet(t *testing.T, values ...uint64) *wallet {
	t.Helper()
	pk, err := keys.DerivePublicKey(testSeed, 0)
	require.NoError(t, err)
	var s [crypto.RNGSeedSize]byte
	rng := crypto.NewRNG(s)

	w := &wallet{pk: pk}
	tree := merkle.NewTree(4)
	for i, v := range values {
		n := note.New(rng, note.Obfuscated, pk, v)
		n.Pos = uint64(i)
		require.NoError(t, tree.Insert(n.Pos, n.Hash()))
		w.notes = append(w.notes, n)
	}
	for _, n := range w.notes {
		o, err := tree.Opening(n.Pos)
		require.NoError(t, err)
		w.openings = append(w.openings, OpeningArg{Opening: o.Bytes(), Pos: n.Pos})
	}
	return w
}

func TestDispatcher_Failures(t *testing.T) {
	d := NewDispatcher(nil)

	res := d.Call("no_such_op", []byte(`{}`))
	assert.False(t, res.Success)
	assert.Nil(t, res.Payload)

	res = d.Call("public_keys", []byte(`{"seed":`))
	assert.False(t, res.Success)
	assert.Nil(t, res.Payload)

	res = d.Call("public_keys", []byte(`{"seed":"AAAA"}`))
	assert.False(t, res.Success)

	_, err := d.Do("public_keys", []byte(`{"seed":"AAAA"}`))
	assert.ErrorIs(t, err, ErrInvalidArgs)
	_, err = d.Do("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestOperations(t *testing.T) {
	ops := Operations()
	assert.Len(t, ops, 24)
	assert.Contains(t, ops, "execute")
	assert.Contains(t, ops, "get_allow_call_data")
	assert.IsIncreasing(t, ops)
}

func TestKeys(t *testing.T) {
	var pks PublicKeysResponse
	call(t, "public_keys", SeedArgs{Seed: testSeed[:]}, &pks)
	require.Len(t, pks.Keys, keys.MaxKey)
	for i, s := range pks.Keys {
		want, err := keys.DerivePublicKey(testSeed, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, want.String(), s)
	}

	var vks ViewKeysResponse
	call(t, "view_keys", SeedArgs{Seed: testSeed[:]}, &vks)
	require.Len(t, vks.ViewKeys, keys.MaxKey)
	vk, err := keys.ViewKeyFromBytes(vks.ViewKeys[1])
	require.NoError(t, err)
	pk, err := keys.DerivePublicKey(testSeed, 1)
	require.NoError(t, err)
	assert.True(t, vk.PublicKey().Equal(pk))

	var seed SeedResponse
	call(t, "seed", PassphraseArgs{Passphrase: "api"}, &seed)
	assert.Equal(t, testSeed[:], seed.Seed)
}

func TestMnemonic(t *testing.T) {
	var m MnemonicResponse
	call(t, "new_mnemonic", NewMnemonicArgs{RNGSeed: rngSeed(1)}, &m)
	var again MnemonicResponse
	call(t, "new_mnemonic", NewMnemonicArgs{RNGSeed: rngSeed(1)}, &again)
	assert.Equal(t, m.Mnemonic, again.Mnemonic)

	var seed SeedResponse
	call(t, "get_mnemonic_seed", GetMnemonicSeedArgs{Mnemonic: m.Mnemonic, Passphrase: "x"}, &seed)
	assert.Len(t, seed.Seed, keys.SeedSize)

	_, err := GetMnemonicSeed(GetMnemonicSeedArgs{Mnemonic: "not a mnemonic"})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestUnits(t *testing.T) {
	var lux DuskToLuxResponse
	call(t, "dusk_to_lux", DuskToLuxArgs{Dusk: decimal.RequireFromString("1.5")}, &lux)
	assert.Equal(t, uint64(1_500_000_000), lux.Lux)

	var dusk LuxToDuskResponse
	call(t, "lux_to_dusk", LuxToDuskArgs{Lux: 250_000_000}, &dusk)
	assert.True(t, dusk.Dusk.Equal(decimal.RequireFromString("0.25")))

	_, err := DuskToLux(DuskToLuxArgs{Dusk: decimal.RequireFromString("0.0000000001")})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestExecute_ProveRoundTrip(t *testing.T) {
	w := newWallet(t, 100, 200, 300)
	receiver, err := keys.DerivePublicKey(testSeed, 1)
	require.NoError(t, err)

	args := ExecuteArgs{
		Seed:     testSeed[:],
		RNGSeed:  rngSeed(7),
		Inputs:   encodeNotes(w.notes),
		Openings: w.openings,
		Output:   &OutputArg{Type: "obfuscated", Receiver: receiver.String(), Value: 250},
		GasLimit: 10,
		GasPrice: 1,
		Refund:   w.pk.String(),
	}
	var resp TxResponse
	call(t, "execute", args, &resp)

	tx, err := utx.Parse(resp.Tx)
	require.NoError(t, err)
	assert.True(t, tx.Signed)
	var in, out uint64
	for _, i := range tx.Inputs {
		in += i.Value
	}
	for _, o := range tx.Outputs {
		out += o.Value
	}
	assert.Equal(t, in, out+10)
	assert.Equal(t, uint64(250), tx.Outputs[len(tx.Outputs)-1].Value)

	var again TxResponse
	call(t, "execute", args, &again)
	assert.Equal(t, resp.Tx, again.Tx)

	var pb BytesResponse
	call(t, "unproven_tx_to_bytes", UnprovenTxArgs{Tx: resp.Tx}, &pb)
	assert.NotEmpty(t, pb.Bytes)

	var proven ProveTxResponse
	call(t, "prove_tx", ProveTxArgs{Tx: resp.Tx, Proof: []byte("proof")}, &proven)
	ptx, err := utx.ParseTransaction(proven.Bytes)
	require.NoError(t, err)
	assert.Equal(t, ptx.ID(), proven.Hash)
}

func TestExecute_Errors(t *testing.T) {
	w := newWallet(t, 100)
	base := func() ExecuteArgs {
		return ExecuteArgs{
			Seed:     testSeed[:],
			RNGSeed:  rngSeed(1),
			Inputs:   encodeNotes(w.notes),
			Openings: w.openings,
			GasLimit: 10,
			GasPrice: 1,
			Refund:   w.pk.String(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*ExecuteArgs)
	}{
		{"short rng seed", func(a *ExecuteArgs) { a.RNGSeed = []byte{1} }},
		{"bad refund", func(a *ExecuteArgs) { a.Refund = "nope" }},
		{"missing opening", func(a *ExecuteArgs) { a.Openings = nil }},
		{"not enough balance", func(a *ExecuteArgs) { a.GasLimit = 1000 }},
		{"foreign sender", func(a *ExecuteArgs) { a.SenderIndex = 2 }},
		{"sender out of range", func(a *ExecuteArgs) { a.SenderIndex = keys.MaxKey }},
		{"bad output type", func(a *ExecuteArgs) {
			a.Output = &OutputArg{Type: "shielded", Receiver: w.pk.String(), Value: 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(&a)
			_, err := Execute(a)
			assert.Error(t, err)
		})
	}
}

func TestExecute_NamesFailingInputByHash(t *testing.T) {
	w := newWallet(t, 100, 200)
	other, err := keys.DerivePublicKey(keys.PassphraseSeed("other"), 0)
	require.NoError(t, err)
	var s [crypto.RNGSeedSize]byte
	s[0] = 3
	foreign := note.New(crypto.NewRNG(s), note.Obfuscated, other, 50)
	foreign.Pos = 9

	_, err = Execute(ExecuteArgs{
		Seed:     testSeed[:],
		RNGSeed:  rngSeed(1),
		Inputs:   encodeNotes(append([]note.Note{foreign}, w.notes...)),
		Openings: w.openings,
		GasLimit: 10,
		GasPrice: 1,
		Refund:   w.pk.String(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), foreign.HashHex())
}

func TestExecute_TargetFollowsExplicitFee(t *testing.T) {
	w := newWallet(t, 100)
	var s [crypto.RNGSeedSize]byte
	rng := crypto.NewRNG(s)
	base := func(fee utx.Fee, gasLimit uint64) ExecuteArgs {
		b := fee.Bytes()
		return ExecuteArgs{
			Seed:     testSeed[:],
			RNGSeed:  rngSeed(2),
			Inputs:   encodeNotes(w.notes),
			Openings: w.openings,
			GasLimit: gasLimit,
			GasPrice: 1,
			Refund:   w.pk.String(),
			Fee:      b[:],
		}
	}

	// The declared fee exceeds the notes even though the gas arguments do not.
	_, err := Execute(base(utx.NewFee(rng, 1000, 1, w.pk), 10))
	assert.Error(t, err)

	// The declared fee fits even though the gas arguments do not.
	resp, err := Execute(base(utx.NewFee(rng, 30, 1, w.pk), 1000))
	require.NoError(t, err)
	tx, err := utx.Parse(resp.Tx)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), tx.Fee.GasLimit)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, uint64(70), tx.Outputs[0].Value)
}

func TestNoteOperations(t *testing.T) {
	w := newWallet(t, 5, 6, 7)
	encoded := encodeNotes(w.notes)

	var merged NotesResponse
	call(t, "merge_notes", MergeNotesArgs{Notes: [][][]byte{encoded[:2], encoded[1:]}}, &merged)
	assert.Len(t, merged.Notes, 3)

	var filtered NotesResponse
	call(t, "filter_notes", FilterNotesArgs{Notes: encoded, Flags: []bool{false, true, false}}, &filtered)
	assert.Len(t, filtered.Notes, 2)
	_, err := FilterNotes(FilterNotesArgs{Notes: encoded, Flags: []bool{true}})
	assert.ErrorIs(t, err, ErrInvalidArgs)

	var nulls NullifiersResponse
	call(t, "nullifiers", NotesArgs{Seed: testSeed[:], Notes: encoded}, &nulls)
	require.Len(t, nulls.Nullifiers, 3)

	var bal history.Balance
	call(t, "balance", NotesArgs{Seed: testSeed[:], Notes: encoded}, &bal)
	assert.Equal(t, history.Balance{Value: 18, Maximum: 18}, bal)

	pks := []string{w.pk.String(), w.pk.String(), w.pk.String()}
	var parts UnspentSpentNotesResponse
	call(t, "unspent_spent_notes", UnspentSpentNotesArgs{
		Notes:              encoded,
		Nullifiers:         nulls.Nullifiers,
		BlockHeights:       []uint64{1, 2, 3},
		PublicKeys:         pks,
		ExistingNullifiers: nulls.Nullifiers[1:2],
	}, &parts)
	require.Len(t, parts.Spent, 1)
	assert.Equal(t, uint64(2), parts.Spent[0].BlockHeight)
	assert.Equal(t, uint64(1), parts.Spent[0].Pos)
	assert.Len(t, parts.Unspent, 2)

	_, err = UnspentSpentNotes(UnspentSpentNotesArgs{Notes: encoded})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestCheckNoteOwnership(t *testing.T) {
	w := newWallet(t, 5, 6)
	other, err := keys.DerivePublicKey(keys.PassphraseSeed("other"), 0)
	require.NoError(t, err)
	var s [crypto.RNGSeedSize]byte
	foreign := note.New(crypto.NewRNG(s), note.Obfuscated, other, 1)
	foreign.Pos = 9
	fb := foreign.Bytes()

	leaves := []LeafArg{{BlockHeight: 3, Note: encodeNotes(w.notes)[0]}, {BlockHeight: 4, Note: fb[:]}, {BlockHeight: 5, Note: encodeNotes(w.notes)[1]}}
	var resp CheckNoteOwnershipResponse
	call(t, "check_note_ownership", CheckNoteOwnershipArgs{Seed: testSeed[:], Leaves: leaves}, &resp)
	assert.Len(t, resp.Notes, 2)
	assert.Equal(t, []uint64{3, 5}, resp.BlockHeights)
	assert.Equal(t, []string{w.pk.String(), w.pk.String()}, resp.PublicKeys)
	assert.Equal(t, uint64(9), resp.LastPos)
}

func TestGetHistory(t *testing.T) {
	w := newWallet(t, 500)
	n := w.notes[0]
	unpositioned := n
	unpositioned.Pos = note.UnsetPos

	var s [crypto.RNGSeedSize]byte
	rng := crypto.NewRNG(s)
	tx := &utx.Transaction{
		Nullifiers: []fr.Element{rng.Element()},
		Outputs:    []note.Note{unpositioned},
		Fee:        utx.NewFee(rng, 100, 2, w.pk),
		Proof:      []byte{1},
	}
	b, err := utx.SerializeTransaction(tx)
	require.NoError(t, err)

	nulls, err := Nullifiers(NotesArgs{Seed: testSeed[:], Notes: encodeNotes(w.notes)})
	require.NoError(t, err)

	args := GetHistoryArgs{
		Seed:  testSeed[:],
		Index: 0,
		Notes: []NoteInfo{{Note: encodeNotes(w.notes)[0], Nullifier: nulls.Nullifiers[0], BlockHeight: 12}},
		TxData: []BlockTxs{{
			BlockHeight: 12,
			Txs:         []history.RawTx{{RawTx: hex.EncodeToString(b), GasSpent: 30}},
		}},
	}
	var resp GetHistoryResponse
	call(t, "get_history", args, &resp)
	require.Len(t, resp.History, 1)
	e := resp.History[0]
	assert.Equal(t, history.In, e.Direction)
	assert.Equal(t, uint64(60), e.Fee)
	assert.Equal(t, tx.ID(), e.ID)
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("0.0000005")), e.Amount.String())
}

func TestStaking(t *testing.T) {
	w := newWallet(t, 10_000)

	var stct STCTProofResponse
	call(t, "get_stct_proof", CrossoverProofArgs{
		Seed: testSeed[:], RNGSeed: rngSeed(3), Refund: w.pk.String(), Value: 1000, GasLimit: 10, GasPrice: 1,
	}, &stct)
	assert.Len(t, stct.Bytes, stake.STCTRequestSize)

	var sc CallDataResponse
	call(t, "get_stake_call_data", GetStakeCallDataArgs{
		Seed: testSeed[:], StakerIndex: 0, Value: 1000, Counter: 0, Proof: []byte("proof"),
	}, &sc)
	assert.Equal(t, stake.MethodStake, sc.Method)

	var resp TxResponse
	call(t, "execute", ExecuteArgs{
		Seed:      testSeed[:],
		RNGSeed:   rngSeed(4),
		Inputs:    encodeNotes(w.notes),
		Openings:  w.openings,
		Fee:       stct.Fee,
		Crossover: &CrossoverArg{Crossover: stct.Crossover, Value: 1000, Blinder: stct.Blinder},
		Call:      &CallArg{Contract: sc.Contract, Method: sc.Method, Payload: sc.Payload},
		GasLimit:  10,
		GasPrice:  1,
		Refund:    w.pk.String(),
	}, &resp)
	tx, err := utx.Parse(resp.Tx)
	require.NoError(t, err)
	require.NotNil(t, tx.Crossover)
	assert.Equal(t, uint64(1000), tx.Crossover.Value)
	assert.Equal(t, stake.ContractID, tx.Call.Contract)
	assert.Equal(t, uint64(10_000-1010), tx.Outputs[0].Value)

	_, err = GetStakeCallData(GetStakeCallDataArgs{Seed: testSeed[:]})
	assert.ErrorIs(t, err, ErrInvalidArgs)

	var wfct WFCTProofResponse
	call(t, "get_wfct_proof", CrossoverProofArgs{
		Seed: testSeed[:], RNGSeed: rngSeed(5), Refund: w.pk.String(), Value: 1000, GasLimit: 10, GasPrice: 1,
	}, &wfct)
	assert.Len(t, wfct.Bytes, stake.WFCTRequestSize)

	var uc CallDataResponse
	call(t, "get_unstake_call_data", GetUnstakeCallDataArgs{
		Seed: testSeed[:], Counter: 1, UnstakeNote: wfct.UnstakeNote, UnstakeProof: []byte("proof"),
	}, &uc)
	assert.Equal(t, stake.MethodUnstake, uc.Method)

	gas := GasCallDataArgs{Seed: testSeed[:], RNGSeed: rngSeed(6), OwnerIndex: 1, Refund: w.pk.String(), Counter: 2, GasLimit: 5, GasPrice: 1}
	var wc GasCallDataResponse
	call(t, "get_withdraw_call_data", gas, &wc)
	assert.Equal(t, stake.MethodWithdraw, wc.Method)
	assert.Len(t, wc.Fee, utx.FeeSize)
	assert.Len(t, wc.Crossover, utx.CrossoverSize)

	var ac GasCallDataResponse
	call(t, "get_allow_call_data", gas, &ac)
	assert.Equal(t, stake.MethodAllow, ac.Method)
	allow, err := stake.AllowFromBytes(ac.Payload)
	require.NoError(t, err)
	staker, err := keys.DeriveStakeSecretKey(testSeed, 1)
	require.NoError(t, err)
	assert.True(t, allow.PublicKey.Equal(staker.PublicKey()))
	assert.True(t, allow.Owner.Verify(stake.AllowMessage(2, allow.PublicKey), allow.Signature))
}

func TestGetStakeInfo(t *testing.T) {
	var info stake.Info
	call(t, "get_stake_info", GetStakeInfoArgs{}, &info)
	assert.False(t, info.HasKey)

	call(t, "get_stake_info", GetStakeInfoArgs{StakeData: &stake.Data{Reward: 3, Counter: 1}}, &info)
	assert.True(t, info.HasKey)
	assert.False(t, info.HasStaked)
	require.NotNil(t, info.Reward)
	assert.Equal(t, uint64(3), *info.Reward)
}
