package roles

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

var stakeContract = FormatContractID(utx.ContractID{0x02})

type fixture struct {
	ks     *keys.KeySet
	inputs []PreInput
	fee    utx.Fee
}

func rngFrom(b byte) *crypto.RNG {
	var s [crypto.RNGSeedSize]byte
	s[0] = b
	return crypto.NewRNG(s)
}

// newFixture builds owned notes of the given values, inserts them into a
// tree and returns them as PreInputs.
func newFixture(t *testing.T, values ...uint64) *fixture {
	t.Helper()
	var seed keys.Seed
	copy(seed[:], bytes.Repeat([]byte{0x42}, keys.SeedSize))
	ks := keys.NewKeySet(seed)
	sk, err := ks.SecretKey(0)
	require.NoError(t, err)
	pk, err := ks.PublicKey(0)
	require.NoError(t, err)

	rng := rngFrom(1)
	tree := merkle.NewTree(4)
	notes := make([]note.Note, len(values))
	for i, v := range values {
		notes[i] = note.New(rng, note.Obfuscated, pk, v)
		notes[i].Pos = uint64(i * 7)
		require.NoError(t, tree.Insert(notes[i].Pos, notes[i].Hash()))
	}

	f := &fixture{ks: ks, fee: utx.NewFee(rng, 500, 1, pk)}
	for i, n := range notes {
		opening, err := tree.Opening(n.Pos)
		require.NoError(t, err)
		f.inputs = append(f.inputs, PreInput{Note: n, Opening: opening, Value: values[i], SecretKey: sk})
	}
	return f
}

func (f *fixture) receiver(t *testing.T, index uint64) string {
	t.Helper()
	pk, err := f.ks.PublicKey(index)
	require.NoError(t, err)
	return pk.String()
}

// TestAssemble_EndToEnd mirrors a transfer with change and a contract call:
// assemble, serialize, hand to a prover and extract the final transaction.
func TestAssemble_EndToEnd(t *testing.T) {
	f := newFixture(t, 1000, 2000)
	outputs := []OutputRequest{
		{Type: note.Obfuscated, Receiver: f.receiver(t, 1), Value: 1500},
		{Type: note.Obfuscated, Receiver: f.receiver(t, 0), Value: 1000},
	}
	call := &CallRequest{Contract: stakeContract, Method: "stake", Payload: []byte{1, 2}}

	tx, err := Assemble(rngFrom(2), f.inputs, outputs, f.fee, nil, call)
	require.NoError(t, err)
	require.True(t, tx.Signed)

	// Anchor and nullifiers.
	assert.Equal(t, f.inputs[0].Opening.Root, tx.Anchor)
	require.Len(t, tx.Inputs, 2)
	for i, in := range tx.Inputs {
		assert.Equal(t, f.inputs[i].Note.Nullifier(f.inputs[i].SecretKey), in.Nullifier)
		assert.True(t, in.Opening.Verify(in.Note.Hash()))
	}

	// Signatures bind to the hash.
	hash := tx.BindingHash()
	for _, in := range tx.Inputs {
		assert.True(t, in.Signature.Verify(in.Note.StealthAddress.PkR, in.PkRPrime, hash))
	}

	// Outputs open to their recorded values under the receiver view keys.
	vk1, _ := f.ks.ViewKey(1)
	v, blinder, err := tx.Outputs[0].Note.Open(&vk1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), v)
	assert.Equal(t, tx.Outputs[0].Blinder, blinder)

	require.NotNil(t, tx.Call)
	assert.Equal(t, utx.ContractID{0x02}, tx.Call.Contract)
	assert.Equal(t, "stake", tx.Call.Method)

	// Round trip through the prover encoding.
	data, err := utx.Serialize(tx)
	require.NoError(t, err)
	parsed, err := utx.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, hash, parsed.BindingHash())

	// Extraction.
	final, err := NewTxExtractor(parsed).Extract([]byte("proof"))
	require.NoError(t, err)
	assert.Equal(t, hash, final.Hash())
	h := hash.Bytes()
	assert.Equal(t, hex.EncodeToString(h[:]), final.ID())

	raw, id, err := NewTxExtractor(parsed).ExtractBytes([]byte("proof"))
	require.NoError(t, err)
	assert.Equal(t, final.ID(), id)
	decoded, err := utx.ParseTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.ID())
}

func TestAssemble_Deterministic(t *testing.T) {
	f := newFixture(t, 100)
	outputs := []OutputRequest{{Type: note.Transparent, Receiver: f.receiver(t, 2), Value: 50}}

	a, err := Assemble(rngFrom(9), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)
	b, err := Assemble(rngFrom(9), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)

	da, _ := utx.Serialize(a)
	db, _ := utx.Serialize(b)
	assert.Equal(t, da, db)

	c, err := Assemble(rngFrom(10), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.BindingHash(), c.BindingHash())
}

func TestAssemble_FreshRandomnessPerOutput(t *testing.T) {
	f := newFixture(t, 100)
	r := f.receiver(t, 1)
	outputs := []OutputRequest{
		{Type: note.Obfuscated, Receiver: r, Value: 10},
		{Type: note.Obfuscated, Receiver: r, Value: 10},
	}
	tx, err := Assemble(rngFrom(3), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)
	assert.False(t, tx.Outputs[0].Note.Equal(tx.Outputs[1].Note))
	assert.NotEqual(t, tx.Outputs[0].Blinder, tx.Outputs[1].Blinder)
}

func TestAssemble_RefID(t *testing.T) {
	f := newFixture(t, 100)
	ref := uint64(77)
	outputs := []OutputRequest{{Type: note.Transparent, Receiver: f.receiver(t, 0), Value: 1, RefID: &ref}}
	tx, err := Assemble(rngFrom(4), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, crypto.ElementFromUint64(77), tx.Outputs[0].Note.Nonce)
}

func TestAssemble_Crossover(t *testing.T) {
	f := newFixture(t, 5000)
	pk, _ := f.ks.PublicKey(0)
	blinder := crypto.ScalarFromUint64(12)
	fee, ci, err := NewCrossover(rngFrom(5), pk, 1000, blinder, 300, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), fee.GasLimit)
	assert.Equal(t, uint64(2), fee.GasPrice)
	assert.True(t, ci.Crossover.ValueCommitment.Equal(note.Commitment(1000, blinder)))

	call := &CallRequest{Contract: stakeContract, Method: "stake"}
	tx, err := Assemble(rngFrom(6), f.inputs, nil, fee, ci, call)
	require.NoError(t, err)
	require.NotNil(t, tx.Crossover)
	assert.Equal(t, uint64(1000), tx.Crossover.Value)

	withCrossover := tx.BindingHash()
	tx.Crossover = nil
	assert.NotEqual(t, withCrossover, tx.BindingHash())
}

func TestAssemble_HashBinding(t *testing.T) {
	f := newFixture(t, 100)
	a, err := Assemble(rngFrom(7), f.inputs,
		[]OutputRequest{{Type: note.Transparent, Receiver: f.receiver(t, 1), Value: 10}}, f.fee, nil, nil)
	require.NoError(t, err)
	b, err := Assemble(rngFrom(7), f.inputs,
		[]OutputRequest{{Type: note.Transparent, Receiver: f.receiver(t, 1), Value: 11}}, f.fee, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.BindingHash(), b.BindingHash())
	in := a.Inputs[0]
	assert.False(t, in.Signature.Verify(in.Note.StealthAddress.PkR, in.PkRPrime, b.BindingHash()))
}

func TestAssemble_Errors(t *testing.T) {
	f := newFixture(t, 100, 200, 300, 400, 500)
	valid := []OutputRequest{{Type: note.Transparent, Receiver: f.receiver(t, 0), Value: 1}}

	otherSeed := keys.PassphraseSeed("someone else")
	foreign, err := keys.DeriveSecretKey(otherSeed, 0)
	require.NoError(t, err)
	stolen := f.inputs[0]
	stolen.SecretKey = foreign

	tests := []struct {
		name    string
		inputs  []PreInput
		outputs []OutputRequest
		call    *CallRequest
		code    string
	}{
		{"no inputs", nil, valid, nil, utx.ErrNoInputs},
		{"too many inputs", f.inputs, valid, nil, utx.ErrTooManyInputs},
		{"bad receiver", f.inputs[:1], []OutputRequest{{Receiver: "not-a-key", Value: 1}}, nil, utx.ErrInvalidAddress},
		{"short contract", f.inputs[:1], valid, &CallRequest{Contract: "abc", Method: "x"}, utx.ErrInvalidContractID},
		{"foreign key", []PreInput{stolen}, valid, nil, utx.ErrBlinderRecovery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Assemble(rngFrom(8), tt.inputs, tt.outputs, f.fee, nil, tt.call)
			assert.Nil(t, tx)
			var ce *utx.ConstructionError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}

func TestTxExtractor_Validation(t *testing.T) {
	f := newFixture(t, 100)
	outputs := []OutputRequest{{Type: note.Obfuscated, Receiver: f.receiver(t, 1), Value: 10}}

	tx, err := Assemble(rngFrom(11), f.inputs, outputs, f.fee, nil, nil)
	require.NoError(t, err)

	_, err = NewTxExtractor(tx).Extract(nil)
	var fe *utx.FinalizationError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, utx.ErrInvalidInput, fe.Code)

	// Changing a bound field after signing breaks the signatures.
	tx.Fee.GasPrice++
	_, err = NewTxExtractor(tx).Extract([]byte("proof"))
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, utx.ErrInvalidSignature, fe.Code)

	tx.Signed = false
	_, err = NewTxExtractor(tx).Extract([]byte("proof"))
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, utx.ErrUnsigned, fe.Code)
}

func TestRoles_RejectTooManyInputs(t *testing.T) {
	f := newFixture(t, 100, 200, 300, 400, 500)
	tx, err := Assemble(rngFrom(13), f.inputs[:MaxInputs], nil, f.fee, nil, nil)
	require.NoError(t, err)
	require.Len(t, tx.Inputs, MaxInputs)

	// A fifth input appended behind the constructor's back.
	tx.Inputs = append(tx.Inputs, tx.Inputs[0])

	var fe *utx.FinalizationError
	_, err = NewTxExtractor(tx).Extract([]byte("proof"))
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, utx.ErrTooManyInputs, fe.Code)

	var ce *utx.ConstructionError
	err = NewIoFinalizer(tx).Finalize()
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, utx.ErrTooManyInputs, ce.Code)

	tx.Signed = false
	sks := make([]keys.SecretKey, len(tx.Inputs))
	for i := range sks {
		sks[i] = f.inputs[0].SecretKey
	}
	err = NewSigner(tx).SignAll(rngFrom(14), sks)
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, utx.ErrTooManyInputs, ce.Code)
	assert.False(t, tx.Signed)
}

func TestConstructor_LockedAfterSigning(t *testing.T) {
	f := newFixture(t, 100)
	tx, err := Assemble(rngFrom(12), f.inputs, nil, f.fee, nil, nil)
	require.NoError(t, err)

	c := NewConstructor(tx)
	assert.Error(t, c.AddInput(f.inputs[0]))
	assert.Error(t, c.AddOutput(rngFrom(1), OutputRequest{Receiver: f.receiver(t, 0)}))
	assert.Error(t, c.SetCrossover(nil))
	assert.Error(t, c.SetCall(CallRequest{Contract: stakeContract}))
}

func TestSigner_KeyCountMismatch(t *testing.T) {
	f := newFixture(t, 100)
	tx := NewCreator(f.fee).Create()
	c := NewConstructor(tx)
	require.NoError(t, c.AddInput(f.inputs[0]))

	err := NewSigner(tx).SignAll(rngFrom(1), nil)
	var se *utx.SignatureError
	assert.True(t, errors.As(err, &se))
	assert.False(t, tx.Signed)

	err = NewSigner(tx).SignInput(rngFrom(1), 3, f.inputs[0].SecretKey)
	assert.True(t, errors.As(err, &se))
}

func TestContractID(t *testing.T) {
	id, err := ParseContractID(stakeContract)
	require.NoError(t, err)
	assert.Equal(t, utx.ContractID{0x02}, id)
	assert.Equal(t, stakeContract, FormatContractID(id))
}
