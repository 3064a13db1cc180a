package utx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/merkle"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

// buildTx assembles a small signed transaction by hand.
func buildTx(t *testing.T, withCrossover, withCall bool) *UnprovenTransaction {
	t.Helper()
	var seed keys.Seed
	copy(seed[:], bytes.Repeat([]byte{9}, keys.SeedSize))
	ks := keys.NewKeySet(seed)
	sk, _ := ks.SecretKey(0)
	pk, _ := ks.PublicKey(0)
	var rs [crypto.RNGSeedSize]byte
	rng := crypto.NewRNG(rs)

	in := note.New(rng, note.Obfuscated, pk, 1000)
	in.Pos = 3
	tree := merkle.NewTree(4)
	require.NoError(t, tree.Insert(in.Pos, in.Hash()))
	opening, err := tree.Opening(in.Pos)
	require.NoError(t, err)
	vk := sk.ViewKey()
	blinder, err := in.BlindingFactor(&vk)
	require.NoError(t, err)

	out := note.New(rng, note.Obfuscated, pk, 400)
	outBlinder, _ := out.BlindingFactor(&vk)

	tx := &UnprovenTransaction{
		Inputs: []Input{{
			Nullifier: in.Nullifier(sk),
			Opening:   opening,
			Note:      in,
			Value:     1000,
			Blinder:   blinder,
		}},
		Outputs: []Output{{Note: out, Value: 400, Blinder: outBlinder}},
		Anchor:  opening.Root,
		Fee:     NewFee(rng, 100, 1, pk),
	}
	if withCrossover {
		cn := note.NewObfuscated(rng, pk, 50, crypto.ScalarFromUint64(5))
		_, c, err := SplitNote(cn)
		require.NoError(t, err)
		tx.Crossover = &CrossoverInfo{Crossover: c, Value: 50, Blinder: crypto.ScalarFromUint64(5)}
	}
	if withCall {
		tx.Call = &CallData{Contract: ContractID{0x02}, Method: "stake", Payload: []byte{1, 2, 3}}
	}

	hash := tx.BindingHash()
	skR := sk.NoteSecret(in.StealthAddress)
	tx.Inputs[0].PkRPrime = note.NullifierKey(sk, in.StealthAddress)
	tx.Inputs[0].Signature = crypto.SignDouble(rng, skR, hash)
	tx.Signed = true
	return tx
}

func checkRoundTrip(t *testing.T, tx *UnprovenTransaction) {
	t.Helper()
	data, err := Serialize(tx)
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)

	again, err := Serialize(got)
	require.NoError(t, err)
	if !bytes.Equal(data, again) {
		t.Fatalf("round-trip mismatch: %d vs %d bytes", len(data), len(again))
	}
	assert.Equal(t, tx.BindingHash(), got.BindingHash())
}

func TestRoundTrip(t *testing.T) {
	checkRoundTrip(t, buildTx(t, false, false))
	checkRoundTrip(t, buildTx(t, true, false))
	checkRoundTrip(t, buildTx(t, true, true))

	unsigned := buildTx(t, false, true)
	unsigned.Signed = false
	checkRoundTrip(t, unsigned)
}

func TestBindingHash_CoversEveryComponent(t *testing.T) {
	base := buildTx(t, true, true)
	h := base.BindingHash()

	mutations := map[string]func(tx *UnprovenTransaction){
		"nullifier": func(tx *UnprovenTransaction) { tx.Inputs[0].Nullifier = crypto.ElementFromUint64(1) },
		"output":    func(tx *UnprovenTransaction) { tx.Outputs[0].Note.EncryptedData[0] ^= 1 },
		"anchor":    func(tx *UnprovenTransaction) { tx.Anchor = crypto.ElementFromUint64(2) },
		"fee":       func(tx *UnprovenTransaction) { tx.Fee.GasLimit++ },
		"crossover": func(tx *UnprovenTransaction) { tx.Crossover = nil },
		"method":    func(tx *UnprovenTransaction) { tx.Call.Method = "unstake" },
		"payload":   func(tx *UnprovenTransaction) { tx.Call.Payload = []byte{9} },
		"contract":  func(tx *UnprovenTransaction) { tx.Call.Contract[31] = 1 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			data, err := Serialize(base)
			require.NoError(t, err)
			tx, err := Parse(data)
			require.NoError(t, err)
			mutate(tx)
			assert.NotEqual(t, h, tx.BindingHash())
		})
	}

	// Witness fields are not bound.
	data, _ := Serialize(base)
	tx, _ := Parse(data)
	tx.Inputs[0].Value = 1
	tx.Outputs[0].Value = 2
	assert.Equal(t, h, tx.BindingHash())
}

func TestSignature_VerifiesOverBindingHash(t *testing.T) {
	tx := buildTx(t, false, true)
	in := tx.Inputs[0]
	hash := tx.BindingHash()
	assert.True(t, in.Signature.Verify(in.Note.StealthAddress.PkR, in.PkRPrime, hash))
	assert.True(t, in.Opening.Verify(in.Note.Hash()))
	assert.Equal(t, in.Opening.Root, tx.Anchor)
}

func TestParse_Errors(t *testing.T) {
	data, err := Serialize(buildTx(t, false, false))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"short", data[:4]},
		{"magic", append([]byte("XXXX"), data[4:]...)},
		{"version", append(append([]byte(UnprovenMagic), 2, 0, 0, 0), data[8:]...)},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte{}, data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestTransaction_RoundTripAndID(t *testing.T) {
	u := buildTx(t, true, true)
	tx := &Transaction{
		Nullifiers: u.Nullifiers(),
		Outputs:    u.OutputNotes(),
		Anchor:     u.Anchor,
		Fee:        u.Fee,
		Crossover:  u.PublicCrossover(),
		Call:       u.Call,
		Proof:      []byte("proof"),
	}
	assert.Equal(t, u.BindingHash(), tx.Hash())
	assert.Len(t, tx.ID(), 64)

	data, err := SerializeTransaction(tx)
	require.NoError(t, err)
	got, err := ParseTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), got.ID())
	assert.Equal(t, []byte("proof"), got.Proof)
	assert.True(t, got.HasOutput(u.Outputs[0].Note.UnpositionedHash()))
	assert.False(t, got.HasOutput(crypto.ElementFromUint64(1)))

	_, err = ParseTransaction(append([]byte(UnprovenMagic), data[4:]...))
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestProverBytes(t *testing.T) {
	tx := buildTx(t, true, true)
	b, err := tx.ProverBytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(b, append([]byte("stake"), 1, 2, 3)))

	tx.Signed = false
	_, err = tx.ProverBytes()
	var fe *FinalizationError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ErrUnsigned, fe.Code)
}

func TestSplitNote(t *testing.T) {
	var seed keys.Seed
	pk, _ := keys.DerivePublicKey(seed, 0)
	var rs [crypto.RNGSeedSize]byte
	rng := crypto.NewRNG(rs)

	obf := note.New(rng, note.Obfuscated, pk, 10)
	fee, c, err := SplitNote(obf)
	require.NoError(t, err)
	assert.True(t, fee.StealthAddress.Equal(obf.StealthAddress))
	assert.True(t, c.ValueCommitment.Equal(obf.ValueCommitment))
	assert.Equal(t, uint64(0), fee.GasLimit)

	_, _, err = SplitNote(note.New(rng, note.Transparent, pk, 10))
	var ce *ConstructionError
	assert.True(t, errors.As(err, &ce))
}

func TestFee_GasBudget(t *testing.T) {
	assert.Equal(t, uint64(500), Fee{GasLimit: 100, GasPrice: 5}.GasBudget())
	assert.Equal(t, ^uint64(0), Fee{GasLimit: 1 << 40, GasPrice: 1 << 40}.GasBudget())
	assert.Equal(t, uint64(0), Fee{GasLimit: 100}.GasBudget())
}

// oversizedInputs encodes tx with its single input repeated n times,
// bypassing the encoder's input limit.
func oversizedInputs(t *testing.T, tx *UnprovenTransaction, n int) []byte {
	t.Helper()
	data, err := Serialize(tx)
	require.NoError(t, err)

	var chunk bytes.Buffer
	encodeBytes(&chunk, encodeInput(&tx.Inputs[0], tx.Signed))
	// magic, version, signed flag, one-byte input count, then the input.
	rest := data[8+1+1+chunk.Len():]

	var buf bytes.Buffer
	buf.Write(data[:9])
	encodeVarInt(&buf, uint64(n))
	for range n {
		buf.Write(chunk.Bytes())
	}
	buf.Write(rest)
	return buf.Bytes()
}

func TestParse_InputLimit(t *testing.T) {
	tx := buildTx(t, false, false)

	got, err := Parse(oversizedInputs(t, tx, MaxInputs))
	require.NoError(t, err)
	assert.Len(t, got.Inputs, MaxInputs)

	_, err = Parse(oversizedInputs(t, tx, MaxInputs+1))
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.ErrorIs(t, err, errTooManyInputs)

	got.Inputs = append(got.Inputs, got.Inputs[0])
	_, err = Serialize(got)
	var ce *ConstructionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, ErrTooManyInputs, ce.Code)

	proven := &Transaction{Nullifiers: make([]fr.Element, MaxInputs+1), Proof: []byte("proof")}
	_, err = SerializeTransaction(proven)
	assert.ErrorIs(t, err, errTooManyInputs)
}

func TestParse_LargeCountsDoNotPreallocate(t *testing.T) {
	header := func(magic string) []byte {
		b := []byte(magic)
		return binary.LittleEndian.AppendUint32(b, Version1)
	}
	var uvarint [binary.MaxVarintLen64]byte
	count := uvarint[:binary.PutUvarint(uvarint[:], maxSequence)]

	inputs := append(append(header(UnprovenMagic), 0x00), count...)
	outputs := append(append(header(UnprovenMagic), 0x00, 0x00), count...)
	nullifiers := append(header(ProvenMagic), count...)
	notes := append(append(header(ProvenMagic), 0x00), count...)

	for name, data := range map[string][]byte{
		"inputs":     inputs,
		"outputs":    outputs,
		"nullifiers": nullifiers,
		"notes":      notes,
	} {
		t.Run(name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			if bytes.HasPrefix(data, []byte(ProvenMagic)) {
				_, err := ParseTransaction(data)
				assert.Error(t, err)
			} else {
				_, err := Parse(data)
				assert.Error(t, err)
			}
			runtime.ReadMemStats(&after)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}
