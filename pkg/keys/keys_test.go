package keys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
)

func testSeed(b byte) Seed {
	var s Seed
	copy(s[:], bytes.Repeat([]byte{b}, SeedSize))
	return s
}

func TestDeriveSecretKey_Deterministic(t *testing.T) {
	seed := testSeed(1)
	for i := uint64(0); i < MaxKey; i++ {
		a, err := DeriveSecretKey(seed, i)
		require.NoError(t, err)
		b, err := DeriveSecretKey(seed, i)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}

	k0, _ := DeriveSecretKey(seed, 0)
	k1, _ := DeriveSecretKey(seed, 1)
	other, _ := DeriveSecretKey(testSeed(2), 0)
	assert.NotEqual(t, k0, k1)
	assert.NotEqual(t, k0, other)
}

func TestDeriveSecretKey_IndexBound(t *testing.T) {
	_, err := DeriveSecretKey(testSeed(1), MaxKey)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = DeriveStakeSecretKey(testSeed(1), MaxKey)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDerivedKeys_Consistent(t *testing.T) {
	seed := testSeed(3)
	sk, err := DeriveSecretKey(seed, 2)
	require.NoError(t, err)
	vk, err := DeriveViewKey(seed, 2)
	require.NoError(t, err)
	pk, err := DerivePublicKey(seed, 2)
	require.NoError(t, err)

	assert.True(t, vk.PublicKey().Equal(pk))
	assert.True(t, sk.PublicKey().Equal(pk))
}

func TestStakeKey_IndependentOfSpendKey(t *testing.T) {
	seed := testSeed(4)
	a, err := DeriveStakeSecretKey(seed, 0)
	require.NoError(t, err)
	b, err := DeriveStakeSecretKey(seed, 0)
	require.NoError(t, err)
	assert.True(t, a.PublicKey().Equal(b.PublicKey()))

	c, err := DeriveStakeSecretKey(seed, 1)
	require.NoError(t, err)
	assert.False(t, a.PublicKey().Equal(c.PublicKey()))
}

func TestStealthAddress_Ownership(t *testing.T) {
	ks := NewKeySet(testSeed(5))
	pk, err := ks.PublicKey(1)
	require.NoError(t, err)
	sk, err := ks.SecretKey(1)
	require.NoError(t, err)

	sa := pk.StealthAddress(crypto.ScalarFromUint64(777))

	vk1, _ := ks.ViewKey(1)
	vk0, _ := ks.ViewKey(0)
	assert.True(t, vk1.Owns(sa))
	assert.False(t, vk0.Owns(sa))

	idx, ok := ks.Owner(sa)
	require.True(t, ok)
	assert.Equal(t, uint64(1), idx)

	skR := sk.NoteSecret(sa)
	assert.True(t, crypto.MulBase(skR).Equal(sa.PkR))
	assert.True(t, vk1.SharedSecret(sa).Equal(pk.SharedSecret(crypto.ScalarFromUint64(777))))

	foreign := NewKeySet(testSeed(6))
	_, ok = foreign.Owner(sa)
	assert.False(t, ok)
}

func TestPublicKey_Base58RoundTrip(t *testing.T) {
	pk, err := DerivePublicKey(testSeed(7), 0)
	require.NoError(t, err)

	got, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	assert.True(t, got.Equal(pk))

	_, err = ParsePublicKey("0OIl")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParsePublicKey("3mJr7AoUXx2Wqd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestViewKey_BytesRoundTrip(t *testing.T) {
	vk, err := DeriveViewKey(testSeed(8), 1)
	require.NoError(t, err)
	enc := vk.Bytes()
	got, err := ViewKeyFromBytes(enc[:])
	require.NoError(t, err)
	assert.Equal(t, vk.A, got.A)
	assert.True(t, vk.B.Equal(got.B))
}

func TestKeySet_Lists(t *testing.T) {
	ks := NewKeySet(testSeed(9))
	pks := ks.PublicKeys()
	vks := ks.ViewKeys()
	require.Len(t, pks, MaxKey)
	require.Len(t, vks, MaxKey)
	for i := range pks {
		assert.True(t, vks[i].PublicKey().Equal(pks[i]))
	}
}

func TestPassphraseSeed(t *testing.T) {
	a := PassphraseSeed("correct horse")
	b := PassphraseSeed("correct horse")
	c := PassphraseSeed("battery staple")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSeedFromBytes(t *testing.T) {
	_, err := SeedFromBytes(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidSeed)
	s, err := SeedFromBytes(bytes.Repeat([]byte{1}, SeedSize))
	require.NoError(t, err)
	assert.Equal(t, testSeed(1), s)
}

func TestMnemonic_RoundTrip(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x42}, MnemonicEntropySize)
	m, err := NewMnemonic(entropy)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(m), 24)

	s1, err := SeedFromMnemonic(m, "")
	require.NoError(t, err)
	s2, err := SeedFromMnemonic(m, "pass")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	_, err = SeedFromMnemonic("not a valid mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = NewMnemonic(entropy[:16])
	assert.Error(t, err)
}
