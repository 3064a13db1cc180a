package keys

import "github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"

type derived struct {
	sk SecretKey
	vk ViewKey
	pk PublicKey
}

// KeySet derives keys for one seed on first use and caches them for the
// lifetime of a single call. It is not safe for concurrent use.
type KeySet struct {
	seed Seed
	keys map[uint64]*derived
}

// NewKeySet returns an empty key set over seed.
func NewKeySet(seed Seed) *KeySet {
	return &KeySet{seed: seed, keys: make(map[uint64]*derived, MaxKey)}
}

func (ks *KeySet) get(index uint64) (*derived, error) {
	if d, ok := ks.keys[index]; ok {
		return d, nil
	}
	sk, err := DeriveSecretKey(ks.seed, index)
	if err != nil {
		return nil, err
	}
	d := &derived{sk: sk, vk: sk.ViewKey(), pk: sk.PublicKey()}
	ks.keys[index] = d
	return d, nil
}

// SecretKey returns the spend key at index.
func (ks *KeySet) SecretKey(index uint64) (SecretKey, error) {
	d, err := ks.get(index)
	if err != nil {
		return SecretKey{}, err
	}
	return d.sk, nil
}

// ViewKey returns the view key at index.
func (ks *KeySet) ViewKey(index uint64) (ViewKey, error) {
	d, err := ks.get(index)
	if err != nil {
		return ViewKey{}, err
	}
	return d.vk, nil
}

// PublicKey returns the public key at index.
func (ks *KeySet) PublicKey(index uint64) (PublicKey, error) {
	d, err := ks.get(index)
	if err != nil {
		return PublicKey{}, err
	}
	return d.pk, nil
}

// StakeSecretKey returns the stake key at index. Stake keys are not cached.
func (ks *KeySet) StakeSecretKey(index uint64) (crypto.StakeSecretKey, error) {
	return DeriveStakeSecretKey(ks.seed, index)
}

// Owner returns the lowest index whose view key owns the stealth address.
func (ks *KeySet) Owner(sa StealthAddress) (uint64, bool) {
	for i := uint64(0); i < MaxKey; i++ {
		d, err := ks.get(i)
		if err != nil {
			return 0, false
		}
		if d.vk.Owns(sa) {
			return i, true
		}
	}
	return 0, false
}

// PublicKeys returns the public keys for every index.
func (ks *KeySet) PublicKeys() []PublicKey {
	out := make([]PublicKey, 0, MaxKey)
	for i := uint64(0); i < MaxKey; i++ {
		d, _ := ks.get(i)
		out = append(out, d.pk)
	}
	return out
}

// ViewKeys returns the view keys for every index.
func (ks *KeySet) ViewKeys() []ViewKey {
	out := make([]ViewKey, 0, MaxKey)
	for i := uint64(0); i < MaxKey; i++ {
		d, _ := ks.get(i)
		out = append(out, d.vk)
	}
	return out
}
