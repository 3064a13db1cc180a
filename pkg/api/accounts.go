package api

import (
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/units"
)

// PublicKeys returns the base58 public key of every key index.
func PublicKeys(args SeedArgs) (PublicKeysResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return PublicKeysResponse{}, err
	}
	pks := keys.NewKeySet(seed).PublicKeys()
	resp := PublicKeysResponse{Keys: make([]string, len(pks))}
	for i, pk := range pks {
		resp.Keys[i] = pk.String()
	}
	return resp, nil
}

// ViewKeys returns the encoded view key of every key index.
func ViewKeys(args SeedArgs) (ViewKeysResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return ViewKeysResponse{}, err
	}
	vks := keys.NewKeySet(seed).ViewKeys()
	resp := ViewKeysResponse{ViewKeys: make([][]byte, len(vks))}
	for i, vk := range vks {
		b := vk.Bytes()
		resp.ViewKeys[i] = b[:]
	}
	return resp, nil
}

// Seed derives a seed from a passphrase.
func Seed(args PassphraseArgs) (SeedResponse, error) {
	s := keys.PassphraseSeed(args.Passphrase)
	return SeedResponse{Seed: s[:]}, nil
}

// NewMnemonic draws 32 bytes of entropy from the caller's RNG seed and
// encodes them as a 24-word mnemonic.
func NewMnemonic(args NewMnemonicArgs) (MnemonicResponse, error) {
	rng, err := decodeRNG(args.RNGSeed)
	if err != nil {
		return MnemonicResponse{}, err
	}
	entropy := make([]byte, keys.MnemonicEntropySize)
	if _, err := rng.Read(entropy); err != nil {
		return MnemonicResponse{}, err
	}
	m, err := keys.NewMnemonic(entropy)
	if err != nil {
		return MnemonicResponse{}, err
	}
	return MnemonicResponse{Mnemonic: m}, nil
}

// GetMnemonicSeed stretches a mnemonic and passphrase into a seed.
func GetMnemonicSeed(args GetMnemonicSeedArgs) (SeedResponse, error) {
	s, err := keys.SeedFromMnemonic(args.Mnemonic, args.Passphrase)
	if err != nil {
		return SeedResponse{}, invalid("mnemonic", err)
	}
	return SeedResponse{Seed: s[:]}, nil
}

// DuskToLux converts DUSK to LUX. Fractions below one LUX are rejected.
func DuskToLux(args DuskToLuxArgs) (DuskToLuxResponse, error) {
	lux, err := units.DuskToLux(args.Dusk)
	if err != nil {
		return DuskToLuxResponse{}, invalid("dusk", err)
	}
	return DuskToLuxResponse{Lux: lux}, nil
}

// LuxToDusk converts LUX to DUSK.
func LuxToDusk(args LuxToDuskArgs) (LuxToDuskResponse, error) {
	return LuxToDuskResponse{Dusk: units.LuxToDusk(args.Lux)}, nil
}
