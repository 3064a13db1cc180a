package keys

import (
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
)

// MnemonicEntropySize is the entropy length for a 24-word mnemonic.
const MnemonicEntropySize = 32

var ErrInvalidMnemonic = errors.New("keys: invalid mnemonic")

// NewMnemonic encodes 32 bytes of entropy as a BIP-39 mnemonic.
func NewMnemonic(entropy []byte) (string, error) {
	if len(entropy) != MnemonicEntropySize {
		return "", fmt.Errorf("keys: mnemonic entropy must be %d bytes, got %d", MnemonicEntropySize, len(entropy))
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return m, nil
}

// SeedFromMnemonic validates the mnemonic and stretches it into a wallet seed.
func SeedFromMnemonic(mnemonic, passphrase string) (Seed, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return Seed{}, ErrInvalidMnemonic
	}
	b, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return SeedFromBytes(b)
}
