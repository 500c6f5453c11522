// Package vault guards the recovery phrase: it validates mnemonics, seals
// the phrase under a password-derived key, and owns the unlocked seed for
// the duration of a session.
package vault

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Entropy sizes for 12- and 24-word mnemonics.
const (
	EntropyBits12Words = 128
	EntropyBits24Words = 256
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// GenerateMnemonic creates a new BIP-39 mnemonic with the given entropy
// strength (EntropyBits12Words or EntropyBits24Words).
func GenerateMnemonic(strength int) (string, error) {
	entropy, err := bip39.NewEntropy(strength)
	if err != nil {
		return "", fmt.Errorf("%w: entropy strength %d: %v", errs.ErrInvalidInput, strength, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a 512-bit seed from a mnemonic using
// PBKDF2-SHA512 as specified in BIP-39. The passphrase is empty: the
// wallet's password protects storage, not derivation, so the same phrase
// always reproduces the same accounts.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", errs.ErrInvalidInput)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
