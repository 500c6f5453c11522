// Package accounts derives one address per configured chain from a single
// seed and manages the named accounts built on top of those derivations.
// It never holds private keys: derivation borrows the seed, extracts the
// public half, and drops the rest.
package accounts

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// BIP-44 derivation constants.
// Full path: m/44'/coinType'/account'/change/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeEVM covers Ethereum and every EVM-compatible chain (SLIP-44 60).
	CoinTypeEVM = bip32.FirstHardenedChild + 60

	// CoinTypeQtum covers the QTUM-derived UTXO chains (SLIP-44 2301).
	CoinTypeQtum = bip32.FirstHardenedChild + 2301

	// ChangeExternal is the receiving branch. One address per chain per
	// account, so the internal branch is never used.
	ChangeExternal = 0
)

// HDKey wraps a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != vault.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", errs.ErrInvalidInput, vault.SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// PrivateKeyBytes returns the raw 32-byte private key, or nil for a
// public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// Zero overwrites the key material in place.
func (k *HDKey) Zero() {
	vault.Zero(k.key.Key)
	vault.Zero(k.key.ChainCode)
}
