package accounts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/ripemd160"

	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// utxoVersionByte is the Base58Check version prefix for the QTUM-family
// chains (addresses start with 'Q').
const utxoVersionByte = 0x3a

// ChainWallet is the derived identity for one account on one chain.
// Public data only.
type ChainWallet struct {
	ChainID        uint64              `json:"chain_id"`
	Family         network.ChainFamily `json:"family"`
	Address        string              `json:"address"`
	PublicKey      string              `json:"public_key"` // hex, compressed
	DerivationPath string              `json:"derivation_path"`
}

// coinType maps a chain family to its SLIP-44 coin type (hardened).
func coinType(family network.ChainFamily) (uint32, error) {
	switch family {
	case network.FamilyEVM:
		return CoinTypeEVM, nil
	case network.FamilyUTXO:
		return CoinTypeQtum, nil
	default:
		return 0, fmt.Errorf("%w: chain family %q", errs.ErrUnsupported, family)
	}
}

// PathString renders the BIP-44 path for a family and account index,
// e.g. m/44'/60'/0'/0/0.
func PathString(family network.ChainFamily, accountIndex uint32) (string, error) {
	coin, err := coinType(family)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("m/44'/%d'/%d'/0/0", coin-bip32.FirstHardenedChild, accountIndex), nil
}

// DeriveKey walks m/44'/coinType'/accountIndex'/0/0 from the seed.
// Callers must Zero the returned key after use.
func DeriveKey(seed []byte, family network.ChainFamily, accountIndex uint32) (*HDKey, error) {
	coin, err := coinType(family)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	key, err := master.DerivePath(
		PurposeBIP44,
		coin,
		bip32.FirstHardenedChild+accountIndex,
		ChangeExternal,
		0,
	)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveChainWallet derives the address and public key for one chain.
// No private key leaves this function.
func DeriveChainWallet(seed []byte, cfg network.Config, accountIndex uint32) (ChainWallet, error) {
	key, err := DeriveKey(seed, cfg.Family, accountIndex)
	if err != nil {
		return ChainWallet{}, err
	}
	defer key.Zero()

	pub := key.PublicKeyBytes()
	var addr string
	switch cfg.Family {
	case network.FamilyEVM:
		addr, err = evmAddress(pub)
	case network.FamilyUTXO:
		addr, err = utxoAddress(pub)
	default:
		err = fmt.Errorf("%w: chain family %q", errs.ErrUnsupported, cfg.Family)
	}
	if err != nil {
		return ChainWallet{}, err
	}

	path, err := PathString(cfg.Family, accountIndex)
	if err != nil {
		return ChainWallet{}, err
	}
	return ChainWallet{
		ChainID:        cfg.ChainID,
		Family:         cfg.Family,
		Address:        addr,
		PublicKey:      hex.EncodeToString(pub),
		DerivationPath: path,
	}, nil
}

// evmAddress computes the EIP-55 checksummed address for a compressed
// public key: keccak256 of the uncompressed point, last 20 bytes.
func evmAddress(compressed []byte) (string, error) {
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub.ToECDSA()).Hex(), nil
}

// utxoAddress computes the Base58Check address for the QTUM family:
// version byte | ripemd160(sha256(compressed pubkey)) | 4-byte checksum.
func utxoAddress(compressed []byte) (string, error) {
	sha := sha256.Sum256(compressed)
	rip := ripemd160.New()
	if _, err := rip.Write(sha[:]); err != nil {
		return "", fmt.Errorf("hash public key: %w", err)
	}

	payload := append([]byte{utxoVersionByte}, rip.Sum(nil)...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...)), nil
}
