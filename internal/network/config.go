// Package network manages chain configurations: the compiled-in network
// table, user-added custom networks, and the active chain selection.
package network

import (
	"fmt"
	"strings"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// ChainFamily groups chains that share a derivation path and signature
// scheme. It is an explicit tag on each config so derivation and signing
// dispatch on a closed enum instead of symbol strings.
type ChainFamily string

const (
	// FamilyEVM covers Ethereum-style chains: coin type 60, keccak
	// addresses, EVM transaction signing.
	FamilyEVM ChainFamily = "evm"

	// FamilyUTXO covers QTUM-style chains (WATTx, QTUM): coin type 2301,
	// Base58Check addresses, bitcoin-style ECDSA signing.
	FamilyUTXO ChainFamily = "utxo"
)

// Valid reports whether f is a known family.
func (f ChainFamily) Valid() bool {
	return f == FamilyEVM || f == FamilyUTXO
}

// InscriptionType tags which inscription format a chain indexes.
type InscriptionType string

const (
	InscriptionOrdinals InscriptionType = "ordinals"
	InscriptionBRC20    InscriptionType = "brc20"
	InscriptionStamps   InscriptionType = "stamps"
	InscriptionRunes    InscriptionType = "runes"
)

// Config describes one chain. Built-in configs are compiled-in constants;
// custom configs are user-supplied and persisted.
type Config struct {
	ChainID         uint64      `json:"chain_id"`
	ChainIDHex      string      `json:"chain_id_hex"`
	Name            string      `json:"name"`
	Symbol          string      `json:"symbol"`
	Decimals        int         `json:"decimals"`
	RPCURLs         []string    `json:"rpc_urls"`
	ExplorerURL     string      `json:"explorer_url"`
	ExplorerAPIURL  string      `json:"explorer_api_url,omitempty"`
	IsTestnet       bool        `json:"is_testnet"`
	SupportsEIP1559 bool        `json:"supports_eip1559"`
	Family          ChainFamily `json:"family"`
	IsCustom        bool        `json:"is_custom,omitempty"`
	LogoURL         string      `json:"logo_url,omitempty"`

	// Capability flags.
	SupportsStaking      bool            `json:"supports_staking,omitempty"`
	SupportsMining       bool            `json:"supports_mining,omitempty"`
	SupportsInscriptions bool            `json:"supports_inscriptions,omitempty"`
	InscriptionType      InscriptionType `json:"inscription_type,omitempty"`
}

// Validate checks the structural invariants of a config.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("%w: chain id is required", errs.ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", errs.ErrValidation)
	}
	if c.Decimals <= 0 || c.Decimals > 36 {
		return fmt.Errorf("%w: decimals %d out of range", errs.ErrValidation, c.Decimals)
	}
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("%w: at least one RPC endpoint is required", errs.ErrValidation)
	}
	for _, u := range c.RPCURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%w: RPC endpoint %q must be http(s)", errs.ErrValidation, u)
		}
	}
	if c.ChainIDHex == "" {
		c.ChainIDHex = fmt.Sprintf("0x%x", c.ChainID)
	} else if c.ChainIDHex != fmt.Sprintf("0x%x", c.ChainID) {
		return fmt.Errorf("%w: chain_id_hex %q does not encode chain id %d", errs.ErrValidation, c.ChainIDHex, c.ChainID)
	}
	if c.Family == "" {
		c.Family = FamilyEVM
	}
	if !c.Family.Valid() {
		return fmt.Errorf("%w: unknown chain family %q", errs.ErrValidation, c.Family)
	}
	return nil
}

// ExplorerAddressURL returns the explorer page for an address, or "" when
// the chain has no explorer configured.
func (c *Config) ExplorerAddressURL(address string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/address/" + address
}

// ExplorerTxURL returns the explorer page for a transaction hash.
func (c *Config) ExplorerTxURL(txHash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + txHash
}
