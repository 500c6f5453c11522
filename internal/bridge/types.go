package bridge

import (
	"encoding/json"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/dapp"
	"github.com/wattxchange/wallet-core/internal/network"
)

// Request is a JSON-RPC 2.0 request on the host control endpoint.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ── Param types ─────────────────────────────────────────────────────────

// CreateParam is used by wallet_create.
type CreateParam struct {
	Password string `json:"password"`
	Words    int    `json:"words,omitempty"` // 12 (default) or 24
	Name     string `json:"name,omitempty"`  // first account name
}

// ImportParam is used by wallet_import.
type ImportParam struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// PasswordParam is used by endpoints that take only a password.
type PasswordParam struct {
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"` // persist a device credential
}

// ChangePasswordParam is used by wallet_changePassword.
type ChangePasswordParam struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// IDParam is used by endpoints that take a single id.
type IDParam struct {
	ID string `json:"id"`
}

// NameParam is used by account_create.
type NameParam struct {
	Name string `json:"name"`
}

// RenameParam is used by account_rename.
type RenameParam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChainIDParam is used by network endpoints.
type ChainIDParam struct {
	ChainID uint64 `json:"chain_id"`
}

// OriginParam is used by session_disconnect.
type OriginParam struct {
	Origin string `json:"origin"`
}

// BalanceParam is used by chain_getBalance. ChainID zero means the
// active chain.
type BalanceParam struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// StatusResult is returned by wallet_getStatus.
type StatusResult struct {
	Initialized      bool   `json:"initialized"`
	Locked           bool   `json:"locked"`
	ActiveChainID    uint64 `json:"active_chain_id"`
	ActiveChainHex   string `json:"active_chain_hex"`
	AccountCount     int    `json:"account_count"`
	PendingApprovals int    `json:"pending_approvals"`
	Sessions         int    `json:"sessions"`
}

// CreateResult is returned by wallet_create. The mnemonic is shown
// exactly once; it is never persisted in cleartext.
type CreateResult struct {
	Mnemonic string                 `json:"mnemonic"`
	Account  accounts.WalletAccount `json:"account"`
}

// ImportResult is returned by wallet_import.
type ImportResult struct {
	Account accounts.WalletAccount `json:"account"`
}

// PhraseResult is returned by wallet_exportPhrase.
type PhraseResult struct {
	Mnemonic string `json:"mnemonic"`
}

// ApprovalListResult is returned by approval_list.
type ApprovalListResult struct {
	Requests []dapp.ApprovalRequest `json:"requests"`
}

// AccountListResult is returned by account_list.
type AccountListResult struct {
	Accounts []accounts.WalletAccount `json:"accounts"`
	ActiveID string                   `json:"active_id,omitempty"`
}

// NetworkListResult is returned by network_list.
type NetworkListResult struct {
	Networks []network.Config `json:"networks"`
	ActiveID uint64           `json:"active_id"`
}

// SessionListResult is returned by session_list.
type SessionListResult struct {
	Sessions []dapp.Session `json:"sessions"`
}

// BalanceResult is returned by chain_getBalance. Balance is the native
// balance in base units, decimal-encoded.
type BalanceResult struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
	Balance string `json:"balance"`
	Symbol  string `json:"symbol"`
}
