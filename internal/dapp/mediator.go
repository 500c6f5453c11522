package dapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/chainclient"
	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Notifier pushes provider events (chainChanged, accountsChanged) to a
// content surface. One-way; delivery failures are the transport's problem.
type Notifier interface {
	Notify(origin, event string, payload any)
}

// SigningHandler executes an approved signing method. The host UI owns
// it: it prompts for the password, borrows the seed and drives the
// signing service, so key material never flows through the mediator.
type SigningHandler func(ctx context.Context, origin, method string, params []json.RawMessage) (any, error)

// rpcRequest is the inbound content-surface message shape.
type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// Mediator routes dApp requests: classifies, gates behind approvals,
// and dispatches to the account manager, network registry or the active
// chain client. Every Handle call is an independent task; direct reads
// never block behind a pending approval.
type Mediator struct {
	networks  *network.Registry
	accounts  *accounts.Manager
	clients   *chainclient.Factory
	approvals *Approvals
	sessions  *Sessions
	signer    SigningHandler
	notifier  Notifier
	logger    zerolog.Logger
}

// Config wires a Mediator.
type Config struct {
	Networks  *network.Registry
	Accounts  *accounts.Manager
	Clients   *chainclient.Factory
	Approvals *Approvals
	Sessions  *Sessions
	Signer    SigningHandler
	Notifier  Notifier
}

// NewMediator creates a mediator from its collaborators.
func NewMediator(cfg Config) *Mediator {
	return &Mediator{
		networks:  cfg.Networks,
		accounts:  cfg.Accounts,
		clients:   cfg.Clients,
		approvals: cfg.Approvals,
		sessions:  cfg.Sessions,
		signer:    cfg.Signer,
		notifier:  cfg.Notifier,
		logger:    log.DApp,
	}
}

// Approvals exposes the approval tracker for the host UI.
func (m *Mediator) Approvals() *Approvals { return m.approvals }

// Sessions exposes the session store for the host UI.
func (m *Mediator) Sessions() *Sessions { return m.sessions }

// Handle processes one inbound request and returns the response JSON.
// The content surface only ever sees {id, result} or {id, error}.
func (m *Mediator) Handle(ctx context.Context, origin string, raw []byte) []byte {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return marshalResponse(rpcResponse{
			ID:    json.RawMessage("null"),
			Error: &rpcError{Code: errs.CodeParseError, Message: "parse error"},
		})
	}
	if req.Method == "" {
		return marshalResponse(rpcResponse{
			ID:    idOrNull(req.ID),
			Error: &rpcError{Code: errs.CodeInvalidRequest, Message: "missing method"},
		})
	}

	result, err := m.dispatch(ctx, origin, req)
	if err != nil {
		m.logger.Debug().Str("origin", origin).Str("method", req.Method).
			Err(err).Msg("request failed")
		return marshalResponse(rpcResponse{ID: idOrNull(req.ID), Error: toRPCError(req.Method, err)})
	}
	if result == nil {
		result = json.RawMessage("null")
	}
	return marshalResponse(rpcResponse{ID: idOrNull(req.ID), Result: result})
}

func (m *Mediator) dispatch(ctx context.Context, origin string, req rpcRequest) (any, error) {
	switch classify(req.Method) {
	case classDirect:
		return m.dispatchDirect(ctx, origin, req)
	case classApproval:
		params, _ := json.Marshal(req.Params)
		if err := m.approvals.Wait(ctx, origin, req.Method, params); err != nil {
			return nil, err
		}
		return m.dispatchApproved(ctx, origin, req)
	default:
		return m.passthrough(ctx, req.Method, req.Params)
	}
}

func (m *Mediator) dispatchDirect(ctx context.Context, origin string, req rpcRequest) (any, error) {
	switch req.Method {
	case "eth_chainId":
		return m.networks.ActiveConfig().ChainIDHex, nil
	case "net_version":
		return strconv.FormatUint(m.networks.Active(), 10), nil
	case "eth_accounts":
		if sess, ok := m.sessions.Get(origin); ok {
			return sess.Accounts, nil
		}
		return []string{}, nil
	case "wallet_getPermissions":
		if sess, ok := m.sessions.Get(origin); ok {
			return permissionObjects(sess.Permissions), nil
		}
		return []any{}, nil
	default:
		return m.passthrough(ctx, req.Method, req.Params)
	}
}

func (m *Mediator) dispatchApproved(ctx context.Context, origin string, req rpcRequest) (any, error) {
	if signingMethods[req.Method] {
		if m.signer == nil {
			return nil, fmt.Errorf("%w: no signing handler installed", errs.ErrUnsupported)
		}
		return m.signer(ctx, origin, req.Method, req.Params)
	}

	switch req.Method {
	case "eth_requestAccounts":
		addrs, err := m.activeAddresses()
		if err != nil {
			return nil, err
		}
		m.sessions.Connect(origin, m.networks.Active(), addrs)
		return addrs, nil

	case "wallet_requestPermissions":
		addrs, err := m.activeAddresses()
		if err != nil {
			return nil, err
		}
		sess := m.sessions.Connect(origin, m.networks.Active(), addrs)
		return permissionObjects(sess.Permissions), nil

	case "wallet_switchEthereumChain":
		return m.switchChain(req.Params)

	case "wallet_addEthereumChain":
		return m.addChain(ctx, req.Params)

	case "wallet_watchAsset":
		return m.watchAsset(ctx, req.Params)

	default:
		return m.passthrough(ctx, req.Method, req.Params)
	}
}

// passthrough forwards a method verbatim to the active chain client.
// Node-level errors come back unchanged.
func (m *Mediator) passthrough(ctx context.Context, method string, params []json.RawMessage) (any, error) {
	client, err := m.clients.Active()
	if err != nil {
		return nil, err
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	var result json.RawMessage
	if err := client.Call(ctx, &result, method, args...); err != nil {
		return nil, err
	}
	return result, nil
}

type switchChainParam struct {
	ChainID string `json:"chainId"`
}

func (m *Mediator) switchChain(params []json.RawMessage) (any, error) {
	var p switchChainParam
	if err := firstParam(params, &p); err != nil {
		return nil, err
	}
	chainID, err := parseChainIDHex(p.ChainID)
	if err != nil {
		return nil, err
	}
	if err := m.networks.SetActive(chainID); err != nil {
		return nil, err
	}

	hexID := m.networks.ActiveConfig().ChainIDHex
	for _, origin := range m.sessions.SetChainAll(chainID) {
		if m.notifier != nil {
			m.notifier.Notify(origin, "chainChanged", hexID)
		}
	}
	m.logger.Info().Uint64("chain_id", chainID).Msg("active chain switched by dapp")
	return nil, nil
}

type addChainParam struct {
	ChainID        string `json:"chainId"`
	ChainName      string `json:"chainName"`
	NativeCurrency struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}

func (m *Mediator) addChain(ctx context.Context, params []json.RawMessage) (any, error) {
	var p addChainParam
	if err := firstParam(params, &p); err != nil {
		return nil, err
	}
	chainID, err := parseChainIDHex(p.ChainID)
	if err != nil {
		return nil, err
	}

	cfg := network.Config{
		ChainID:  chainID,
		Name:     p.ChainName,
		Symbol:   p.NativeCurrency.Symbol,
		Decimals: p.NativeCurrency.Decimals,
		RPCURLs:  p.RPCURLs,
		Family:   network.FamilyEVM,
	}
	if len(p.BlockExplorerURLs) > 0 {
		cfg.ExplorerURL = p.BlockExplorerURLs[0]
	}
	if err := m.networks.AddCustom(ctx, cfg); err != nil {
		return nil, err
	}
	return nil, nil
}

type watchAssetParam struct {
	Type    string `json:"type"`
	Options struct {
		Address string `json:"address"`
	} `json:"options"`
}

func (m *Mediator) watchAsset(ctx context.Context, params []json.RawMessage) (any, error) {
	var p watchAssetParam
	if err := firstParam(params, &p); err != nil {
		return nil, err
	}
	if p.Type != "ERC20" {
		return nil, fmt.Errorf("%w: asset type %q", errs.ErrUnsupported, p.Type)
	}
	client, err := m.clients.Active()
	if err != nil {
		return nil, err
	}
	if _, err := client.TokenMetadata(ctx, p.Options.Address); err != nil {
		return nil, err
	}
	return true, nil
}

// activeAddresses returns the active account's address list on the
// active chain. Derivation happens at unlock time; a missing chain
// wallet here means the host must unlock and ensure it first.
func (m *Mediator) activeAddresses() ([]string, error) {
	acct, err := m.accounts.Active()
	if err != nil {
		return nil, err
	}
	w, ok := acct.Wallet(m.networks.Active())
	if !ok {
		return nil, fmt.Errorf("%w: no wallet derived for chain %d", errs.ErrLocked, m.networks.Active())
	}
	return []string{w.Address}, nil
}

// BroadcastAccountsChanged pushes the active account's addresses to every
// connected origin. The host calls it after an account switch.
func (m *Mediator) BroadcastAccountsChanged() error {
	addrs, err := m.activeAddresses()
	if err != nil {
		return err
	}
	for _, origin := range m.sessions.SetAccountsAll(addrs) {
		if m.notifier != nil {
			m.notifier.Notify(origin, "accountsChanged", addrs)
		}
	}
	return nil
}

// BroadcastChainChanged pushes the active chain id to every connected
// origin. The host calls it after switching networks outside the dApp
// path (CLI, settings screen).
func (m *Mediator) BroadcastChainChanged() {
	cfg := m.networks.ActiveConfig()
	for _, origin := range m.sessions.SetChainAll(cfg.ChainID) {
		if m.notifier != nil {
			m.notifier.Notify(origin, "chainChanged", cfg.ChainIDHex)
		}
	}
}

func firstParam(params []json.RawMessage, out any) error {
	if len(params) == 0 {
		return fmt.Errorf("%w: missing params", errs.ErrInvalidInput)
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return fmt.Errorf("%w: decode params: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

func parseChainIDHex(s string) (uint64, error) {
	if len(s) < 3 || s[:2] != "0x" {
		return 0, fmt.Errorf("%w: chain id %q", errs.ErrInvalidInput, s)
	}
	id, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: chain id %q", errs.ErrInvalidInput, s)
	}
	return id, nil
}

func permissionObjects(perms []string) []map[string]string {
	out := make([]map[string]string, len(perms))
	for i, p := range perms {
		out[i] = map[string]string{"parentCapability": p}
	}
	return out
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// toRPCError maps an internal error onto the single {code, message}
// shape. Node-reported errors pass through with their original code.
func toRPCError(method string, err error) *rpcError {
	var nodeErr *chainclient.RPCError
	if errors.As(err, &nodeErr) {
		return &rpcError{Code: nodeErr.Code, Message: nodeErr.Message}
	}
	code := errs.Code(err)
	// EIP-3326: switching to an unregistered chain has its own code so
	// dapps can offer wallet_addEthereumChain.
	if method == "wallet_switchEthereumChain" && errors.Is(err, errs.ErrNotFound) {
		code = errs.CodeUnrecognizedChain
	}
	return &rpcError{Code: code, Message: err.Error()}
}

func marshalResponse(resp rpcResponse) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return out
}
