package bridge

import (
	"context"
	"fmt"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// dispatch routes a host request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "wallet_getStatus":
		return s.handleStatus(req)
	case "wallet_create":
		return s.handleCreate(req)
	case "wallet_import":
		return s.handleImport(req)
	case "wallet_unlock":
		return s.handleUnlock(req)
	case "wallet_unlockAuto":
		return s.handleUnlockAuto(req)
	case "wallet_lock":
		return s.handleLock(req)
	case "wallet_changePassword":
		return s.handleChangePassword(req)
	case "wallet_exportPhrase":
		return s.handleExportPhrase(req)
	case "approval_list":
		return s.handleApprovalList(req)
	case "approval_approve":
		return s.handleApprovalApprove(req)
	case "approval_reject":
		return s.handleApprovalReject(req)
	case "account_list":
		return s.handleAccountList(req)
	case "account_create":
		return s.handleAccountCreate(req)
	case "account_setActive":
		return s.handleAccountSetActive(req)
	case "account_rename":
		return s.handleAccountRename(req)
	case "network_list":
		return s.handleNetworkList(req)
	case "network_add":
		return s.handleNetworkAdd(ctx, req)
	case "network_remove":
		return s.handleNetworkRemove(req)
	case "network_setActive":
		return s.handleNetworkSetActive(req)
	case "session_list":
		return s.handleSessionList(req)
	case "session_disconnect":
		return s.handleSessionDisconnect(req)
	case "chain_getBalance":
		return s.handleBalance(ctx, req)
	case "chain_estimateFee":
		return s.handleEstimateFee(ctx, req)
	default:
		return nil, &Error{Code: errs.CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// hostError maps an internal error onto a JSON-RPC error object.
func hostError(err error) *Error {
	return &Error{Code: errs.Code(err), Message: err.Error()}
}

func (s *Server) handleStatus(_ *Request) (interface{}, *Error) {
	active := s.deps.Networks.ActiveConfig()
	return StatusResult{
		Initialized:      s.deps.Vault.HasSecret(),
		Locked:           s.deps.Vault.Locked(),
		ActiveChainID:    active.ChainID,
		ActiveChainHex:   active.ChainIDHex,
		AccountCount:     len(s.deps.Accounts.List()),
		PendingApprovals: len(s.deps.Mediator.Approvals().Pending()),
		Sessions:         len(s.deps.Mediator.Sessions().All()),
	}, nil
}

func (s *Server) handleCreate(req *Request) (interface{}, *Error) {
	var p CreateParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if s.deps.Vault.HasSecret() {
		return nil, &Error{Code: errs.CodeInvalidParams, Message: "wallet already initialized; use wallet_import to replace it"}
	}

	strength := vault.EntropyBits12Words
	if p.Words == 24 {
		strength = vault.EntropyBits24Words
	}
	mnemonic, err := vault.GenerateMnemonic(strength)
	if err != nil {
		return nil, hostError(err)
	}

	if rpcErr := s.installPhrase(mnemonic, p.Password); rpcErr != nil {
		return nil, rpcErr
	}
	acct, rpcErr := s.createFirstAccount(p.Name)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return CreateResult{Mnemonic: mnemonic, Account: acct}, nil
}

func (s *Server) handleImport(req *Request) (interface{}, *Error) {
	var p ImportParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.installPhrase(p.Mnemonic, p.Password); rpcErr != nil {
		return nil, rpcErr
	}
	// Accounts derived from the previous phrase no longer match.
	if err := s.deps.Accounts.Reset(); err != nil {
		return nil, hostError(err)
	}
	acct, rpcErr := s.createFirstAccount(p.Name)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return ImportResult{Account: acct}, nil
}

// installPhrase stores a phrase and unlocks the vault. Shared by
// wallet_create and wallet_import.
func (s *Server) installPhrase(mnemonic, password string) *Error {
	if err := s.deps.Vault.Store(mnemonic, password); err != nil {
		return hostError(err)
	}
	if err := s.deps.Vault.Unlock(password); err != nil {
		return hostError(err)
	}
	return nil
}

func (s *Server) createFirstAccount(name string) (accounts.WalletAccount, *Error) {
	seed, err := s.deps.Vault.Seed()
	if err != nil {
		return accounts.WalletAccount{}, hostError(err)
	}
	defer vault.Zero(seed)

	if name == "" {
		name = "Account 1"
	}
	acct, err := s.deps.Accounts.Create(seed, name)
	if err != nil {
		return accounts.WalletAccount{}, hostError(err)
	}
	s.logger.Info().Str("account", acct.ID).Msg("wallet initialized")
	return acct, nil
}

func (s *Server) handleUnlock(req *Request) (interface{}, *Error) {
	var p PasswordParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Vault.Unlock(p.Password); err != nil {
		return nil, hostError(err)
	}
	if p.Remember && s.deps.Credentials != nil {
		if err := s.deps.Credentials.StorePassword([]byte(p.Password)); err != nil {
			s.logger.Warn().Err(err).Msg("storing device credential failed")
		}
	}
	s.ensureActiveWallets()
	return true, nil
}

func (s *Server) handleUnlockAuto(_ *Request) (interface{}, *Error) {
	if s.deps.Credentials == nil {
		return nil, &Error{Code: errs.CodeUnsupportedMethod, Message: "no credential store configured"}
	}
	if err := s.deps.Vault.UnlockWithCredential(s.deps.Credentials); err != nil {
		return nil, hostError(err)
	}
	s.ensureActiveWallets()
	return true, nil
}

// ensureActiveWallets derives the active chain's wallet for every
// account that predates the chain (custom networks added while locked).
func (s *Server) ensureActiveWallets() {
	seed, err := s.deps.Vault.Seed()
	if err != nil {
		return
	}
	defer vault.Zero(seed)

	chainID := s.deps.Networks.Active()
	for _, acct := range s.deps.Accounts.List() {
		if _, err := s.deps.Accounts.EnsureChainWallet(seed, acct.ID, chainID); err != nil {
			s.logger.Warn().Err(err).Str("account", acct.ID).
				Uint64("chain_id", chainID).Msg("deriving chain wallet failed")
		}
	}
}

func (s *Server) handleLock(_ *Request) (interface{}, *Error) {
	s.deps.Vault.Lock()
	return true, nil
}

func (s *Server) handleChangePassword(req *Request) (interface{}, *Error) {
	var p ChangePasswordParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Vault.ChangePassword(p.OldPassword, p.NewPassword); err != nil {
		return nil, hostError(err)
	}
	// A stored device credential now holds a stale password.
	if s.deps.Credentials != nil && s.deps.Credentials.Enabled() {
		if err := s.deps.Credentials.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("clearing device credential failed")
		}
	}
	return true, nil
}

func (s *Server) handleExportPhrase(req *Request) (interface{}, *Error) {
	var p PasswordParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	phrase, err := s.deps.Vault.ExportPhrase(p.Password)
	if err != nil {
		return nil, hostError(err)
	}
	return PhraseResult{Mnemonic: phrase}, nil
}

func (s *Server) handleApprovalList(_ *Request) (interface{}, *Error) {
	return ApprovalListResult{Requests: s.deps.Mediator.Approvals().Pending()}, nil
}

func (s *Server) handleApprovalApprove(req *Request) (interface{}, *Error) {
	var p IDParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Mediator.Approvals().Approve(p.ID); err != nil {
		return nil, hostError(err)
	}
	return true, nil
}

func (s *Server) handleApprovalReject(req *Request) (interface{}, *Error) {
	var p IDParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Mediator.Approvals().Reject(p.ID); err != nil {
		return nil, hostError(err)
	}
	return true, nil
}

func (s *Server) handleAccountList(_ *Request) (interface{}, *Error) {
	res := AccountListResult{Accounts: s.deps.Accounts.List()}
	if active, err := s.deps.Accounts.Active(); err == nil {
		res.ActiveID = active.ID
	}
	return res, nil
}

func (s *Server) handleAccountCreate(req *Request) (interface{}, *Error) {
	var p NameParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	seed, err := s.deps.Vault.Seed()
	if err != nil {
		return nil, hostError(err)
	}
	defer vault.Zero(seed)

	acct, err := s.deps.Accounts.Create(seed, p.Name)
	if err != nil {
		return nil, hostError(err)
	}
	return acct, nil
}

func (s *Server) handleAccountSetActive(req *Request) (interface{}, *Error) {
	var p IDParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Accounts.SetActive(p.ID); err != nil {
		return nil, hostError(err)
	}
	if err := s.deps.Mediator.BroadcastAccountsChanged(); err != nil {
		s.logger.Debug().Err(err).Msg("accountsChanged broadcast skipped")
	}
	return true, nil
}

func (s *Server) handleAccountRename(req *Request) (interface{}, *Error) {
	var p RenameParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Accounts.Rename(p.ID, p.Name); err != nil {
		return nil, hostError(err)
	}
	return true, nil
}

func (s *Server) handleNetworkList(_ *Request) (interface{}, *Error) {
	return NetworkListResult{
		Networks: s.deps.Networks.All(),
		ActiveID: s.deps.Networks.Active(),
	}, nil
}

func (s *Server) handleNetworkAdd(ctx context.Context, req *Request) (interface{}, *Error) {
	var cfg network.Config
	if rpcErr := parseParams(req, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Networks.AddCustom(ctx, cfg); err != nil {
		return nil, hostError(err)
	}
	return true, nil
}

func (s *Server) handleNetworkRemove(req *Request) (interface{}, *Error) {
	var p ChainIDParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Networks.Remove(p.ChainID); err != nil {
		return nil, hostError(err)
	}
	s.deps.Clients.Remove(p.ChainID)
	return true, nil
}

func (s *Server) handleNetworkSetActive(req *Request) (interface{}, *Error) {
	var p ChainIDParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.deps.Networks.SetActive(p.ChainID); err != nil {
		return nil, hostError(err)
	}
	s.deps.Mediator.BroadcastChainChanged()
	return true, nil
}

func (s *Server) handleSessionList(_ *Request) (interface{}, *Error) {
	return SessionListResult{Sessions: s.deps.Mediator.Sessions().All()}, nil
}

func (s *Server) handleSessionDisconnect(req *Request) (interface{}, *Error) {
	var p OriginParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	s.deps.Mediator.Sessions().Disconnect(p.Origin)
	return true, nil
}

func (s *Server) handleBalance(ctx context.Context, req *Request) (interface{}, *Error) {
	var p BalanceParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	chainID := p.ChainID
	if chainID == 0 {
		chainID = s.deps.Networks.Active()
	}
	cfg, err := s.deps.Networks.Get(chainID)
	if err != nil {
		return nil, hostError(err)
	}
	client, err := s.deps.Clients.Get(chainID)
	if err != nil {
		return nil, hostError(err)
	}
	bal, err := client.BalanceAt(ctx, p.Address)
	if err != nil {
		return nil, hostError(err)
	}
	return BalanceResult{
		Address: p.Address,
		ChainID: chainID,
		Balance: bal.String(),
		Symbol:  cfg.Symbol,
	}, nil
}

func (s *Server) handleEstimateFee(ctx context.Context, req *Request) (interface{}, *Error) {
	var p ChainIDParam
	if len(req.Params) > 0 {
		if rpcErr := parseParams(req, &p); rpcErr != nil {
			return nil, rpcErr
		}
	}
	chainID := p.ChainID
	if chainID == 0 {
		chainID = s.deps.Networks.Active()
	}
	client, err := s.deps.Clients.Get(chainID)
	if err != nil {
		return nil, hostError(err)
	}
	est, err := client.EstimateFee(ctx)
	if err != nil {
		return nil, hostError(err)
	}
	return est, nil
}
