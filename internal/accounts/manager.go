package accounts

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

const keyState = "state"

// WalletAccount is one named account: a bundle of per-chain derived
// identities sharing an account index.
type WalletAccount struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Index     uint32                 `json:"index"`
	CreatedAt time.Time              `json:"created_at"`
	Wallets   map[uint64]ChainWallet `json:"wallets"` // chain id -> identity
}

// Wallet returns the derived identity for a chain, if present.
func (a *WalletAccount) Wallet(chainID uint64) (ChainWallet, bool) {
	w, ok := a.Wallets[chainID]
	return w, ok
}

// storedState is the persisted account set. Public data only; losing it
// is recoverable by re-deriving from the phrase.
type storedState struct {
	Version  int             `json:"version"`
	Accounts []WalletAccount `json:"accounts"`
	ActiveID string          `json:"active_id"`
}

// Manager owns the account set and the active-account selection.
// Derivation borrows the seed per call and never retains it.
type Manager struct {
	mu       sync.RWMutex
	db       storage.DB
	networks *network.Registry
	accounts []WalletAccount
	activeID string
	version  uint64
	logger   zerolog.Logger
}

// NewManager loads any persisted account state from db.
func NewManager(db storage.DB, networks *network.Registry) (*Manager, error) {
	m := &Manager{
		db:       db,
		networks: networks,
		logger:   log.Accounts,
	}

	raw, err := db.Get([]byte(keyState))
	if err != nil {
		if storage.IsNotFound(err) {
			return m, nil
		}
		return nil, fmt.Errorf("load account state: %w", err)
	}
	var st storedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: parse account state: %v", errs.ErrCorrupted, err)
	}
	if st.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported account state version %d", errs.ErrCorrupted, st.Version)
	}
	m.accounts = st.Accounts
	m.activeID = st.ActiveID
	return m, nil
}

// persist writes the state under m.mu.
func (m *Manager) persist() error {
	st := storedState{
		Version:  1,
		Accounts: m.accounts,
		ActiveID: m.activeID,
	}
	raw, err := json.Marshal(&st)
	if err != nil {
		return fmt.Errorf("marshal account state: %w", err)
	}
	if err := m.db.Put([]byte(keyState), raw); err != nil {
		return fmt.Errorf("persist account state: %w", err)
	}
	return nil
}

// Create derives a new account at the next free index across all
// registered networks and makes it active if it is the first one.
func (m *Manager) Create(seed []byte, name string) (WalletAccount, error) {
	if name == "" {
		return WalletAccount{}, fmt.Errorf("%w: account name must not be empty", errs.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	index := uint32(0)
	for _, a := range m.accounts {
		if a.Name == name {
			return WalletAccount{}, fmt.Errorf("%w: account name %q already in use", errs.ErrValidation, name)
		}
		if a.Index >= index {
			index = a.Index + 1
		}
	}

	acct := WalletAccount{
		ID:        uuid.NewString(),
		Name:      name,
		Index:     index,
		CreatedAt: time.Now().UTC(),
		Wallets:   make(map[uint64]ChainWallet),
	}
	for _, cfg := range m.networks.All() {
		w, err := DeriveChainWallet(seed, cfg, index)
		if err != nil {
			return WalletAccount{}, fmt.Errorf("derive chain %d: %w", cfg.ChainID, err)
		}
		acct.Wallets[cfg.ChainID] = w
	}

	m.accounts = append(m.accounts, acct)
	if m.activeID == "" {
		m.activeID = acct.ID
	}
	if err := m.persist(); err != nil {
		return WalletAccount{}, err
	}
	m.version++

	m.logger.Info().Str("account", acct.ID).Uint32("index", index).
		Int("chains", len(acct.Wallets)).Msg("account created")
	return acct, nil
}

// List returns a snapshot of all accounts in creation order.
func (m *Manager) List() []WalletAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WalletAccount, len(m.accounts))
	for i, a := range m.accounts {
		out[i] = cloneAccount(a)
	}
	return out
}

// Get returns an account by id.
func (m *Manager) Get(id string) (WalletAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return cloneAccount(a), nil
		}
	}
	return WalletAccount{}, fmt.Errorf("%w: account %s", errs.ErrNotFound, id)
}

// Active returns the currently selected account.
func (m *Manager) Active() (WalletAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == m.activeID {
			return cloneAccount(a), nil
		}
	}
	return WalletAccount{}, fmt.Errorf("%w: no active account", errs.ErrNotFound)
}

// SetActive switches the active account by id.
func (m *Manager) SetActive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			if m.activeID != id {
				m.activeID = id
				if err := m.persist(); err != nil {
					return err
				}
				m.version++
				m.logger.Info().Str("account", id).Msg("active account switched")
			}
			return nil
		}
	}
	return fmt.Errorf("%w: account %s", errs.ErrNotFound, id)
}

// Rename changes an account's display name.
func (m *Manager) Rename(id, name string) error {
	if name == "" {
		return fmt.Errorf("%w: account name must not be empty", errs.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts[i].Name = name
			if err := m.persist(); err != nil {
				return err
			}
			m.version++
			return nil
		}
	}
	return fmt.Errorf("%w: account %s", errs.ErrNotFound, id)
}

// ActiveAddress returns the active account's address on the given chain,
// deriving it on first access if the chain was added after the account.
func (m *Manager) ActiveAddress(seed []byte, chainID uint64) (string, error) {
	m.mu.RLock()
	activeID := m.activeID
	m.mu.RUnlock()
	if activeID == "" {
		return "", fmt.Errorf("%w: no active account", errs.ErrNotFound)
	}
	w, err := m.EnsureChainWallet(seed, activeID, chainID)
	if err != nil {
		return "", err
	}
	return w.Address, nil
}

// EnsureChainWallet returns the account's identity on chainID, deriving
// and persisting it on demand when the chain was registered after the
// account was created.
func (m *Manager) EnsureChainWallet(seed []byte, accountID string, chainID uint64) (ChainWallet, error) {
	m.mu.RLock()
	for _, a := range m.accounts {
		if a.ID == accountID {
			if w, ok := a.Wallets[chainID]; ok {
				m.mu.RUnlock()
				return w, nil
			}
			break
		}
	}
	m.mu.RUnlock()

	cfg, err := m.networks.Get(chainID)
	if err != nil {
		return ChainWallet{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].ID != accountID {
			continue
		}
		// Re-check under the write lock.
		if w, ok := m.accounts[i].Wallets[chainID]; ok {
			return w, nil
		}
		w, err := DeriveChainWallet(seed, cfg, m.accounts[i].Index)
		if err != nil {
			return ChainWallet{}, fmt.Errorf("derive chain %d: %w", chainID, err)
		}
		m.accounts[i].Wallets[chainID] = w
		if err := m.persist(); err != nil {
			return ChainWallet{}, err
		}
		m.version++
		m.logger.Debug().Str("account", accountID).Uint64("chain_id", chainID).
			Msg("chain wallet derived on demand")
		return w, nil
	}
	return ChainWallet{}, fmt.Errorf("%w: account %s", errs.ErrNotFound, accountID)
}

// Reset drops all accounts and the active selection (wallet wipe).
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = nil
	m.activeID = ""
	if err := m.db.Delete([]byte(keyState)); err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("delete account state: %w", err)
	}
	m.version++
	m.logger.Warn().Msg("account state reset")
	return nil
}

// Version increments on every account mutation or switch. Callers cache
// derived views keyed by it.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

func cloneAccount(a WalletAccount) WalletAccount {
	out := a
	out.Wallets = make(map[uint64]ChainWallet, len(a.Wallets))
	for id, w := range a.Wallets {
		out.Wallets[id] = w
	}
	return out
}
