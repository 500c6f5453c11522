package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Storage keys within the registry's namespace.
const (
	keyActive       = "active"
	customKeyPrefix = "custom:"
)

// DefaultChainID is the active chain when nothing is persisted.
const DefaultChainID uint64 = 1 // Ethereum

// Prober verifies that an RPC endpoint serves the chain it claims.
// Implemented by the chain client; injected to keep this package free of
// transport concerns.
type Prober interface {
	ProbeChainID(ctx context.Context, rpcURL string) (uint64, error)
}

// Registry resolves chain ids to configs and tracks the active chain.
// Built-ins are compiled in; custom entries and the active chain id are
// persisted and survive restarts.
type Registry struct {
	mu      sync.RWMutex
	db      storage.DB
	prober  Prober
	customs map[uint64]Config
	active  uint64
	version uint64
	logger  zerolog.Logger
}

// NewRegistry creates a registry backed by db, loading any persisted
// custom networks and active chain selection.
func NewRegistry(db storage.DB, prober Prober) (*Registry, error) {
	r := &Registry{
		db:      db,
		prober:  prober,
		customs: make(map[uint64]Config),
		active:  DefaultChainID,
		logger:  log.Networks,
	}

	err := db.ForEach([]byte(customKeyPrefix), func(key, value []byte) error {
		var cfg Config
		if err := json.Unmarshal(value, &cfg); err != nil {
			return fmt.Errorf("parse custom network %s: %w", key, err)
		}
		r.customs[cfg.ChainID] = cfg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load custom networks: %w", err)
	}

	if raw, err := db.Get([]byte(keyActive)); err == nil {
		id, perr := strconv.ParseUint(string(raw), 10, 64)
		if perr == nil && r.configFor(id) != nil {
			r.active = id
		}
	} else if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("load active chain: %w", err)
	}

	r.logger.Info().
		Int("builtin", len(builtins)).
		Int("custom", len(r.customs)).
		Uint64("active", r.active).
		Msg("network registry loaded")
	return r, nil
}

// configFor returns the config for id, or nil. Caller holds no lock
// requirement for built-ins; customs need r.mu.
func (r *Registry) configFor(id uint64) *Config {
	for i := range builtins {
		if builtins[i].ChainID == id {
			cfg := builtins[i]
			return &cfg
		}
	}
	if cfg, ok := r.customs[id]; ok {
		return &cfg
	}
	return nil
}

// Get returns the config for a chain id, or ErrNotFound.
func (r *Registry) Get(chainID uint64) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg := r.configFor(chainID)
	if cfg == nil {
		return Config{}, fmt.Errorf("%w: chain %d", errs.ErrNotFound, chainID)
	}
	return *cfg, nil
}

// Has reports whether a chain id is known.
func (r *Registry) Has(chainID uint64) bool {
	_, err := r.Get(chainID)
	return err == nil
}

// All returns built-ins in declaration order followed by custom networks
// ordered by chain id.
func (r *Registry) All() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(builtins)+len(r.customs))
	out = append(out, builtins...)

	customIDs := make([]uint64, 0, len(r.customs))
	for id := range r.customs {
		customIDs = append(customIDs, id)
	}
	sort.Slice(customIDs, func(i, j int) bool { return customIDs[i] < customIDs[j] })
	for _, id := range customIDs {
		out = append(out, r.customs[id])
	}
	return out
}

// AddCustom validates and persists a user-supplied network. The first
// reachable RPC endpoint must report the same chain id as the config;
// a reachable endpoint reporting a different id is ErrChainMismatch,
// while no reachable endpoint at all is ErrNetworkUnavailable.
func (r *Registry) AddCustom(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	exists := r.configFor(cfg.ChainID) != nil
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: chain id %d already registered", errs.ErrValidation, cfg.ChainID)
	}

	if r.prober != nil {
		if err := r.verifyChainID(ctx, &cfg); err != nil {
			return err
		}
	}

	cfg.IsCustom = true

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock; a concurrent add may have won.
	if r.configFor(cfg.ChainID) != nil {
		return fmt.Errorf("%w: chain id %d already registered", errs.ErrValidation, cfg.ChainID)
	}
	if err := r.persistCustom(cfg); err != nil {
		return err
	}
	r.customs[cfg.ChainID] = cfg
	r.version++

	r.logger.Info().Uint64("chain_id", cfg.ChainID).Str("name", cfg.Name).Msg("custom network added")
	return nil
}

// verifyChainID probes the endpoints in order until one answers.
func (r *Registry) verifyChainID(ctx context.Context, cfg *Config) error {
	var lastErr error
	for _, url := range cfg.RPCURLs {
		reported, err := r.prober.ProbeChainID(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if reported != cfg.ChainID {
			return fmt.Errorf("%w: endpoint %s reports chain %d, config claims %d",
				errs.ErrChainMismatch, url, reported, cfg.ChainID)
		}
		return nil
	}
	return fmt.Errorf("%w: no endpoint answered: %v", errs.ErrNetworkUnavailable, lastErr)
}

// Remove deletes a custom network. Built-ins are never removable. If the
// removed chain was active, the active chain falls back to the default.
func (r *Registry) Remove(chainID uint64) error {
	for i := range builtins {
		if builtins[i].ChainID == chainID {
			return fmt.Errorf("%w: chain %d is built in", errs.ErrValidation, chainID)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customs[chainID]; !ok {
		return fmt.Errorf("%w: chain %d", errs.ErrNotFound, chainID)
	}
	if err := r.db.Delete([]byte(customKey(chainID))); err != nil {
		return fmt.Errorf("delete custom network: %w", err)
	}
	delete(r.customs, chainID)

	if r.active == chainID {
		r.active = DefaultChainID
		if err := r.db.Put([]byte(keyActive), []byte(strconv.FormatUint(r.active, 10))); err != nil {
			return fmt.Errorf("persist active chain: %w", err)
		}
	}
	r.version++

	r.logger.Info().Uint64("chain_id", chainID).Msg("custom network removed")
	return nil
}

// SetActive switches the active chain. The switch is atomic: in-flight
// readers see either the old or the new id, never a torn value.
func (r *Registry) SetActive(chainID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configFor(chainID) == nil {
		return fmt.Errorf("%w: chain %d", errs.ErrNotFound, chainID)
	}
	if err := r.db.Put([]byte(keyActive), []byte(strconv.FormatUint(chainID, 10))); err != nil {
		return fmt.Errorf("persist active chain: %w", err)
	}
	r.active = chainID
	r.version++

	r.logger.Info().Uint64("chain_id", chainID).Msg("active network changed")
	return nil
}

// Active returns the active chain id.
func (r *Registry) Active() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ActiveConfig returns the active chain's config.
func (r *Registry) ActiveConfig() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg := r.configFor(r.active)
	if cfg == nil {
		cfg = r.configFor(DefaultChainID)
	}
	return *cfg
}

// Version returns a counter bumped on every mutation. Callers holding
// chain-scoped caches compare versions instead of polling the full table.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Registry) persistCustom(cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal custom network: %w", err)
	}
	if err := r.db.Put([]byte(customKey(cfg.ChainID)), data); err != nil {
		return fmt.Errorf("persist custom network: %w", err)
	}
	return nil
}

func customKey(chainID uint64) string {
	return customKeyPrefix + strconv.FormatUint(chainID, 10)
}
