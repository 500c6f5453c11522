// Package node assembles the wallet runtime that backs both the daemon
// and the CLI: storage, vault, networks, accounts, signing and the dApp
// mediator, wired together explicitly at startup.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/config"
	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/bridge"
	"github.com/wattxchange/wallet-core/internal/chainclient"
	"github.com/wattxchange/wallet-core/internal/dapp"
	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/signing"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/internal/vault"
)

// Node is a fully-initialized wallet runtime.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db       storage.DB
	vault    *vault.Vault
	creds    *vault.FileCredentialStore
	networks *network.Registry
	clients  *chainclient.Factory
	accounts *accounts.Manager
	signer   *signing.Service

	approvals *dapp.Approvals
	sessions  *dapp.Sessions
	events    *bridge.Events
	mediator  *dapp.Mediator
	bridge    *bridge.Server
}

// New creates and initializes a wallet node. It performs all setup
// (logger, storage, vault, registry, accounts, mediator) but does not
// bind the bridge listener. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	logFile := cfg.Log.File
	if logFile == "" {
		if err := os.MkdirAll(cfg.LogsDir(), 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(cfg.LogsDir(), "wallet.log")
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := log.WithComponent("node")

	db, err := storage.NewBadger(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.StateDir(), err)
	}
	logger.Info().Str("path", cfg.StateDir()).Msg("Database opened")

	n, err := build(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

// NewWithDB wires a node onto an existing database. Tests use it with
// an in-memory store.
func NewWithDB(cfg *config.Config, db storage.DB) (*Node, error) {
	return build(cfg, db, log.WithComponent("node"))
}

func build(cfg *config.Config, db storage.DB, logger zerolog.Logger) (*Node, error) {
	params := vault.DefaultParams()
	if cfg.Vault.Memory > 0 {
		params.Memory = uint32(cfg.Vault.Memory)
	}
	if cfg.Vault.Iterations > 0 {
		params.Iterations = uint32(cfg.Vault.Iterations)
	}
	if cfg.Vault.Parallelism > 0 {
		params.Parallelism = uint8(cfg.Vault.Parallelism)
	}
	v := vault.New(storage.NewPrefixDB(db, []byte("vault:")), params)

	creds, err := vault.NewFileCredentialStore(cfg.CredentialsDir())
	if err != nil {
		logger.Warn().Err(err).Msg("device credential store unavailable")
		creds = nil
	}

	prober := chainclient.NewProber(cfg.Chain.Timeout)
	networks, err := network.NewRegistry(storage.NewPrefixDB(db, []byte("networks:")), prober)
	if err != nil {
		return nil, fmt.Errorf("loading network registry: %w", err)
	}
	clients := chainclient.NewFactory(networks, cfg.Chain.Timeout)
	clients.SetConfirmPoll(cfg.Chain.ConfirmPoll)

	mgr, err := accounts.NewManager(storage.NewPrefixDB(db, []byte("accounts:")), networks)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	n := &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		vault:     v,
		creds:     creds,
		networks:  networks,
		clients:   clients,
		accounts:  mgr,
		signer:    signing.NewService(networks),
		approvals: dapp.NewApprovals(cfg.Approval.Timeout),
		sessions:  dapp.NewSessions(),
		events:    bridge.NewEvents(),
	}

	n.mediator = dapp.NewMediator(dapp.Config{
		Networks:  networks,
		Accounts:  mgr,
		Clients:   clients,
		Approvals: n.approvals,
		Sessions:  n.sessions,
		Signer:    n.handleSigning,
		Notifier:  n.events,
	})

	if cfg.Bridge.Enabled {
		n.bridge = bridge.New(cfg.Bridge, bridge.Deps{
			Vault:       v,
			Credentials: credentialStore(creds),
			Networks:    networks,
			Clients:     clients,
			Accounts:    mgr,
			Mediator:    n.mediator,
			Events:      n.events,
		})
	}

	logger.Info().
		Uint64("active_chain", networks.Active()).
		Int("networks", len(networks.All())).
		Int("accounts", len(mgr.List())).
		Msg("Wallet node initialized")

	return n, nil
}

// credentialStore converts a possibly-nil concrete store into the
// interface without producing a non-nil interface around a nil pointer.
func credentialStore(creds *vault.FileCredentialStore) vault.CredentialStore {
	if creds == nil {
		return nil
	}
	return creds
}

// Start binds the bridge listener when enabled.
func (n *Node) Start() error {
	if n.bridge == nil {
		return nil
	}
	return n.bridge.Start()
}

// Stop shuts down the bridge, locks the vault and closes storage.
func (n *Node) Stop() {
	if n.bridge != nil {
		if err := n.bridge.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("bridge shutdown error")
		}
	} else {
		n.approvals.CancelAll()
	}
	n.vault.Lock()
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("closing database")
	}
	n.logger.Info().Msg("Wallet node stopped")
}

// BridgeAddr returns the bridge listener address, or "" when disabled.
func (n *Node) BridgeAddr() string {
	if n.bridge == nil {
		return ""
	}
	return n.bridge.Addr()
}

// Vault returns the secret vault.
func (n *Node) Vault() *vault.Vault { return n.vault }

// Credentials returns the device credential store (nil when unavailable).
func (n *Node) Credentials() *vault.FileCredentialStore { return n.creds }

// Networks returns the chain registry.
func (n *Node) Networks() *network.Registry { return n.networks }

// Clients returns the chain client factory.
func (n *Node) Clients() *chainclient.Factory { return n.clients }

// Accounts returns the account manager.
func (n *Node) Accounts() *accounts.Manager { return n.accounts }

// Signer returns the signing service.
func (n *Node) Signer() *signing.Service { return n.signer }

// Mediator returns the dApp mediator.
func (n *Node) Mediator() *dapp.Mediator { return n.mediator }
