package chainclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wattxchange/wallet-core/internal/network"
)

// Factory hands out one Client per chain id, created on first use and
// cached until the network is removed.
type Factory struct {
	mu          sync.RWMutex
	reg         *network.Registry
	clients     map[uint64]*Client
	timeout     time.Duration
	confirmPoll time.Duration
}

// NewFactory creates a factory over the network registry.
func NewFactory(reg *network.Registry, timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Factory{
		reg:         reg,
		clients:     make(map[uint64]*Client),
		timeout:     timeout,
		confirmPoll: DefaultConfirmPoll,
	}
}

// SetConfirmPoll sets the confirmation polling interval for clients
// created after the call.
func (f *Factory) SetConfirmPoll(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.confirmPoll = d
	f.mu.Unlock()
}

// Get returns the cached client for chainID, creating it on first use.
func (f *Factory) Get(chainID uint64) (*Client, error) {
	f.mu.RLock()
	c, ok := f.clients[chainID]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}

	cfg, err := f.reg.Get(chainID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[chainID]; ok {
		return c, nil
	}
	c = NewWithTimeout(cfg, f.timeout)
	c.SetConfirmPoll(f.confirmPoll)
	f.clients[chainID] = c
	return c, nil
}

// Active returns the client for the registry's active chain.
func (f *Factory) Active() (*Client, error) {
	return f.Get(f.reg.Active())
}

// Remove drops the cached client for chainID. Called when a network is
// removed or its endpoints change.
func (f *Factory) Remove(chainID uint64) {
	f.mu.Lock()
	delete(f.clients, chainID)
	f.mu.Unlock()
}

// Prober answers chain-id probes for custom-network validation.
// Implements network.Prober; separate from Factory so it can be built
// before the registry exists.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a prober with the given per-probe timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{timeout: timeout}
}

// ProbeChainID queries eth_chainId from a single endpoint.
func (p *Prober) ProbeChainID(ctx context.Context, rpcURL string) (uint64, error) {
	probe := NewWithTimeout(network.Config{RPCURLs: []string{rpcURL}}, p.timeout)
	id, err := probe.NodeChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", rpcURL, err)
	}
	return id, nil
}
