package network

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// fakeProber answers chain-id probes from a fixed table.
type fakeProber struct {
	chains map[string]uint64 // url -> chain id
}

func (p *fakeProber) ProbeChainID(_ context.Context, rpcURL string) (uint64, error) {
	id, ok := p.chains[rpcURL]
	if !ok {
		return 0, fmt.Errorf("%w: dial %s", errs.ErrNetworkUnavailable, rpcURL)
	}
	return id, nil
}

func customConfig() Config {
	return Config{
		ChainID:  999,
		Name:     "Testchain",
		Symbol:   "TST",
		Decimals: 18,
		RPCURLs:  []string{"https://rpc.testchain.example"},
	}
}

func newTestRegistry(t *testing.T, prober Prober) *Registry {
	t.Helper()
	r, err := NewRegistry(storage.NewMemory(), prober)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

func TestRegistry_Builtins(t *testing.T) {
	r := newTestRegistry(t, nil)

	cfg, err := r.Get(81)
	if err != nil {
		t.Fatalf("Get(81) error: %v", err)
	}
	if cfg.Symbol != "WATTx" || cfg.Family != FamilyUTXO {
		t.Errorf("Get(81) = %+v, want WATTx/utxo", cfg)
	}

	cfg, err = r.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error: %v", err)
	}
	if cfg.Family != FamilyEVM || !cfg.SupportsEIP1559 {
		t.Errorf("Ethereum config = %+v, want evm/eip1559", cfg)
	}

	if _, err := r.Get(424242); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ChainIDsUnique(t *testing.T) {
	seen := make(map[uint64]bool)
	for _, cfg := range Builtins() {
		if seen[cfg.ChainID] {
			t.Errorf("duplicate built-in chain id %d", cfg.ChainID)
		}
		seen[cfg.ChainID] = true
	}
}

func TestRegistry_AddCustom(t *testing.T) {
	prober := &fakeProber{chains: map[string]uint64{
		"https://rpc.testchain.example": 999,
	}}
	r := newTestRegistry(t, prober)

	if err := r.AddCustom(context.Background(), customConfig()); err != nil {
		t.Fatalf("AddCustom() error: %v", err)
	}

	cfg, err := r.Get(999)
	if err != nil {
		t.Fatalf("Get(999) error: %v", err)
	}
	if !cfg.IsCustom {
		t.Error("custom network not flagged IsCustom")
	}
	if cfg.ChainIDHex != "0x3e7" {
		t.Errorf("ChainIDHex = %q, want 0x3e7", cfg.ChainIDHex)
	}
}

func TestRegistry_AddCustom_ChainIDMismatch(t *testing.T) {
	prober := &fakeProber{chains: map[string]uint64{
		"https://rpc.testchain.example": 1000, // endpoint lies
	}}
	r := newTestRegistry(t, prober)

	err := r.AddCustom(context.Background(), customConfig())
	if !errors.Is(err, errs.ErrChainMismatch) {
		t.Errorf("AddCustom() error = %v, want ErrChainMismatch", err)
	}
}

func TestRegistry_AddCustom_Unreachable(t *testing.T) {
	prober := &fakeProber{chains: map[string]uint64{}}
	r := newTestRegistry(t, prober)

	err := r.AddCustom(context.Background(), customConfig())
	if !errors.Is(err, errs.ErrNetworkUnavailable) {
		t.Errorf("AddCustom() error = %v, want ErrNetworkUnavailable", err)
	}
}

func TestRegistry_AddCustom_CollidesWithBuiltin(t *testing.T) {
	r := newTestRegistry(t, nil)

	cfg := customConfig()
	cfg.ChainID = 1 // Ethereum
	cfg.ChainIDHex = ""
	err := r.AddCustom(context.Background(), cfg)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("AddCustom(collision) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_AddCustom_CollidesWithCustom(t *testing.T) {
	prober := &fakeProber{chains: map[string]uint64{
		"https://rpc.testchain.example": 999,
	}}
	r := newTestRegistry(t, prober)

	if err := r.AddCustom(context.Background(), customConfig()); err != nil {
		t.Fatalf("AddCustom() error: %v", err)
	}
	err := r.AddCustom(context.Background(), customConfig())
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("AddCustom(duplicate) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_AddCustom_InvalidShape(t *testing.T) {
	r := newTestRegistry(t, nil)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no name", func(c *Config) { c.Name = "" }},
		{"no symbol", func(c *Config) { c.Symbol = "" }},
		{"no rpc", func(c *Config) { c.RPCURLs = nil }},
		{"bad scheme", func(c *Config) { c.RPCURLs = []string{"ws://x"} }},
		{"zero decimals", func(c *Config) { c.Decimals = 0 }},
		{"hex mismatch", func(c *Config) { c.ChainIDHex = "0x1" }},
		{"bad family", func(c *Config) { c.Family = "solana" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := customConfig()
			tt.mutate(&cfg)
			if err := r.AddCustom(context.Background(), cfg); !errors.Is(err, errs.ErrValidation) {
				t.Errorf("AddCustom() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegistry_RemoveBuiltin(t *testing.T) {
	r := newTestRegistry(t, nil)
	if err := r.Remove(81); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Remove(builtin) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_RemoveCustom(t *testing.T) {
	prober := &fakeProber{chains: map[string]uint64{
		"https://rpc.testchain.example": 999,
	}}
	r := newTestRegistry(t, prober)

	if err := r.AddCustom(context.Background(), customConfig()); err != nil {
		t.Fatalf("AddCustom() error: %v", err)
	}
	if err := r.SetActive(999); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}

	if err := r.Remove(999); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, err := r.Get(999); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get(removed) error = %v, want ErrNotFound", err)
	}
	// Removing the active chain falls back to the default.
	if r.Active() != DefaultChainID {
		t.Errorf("Active() = %d after removing active chain, want %d", r.Active(), DefaultChainID)
	}

	if err := r.Remove(999); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Remove(again) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_SetActive(t *testing.T) {
	r := newTestRegistry(t, nil)

	if r.Active() != DefaultChainID {
		t.Errorf("initial Active() = %d, want %d", r.Active(), DefaultChainID)
	}
	if err := r.SetActive(137); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}
	if r.Active() != 137 {
		t.Errorf("Active() = %d, want 137", r.Active())
	}
	if err := r.SetActive(424242); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("SetActive(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Persistence(t *testing.T) {
	db := storage.NewMemory()
	prober := &fakeProber{chains: map[string]uint64{
		"https://rpc.testchain.example": 999,
	}}

	r1, err := NewRegistry(db, prober)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if err := r1.AddCustom(context.Background(), customConfig()); err != nil {
		t.Fatalf("AddCustom() error: %v", err)
	}
	if err := r1.SetActive(999); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}

	// Fresh registry over the same storage sees the same state.
	r2, err := NewRegistry(db, prober)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if _, err := r2.Get(999); err != nil {
		t.Errorf("custom network not persisted: %v", err)
	}
	if r2.Active() != 999 {
		t.Errorf("active chain not persisted: got %d", r2.Active())
	}
}

func TestRegistry_VersionBumps(t *testing.T) {
	r := newTestRegistry(t, nil)
	v0 := r.Version()
	if err := r.SetActive(137); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}
	if r.Version() == v0 {
		t.Error("Version() unchanged after SetActive")
	}
}

func TestConfig_ExplorerURLs(t *testing.T) {
	cfg := Config{ExplorerURL: "https://wattxscan.io/"}
	if got := cfg.ExplorerAddressURL("Qabc"); got != "https://wattxscan.io/address/Qabc" {
		t.Errorf("ExplorerAddressURL = %q", got)
	}
	if got := cfg.ExplorerTxURL("0xdead"); got != "https://wattxscan.io/tx/0xdead" {
		t.Errorf("ExplorerTxURL = %q", got)
	}
	empty := Config{}
	if got := empty.ExplorerTxURL("0xdead"); got != "" {
		t.Errorf("ExplorerTxURL on empty config = %q, want empty", got)
	}
}
