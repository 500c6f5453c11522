package config

import "time"

// Default returns the default wallet configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Bridge: BridgeConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Vault: VaultConfig{
			Memory:      64 * 1024, // 64 MB
			Iterations:  3,
			Parallelism: 4,
		},
		Chain: ChainConfig{
			Timeout:     10 * time.Second,
			ConfirmPoll: 3 * time.Second,
		},
		Approval: ApprovalConfig{
			Timeout: 45 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
