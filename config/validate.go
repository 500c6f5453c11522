package config

import "fmt"

// Validate checks a configuration for operational sanity.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if c.Bridge.Enabled {
		if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
			return fmt.Errorf("bridge.port %d out of range", c.Bridge.Port)
		}
		if c.Bridge.Addr == "" {
			return fmt.Errorf("bridge.addr must not be empty")
		}
	}
	if c.Vault.Memory < 8*1024 {
		return fmt.Errorf("vault.memory %d KiB is below the 8 MiB floor", c.Vault.Memory)
	}
	if c.Vault.Iterations < 1 {
		return fmt.Errorf("vault.iterations must be at least 1")
	}
	if c.Vault.Parallelism < 1 || c.Vault.Parallelism > 255 {
		return fmt.Errorf("vault.parallelism %d out of range", c.Vault.Parallelism)
	}
	if c.Chain.Timeout <= 0 {
		return fmt.Errorf("chain.timeout must be positive")
	}
	if c.Chain.ConfirmPoll <= 0 {
		return fmt.Errorf("chain.confirm_poll must be positive")
	}
	if c.Approval.Timeout <= 0 {
		return fmt.Errorf("approval.timeout must be positive")
	}
	return nil
}
