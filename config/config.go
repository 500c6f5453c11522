// Package config handles wallet runtime configuration.
//
// Everything here is operational: storage locations, bridge listener
// settings, KDF cost parameters and timeouts. Chain definitions live in
// the network registry, not here.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds wallet runtime configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	// Bridge is the content-surface JSON-RPC listener.
	Bridge BridgeConfig

	// Vault holds the Argon2id cost parameters for newly sealed secrets.
	Vault VaultConfig

	// Chain holds chain RPC client settings.
	Chain ChainConfig

	// Approval bounds how long dApp requests may await the user.
	Approval ApprovalConfig

	// Log holds logging settings.
	Log LogConfig
}

// BridgeConfig holds the dApp bridge listener settings.
type BridgeConfig struct {
	Enabled     bool     `conf:"bridge.enabled"`
	Addr        string   `conf:"bridge.addr"`
	Port        int      `conf:"bridge.port"`
	AllowedIPs  []string `conf:"bridge.allowed"`
	CORSOrigins []string `conf:"bridge.cors"` // Allowed CORS origins ("*" = all).
}

// VaultConfig holds key-derivation cost settings.
type VaultConfig struct {
	Memory      int `conf:"vault.memory"` // KiB
	Iterations  int `conf:"vault.iterations"`
	Parallelism int `conf:"vault.parallelism"`
}

// ChainConfig holds RPC client settings.
type ChainConfig struct {
	Timeout     time.Duration `conf:"chain.timeout"`
	ConfirmPoll time.Duration `conf:"chain.confirm_poll"`
}

// ApprovalConfig holds dApp approval settings.
type ApprovalConfig struct {
	Timeout time.Duration `conf:"approval.timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.wattx-wallet
//	macOS:   ~/Library/Application Support/WattxWallet
//	Windows: %APPDATA%\WattxWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wattx-wallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "WattxWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "WattxWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "WattxWallet")
	default:
		return filepath.Join(home, ".wattx-wallet")
	}
}

// VaultDir returns the encrypted secret storage directory.
func (c *Config) VaultDir() string {
	return filepath.Join(c.DataDir, "vault")
}

// StateDir returns the wallet state database directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}

// CredentialsDir returns the platform-credential storage directory.
func (c *Config) CredentialsDir() string {
	return filepath.Join(c.DataDir, "credentials")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "wallet.conf")
}
