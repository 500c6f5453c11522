package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "datadir":
		cfg.DataDir = value

	// Bridge
	case "bridge.enabled", "bridge":
		cfg.Bridge.Enabled = parseBool(value)
	case "bridge.addr":
		cfg.Bridge.Addr = value
	case "bridge.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Bridge.Port = port
	case "bridge.allowed":
		cfg.Bridge.AllowedIPs = parseStringList(value)
	case "bridge.cors":
		cfg.Bridge.CORSOrigins = parseStringList(value)

	// Vault
	case "vault.memory":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Memory = n
	case "vault.iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Iterations = n
	case "vault.parallelism":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Parallelism = n

	// Chain
	case "chain.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Chain.Timeout = d
	case "chain.confirm_poll":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Chain.ConfirmPoll = d

	// Approval
	case "approval.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Approval.Timeout = d

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		return fmt.Errorf("unknown config key")
	}
	return nil
}

// parseBool parses a boolean value (true/false, yes/no, 1/0, on/off).
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	default:
		return false
	}
}

// parseStringList parses a comma-separated list.
func parseStringList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
