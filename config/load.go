package config

import "fmt"

// Load builds the effective configuration: defaults, overlaid by the
// config file, overlaid by explicitly-set command-line flags.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	path := flags.Config
	if path == "" {
		path = cfg.ConfigFile()
	}
	values, err := LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, nil, fmt.Errorf("applying config file %s: %w", path, err)
	}

	ApplyFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}
