package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string

	// Bridge
	Bridge        bool
	BridgeAddr    string
	BridgePort    int
	BridgeAllowed string
	BridgeCORS    string

	// Timeouts
	ChainTimeout    time.Duration
	ConfirmPoll     time.Duration
	ApprovalTimeout time.Duration

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetBridge  bool
	SetLogJSON bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("wallet", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Bridge
	fs.BoolVar(&f.Bridge, "bridge", true, "Enable the dApp bridge listener")
	fs.StringVar(&f.BridgeAddr, "bridge-addr", "", "Bridge listen address")
	fs.IntVar(&f.BridgePort, "bridge-port", 0, "Bridge listen port")
	fs.StringVar(&f.BridgeAllowed, "bridge-allowed", "", "Allowed IPs for the bridge (comma-separated)")
	fs.StringVar(&f.BridgeCORS, "bridge-cors", "", "Allowed CORS origins (comma-separated)")

	// Timeouts
	fs.DurationVar(&f.ChainTimeout, "chain-timeout", 0, "Chain RPC timeout")
	fs.DurationVar(&f.ConfirmPoll, "confirm-poll", 0, "Confirmation polling interval")
	fs.DurationVar(&f.ApprovalTimeout, "approval-timeout", 0, "dApp approval timeout")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Log in JSON format")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "bridge":
			f.SetBridge = true
		case "log-json":
			f.SetLogJSON = true
		}
	})

	f.Args = fs.Args()
	return f
}

// ApplyFlags overlays explicitly-set flags on a Config. Flags win over
// the config file, which wins over defaults.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.SetBridge {
		cfg.Bridge.Enabled = f.Bridge
	}
	if f.BridgeAddr != "" {
		cfg.Bridge.Addr = f.BridgeAddr
	}
	if f.BridgePort != 0 {
		cfg.Bridge.Port = f.BridgePort
	}
	if f.BridgeAllowed != "" {
		cfg.Bridge.AllowedIPs = parseStringList(f.BridgeAllowed)
	}
	if f.BridgeCORS != "" {
		cfg.Bridge.CORSOrigins = parseStringList(f.BridgeCORS)
	}
	if f.ChainTimeout > 0 {
		cfg.Chain.Timeout = f.ChainTimeout
	}
	if f.ConfirmPoll > 0 {
		cfg.Chain.ConfirmPoll = f.ConfirmPoll
	}
	if f.ApprovalTimeout > 0 {
		cfg.Approval.Timeout = f.ApprovalTimeout
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}
