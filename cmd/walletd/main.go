// Wallet bridge daemon.
//
// Usage:
//
//	walletd [--bridge-addr=... --bridge-port=...] Run the bridge
//	walletd --help                                Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wattxchange/wallet-core/config"
	"github.com/wattxchange/wallet-core/internal/node"
)

func main() {
	cfg, flags, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("walletd %s\n", version)
		return
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
}

const version = "0.1.0"

func usage() {
	fmt.Fprint(os.Stderr, `Usage: walletd [flags]

Flags:
  -datadir <path>            Data directory (default: ~/.wattx-wallet)
  -config <path>             Config file path
  -bridge=<true|false>       Enable the dApp bridge listener (default: true)
  -bridge-addr <addr>        Bridge listen address (default: 127.0.0.1)
  -bridge-port <port>        Bridge listen port (default: 8545)
  -bridge-allowed <list>     Allowed IPs/CIDRs, comma-separated
  -bridge-cors <list>        Allowed CORS origins, comma-separated
  -chain-timeout <dur>       Chain RPC timeout (default: 10s)
  -confirm-poll <dur>        Confirmation polling interval (default: 3s)
  -approval-timeout <dur>    dApp approval timeout (default: 45s)
  -log-level <level>         debug, info, warn, error (default: info)
  -log-file <path>           Log file path
  -log-json                  Log in JSON format
`)
}
