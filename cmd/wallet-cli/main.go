// wallet-cli manages the wallet from the command line: key setup,
// accounts, networks and simple sends. It opens the data directory
// directly, so stop walletd before running mutating commands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/term"

	"github.com/wattxchange/wallet-core/config"
	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/node"
	"github.com/wattxchange/wallet-core/internal/signing"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/amount"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := ""
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		usage()
		return
	}

	n := openNode(dataDir)
	defer n.Stop()

	switch cmd {
	case "init":
		cmdInit(n, cmdArgs)
	case "import":
		cmdImport(n)
	case "unlock-check":
		cmdUnlockCheck(n)
	case "export":
		cmdExport(n)
	case "accounts":
		cmdAccounts(n)
	case "account":
		cmdAccount(n, cmdArgs)
	case "addresses":
		cmdAddresses(n, cmdArgs)
	case "qr":
		cmdQR(cmdArgs)
	case "balance":
		cmdBalance(n, cmdArgs)
	case "networks":
		cmdNetworks(n)
	case "network":
		cmdNetwork(n, cmdArgs)
	case "send":
		cmdSend(n, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: wallet-cli [--datadir <path>] <command> [flags]

Commands:
  init [--words 24]               Create a new wallet (prints the phrase once)
  import                          Import a wallet from a recovery phrase
  unlock-check                    Verify the password unlocks the vault
  export                          Print the recovery phrase (password required)

  accounts                        List accounts
  account new --name <n>          Create an account
  account use <id>                Set the active account
  account rename <id> <name>      Rename an account
  addresses [--account <id>]      Show per-chain addresses
  qr <address> [--out <file>]     Write an address QR code PNG

  balance [address] [--chain <id>]
                                  Show a native balance
  networks                        List networks
  network add --chain-id <n> --name <n> --symbol <s> --rpc <url,...>
                                  Add a custom EVM network (verifies chain id)
  network remove <chain-id>       Remove a custom network
  network use <chain-id>          Set the active network

  send --to <addr> --amount <amt> [--chain <id>] [--tier low|medium|high] [--wait]
                                  Sign and broadcast a native transfer
`)
}

// openNode wires a local, bridge-less wallet node against the data
// directory.
func openNode(dataDir string) *node.Node {
	cfg := config.Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	values, err := config.LoadFile(cfg.ConfigFile())
	if err == nil {
		if err := config.ApplyFileConfig(cfg, values); err != nil {
			fatal("config file: %v", err)
		}
	}
	cfg.Bridge.Enabled = false
	cfg.Log.Level = "error"

	if err := cfg.Validate(); err != nil {
		fatal("config: %v", err)
	}
	n, err := node.New(cfg)
	if err != nil {
		fatal("%v", err)
	}
	return n
}

// ── key setup ───────────────────────────────────────────────────────────

func cmdInit(n *node.Node, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	words := fs.Int("words", 12, "phrase length: 12 or 24")
	name := fs.String("name", "Account 1", "first account name")
	fs.Parse(args)

	if n.Vault().HasSecret() {
		fatal("wallet already initialized; use import to replace it")
	}

	strength := vault.EntropyBits12Words
	if *words == 24 {
		strength = vault.EntropyBits24Words
	} else if *words != 12 {
		fatal("--words must be 12 or 24")
	}

	mnemonic, err := vault.GenerateMnemonic(strength)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Println("Recovery phrase (write it down, it is shown only once):")
	fmt.Printf("\n  %s\n\n", mnemonic)

	password := readNewPassword()
	acct := installPhrase(n, mnemonic, string(password), *name)
	printAccount(acct)
}

func cmdImport(n *node.Node) {
	fmt.Fprint(os.Stderr, "Enter recovery phrase: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal("reading phrase: %v", err)
	}
	mnemonic := strings.TrimSpace(line)
	if !vault.ValidateMnemonic(mnemonic) {
		fatal("invalid recovery phrase")
	}

	password := readNewPassword()
	if err := n.Accounts().Reset(); err != nil {
		fatal("%v", err)
	}
	acct := installPhrase(n, mnemonic, string(password), "Account 1")
	printAccount(acct)
}

func installPhrase(n *node.Node, mnemonic, password, name string) accounts.WalletAccount {
	if err := n.Vault().Store(mnemonic, password); err != nil {
		fatal("%v", err)
	}
	if err := n.Vault().Unlock(password); err != nil {
		fatal("%v", err)
	}
	seed, err := n.Vault().Seed()
	if err != nil {
		fatal("%v", err)
	}
	defer vault.Zero(seed)

	acct, err := n.Accounts().Create(seed, name)
	if err != nil {
		fatal("%v", err)
	}
	return acct
}

func cmdUnlockCheck(n *node.Node) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("%v", err)
	}
	if err := n.Vault().Unlock(string(password)); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Password OK")
}

func cmdExport(n *node.Node) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("%v", err)
	}
	phrase, err := n.Vault().ExportPhrase(string(password))
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(phrase)
}

// ── accounts ────────────────────────────────────────────────────────────

func cmdAccounts(n *node.Node) {
	list := n.Accounts().List()
	if len(list) == 0 {
		fmt.Println("No accounts. Run 'wallet-cli init' first.")
		return
	}
	activeID := ""
	if active, err := n.Accounts().Active(); err == nil {
		activeID = active.ID
	}
	for _, acct := range list {
		marker := " "
		if acct.ID == activeID {
			marker = "*"
		}
		fmt.Printf("%s %s  index=%d  %s\n", marker, acct.ID, acct.Index, acct.Name)
	}
}

func cmdAccount(n *node.Node, args []string) {
	if len(args) < 1 {
		fatal("Usage: wallet-cli account <new|use|rename> ...")
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("account new", flag.ExitOnError)
		name := fs.String("name", "", "account name")
		fs.Parse(args[1:])
		if *name == "" {
			fatal("--name is required")
		}
		seed := unlockedSeed(n)
		defer vault.Zero(seed)
		acct, err := n.Accounts().Create(seed, *name)
		if err != nil {
			fatal("%v", err)
		}
		printAccount(acct)
	case "use":
		if len(args) < 2 {
			fatal("Usage: wallet-cli account use <id>")
		}
		if err := n.Accounts().SetActive(args[1]); err != nil {
			fatal("%v", err)
		}
		fmt.Println("Active account set")
	case "rename":
		if len(args) < 3 {
			fatal("Usage: wallet-cli account rename <id> <name>")
		}
		if err := n.Accounts().Rename(args[1], strings.Join(args[2:], " ")); err != nil {
			fatal("%v", err)
		}
		fmt.Println("Renamed")
	default:
		fatal("Unknown account subcommand: %s", args[0])
	}
}

func cmdAddresses(n *node.Node, args []string) {
	fs := flag.NewFlagSet("addresses", flag.ExitOnError)
	accountID := fs.String("account", "", "account id (default: active)")
	fs.Parse(args)

	var acct accounts.WalletAccount
	var err error
	if *accountID != "" {
		acct, err = n.Accounts().Get(*accountID)
	} else {
		acct, err = n.Accounts().Active()
	}
	if err != nil {
		fatal("%v", err)
	}

	ids := make([]uint64, 0, len(acct.Wallets))
	for id := range acct.Wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Printf("Account %s (%s)\n", acct.Name, acct.ID)
	for _, id := range ids {
		w := acct.Wallets[id]
		name := fmt.Sprintf("chain %d", id)
		if cfg, err := n.Networks().Get(id); err == nil {
			name = cfg.Name
		}
		fmt.Printf("  %-24s %-6s %s\n", name, w.Family, w.Address)
	}
}

func cmdQR(args []string) {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)
	out := fs.String("out", "address.png", "output PNG path")
	size := fs.Int("size", 256, "image size in pixels")
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fatal("Usage: wallet-cli qr <address> [--out <file>]")
	}
	address := args[0]
	fs.Parse(args[1:])

	png, err := accounts.AddressQR(address, *size)
	if err != nil {
		fatal("%v", err)
	}
	if err := os.WriteFile(*out, png, 0644); err != nil {
		fatal("writing %s: %v", *out, err)
	}
	fmt.Printf("Wrote %s\n", *out)
}

// ── chain queries ───────────────────────────────────────────────────────

func cmdBalance(n *node.Node, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	chainFlag := fs.Uint64("chain", 0, "chain id (default: active)")
	address := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		address = args[0]
		args = args[1:]
	}
	fs.Parse(args)

	chainID := *chainFlag
	if chainID == 0 {
		chainID = n.Networks().Active()
	}
	cfg, err := n.Networks().Get(chainID)
	if err != nil {
		fatal("%v", err)
	}

	if address == "" {
		acct, err := n.Accounts().Active()
		if err != nil {
			fatal("%v", err)
		}
		w, ok := acct.Wallet(chainID)
		if !ok {
			fatal("no address derived for chain %d; unlock once to derive it", chainID)
		}
		address = w.Address
	}

	client, err := n.Clients().Get(chainID)
	if err != nil {
		fatal("%v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bal, err := client.BalanceAt(ctx, address)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s: %s\n", address, amount.FormatWithSymbol(bal, cfg.Decimals, cfg.Symbol))
}

// ── networks ────────────────────────────────────────────────────────────

func cmdNetworks(n *node.Node) {
	active := n.Networks().Active()
	for _, cfg := range n.Networks().All() {
		marker := " "
		if cfg.ChainID == active {
			marker = "*"
		}
		custom := ""
		if cfg.IsCustom {
			custom = " (custom)"
		}
		fmt.Printf("%s %-8d %-24s %-6s %s%s\n",
			marker, cfg.ChainID, cfg.Name, cfg.Symbol, cfg.Family, custom)
	}
}

func cmdNetwork(n *node.Node, args []string) {
	if len(args) < 1 {
		fatal("Usage: wallet-cli network <add|remove|use> ...")
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("network add", flag.ExitOnError)
		chainID := fs.Uint64("chain-id", 0, "chain id")
		name := fs.String("name", "", "network name")
		symbol := fs.String("symbol", "", "native symbol")
		decimals := fs.Int("decimals", 18, "native decimals")
		rpc := fs.String("rpc", "", "RPC URLs, comma-separated")
		explorer := fs.String("explorer", "", "block explorer URL")
		testnet := fs.Bool("testnet", false, "mark as testnet")
		fs.Parse(args[1:])

		cfg := network.Config{
			ChainID:     *chainID,
			Name:        *name,
			Symbol:      *symbol,
			Decimals:    *decimals,
			RPCURLs:     splitList(*rpc),
			ExplorerURL: *explorer,
			IsTestnet:   *testnet,
			Family:      network.FamilyEVM,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.Networks().AddCustom(ctx, cfg); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Added network %d (%s)\n", *chainID, *name)
	case "remove":
		id := parseChainArg(args[1:])
		if err := n.Networks().Remove(id); err != nil {
			fatal("%v", err)
		}
		n.Clients().Remove(id)
		fmt.Printf("Removed network %d\n", id)
	case "use":
		id := parseChainArg(args[1:])
		if err := n.Networks().SetActive(id); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Active network set to %d\n", id)
	default:
		fatal("Unknown network subcommand: %s", args[0])
	}
}

func parseChainArg(args []string) uint64 {
	if len(args) < 1 {
		fatal("chain id required")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid chain id %q", args[0])
	}
	return id
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(n *node.Node, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "recipient address")
	amountStr := fs.String("amount", "", "amount in native units, e.g. 0.5")
	chainFlag := fs.Uint64("chain", 0, "chain id (default: active)")
	tier := fs.String("tier", "medium", "fee tier: low, medium or high")
	wait := fs.Bool("wait", false, "wait for one confirmation")
	fs.Parse(args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: wallet-cli send --to <addr> --amount <amt>")
	}

	chainID := *chainFlag
	if chainID == 0 {
		chainID = n.Networks().Active()
	}
	cfg, err := n.Networks().Get(chainID)
	if err != nil {
		fatal("%v", err)
	}
	if cfg.Family != network.FamilyEVM {
		fatal("send supports EVM chains only; %s is %s", cfg.Name, cfg.Family)
	}

	value, err := amount.Parse(*amountStr, cfg.Decimals)
	if err != nil {
		fatal("%v", err)
	}

	seed := unlockedSeed(n)
	defer vault.Zero(seed)

	acct, err := n.Accounts().Active()
	if err != nil {
		fatal("%v", err)
	}
	wallet, err := n.Accounts().EnsureChainWallet(seed, acct.ID, chainID)
	if err != nil {
		fatal("%v", err)
	}

	client, err := n.Clients().Get(chainID)
	if err != nil {
		fatal("%v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	nonce, err := client.NonceAt(ctx, wallet.Address)
	if err != nil {
		fatal("fetching nonce: %v", err)
	}
	gas, err := client.EstimateGas(ctx, map[string]any{
		"from":  wallet.Address,
		"to":    *to,
		"value": hexutil.EncodeBig(value),
	})
	if err != nil {
		gas = 21000
	}
	est, err := client.EstimateFee(ctx)
	if err != nil {
		fatal("estimating fees: %v", err)
	}
	sel := est.Medium
	switch *tier {
	case "low":
		sel = est.Low
	case "medium":
	case "high":
		sel = est.High
	default:
		fatal("--tier must be low, medium or high")
	}

	req := signing.TxRequest{
		From:  wallet.Address,
		To:    *to,
		Value: (*hexutil.Big)(value),
		Nonce: u64ptr(nonce),
		Gas:   u64ptr(gas),
	}
	if est.EIP1559 {
		req.MaxFeePerGas = (*hexutil.Big)(sel.MaxFeePerGas)
		req.MaxPriorityFeePerGas = (*hexutil.Big)(sel.MaxPriorityFeePerGas)
	} else {
		req.GasPrice = (*hexutil.Big)(sel.GasPrice)
	}

	raw, err := n.Signer().SignTransaction(chainID, acct.Index, req, seed)
	if err != nil {
		fatal("signing: %v", err)
	}
	hash, err := client.Broadcast(ctx, raw)
	if err != nil {
		fatal("broadcasting: %v", err)
	}
	fmt.Printf("Transaction sent: %s\n", hash)

	if *wait {
		fmt.Println("Waiting for confirmation...")
		rcpt, err := client.WaitForConfirmation(ctx, hash, 1)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Confirmed in block %d (status %d)\n", rcpt.BlockNumber, rcpt.Status)
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

func printAccount(acct accounts.WalletAccount) {
	fmt.Printf("Account %s (%s)\n", acct.Name, acct.ID)
	ids := make([]uint64, 0, len(acct.Wallets))
	for id := range acct.Wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	seen := map[string]bool{}
	for _, id := range ids {
		w := acct.Wallets[id]
		if seen[w.Address] {
			continue
		}
		seen[w.Address] = true
		fmt.Printf("  %-6s %s\n", w.Family, w.Address)
	}
}

// unlockedSeed prompts for the password and borrows the seed.
func unlockedSeed(n *node.Node) []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("%v", err)
	}
	if err := n.Vault().Unlock(string(password)); err != nil {
		fatal("%v", err)
	}
	seed, err := n.Vault().Seed()
	if err != nil {
		fatal("%v", err)
	}
	return seed
}

// readNewPassword prompts twice and requires a match.
func readNewPassword() []byte {
	password, err := readPassword("Choose password: ")
	if err != nil {
		fatal("%v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("%v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func u64ptr(v uint64) *hexutil.Uint64 {
	h := hexutil.Uint64(v)
	return &h
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
