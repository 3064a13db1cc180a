// phoenix-wallet CLI - Phoenix shielded wallet core
//
// The CLI exposes the wallet core operations as JSON calls and keeps a
// local cache of scanned notes.
//
// Example usage:
//
//	# Run any core operation with JSON arguments
//	phoenix-wallet call public_keys '{"seed":"..."}'
//
//	# Create a mnemonic, then derive addresses from it
//	phoenix-wallet mnemonic
//	PHOENIX_MNEMONIC="..." phoenix-wallet keys
//
//	# Scan tree leaves into the cache and show the balance
//	PHOENIX_MNEMONIC="..." phoenix-wallet scan leaves.json
//	PHOENIX_MNEMONIC="..." phoenix-wallet balance 0
//
//	# Parse a payment request
//	phoenix-wallet parse-uri "phoenix:<address>?amount=1.5"
package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"go.uber.org/zap"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/api"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/config"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/payreq"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/units"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

const version = "v0.1.0"

// Environment variables read by the CLI.
const (
	envConfig     = "PHOENIX_CONFIG"
	envMnemonic   = "PHOENIX_MNEMONIC"
	envPassphrase = "PHOENIX_PASSPHRASE"
)

const defaultConfigPath = "phoenix.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return
	}
	if command == "version" {
		fmt.Printf("phoenix-wallet %s\n", version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fail("load config: %v", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		fail("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	switch command {
	case "call":
		cmdCall(logger)
	case "ops":
		cmdOps()
	case "mnemonic":
		cmdMnemonic()
	case "keys":
		cmdKeys()
	case "scan":
		cmdScan(cfg, logger)
	case "spent":
		cmdSpent(cfg, logger)
	case "balance":
		cmdBalance(cfg)
	case "parse-uri":
		cmdParseURI(cfg)
	case "init-config":
		cmdInitConfig(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`phoenix-wallet - Phoenix shielded wallet core

Usage:
  phoenix-wallet <command> [arguments]

Commands:
  call <op> [json]             Run a core operation; arguments from stdin when omitted
  ops                          List the core operations
  mnemonic                     Generate a new 24 word mnemonic
  keys                         Show the addresses of the wallet
  scan <leaves.json>           Cache the owned notes among tree leaves
  spent <nullifiers.json>      Mark cached notes spent by published nullifiers
  balance [index]              Show the balance of the cached unspent notes
  parse-uri <uri>              Parse a phoenix: payment request
  init-config                  Write the current configuration to its file
  version                      Show version information
  help                         Show this help message

Environment:
  PHOENIX_CONFIG               Configuration file (default phoenix.yaml)
  PHOENIX_MNEMONIC             Mnemonic the wallet seed is derived from
  PHOENIX_PASSPHRASE           Optional mnemonic passphrase`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func configPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath())
}

func walletSeed() keys.Seed {
	mnemonic := strings.TrimSpace(os.Getenv(envMnemonic))
	if mnemonic == "" {
		fail("%s is not set", envMnemonic)
	}
	seed, err := keys.SeedFromMnemonic(mnemonic, os.Getenv(envPassphrase))
	if err != nil {
		fail("%v", err)
	}
	return seed
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encode output: %v", err)
	}
}

func cmdCall(logger *zap.Logger) {
	if len(os.Args) < 3 {
		fail("operation required\nUsage: phoenix-wallet call <op> [json]")
	}
	op := os.Args[2]

	var args []byte
	if len(os.Args) > 3 {
		args = []byte(os.Args[3])
	} else {
		var err error
		if args, err = io.ReadAll(os.Stdin); err != nil {
			fail("read arguments: %v", err)
		}
	}

	res := api.NewDispatcher(logger).Call(op, args)
	printJSON(res)
	if !res.Success {
		os.Exit(1)
	}
}

func cmdOps() {
	for _, op := range api.Operations() {
		fmt.Println(op)
	}
}

func cmdMnemonic() {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		fail("read entropy: %v", err)
	}
	mnemonic, err := keys.NewMnemonic(entropy)
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(mnemonic)
}

func cmdKeys() {
	ks := keys.NewKeySet(walletSeed())
	for i, pk := range ks.PublicKeys() {
		sk, err := ks.StakeSecretKey(uint64(i))
		if err != nil {
			fail("%v", err)
		}
		stakePK := sk.PublicKey().Bytes()
		fmt.Printf("Key %d:\n", i)
		fmt.Printf("  Address: %s\n", pk)
		fmt.Printf("  Stake:   %s\n", base58.Encode(stakePK[:]))
	}
}

func cmdParseURI(cfg *config.Config) {
	if len(os.Args) < 3 {
		fail("URI argument required\nUsage: phoenix-wallet parse-uri <uri>")
	}

	req, err := payreq.Parse(os.Args[2])
	if err != nil {
		fail("parse URI: %v", err)
	}

	fmt.Println("Payment Request:")
	fmt.Printf("  Payments: %d\n\n", len(req.Payments))

	var total uint64
	for i, payment := range req.Payments {
		fmt.Printf("Payment %d:\n", i+1)
		fmt.Printf("  Address: %s\n", payment.Address)

		if payment.Amount != nil {
			fmt.Printf("  Amount:  %s DUSK\n", units.FormatDusk(*payment.Amount))
			total += *payment.Amount
		} else {
			fmt.Println("  Amount:  (user specified)")
		}
		if payment.RefID != nil {
			fmt.Printf("  Ref:     %d\n", *payment.RefID)
		}
		if payment.Label != nil {
			fmt.Printf("  Label:   %s\n", *payment.Label)
		}
		if payment.Message != nil {
			fmt.Printf("  Message: %s\n", *payment.Message)
		}
		fmt.Println()
	}

	fmt.Printf("Total:   %s DUSK\n", units.FormatDusk(total))
	fmt.Printf("Max fee: %s DUSK per transaction\n\n", units.FormatDusk(utx.Fee{GasLimit: cfg.GasLimit, GasPrice: cfg.GasPrice}.GasBudget()))
	fmt.Printf("Re-encoded URI:\n%s\n", req.Encode())
}

func cmdInitConfig(cfg *config.Config) {
	path := configPath()
	if err := cfg.Save(path); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Configuration written to %s\n", path)
}
