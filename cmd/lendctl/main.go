// cmd/lendctl/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/export"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/logger"
	"github.com/rovshanmuradov/sui-lending/internal/storage/gormstore"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/rpc"
	"github.com/rovshanmuradov/sui-lending/internal/wallet"
)

const usage = `Usage: lendctl [-config path] <command> [args]

Commands:
  position                 show the wallet position and risk metrics
  price                    show the oracle price
  stats                    show protocol totals
  validate <action> <amt>  check an amount against the current limits
  max <action>             print the maximum amount for an action
  history [-limit n]       list recorded transactions
  export [flags]           export history as csv or json
`

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("Invalid protocol policy: %v", err)
	}

	// stdout отдан под вывод команд
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Console = false
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()
	zl := appLogger.WithComponent("lendctl")

	pool, err := rpc.NewPool(cfg.RPCList, rpc.Options{
		RateLimit: cfg.RPCRateLimit,
		Timeout:   cfg.RPCTimeout(),
		Retries:   cfg.Retries,
		Logger:    zl,
	})
	if err != nil {
		log.Fatalf("Failed to create RPC pool: %v", err)
	}

	store, err := gormstore.Open(cfg.Storage.Driver, cfg.Storage.DSN, zl)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()
	if err := store.RunMigrations(); err != nil {
		log.Fatalf("Failed to migrate storage: %v", err)
	}

	owner := ""
	if cfg.Wallet != "" {
		if err := wallet.ValidateAddress(cfg.Wallet); err != nil {
			log.Fatalf("Invalid wallet_address: %v", err)
		}
		owner = wallet.NormalizeAddress(cfg.Wallet)
	}

	c := &cli{
		out:      os.Stdout,
		reader:   lending.NewReader(sui.NewClient(pool, zl), cfg.Contracts, policy, zl),
		store:    store,
		exporter: export.NewTransactionExporter(zl),
		policy:   policy,
		owner:    owner,
		logger:   zl,
	}

	if err := c.run(ctx, flag.Args()); err != nil {
		zl.Error("Command failed", zap.Strings("args", flag.Args()), zap.Error(err))
		fmt.Fprintf(os.Stderr, "lendctl: %v\n", err)
		os.Exit(1)
	}
}
