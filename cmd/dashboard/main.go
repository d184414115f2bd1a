// cmd/dashboard/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/events"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/logger"
	"github.com/rovshanmuradov/sui-lending/internal/metrics"
	"github.com/rovshanmuradov/sui-lending/internal/monitor"
	"github.com/rovshanmuradov/sui-lending/internal/storage/gormstore"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/rpc"
	"github.com/rovshanmuradov/sui-lending/internal/ui"
	"github.com/rovshanmuradov/sui-lending/internal/wallet"
)

const (
	logBufferSize   = 1000
	uiChannelSize   = 256
	busBufferSize   = 256
	shutdownTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("Invalid protocol policy: %v", err)
	}

	// stdout занят bubbletea: пишем в файл и в буфер панели логов
	buffer := logger.NewLogBuffer(logBufferSize)
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Console = false
	bufferLevel := zapcore.InfoLevel
	if cfg.DebugLogging {
		bufferLevel = zapcore.DebugLevel
	}
	appLogger, err := logger.New(logCfg, logger.NewBufferCore(buffer, bufferLevel))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	if err := run(rootCtx, cfg, policy, appLogger, buffer); err != nil {
		appLogger.Error("Dashboard failed", zap.Error(err))
		_ = appLogger.Sync()
		log.Fatalf("Dashboard failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, policy config.Policy, appLogger *logger.Logger, buffer *logger.LogBuffer) error {
	zl := appLogger.Logger
	zl.Info("Starting SUI lending dashboard",
		zap.Strings("rpc", cfg.RPCList),
		zap.String("storage", cfg.Storage.Driver))

	collector := metrics.NewCollector(nil)

	pool, err := rpc.NewPool(cfg.RPCList, rpc.Options{
		RateLimit: cfg.RPCRateLimit,
		Timeout:   cfg.RPCTimeout(),
		Retries:   cfg.Retries,
		Logger:    zl,
		Observer:  collector,
	})
	if err != nil {
		return err
	}
	client := sui.NewClient(pool, zl)

	store, err := gormstore.Open(cfg.Storage.Driver, cfg.Storage.DSN, zl)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.RunMigrations(); err != nil {
		return err
	}

	bus := events.NewBus(zl, busBufferSize)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = bus.Shutdown(shutdownCtx)
	}()
	subscribeJournal(bus, appLogger.WithComponent("journal"))

	signer, owner, err := connectWallet(cfg, zl)
	if err != nil {
		return err
	}

	reader := lending.NewReader(client, cfg.Contracts, policy, zl)
	deps := lending.Deps{
		Client:    client,
		Reader:    reader,
		Store:     store,
		Bus:       bus,
		Recorder:  collector,
		Logger:    zl,
		Contracts: cfg.Contracts,
		Policy:    policy,
	}
	if signer != nil {
		deps.Wallet = signer
	}
	service := lending.NewService(deps)

	position, price, stats, balance := cfg.Polling.Intervals()
	updates := make(chan tea.Msg, uiChannelSize)
	mon := monitor.NewService(monitor.Config{
		Reader: reader,
		Owner:  owner,
		Intervals: monitor.Intervals{
			Position: position,
			Price:    price,
			Balances: balance,
			Stats:    stats,
		},
		Bus:              bus,
		Gauges:           collector,
		Alerts:           monitor.NewAlertManager(monitor.DefaultAlertConfig(), zl),
		UIMessageChannel: updates,
		Logger:           zl,
	})

	sender := ui.NewUpdateSender(updates, zl)
	defer sender.Close()
	sender.ForwardLogs(buffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(gctx) })
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, collector, mon, 3*position, zl)
		g.Go(func() error { return server.Run(gctx) })
	}

	services := &ui.Services{
		Ctx:     gctx,
		Monitor: mon,
		History: store,
		Logs:    buffer,
		Policy:  policy,
		Wallet:  owner,
		Logger:  zl,
	}
	if signer != nil {
		services.Actions = service
	}

	recovery := ui.NewRecoveryHandler(zl, func() (tea.Model, []tea.ProgramOption) {
		model := ui.NewSafeUIWrapper(NewAppModel(services, updates), zl)
		return model, []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	})

	g.Go(func() error {
		if err := recovery.Run(gctx); err != nil {
			return err
		}
		// выход из интерфейса останавливает опрос и HTTP
		return errStopped
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) {
		return err
	}
	zl.Info("Dashboard stopped")
	return nil
}

// errStopped cancels the group when the UI exits
var errStopped = errors.New("ui stopped")

// connectWallet returns the remote signer and the watched owner; both are
// empty in read-only mode
func connectWallet(cfg *config.Config, zl *zap.Logger) (*wallet.Remote, string, error) {
	if cfg.Wallet == "" {
		zl.Info("No wallet configured, running read-only")
		return nil, "", nil
	}
	if err := wallet.ValidateAddress(cfg.Wallet); err != nil {
		return nil, "", err
	}
	owner := wallet.NormalizeAddress(cfg.Wallet)
	if cfg.SignerURL == "" {
		zl.Info("No signer configured, watching wallet read-only", zap.String("wallet", owner))
		return nil, owner, nil
	}

	// без повторов: подпись не идемпотентна
	signerPool, err := rpc.NewPool([]string{cfg.SignerURL}, rpc.Options{
		Timeout: 2 * cfg.RPCTimeout(),
		Retries: 0,
		Logger:  zl.Named("signer"),
	})
	if err != nil {
		return nil, "", err
	}
	signer, err := wallet.NewRemote(owner, signerPool, zl)
	if err != nil {
		return nil, "", err
	}
	return signer, owner, nil
}

// subscribeJournal mirrors transaction lifecycle events into the log pane
func subscribeJournal(bus *events.Bus, zl *zap.Logger) {
	bus.SubscribeFunc(events.All, func(_ context.Context, e events.Event) error {
		switch ev := e.(type) {
		case events.TxSubmittedEvent:
			zl.Info("Transaction submitted",
				zap.String("action", string(ev.Action)),
				zap.String("amount", ev.Amount.String()),
				zap.String("digest", ev.Digest))
		case events.TxConfirmedEvent:
			zl.Info("Transaction confirmed",
				zap.String("action", string(ev.Action)),
				zap.String("digest", ev.Digest),
				zap.String("gas", ev.GasUsed.String()))
		case events.TxFailedEvent:
			zl.Warn("Transaction failed",
				zap.String("action", string(ev.Action)),
				zap.String("digest", ev.Digest),
				zap.Error(ev.Err))
		}
		return nil
	})
}
