// internal/monitor/service.go

// Package monitor polls the ledger on independent periods and fans fresh
// state out to the UI, the events bus and the metrics gauges.
package monitor

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/sui-lending/internal/events"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

const (
	defaultThrottleInterval = 150 * time.Millisecond
	flushInterval           = 100 * time.Millisecond
)

// Intervals are the polling periods; a zero period disables that poll.
type Intervals struct {
	Position time.Duration
	Price    time.Duration
	Balances time.Duration
	Stats    time.Duration
}

// Gauges receives polled values; *metrics.Collector implements it.
type Gauges interface {
	SetPosition(m risk.Metrics)
	SetPrice(price decimal.Decimal, stale bool)
}

// Config configures the monitor service.
type Config struct {
	Reader    *lending.Reader
	Owner     string // empty in read-only mode
	Intervals Intervals

	Bus              *events.Bus
	Gauges           Gauges
	Alerts           *AlertManager
	UIMessageChannel chan tea.Msg
	ThrottleInterval time.Duration
	Logger           *zap.Logger
}

// Service polls position, price, balances and stats.
type Service struct {
	reader    *lending.Reader
	owner     string
	intervals Intervals
	bus       *events.Bus
	gauges    Gauges
	alerts    *AlertManager
	uiCh      chan tea.Msg
	throttler *UpdateThrottler
	logger    *zap.Logger

	refresh chan struct{}

	mu       sync.RWMutex
	snapshot *lending.Snapshot
	price    lending.Price
}

// NewService creates a monitor service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Service{
		reader:    cfg.Reader,
		owner:     cfg.Owner,
		intervals: cfg.Intervals,
		bus:       cfg.Bus,
		gauges:    cfg.Gauges,
		alerts:    cfg.Alerts,
		uiCh:      cfg.UIMessageChannel,
		logger:    cfg.Logger.Named("monitor"),
		refresh:   make(chan struct{}, 1),
		price:     lending.Price{Value: cfg.Reader.Policy().FallbackPrice, Stale: true},
	}

	if s.uiCh != nil {
		interval := cfg.ThrottleInterval
		if interval <= 0 {
			interval = defaultThrottleInterval
		}
		s.throttler = NewUpdateThrottler(interval, s.uiCh, s.logger)
	} else {
		s.logger.Debug("UI channel not provided, updates go to the bus only")
	}

	if s.alerts != nil && s.uiCh != nil {
		s.alerts.AddHandler(func(a Alert) {
			select {
			case s.uiCh <- AlertMsg{Alert: a}:
			default:
			}
		})
	}
	return s
}

// Run polls until ctx is cancelled. Fetch errors never stop polling.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Monitor started",
		zap.String("wallet", s.owner),
		zap.Duration("position", s.intervals.Position),
		zap.Duration("price", s.intervals.Price),
		zap.Duration("balances", s.intervals.Balances),
		zap.Duration("stats", s.intervals.Stats))

	g, gctx := errgroup.WithContext(ctx)

	if s.owner != "" {
		g.Go(func() error { return s.every(gctx, s.intervals.Position, s.refresh, s.pollSnapshot) })
		g.Go(func() error { return s.every(gctx, s.intervals.Balances, nil, s.pollBalances) })
	}
	g.Go(func() error { return s.every(gctx, s.intervals.Price, nil, s.pollPrice) })
	g.Go(func() error { return s.every(gctx, s.intervals.Stats, nil, s.pollStats) })

	if s.throttler != nil {
		g.Go(func() error {
			ticker := time.NewTicker(flushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					s.throttler.FlushPending()
				}
			}
		})
	}

	err := g.Wait()
	s.logger.Info("Monitor stopped")
	return err
}

// Refresh asks for an immediate snapshot, e.g. after a confirmed action.
func (s *Service) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the last successful snapshot, nil before the first one.
func (s *Service) Latest() *lending.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// every runs fetch now, on every tick and on every trigger.
func (s *Service) every(ctx context.Context, interval time.Duration, trigger <-chan struct{}, fetch func(context.Context)) error {
	if interval <= 0 {
		return nil
	}
	fetch(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fetch(ctx)
		case <-trigger:
			fetch(ctx)
		}
	}
}

func (s *Service) pollSnapshot(ctx context.Context) {
	snap, err := s.reader.Snapshot(ctx, s.owner)
	if err != nil {
		s.fetchFailed(ctx, KindSnapshot, err)
		return
	}

	s.mu.Lock()
	s.snapshot = snap
	s.price = snap.Price
	s.mu.Unlock()

	if s.gauges != nil {
		s.gauges.SetPosition(snap.Metrics)
	}
	if s.alerts != nil {
		s.alerts.CheckSnapshot(snap)
	}
	s.publish(events.NewPositionUpdated(snap.Owner, snap.Position, snap.Metrics))
	s.send(KindSnapshot, SnapshotMsg{Snapshot: snap})

	s.logger.Debug("Position updated",
		zap.String("collateral", snap.Position.Collateral.String()),
		zap.String("debt", snap.Position.Debt.String()),
		zap.String("health", snap.Metrics.Health.String()))
}

func (s *Service) pollPrice(ctx context.Context) {
	price := s.reader.Price(ctx)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.price = price
	s.mu.Unlock()

	if s.gauges != nil {
		s.gauges.SetPrice(price.Value, price.Stale)
	}
	if price.Cause != nil {
		s.fetchFailed(ctx, KindPrice, price.Cause)
	}
	s.publish(events.NewPriceUpdated(price.Value, price.Stale))
	s.send(KindPrice, PriceMsg{Price: price})
}

func (s *Service) pollBalances(ctx context.Context) {
	balances, err := s.reader.Balances(ctx, s.owner)
	if err != nil {
		s.fetchFailed(ctx, KindBalances, err)
		return
	}
	s.send(KindBalances, BalancesMsg{Balances: balances})
}

func (s *Service) pollStats(ctx context.Context) {
	s.mu.RLock()
	price := s.price.Value
	s.mu.RUnlock()

	stats, err := s.reader.ProtocolStats(ctx, price)
	if err != nil {
		s.fetchFailed(ctx, KindStats, err)
		return
	}
	s.send(KindStats, StatsMsg{Stats: stats})
}

// fetchFailed логирует и публикует ошибку опроса; при отмене контекста молчит
func (s *Service) fetchFailed(ctx context.Context, source string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Warn("Fetch failed", zap.String("source", source), zap.Error(err))
	s.publish(events.NewFetchFailed(source, err))
	s.send("error:"+source, FetchErrorMsg{Source: source, Err: err})
}

func (s *Service) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Debug("Event dropped", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}

func (s *Service) send(kind string, msg tea.Msg) {
	if s.throttler != nil {
		s.throttler.Send(kind, msg)
	}
}
