// internal/ui/state/cache.go
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/monitor"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

const (
	maxPriceHistory = 60
	maxAlerts       = 5
)

// AccountCache keeps the latest monitor data the screens render.
// Price and balances arrive more often than full snapshots; Current merges
// them back into the last snapshot.
type AccountCache struct {
	mu     sync.RWMutex
	logger *zap.Logger
	params risk.Params

	snapshot     *lending.Snapshot
	price        lending.Price
	hasPrice     bool
	priceHistory []decimal.Decimal
	balances     *lending.Balances
	stats        *lending.Stats
	errors       map[string]error
	alerts       []monitor.Alert
	updatedAt    map[string]time.Time

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

// NewAccountCache creates a cache evaluating positions with params
func NewAccountCache(params risk.Params, logger *zap.Logger) *AccountCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountCache{
		logger:    logger,
		params:    params,
		errors:    make(map[string]error),
		updatedAt: make(map[string]time.Time),
	}
}

// ApplySnapshot stores a full account snapshot
func (c *AccountCache) ApplySnapshot(snap *lending.Snapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *snap
	c.snapshot = &copied
	c.balances = &copied.Balances
	c.setPrice(copied.Price)
	delete(c.errors, monitor.KindSnapshot)
	c.touch(monitor.KindSnapshot)
}

// ApplyPrice stores the latest oracle price
func (c *AccountCache) ApplyPrice(p lending.Price) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setPrice(p)
	if !p.Stale {
		delete(c.errors, monitor.KindPrice)
	}
	c.touch(monitor.KindPrice)
}

func (c *AccountCache) setPrice(p lending.Price) {
	c.price = p
	c.hasPrice = true
	if p.Stale {
		return
	}
	c.priceHistory = append(c.priceHistory, p.Value)
	if len(c.priceHistory) > maxPriceHistory {
		c.priceHistory = c.priceHistory[len(c.priceHistory)-maxPriceHistory:]
	}
}

// ApplyBalances stores wallet balances
func (c *AccountCache) ApplyBalances(b lending.Balances) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances = &b
	delete(c.errors, monitor.KindBalances)
	c.touch(monitor.KindBalances)
}

// ApplyStats stores protocol totals
func (c *AccountCache) ApplyStats(s lending.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats = &s
	delete(c.errors, monitor.KindStats)
	c.touch(monitor.KindStats)
}

// RecordError remembers the last failure of a poll source
func (c *AccountCache) RecordError(source string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors[source] = err
	atomic.AddUint64(&c.writes, 1)
	c.logger.Debug("poll failed", zap.String("source", source), zap.Error(err))
}

// AddAlert keeps the most recent alerts, newest first
func (c *AccountCache) AddAlert(a monitor.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alerts = append([]monitor.Alert{a}, c.alerts...)
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[:maxAlerts]
	}
	atomic.AddUint64(&c.writes, 1)
}

func (c *AccountCache) touch(kind string) {
	c.updatedAt[kind] = time.Now()
	atomic.AddUint64(&c.writes, 1)
}

// Current returns a copy of the last snapshot with newer price and balances
// merged in and metrics re-evaluated. Nil until the first snapshot arrives.
func (c *AccountCache) Current() *lending.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	if c.snapshot == nil {
		return nil
	}
	snap := *c.snapshot
	if c.hasPrice {
		snap.Price = c.price
	}
	if c.balances != nil {
		snap.Balances = *c.balances
	}
	snap.Metrics = risk.Evaluate(snap.Position, snap.Price.Value, c.params)
	return &snap
}

// Price returns the latest price and whether one was received
func (c *AccountCache) Price() (lending.Price, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)
	return c.price, c.hasPrice
}

// PriceHistory returns fresh (non-stale) prices as floats, oldest first
func (c *AccountCache) PriceHistory() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	out := make([]float64, len(c.priceHistory))
	for i, p := range c.priceHistory {
		out[i] = p.InexactFloat64()
	}
	return out
}

// Balances returns the latest balances, if any
func (c *AccountCache) Balances() (lending.Balances, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	if c.balances == nil {
		return lending.Balances{}, false
	}
	return *c.balances, true
}

// Stats returns the latest protocol totals, if any
func (c *AccountCache) Stats() (lending.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	if c.stats == nil {
		return lending.Stats{}, false
	}
	return *c.stats, true
}

// Errors returns a copy of the failing sources
func (c *AccountCache) Errors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]error, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// Alerts returns recent alerts, newest first
func (c *AccountCache) Alerts() []monitor.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]monitor.Alert(nil), c.alerts...)
}

// Age returns how long ago kind was updated; zero if never
func (c *AccountCache) Age(kind string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	at, ok := c.updatedAt[kind]
	if !ok {
		return 0
	}
	return time.Since(at)
}

// GetStats returns cache statistics
func (c *AccountCache) GetStats() (reads, writes uint64) {
	return atomic.LoadUint64(&c.reads), atomic.LoadUint64(&c.writes)
}
