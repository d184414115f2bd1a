package state

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/monitor"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

var params = risk.ParamsFromPercent(50, 75)

func snapshot(price string) *lending.Snapshot {
	pos := risk.Position{Collateral: amount.SUI.MustParse("100"), Debt: amount.SUSD.MustParse("50")}
	p := decimal.RequireFromString(price)
	return &lending.Snapshot{
		Owner:    "0xa11ce",
		Position: pos,
		Price:    lending.Price{Value: p},
		Balances: lending.Balances{SUI: amount.SUI.MustParse("10"), SUSD: amount.SUSD.MustParse("30")},
		Metrics:  risk.Evaluate(pos, p, params),
	}
}

func TestAccountCacheEmpty(t *testing.T) {
	cache := NewAccountCache(params, nil)

	assert.Nil(t, cache.Current())
	_, ok := cache.Price()
	assert.False(t, ok)
	_, ok = cache.Balances()
	assert.False(t, ok)
	_, ok = cache.Stats()
	assert.False(t, ok)
	assert.Zero(t, cache.Age(monitor.KindSnapshot))
}

func TestAccountCacheMergesNewerPrice(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	cache.ApplySnapshot(snapshot("2"))

	// 100 SUI × $2 = 200, долг 50 → LTV 25%
	require.NotNil(t, cache.Current())
	assert.True(t, cache.Current().Metrics.LTV.Equal(decimal.NewFromInt(25)))

	cache.ApplyPrice(lending.Price{Value: decimal.NewFromInt(1)})
	current := cache.Current()
	assert.True(t, current.Metrics.LTV.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "1.50", current.Metrics.Health.String())
	assert.Equal(t, []float64{2, 1}, cache.PriceHistory())
}

func TestAccountCacheMergesBalances(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	cache.ApplySnapshot(snapshot("2"))
	cache.ApplyBalances(lending.Balances{SUI: amount.SUI.MustParse("1"), SUSD: amount.SUSD.Zero()})

	current := cache.Current()
	assert.Equal(t, "1", current.Balances.SUI.String())
	assert.Equal(t, "100", current.Position.Collateral.String())
}

func TestAccountCacheStalePriceNotInHistory(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	cache.ApplyPrice(lending.Price{Value: decimal.RequireFromString("0.5"), Stale: true, Cause: errors.New("offline")})

	p, ok := cache.Price()
	require.True(t, ok)
	assert.True(t, p.Stale)
	assert.Empty(t, cache.PriceHistory())
}

func TestAccountCachePriceHistoryBounded(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	for i := 1; i <= maxPriceHistory+10; i++ {
		cache.ApplyPrice(lending.Price{Value: decimal.NewFromInt(int64(i))})
	}
	history := cache.PriceHistory()
	require.Len(t, history, maxPriceHistory)
	assert.Equal(t, float64(11), history[0])
}

func TestAccountCacheErrorsClearedOnSuccess(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	cache.RecordError(monitor.KindBalances, errors.New("node down"))
	assert.Contains(t, cache.Errors(), monitor.KindBalances)

	cache.ApplyBalances(lending.Balances{})
	assert.NotContains(t, cache.Errors(), monitor.KindBalances)
}

func TestAccountCacheAlertsBounded(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())
	for i := 0; i < maxAlerts+2; i++ {
		cache.AddAlert(monitor.Alert{ID: fmt.Sprintf("a%d", i)})
	}
	alerts := cache.Alerts()
	require.Len(t, alerts, maxAlerts)
	assert.Equal(t, fmt.Sprintf("a%d", maxAlerts+1), alerts[0].ID)
}

func TestAccountCacheConcurrentAccess(t *testing.T) {
	cache := NewAccountCache(params, zap.NewNop())

	var wg sync.WaitGroup
	numGoroutines := 10

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cache.ApplySnapshot(snapshot("2"))
				cache.ApplyPrice(lending.Price{Value: decimal.NewFromInt(int64(id + 1))})
				cache.ApplyStats(lending.Stats{})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = cache.Current()
				_ = cache.PriceHistory()
				_, _ = cache.Balances()
			}
		}()
	}
	wg.Wait()

	reads, writes := cache.GetStats()
	assert.Equal(t, uint64(numGoroutines*50*3), writes)
	assert.Positive(t, reads)
}
