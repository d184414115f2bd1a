package monitor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

// snapshotAt строит снимок позиции 10 SUI / debt SUSD при цене price
func snapshotAt(owner, debt, price string) *lending.Snapshot {
	pos := risk.Position{Collateral: amount.SUI.MustParse("10"), Debt: amount.SUSD.MustParse(debt)}
	p := decimal.RequireFromString(price)
	return &lending.Snapshot{
		Owner:    owner,
		Position: pos,
		Price:    lending.Price{Value: p},
		Metrics:  risk.Evaluate(pos, p, risk.ParamsFromPercent(50, 75)),
	}
}

func TestCheckSnapshotHealthy(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zap.NewNop())

	alerts := am.CheckSnapshot(snapshotAt("0xa", "1", "2"))
	assert.Empty(t, alerts)
	assert.Empty(t, am.GetRecentAlerts(10))
}

func TestCheckSnapshotWarning(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zap.NewNop())

	// 10 × 1.45 × 0.75 / 10 = 1.0875
	alerts := am.CheckSnapshot(snapshotAt("0xa", "10", "1.45"))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTypeHealthWarning, alerts[0].Type)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "1.09", alerts[0].Health)
}

func TestCheckSnapshotLiquidatable(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zap.NewNop())

	alerts := am.CheckSnapshot(snapshotAt("0xa", "10", "1"))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTypeLiquidatable, alerts[0].Type)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
}

func TestCheckSnapshotCooldown(t *testing.T) {
	cfg := DefaultAlertConfig()
	cfg.CooldownDuration = time.Hour
	am := NewAlertManager(cfg, zap.NewNop())

	require.Len(t, am.CheckSnapshot(snapshotAt("0xa", "10", "1.45")), 1)
	assert.Empty(t, am.CheckSnapshot(snapshotAt("0xa", "10", "1.45")), "same status within cooldown")

	// ухудшение статуса пробивает cooldown
	require.Len(t, am.CheckSnapshot(snapshotAt("0xa", "10", "1")), 1)

	// другой владелец не зависит от истории первого
	assert.Len(t, am.CheckSnapshot(snapshotAt("0xb", "10", "1.45")), 1)

	am.ClearHistory()
	assert.Len(t, am.CheckSnapshot(snapshotAt("0xa", "10", "1")), 1)
}

func TestCheckSnapshotStalePrice(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zap.NewNop())

	snap := snapshotAt("0xa", "1", "2")
	snap.Price.Stale = true
	snap.Price.Cause = errors.New("oracle offline")

	alerts := am.CheckSnapshot(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTypeStalePrice, alerts[0].Type)
	assert.Equal(t, "oracle offline", alerts[0].Details)

	cfg := DefaultAlertConfig()
	cfg.StalePrice = false
	assert.Empty(t, NewAlertManager(cfg, nil).CheckSnapshot(snap))
}

func TestAlertHandlers(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	var got Alert
	am.AddHandler(func(a Alert) {
		got = a
		wg.Done()
	})

	am.CheckSnapshot(snapshotAt("0xa", "10", "1"))
	wg.Wait()
	assert.Equal(t, AlertTypeLiquidatable, got.Type)
	assert.Equal(t, "0xa", got.Owner)
}

func TestAlertManagerConcurrentAccess(t *testing.T) {
	cfg := DefaultAlertConfig()
	cfg.CooldownDuration = time.Millisecond
	am := NewAlertManager(cfg, zap.NewNop())

	var handled int32
	am.AddHandler(func(Alert) { atomic.AddInt32(&handled, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				am.CheckSnapshot(snapshotAt(fmt.Sprintf("0x%d", id), "10", "1"))
				_ = am.GetRecentAlerts(5)
			}
		}(i)
	}
	wg.Wait()

	assert.NotEmpty(t, am.GetRecentAlerts(0))
	assert.LessOrEqual(t, len(am.GetRecentAlerts(5)), 5)
}
