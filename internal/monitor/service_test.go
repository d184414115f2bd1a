package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/events"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
)

const owner = "0xa11ce"

var contracts = config.Contracts{
	PackageID:              "0xbeef",
	LendingPool:            "0xb001",
	LendingPoolWithStaking: "0xb002",
	PriceOracle:            "0xd00d",
	StablecoinTreasury:     "0xfeed",
	SUSDCoinType:           "0xbeef::stablecoin::STABLECOIN",
}

// stubLedger отвечает фиксированным состоянием пула; failing ломает методы
type stubLedger struct {
	mu      sync.Mutex
	failing map[string]error
	calls   map[string]int
}

func newStubLedger() *stubLedger {
	return &stubLedger{failing: map[string]error{}, calls: map[string]int{}}
}

func (l *stubLedger) count(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

func (l *stubLedger) Call(_ context.Context, out interface{}, method string, params ...interface{}) error {
	l.mu.Lock()
	l.calls[method]++
	err := l.failing[method]
	l.mu.Unlock()
	if err != nil {
		return err
	}

	var body string
	switch method {
	case "sui_getObject":
		switch params[0] {
		case contracts.LendingPoolWithStaking:
			body = `{"data":{"objectId":"0xb002","content":{"fields":{
				"positions":{"fields":{"id":{"id":"0x7ab1e"}}},
				"total_deposits":"1000000000000","total_borrowed":"100000000000"}}}}`
		case contracts.PriceOracle:
			body = `{"data":{"objectId":"0xd00d","content":{"fields":{"sui_price":"15000"}}}}`
		default:
			body = `{"error":{"code":"notExists"}}`
		}
	case "suix_getDynamicFieldObject":
		body = `{"data":{"objectId":"0xf1","content":{"fields":{"value":{"fields":{
			"deposited_amount":"10000000000","borrowed_amount":"5000000000"}}}}}}`
	case "suix_getBalance":
		body = `{"totalBalance":"3000000000"}`
	default:
		return fmt.Errorf("unexpected method %s", method)
	}
	return json.Unmarshal([]byte(body), out)
}

type recordingGauges struct {
	mu        sync.Mutex
	positions int
	prices    int
}

func (g *recordingGauges) SetPosition(risk.Metrics) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions++
}

func (g *recordingGauges) SetPrice(decimal.Decimal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices++
}

func testReader(ledger *stubLedger) *lending.Reader {
	policy := config.Policy{
		Risk:           risk.ParamsFromPercent(50, 75),
		GasReserve:     amount.SUI.MustParse("0.01"),
		PricePrecision: decimal.NewFromInt(10000),
		FallbackPrice:  decimal.RequireFromString("0.5"),
	}
	return lending.NewReader(sui.NewClient(ledger, nil), contracts, policy, nil)
}

func fastIntervals() Intervals {
	return Intervals{
		Position: 20 * time.Millisecond,
		Price:    20 * time.Millisecond,
		Balances: 20 * time.Millisecond,
		Stats:    20 * time.Millisecond,
	}
}

// collect читает сообщения, пока не встретит все нужные типы
func collect(t *testing.T, ch <-chan tea.Msg, want func(seen map[string]tea.Msg) bool) map[string]tea.Msg {
	t.Helper()
	seen := map[string]tea.Msg{}
	deadline := time.After(2 * time.Second)
	for !want(seen) {
		select {
		case msg := <-ch:
			seen[fmt.Sprintf("%T", msg)] = msg
		case <-deadline:
			t.Fatalf("timed out, got %v", keys(seen))
		}
	}
	return seen
}

func keys(m map[string]tea.Msg) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func has(names ...string) func(map[string]tea.Msg) bool {
	return func(seen map[string]tea.Msg) bool {
		for _, n := range names {
			if _, ok := seen[n]; !ok {
				return false
			}
		}
		return true
	}
}

func runService(t *testing.T, svc *Service) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("monitor did not stop")
		}
	}
}

func TestServicePolls(t *testing.T) {
	ledger := newStubLedger()
	uiCh := make(chan tea.Msg, 64)
	gauges := &recordingGauges{}
	bus := events.NewBus(zap.NewNop(), 64)

	var mu sync.Mutex
	published := map[events.EventType]int{}
	bus.SubscribeFunc(events.All, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published[e.Type()]++
		return nil
	})

	svc := NewService(Config{
		Reader:           testReader(ledger),
		Owner:            owner,
		Intervals:        fastIntervals(),
		Bus:              bus,
		Gauges:           gauges,
		UIMessageChannel: uiCh,
		ThrottleInterval: time.Millisecond,
	})
	stop := runService(t, svc)

	seen := collect(t, uiCh, has("monitor.SnapshotMsg", "monitor.PriceMsg", "monitor.BalancesMsg", "monitor.StatsMsg"))
	stop()
	require.NoError(t, bus.Shutdown(context.Background()))

	snap := seen["monitor.SnapshotMsg"].(SnapshotMsg).Snapshot
	assert.Equal(t, "10", snap.Position.Collateral.String())
	assert.Equal(t, "5", snap.Position.Debt.String())
	assert.True(t, snap.Price.Value.Equal(decimal.RequireFromString("1.5")))

	assert.Equal(t, "3", seen["monitor.BalancesMsg"].(BalancesMsg).Balances.SUI.String())
	assert.Equal(t, "1000", seen["monitor.StatsMsg"].(StatsMsg).Stats.TotalDeposits.String())
	assert.NotNil(t, svc.Latest())

	gauges.mu.Lock()
	assert.Positive(t, gauges.positions)
	assert.Positive(t, gauges.prices)
	gauges.mu.Unlock()

	mu.Lock()
	assert.Positive(t, published[events.PositionUpdated])
	assert.Positive(t, published[events.PriceUpdated])
	mu.Unlock()
}

func TestServiceReadOnly(t *testing.T) {
	ledger := newStubLedger()
	uiCh := make(chan tea.Msg, 64)
	svc := NewService(Config{
		Reader:           testReader(ledger),
		Intervals:        fastIntervals(),
		UIMessageChannel: uiCh,
		ThrottleInterval: time.Millisecond,
	})
	stop := runService(t, svc)

	seen := collect(t, uiCh, has("monitor.PriceMsg", "monitor.StatsMsg"))
	stop()

	assert.NotContains(t, seen, "monitor.SnapshotMsg")
	assert.Zero(t, ledger.count("suix_getDynamicFieldObject"))
	assert.Zero(t, ledger.count("suix_getBalance"))
	assert.Nil(t, svc.Latest())
}

func TestServiceFetchErrorsAreNotFatal(t *testing.T) {
	ledger := newStubLedger()
	ledger.failing["suix_getBalance"] = errors.New("node down")
	uiCh := make(chan tea.Msg, 64)
	svc := NewService(Config{
		Reader:           testReader(ledger),
		Owner:            owner,
		Intervals:        fastIntervals(),
		UIMessageChannel: uiCh,
		ThrottleInterval: time.Millisecond,
	})
	stop := runService(t, svc)

	seen := collect(t, uiCh, has("monitor.FetchErrorMsg", "monitor.PriceMsg"))
	require.Eventually(t, func() bool { return ledger.count("suix_getBalance") >= 4 }, 2*time.Second, 10*time.Millisecond)
	stop()

	fetchErr := seen["monitor.FetchErrorMsg"].(FetchErrorMsg)
	assert.Error(t, fetchErr.Err)
	assert.Nil(t, svc.Latest())
}

func TestServiceRefresh(t *testing.T) {
	ledger := newStubLedger()
	svc := NewService(Config{
		Reader:    testReader(ledger),
		Owner:     owner,
		Intervals: Intervals{Position: time.Hour},
	})
	stop := runService(t, svc)
	defer stop()

	require.Eventually(t, func() bool { return svc.Latest() != nil }, time.Second, 5*time.Millisecond)
	first := ledger.count("suix_getDynamicFieldObject")

	svc.Refresh()
	require.Eventually(t, func() bool {
		return ledger.count("suix_getDynamicFieldObject") > first
	}, time.Second, 5*time.Millisecond)
}

func TestServiceAlertsReachUI(t *testing.T) {
	ledger := newStubLedger()
	uiCh := make(chan tea.Msg, 64)
	svc := NewService(Config{
		Reader:           testReader(ledger),
		Owner:            owner,
		Intervals:        Intervals{Position: time.Hour},
		Alerts:           NewAlertManager(DefaultAlertConfig(), nil),
		UIMessageChannel: uiCh,
	})
	stop := runService(t, svc)
	defer stop()

	// 10 SUI × 1.5 × 0.75 / 5 = 2.25, здоровая позиция без алертов
	seen := collect(t, uiCh, has("monitor.SnapshotMsg"))
	assert.NotContains(t, seen, "monitor.AlertMsg")
}
