package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) Handle(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	c := &collector{}
	bus.Subscribe(TxSubmitted, c)
	bus.Subscribe(TxConfirmed, c)

	require.NoError(t, bus.Publish(NewTxSubmitted(risk.ActionDeposit, "0xa", amount.SUI.MustParse("1"), "D1")))
	require.NoError(t, bus.Publish(NewTxConfirmed(risk.ActionDeposit, "D1", amount.SUI.MustParse("0.002"))))
	require.NoError(t, bus.Publish(NewPriceUpdated(decimal.RequireFromString("0.5"), false)))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	got := c.snapshot()
	assert.Equal(t, TxSubmitted, got[0].Type())
	assert.Equal(t, TxConfirmed, got[1].Type())
	assert.Equal(t, "D1", got[1].(TxConfirmedEvent).Digest)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(nil, 0)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	c := &collector{}
	bus.Subscribe(All, c)

	require.NoError(t, bus.PublishSync(context.Background(), NewFetchFailed("price", errors.New("boom"))))
	require.NoError(t, bus.PublishSync(context.Background(), NewPriceUpdated(decimal.NewFromInt(1), true)))
	assert.Len(t, c.snapshot(), 2)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	c := &collector{}
	sub := bus.Subscribe(PriceUpdated, c)
	sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), NewPriceUpdated(decimal.NewFromInt(1), false)))
	assert.Empty(t, c.snapshot())
}

func TestPublishSyncCollectsErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	boom := errors.New("handler broke")
	bus.SubscribeFunc(TxFailed, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), NewTxFailed(risk.ActionBorrow, "", errors.New("rejected")))
	assert.ErrorIs(t, err, boom)
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(NewFetchFailed("stats", errors.New("x"))), ErrBusClosed)
}

func TestPublishFullQueue(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	release := make(chan struct{})
	bus.SubscribeFunc(FetchFailed, func(context.Context, Event) error {
		<-release
		return nil
	})

	// первое событие занимает обработчик, второе ложится в очередь
	require.NoError(t, bus.Publish(NewFetchFailed("a", nil)))
	require.Eventually(t, func() bool { return bus.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(NewFetchFailed("b", nil)))
	assert.ErrorIs(t, bus.Publish(NewFetchFailed("c", nil)), ErrBusFull)
	close(release)
}
