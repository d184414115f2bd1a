// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

// EventType represents the type of event.
type EventType string

const (
	// Transaction lifecycle
	TxSubmitted EventType = "tx.submitted"
	TxConfirmed EventType = "tx.confirmed"
	TxFailed    EventType = "tx.failed"

	// Ledger state
	PositionUpdated EventType = "position.updated"
	PriceUpdated    EventType = "price.updated"
	FetchFailed     EventType = "fetch.failed"

	// All subscribes a handler to every event type.
	All EventType = "*"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// TxSubmittedEvent is emitted once the wallet returns a digest.
type TxSubmittedEvent struct {
	BaseEvent
	Action risk.Action
	Wallet string
	Amount amount.TokenAmount
	Digest string
}

// TxConfirmedEvent is emitted when effects report success.
type TxConfirmedEvent struct {
	BaseEvent
	Action  risk.Action
	Digest  string
	GasUsed amount.TokenAmount
}

// TxFailedEvent is emitted when an action fails at any stage. Digest is
// empty if the transaction never reached the network.
type TxFailedEvent struct {
	BaseEvent
	Action risk.Action
	Digest string
	Err    error
}

// PositionUpdatedEvent carries a freshly read position with its metrics.
type PositionUpdatedEvent struct {
	BaseEvent
	Owner    string
	Position risk.Position
	Metrics  risk.Metrics
}

// PriceUpdatedEvent carries the oracle price; Stale marks the fallback value.
type PriceUpdatedEvent struct {
	BaseEvent
	Price decimal.Decimal
	Stale bool
}

// FetchFailedEvent reports a failed background read.
type FetchFailedEvent struct {
	BaseEvent
	Source string
	Err    error
}

func NewTxSubmitted(action risk.Action, wallet string, amt amount.TokenAmount, digest string) TxSubmittedEvent {
	return TxSubmittedEvent{BaseEvent: base(TxSubmitted), Action: action, Wallet: wallet, Amount: amt, Digest: digest}
}

func NewTxConfirmed(action risk.Action, digest string, gas amount.TokenAmount) TxConfirmedEvent {
	return TxConfirmedEvent{BaseEvent: base(TxConfirmed), Action: action, Digest: digest, GasUsed: gas}
}

func NewTxFailed(action risk.Action, digest string, err error) TxFailedEvent {
	return TxFailedEvent{BaseEvent: base(TxFailed), Action: action, Digest: digest, Err: err}
}

func NewPositionUpdated(owner string, pos risk.Position, m risk.Metrics) PositionUpdatedEvent {
	return PositionUpdatedEvent{BaseEvent: base(PositionUpdated), Owner: owner, Position: pos, Metrics: m}
}

func NewPriceUpdated(price decimal.Decimal, stale bool) PriceUpdatedEvent {
	return PriceUpdatedEvent{BaseEvent: base(PriceUpdated), Price: price, Stale: stale}
}

func NewFetchFailed(source string, err error) FetchFailedEvent {
	return FetchFailedEvent{BaseEvent: base(FetchFailed), Source: source, Err: err}
}
