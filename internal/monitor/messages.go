// internal/monitor/messages.go
package monitor

import (
	"github.com/rovshanmuradov/sui-lending/internal/lending"
)

// Виды обновлений для троттлинга
const (
	KindSnapshot = "snapshot"
	KindPrice    = "price"
	KindBalances = "balances"
	KindStats    = "stats"
)

// SnapshotMsg carries a fresh account snapshot.
type SnapshotMsg struct {
	Snapshot *lending.Snapshot
}

// PriceMsg carries the latest oracle price.
type PriceMsg struct {
	Price lending.Price
}

// BalancesMsg carries the wallet balances.
type BalancesMsg struct {
	Balances lending.Balances
}

// StatsMsg carries protocol totals.
type StatsMsg struct {
	Stats lending.Stats
}

// FetchErrorMsg reports a failed poll; polling continues.
type FetchErrorMsg struct {
	Source string
	Err    error
}

// AlertMsg forwards a triggered alert.
type AlertMsg struct {
	Alert Alert
}
