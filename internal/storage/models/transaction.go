// internal/storage/models/transaction.go
package models

import "time"

// Статусы транзакции
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Transaction is one dashboard action. Amounts are stored as exact strings:
// AmountRaw in base units, Amount in display units.
type Transaction struct {
	BaseModel
	Digest        string     `gorm:"index;type:varchar(64)"`
	WalletAddress string     `gorm:"index;not null;type:varchar(66)"`
	Action        string     `gorm:"index;not null;type:varchar(16)"`
	Token         string     `gorm:"not null;type:varchar(10)"`
	AmountRaw     string     `gorm:"not null;type:varchar(40)"`
	Amount        string     `gorm:"not null;type:varchar(48)"`
	Status        string     `gorm:"index;not null;type:varchar(16)"`
	GasUsedRaw    string     `gorm:"type:varchar(40)"`
	ErrorMessage  string     `gorm:"type:text"`
	Checkpoint    string     `gorm:"type:varchar(32)"`
	ConfirmedAt   *time.Time `gorm:"index"`
}
