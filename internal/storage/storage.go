// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
)

var ErrNotFound = errors.New("record not found")

// Filter ограничивает выборку истории; пустые поля не фильтруют
type Filter struct {
	Wallet string
	Action string
	Status string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// StatusUpdate describes the outcome of a submitted transaction.
type StatusUpdate struct {
	Status       string
	GasUsedRaw   string
	ErrorMessage string
	Checkpoint   string
	ConfirmedAt  *time.Time
}

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, digest string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, wallet string, limit, offset int) ([]*models.Transaction, error)
	FindTransactions(ctx context.Context, filter Filter) ([]*models.Transaction, error)
	UpdateStatus(ctx context.Context, digest string, update StatusUpdate) error

	RunMigrations() error
	Close() error
}
