// internal/storage/gormstore/store.go

// Package gormstore implements storage.Storage with GORM on SQLite (default)
// or PostgreSQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rovshanmuradov/sui-lending/internal/storage"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	migrationLockID = 4242
	defaultPageSize = 50
)

type store struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database for driver and dsn.
func Open(driver, dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if driver == DriverSQLite {
		// один писатель, иначе SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &store{db: db, driver: driver, logger: zapLogger}, nil
}

// RunMigrations применяет AutoMigrate; на PostgreSQL под advisory lock
func (s *store) RunMigrations() error {
	if s.driver == DriverPostgres {
		var lockObtained bool
		if err := s.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return errors.New("another migration is in progress")
		}
		defer s.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
	}

	if err := s.db.AutoMigrate(&models.Transaction{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	return s.db.WithContext(ctx).Create(tx).Error
}

func (s *store) GetTransaction(ctx context.Context, digest string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).Where("digest = ?", digest).Order("id desc").First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: transaction %s", storage.ErrNotFound, digest)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *store) ListTransactions(ctx context.Context, wallet string, limit, offset int) ([]*models.Transaction, error) {
	return s.FindTransactions(ctx, storage.Filter{Wallet: wallet, Limit: limit, Offset: offset})
}

func (s *store) FindTransactions(ctx context.Context, f storage.Filter) ([]*models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if f.Wallet != "" {
		q = q.Where("wallet_address = ?", f.Wallet)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at <= ?", f.Until.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	var txs []*models.Transaction
	err := q.Order("created_at desc").Order("id desc").
		Limit(limit).
		Offset(f.Offset).
		Find(&txs).Error
	return txs, err
}

func (s *store) UpdateStatus(ctx context.Context, digest string, u storage.StatusUpdate) error {
	updates := map[string]interface{}{
		"status":        u.Status,
		"error_message": u.ErrorMessage,
	}
	if u.GasUsedRaw != "" {
		updates["gas_used_raw"] = u.GasUsedRaw
	}
	if u.Checkpoint != "" {
		updates["checkpoint"] = u.Checkpoint
	}
	if u.ConfirmedAt != nil {
		updates["confirmed_at"] = u.ConfirmedAt.UTC()
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("digest = ?", digest).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s", storage.ErrNotFound, digest)
	}
	return nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
