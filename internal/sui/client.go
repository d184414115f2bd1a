// internal/sui/client.go

// Package sui provides typed reads and transaction queries on top of the
// JSON-RPC pool.
package sui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrTransactionFailed = errors.New("transaction failed")
)

const (
	coinPageLimit      = 50
	maxCoinPages       = 100
	waitInitialBackoff = 500 * time.Millisecond
	waitMaxBackoff     = 4 * time.Second
)

// Caller is the JSON-RPC transport; *rpc.Pool implements it.
type Caller interface {
	Call(ctx context.Context, out interface{}, method string, params ...interface{}) error
}

// Client wraps Sui read methods
type Client struct {
	rpc    Caller
	logger *zap.Logger
}

func NewClient(rpc Caller, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rpc: rpc, logger: logger.Named("sui")}
}

// GetBalance возвращает суммарный баланс монет типа coinType
func (c *Client) GetBalance(ctx context.Context, owner, coinType string) (*Balance, error) {
	var out Balance
	if err := c.rpc.Call(ctx, &out, "suix_getBalance", owner, coinType); err != nil {
		return nil, fmt.Errorf("get balance %s: %w", coinType, err)
	}
	return &out, nil
}

// GetCoins возвращает все монеты типа, проходя по страницам
func (c *Client) GetCoins(ctx context.Context, owner, coinType string) ([]Coin, error) {
	var (
		coins  []Coin
		cursor *string
	)
	for page := 0; page < maxCoinPages; page++ {
		var out coinPage
		if err := c.rpc.Call(ctx, &out, "suix_getCoins", owner, coinType, cursor, coinPageLimit); err != nil {
			return nil, fmt.Errorf("get coins %s: %w", coinType, err)
		}
		coins = append(coins, out.Data...)
		if !out.HasNextPage || out.NextCursor == nil {
			return coins, nil
		}
		cursor = out.NextCursor
	}
	c.logger.Warn("Coin listing truncated", zap.String("owner", owner), zap.Int("coins", len(coins)))
	return coins, nil
}

// GetObject читает объект вместе с Move-содержимым
func (c *Client) GetObject(ctx context.Context, id string) (*Object, error) {
	var out objectResponse
	opts := ObjectOptions{ShowType: true, ShowContent: true}
	if err := c.rpc.Call(ctx, &out, "sui_getObject", id, opts); err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	return unwrapObject(out, id)
}

// GetDynamicFieldObject читает динамическое поле родителя по имени
func (c *Client) GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*Object, error) {
	var out objectResponse
	if err := c.rpc.Call(ctx, &out, "suix_getDynamicFieldObject", parentID, name); err != nil {
		return nil, fmt.Errorf("get dynamic field %v of %s: %w", name.Value, parentID, err)
	}
	return unwrapObject(out, parentID)
}

func unwrapObject(out objectResponse, id string) (*Object, error) {
	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrObjectNotFound, id, out.Error.Code)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return out.Data, nil
}

// GetReferenceGasPrice returns the current reference gas price in MIST.
func (c *Client) GetReferenceGasPrice(ctx context.Context) (string, error) {
	var out string
	if err := c.rpc.Call(ctx, &out, "suix_getReferenceGasPrice"); err != nil {
		return "", fmt.Errorf("get reference gas price: %w", err)
	}
	return out, nil
}

// DryRun выполняет транзакцию без коммита; txBytes в base64
func (c *Client) DryRun(ctx context.Context, txBytes string) (*DryRunResult, error) {
	var out DryRunResult
	if err := c.rpc.Call(ctx, &out, "sui_dryRunTransactionBlock", txBytes); err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	return &out, nil
}

// GetTransaction returns an executed transaction with effects.
func (c *Client) GetTransaction(ctx context.Context, digest string) (*TransactionBlock, error) {
	var out TransactionBlock
	opts := TransactionOptions{ShowEffects: true}
	if err := c.rpc.Call(ctx, &out, "sui_getTransactionBlock", digest, opts); err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", digest, err)
	}
	return &out, nil
}

// WaitForTransaction ждет, пока транзакция появится в ноде, и проверяет
// статус эффектов. Неуспешный статус возвращает ErrTransactionFailed.
func (c *Client) WaitForTransaction(ctx context.Context, digest string) (*TransactionBlock, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = waitInitialBackoff
	expBackoff.MaxInterval = waitMaxBackoff

	tx, err := backoff.Retry(ctx, func() (*TransactionBlock, error) {
		tx, err := c.GetTransaction(ctx, digest)
		if err != nil {
			c.logger.Debug("Transaction not available yet", zap.String("digest", digest), zap.Error(err))
			return nil, err
		}
		if tx.Effects == nil {
			return nil, fmt.Errorf("transaction %s has no effects yet", digest)
		}
		return tx, nil
	}, backoff.WithBackOff(expBackoff))
	if err != nil {
		return nil, err
	}

	if tx.Effects.Status.Status != StatusSuccess {
		return tx, fmt.Errorf("%w: %s: %s", ErrTransactionFailed, digest, tx.Effects.Status.Error)
	}
	return tx, nil
}
