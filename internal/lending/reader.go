// internal/lending/reader.go
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
)

// Price is the oracle price in USD per SUI. A Stale price is the configured
// fallback; Cause tells why the oracle could not be read.
type Price struct {
	Value decimal.Decimal
	Stale bool
	Cause error
}

// Balances holds the wallet's coin balances.
type Balances struct {
	SUI  amount.TokenAmount
	SUSD amount.TokenAmount
}

// Stats are protocol-wide totals.
type Stats struct {
	TotalDeposits    amount.TokenAmount // SUI
	TotalBorrowed    amount.TokenAmount // SUSD
	TotalValueLocked decimal.Decimal    // USD
	Utilization      decimal.Decimal    // percent of collateral value borrowed
}

// Snapshot is everything the panels need for one account at one moment.
type Snapshot struct {
	Owner     string
	Position  risk.Position
	Price     Price
	Balances  Balances
	Metrics   risk.Metrics
	UpdatedAt time.Time
}

// Reader reads protocol state from the ledger.
type Reader struct {
	client    *sui.Client
	contracts config.Contracts
	policy    config.Policy
	logger    *zap.Logger
}

func NewReader(client *sui.Client, contracts config.Contracts, policy config.Policy, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{client: client, contracts: contracts, policy: policy, logger: logger.Named("reader")}
}

// Policy returns the protocol policy the reader evaluates against.
func (r *Reader) Policy() config.Policy {
	return r.policy
}

// positionPool возвращает пул, в таблице которого лежат позиции
func (r *Reader) positionPool() string {
	if r.contracts.LendingPoolWithStaking != "" {
		return r.contracts.LendingPoolWithStaking
	}
	return r.contracts.LendingPool
}

// Position reads the owner's entry in the pool's positions table. An account
// without an entry has an empty position.
func (r *Reader) Position(ctx context.Context, owner string) (risk.Position, error) {
	empty := risk.Position{Collateral: amount.SUI.Zero(), Debt: amount.SUSD.Zero()}

	poolID := r.positionPool()
	if poolID == "" {
		return empty, fmt.Errorf("%w: lending pool", ErrContractNotConfigured)
	}
	pool, err := r.client.GetObject(ctx, poolID)
	if err != nil {
		return empty, err
	}
	tableID, err := pool.FieldObjectID("positions")
	if err != nil {
		return empty, fmt.Errorf("pool %s: %w", poolID, err)
	}

	entry, err := r.client.GetDynamicFieldObject(ctx, tableID, sui.AddressKey(owner))
	if errors.Is(err, sui.ErrObjectNotFound) {
		return empty, nil
	}
	if err != nil {
		return empty, err
	}

	deposited, err := entry.FieldUint("value", "deposited_amount")
	if err != nil {
		return empty, fmt.Errorf("position of %s: %w", owner, err)
	}
	pos := empty
	if pos.Collateral, err = amount.FromRawUnits(deposited, amount.SUI.Decimals); err != nil {
		return empty, err
	}

	// borrowed_amount отсутствует у позиций без займа
	if borrowed, err := entry.FieldUint("value", "borrowed_amount"); err == nil {
		if pos.Debt, err = amount.FromRawUnits(borrowed, amount.SUSD.Decimals); err != nil {
			return empty, err
		}
	}
	return pos, nil
}

// Price reads sui_price from the oracle and divides it by the price
// precision. Any failure yields the fallback price marked Stale.
func (r *Reader) Price(ctx context.Context) Price {
	value, err := r.oraclePrice(ctx)
	if err != nil {
		r.logger.Debug("Oracle price unavailable, using fallback",
			zap.String("fallback", r.policy.FallbackPrice.String()),
			zap.Error(err))
		return Price{Value: r.policy.FallbackPrice, Stale: true, Cause: err}
	}
	return Price{Value: value}
}

func (r *Reader) oraclePrice(ctx context.Context) (decimal.Decimal, error) {
	if r.contracts.PriceOracle == "" {
		return decimal.Zero, fmt.Errorf("%w: price oracle", ErrContractNotConfigured)
	}
	oracle, err := r.client.GetObject(ctx, r.contracts.PriceOracle)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := oracle.FieldUint("sui_price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle %s: %w", r.contracts.PriceOracle, err)
	}
	if raw.Sign() == 0 {
		return decimal.Zero, errors.New("oracle reports zero price")
	}
	return decimal.NewFromBigInt(raw, 0).DivRound(r.policy.PricePrecision, 18), nil
}

// Balances reads SUI and SUSD balances concurrently.
func (r *Reader) Balances(ctx context.Context, owner string) (Balances, error) {
	var (
		out Balances
		g   errgroup.Group
	)
	g.Go(func() error {
		var err error
		out.SUI, err = r.balance(ctx, owner, sui.SUICoinType, amount.SUI)
		return err
	})
	g.Go(func() error {
		var err error
		out.SUSD, err = r.balance(ctx, owner, r.contracts.SUSDCoinType, amount.SUSD)
		return err
	})
	if err := g.Wait(); err != nil {
		return Balances{SUI: amount.SUI.Zero(), SUSD: amount.SUSD.Zero()}, err
	}
	return out, nil
}

func (r *Reader) balance(ctx context.Context, owner, coinType string, token amount.Token) (amount.TokenAmount, error) {
	if coinType == "" {
		return token.Zero(), fmt.Errorf("%w: %s coin type", ErrContractNotConfigured, token.Symbol)
	}
	bal, err := r.client.GetBalance(ctx, owner, coinType)
	if err != nil {
		return token.Zero(), err
	}
	return token.FromRaw(bal.TotalBalance)
}

// ProtocolStats reads pool totals. Missing counters read as zero.
func (r *Reader) ProtocolStats(ctx context.Context, price decimal.Decimal) (Stats, error) {
	stats := Stats{TotalDeposits: amount.SUI.Zero(), TotalBorrowed: amount.SUSD.Zero()}

	poolID := r.positionPool()
	if poolID == "" {
		return stats, fmt.Errorf("%w: lending pool", ErrContractNotConfigured)
	}
	pool, err := r.client.GetObject(ctx, poolID)
	if err != nil {
		return stats, err
	}

	if raw, err := pool.FieldUint("total_deposits"); err == nil {
		stats.TotalDeposits, _ = amount.FromRawUnits(raw, amount.SUI.Decimals)
	}
	if raw, err := pool.FieldUint("total_borrowed"); err == nil {
		stats.TotalBorrowed, _ = amount.FromRawUnits(raw, amount.SUSD.Decimals)
	}

	stats.TotalValueLocked = risk.CollateralValue(stats.TotalDeposits, price)
	stats.Utilization = risk.LTV(stats.TotalValueLocked, risk.ToDecimal(stats.TotalBorrowed))
	return stats, nil
}

// Snapshot reads position, price and balances concurrently and evaluates
// the position. The price never fails; see Price.
func (r *Reader) Snapshot(ctx context.Context, owner string) (*Snapshot, error) {
	snap := &Snapshot{Owner: owner}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Position, err = r.Position(gctx, owner)
		return err
	})
	g.Go(func() error {
		snap.Price = r.Price(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Balances, err = r.Balances(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Metrics = risk.Evaluate(snap.Position, snap.Price.Value, r.policy.Risk)
	snap.UpdatedAt = time.Now()
	return snap, nil
}
