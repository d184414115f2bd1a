// internal/lending/service.go

// Package lending validates and executes deposit, borrow, repay, withdraw and
// liquidation against the lending pool, and reads the state the dashboard
// renders.
package lending

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/events"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/storage"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

// ActionLiquidate is only available to the service, not to the panels.
const ActionLiquidate risk.Action = "liquidate"

// ActionRecorder receives action outcomes; *metrics.Collector implements it.
type ActionRecorder interface {
	RecordAction(action risk.Action, status string, duration time.Duration)
}

// Receipt describes a confirmed action.
type Receipt struct {
	Action     risk.Action
	Digest     string
	Amount     amount.TokenAmount
	GasUsed    amount.TokenAmount
	Checkpoint string
}

// Deps собирает зависимости сервиса; Wallet, Store, Bus и Recorder опциональны
type Deps struct {
	Client    *sui.Client
	Reader    *Reader
	Wallet    Wallet
	Store     storage.Storage
	Bus       *events.Bus
	Recorder  ActionRecorder
	Logger    *zap.Logger
	Contracts config.Contracts
	Policy    config.Policy
}

// Service executes lending actions for the connected wallet.
type Service struct {
	client    *sui.Client
	reader    *Reader
	wallet    Wallet
	store     storage.Storage
	bus       *events.Bus
	recorder  ActionRecorder
	logger    *zap.Logger
	contracts config.Contracts
	policy    config.Policy
	planners  map[risk.Action]planFunc
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Reader == nil {
		d.Reader = NewReader(d.Client, d.Contracts, d.Policy, d.Logger)
	}
	s := &Service{
		client:    d.Client,
		reader:    d.Reader,
		wallet:    d.Wallet,
		store:     d.Store,
		bus:       d.Bus,
		recorder:  d.Recorder,
		logger:    d.Logger.Named("lending"),
		contracts: d.Contracts,
		policy:    d.Policy,
	}
	s.planners = s.actionPlanners()
	return s
}

// Reader returns the service's ledger reader.
func (s *Service) Reader() *Reader {
	return s.reader
}

// Address returns the connected wallet address, empty in read-only mode.
func (s *Service) Address() string {
	if ReadOnly(s.wallet) {
		return ""
	}
	return s.wallet.Address()
}

func (s *Service) target(module, function string) string {
	return txplan.Target(s.contracts.PackageID, module, function)
}

// Deposit splits amount off the gas coin and deposits it with staking.
func (s *Service) Deposit(ctx context.Context, input string) (*Receipt, error) {
	return s.run(ctx, risk.ActionDeposit, input)
}

// Borrow mints stablecoin against the deposited collateral.
func (s *Service) Borrow(ctx context.Context, input string) (*Receipt, error) {
	return s.run(ctx, risk.ActionBorrow, input)
}

// Repay merges the wallet's SUSD coins, splits the exact amount and repays.
func (s *Service) Repay(ctx context.Context, input string) (*Receipt, error) {
	return s.run(ctx, risk.ActionRepay, input)
}

// Withdraw unstakes and withdraws collateral.
func (s *Service) Withdraw(ctx context.Context, input string) (*Receipt, error) {
	return s.run(ctx, risk.ActionWithdraw, input)
}

type planFunc func(ctx context.Context, b *txplan.Builder, amt amount.TokenAmount) error

// actionPlanners returns the move calls of each panel action, shared by run
// and PlanFor.
func (s *Service) actionPlanners() map[risk.Action]planFunc {
	return map[risk.Action]planFunc{
		risk.ActionDeposit: func(_ context.Context, b *txplan.Builder, amt amount.TokenAmount) error {
			coin := b.SplitGas(amt)
			b.MoveCall(s.target("lending_pool_with_staking", "deposit_and_stake_sui"), nil,
				txplan.Object(s.contracts.LendingPoolWithStaking),
				txplan.Object(sui.SystemStateObjectID),
				coin)
			return nil
		},
		risk.ActionBorrow: func(_ context.Context, b *txplan.Builder, amt amount.TokenAmount) error {
			b.MoveCall(s.target("lending_pool", "borrow_stablecoin"), nil,
				txplan.Object(s.contracts.LendingPool),
				txplan.Object(s.contracts.PriceOracle),
				txplan.Object(s.contracts.StablecoinTreasury),
				b.Amount(amt))
			return nil
		},
		risk.ActionRepay: func(ctx context.Context, b *txplan.Builder, amt amount.TokenAmount) error {
			payment, err := s.stablecoinPayment(ctx, b, amt)
			if err != nil {
				return err
			}
			b.MoveCall(s.target("lending_pool", "repay_loan"), nil,
				txplan.Object(s.contracts.LendingPool),
				txplan.Object(s.contracts.StablecoinTreasury),
				payment)
			return nil
		},
		risk.ActionWithdraw: func(_ context.Context, b *txplan.Builder, amt amount.TokenAmount) error {
			b.MoveCall(s.target("lending_pool_with_staking", "unstake_and_withdraw_sui"), nil,
				txplan.Object(s.contracts.LendingPoolWithStaking),
				txplan.Object(sui.SystemStateObjectID),
				b.Amount(amt))
			return nil
		},
	}
}

// buildPlan builds the plan of a panel action for owner.
func (s *Service) buildPlan(ctx context.Context, owner string, action risk.Action, amt amount.TokenAmount) (*txplan.Plan, error) {
	build, ok := s.planners[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	b := txplan.NewBuilder(owner)
	if err := build(ctx, b, amt); err != nil {
		return nil, err
	}
	return b.Build()
}

// Liquidate repays debt of an unhealthy borrower in exchange for collateral.
func (s *Service) Liquidate(ctx context.Context, borrower, input string) (*Receipt, error) {
	if ReadOnly(s.wallet) {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate, Err: ErrWalletNotConnected}
	}
	owner := s.wallet.Address()

	pos, err := s.reader.Position(ctx, borrower)
	if err != nil {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate, Err: err}
	}
	price := s.reader.Price(ctx)
	if price.Stale {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate,
			Err: fmt.Errorf("%w: %v", ErrStalePrice, price.Cause)}
	}
	metrics := risk.Evaluate(pos, price.Value, s.policy.Risk)
	if metrics.Status != risk.StatusLiquidatable {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate,
			Err: fmt.Errorf("%w: %s health %s", ErrNotLiquidatable, borrower, metrics.Health)}
	}

	balances, err := s.reader.Balances(ctx, owner)
	if err != nil {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate, Err: err}
	}
	maxPay, err := amount.Min(pos.Debt, balances.SUSD)
	if err != nil {
		return nil, &ActionError{Action: ActionLiquidate, Stage: StageValidate, Err: err}
	}
	outcome := amount.SUSD.Validate(input, amount.FromUint64(1, amount.SUSD.Decimals), &maxPay)
	if !outcome.Valid() {
		return nil, s.rejected(ActionLiquidate, outcome)
	}

	b := txplan.NewBuilder(owner)
	payment, err := s.stablecoinPayment(ctx, b, outcome.Amount)
	if err != nil {
		return nil, s.fail(ctx, ActionLiquidate, owner, outcome.Amount, StagePrepare, "", err)
	}
	b.MoveCall(s.target("lending_pool", "liquidate_position"), nil,
		txplan.Object(s.contracts.LendingPool),
		txplan.Object(s.contracts.PriceOracle),
		txplan.Object(s.contracts.StakingManager),
		txplan.Object(s.contracts.ShortPositionManager),
		txplan.Object(s.contracts.StablecoinTreasury),
		txplan.PureAddress(borrower),
		payment)

	plan, err := b.Build()
	if err != nil {
		return nil, s.fail(ctx, ActionLiquidate, owner, outcome.Amount, StagePrepare, "", err)
	}
	return s.execute(ctx, ActionLiquidate, owner, outcome.Amount, plan)
}

// stablecoinPayment выбирает монеты SUSD, объединяет их и отделяет точную сумму
func (s *Service) stablecoinPayment(ctx context.Context, b *txplan.Builder, amt amount.TokenAmount) (txplan.Argument, error) {
	coins, err := s.client.GetCoins(ctx, s.wallet.Address(), s.contracts.SUSDCoinType)
	if err != nil {
		return txplan.Argument{}, err
	}
	if len(coins) == 0 {
		return txplan.Argument{}, fmt.Errorf("%w: no %s coins", ErrInsufficientBalance, amount.SUSD.Symbol)
	}

	total := new(big.Int)
	for _, c := range coins {
		v, err := c.Value()
		if err != nil {
			return txplan.Argument{}, err
		}
		total.Add(total, v)
	}
	if total.Cmp(amt.RawUnits()) < 0 {
		have, _ := amount.FromRawUnits(total, amount.SUSD.Decimals)
		return txplan.Argument{}, fmt.Errorf("%w: have %s %s, need %s",
			ErrInsufficientBalance, have, amount.SUSD.Symbol, amt)
	}

	primary := txplan.Object(coins[0].CoinObjectID)
	others := make([]txplan.Argument, 0, len(coins)-1)
	for _, c := range coins[1:] {
		others = append(others, txplan.Object(c.CoinObjectID))
	}
	b.Merge(primary, others...)
	return b.SplitCoin(primary, amt), nil
}

// run validates input against a fresh snapshot, builds the plan and executes it.
func (s *Service) run(ctx context.Context, action risk.Action, input string) (*Receipt, error) {
	if ReadOnly(s.wallet) {
		return nil, &ActionError{Action: action, Stage: StageValidate, Err: ErrWalletNotConnected}
	}
	owner := s.wallet.Address()

	snap, err := s.reader.Snapshot(ctx, owner)
	if err != nil {
		return nil, &ActionError{Action: action, Stage: StageValidate, Err: err}
	}
	limit := Limits(snap, s.policy)[action]
	if limit.Unavailable != nil {
		s.logger.Warn("Action unavailable",
			zap.String("action", string(action)),
			zap.Error(snap.Price.Cause))
		return nil, &ActionError{Action: action, Stage: StageValidate, Err: limit.Unavailable}
	}
	outcome := limit.Validate(input)
	if !outcome.Valid() {
		return nil, s.rejected(action, outcome)
	}

	plan, err := s.buildPlan(ctx, owner, action, outcome.Amount)
	if err != nil {
		return nil, s.fail(ctx, action, owner, outcome.Amount, StagePrepare, "", err)
	}
	return s.execute(ctx, action, owner, outcome.Amount, plan)
}

func (s *Service) rejected(action risk.Action, outcome amount.Outcome) error {
	s.logger.Info("Amount rejected",
		zap.String("action", string(action)),
		zap.String("code", string(outcome.Code)),
		zap.String("reason", outcome.Reason))
	return &ActionError{Action: action, Stage: StageValidate, Err: &ValidationError{Action: action, Outcome: outcome}}
}

// execute подписывает план, ждет финальности и фиксирует результат
func (s *Service) execute(ctx context.Context, action risk.Action, owner string, amt amount.TokenAmount, plan *txplan.Plan) (*Receipt, error) {
	start := time.Now()
	log := s.logger.With(
		zap.String("action", string(action)),
		zap.String("wallet", owner),
		zap.String("amount", amt.String()))

	digest, err := s.wallet.SignAndExecute(ctx, plan)
	if err != nil {
		return nil, s.fail(ctx, action, owner, amt, StageSubmit, "", err)
	}
	log = log.With(zap.String("tx_digest", digest))
	log.Info("Transaction submitted")

	s.save(ctx, &models.Transaction{
		Digest:        digest,
		WalletAddress: owner,
		Action:        string(action),
		Token:         tokenFor(action).Symbol,
		AmountRaw:     amt.RawUnits().String(),
		Amount:        amt.String(),
		Status:        models.StatusPending,
	})
	s.publish(events.NewTxSubmitted(action, owner, amt, digest))

	tx, err := s.client.WaitForTransaction(ctx, digest)
	if err != nil {
		if errors.Is(err, sui.ErrTransactionFailed) {
			s.updateStatus(ctx, digest, storage.StatusUpdate{Status: models.StatusFailed, ErrorMessage: err.Error()})
			s.publish(events.NewTxFailed(action, digest, err))
			s.record(action, models.StatusFailed, time.Since(start))
			log.Warn("Transaction failed on chain", zap.Error(err))
		} else {
			log.Warn("Transaction confirmation unknown", zap.Error(err))
		}
		return nil, &ActionError{Action: action, Stage: StageConfirm, Digest: digest, Err: err}
	}

	gas := amount.SUI.Zero()
	if total, err := tx.Effects.GasUsed.Total(); err == nil {
		gas, _ = amount.FromRawUnits(total, amount.SUI.Decimals)
	}
	now := time.Now()
	s.updateStatus(ctx, digest, storage.StatusUpdate{
		Status:      models.StatusConfirmed,
		GasUsedRaw:  gas.RawUnits().String(),
		Checkpoint:  tx.Checkpoint,
		ConfirmedAt: &now,
	})
	s.publish(events.NewTxConfirmed(action, digest, gas))
	s.record(action, models.StatusConfirmed, time.Since(start))
	log.Info("Transaction confirmed", zap.String("gas_used", gas.String()))

	return &Receipt{Action: action, Digest: digest, Amount: amt, GasUsed: gas, Checkpoint: tx.Checkpoint}, nil
}

// fail фиксирует ошибку до попадания транзакции в сеть
func (s *Service) fail(ctx context.Context, action risk.Action, owner string, amt amount.TokenAmount, stage Stage, digest string, err error) error {
	s.logger.Warn("Action failed",
		zap.String("action", string(action)),
		zap.String("stage", string(stage)),
		zap.Error(err))

	s.save(ctx, &models.Transaction{
		Digest:        digest,
		WalletAddress: owner,
		Action:        string(action),
		Token:         tokenFor(action).Symbol,
		AmountRaw:     amt.RawUnits().String(),
		Amount:        amt.String(),
		Status:        models.StatusFailed,
		ErrorMessage:  err.Error(),
	})
	s.publish(events.NewTxFailed(action, digest, err))
	s.record(action, models.StatusFailed, 0)
	return &ActionError{Action: action, Stage: stage, Digest: digest, Err: err}
}

func (s *Service) save(ctx context.Context, tx *models.Transaction) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.logger.Error("Failed to save transaction", zap.String("digest", tx.Digest), zap.Error(err))
	}
}

func (s *Service) updateStatus(ctx context.Context, digest string, u storage.StatusUpdate) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateStatus(ctx, digest, u); err != nil {
		s.logger.Error("Failed to update transaction", zap.String("digest", digest), zap.Error(err))
	}
}

func (s *Service) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Debug("Event dropped", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}

func (s *Service) record(action risk.Action, status string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordAction(action, status, d)
	}
}

func tokenFor(action risk.Action) amount.Token {
	if action == ActionLiquidate {
		return amount.SUSD
	}
	return action.Token()
}

// EstimateGas dry-runs the plan and returns computation plus storage cost.
// Any failure falls back to the configured default gas.
func (s *Service) EstimateGas(ctx context.Context, plan *txplan.Plan) amount.TokenAmount {
	if ReadOnly(s.wallet) {
		return s.policy.DefaultGas
	}
	txBytes, err := s.wallet.BuildTransaction(ctx, plan)
	if err != nil {
		s.logger.Debug("Gas estimation build failed", zap.Error(err))
		return s.policy.DefaultGas
	}
	res, err := s.client.DryRun(ctx, base64.StdEncoding.EncodeToString(txBytes))
	if err != nil {
		s.logger.Debug("Gas estimation dry run failed", zap.Error(err))
		return s.policy.DefaultGas
	}
	if res.Effects.Status.Status != sui.StatusSuccess {
		s.logger.Debug("Dry run aborted", zap.String("error", res.Effects.Status.Error))
		return s.policy.DefaultGas
	}
	total, err := res.Effects.GasUsed.Total()
	if err != nil || total.Sign() == 0 {
		return s.policy.DefaultGas
	}
	gas, err := amount.FromRawUnits(total, amount.SUI.Decimals)
	if err != nil {
		return s.policy.DefaultGas
	}
	return gas
}

// PlanFor builds the plan of a panel action without executing it, for gas
// estimation and previews. Repay reads the wallet's coins.
func (s *Service) PlanFor(ctx context.Context, action risk.Action, amt amount.TokenAmount) (*txplan.Plan, error) {
	if ReadOnly(s.wallet) {
		return nil, ErrWalletNotConnected
	}
	return s.buildPlan(ctx, s.wallet.Address(), action, amt)
}
