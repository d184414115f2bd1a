// internal/lending/service_test.go
package lending

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/events"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/storage"
	"github.com/rovshanmuradov/sui-lending/internal/storage/gormstore"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []string
}

func (r *fakeRecorder) RecordAction(action risk.Action, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, string(action)+":"+status)
}

type eventLog struct {
	mu    sync.Mutex
	types []events.EventType
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, e.Type())
	return nil
}

type fixture struct {
	svc      *Service
	ledger   *fakeLedger
	store    storage.Storage
	bus      *events.Bus
	recorder *fakeRecorder
	events   *eventLog
}

func newFixture(t *testing.T, ledger *fakeLedger, wallet Wallet) *fixture {
	t.Helper()

	store, err := gormstore.Open(gormstore.DriverSQLite, filepath.Join(t.TempDir(), "lending.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		ledger:   ledger,
		store:    store,
		bus:      events.NewBus(zap.NewNop(), 16),
		recorder: &fakeRecorder{},
		events:   &eventLog{},
	}
	f.bus.SubscribeFunc(events.All, f.events.handle)

	f.svc = NewService(Deps{
		Client:    sui.NewClient(ledger, zap.NewNop()),
		Wallet:    wallet,
		Store:     store,
		Bus:       f.bus,
		Recorder:  f.recorder,
		Contracts: testContracts,
		Policy:    testPolicy(),
	})
	return f
}

// published останавливает шину и возвращает доставленные события
func (f *fixture) published(t *testing.T) []events.EventType {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.bus.Shutdown(ctx))

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	return append([]events.EventType(nil), f.events.types...)
}

func capturePlan(w *MockWallet, digest string, err error) *txplan.Plan {
	plan := new(txplan.Plan)
	w.On("SignAndExecute", mock.Anything, mock.MatchedBy(func(p *txplan.Plan) bool {
		*plan = *p
		return true
	})).Return(digest, err)
	return plan
}

func TestDeposit(t *testing.T) {
	w := newMockWallet(testOwner)
	plan := capturePlan(w, "0xd1", nil)
	f := newFixture(t, standardLedger(), w)

	receipt, err := f.svc.Deposit(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, "0xd1", receipt.Digest)
	assert.Equal(t, "5", receipt.Amount.String())
	assert.Equal(t, "0.0025", receipt.GasUsed.String())
	assert.Equal(t, "77", receipt.Checkpoint)

	require.Len(t, plan.Commands, 2)
	assert.Equal(t, testOwner, plan.Sender)
	assert.Equal(t, txplan.CmdSplitCoins, plan.Commands[0].Kind)
	assert.Equal(t, txplan.Gas(), *plan.Commands[0].Coin)
	assert.Equal(t, txplan.PureU64(5_000_000_000), plan.Commands[0].Amounts[0])
	assert.Equal(t, []string{"0xbeef::lending_pool_with_staking::deposit_and_stake_sui"}, plan.Targets())
	assert.Equal(t, []txplan.Argument{
		txplan.Object("0xb002"),
		txplan.Object(sui.SystemStateObjectID),
		txplan.NestedResult(0, 0),
	}, plan.Commands[1].Arguments)

	rec, err := f.store.GetTransaction(context.Background(), "0xd1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "deposit", rec.Action)
	assert.Equal(t, "SUI", rec.Token)
	assert.Equal(t, "5000000000", rec.AmountRaw)
	assert.Equal(t, "2500000", rec.GasUsedRaw)
	assert.Equal(t, "77", rec.Checkpoint)
	assert.NotNil(t, rec.ConfirmedAt)

	assert.Equal(t, []events.EventType{events.TxSubmitted, events.TxConfirmed}, f.published(t))
	assert.Equal(t, []string{"deposit:confirmed"}, f.recorder.records)
	w.AssertExpectations(t)
}

func TestBorrow(t *testing.T) {
	w := newMockWallet(testOwner)
	plan := capturePlan(w, "0xd2", nil)
	f := newFixture(t, standardLedger(), w)

	_, err := f.svc.Borrow(context.Background(), "10")
	require.NoError(t, err)

	require.Len(t, plan.Commands, 1)
	assert.Equal(t, "0xbeef::lending_pool::borrow_stablecoin", plan.Commands[0].Target)
	assert.Equal(t, []txplan.Argument{
		txplan.Object("0xb001"),
		txplan.Object("0xd00d"),
		txplan.Object("0xfeed"),
		txplan.PureU64(10_000_000_000),
	}, plan.Commands[0].Arguments)

	rec, err := f.store.GetTransaction(context.Background(), "0xd2")
	require.NoError(t, err)
	assert.Equal(t, "SUSD", rec.Token)
}

func TestBorrowAboveCapacity(t *testing.T) {
	w := newMockWallet(testOwner)
	f := newFixture(t, standardLedger(), w)

	_, err := f.svc.Borrow(context.Background(), "60")
	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StageValidate, actionErr.Stage)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, amount.CodeAboveMaximum, validation.Outcome.Code)
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)

	w.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
	txs, err := f.store.ListTransactions(context.Background(), testOwner, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestRepayMergesCoins(t *testing.T) {
	w := newMockWallet(testOwner)
	plan := capturePlan(w, "0xd3", nil)
	f := newFixture(t, standardLedger().withCoins("20000000000", "15000000000"), w)

	_, err := f.svc.Repay(context.Background(), "25")
	require.NoError(t, err)

	require.Len(t, plan.Commands, 3)
	merge := plan.Commands[0]
	assert.Equal(t, txplan.CmdMergeCoins, merge.Kind)
	assert.Equal(t, txplan.Object("0xc01"), *merge.Coin)
	assert.Equal(t, []txplan.Argument{txplan.Object("0xc02")}, merge.Sources)

	split := plan.Commands[1]
	assert.Equal(t, txplan.CmdSplitCoins, split.Kind)
	assert.Equal(t, txplan.PureU64(25_000_000_000), split.Amounts[0])

	assert.Equal(t, "0xbeef::lending_pool::repay_loan", plan.Commands[2].Target)
	assert.Equal(t, []txplan.Argument{
		txplan.Object("0xb001"),
		txplan.Object("0xfeed"),
		txplan.NestedResult(1, 0),
	}, plan.Commands[2].Arguments)
}

func TestRepayInsufficientCoins(t *testing.T) {
	w := newMockWallet(testOwner)
	f := newFixture(t, standardLedger().withCoins("1000000000"), w)

	_, err := f.svc.Repay(context.Background(), "25")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StagePrepare, actionErr.Stage)
	w.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)

	txs, err := f.store.FindTransactions(context.Background(), storage.Filter{Status: models.StatusFailed})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "repay", txs[0].Action)
	assert.Contains(t, txs[0].ErrorMessage, "insufficient balance")
	assert.Equal(t, []events.EventType{events.TxFailed}, f.published(t))
}

func TestWithdraw(t *testing.T) {
	w := newMockWallet(testOwner)
	plan := capturePlan(w, "0xd4", nil)
	f := newFixture(t, standardLedger(), w)

	_, err := f.svc.Withdraw(context.Background(), "20")
	require.NoError(t, err)

	require.Len(t, plan.Commands, 1)
	assert.Equal(t, "0xbeef::lending_pool_with_staking::unstake_and_withdraw_sui", plan.Commands[0].Target)
	assert.Equal(t, []txplan.Argument{
		txplan.Object("0xb002"),
		txplan.Object(sui.SystemStateObjectID),
		txplan.PureU64(20_000_000_000),
	}, plan.Commands[0].Arguments)
}

func TestWithdrawBeyondSafeAmount(t *testing.T) {
	w := newMockWallet(testOwner)
	f := newFixture(t, standardLedger(), w)

	_, err := f.svc.Withdraw(context.Background(), "50.5")
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestActionWithoutWallet(t *testing.T) {
	f := newFixture(t, standardLedger(), nil)

	_, err := f.svc.Deposit(context.Background(), "1")
	assert.ErrorIs(t, err, ErrWalletNotConnected)
	_, err = f.svc.Liquidate(context.Background(), testBorrower, "1")
	assert.ErrorIs(t, err, ErrWalletNotConnected)
	assert.Empty(t, f.svc.Address())
}

func TestSubmitFailure(t *testing.T) {
	w := newMockWallet(testOwner)
	capturePlan(w, "", errors.New("user rejected"))
	f := newFixture(t, standardLedger(), w)

	_, err := f.svc.Deposit(context.Background(), "1")
	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StageSubmit, actionErr.Stage)

	txs, err := f.store.FindTransactions(context.Background(), storage.Filter{Wallet: testOwner})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.StatusFailed, txs[0].Status)
	assert.Equal(t, "user rejected", txs[0].ErrorMessage)

	assert.Equal(t, []events.EventType{events.TxFailed}, f.published(t))
	assert.Equal(t, []string{"deposit:failed"}, f.recorder.records)
}

func TestOnChainFailure(t *testing.T) {
	ledger := standardLedger()
	ledger.txStatus["0xd5"] = sui.StatusFailure
	w := newMockWallet(testOwner)
	capturePlan(w, "0xd5", nil)
	f := newFixture(t, ledger, w)

	_, err := f.svc.Borrow(context.Background(), "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, sui.ErrTransactionFailed)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StageConfirm, actionErr.Stage)
	assert.Equal(t, "0xd5", actionErr.Digest)

	rec, err := f.store.GetTransaction(context.Background(), "0xd5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "MoveAbort")

	assert.Equal(t, []events.EventType{events.TxSubmitted, events.TxFailed}, f.published(t))
}

func TestLiquidate(t *testing.T) {
	ledger := newFakeLedger().
		withPool("5000").
		withPosition(testBorrower, "10000000000", "10000000000").
		withBalances(testOwner, "10000000000", "30000000000").
		withCoins("30000000000")
	w := newMockWallet(testOwner)
	plan := capturePlan(w, "0xd6", nil)
	f := newFixture(t, ledger, w)

	receipt, err := f.svc.Liquidate(context.Background(), testBorrower, "10")
	require.NoError(t, err)
	assert.Equal(t, ActionLiquidate, receipt.Action)

	require.Len(t, plan.Commands, 2)
	assert.Equal(t, txplan.CmdSplitCoins, plan.Commands[0].Kind)
	assert.Equal(t, "0xbeef::lending_pool::liquidate_position", plan.Commands[1].Target)
	assert.Equal(t, []txplan.Argument{
		txplan.Object("0xb001"),
		txplan.Object("0xd00d"),
		txplan.Object("0x5a"),
		txplan.Object("0x5b"),
		txplan.Object("0xfeed"),
		txplan.PureAddress(testBorrower),
		txplan.NestedResult(0, 0),
	}, plan.Commands[1].Arguments)
}

func TestLiquidateLimits(t *testing.T) {
	ledger := newFakeLedger().
		withPool("5000").
		withPosition(testBorrower, "10000000000", "10000000000").
		withBalances(testOwner, "10000000000", "30000000000").
		withCoins("30000000000")
	f := newFixture(t, ledger, newMockWallet(testOwner))

	_, err := f.svc.Liquidate(context.Background(), testBorrower, "11")
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestLiquidateHealthyPosition(t *testing.T) {
	ledger := standardLedger().withPosition(testBorrower, "100000000000", "10000000000")
	w := newMockWallet(testOwner)
	f := newFixture(t, ledger, w)

	_, err := f.svc.Liquidate(context.Background(), testBorrower, "1")
	assert.ErrorIs(t, err, ErrNotLiquidatable)
	w.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
}

func TestEstimateGas(t *testing.T) {
	ledger := standardLedger()
	ledger.dryRun = &sui.DryRunResult{Effects: sui.Effects{
		Status:  sui.ExecutionStatus{Status: sui.StatusSuccess},
		GasUsed: sui.GasCostSummary{ComputationCost: "1000000", StorageCost: "2000000", StorageRebate: "500000"},
	}}
	w := newMockWallet(testOwner)
	w.On("BuildTransaction", mock.Anything, mock.Anything).Return([]byte{1, 2, 3}, nil)
	f := newFixture(t, ledger, w)

	plan, err := f.svc.PlanFor(context.Background(), risk.ActionDeposit, amount.SUI.MustParse("1"))
	require.NoError(t, err)

	gas := f.svc.EstimateGas(context.Background(), plan)
	assert.Equal(t, "0.0025", gas.String())
	assert.Equal(t, 1, ledger.called("sui_dryRunTransactionBlock"))
}

func TestEstimateGasFallback(t *testing.T) {
	tests := []struct {
		name   string
		dryRun *sui.DryRunResult
		build  error
	}{
		{"dry run error", nil, nil},
		{"build error", nil, errors.New("cannot serialise")},
		{"aborted", &sui.DryRunResult{Effects: sui.Effects{Status: sui.ExecutionStatus{Status: sui.StatusFailure}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := standardLedger()
			ledger.dryRun = tt.dryRun
			w := newMockWallet(testOwner)
			w.On("BuildTransaction", mock.Anything, mock.Anything).Return([]byte{1}, tt.build)
			f := newFixture(t, ledger, w)

			plan, err := f.svc.PlanFor(context.Background(), risk.ActionBorrow, amount.SUSD.MustParse("1"))
			require.NoError(t, err)
			assert.Equal(t, "0.01", f.svc.EstimateGas(context.Background(), plan).String())
		})
	}
}

func TestPlanFor(t *testing.T) {
	f := newFixture(t, standardLedger().withCoins("5000000000"), newMockWallet(testOwner))

	tests := []struct {
		action risk.Action
		target string
	}{
		{risk.ActionDeposit, "0xbeef::lending_pool_with_staking::deposit_and_stake_sui"},
		{risk.ActionBorrow, "0xbeef::lending_pool::borrow_stablecoin"},
		{risk.ActionRepay, "0xbeef::lending_pool::repay_loan"},
		{risk.ActionWithdraw, "0xbeef::lending_pool_with_staking::unstake_and_withdraw_sui"},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			plan, err := f.svc.PlanFor(context.Background(), tt.action, amount.FromUint64(1_000_000_000, 9))
			require.NoError(t, err)
			assert.Equal(t, []string{tt.target}, plan.Targets())
		})
	}

	_, err := f.svc.PlanFor(context.Background(), ActionLiquidate, amount.SUSD.MustParse("1"))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestPlanForMatchesExecutedPlan(t *testing.T) {
	w := newMockWallet(testOwner)
	executed := capturePlan(w, "0xd7", nil)
	f := newFixture(t, standardLedger().withCoins("5000000000"), w)
	ctx := context.Background()

	estimated, err := f.svc.PlanFor(ctx, risk.ActionRepay, amount.SUSD.MustParse("5"))
	require.NoError(t, err)

	_, err = f.svc.Repay(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, *estimated, *executed)
}

// staleLedger отдает позицию, но оракул не читается
func staleLedger() *fakeLedger {
	l := standardLedger().withPosition(testBorrower, "10000000000", "10000000000")
	delete(l.objects, testContracts.PriceOracle)
	return l
}

func TestStalePriceBlocksBorrowAndWithdraw(t *testing.T) {
	w := newMockWallet(testOwner)
	f := newFixture(t, staleLedger(), w)

	for _, do := range []func(context.Context, string) (*Receipt, error){f.svc.Borrow, f.svc.Withdraw} {
		_, err := do(context.Background(), "1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStalePrice)

		var actionErr *ActionError
		require.ErrorAs(t, err, &actionErr)
		assert.Equal(t, StageValidate, actionErr.Stage)
	}

	w.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
	txs, err := f.store.ListTransactions(context.Background(), testOwner, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestStalePriceBlocksLiquidate(t *testing.T) {
	w := newMockWallet(testOwner)
	f := newFixture(t, staleLedger().withCoins("30000000000"), w)

	_, err := f.svc.Liquidate(context.Background(), testBorrower, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStalePrice)
	assert.NotErrorIs(t, err, ErrNotLiquidatable)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, ActionLiquidate, actionErr.Action)
	assert.Equal(t, StageValidate, actionErr.Stage)
	w.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
}
