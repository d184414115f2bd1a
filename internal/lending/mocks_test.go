// internal/lending/mocks_test.go
package lending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

const (
	testOwner    = "0xa11ce"
	testBorrower = "0xb0b"
	testTableID  = "0x7ab1e"
	testSUSDType = "0xbeef::stablecoin::STABLECOIN"
)

var testContracts = config.Contracts{
	PackageID:              "0xbeef",
	LendingPool:            "0xb001",
	LendingPoolWithStaking: "0xb002",
	PriceOracle:            "0xd00d",
	StablecoinTreasury:     "0xfeed",
	StakingManager:         "0x5a",
	ShortPositionManager:   "0x5b",
	SUSDCoinType:           testSUSDType,
}

func testPolicy() config.Policy {
	return config.Policy{
		Risk:           risk.ParamsFromPercent(50, 75),
		MinDeposit:     amount.SUI.MustParse("0.001"),
		MinBorrow:      amount.SUSD.MustParse("1"),
		MinRepay:       amount.SUSD.MustParse("0.01"),
		MinWithdraw:    amount.SUI.MustParse("0.001"),
		GasReserve:     amount.SUI.MustParse("0.01"),
		PricePrecision: decimal.NewFromInt(10000),
		FallbackPrice:  decimal.RequireFromString("0.5"),
		DefaultGas:     amount.FromUint64(10_000_000, amount.SUI.Decimals),
	}
}

// fakeLedger отвечает на JSON-RPC методы из состояния в памяти
type fakeLedger struct {
	mu       sync.Mutex
	objects  map[string]map[string]interface{}
	accounts map[string]map[string]interface{}
	balances map[string]map[string]string
	coins    []sui.Coin
	txStatus map[string]string
	dryRun   *sui.DryRunResult
	failing  map[string]error
	calls    []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		objects:  map[string]map[string]interface{}{},
		accounts: map[string]map[string]interface{}{},
		balances: map[string]map[string]string{},
		txStatus: map[string]string{},
		failing:  map[string]error{},
	}
}

// withPool кладет пул с таблицей позиций и оракул с ценой (в единицах 1/10000)
func (l *fakeLedger) withPool(price string) *fakeLedger {
	l.objects[testContracts.LendingPoolWithStaking] = map[string]interface{}{
		"positions": map[string]interface{}{
			"type":   "0x2::table::Table<address, 0xbeef::lending_pool::Position>",
			"fields": map[string]interface{}{"id": map[string]interface{}{"id": testTableID}, "size": "1"},
		},
		"total_deposits": "1000000000000",
		"total_borrowed": "250000000000",
	}
	if price != "" {
		l.objects[testContracts.PriceOracle] = map[string]interface{}{"sui_price": price}
	}
	return l
}

func (l *fakeLedger) withPosition(owner, deposited, borrowed string) *fakeLedger {
	value := map[string]interface{}{"deposited_amount": deposited}
	if borrowed != "" {
		value["borrowed_amount"] = borrowed
	}
	l.accounts[owner] = value
	return l
}

func (l *fakeLedger) withBalances(owner, suiRaw, susdRaw string) *fakeLedger {
	l.balances[owner] = map[string]string{sui.SUICoinType: suiRaw, testSUSDType: susdRaw}
	return l
}

func (l *fakeLedger) withCoins(balances ...string) *fakeLedger {
	for i, b := range balances {
		l.coins = append(l.coins, sui.Coin{
			CoinType:     testSUSDType,
			CoinObjectID: fmt.Sprintf("0xc0%d", i+1),
			Balance:      b,
		})
	}
	return l
}

func (l *fakeLedger) called(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (l *fakeLedger) Call(_ context.Context, out interface{}, method string, params ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, method)
	if err := l.failing[method]; err != nil {
		return err
	}

	var resp interface{}
	switch method {
	case "sui_getObject":
		id := params[0].(string)
		fields, ok := l.objects[id]
		if !ok {
			resp = map[string]interface{}{"error": map[string]interface{}{"code": "notExists", "object_id": id}}
			break
		}
		resp = moveObject(id, fields)

	case "suix_getDynamicFieldObject":
		parent := params[0].(string)
		key := params[1].(sui.DynamicFieldName).Value.(string)
		value, ok := l.accounts[key]
		if parent != testTableID || !ok {
			resp = map[string]interface{}{"error": map[string]interface{}{"code": "dynamicFieldNotFound"}}
			break
		}
		resp = moveObject("0xfield", map[string]interface{}{
			"name":  key,
			"value": map[string]interface{}{"type": "0xbeef::lending_pool::Position", "fields": value},
		})

	case "suix_getBalance":
		owner, coinType := params[0].(string), params[1].(string)
		total := "0"
		if v, ok := l.balances[owner][coinType]; ok {
			total = v
		}
		resp = sui.Balance{CoinType: coinType, TotalBalance: total}

	case "suix_getCoins":
		resp = map[string]interface{}{"data": l.coins, "nextCursor": nil, "hasNextPage": false}

	case "sui_getTransactionBlock":
		digest := params[0].(string)
		status, ok := l.txStatus[digest]
		if !ok {
			status = sui.StatusSuccess
		}
		resp = sui.TransactionBlock{
			Digest: digest,
			Effects: &sui.Effects{
				Status: sui.ExecutionStatus{Status: status, Error: errorFor(status)},
				GasUsed: sui.GasCostSummary{
					ComputationCost: "1000000",
					StorageCost:     "2000000",
					StorageRebate:   "500000",
				},
			},
			Checkpoint: "77",
		}

	case "sui_dryRunTransactionBlock":
		if l.dryRun == nil {
			return errors.New("dry run unavailable")
		}
		resp = l.dryRun

	default:
		return fmt.Errorf("unexpected method %s", method)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func moveObject(id string, fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"objectId": id,
			"content":  map[string]interface{}{"dataType": "moveObject", "fields": fields},
		},
	}
}

func errorFor(status string) string {
	if status == sui.StatusSuccess {
		return ""
	}
	return "MoveAbort(1)"
}

// MockWallet реализует Wallet
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Address() string {
	return m.Called().String(0)
}

func (m *MockWallet) BuildTransaction(ctx context.Context, plan *txplan.Plan) ([]byte, error) {
	args := m.Called(ctx, plan)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockWallet) SignAndExecute(ctx context.Context, plan *txplan.Plan) (string, error) {
	args := m.Called(ctx, plan)
	return args.String(0), args.Error(1)
}

func newMockWallet(address string) *MockWallet {
	w := new(MockWallet)
	w.On("Address").Return(address)
	return w
}

func newTestReader(t *testing.T, ledger *fakeLedger) *Reader {
	t.Helper()
	return NewReader(sui.NewClient(ledger, zap.NewNop()), testContracts, testPolicy(), zap.NewNop())
}
