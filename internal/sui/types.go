// internal/sui/types.go
package sui

import (
	"fmt"
	"math/big"
)

const (
	// SUICoinType is the native coin type.
	SUICoinType = "0x2::sui::SUI"
	// ClockObjectID is the shared system clock.
	ClockObjectID = "0x6"
	// SystemStateObjectID is the shared Sui system state used by staking calls.
	SystemStateObjectID = "0x5"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Balance is the suix_getBalance response.
type Balance struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

// Coin is one owned coin object.
type Coin struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Version      string `json:"version"`
	Digest       string `json:"digest"`
	Balance      string `json:"balance"`
}

// Value returns the coin balance in base units.
func (c Coin) Value() (*big.Int, error) {
	v, ok := new(big.Int).SetString(c.Balance, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("coin %s: invalid balance %q", c.CoinObjectID, c.Balance)
	}
	return v, nil
}

type coinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// ObjectOptions mirrors SuiObjectDataOptions.
type ObjectOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// MoveContent is the parsed Move struct of an object.
type MoveContent struct {
	DataType string                 `json:"dataType"`
	Type     string                 `json:"type"`
	Fields   map[string]interface{} `json:"fields"`
}

// Object is the data part of sui_getObject.
type Object struct {
	ObjectID string       `json:"objectId"`
	Version  string       `json:"version"`
	Digest   string       `json:"digest"`
	Type     string       `json:"type"`
	Content  *MoveContent `json:"content"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type objectResponse struct {
	Data  *Object      `json:"data"`
	Error *objectError `json:"error"`
}

// DynamicFieldName identifies a dynamic field by its Move type and value.
type DynamicFieldName struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// AddressKey builds the name of a field keyed by an address.
func AddressKey(address string) DynamicFieldName {
	return DynamicFieldName{Type: "address", Value: address}
}

// ExecutionStatus is the effects status.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GasCostSummary is returned by dry runs and executed effects.
type GasCostSummary struct {
	ComputationCost         string `json:"computationCost"`
	StorageCost             string `json:"storageCost"`
	StorageRebate           string `json:"storageRebate"`
	NonRefundableStorageFee string `json:"nonRefundableStorageFee"`
}

// Total returns computation + storage − rebate, never below zero.
func (g GasCostSummary) Total() (*big.Int, error) {
	parse := func(name, v string) (*big.Int, error) {
		if v == "" {
			return new(big.Int), nil
		}
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid %s %q", name, v)
		}
		return n, nil
	}
	computation, err := parse("computationCost", g.ComputationCost)
	if err != nil {
		return nil, err
	}
	storage, err := parse("storageCost", g.StorageCost)
	if err != nil {
		return nil, err
	}
	rebate, err := parse("storageRebate", g.StorageRebate)
	if err != nil {
		return nil, err
	}

	total := new(big.Int).Add(computation, storage)
	total.Sub(total, rebate)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	return total, nil
}

// Effects is the subset of TransactionBlockEffects the dashboard reads.
type Effects struct {
	Status  ExecutionStatus `json:"status"`
	GasUsed GasCostSummary  `json:"gasUsed"`
}

// DryRunResult is the sui_dryRunTransactionBlock response.
type DryRunResult struct {
	Effects Effects `json:"effects"`
}

// TransactionBlock is the sui_getTransactionBlock response.
type TransactionBlock struct {
	Digest      string   `json:"digest"`
	Effects     *Effects `json:"effects"`
	TimestampMs string   `json:"timestampMs"`
	Checkpoint  string   `json:"checkpoint"`
}

// TransactionOptions mirrors SuiTransactionBlockResponseOptions.
type TransactionOptions struct {
	ShowEffects bool `json:"showEffects,omitempty"`
	ShowInput   bool `json:"showInput,omitempty"`
	ShowEvents  bool `json:"showEvents,omitempty"`
}
