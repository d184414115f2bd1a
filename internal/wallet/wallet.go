// ==================================
// File: internal/wallet/wallet.go
// ==================================

// Package wallet connects the dashboard to an external signer. Keys never
// enter this process: the signer receives the JSON transaction plan, builds
// or signs it and answers over JSON-RPC.
package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/sui"
	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

// Методы внешнего подписанта
const (
	MethodBuild   = "signer_buildTransaction"
	MethodExecute = "signer_signAndExecute"
)

var (
	// ErrInvalidAddress is returned for malformed Sui addresses.
	ErrInvalidAddress = errors.New("invalid sui address")
	// ErrEmptyDigest is returned when the signer accepts a plan without a digest.
	ErrEmptyDigest = errors.New("signer returned empty digest")
)

// Remote реализует lending.Wallet поверх JSON-RPC подписанта.
type Remote struct {
	address string
	signer  sui.Caller
	logger  *zap.Logger
}

// NewRemote создаёт кошелёк для address; signer обычно rpc.Pool без повторов,
// чтобы не отправить транзакцию дважды.
func NewRemote(address string, signer sui.Caller, logger *zap.Logger) (*Remote, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		address: NormalizeAddress(address),
		signer:  signer,
		logger:  logger.Named("wallet"),
	}, nil
}

// Address returns the connected account.
func (w *Remote) Address() string {
	return w.address
}

// buildResult is the signer answer to MethodBuild
type buildResult struct {
	TxBytes string `json:"txBytes"`
}

// executeResult is the signer answer to MethodExecute
type executeResult struct {
	Digest string `json:"digest"`
}

// BuildTransaction asks the signer to serialise the plan without signing.
func (w *Remote) BuildTransaction(ctx context.Context, plan *txplan.Plan) ([]byte, error) {
	plan.Sender = w.address

	var res buildResult
	if err := w.signer.Call(ctx, &res, MethodBuild, plan); err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	txBytes, err := base64.StdEncoding.DecodeString(res.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("decode transaction bytes: %w", err)
	}
	return txBytes, nil
}

// SignAndExecute asks the signer to sign and submit the plan.
func (w *Remote) SignAndExecute(ctx context.Context, plan *txplan.Plan) (string, error) {
	plan.Sender = w.address

	var res executeResult
	if err := w.signer.Call(ctx, &res, MethodExecute, plan); err != nil {
		return "", fmt.Errorf("sign and execute: %w", err)
	}
	if res.Digest == "" {
		return "", ErrEmptyDigest
	}
	w.logger.Debug("Plan executed by signer",
		zap.String("digest", res.Digest),
		zap.Int("commands", len(plan.Commands)))
	return res.Digest, nil
}

// ValidateAddress checks a 0x-prefixed hex address of at most 32 bytes.
func ValidateAddress(address string) error {
	hexPart, ok := strings.CutPrefix(strings.ToLower(address), "0x")
	if !ok || hexPart == "" || len(hexPart) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	for _, r := range hexPart {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
	}
	return nil
}

// NormalizeAddress lowercases and left-pads an address to 64 hex digits.
func NormalizeAddress(address string) string {
	hexPart := strings.TrimPrefix(strings.ToLower(address), "0x")
	if len(hexPart) < 64 {
		hexPart = strings.Repeat("0", 64-len(hexPart)) + hexPart
	}
	return "0x" + hexPart
}
