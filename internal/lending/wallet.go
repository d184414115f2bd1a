// internal/lending/wallet.go
package lending

import (
	"context"

	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

// Wallet signs and submits transactions on behalf of the connected account.
// Key management lives outside this module.
type Wallet interface {
	Address() string
	// BuildTransaction serialises the plan into transaction bytes suitable
	// for a dry run.
	BuildTransaction(ctx context.Context, plan *txplan.Plan) ([]byte, error)
	// SignAndExecute signs and submits the plan and returns its digest.
	SignAndExecute(ctx context.Context, plan *txplan.Plan) (string, error)
}

// ReadOnly reports whether w is absent.
func ReadOnly(w Wallet) bool {
	return w == nil || w.Address() == ""
}
