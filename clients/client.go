package clients

import (
	"context"
	"math/big"

	distypes "github.com/storyatlas/disburse/types"
)

// LedgerClient is the capability set both settlement backends implement.
// SubmitPayment blocks through finality and classifies the outcome; it never
// returns a raw backend error, only a populated SettlementResult.
type LedgerClient interface {
	SubmitPayment(ctx context.Context, to string, amount *big.Int, memo string) (*distypes.SettlementResult, error)
	Balance(ctx context.Context) (*big.Int, error)
	ValidateRecipient(address string) error
	Chain() distypes.Chain
	Policy() distypes.ChainPolicy
	Close()
}
