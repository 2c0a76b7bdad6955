// Package policy implements the pure point-to-payout conversion.
package policy

import (
	"errors"
	"math/big"

	"github.com/storyatlas/disburse/types"
)

// ErrAmountTooSmall reports a resolved amount below the configured floor.
var ErrAmountTooSmall = errors.New("policy: amount below minimum claimable units")

// ResolveAmount converts a claim's point balance (or explicit override) into
// a bounded minor-unit settlement amount for one chain.
//
// An explicit amount, when present and positive, wins over the points-derived
// amount; both paths are clamped by MaxUnitsPerClaim, and anything under
// MinUnitsPerClaim fails with ErrAmountTooSmall. The function has no side
// effects and touches no network.
func ResolveAmount(points *int64, explicit *big.Int, cfg types.ChainPolicy) (*big.Int, error) {
	var amount *big.Int

	if explicit != nil && explicit.Sign() > 0 {
		amount = new(big.Int).Set(explicit)
	} else {
		pts := int64(1)
		if points != nil {
			pts = *points
		}
		if pts < 0 {
			pts = 0
		}
		amount = new(big.Int).Mul(big.NewInt(pts), cfg.UnitsPerPoint)
	}

	if amount.Cmp(cfg.MaxUnitsPerClaim) > 0 {
		amount = new(big.Int).Set(cfg.MaxUnitsPerClaim)
	}

	if amount.Cmp(cfg.MinUnitsPerClaim) < 0 {
		return nil, ErrAmountTooSmall
	}

	return amount, nil
}
