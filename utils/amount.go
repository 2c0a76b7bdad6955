package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Minor-unit precision per chain: drops are 1e-6 XRP, wei is 1e-18 ETH.
const (
	DropDecimals = 6
	WeiDecimals  = 18
)

// ParseMinorUnits parses a human decimal amount ("1.5") into minor units.
func ParseMinorUnits(amount string, decimals int) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	multiplier := decimal.NewFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil), 0)
	return dec.Mul(multiplier).BigInt(), nil
}

// FormatMinorUnits renders a minor-unit integer as a decimal string for
// logs and responses ("10000" drops -> "0.01").
func FormatMinorUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
