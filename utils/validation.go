package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddressForChain checks an address against the chain's grammar.
// This is a format check only; it runs before any network call so malformed
// recipients never reach a backend.
func ValidateAddressForChain(address string, chain string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch chain {
	case "evm":
		if !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("EVM address must start with 0x")
		}
		if len(address) != 42 {
			return fmt.Errorf("EVM address must be 42 characters long")
		}
		if !common.IsHexAddress(address) {
			return fmt.Errorf("EVM address must be valid hex")
		}

	case "xrpl":
		// Classic address: 'r' prefix, base58 (ripple alphabet), 25-35 chars.
		if !strings.HasPrefix(address, "r") {
			return fmt.Errorf("XRPL address must start with r")
		}
		if len(address) < 25 || len(address) > 35 {
			return fmt.Errorf("XRPL address has invalid length")
		}
		if !isBase58String(address) {
			return fmt.Errorf("XRPL address must be valid base58")
		}

	default:
		return fmt.Errorf("unsupported chain for address validation")
	}

	return nil
}

// ValidateTransactionReference checks a settlement reference's grammar,
// used when reconciling timed-out claims.
func ValidateTransactionReference(ref string, chain string) error {
	if ref == "" {
		return fmt.Errorf("transaction reference cannot be empty")
	}

	switch chain {
	case "evm":
		// 0x + 64 hex characters.
		if !strings.HasPrefix(ref, "0x") || len(ref) != 66 {
			return fmt.Errorf("EVM transaction hash must be 0x plus 64 hex characters")
		}
		if !isHexString(ref[2:]) {
			return fmt.Errorf("EVM transaction hash must be valid hex")
		}

	case "xrpl":
		// Uppercase hex, 64 characters.
		if len(ref) != 64 {
			return fmt.Errorf("XRPL transaction hash must be 64 characters long")
		}
		if !isHexString(ref) {
			return fmt.Errorf("XRPL transaction hash must be valid hex")
		}

	default:
		return fmt.Errorf("unsupported chain for transaction reference validation")
	}

	return nil
}

func isHexString(s string) bool {
	match, _ := regexp.MatchString("^[0-9a-fA-F]+$", s)
	return match
}

func isBase58String(s string) bool {
	// Ripple's base58 alphabet shares the Bitcoin exclusions (0, O, I, l).
	match, _ := regexp.MatchString("^[1-9A-HJ-NP-Za-km-z]+$", s)
	return match
}
