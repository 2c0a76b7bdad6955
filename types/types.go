package types

import (
	"fmt"
	"math/big"
	"time"
)

// Chain identifies a settlement backend family.
type Chain string

const (
	// ChainXRPL is the native ledger backend (payments settle in drops).
	ChainXRPL Chain = "xrpl"
	// ChainEVM is the EVM-compatible backend (payments settle in wei).
	ChainEVM Chain = "evm"
)

// IsNative reports whether the chain uses the native-ledger payment model.
func (c Chain) IsNative() bool {
	return c == ChainXRPL
}

// IsEVM reports whether the chain uses the EVM account/gas/receipt model.
func (c Chain) IsEVM() bool {
	return c == ChainEVM
}

func (c Chain) String() string {
	return string(c)
}

// ClaimRequest converts an accrued point balance into a payout request.
// Exactly one of Points/ExplicitAmount determines the settlement amount;
// ExplicitAmount, when present and positive, takes precedence.
type ClaimRequest struct {
	// RecipientAddress in the target chain's canonical format.
	RecipientAddress string `json:"recipientAddress" validate:"required"`

	// Points accrued by the recipient. Optional; negative values resolve
	// to a zero amount.
	Points *int64 `json:"points,omitempty"`

	// ExplicitAmount in minor units (drops or wei). Optional.
	ExplicitAmount *big.Int `json:"explicitAmount,omitempty"`

	// Memo attached to the payment where the backend supports one.
	Memo string `json:"memo,omitempty"`

	// Chain selects the settlement backend.
	Chain Chain `json:"chain" validate:"required"`
}

// SettlementResult is the terminal outcome of a single claim attempt.
// The subsystem never retries a claim on its own; a populated TxReference
// on a failed result is the caller's handle for reconciliation.
type SettlementResult struct {
	Ok            bool     `json:"ok"`
	TxReference   string   `json:"txReference,omitempty"`
	SettledUnits  *big.Int `json:"settledUnits,omitempty"`
	FailureReason string   `json:"failureReason,omitempty"`
}

// ChainPolicy bounds the point-to-money conversion for one chain.
// Loaded once at startup and immutable thereafter.
type ChainPolicy struct {
	// UnitsPerPoint is the minor-unit award per accrued point.
	UnitsPerPoint *big.Int
	// MaxUnitsPerClaim hard-caps a single payout.
	MaxUnitsPerClaim *big.Int
	// MinUnitsPerClaim rejects dust claims below the floor.
	MinUnitsPerClaim *big.Int
}

// Validate checks the policy is internally coherent.
func (p ChainPolicy) Validate() error {
	if p.UnitsPerPoint == nil || p.UnitsPerPoint.Sign() <= 0 {
		return fmt.Errorf("unitsPerPoint must be positive")
	}
	if p.MaxUnitsPerClaim == nil || p.MaxUnitsPerClaim.Sign() <= 0 {
		return fmt.Errorf("maxUnitsPerClaim must be positive")
	}
	if p.MinUnitsPerClaim == nil || p.MinUnitsPerClaim.Sign() < 0 {
		return fmt.Errorf("minUnitsPerClaim must be non-negative")
	}
	if p.MinUnitsPerClaim.Cmp(p.MaxUnitsPerClaim) > 0 {
		return fmt.Errorf("minUnitsPerClaim exceeds maxUnitsPerClaim")
	}
	return nil
}

// PointerRecord is the small mutable register layered over the immutable
// content store. The record itself is published as a content-addressed blob
// tagged with a pointer name; "current" is the most recently published copy
// for the tag, resolved at read time rather than enforced at write time.
type PointerRecord struct {
	Latest    string    `json:"latest"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientConfig carries per-chain connection and signing parameters.
type ClientConfig struct {
	Chain Chain `json:"chain"`

	// RPCURL is the network endpoint (JSON-RPC for EVM, websocket for XRPL).
	RPCURL string `json:"rpcUrl"`

	// ChainID pins the EVM network the client signs for. Never autodetected:
	// a transaction signed for the wrong network must be unrepresentable.
	ChainID *big.Int `json:"chainId,omitempty"`

	// SignerSecret is the custodial key material: a hex private key for EVM,
	// a family seed for XRPL. Held in process memory only.
	SignerSecret string `json:"-"`

	// Policy bounds payouts on this chain.
	Policy ChainPolicy `json:"-"`
}

// Error is the typed failure every component boundary converts to.
// Raw backend errors never cross a component boundary.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a typed error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Failure taxonomy. Validation and configuration errors are terminal for the
// request; BackendUnavailable is safe to retry whole; Timeout and
// ChainRejected require reconciliation by tx reference before any retry.
const (
	ErrValidation         = "VALIDATION_ERROR"
	ErrConfiguration      = "CONFIGURATION_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrChainRejected      = "CHAIN_REJECTED"
	ErrTimeout            = "TIMEOUT"
)

// Well-known failure reasons surfaced in SettlementResult.FailureReason and
// pointer-store errors.
const (
	ReasonInvalidRecipient  = "InvalidRecipient"
	ReasonUnsupportedChain  = "UnsupportedChain"
	ReasonAmountTooSmall    = "AmountTooSmall"
	ReasonInsufficientFunds = "InsufficientFunds"
	ReasonPublishFailed     = "PublishFailed"
	ReasonMissingCredential = "MissingCredential"
)
