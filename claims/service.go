// Package claims orchestrates reward claims: validate, resolve the payout
// amount, pick the settlement backend, submit, and classify finality.
package claims

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storyatlas/disburse/clients"
	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/metrics"
	"github.com/storyatlas/disburse/policy"
	distypes "github.com/storyatlas/disburse/types"
	"github.com/storyatlas/disburse/utils"
)

// ClaimService runs one claim attempt end to end. It performs no retries of
// its own and keeps no durable record of settled claims: semantics are
// at-most-one-attempt, and reconciliation by tx reference is the caller's
// job after a Timeout or ChainRejected outcome.
type ClaimService struct {
	ledgers  map[distypes.Chain]clients.LedgerClient
	timeout  time.Duration
	log      logger.Logger
	rec      metrics.Recorder
	validate *validator.Validate
}

// Option customises the claim service.
type Option func(*ClaimService)

// WithLogger wires a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(s *ClaimService) { s.log = l }
}

// WithMetrics wires a metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *ClaimService) { s.rec = r }
}

// NewClaimService creates a claim service bounded by the given per-claim
// timeout.
func NewClaimService(timeout time.Duration, opts ...Option) *ClaimService {
	s := &ClaimService{
		ledgers:  make(map[distypes.Chain]clients.LedgerClient),
		timeout:  timeout,
		log:      logger.NoopLogger{},
		rec:      metrics.NoopRecorder{},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddClient registers a settlement backend for its chain.
func (s *ClaimService) AddClient(client clients.LedgerClient) error {
	chain := client.Chain()
	if !chain.IsNative() && !chain.IsEVM() {
		return distypes.NewError(distypes.ErrValidation, "unsupported chain %s", chain)
	}
	if err := client.Policy().Validate(); err != nil {
		return distypes.NewError(distypes.ErrConfiguration, "policy for %s: %v", chain, err)
	}
	s.ledgers[chain] = client
	return nil
}

// SupportedChains lists chains with a configured backend.
func (s *ClaimService) SupportedChains() []distypes.Chain {
	out := make([]distypes.Chain, 0, len(s.ledgers))
	for chain := range s.ledgers {
		out = append(out, chain)
	}
	return out
}

// IsChainSupported reports whether a backend is configured for the chain.
func (s *ClaimService) IsChainSupported(chain distypes.Chain) bool {
	_, ok := s.ledgers[chain]
	return ok
}

// Balance reports the custodial balance for a chain in minor units.
func (s *ClaimService) Balance(ctx context.Context, chain distypes.Chain) (*big.Int, error) {
	client, ok := s.ledgers[chain]
	if !ok {
		return nil, distypes.NewError(distypes.ErrValidation, "%s: %s", distypes.ReasonUnsupportedChain, chain)
	}
	return client.Balance(ctx)
}

// Claim executes the single-pass claim state machine:
//
//	Validating -> Resolving -> Submitting -> AwaitingFinality
//	                                          -> Settled | Rejected | Failed
//
// Every outcome is a structured SettlementResult; the error return is
// reserved for a nil request.
func (s *ClaimService) Claim(ctx context.Context, req *distypes.ClaimRequest) (*distypes.SettlementResult, error) {
	if req == nil {
		return nil, distypes.NewError(distypes.ErrValidation, "claim request is nil")
	}

	attemptID := uuid.NewString()
	started := time.Now()
	chainLabel := map[string]string{"chain": req.Chain.String()}

	result := s.run(ctx, req, attemptID)

	s.rec.ObserveLatency("claim", time.Since(started), chainLabel)
	if result.Ok {
		s.rec.IncCounter("claim_settled", chainLabel)
	} else {
		s.rec.IncCounter("claim_failed", chainLabel)
	}
	return result, nil
}

func (s *ClaimService) run(ctx context.Context, req *distypes.ClaimRequest, attemptID string) *distypes.SettlementResult {
	// Validating. A missing chain is an unsupported-chain failure, not a
	// recipient problem.
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				if fieldErr.Field() == "Chain" {
					return &distypes.SettlementResult{Ok: false, FailureReason: distypes.ReasonUnsupportedChain}
				}
			}
		}
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", distypes.ReasonInvalidRecipient, err)}
	}

	ledger, ok := s.ledgers[req.Chain]
	if !ok {
		return &distypes.SettlementResult{Ok: false, FailureReason: distypes.ReasonUnsupportedChain}
	}

	if err := ledger.ValidateRecipient(req.RecipientAddress); err != nil {
		s.log.Warn("claim rejected: malformed recipient", map[string]any{
			"attempt": attemptID,
			"chain":   req.Chain.String(),
			"error":   err.Error(),
		})
		return &distypes.SettlementResult{Ok: false, FailureReason: distypes.ReasonInvalidRecipient}
	}

	// Resolving.
	amount, err := policy.ResolveAmount(req.Points, req.ExplicitAmount, ledger.Policy())
	if err != nil {
		if errors.Is(err, policy.ErrAmountTooSmall) {
			return &distypes.SettlementResult{Ok: false, FailureReason: distypes.ReasonAmountTooSmall}
		}
		return &distypes.SettlementResult{Ok: false, FailureReason: err.Error()}
	}

	claimCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		claimCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Submitting: best-effort balance pre-check so an underfunded custodial
	// account never pays a failed-transaction fee.
	balance, err := ledger.Balance(claimCtx)
	if err != nil {
		s.log.Error("claim failed: balance check unavailable", map[string]any{
			"attempt": attemptID,
			"chain":   req.Chain.String(),
			"error":   err.Error(),
		})
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", clients.ErrBackendUnavailable, err)}
	}
	if balance.Cmp(amount) < 0 {
		s.log.Warn("claim rejected: custodial account underfunded", map[string]any{
			"attempt": attemptID,
			"chain":   req.Chain.String(),
			"amount":  amount.String(),
			"balance": balance.String(),
		})
		return &distypes.SettlementResult{Ok: false, FailureReason: distypes.ReasonInsufficientFunds}
	}

	// AwaitingFinality happens inside the ledger client.
	result, err := ledger.SubmitPayment(claimCtx, req.RecipientAddress, amount, req.Memo)
	if err != nil {
		// Clients classify their own failures; an error here is plumbing.
		return &distypes.SettlementResult{Ok: false, FailureReason: err.Error()}
	}

	fields := map[string]any{
		"attempt": attemptID,
		"chain":   req.Chain.String(),
		"amount":  amount.String(),
		"tx":      result.TxReference,
	}
	if req.Chain.IsEVM() {
		fields["display_amount"] = utils.FormatMinorUnits(amount, utils.WeiDecimals)
	} else {
		fields["display_amount"] = utils.FormatMinorUnits(amount, utils.DropDecimals)
	}
	if result.Ok {
		s.log.Info("claim settled", fields)
	} else {
		fields["reason"] = result.FailureReason
		s.log.Warn("claim not settled", fields)
	}
	return result
}

// Close releases every registered backend.
func (s *ClaimService) Close() {
	for _, ledger := range s.ledgers {
		ledger.Close()
	}
}
