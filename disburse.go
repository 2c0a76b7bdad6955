// Package disburse converts in-app reward points into bounded on-chain
// payouts and maintains named "latest" pointers over an immutable
// content-addressed store. Payouts settle on either a native XRPL-style
// ledger or an EVM-compatible chain; every attempt resolves to a settlement
// result that classifies finality rather than leaking raw backend errors.
package disburse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/storyatlas/disburse/claims"
	"github.com/storyatlas/disburse/clients"
	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/metrics"
	"github.com/storyatlas/disburse/pointer"
	"github.com/storyatlas/disburse/types"
)

const defaultClaimTimeout = 30 * time.Second

// Service is the top-level entry point bundling claim settlement and the
// pointer store behind one configuration surface.
type Service struct {
	claims  *claims.ClaimService
	store   *pointer.Store
	pin     pointer.PinningClient
	log     logger.Logger
	rec     metrics.Recorder
	timeout time.Duration
}

// New builds a Service. Chains are attached afterwards with AddChain; the
// pointer store is only available when WithPointerBackend was supplied.
func New(opts ...Option) *Service {
	s := &Service{
		log:     logger.NoopLogger{},
		rec:     metrics.NoopRecorder{},
		timeout: defaultClaimTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.claims = claims.NewClaimService(s.timeout,
		claims.WithLogger(s.log),
		claims.WithMetrics(s.rec),
	)
	if s.pin != nil {
		s.store = pointer.NewStore(s.pin,
			pointer.WithLogger(s.log),
			pointer.WithMetrics(s.rec),
		)
	}
	return s
}

// AddChain attaches a settlement backend for the configured chain.
func (s *Service) AddChain(cfg types.ClientConfig) error {
	var (
		client clients.LedgerClient
		err    error
	)
	switch {
	case cfg.Chain.IsNative():
		client, err = clients.NewXRPLClient(cfg)
	case cfg.Chain.IsEVM():
		client, err = clients.NewEVMClient(cfg)
	default:
		return types.NewError(types.ErrValidation, "%s: %s", types.ReasonUnsupportedChain, cfg.Chain)
	}
	if err != nil {
		return fmt.Errorf("create %s client: %w", cfg.Chain, err)
	}
	return s.claims.AddClient(client)
}

// Claim runs one payout attempt end to end.
func (s *Service) Claim(ctx context.Context, req *types.ClaimRequest) (*types.SettlementResult, error) {
	return s.claims.Claim(ctx, req)
}

// SupportedChains lists the chains with an attached backend.
func (s *Service) SupportedChains() []types.Chain {
	return s.claims.SupportedChains()
}

// PublishBlob publishes opaque bytes to the content store and returns the
// content id.
func (s *Service) PublishBlob(ctx context.Context, data []byte, name string) (string, error) {
	store, err := s.pointerStore()
	if err != nil {
		return "", err
	}
	return store.PublishBlob(ctx, data, name)
}

// PublishJSON publishes a JSON document to the content store and returns the
// content id.
func (s *Service) PublishJSON(ctx context.Context, payload any, name string) (string, error) {
	store, err := s.pointerStore()
	if err != nil {
		return "", err
	}
	return store.PublishJSON(ctx, payload, name)
}

// SetPointer advances a named pointer to the given content id.
func (s *Service) SetPointer(ctx context.Context, name, cid string) (string, error) {
	store, err := s.pointerStore()
	if err != nil {
		return "", err
	}
	return store.SetPointer(ctx, name, cid)
}

// GetPointer resolves a named pointer to the content id it currently
// references. An unset pointer yields empty values and no error.
func (s *Service) GetPointer(ctx context.Context, name string) (cid string, pointerBlobID string, err error) {
	store, err := s.pointerStore()
	if err != nil {
		return "", "", err
	}
	return store.GetPointer(ctx, name)
}

// ClaimBalance reports the custodial balance for a chain in minor units.
func (s *Service) ClaimBalance(ctx context.Context, chain types.Chain) (*big.Int, error) {
	return s.claims.Balance(ctx, chain)
}

// Close releases every attached backend.
func (s *Service) Close() {
	s.claims.Close()
}

func (s *Service) pointerStore() (*pointer.Store, error) {
	if s.store == nil {
		return nil, types.NewError(types.ErrConfiguration, "pointer backend is not configured")
	}
	return s.store, nil
}
