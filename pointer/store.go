// Package pointer tracks the latest version of append-only, content-addressed
// state blobs through a small mutable pointer record.
package pointer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/metrics"
	distypes "github.com/storyatlas/disburse/types"
)

// Store layers pointer indirection over an immutable content store. A
// pointer is itself a small JSON blob tagged with its name; advancing the
// pointer publishes a fresh copy and "current" is whichever tagged copy the
// backend reports as newest.
//
// SetPointer is not a compare-and-swap: two concurrent writers both succeed
// and the loser becomes a stale historical record. Callers needing
// linearizable updates must serialize writers for a given name externally.
type Store struct {
	pin PinningClient
	log logger.Logger
	rec metrics.Recorder
	now func() time.Time
}

// StoreOption customises the store.
type StoreOption func(*Store)

// WithLogger wires a structured logger.
func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithMetrics wires a metrics recorder.
func WithMetrics(r metrics.Recorder) StoreOption {
	return func(s *Store) { s.rec = r }
}

// WithClock overrides timestamp derivation, for tests.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.now = clock }
}

// NewStore wraps a pinning backend.
func NewStore(pin PinningClient, opts ...StoreOption) *Store {
	s := &Store{
		pin: pin,
		log: logger.NoopLogger{},
		rec: metrics.NoopRecorder{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishBlob submits bytes to the content store and returns their backend-
// derived content id. Publish always happens before the pointer advances,
// so a pointer never names a blob that does not exist.
func (s *Store) PublishBlob(ctx context.Context, data []byte, name string) (string, error) {
	started := time.Now()
	cid, err := s.pin.PinFile(ctx, data, name)
	s.rec.ObserveLatency("publish_blob", time.Since(started), nil)
	if err != nil {
		s.rec.IncCounter("publish_failed", nil)
		return "", distypes.NewError(distypes.ErrBackendUnavailable, "%s: %v", distypes.ReasonPublishFailed, err)
	}
	s.rec.IncCounter("publish_ok", nil)
	s.log.Debug("blob published", map[string]any{"cid": cid, "size": len(data)})
	return cid, nil
}

// PublishJSON submits a JSON document to the content store.
func (s *Store) PublishJSON(ctx context.Context, payload any, name string) (string, error) {
	started := time.Now()
	cid, err := s.pin.PinJSON(ctx, payload, name)
	s.rec.ObserveLatency("publish_blob", time.Since(started), nil)
	if err != nil {
		s.rec.IncCounter("publish_failed", nil)
		return "", distypes.NewError(distypes.ErrBackendUnavailable, "%s: %v", distypes.ReasonPublishFailed, err)
	}
	s.rec.IncCounter("publish_ok", nil)
	return cid, nil
}

// SetPointer advances the named pointer to a content id by publishing a new
// pointer record. It returns the record's own content id. Historical copies
// are superseded, never deleted; backend retention governs their lifetime.
func (s *Store) SetPointer(ctx context.Context, name, cid string) (string, error) {
	if name == "" {
		return "", distypes.NewError(distypes.ErrValidation, "pointer name is required")
	}
	if cid == "" {
		return "", distypes.NewError(distypes.ErrValidation, "content id is required")
	}

	record := distypes.PointerRecord{
		Latest:    cid,
		UpdatedAt: s.now().UTC(),
	}

	pointerBlobID, err := s.pin.PinJSON(ctx, record, name)
	if err != nil {
		s.rec.IncCounter("pointer_update_failed", nil)
		return "", distypes.NewError(distypes.ErrBackendUnavailable, "%s: %v", distypes.ReasonPublishFailed, err)
	}

	s.rec.IncCounter("pointer_updated", nil)
	s.log.Info("pointer advanced", map[string]any{
		"name":    name,
		"latest":  cid,
		"pointer": pointerBlobID,
	})
	return pointerBlobID, nil
}

// GetPointer resolves the named pointer to its current content id. A name
// that was never set resolves to empty with no error; so does a pointer
// record that cannot be fetched or parsed, since a garbled pointer is
// operationally the same as "no state yet".
func (s *Store) GetPointer(ctx context.Context, name string) (cid string, pointerBlobID string, err error) {
	if name == "" {
		return "", "", distypes.NewError(distypes.ErrValidation, "pointer name is required")
	}

	pointerBlobID, err = s.pin.LatestByName(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("pointer lookup: %w", err)
	}
	if pointerBlobID == "" {
		return "", "", nil
	}

	blob, err := s.pin.FetchBlob(ctx, pointerBlobID)
	if err != nil {
		s.log.Warn("pointer record unfetchable, treating as unset", map[string]any{
			"name":    name,
			"pointer": pointerBlobID,
			"error":   err.Error(),
		})
		return "", "", nil
	}

	var record distypes.PointerRecord
	if err := json.Unmarshal(blob, &record); err != nil {
		s.log.Warn("pointer record garbled, treating as unset", map[string]any{
			"name":    name,
			"pointer": pointerBlobID,
			"error":   err.Error(),
		})
		return "", "", nil
	}

	return record.Latest, pointerBlobID, nil
}
