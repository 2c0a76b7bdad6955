package disburse

import (
	"time"

	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/metrics"
	"github.com/storyatlas/disburse/pointer"
)

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		s.rec = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(s *Service) {
		s.timeout = t
	}
}

// WithPointerBackend enables the pointer store over the given pinning
// backend.
func WithPointerBackend(pin pointer.PinningClient) Option {
	return func(s *Service) {
		s.pin = pin
	}
}
