package audit

import (
	"context"
	"log/slog"

	"custodia/pkg/platform/circuit"
)

// BreakerStore wraps a flaky sink with a circuit breaker. While the circuit
// is open, appends are dropped instead of stalling the publisher; the tee'd
// in-memory store keeps the audit trail readable in the meantime. Dropped
// and failed appends are never surfaced to callers, audit delivery to an
// external sink is best-effort.
type BreakerStore struct {
	inner   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerStore(inner Store, logger *slog.Logger, opts ...circuit.Option) *BreakerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerStore{
		inner:   inner,
		breaker: circuit.New("audit-sink", opts...),
		logger:  logger,
	}
}

func (s *BreakerStore) Append(ctx context.Context, event Event) error {
	if s.breaker.IsOpen() {
		// Probe with the real append so successes can close the circuit.
		if err := s.inner.Append(ctx, event); err != nil {
			s.breaker.RecordFailure()
			return nil
		}
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.Info("audit sink recovered, circuit closed", "breaker", s.breaker.Name())
		}
		return nil
	}

	if err := s.inner.Append(ctx, event); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Error("audit sink failing, circuit opened",
				"breaker", s.breaker.Name(),
				"error", err,
			)
		} else {
			s.logger.Warn("audit sink append failed", "error", err)
		}
		return nil
	}
	s.breaker.RecordSuccess()
	return nil
}

func (s *BreakerStore) ListByAccount(ctx context.Context, account string) ([]Event, error) {
	return s.inner.ListByAccount(ctx, account)
}
