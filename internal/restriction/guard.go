package restriction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	id "archgate/pkg/domain"
	"archgate/pkg/platform/circuit"
)

var errBreakerOpen = errors.New("circuit breaker open")

// Guarded wraps a Reader with a circuit breaker. While the breaker is open
// reads fail fast with ErrSourceUnavailable instead of waiting on a store that
// is known to be down. Every failure returned is a SourceError.
type Guarded[T any] struct {
	kind    Kind
	inner   Reader[T]
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded wraps inner. A nil logger discards transition logs.
func NewGuarded[T any](kind Kind, inner Reader[T], breaker *circuit.Breaker, logger *slog.Logger) *Guarded[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guarded[T]{kind: kind, inner: inner, breaker: breaker, logger: logger}
}

// ReadActive implements Reader.
func (g *Guarded[T]) ReadActive(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]T, error) {
	if !g.breaker.Allow() {
		return nil, Unavailable(g.kind, errBreakerOpen)
	}
	records, err := g.inner.ReadActive(ctx, objectID, asOf)
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "restriction source circuit opened",
				"source", g.kind,
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return nil, Unavailable(g.kind, err)
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "restriction source circuit closed",
			"source", g.kind,
			"breaker", g.breaker.Name(),
		)
	}
	return records, nil
}

// GuardAll wraps every reader in rs with its own breaker built by newBreaker.
func GuardAll(rs Readers, newBreaker func(Kind) *circuit.Breaker, logger *slog.Logger) Readers {
	return Readers{
		Classification: NewGuarded(KindClassification, rs.Classification, newBreaker(KindClassification), logger),
		Embargo:        NewGuarded(KindEmbargo, rs.Embargo, newBreaker(KindEmbargo), logger),
		Donor:          NewGuarded(KindDonor, rs.Donor, newBreaker(KindDonor), logger),
		Redaction:      NewGuarded(KindRedaction, rs.Redaction, newBreaker(KindRedaction), logger),
	}
}
