package access

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// gatherEvidence reads the four restriction sources in parallel. Each read has
// its own timeout; a failed or slow source is recorded as unavailable and does
// not cancel the others.
func (s *Service) gatherEvidence(ctx context.Context, objectID id.ObjectID, asOf time.Time) Evidence {
	ev := Evidence{ObjectID: objectID, AsOf: asOf}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	markUnavailable := func(kind restriction.Kind, err error) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Unavailable == nil {
			ev.Unavailable = make(map[restriction.Kind]error)
		}
		ev.Unavailable[kind] = restriction.Unavailable(kind, err)
	}

	g.Go(func() error {
		records, err := readSource(ctx, s, restriction.KindClassification, s.readers.Classification, objectID, asOf)
		if err != nil {
			markUnavailable(restriction.KindClassification, err)
			return nil
		}
		ev.Classifications = records
		return nil
	})
	g.Go(func() error {
		records, err := readSource(ctx, s, restriction.KindEmbargo, s.readers.Embargo, objectID, asOf)
		if err != nil {
			markUnavailable(restriction.KindEmbargo, err)
			return nil
		}
		ev.Embargoes = records
		return nil
	})
	g.Go(func() error {
		records, err := readSource(ctx, s, restriction.KindDonor, s.readers.Donor, objectID, asOf)
		if err != nil {
			markUnavailable(restriction.KindDonor, err)
			return nil
		}
		ev.Donors = records
		return nil
	})
	g.Go(func() error {
		records, err := readSource(ctx, s, restriction.KindRedaction, s.readers.Redaction, objectID, asOf)
		if err != nil {
			markUnavailable(restriction.KindRedaction, err)
			return nil
		}
		ev.Redactions = records
		return nil
	})

	// Goroutines never return errors; unavailability is carried in ev.
	_ = g.Wait()
	return ev
}

// readSource runs one read under the per-source timeout. A read that returns
// after the deadline is discarded even if it succeeded.
func readSource[T any](
	ctx context.Context,
	s *Service,
	kind restriction.Kind,
	reader restriction.Reader[T],
	objectID id.ObjectID,
	asOf time.Time,
) ([]T, error) {
	ctx, span := startSpan(ctx, traceSpanSourceRead,
		attribute.String(traceAttrSource, string(kind)),
		attribute.Int64(traceAttrObjectID, int64(objectID)),
	)
	defer span.End()

	if reader == nil {
		err := restriction.Unavailable(kind, errNoReader)
		markSpanResult(span, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	start := time.Now()
	type result struct {
		records []T
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := reader.ReadActive(ctx, objectID, asOf)
		done <- result{records, err}
	}()

	var res result
	select {
	case res = <-done:
		if res.err == nil && ctx.Err() != nil {
			res = result{err: ctx.Err()}
		}
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}
	s.metrics.ObserveSourceLatency(string(kind), time.Since(start))

	if res.err != nil {
		s.metrics.IncSourceUnavailable(string(kind))
		markSpanResult(span, res.err)
		return nil, res.err
	}
	markSpanResult(span, nil)
	return res.records, nil
}
