package restriction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	id "archgate/pkg/domain"
	"archgate/pkg/platform/sentinel"
)

// ErrSourceUnavailable marks a restriction source that could not be read. It
// is never a business outcome; the evaluator fails closed on it.
var ErrSourceUnavailable = errors.New("restriction source unavailable")

// SourceError wraps a read failure with the source that produced it.
// errors.Is(err, ErrSourceUnavailable) and errors.Is(err, sentinel.ErrUnavailable)
// hold for every SourceError.
type SourceError struct {
	Kind Kind
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source unavailable: %v", e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable || target == sentinel.ErrUnavailable
}

// Unavailable wraps err as a SourceError for kind. A SourceError is returned
// unchanged.
func Unavailable(kind Kind, err error) error {
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{Kind: kind, Err: err}
}

// Reader returns the records of one source that are active as of asOf.
// Implementations apply the active and end-date filters themselves so callers
// never receive stale rows. More than one record may be returned; choosing the
// governing record is the evaluator's job.
type Reader[T any] interface {
	ReadActive(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]T, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc[T any] func(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]T, error)

// ReadActive calls f.
func (f ReaderFunc[T]) ReadActive(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]T, error) {
	return f(ctx, objectID, asOf)
}

// Readers bundles the four source readers.
type Readers struct {
	Classification Reader[ClassificationRecord]
	Embargo        Reader[EmbargoRecord]
	Donor          Reader[DonorRestriction]
	Redaction      Reader[RedactionRecord]
}

// VersionVector holds a change counter per source for one object. Writers of
// restriction records bump the counter of the source they touch.
type VersionVector struct {
	Classification int64
	Embargo        int64
	Donor          int64
	Redaction      int64
}

// Set assigns the counter for kind.
func (v *VersionVector) Set(kind Kind, version int64) {
	switch kind {
	case KindClassification:
		v.Classification = version
	case KindEmbargo:
		v.Embargo = version
	case KindDonor:
		v.Donor = version
	case KindRedaction:
		v.Redaction = version
	}
}

// String renders the vector for use in cache keys.
func (v VersionVector) String() string {
	return "c" + strconv.FormatInt(v.Classification, 10) +
		".e" + strconv.FormatInt(v.Embargo, 10) +
		".d" + strconv.FormatInt(v.Donor, 10) +
		".r" + strconv.FormatInt(v.Redaction, 10)
}

// VersionReader returns the current version vector of an object.
type VersionReader interface {
	Versions(ctx context.Context, objectID id.ObjectID) (VersionVector, error)
}
