// Package requestcontext carries request-scoped values through context.Context.
//
// Middleware writes these values and services read them. The package does not
// import net/http, so the evaluator, the clearance store and the audit recorder
// can depend on it directly.
//
//	userID := requestcontext.UserID(ctx)
//	asOf := requestcontext.Now(ctx)
//
// Tests and the CLI pin the evaluation instant with WithTime.
package requestcontext

import (
	"context"
	"time"

	id "archgate/pkg/domain"
)

type ctxKey int

const (
	keyUserID ctxKey = iota
	keyClient
	keyRequestID
	keyTime
)

// ClientMetadata describes the caller's connection.
type ClientMetadata struct {
	IP        string
	UserAgent string
}

func value[T any](ctx context.Context, key ctxKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// UserID returns the authenticated caller, or AnonymousUser.
func UserID(ctx context.Context) id.UserID {
	if u, ok := value[id.UserID](ctx, keyUserID); ok {
		return u
	}
	return id.AnonymousUser
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// Client returns the connection metadata recorded by middleware.
func Client(ctx context.Context) ClientMetadata {
	m, _ := value[ClientMetadata](ctx, keyClient)
	return m
}

func ClientIP(ctx context.Context) string {
	return Client(ctx).IP
}

func UserAgent(ctx context.Context) string {
	return Client(ctx).UserAgent
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, keyClient, ClientMetadata{IP: clientIP, UserAgent: userAgent})
}

// RequestID returns the correlation id stamped on audit entries, or "".
func RequestID(ctx context.Context) string {
	s, _ := value[string](ctx, keyRequestID)
	return s
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now returns the pinned evaluation instant, or the wall clock when none is
// set. Embargo and donor end dates are compared against this value.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, keyTime); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the instant returned by Now.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyTime, t)
}
