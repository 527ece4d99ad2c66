package testutil

import (
	"net/http"
	"time"

	id "archgate/pkg/domain"
	"archgate/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the auth middleware
// does for a valid bearer token. Unparseable IDs leave the request anonymous.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request-scoped clock, which decides embargo and donor
// expiry boundaries.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
