// Package request assigns request-scoped identity and metadata at the edge.
package request

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"archgate/pkg/platform/middleware/metadata"
	"archgate/pkg/platform/middleware/requesttime"
	"archgate/pkg/requestcontext"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// Inbound ids are echoed into logs and audit rows, so only a safe charset is accepted.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID reuses a well-formed inbound X-Request-ID or assigns a new UUID,
// stores it in the context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}

// Context applies request id, request time and client metadata in one step.
func Context(next http.Handler) http.Handler {
	return RequestID(metadata.ClientMetadata(requesttime.Middleware(next)))
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
