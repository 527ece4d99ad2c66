package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "archgate/pkg/domain"
	"archgate/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes the user id the downstream handler sees.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, requestcontext.UserID(r.Context()).String())
})

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no header continues anonymous",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "valid token sets user",
			header:     "Bearer good",
			validator:  stubValidator{claims: &JWTClaims{UserID: id.UserID(9)}},
			wantStatus: http.StatusOK,
			wantBody:   "9",
		},
		{
			name:       "invalid token rejected",
			header:     "Bearer bad",
			validator:  stubValidator{err: errors.New("signature invalid")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer scheme rejected",
			header:     "Basic Zm9vOmJhcg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token without user rejected",
			header:     "Bearer empty",
			validator:  stubValidator{claims: &JWTClaims{}},
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			OptionalAuth(tt.validator, discard())(echoUser).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}
