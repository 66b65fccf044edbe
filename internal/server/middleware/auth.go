package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/quillnotes/quill/internal/auth"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"

	// DefaultAPIKeyHeader carries the raw API key verbatim (no Bearer scheme).
	DefaultAPIKeyHeader = "X-API-Key"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Type   string // "api_key" or "session"
	UserID int64
	Email  string // set on the session path only
}

// Authenticate returns an HTTP middleware that resolves "who is making this
// call". Two paths, tried in order:
//
//  1. API key via the apiKeyHeader. A key-shaped value (it carries the key
//     tag) commits the request to this path: if verification fails, the
//     request is rejected rather than silently downgraded to a session
//     check. A value without the tag is treated as if the header were absent.
//  2. Session token via the Authorization Bearer header.
//
// On success a Principal is attached to the request context. Every failure
// (malformed, revoked, unknown, or the store being down) is the same 401
// with no cause detail, and a store outage never lets a request through.
func Authenticate(authSvc *auth.Service, apiKeyHeader string) func(http.Handler) http.Handler {
	if apiKeyHeader == "" {
		apiKeyHeader = DefaultAPIKeyHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if rawKey := r.Header.Get(apiKeyHeader); rawKey != "" && auth.HasKeyTag(rawKey) {
				userID, err := authSvc.VerifyKey(r.Context(), rawKey)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "Invalid credentials")
					return
				}
				principal = &Principal{Type: "api_key", UserID: userID}
			}

			if principal == nil {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token := strings.TrimPrefix(authHeader, "Bearer ")
					p, err := authSvc.VerifySession(r.Context(), token)
					if err != nil {
						writeAuthError(w, http.StatusUnauthorized, "Invalid credentials")
						return
					}
					principal = &Principal{Type: "session", UserID: p.UserID, Email: p.Email}
				}
			}

			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide "+apiKeyHeader+" header or Bearer token.")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + httpStatusString(status) + `,"message":"` + message + `"}}`))
}

func httpStatusString(code int) string {
	switch code {
	case 401:
		return "401"
	default:
		return "500"
	}
}
