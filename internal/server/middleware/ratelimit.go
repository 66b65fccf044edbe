package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP returns an HTTP middleware that limits requests per client IP
// to the specified number per minute. This is the coarse edge limit; the
// identity-keyed limiter in internal/ratelimit gates individual actions like
// login and key issuance.
func RateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
