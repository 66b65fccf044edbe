package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/quillnotes/quill/internal/auth"
	"github.com/quillnotes/quill/internal/lockout"
	"github.com/quillnotes/quill/internal/ratelimit"
	"github.com/quillnotes/quill/internal/server/middleware"
	"github.com/quillnotes/quill/internal/store"
)

// AuthHandler serves login/logout, credential management, and identity
// endpoints. It is the only place the lockout tracker and identity-keyed
// rate limiter are consulted.
type AuthHandler struct {
	store   *store.Store
	authSvc *auth.Service
	limiter *ratelimit.Limiter
	tracker *lockout.Tracker
	opts    Options
}

// Options tunes the handler's session and rate-limit policy.
type Options struct {
	SessionTTL time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	KeyCreateLimit  int
	KeyCreateWindow time.Duration
}

// DefaultOptions returns the reference handler policy.
func DefaultOptions() Options {
	return Options{
		SessionTTL:      24 * time.Hour,
		LoginRateLimit:  10,
		LoginRateWindow: time.Minute,
		KeyCreateLimit:  10,
		KeyCreateWindow: time.Hour,
	}
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(st *store.Store, authSvc *auth.Service, limiter *ratelimit.Limiter, tracker *lockout.Tracker, opts Options) *AuthHandler {
	return &AuthHandler{
		store:   st,
		authSvc: authSvc,
		limiter: limiter,
		tracker: tracker,
		opts:    opts,
	}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Login authenticates a user and returns a session token. The attempt is
// gated twice before the password is even looked at: an IP-keyed rate limit
// and the per-email lockout tracker. Failed attempts feed the tracker and
// surface how many tries remain; a lockout surfaces when it lifts.
// POST /api/v1/session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	limiterKey := "login:" + clientIP(r)
	if h.limiter.CheckAndConsume(limiterKey, h.opts.LoginRateLimit, h.opts.LoginRateWindow) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts", map[string]interface{}{
			"retry_after_seconds": int(h.limiter.TimeUntilReset(limiterKey).Seconds()),
		})
		return
	}

	if locked, unlockAt := h.tracker.IsLocked(req.Email); locked {
		writeError(w, http.StatusTooManyRequests, "Account temporarily locked", map[string]interface{}{
			"unlock_at": unlockAt.UTC().Format(time.RFC3339),
		})
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown emails feed the tracker too, so the response shape
			// never reveals whether an account exists.
			h.failLogin(w, req.Email)
			return
		}
		writeError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	if !user.IsActive || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		h.failLogin(w, req.Email)
		return
	}

	h.tracker.RecordSuccessfulLogin(req.Email)

	token, err := h.authSvc.IssueSession(r.Context(), user.ID, user.Email, h.opts.SessionTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue session")
		return
	}

	// Update last login timestamp (best effort).
	_ = h.store.UpdateUserLastLogin(r.Context(), user.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.opts.SessionTTL.Seconds()),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
	})
}

// failLogin records a failed attempt and writes the uniform 401, carrying
// remaining-attempt or unlock metadata for user messaging.
func (h *AuthHandler) failLogin(w http.ResponseWriter, email string) {
	status := h.tracker.RecordFailedAttempt(email)
	if status.Locked {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", map[string]interface{}{
			"remaining_attempts": 0,
			"unlock_at":          status.UnlockAt.UTC().Format(time.RFC3339),
		})
		return
	}
	writeError(w, http.StatusUnauthorized, "Invalid credentials", map[string]interface{}{
		"remaining_attempts": status.RemainingAttempts,
	})
}

// Logout invalidates the current session. Session tokens are stateless, so
// this is a no-op on the server side; clients discard their token.
// DELETE /api/v1/session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session invalidated",
	})
}

// Me returns the authenticated principal for the request.
// GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   p.UserID,
		"auth_type": p.Type,
		"email":     p.Email,
	})
}
