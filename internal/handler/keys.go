package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quillnotes/quill/internal/model"
	"github.com/quillnotes/quill/internal/server/middleware"
)

// createKeyRequest is the expected payload for the CreateKey endpoint.
type createKeyRequest struct {
	Label string `json:"label"`
}

// createKeyResponse carries the raw key. It appears here exactly once; the
// server cannot reproduce it afterwards.
type createKeyResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// CreateKey issues a new API key for the caller. Issuance is a mutating,
// rate-limited action: the limiter is consulted before anything is
// generated or persisted.
// POST /api/v1/keys
func (h *AuthHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limiterKey := "keycreate:" + strconv.FormatInt(p.UserID, 10)
	if h.limiter.CheckAndConsume(limiterKey, h.opts.KeyCreateLimit, h.opts.KeyCreateWindow) {
		writeError(w, http.StatusTooManyRequests, "Key creation limit reached", map[string]interface{}{
			"retry_after_seconds": int(h.limiter.TimeUntilReset(limiterKey).Seconds()),
		})
		return
	}

	cred, rawKey, err := h.authSvc.IssueKey(r.Context(), p.UserID, req.Label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create key")
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        cred.ID,
		Key:       rawKey,
		KeyPrefix: cred.KeyPrefix,
		Label:     cred.Label,
		CreatedAt: cred.CreatedAt,
		Message:   "Save this key now - it cannot be retrieved again.",
	})
}

// ListKeys returns the caller's credentials. Secret hashes never leave the
// store; prefixes identify keys to the user.
// GET /api/v1/keys
func (h *AuthHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	creds, err := h.authSvc.ListKeys(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list keys")
		return
	}

	resources := make([]map[string]interface{}, 0, len(creds))
	for i := range creds {
		resources = append(resources, credentialToMap(&creds[i]))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta:     &model.ResponseMeta{Count: len(resources)},
	})
}

// RevokeKey deletes one of the caller's credentials. A key owned by someone
// else returns the same 404 as a key that never existed.
// DELETE /api/v1/keys/{keyID}
func (h *AuthHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyID")

	removed, err := h.authSvc.RevokeKey(r.Context(), p.UserID, keyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to revoke key")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Key not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func credentialToMap(c *model.Credential) map[string]interface{} {
	m := map[string]interface{}{
		"id":         c.ID,
		"key_prefix": c.KeyPrefix,
		"label":      c.Label,
		"created_at": c.CreatedAt,
	}
	if c.LastUsedAt != nil {
		m["last_used_at"] = *c.LastUsedAt
	}
	return m
}
