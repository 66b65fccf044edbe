package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillnotes/quill/internal/model"
)

const (
	// keyTag is the constant leading tag on every raw API key. Verification
	// rejects anything without it before touching the store or bcrypt.
	keyTag = "qnk_"

	// KeyPrefixLen is the length of the clear-text prefix stored alongside
	// the hash: the tag plus 8 hex characters. The remaining 56 hex chars
	// (224 bits) stay unrevealed.
	KeyPrefixLen = 12

	// rawKeyLen is the total rendered key length: tag + 64 hex chars
	// encoding 256 random bits.
	rawKeyLen = len(keyTag) + 64
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// dummySecretHash is a valid bcrypt hash of an arbitrary string, compared
// against when a prefix lookup finds no candidates so that "unknown prefix"
// and "wrong secret" take the same time.
var dummySecretHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa5hnhtNGRjukDWO2xzg3sjQTL1dDQ2u")

// CredentialStore is the persistence interface the key service consumes.
// *store.Store satisfies it.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *model.Credential) error
	FindCredentialsByPrefix(ctx context.Context, prefix string) ([]model.Credential, error)
	ListCredentials(ctx context.Context, userID int64) ([]model.Credential, error)
	DeleteCredential(ctx context.Context, id string, userID int64) (bool, error)
	TouchCredentialLastUsed(ctx context.Context, id string) error
}

// Service issues and verifies API credentials and session tokens.
type Service struct {
	store     CredentialStore
	jwtSecret []byte
}

// NewService creates the auth service around a credential store.
func NewService(store CredentialStore, jwtSecret string) *Service {
	return &Service{
		store:     store,
		jwtSecret: []byte(jwtSecret),
	}
}

// HasKeyTag reports whether a header value is shaped like one of our API
// keys. A tagged value commits the request to the key path; there is no
// session fallback for it.
func HasKeyTag(s string) bool {
	return strings.HasPrefix(s, keyTag)
}

// IssueKey generates a new API credential for a user. The returned raw key
// is shown exactly once and cannot be re-derived: only its bcrypt hash and
// a 12-character prefix are persisted.
func (s *Service) IssueKey(ctx context.Context, userID int64, label string) (*model.Credential, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, "", fmt.Errorf("generate random key: %w", err)
	}
	rawKey := keyTag + hex.EncodeToString(randomBytes)

	secretHash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash key: %w", err)
	}

	cred := &model.Credential{
		ID:         uuid.NewString(),
		UserID:     userID,
		SecretHash: string(secretHash),
		KeyPrefix:  rawKey[:KeyPrefixLen],
		Label:      label,
	}

	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return cred, rawKey, nil
}

// VerifyKey checks a raw API key and returns the owning user ID. Malformed
// input is rejected before any hashing or lookup. All credentials sharing
// the key's prefix are checked; prefix collisions across users are legal.
// Returns ErrInvalidCredentials when no candidate matches and
// ErrStoreUnavailable when the lookup itself fails; callers must treat both
// as unauthenticated.
func (s *Service) VerifyKey(ctx context.Context, rawKey string) (int64, error) {
	if !HasKeyTag(rawKey) || len(rawKey) != rawKeyLen {
		return 0, ErrInvalidCredentials
	}

	candidates, err := s.store.FindCredentialsByPrefix(ctx, rawKey[:KeyPrefixLen])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(candidates) == 0 {
		// Timing equalization: an unknown prefix costs the same as a wrong secret.
		_ = bcrypt.CompareHashAndPassword(dummySecretHash, []byte(rawKey))
		return 0, ErrInvalidCredentials
	}

	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].SecretHash), []byte(rawKey)) == nil {
			// Update last used timestamp (fire and forget); a lost or failed
			// update never affects the verification result.
			id := candidates[i].ID
			go func() {
				_ = s.store.TouchCredentialLastUsed(context.Background(), id)
			}()
			return candidates[i].UserID, nil
		}
	}
	return 0, ErrInvalidCredentials
}

// RevokeKey deletes a credential, but only when it belongs to userID.
// Returns whether a credential was actually removed; a credential owned by
// another user reports false, same as one that never existed.
func (s *Service) RevokeKey(ctx context.Context, userID int64, credentialID string) (bool, error) {
	ok, err := s.store.DeleteCredential(ctx, credentialID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// ListKeys returns the credentials owned by a user. Secret hashes are
// excluded from JSON by the model; prefixes are included for identification.
func (s *Service) ListKeys(ctx context.Context, userID int64) ([]model.Credential, error) {
	creds, err := s.store.ListCredentials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return creds, nil
}
