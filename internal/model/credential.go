package model

import "time"

// Credential represents an issued API key. The raw key is never stored; only
// a bcrypt hash and a short clear-text prefix for indexed lookup are
// persisted. Prefix collisions between different users are legal; Verify
// checks every candidate sharing a prefix.
type Credential struct {
	ID         string     `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	SecretHash string     `json:"-" db:"secret_hash"` // bcrypt hash, never expose
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // first 12 chars, for identification
	Label      string     `json:"label" db:"label"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}
