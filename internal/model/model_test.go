package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// Secret material must never serialize, no matter which handler marshals the
// struct directly.
func TestUserJSONExcludesPasswordHash(t *testing.T) {
	u := User{ID: 1, Email: "jo@example.com", PasswordHash: "$2a$10$supersecret"}

	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(out), "supersecret") {
		t.Errorf("user JSON leaks password hash: %s", out)
	}
	if !strings.Contains(string(out), "jo@example.com") {
		t.Errorf("user JSON missing email: %s", out)
	}
}

func TestCredentialJSONExcludesSecretHash(t *testing.T) {
	c := Credential{ID: "cred-1", UserID: 1, SecretHash: "$2a$10$supersecret", KeyPrefix: "qnk_deadbeef"}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal credential: %v", err)
	}
	if strings.Contains(string(out), "supersecret") {
		t.Errorf("credential JSON leaks secret hash: %s", out)
	}
	if !strings.Contains(string(out), "qnk_deadbeef") {
		t.Errorf("credential JSON missing key prefix: %s", out)
	}
}
