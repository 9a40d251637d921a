package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-for-jwt-token-generation"

func TestIssueAndValidateToken(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	tok, err := IssueAccessToken(testSecret, "sess-1", "user-1", "a@x.com", RoleAdmin, expires)
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	claims, err := ValidateToken(testSecret, tok)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.SessionID() != "sess-1" {
		t.Errorf("session id = %q, want sess-1", claims.SessionID())
	}
	if claims.UserID != "user-1" || claims.Email != "a@x.com" || claims.Role != RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tok, err := IssueAccessToken(testSecret, "sess-1", "user-1", "a@x.com", RoleUser, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if _, err := ValidateToken("a-different-secret", tok); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	tok, err := IssueAccessToken(testSecret, "sess-1", "user-1", "a@x.com", RoleUser, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if _, err := ValidateToken(testSecret, tok); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestIssueAccessToken_RequiresSecret(t *testing.T) {
	if _, err := IssueAccessToken("", "s", "u", "e", RoleUser, time.Now()); err == nil {
		t.Error("expected error for empty secret")
	}
}
