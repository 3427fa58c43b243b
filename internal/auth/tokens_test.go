package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/models"
)

func testUser() models.User {
	return models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice A",
	}
}

func TestTokenManagerIssueAndVerify(t *testing.T) {
	manager, err := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	pair, err := manager.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", pair)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	identity, err := manager.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if identity.UserID != "user-1" || identity.Username != "alice" || identity.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	userID, err := manager.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestTokenManagerSecretsAreDistinct(t *testing.T) {
	manager, err := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	pair, err := manager.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}
	if _, err := manager.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}
}

func TestTokenManagerExpiry(t *testing.T) {
	manager, err := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issued := time.Now().UTC()
	manager.NowFunc = func() time.Time { return issued }

	pair, err := manager.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.NowFunc = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := manager.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired access token, got %v", err)
	}
	if _, err := manager.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh token should still verify: %v", err)
	}

	manager.NowFunc = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := manager.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	manager, err := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid got %v", token, err)
		}
	}
}

func TestTokenManagerValidation(t *testing.T) {
	if _, err := NewTokenManager("", "refresh", time.Minute, time.Hour); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewTokenManager("access", "refresh", 0, time.Hour); err == nil {
		t.Fatal("expected error for zero access TTL")
	}

	manager, err := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := manager.Issue(models.User{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
