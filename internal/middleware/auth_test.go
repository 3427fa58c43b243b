package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authpkg "github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

type staticAccounts struct {
	users map[string]models.User
}

func (s staticAccounts) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func newGuardFixtures(t *testing.T) (*authpkg.TokenManager, staticAccounts, models.User) {
	t.Helper()
	tokens, err := authpkg.NewTokenManager("access", "refresh", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("build token manager: %v", err)
	}
	user := models.User{ID: "user-1", Username: "tester", Email: "tester@example.com", FullName: "Test User"}
	return tokens, staticAccounts{users: map[string]models.User{user.ID: user}}, user
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	tokens, accounts, _ := newGuardFixtures(t)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a token")
	})
	guard := RequireAuth(tokens, accounts)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	tokens, accounts, _ := newGuardFixtures(t)
	guard := RequireAuth(tokens, accounts)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthRejectsUnknownAccount(t *testing.T) {
	tokens, accounts, _ := newGuardFixtures(t)

	ghost := models.User{ID: "deleted-user", Username: "ghost"}
	pair, err := tokens.Issue(ghost)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	guard := RequireAuth(tokens, accounts)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for a deleted account")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthAttachesIdentityFromCookie(t *testing.T) {
	tokens, accounts, user := newGuardFixtures(t)

	pair, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	var seen authpkg.Identity
	guard := RequireAuth(tokens, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authpkg.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: pair.AccessToken})
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d got %d", http.StatusNoContent, rec.Code)
	}
	if seen.UserID != user.ID || seen.Username != user.Username || seen.Email != user.Email {
		t.Fatalf("unexpected identity: %+v", seen)
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	tokens, _, _ := newGuardFixtures(t)

	var sawIdentity bool
	handler := OptionalAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = authpkg.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if sawIdentity {
		t.Fatal("anonymous request must not carry an identity")
	}
}
