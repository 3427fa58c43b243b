package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Ping(context.Context) error { return nil }

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		FFProbePath: "ffprobe",
		Auth: config.AuthConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    720 * time.Hour,
		},
		ObjectStore: config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Users.Users == nil || deps.Users.Tokens == nil || deps.Users.Media == nil {
		t.Fatal("expected user handler collaborators to be configured")
	}
	if deps.Users.Limiter == nil {
		t.Fatal("expected credential rate limiter to be configured")
	}
	if deps.Videos.Videos == nil || deps.Videos.Prober == nil {
		t.Fatal("expected video handler collaborators to be configured")
	}
	if deps.Comments.Comments == nil || deps.Tweets.Tweets == nil || deps.Likes.Likes == nil {
		t.Fatal("expected resource stores to be configured")
	}
	if deps.Playlists.Playlists == nil || deps.Subscriptions.Subscriptions == nil || deps.Dashboard.Dashboard == nil {
		t.Fatal("expected playlist, subscription, and dashboard stores to be configured")
	}
	if deps.Verifier == nil || deps.Accounts == nil {
		t.Fatal("expected auth guard collaborators to be configured")
	}
	if deps.Health.DB == nil {
		t.Fatal("expected health check to target the pool")
	}
}

func TestBuildDependenciesRequiresSecrets(t *testing.T) {
	cfg := config.Config{
		ObjectStore: config.ObjectStoreConfig{Bucket: "test-bucket", Region: "us-east-1"},
	}

	if _, err := buildDependencies(context.Background(), fakePool{}, cfg); err == nil {
		t.Fatal("expected missing token secrets to fail dependency wiring")
	}
}
