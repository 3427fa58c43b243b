package app

import (
	"context"
	"fmt"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/media"
	"github.com/clipstream/backend/internal/middleware"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

const (
	credentialRateRequests = 10
	credentialRateWindow   = time.Minute
	credentialRateBurst    = 5
	credentialRateTTL      = 10 * time.Minute

	probeTimeout = 15 * time.Second
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("build token manager: %w", err)
	}

	mediaStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("build media store: %w", err)
	}

	users := repositories.NewPostgresUserRepository(pool)
	limiter := middleware.NewIPRateLimiter(credentialRateRequests, credentialRateWindow, credentialRateBurst, credentialRateTTL)
	prober := media.NewFFProbeProber(cfg.FFProbePath, probeTimeout)

	return handlers.Dependencies{
		Users: handlers.UserHandler{
			Users:        users,
			Tokens:       tokens,
			Media:        mediaStore,
			Limiter:      limiter,
			CookieSecure: cfg.Auth.CookieSecure,
		},
		Videos: handlers.VideoHandler{
			Videos: repositories.NewPostgresVideoRepository(pool),
			Users:  users,
			Media:  mediaStore,
			Prober: prober,
		},
		Comments:      handlers.CommentHandler{Comments: repositories.NewPostgresCommentRepository(pool)},
		Tweets:        handlers.TweetHandler{Tweets: repositories.NewPostgresTweetRepository(pool)},
		Likes:         handlers.LikeHandler{Likes: repositories.NewPostgresLikeRepository(pool)},
		Playlists:     handlers.PlaylistHandler{Playlists: repositories.NewPostgresPlaylistRepository(pool)},
		Subscriptions: handlers.SubscriptionHandler{Subscriptions: repositories.NewPostgresSubscriptionRepository(pool)},
		Dashboard:     handlers.DashboardHandler{Dashboard: repositories.NewPostgresDashboardRepository(pool)},
		Health:        handlers.HealthHandler{DB: pool},

		Verifier: tokens,
		Accounts: users,
	}, nil
}
