package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/middleware"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	Users         UserHandler
	Videos        VideoHandler
	Comments      CommentHandler
	Tweets        TweetHandler
	Likes         LikeHandler
	Playlists     PlaylistHandler
	Subscriptions SubscriptionHandler
	Dashboard     DashboardHandler
	Health        HealthHandler

	Verifier middleware.AccessVerifier
	Accounts middleware.AccountLoader
}

// NewRouter assembles the ServeMux for the API. Handlers that personalize
// public reads sit behind OptionalAuth; everything that writes on behalf of
// a user sits behind RequireAuth.
func NewRouter(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Accounts)
	optionalAuth := middleware.OptionalAuth(deps.Verifier)

	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	public := func(h http.HandlerFunc) http.Handler { return optionalAuth(h) }

	mux.Handle("GET /healthz", http.HandlerFunc(deps.Health.Check))

	// Accounts and sessions.
	mux.Handle("POST /api/v1/users/register", http.HandlerFunc(deps.Users.Register))
	mux.Handle("POST /api/v1/users/login", http.HandlerFunc(deps.Users.Login))
	mux.Handle("POST /api/v1/users/refresh-token", http.HandlerFunc(deps.Users.Refresh))
	mux.Handle("POST /api/v1/users/logout", protected(deps.Users.Logout))
	mux.Handle("PATCH /api/v1/users/password", protected(deps.Users.ChangePassword))
	mux.Handle("GET /api/v1/users/me", protected(deps.Users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/me", protected(deps.Users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", protected(deps.Users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", protected(deps.Users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/channel/{username}", public(deps.Users.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", protected(deps.Users.WatchHistory))

	// Videos.
	mux.Handle("GET /api/v1/videos", public(deps.Videos.List))
	mux.Handle("POST /api/v1/videos", protected(deps.Videos.Publish))
	mux.Handle("GET /api/v1/videos/{videoId}", public(deps.Videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", protected(deps.Videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", protected(deps.Videos.Delete))
	mux.Handle("PATCH /api/v1/videos/{videoId}/toggle-publish", protected(deps.Videos.TogglePublish))

	// Comments.
	mux.Handle("GET /api/v1/comments/{videoId}", public(deps.Comments.List))
	mux.Handle("POST /api/v1/comments/{videoId}", protected(deps.Comments.Create))
	mux.Handle("PATCH /api/v1/comments/c/{commentId}", protected(deps.Comments.Update))
	mux.Handle("DELETE /api/v1/comments/c/{commentId}", protected(deps.Comments.Delete))

	// Tweets.
	mux.Handle("POST /api/v1/tweets", protected(deps.Tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", public(deps.Tweets.ListForUser))
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", protected(deps.Tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", protected(deps.Tweets.Delete))

	// Likes.
	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", protected(deps.Likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", protected(deps.Likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", protected(deps.Likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", protected(deps.Likes.LikedVideos))

	// Playlists.
	mux.Handle("POST /api/v1/playlists", protected(deps.Playlists.Create))
	mux.Handle("GET /api/v1/playlists/user/{userId}", public(deps.Playlists.ListForUser))
	mux.Handle("GET /api/v1/playlists/{playlistId}", public(deps.Playlists.Get))
	mux.Handle("PATCH /api/v1/playlists/{playlistId}", protected(deps.Playlists.Update))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}", protected(deps.Playlists.Delete))
	mux.Handle("PATCH /api/v1/playlists/add/{videoId}/{playlistId}", protected(deps.Playlists.AddVideo))
	mux.Handle("PATCH /api/v1/playlists/remove/{videoId}/{playlistId}", protected(deps.Playlists.RemoveVideo))

	// Subscriptions.
	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", protected(deps.Subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}", public(deps.Subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}", public(deps.Subscriptions.Subscribed))

	// Dashboard.
	mux.Handle("GET /api/v1/dashboard/stats", protected(deps.Dashboard.Stats))
	mux.Handle("GET /api/v1/dashboard/videos", protected(deps.Dashboard.Videos))

	return mux
}
