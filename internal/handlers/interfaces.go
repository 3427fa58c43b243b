package handlers

import (
	"context"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the account and
// session handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (models.User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCover(ctx context.Context, id, coverURL string) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchEntry, error)
}

// TokenService issues and verifies the access/refresh token pair.
type TokenService interface {
	Issue(user models.User) (auth.TokenPair, error)
	VerifyAccess(token string) (auth.Identity, error)
	VerifyRefresh(token string) (string, error)
	RefreshTTL() time.Duration
}

// MediaStore is the remote media-hosting collaborator: local file in,
// durable URL out, deletion by URL.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DurationProber measures the playable length of an uploaded video file.
type DurationProber interface {
	Duration(ctx context.Context, localPath string) (float64, error)
}

// VideoStore captures persistence for video publish and management.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context, params repositories.ListVideosParams) (models.Page[models.VideoWithOwner], error)
	GetAndCountView(ctx context.Context, id string) (models.VideoWithOwner, error)
	UpdateDetails(ctx context.Context, id, ownerID, title, description string, thumbnailURL *string) (models.Video, string, error)
	Delete(ctx context.Context, id, ownerID string) (models.Video, error)
	TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string, page, limit int) (models.Page[models.Comment], error)
	Update(ctx context.Context, id, ownerID, content string) (models.Comment, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	ListForUser(ctx context.Context, userID string) ([]models.Tweet, error)
	Update(ctx context.Context, id, ownerID, content string) (models.Tweet, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// LikeStore captures the toggle and listing operations for likes.
type LikeStore interface {
	Toggle(ctx context.Context, target models.LikeTarget, targetID, likerID string) (bool, error)
	ListLikedVideos(ctx context.Context, likerID string) ([]models.VideoWithOwner, error)
}

// PlaylistStore captures persistence for playlists and their memberships.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	ListForUser(ctx context.Context, userID string) ([]models.PlaylistWithOwner, error)
	FindDetail(ctx context.Context, id string) (models.PlaylistDetail, error)
	Update(ctx context.Context, id, ownerID, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id, ownerID string) error
	AddVideo(ctx context.Context, playlistID, videoID, ownerID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID, ownerID string) error
}

// SubscriptionStore captures the toggle and listing operations for channel
// subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.OwnerProfile, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerProfile, error)
}

// DashboardStore aggregates channel statistics for the dashboard endpoints.
type DashboardStore interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
	ChannelVideos(ctx context.Context, ownerID string) ([]models.VideoWithLikes, error)
}
