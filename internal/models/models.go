package models

import "time"

// User represents an account within the ClipStream platform. PasswordHash and
// RefreshToken are persistence-only fields and are never serialized to
// clients.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	AvatarURL    string    `json:"avatar"`
	CoverURL     string    `json:"coverImage,omitempty"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Video is an upload owned by a channel.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoFile"`
	ThumbnailURL string    `json:"thumbnail"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OwnerProfile is the public subset of a user joined onto owned resources.
type OwnerProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// VideoWithOwner denormalizes a video together with its owner's public profile.
type VideoWithOwner struct {
	Video
	Owner OwnerProfile `json:"owner"`
}

// Comment is attached to a video and owned by its author.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tweet is a short text post owned by its author.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Playlist groups videos under a name for a single owner.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistWithOwner denormalizes a playlist with its owner's public profile
// and the number of videos it contains.
type PlaylistWithOwner struct {
	Playlist
	Owner      OwnerProfile `json:"owner"`
	VideoCount int64        `json:"videoCount"`
}

// PlaylistDetail is a playlist joined with its videos and their owners.
type PlaylistDetail struct {
	Playlist
	Owner  OwnerProfile     `json:"owner"`
	Videos []VideoWithOwner `json:"videos"`
}

// LikeTarget enumerates the resource kinds a like can attach to.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Like records that a user liked exactly one video, comment, or tweet.
type Like struct {
	ID        string    `json:"id"`
	LikerID   string    `json:"likerId"`
	VideoID   string    `json:"videoId,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	TweetID   string    `json:"tweetId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription records that a user follows a channel (another user).
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelProfile is a user's public channel view with subscription counts.
type ChannelProfile struct {
	OwnerProfile
	CoverURL        string `json:"coverImage,omitempty"`
	SubscriberCount int64  `json:"subscriberCount"`
	SubscribedTo    int64  `json:"channelsSubscribedTo"`
	IsSubscribed    bool   `json:"isSubscribed"`
}

// ChannelStats summarizes a channel for the dashboard endpoint.
type ChannelStats struct {
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
}

// VideoWithLikes is a channel video annotated with its like count.
type VideoWithLikes struct {
	Video
	LikeCount int64 `json:"likeCount"`
}

// WatchEntry is one row of a user's watch history.
type WatchEntry struct {
	Video     VideoWithOwner `json:"video"`
	WatchedAt time.Time      `json:"watchedAt"`
}

// Page wraps a listing result with its pagination envelope.
type Page[T any] struct {
	Result     []T   `json:"result"`
	PageNumber int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int64 `json:"totalPages"`
}

// NewPage computes the derived pagination fields for a listing response.
func NewPage[T any](result []T, page, limit int, total int64) Page[T] {
	if limit <= 0 {
		limit = 1
	}
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return Page[T]{
		Result:     result,
		PageNumber: page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: totalPages,
	}
}
