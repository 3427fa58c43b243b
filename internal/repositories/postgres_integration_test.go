package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndRefreshToken(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := newTestUser("alice")

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := newTestUser("someone-else")
	dup.Email = user.Email
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict creating duplicate email, got %v", err)
	}

	byUsername, err := repo.FindByLogin(ctx, user.Username)
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	byEmail, err := repo.FindByLogin(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byUsername.ID != user.ID || byEmail.ID != user.ID {
		t.Fatalf("lookups disagree: %s vs %s", byUsername.ID, byEmail.ID)
	}
	if byUsername.PasswordHash != user.PasswordHash {
		t.Fatalf("password hash not persisted")
	}

	if err := repo.SetRefreshToken(ctx, user.ID, "token-one"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.RefreshToken != "token-one" {
		t.Fatalf("expected stored refresh token, got %q", fetched.RefreshToken)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id after clear: %v", err)
	}
	if fetched.RefreshToken != "" {
		t.Fatalf("expected cleared refresh token, got %q", fetched.RefreshToken)
	}

	if err := repo.SetRefreshToken(ctx, uuid.NewString(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestPostgresVideoRepository_ListAndOwnership(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	intruder := createTestUser(t, userRepo, "intruder")

	published := newTestVideo(owner.ID, "Go Generics Explained")
	draft := newTestVideo(owner.ID, "Unfinished Draft")
	draft.IsPublished = false

	for _, v := range []models.Video{published, draft} {
		if err := videoRepo.Create(ctx, v); err != nil {
			t.Fatalf("create video %s: %v", v.Title, err)
		}
	}

	page, err := videoRepo.List(ctx, ListVideosParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if page.TotalCount != 1 || len(page.Result) != 1 {
		t.Fatalf("expected only the published video, got %d rows", len(page.Result))
	}
	if page.Result[0].ID != published.ID {
		t.Fatalf("unexpected video in listing: %s", page.Result[0].ID)
	}
	if page.Result[0].Owner.Username != owner.Username {
		t.Fatalf("owner profile not joined: %+v", page.Result[0].Owner)
	}

	search, err := videoRepo.List(ctx, ListVideosParams{Query: "generics", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("search videos: %v", err)
	}
	if search.TotalCount != 1 {
		t.Fatalf("expected ILIKE match, got %d", search.TotalCount)
	}

	// View fetches increment the counter.
	for i := 0; i < 3; i++ {
		if _, err := videoRepo.GetAndCountView(ctx, published.ID); err != nil {
			t.Fatalf("get video: %v", err)
		}
	}
	got, err := videoRepo.GetAndCountView(ctx, published.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.Views != 4 {
		t.Fatalf("expected 4 views, got %d", got.Views)
	}

	// Non-owners observe ErrNotFound, never a partial mutation.
	if _, _, err := videoRepo.UpdateDetails(ctx, published.ID, intruder.ID, "Hijacked", "", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner update, got %v", err)
	}
	if _, err := videoRepo.Delete(ctx, published.ID, intruder.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner delete, got %v", err)
	}

	updated, previousThumb, err := videoRepo.UpdateDetails(ctx, published.ID, owner.ID, "Go Generics, Revisited", "now with examples", nil)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Go Generics, Revisited" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if previousThumb != published.ThumbnailURL {
		t.Fatalf("expected previous thumbnail %q, got %q", published.ThumbnailURL, previousThumb)
	}

	toggled, err := videoRepo.TogglePublish(ctx, draft.ID, owner.ID)
	if err != nil {
		t.Fatalf("toggle publish: %v", err)
	}
	if !toggled.IsPublished {
		t.Fatalf("expected draft to become published")
	}

	deleted, err := videoRepo.Delete(ctx, published.ID, owner.ID)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if deleted.VideoURL != published.VideoURL {
		t.Fatalf("expected deleted row to carry media urls")
	}
}

func TestPostgresLikeRepository_ToggleIsAtomic(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)

	owner := createTestUser(t, userRepo, "creator")
	fan := createTestUser(t, userRepo, "fan")

	video := newTestVideo(owner.ID, "Toggle Me")
	if err := videoRepo.Create(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	liked, err := likeRepo.Toggle(ctx, models.LikeTargetVideo, video.ID, fan.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !liked {
		t.Fatalf("expected first toggle to create the like")
	}

	liked, err = likeRepo.Toggle(ctx, models.LikeTargetVideo, video.ID, fan.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if liked {
		t.Fatalf("expected second toggle to remove the like")
	}

	if _, err := likeRepo.Toggle(ctx, models.LikeTargetVideo, uuid.NewString(), fan.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target, got %v", err)
	}

	if _, err := likeRepo.Toggle(ctx, models.LikeTargetVideo, video.ID, fan.ID); err != nil {
		t.Fatalf("re-like: %v", err)
	}
	videos, err := likeRepo.ListLikedVideos(ctx, fan.ID)
	if err != nil {
		t.Fatalf("list liked videos: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != video.ID {
		t.Fatalf("unexpected liked videos: %+v", videos)
	}
}

func TestPostgresSubscriptionRepository_ToggleAndListings(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	subRepo := NewPostgresSubscriptionRepository(testPool)

	channel := createTestUser(t, userRepo, "channel")
	fan := createTestUser(t, userRepo, "subscriber")

	subscribed, err := subRepo.Toggle(ctx, fan.ID, channel.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !subscribed {
		t.Fatalf("expected toggle to subscribe")
	}

	subs, err := subRepo.Subscribers(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != fan.ID {
		t.Fatalf("unexpected subscribers: %+v", subs)
	}

	channels, err := subRepo.SubscribedChannels(ctx, fan.ID)
	if err != nil {
		t.Fatalf("list subscribed channels: %v", err)
	}
	if len(channels) != 1 || channels[0].ID != channel.ID {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	subscribed, err = subRepo.Toggle(ctx, fan.ID, channel.ID)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if subscribed {
		t.Fatalf("expected toggle to unsubscribe")
	}

	if _, err := subRepo.Toggle(ctx, fan.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing channel, got %v", err)
	}
}

func TestPostgresPlaylistRepository_MembershipAndOwnership(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	playlistRepo := NewPostgresPlaylistRepository(testPool)

	owner := createTestUser(t, userRepo, "curator")
	intruder := createTestUser(t, userRepo, "sneak")

	video := newTestVideo(owner.ID, "Playlist Fodder")
	if err := videoRepo.Create(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Name:        "Favorites",
		Description: "the good stuff",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := playlistRepo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := playlistRepo.AddVideo(ctx, playlist.ID, video.ID, intruder.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner add, got %v", err)
	}

	if err := playlistRepo.AddVideo(ctx, playlist.ID, video.ID, owner.ID); err != nil {
		t.Fatalf("add video: %v", err)
	}
	// Re-adding is a no-op, not an error.
	if err := playlistRepo.AddVideo(ctx, playlist.ID, video.ID, owner.ID); err != nil {
		t.Fatalf("re-add video: %v", err)
	}

	detail, err := playlistRepo.FindDetail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find detail: %v", err)
	}
	if len(detail.Videos) != 1 || detail.Videos[0].ID != video.ID {
		t.Fatalf("unexpected playlist videos: %+v", detail.Videos)
	}
	if detail.Owner.Username != owner.Username {
		t.Fatalf("owner not joined: %+v", detail.Owner)
	}

	lists, err := playlistRepo.ListForUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(lists) != 1 || lists[0].VideoCount != 1 {
		t.Fatalf("unexpected playlist listing: %+v", lists)
	}

	if err := playlistRepo.RemoveVideo(ctx, playlist.ID, video.ID, owner.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}

	if err := playlistRepo.Delete(ctx, playlist.ID, intruder.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner delete, got %v", err)
	}
	if err := playlistRepo.Delete(ctx, playlist.ID, owner.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestPostgresDashboardRepository_Stats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)
	subRepo := NewPostgresSubscriptionRepository(testPool)
	dashRepo := NewPostgresDashboardRepository(testPool)

	owner := createTestUser(t, userRepo, "dash")
	fan := createTestUser(t, userRepo, "dashfan")

	first := newTestVideo(owner.ID, "First")
	first.Views = 10
	second := newTestVideo(owner.ID, "Second")
	second.Views = 5
	for _, v := range []models.Video{first, second} {
		if err := videoRepo.Create(ctx, v); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	if _, err := likeRepo.Toggle(ctx, models.LikeTargetVideo, first.ID, fan.ID); err != nil {
		t.Fatalf("like video: %v", err)
	}
	if _, err := subRepo.Toggle(ctx, fan.ID, owner.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stats, err := dashRepo.ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalSubscribers != 1 || stats.TotalVideos != 2 || stats.TotalViews != 15 || stats.TotalLikes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	videos, err := dashRepo.ChannelVideos(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 channel videos, got %d", len(videos))
	}
	for _, v := range videos {
		if v.ID == first.ID && v.LikeCount != 1 {
			t.Fatalf("expected like count 1 on %s, got %d", v.ID, v.LikeCount)
		}
	}
}

func TestPostgresCommentRepository_CrudAndMasking(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	commentRepo := NewPostgresCommentRepository(testPool)

	owner := createTestUser(t, userRepo, "videoowner")
	commenter := createTestUser(t, userRepo, "commenter")
	intruder := createTestUser(t, userRepo, "lurker")

	video := newTestVideo(owner.ID, "Discussable")
	if err := videoRepo.Create(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   commenter.ID,
		Content:   "first",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := commentRepo.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	orphan := comment
	orphan.ID = uuid.NewString()
	orphan.VideoID = uuid.NewString()
	if err := commentRepo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}

	page, err := commentRepo.ListForVideo(ctx, video.ID, 1, 10)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if page.TotalCount != 1 || len(page.Result) != 1 {
		t.Fatalf("unexpected comment page: %+v", page)
	}

	if _, err := commentRepo.Update(ctx, comment.ID, intruder.ID, "hijack"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner update, got %v", err)
	}
	updated, err := commentRepo.Update(ctx, comment.ID, commenter.ID, "edited")
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Content != "edited" {
		t.Fatalf("content not updated: %q", updated.Content)
	}

	if err := commentRepo.Delete(ctx, comment.ID, intruder.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner delete, got %v", err)
	}
	if err := commentRepo.Delete(ctx, comment.ID, commenter.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, likes, subscriptions, playlist_videos, playlists, comments, tweets, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func newTestUser(username string) models.User {
	now := time.Now().UTC()
	return models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		AvatarURL:    "https://media.example.com/" + username + ".png",
		PasswordHash: "password-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := newTestUser(username)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user %s: %v", username, err)
	}
	return user
}

func newTestVideo(ownerID, title string) models.Video {
	now := time.Now().UTC()
	return models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		Description:  "about " + title,
		VideoURL:     "https://media.example.com/" + uuid.NewString() + ".mp4",
		ThumbnailURL: "https://media.example.com/" + uuid.NewString() + ".jpg",
		Duration:     12.5,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
