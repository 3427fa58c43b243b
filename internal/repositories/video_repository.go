package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, created_at, updated_at`

// ListVideosParams filters and orders the public video listing.
type ListVideosParams struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// sortColumns whitelists client-supplied sort keys.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"duration":  "duration",
	"views":     "views",
}

// List returns a page of videos with their owners joined, filtered by an
// optional free-text query on title/description and an optional owner.
func (r *PostgresVideoRepository) List(ctx context.Context, params ListVideosParams) (models.Page[models.VideoWithOwner], error) {
	var zero models.Page[models.VideoWithOwner]

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 10
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where := []string{"v.is_published"}
	args := []any{}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}
	if params.OwnerID != "" {
		args = append(args, params.OwnerID)
		where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v WHERE `+whereClause, args...).Scan(&total); err != nil {
		return zero, fmt.Errorf("count videos: %w", err)
	}

	orderBy, ok := sortColumns[params.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "ASC"
	if params.SortDesc {
		direction = "DESC"
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.duration, v.views, v.is_published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE %s
        ORDER BY v.%s %s
        LIMIT $%d OFFSET $%d
    `, whereClause, orderBy, direction, len(args)-1, len(args)), args...)
	if err != nil {
		return zero, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos, err := scanVideosWithOwner(rows)
	if err != nil {
		return zero, err
	}

	return models.NewPage(videos, params.Page, params.Limit, total), nil
}

// GetAndCountView fetches a video with its owner joined, incrementing the
// view counter in the same statement.
func (r *PostgresVideoRepository) GetAndCountView(ctx context.Context, id string) (models.VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoWithOwner{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        WITH viewed AS (
            UPDATE videos SET views = views + 1
            WHERE id = $1
            RETURNING `+videoColumns+`
        )
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.duration, v.views, v.is_published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM viewed v
        JOIN users u ON u.id = v.owner_id
    `, id)

	var video models.VideoWithOwner
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&video.Owner.ID, &video.Owner.Username, &video.Owner.FullName, &video.Owner.AvatarURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoWithOwner{}, ErrNotFound
		}
		return models.VideoWithOwner{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// UpdateDetails changes title, description and optionally the thumbnail in a
// single owner-scoped statement. A non-owner request observes ErrNotFound.
// The previous thumbnail URL is returned so callers can delete the replaced
// media object.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id, ownerID, title, description string, thumbnailURL *string) (models.Video, string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos v
        SET title = COALESCE(NULLIF($3, ''), v.title),
            description = COALESCE(NULLIF($4, ''), v.description),
            thumbnail_url = COALESCE($5, v.thumbnail_url),
            updated_at = NOW()
        FROM (SELECT id, thumbnail_url FROM videos WHERE id = $1) prev
        WHERE v.id = prev.id AND v.owner_id = $2
        RETURNING v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
                  v.duration, v.views, v.is_published, v.created_at, v.updated_at,
                  prev.thumbnail_url
    `, id, ownerID, title, description, thumbnailURL)

	var video models.Video
	var previousThumbnail string
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&previousThumbnail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, "", ErrNotFound
		}
		return models.Video{}, "", fmt.Errorf("update video: %w", err)
	}

	return video, previousThumbnail, nil
}

// Delete removes an owner's video and returns the deleted row so callers can
// clean up its media objects.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id, ownerID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        DELETE FROM videos
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("delete video: %w", err)
	}

	return video, nil
}

// TogglePublish flips the publish flag in a single owner-scoped statement.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = NOW()
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}

	return video, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func scanVideosWithOwner(rows pgx.Rows) ([]models.VideoWithOwner, error) {
	var videos []models.VideoWithOwner
	for rows.Next() {
		var video models.VideoWithOwner
		if err := rows.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
			&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
			&video.Owner.ID, &video.Owner.Username, &video.Owner.FullName, &video.Owner.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
