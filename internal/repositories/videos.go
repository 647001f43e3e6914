package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoWithOwnerColumns = `v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.duration, v.views, v.is_published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url`

func scanVideoWithOwner(row pgx.Row) (models.Video, error) {
	var (
		video models.Video
		owner models.UserSummary
	)
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoURL, &video.ThumbnailURL, &video.Duration, &video.Views,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.AvatarURL); err != nil {
		return models.Video{}, err
	}
	video.Owner = &owner
	return video, nil
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		video, err := scanVideoWithOwner(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return videos, nil
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

// FindByID fetches a video with its owner summary embedded.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideoWithOwner(conn.QueryRow(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video by id: %w", err)
	}

	return video, nil
}

// Column whitelist for caller-supplied sort keys.
var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// List returns published videos matching the filter, newest first by default,
// along with the total match count for pagination.
func (r *PostgresVideoRepository) List(ctx context.Context, params ListVideosParams) ([]models.Video, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	sortColumn, ok := videoSortColumns[params.SortBy]
	if !ok {
		sortColumn = "v.created_at"
	}
	direction := "DESC"
	if params.SortAsc {
		direction = "ASC"
	}

	where := []string{"v.is_published"}
	args := []any{}
	if params.Query != "" {
		args = append(args, "%"+params.Query+"%")
		where = append(where, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}
	if params.OwnerID != "" {
		args = append(args, params.OwnerID)
		where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM videos v
        WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	query := fmt.Sprintf(`
        SELECT %s
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE %s
        ORDER BY %s %s
        LIMIT $%d OFFSET $%d
    `, videoWithOwnerColumns, whereClause, sortColumn, direction, len(args)-1, len(args))

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan videos: %w", err)
	}

	return videos, total, nil
}

// Update persists the mutable fields of a video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, updated_at = $5
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.ThumbnailURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// TogglePublish atomically flips the publish flag and returns the new state.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, created_at, updated_at
    `, id, time.Now().UTC())

	var video models.Video
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoURL, &video.ThumbnailURL, &video.Duration, &video.Views,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}

	return video, nil
}

// Delete removes a video record. Comments and likes referencing it are kept.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM videos
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementViews bumps the view counter by one.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
    `, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	return nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
