package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

const commentWithOwnerColumns = `c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at,
               u.id, u.username, u.full_name, u.avatar_url`

func scanCommentWithOwner(row pgx.Row) (models.Comment, error) {
	var (
		comment models.Comment
		owner   models.UserSummary
	)
	if err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.AvatarURL); err != nil {
		return models.Comment{}, err
	}
	comment.Owner = &owner
	return comment, nil
}

// Create persists a new comment and returns it with the owner summary embedded.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt); err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	return r.findByID(ctx, conn.QueryRow, comment.ID)
}

type queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row

func (r *PostgresCommentRepository) findByID(ctx context.Context, queryRow queryRowFunc, id string) (models.Comment, error) {
	comment, err := scanCommentWithOwner(queryRow(ctx, `
        SELECT `+commentWithOwnerColumns+`
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment by id: %w", err)
	}
	return comment, nil
}

// FindByID fetches a comment by primary key.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.findByID(ctx, conn.QueryRow, id)
}

// ListForVideo returns one page of a video's comments, newest first, with the
// total comment count for pagination.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := conn.Query(ctx, `
        SELECT `+commentWithOwnerColumns+`
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC
        LIMIT $2 OFFSET $3
    `, videoID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		comment, err := scanCommentWithOwner(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}

	total, err := r.CountForVideo(ctx, videoID)
	if err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// CountForVideo returns the number of comments attached to a video.
func (r *PostgresCommentRepository) CountForVideo(ctx context.Context, videoID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM comments
        WHERE video_id = $1
    `, videoID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}

	return total, nil
}

// Update replaces a comment's content and returns the updated record.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, content string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE comments
        SET content = $2, updated_at = $3
        WHERE id = $1
    `, id, content, time.Now().UTC())
	if err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Comment{}, ErrNotFound
	}

	return r.findByID(ctx, conn.QueryRow, id)
}

// Delete removes a comment record.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM comments
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ CommentRepository = (*PostgresCommentRepository)(nil)
