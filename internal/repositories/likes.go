package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes and
// reactions. Partial unique indexes on (liked_by, video_id) and
// (liked_by, comment_id) guarantee at most one record per (user, target), so
// concurrent toggles converge instead of producing duplicates.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// ToggleVideoReaction applies the exclusive like/dislike toggle: a repeated
// reaction removes the record, a different reaction replaces it, no record
// creates one.
func (r *PostgresLikeRepository) ToggleVideoReaction(ctx context.Context, videoID, userID, reaction string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE video_id = $1 AND liked_by = $2 AND reaction = $3
    `, videoID, userID, reaction)
	if err != nil {
		return fmt.Errorf("delete video reaction: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := conn.Exec(ctx, `
        INSERT INTO likes (id, video_id, liked_by, reaction, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (liked_by, video_id) WHERE video_id IS NOT NULL
        DO UPDATE SET reaction = EXCLUDED.reaction
    `, uuid.NewString(), videoID, userID, reaction, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert video reaction: %w", err)
	}

	return nil
}

// VideoReactionCounts aggregates like/dislike totals for a video along with
// the viewer's own reaction flags.
func (r *PostgresLikeRepository) VideoReactionCounts(ctx context.Context, videoID, viewerID string) (models.ReactionCounts, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ReactionCounts{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var counts models.ReactionCounts
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FILTER (WHERE reaction = 'like'),
               COUNT(*) FILTER (WHERE reaction = 'dislike'),
               COALESCE(bool_or(liked_by::TEXT = $2 AND reaction = 'like'), false),
               COALESCE(bool_or(liked_by::TEXT = $2 AND reaction = 'dislike'), false)
        FROM likes
        WHERE video_id = $1
    `, videoID, viewerID).Scan(&counts.LikeCount, &counts.DislikeCount, &counts.IsLiked, &counts.IsDisliked); err != nil {
		return models.ReactionCounts{}, fmt.Errorf("count video reactions: %w", err)
	}

	return counts, nil
}

// ToggleCommentLike flips the plain like on a comment and reports whether the
// comment is liked after the call.
func (r *PostgresLikeRepository) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE comment_id = $1 AND liked_by = $2
    `, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("delete comment like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	if _, err := conn.Exec(ctx, `
        INSERT INTO likes (id, comment_id, liked_by, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (liked_by, comment_id) WHERE comment_id IS NOT NULL
        DO NOTHING
    `, uuid.NewString(), commentID, userID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("insert comment like: %w", err)
	}

	return true, nil
}

// CommentLikeCount returns how many users like a comment.
func (r *PostgresLikeRepository) CommentLikeCount(ctx context.Context, commentID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM likes
        WHERE comment_id = $1
    `, commentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count comment likes: %w", err)
	}

	return total, nil
}

// ListLikedVideos returns the videos the user reacted "like" to, most recent
// reaction first.
func (r *PostgresLikeRepository) ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL AND l.reaction = 'like'
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, fmt.Errorf("scan liked videos: %w", err)
	}

	return videos, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
