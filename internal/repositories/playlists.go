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

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists a new, empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

func (r *PostgresPlaylistRepository) scanPlaylistRow(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	if err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (r *PostgresPlaylistRepository) loadVideos(ctx context.Context, conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, playlistID string) ([]models.Video, error) {
	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, fmt.Errorf("scan playlist videos: %w", err)
	}
	return videos, nil
}

// FindByID fetches a playlist with its videos in insertion order.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := r.scanPlaylistRow(conn.QueryRow(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at
        FROM playlists
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}

	playlist.Videos, err = r.loadVideos(ctx, conn, playlist.ID)
	if err != nil {
		return models.Playlist{}, err
	}

	return playlist, nil
}

// ListForUser returns all playlists owned by a user, videos included.
func (r *PostgresPlaylistRepository) ListForUser(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at
        FROM playlists
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}

	var playlists []models.Playlist
	for rows.Next() {
		playlist, err := r.scanPlaylistRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	rows.Close()

	for i := range playlists {
		playlists[i].Videos, err = r.loadVideos(ctx, conn, playlists[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return playlists, nil
}

// Update modifies a playlist's name and description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := r.scanPlaylistRow(conn.QueryRow(ctx, `
        UPDATE playlists
        SET name = $2, description = $3, updated_at = $4
        WHERE id = $1
        RETURNING id, owner_id, name, description, created_at, updated_at
    `, id, name, description, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}

	playlist.Videos, err = r.loadVideos(ctx, conn, playlist.ID)
	if err != nil {
		return models.Playlist{}, err
	}

	return playlist, nil
}

// Delete removes a playlist and its entries.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos
        WHERE playlist_id = $1
    `, id); err != nil {
		return fmt.Errorf("delete playlist entries: %w", err)
	}

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlists
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AddVideo appends a video to the playlist. Adding a video that is already
// present returns ErrConflict.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position)
        SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
        FROM playlist_videos
        WHERE playlist_id = $1
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("insert playlist entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return nil
}

// RemoveVideo drops a video from the playlist. Removing a video that is not
// in the playlist returns ErrNotFound.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos
        WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("delete playlist entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ PlaylistRepository = (*PostgresPlaylistRepository)(nil)
