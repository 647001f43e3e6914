package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, password_hash, refresh_token, avatar_url, cover_image_url, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user         models.User
		refreshToken sql.NullString
		coverImage   sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&refreshToken, &user.AvatarURL, &coverImage, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	user.RefreshToken = refreshToken.String
	user.CoverImageURL = coverImage.String
	return user, nil
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.AvatarURL, user.CoverImageURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// FindByLogin fetches a user by username or email address.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, identifier string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = $1 OR email = $1
    `, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by login: %w", err)
	}

	return user, nil
}

// UpdateAccount modifies the mutable profile fields of a user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns+`
    `, id, fullName, email, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user account: %w", err)
	}

	return user, nil
}

// UpdateAvatar replaces the stored avatar URL and returns the updated user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error) {
	return r.updateImage(ctx, id, "avatar_url", avatarURL)
}

// UpdateCoverImage replaces the stored cover image URL and returns the updated user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error) {
	return r.updateImage(ctx, id, "cover_image_url", coverImageURL)
}

func (r *PostgresUserRepository) updateImage(ctx context.Context, id, column, url string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of two fixed identifiers, never caller input.
	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET `+column+` = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns+`
    `, id, url, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("update user %s: %w", column, err)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRefreshToken persists the user's current refresh token. Passing the
// empty string clears it, invalidating every outstanding refresh token.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($2, '')
        WHERE id = $1
    `, id, refreshToken)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ChannelProfile loads the public channel view for a username, including
// subscription aggregates relative to the provided viewer.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url, COALESCE(u.cover_image_url, ''),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id::TEXT = $2)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email,
		&profile.AvatarURL, &profile.CoverImageURL, &profile.SubscriberCount,
		&profile.ChannelsSubscribedToCount, &profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// RecordWatch appends a video to the user's watch history; re-watching moves
// the entry to the top.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record watch: %w", err)
	}

	return nil
}

// WatchHistory returns the user's watched videos, most recent first, each
// with a compact owner summary embedded.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.watched_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, fmt.Errorf("scan watch history: %w", err)
	}

	return videos, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
