package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// channel subscriptions. A unique (subscriber_id, channel_id) index keeps the
// pair single-valued under concurrent toggles.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle subscribes the user to the channel if no subscription exists, and
// removes it otherwise. It reports whether the user is subscribed afterwards.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	if _, err := conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
    `, uuid.NewString(), subscriberID, channelID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// IsSubscribed reports whether the subscriber follows the channel.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var subscribed bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, subscriberID, channelID).Scan(&subscribed); err != nil {
		return false, fmt.Errorf("select subscription: %w", err)
	}

	return subscribed, nil
}

// CountForChannel returns the channel's subscriber total.
func (r *PostgresSubscriptionRepository) CountForChannel(ctx context.Context, channelID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM subscriptions
        WHERE channel_id = $1
    `, channelID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}

	return total, nil
}

// ListSubscribers returns the users subscribed to the channel.
func (r *PostgresSubscriptionRepository) ListSubscribers(ctx context.Context, channelID string) ([]models.UserSummary, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
}

// ListSubscribedChannels returns the channels the user has subscribed to.
func (r *PostgresSubscriptionRepository) ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
}

func (r *PostgresSubscriptionRepository) listUsers(ctx context.Context, query string, arg string) ([]models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var user models.UserSummary
		if err := rows.Scan(&user.ID, &user.Username, &user.FullName, &user.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan subscription user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return users, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
