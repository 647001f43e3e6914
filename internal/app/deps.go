package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute

	uploadLimit  = 30
	uploadWindow = time.Hour

	limiterEntryTTL = 15 * time.Minute
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. A nil redis client selects the in-process rate limiter.
func buildDependencies(ctx context.Context, pool db.Pool, redisClient *redis.Client, cfg config.Config) (handlers.Dependencies, error) {
	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	var loginLimiter, uploadLimiter middleware.RateLimiter
	if redisClient != nil {
		loginLimiter = middleware.NewRedisRateLimiter(redisClient, loginLimit, loginWindow)
		uploadLimiter = middleware.NewRedisRateLimiter(redisClient, uploadLimit, uploadWindow)
	} else {
		loginLimiter = middleware.NewIPRateLimiter(loginLimit, loginWindow, loginLimit, limiterEntryTTL)
		uploadLimiter = middleware.NewIPRateLimiter(uploadLimit, uploadWindow, uploadLimit, limiterEntryTTL)
	}

	return handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Media:         media,
		Tokens: auth.NewTokenManager(
			cfg.AccessTokenSecret,
			cfg.RefreshTokenSecret,
			cfg.AccessTokenTTL,
			cfg.RefreshTokenTTL,
		),
		LoginLimiter:   loginLimiter,
		UploadLimiter:  uploadLimiter,
		MaxJSONBody:    cfg.MaxJSONBody,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, nil
}
