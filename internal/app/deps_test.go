package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    10 * 24 * time.Hour,
		MaxJSONBody:        16 << 10,
		MaxUploadBytes:     256 << 20,
		ObjectStore:        config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Videos == nil {
		t.Fatal("expected video repository to be configured")
	}
	if deps.Comments == nil {
		t.Fatal("expected comment repository to be configured")
	}
	if deps.Likes == nil {
		t.Fatal("expected like repository to be configured")
	}
	if deps.Subscriptions == nil {
		t.Fatal("expected subscription repository to be configured")
	}
	if deps.Playlists == nil {
		t.Fatal("expected playlist repository to be configured")
	}
	if deps.Media == nil {
		t.Fatal("expected media storage to be configured")
	}
	if deps.Tokens == nil {
		t.Fatal("expected token manager to be configured")
	}
	if deps.LoginLimiter == nil || deps.UploadLimiter == nil {
		t.Fatal("expected rate limiters to be configured")
	}
}
