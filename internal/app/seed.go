package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const (
	defaultSeedUsers         = 10
	defaultSeedVideosPerUser = 3

	// Every seeded account gets this password so local logins are easy.
	seedPassword = "password123"
)

// runSeed fills the database with generated users and published videos for
// local development. Usage: seed [users] [videosPerUser].
func runSeed(ctx context.Context, args []string) error {
	users := defaultSeedUsers
	videosPerUser := defaultSeedVideosPerUser

	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid user count %q", args[0])
		}
		users = parsed
	}
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid videos per user %q", args[1])
		}
		videosPerUser = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repositories.NewPostgresUserRepository(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)

	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	faker := gofakeit.New(0)

	var created, published int
	for i := 0; i < users; i++ {
		now := time.Now().UTC()
		username := strings.ToLower(faker.Username())
		user := models.User{
			ID:            uuid.NewString(),
			Username:      fmt.Sprintf("%s%d", username, faker.Number(10, 99)),
			Email:         faker.Email(),
			FullName:      faker.Name(),
			Password:      string(hashed),
			AvatarURL:     faker.ImageURL(200, 200),
			CoverImageURL: faker.ImageURL(1280, 320),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.Username, err)
		}
		created++

		for j := 0; j < videosPerUser; j++ {
			video := models.Video{
				ID:           uuid.NewString(),
				VideoURL:     fmt.Sprintf("videos/%s.mp4", uuid.NewString()),
				ThumbnailURL: faker.ImageURL(640, 360),
				Title:        faker.Sentence(4),
				Description:  faker.Paragraph(1, 3, 10, " "),
				Duration:     float64(faker.Number(30, 1800)),
				Views:        int64(faker.Number(0, 100000)),
				IsPublished:  true,
				OwnerID:      user.ID,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			if err := videoRepo.Create(ctx, video); err != nil {
				return fmt.Errorf("seed video for %s: %w", user.Username, err)
			}
			published++
		}
	}

	fmt.Printf("seeded %d users and %d videos\n", created, published)
	return nil
}
