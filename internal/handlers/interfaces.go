package handlers

import (
	"context"
	"io"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user and
// authentication handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRefreshToken(ctx context.Context, id, refreshToken string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
}

// VideoStore captures persistence for the video handlers.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, params repositories.ListVideosParams) ([]models.Video, int64, error)
	Update(ctx context.Context, video models.Video) error
	TogglePublish(ctx context.Context, id string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// CommentStore captures persistence for the comment handlers.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error)
	CountForVideo(ctx context.Context, videoID string) (int64, error)
	Update(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore captures the toggle-style reaction operations.
type LikeStore interface {
	ToggleVideoReaction(ctx context.Context, videoID, userID, reaction string) error
	VideoReactionCounts(ctx context.Context, videoID, viewerID string) (models.ReactionCounts, error)
	ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error)
	CommentLikeCount(ctx context.Context, commentID string) (int64, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionStore captures channel subscription operations.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountForChannel(ctx context.Context, channelID string) (int64, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.UserSummary, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error)
}

// PlaylistStore captures persistence for the playlist handlers.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListForUser(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// MediaStore is the media delegate contract: store a binary asset under a
// key and return its canonical public URL, or remove one by its stored URL.
type MediaStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// TokenIssuer issues and validates the signed access/refresh token pair.
type TokenIssuer interface {
	Issue(user models.User) (models.SessionTokens, error)
	ParseAccess(token string) (auth.AccessClaims, error)
	ParseRefresh(token string) (string, error)
}
