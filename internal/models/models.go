package models

import "time"

// User represents an account on the ClipTube platform. The password hash and
// the persisted refresh token are never serialized into responses.
type User struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Password      string    `json:"-"`
	RefreshToken  string    `json:"-"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserSummary is the compact owner projection embedded in listings.
type UserSummary struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// Summary projects the user down to the fields exposed on owned resources.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// Video is an uploaded video backed by objects in the media store.
type Video struct {
	ID           string       `json:"_id"`
	OwnerID      string       `json:"-"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	VideoURL     string       `json:"videoFile"`
	ThumbnailURL string       `json:"thumbnail"`
	Duration     float64      `json:"duration"`
	Views        int64        `json:"views"`
	IsPublished  bool         `json:"isPublished"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Owner        *UserSummary `json:"owner,omitempty"`
}

// Comment is a user remark attached to a single video.
type Comment struct {
	ID        string       `json:"_id"`
	VideoID   string       `json:"video"`
	OwnerID   string       `json:"-"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Owner     *UserSummary `json:"owner,omitempty"`
}

// Reaction kinds stored on video likes.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Like associates a user with exactly one target: a video (with a reaction
// kind) or a comment (plain toggle).
type Like struct {
	ID        string    `json:"_id"`
	VideoID   string    `json:"video,omitempty"`
	CommentID string    `json:"comment,omitempty"`
	Reaction  string    `json:"reaction,omitempty"`
	LikedBy   string    `json:"likedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionCounts aggregates the like state of a video for the viewer.
type ReactionCounts struct {
	LikeCount    int64 `json:"likeCount"`
	DislikeCount int64 `json:"dislikeCount"`
	IsLiked      bool  `json:"isLiked"`
	IsDisliked   bool  `json:"isDisliked"`
}

// Subscription links a subscriber to a channel (another user).
type Subscription struct {
	ID           string    `json:"_id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Playlist is an ordered, duplicate-free collection of videos owned by a user.
type Playlist struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Videos      []Video   `json:"videos"`
}

// ChannelProfile is the public view of a user's channel.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	AvatarURL                 string `json:"avatar"`
	CoverImageURL             string `json:"coverImage,omitempty"`
	SubscriberCount           int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// SessionTokens groups the signed credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
