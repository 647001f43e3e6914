package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies bundles everything the route table needs.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Media         MediaStore
	Tokens        TokenIssuer

	LoginLimiter  middleware.RateLimiter
	UploadLimiter middleware.RateLimiter

	MaxJSONBody    int64
	MaxUploadBytes int64
}

// RegisterRoutes mounts every API endpoint on the mux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	gate := Authenticator{Tokens: deps.Tokens, Users: deps.Users}

	users := UserHandler{
		Users:          deps.Users,
		Media:          deps.Media,
		Tokens:         deps.Tokens,
		LoginLimiter:   deps.LoginLimiter,
		MaxJSONBody:    deps.MaxJSONBody,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Users:          deps.Users,
		Media:          deps.Media,
		UploadLimiter:  deps.UploadLimiter,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	comments := CommentHandler{
		Comments:    deps.Comments,
		Videos:      deps.Videos,
		MaxJSONBody: deps.MaxJSONBody,
	}
	likes := LikeHandler{
		Likes:       deps.Likes,
		Videos:      deps.Videos,
		Comments:    deps.Comments,
		MaxJSONBody: deps.MaxJSONBody,
	}
	subscriptions := SubscriptionHandler{
		Subscriptions: deps.Subscriptions,
		Users:         deps.Users,
	}
	playlists := PlaylistHandler{
		Playlists:   deps.Playlists,
		Videos:      deps.Videos,
		MaxJSONBody: deps.MaxJSONBody,
	}

	mux.HandleFunc("GET /healthz", HealthHandler{}.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/logout", gate.Require(users.Logout))
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.HandleFunc("POST /api/v1/users/change-password", gate.Require(users.ChangePassword))
	mux.HandleFunc("GET /api/v1/users/current-user", gate.Require(users.Current))
	mux.HandleFunc("PATCH /api/v1/users/update-account", gate.Require(users.UpdateAccount))
	mux.HandleFunc("PATCH /api/v1/users/avatar", gate.Require(users.UpdateAvatar))
	mux.HandleFunc("PATCH /api/v1/users/cover-image", gate.Require(users.UpdateCoverImage))
	mux.HandleFunc("GET /api/v1/users/c/{username}", gate.Require(users.ChannelProfile))
	mux.HandleFunc("GET /api/v1/users/history", gate.Require(users.WatchHistory))

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("POST /api/v1/videos", gate.Require(videos.Create))
	mux.HandleFunc("GET /api/v1/videos/{videoId}", gate.Optional(videos.Get))
	mux.HandleFunc("PATCH /api/v1/videos/{videoId}", gate.Require(videos.Update))
	mux.HandleFunc("DELETE /api/v1/videos/{videoId}", gate.Require(videos.Delete))
	mux.HandleFunc("PATCH /api/v1/videos/publish/{videoId}", gate.Require(videos.TogglePublish))

	mux.HandleFunc("GET /api/v1/comments/{videoId}", gate.Require(comments.List))
	mux.HandleFunc("POST /api/v1/comments/{videoId}", gate.Require(comments.Create))
	mux.HandleFunc("PATCH /api/v1/comments/c/{commentId}", gate.Require(comments.Update))
	mux.HandleFunc("DELETE /api/v1/comments/c/{commentId}", gate.Require(comments.Delete))

	mux.HandleFunc("POST /api/v1/likes/v/{videoId}", gate.Require(likes.ToggleVideoReaction))
	mux.HandleFunc("GET /api/v1/likes/v/{videoId}/count", gate.Require(likes.VideoReactionCounts))
	mux.HandleFunc("POST /api/v1/likes/toggle/c/{commentId}", gate.Require(likes.ToggleCommentLike))
	mux.HandleFunc("GET /api/v1/likes/videos", gate.Require(likes.LikedVideos))

	mux.HandleFunc("GET /api/v1/subscriptions/status/{channelId}", gate.Require(subscriptions.Status))
	mux.HandleFunc("POST /api/v1/subscriptions/c/{channelId}", gate.Require(subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/subscriptions/c/{channelId}", gate.Require(subscriptions.Subscribers))
	mux.HandleFunc("GET /api/v1/subscriptions/u/{subscriberId}", gate.Require(subscriptions.SubscribedChannels))

	mux.HandleFunc("POST /api/v1/playlists", gate.Require(playlists.Create))
	mux.HandleFunc("GET /api/v1/playlists/user/{userId}", gate.Require(playlists.ListForUser))
	mux.HandleFunc("GET /api/v1/playlists/{playlistId}", gate.Require(playlists.Get))
	mux.HandleFunc("PATCH /api/v1/playlists/{playlistId}", gate.Require(playlists.Update))
	mux.HandleFunc("DELETE /api/v1/playlists/{playlistId}", gate.Require(playlists.Delete))
	mux.HandleFunc("PATCH /api/v1/playlists/add/{videoId}/{playlistId}", gate.Require(playlists.AddVideo))
	mux.HandleFunc("PATCH /api/v1/playlists/remove/{videoId}/{playlistId}", gate.Require(playlists.RemoveVideo))
}
