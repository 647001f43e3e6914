package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// LikeHandler implements the reaction endpoints for videos and comments.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore

	MaxJSONBody int64
}

type reactionRequest struct {
	ReactionType string `json:"reactionType"`
}

type commentLikeResponse struct {
	IsLiked   bool  `json:"isLiked"`
	LikeCount int64 `json:"likeCount"`
}

// ToggleVideoReaction handles POST /api/v1/likes/v/{videoId} requests.
// Repeating a reaction removes it; the opposite reaction replaces it.
func (h LikeHandler) ToggleVideoReaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	viewer, _ := CurrentUser(ctx)

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	limit := h.MaxJSONBody
	if limit <= 0 {
		limit = 16 << 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	reaction := strings.ToLower(strings.TrimSpace(req.ReactionType))
	if reaction != models.ReactionLike && reaction != models.ReactionDislike {
		respondError(ctx, w, http.StatusBadRequest, "reactionType must be like or dislike")
		return
	}

	if !h.videoExists(w, r, videoID) {
		return
	}

	if err := h.Likes.ToggleVideoReaction(ctx, videoID, viewer.ID, reaction); err != nil {
		logger.Error("failed to toggle reaction", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle reaction")
		return
	}

	counts, err := h.Likes.VideoReactionCounts(ctx, videoID, viewer.ID)
	if err != nil {
		logger.Error("failed to load reaction counts", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch reaction counts")
		return
	}

	respondData(ctx, w, http.StatusOK, counts, "reaction toggled successfully")
}

// VideoReactionCounts handles GET /api/v1/likes/v/{videoId}/count requests.
func (h LikeHandler) VideoReactionCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := CurrentUser(ctx)

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	if !h.videoExists(w, r, videoID) {
		return
	}

	counts, err := h.Likes.VideoReactionCounts(ctx, videoID, viewer.ID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to load reaction counts", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch reaction counts")
		return
	}

	respondData(ctx, w, http.StatusOK, counts, "reaction counts fetched successfully")
}

// ToggleCommentLike handles POST /api/v1/likes/toggle/c/{commentId} requests.
func (h LikeHandler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	viewer, _ := CurrentUser(ctx)

	commentID, ok := parseID(r.PathValue("commentId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if _, err := h.Comments.FindByID(ctx, commentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("failed to load comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch comment")
		return
	}

	liked, err := h.Likes.ToggleCommentLike(ctx, commentID, viewer.ID)
	if err != nil {
		logger.Error("failed to toggle comment like", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	count, err := h.Likes.CommentLikeCount(ctx, commentID)
	if err != nil {
		logger.Error("failed to count comment likes", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch like count")
		return
	}

	respondData(ctx, w, http.StatusOK, commentLikeResponse{
		IsLiked:   liked,
		LikeCount: count,
	}, "like toggled successfully")
}

// LikedVideos handles GET /api/v1/likes/videos requests, newest reaction
// first.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := CurrentUser(ctx)

	videos, err := h.Likes.ListLikedVideos(ctx, viewer.ID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list liked videos", "error", err, "userId", viewer.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch liked videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}

func (h LikeHandler) videoExists(w http.ResponseWriter, r *http.Request, videoID string) bool {
	ctx := r.Context()

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return false
		}
		logging.FromContext(ctx).Error("failed to load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return false
	}
	return true
}
