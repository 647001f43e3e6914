package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxCommentLength = 2000

// CommentHandler implements the video comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore

	MaxJSONBody int64
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentCreateResponse struct {
	Comment       models.Comment `json:"comment"`
	TotalComments int64          `json:"totalComments"`
}

type commentListResponse struct {
	Comments   []models.Comment `json:"comments"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int64            `json:"totalPages"`
}

// List handles GET /api/v1/comments/{videoId} requests, newest first.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	if !h.videoExists(w, r, videoID) {
		return
	}

	query := r.URL.Query()
	page := parsePositiveInt(query.Get("page"), 1)
	limit := parsePositiveInt(query.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	comments, total, err := h.Comments.ListForVideo(ctx, videoID, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch comments")
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	respondData(ctx, w, http.StatusOK, commentListResponse{
		Comments:   comments,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, "comments fetched successfully")
}

// Create handles POST /api/v1/comments/{videoId} requests.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	author, _ := CurrentUser(ctx)

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	content, ok := h.decodeContent(w, r)
	if !ok {
		return
	}

	if !h.videoExists(w, r, videoID) {
		return
	}

	now := time.Now().UTC()
	comment, err := h.Comments.Create(ctx, models.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		VideoID:   videoID,
		OwnerID:   author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		logger.Error("failed to create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}

	total, err := h.Comments.CountForVideo(ctx, videoID)
	if err != nil {
		logger.Warn("failed to count comments", "error", err, "videoId", videoID)
	}

	respondData(ctx, w, http.StatusCreated, commentCreateResponse{
		Comment:       comment,
		TotalComments: total,
	}, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId} requests.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	actor, _ := CurrentUser(ctx)

	comment, ok := h.loadOwnedComment(w, r, actor.ID)
	if !ok {
		return
	}

	content, ok := h.decodeContent(w, r)
	if !ok {
		return
	}

	updated, err := h.Comments.Update(ctx, comment.ID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("failed to update comment", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update comment")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId} requests.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := CurrentUser(ctx)

	comment, ok := h.loadOwnedComment(w, r, actor.ID)
	if !ok {
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logging.FromContext(ctx).Error("failed to delete comment", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}

func (h CommentHandler) loadOwnedComment(w http.ResponseWriter, r *http.Request, actorID string) (models.Comment, bool) {
	ctx := r.Context()

	commentID, ok := parseID(r.PathValue("commentId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid comment id")
		return models.Comment{}, false
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return models.Comment{}, false
		}
		logging.FromContext(ctx).Error("failed to load comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch comment")
		return models.Comment{}, false
	}

	if !authorizeOwner(actorID, comment.OwnerID) {
		respondError(ctx, w, http.StatusForbidden, "you do not own this comment")
		return models.Comment{}, false
	}

	return comment, true
}

func (h CommentHandler) videoExists(w http.ResponseWriter, r *http.Request, videoID string) bool {
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

func (h CommentHandler) decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	limit := h.MaxJSONBody
	if limit <= 0 {
		limit = 16 << 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "comment content is required")
		return "", false
	}
	if len(content) > maxCommentLength {
		respondError(ctx, w, http.StatusBadRequest, "comment content is too long")
		return "", false
	}

	return content, true
}
