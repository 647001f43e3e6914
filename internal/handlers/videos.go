package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// VideoHandler implements the video catalogue endpoints.
type VideoHandler struct {
	Videos VideoStore
	Users  UserStore
	Media  MediaStore

	UploadLimiter  middleware.RateLimiter
	MaxUploadBytes int64
}

type videoListResponse struct {
	Videos     []models.Video `json:"videos"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int64          `json:"totalPages"`
}

// List handles GET /api/v1/videos requests. Only published videos are
// returned.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page := parsePositiveInt(query.Get("page"), 1)
	limit := parsePositiveInt(query.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := repositories.ListVideosParams{
		Query:   strings.TrimSpace(query.Get("query")),
		SortBy:  strings.TrimSpace(query.Get("sortBy")),
		SortAsc: strings.EqualFold(query.Get("sortType"), "asc"),
		Page:    page,
		Limit:   limit,
	}

	if rawOwner := strings.TrimSpace(query.Get("userId")); rawOwner != "" {
		ownerID, ok := parseID(rawOwner)
		if !ok {
			respondError(ctx, w, http.StatusBadRequest, "invalid user id")
			return
		}
		params.OwnerID = ownerID
	}

	videos, total, err := h.Videos.List(ctx, params)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	respondData(ctx, w, http.StatusOK, videoListResponse{
		Videos:     videos,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, "videos fetched successfully")
}

// Get handles GET /api/v1/videos/{videoId} requests. Each fetch counts as a
// view, and authenticated fetches land in the viewer's watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	viewer, _ := CurrentUser(ctx)

	// Unpublished videos are visible to their owner only.
	if !video.IsPublished && !authorizeOwner(viewer.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		logger.Warn("failed to increment views", "error", err, "videoId", videoID)
	} else {
		video.Views++
	}

	if viewer.ID != "" {
		if err := h.Users.RecordWatch(ctx, viewer.ID, videoID); err != nil {
			logger.Warn("failed to record watch history", "error", err, "videoId", videoID)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Create handles POST /api/v1/videos requests.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	owner, _ := CurrentUser(ctx)

	if !allowRequest(h.UploadLimiter, r, "upload") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many uploads")
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	var duration float64
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "invalid duration")
			return
		}
		duration = parsed
	}

	videoFile, err := formFile(r, "videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	thumbnailFile, thumbErr := formFile(r, "thumbnail")
	if thumbErr != nil {
		respondError(ctx, w, http.StatusBadRequest, thumbErr.Error())
		return
	}
	if videoFile == nil || thumbnailFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "video file and thumbnail are required")
		return
	}

	videoURL, err := uploadAsset(ctx, h.Media, "videos", videoFile)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}
	thumbnailURL, err := uploadAsset(ctx, h.Media, "thumbnails", thumbnailFile)
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Title:        title,
		Description:  description,
		Duration:     duration,
		IsPublished:  true,
		OwnerID:      owner.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("failed to persist video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	summary := owner.Summary()
	video.Owner = &summary
	respondData(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Update handles PATCH /api/v1/videos/{videoId} requests. Title, description,
// and thumbnail may each be updated independently.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	actor, _ := CurrentUser(ctx)

	video, ok := h.loadOwnedVideo(w, r, actor.ID)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	thumbnailFile, err := formFile(r, "thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if title == "" && description == "" && thumbnailFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}

	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}

	var replacedThumbnail string
	if thumbnailFile != nil {
		url, err := uploadAsset(ctx, h.Media, "thumbnails", thumbnailFile)
		if err != nil {
			logger.Error("thumbnail upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
			return
		}
		replacedThumbnail = video.ThumbnailURL
		video.ThumbnailURL = url
	}

	if err := h.Videos.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to update video", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update video")
		return
	}

	if replacedThumbnail != "" {
		if err := h.Media.Delete(ctx, replacedThumbnail); err != nil {
			logger.Warn("failed to delete replaced thumbnail", "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId} requests. Comments and likes
// referencing the video are left in place.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	actor, _ := CurrentUser(ctx)

	video, ok := h.loadOwnedVideo(w, r, actor.ID)
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to delete video", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	for _, url := range []string{video.VideoURL, video.ThumbnailURL} {
		if url == "" {
			continue
		}
		if err := h.Media.Delete(ctx, url); err != nil {
			logger.Warn("failed to delete media object", "error", err, "url", url)
		}
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/publish/{videoId} requests.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := CurrentUser(ctx)

	video, ok := h.loadOwnedVideo(w, r, actor.ID)
	if !ok {
		return
	}

	updated, err := h.Videos.TogglePublish(ctx, video.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("failed to toggle publish state", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle publish state")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "publish state toggled successfully")
}

// loadOwnedVideo resolves the path video and enforces ownership. It writes
// the error response itself when the second return value is false.
func (h VideoHandler) loadOwnedVideo(w http.ResponseWriter, r *http.Request, actorID string) (models.Video, bool) {
	ctx := r.Context()

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return models.Video{}, false
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return models.Video{}, false
		}
		logging.FromContext(ctx).Error("failed to load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return models.Video{}, false
	}

	if !authorizeOwner(actorID, video.OwnerID) {
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
		return models.Video{}, false
	}

	return video, true
}

func (h VideoHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
