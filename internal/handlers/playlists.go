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

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore

	MaxJSONBody int64
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists requests.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	owner, _ := CurrentUser(ctx)

	req, ok := h.decodePlaylist(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     owner.ID,
		Videos:      []models.Video{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		logger.Error("failed to create playlist", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create playlist")
		return
	}

	respondData(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// Get handles GET /api/v1/playlists/{playlistId} requests.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID, ok := parseID(r.PathValue("playlistId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logging.FromContext(ctx).Error("failed to load playlist", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, playlist, "playlist fetched successfully")
}

// ListForUser handles GET /api/v1/playlists/user/{userId} requests.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := parseID(r.PathValue("userId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid user id")
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list playlists", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondData(ctx, w, http.StatusOK, playlists, "playlists fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId} requests.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := CurrentUser(ctx)

	playlist, ok := h.loadOwnedPlaylist(w, r, actor.ID)
	if !ok {
		return
	}

	req, ok := h.decodePlaylist(w, r)
	if !ok {
		return
	}

	updated, err := h.Playlists.Update(ctx, playlist.ID, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logging.FromContext(ctx).Error("failed to update playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId} requests. Videos
// themselves are untouched.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := CurrentUser(ctx)

	playlist, ok := h.loadOwnedPlaylist(w, r, actor.ID)
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logging.FromContext(ctx).Error("failed to delete playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}
// requests. Adding a video twice is a bad request.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	actor, _ := CurrentUser(ctx)

	playlist, videoID, ok := h.loadPlaylistAndVideo(w, r, actor.ID)
	if !ok {
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusBadRequest, "video is already in the playlist")
			return
		}
		logger.Error("failed to add video to playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add video to playlist")
		return
	}

	h.respondWithPlaylist(w, r, playlist.ID, "video added to playlist successfully")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}
// requests.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := CurrentUser(ctx)

	playlist, videoID, ok := h.loadPlaylistAndVideo(w, r, actor.ID)
	if !ok {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusBadRequest, "video is not in the playlist")
			return
		}
		logging.FromContext(ctx).Error("failed to remove video from playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to remove video from playlist")
		return
	}

	h.respondWithPlaylist(w, r, playlist.ID, "video removed from playlist successfully")
}

func (h PlaylistHandler) loadOwnedPlaylist(w http.ResponseWriter, r *http.Request, actorID string) (models.Playlist, bool) {
	ctx := r.Context()

	playlistID, ok := parseID(r.PathValue("playlistId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid playlist id")
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return models.Playlist{}, false
		}
		logging.FromContext(ctx).Error("failed to load playlist", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch playlist")
		return models.Playlist{}, false
	}

	if !authorizeOwner(actorID, playlist.OwnerID) {
		respondError(ctx, w, http.StatusForbidden, "you do not own this playlist")
		return models.Playlist{}, false
	}

	return playlist, true
}

func (h PlaylistHandler) loadPlaylistAndVideo(w http.ResponseWriter, r *http.Request, actorID string) (models.Playlist, string, bool) {
	ctx := r.Context()

	videoID, ok := parseID(r.PathValue("videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return models.Playlist{}, "", false
	}

	playlist, ok := h.loadOwnedPlaylist(w, r, actorID)
	if !ok {
		return models.Playlist{}, "", false
	}

	return playlist, videoID, true
}

func (h PlaylistHandler) respondWithPlaylist(w http.ResponseWriter, r *http.Request, playlistID, message string) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to reload playlist", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, playlist, message)
}

func (h PlaylistHandler) decodePlaylist(w http.ResponseWriter, r *http.Request) (playlistRequest, bool) {
	ctx := r.Context()

	limit := h.MaxJSONBody
	if limit <= 0 {
		limit = 16 << 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return playlistRequest{}, false
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlist name is required")
		return playlistRequest{}, false
	}

	return req, true
}
