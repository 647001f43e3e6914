package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// UserHandler implements registration, the session lifecycle, and profile
// endpoints.
type UserHandler struct {
	Users  UserStore
	Media  MediaStore
	Tokens TokenIssuer

	LoginLimiter   middleware.RateLimiter
	MaxJSONBody    int64
	MaxUploadBytes int64
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// issueSession creates a token pair for the user and persists the refresh
// token on the user record, rotating out any previous one.
func (h UserHandler) issueSession(ctx context.Context, user models.User) (models.SessionTokens, error) {
	tokens, err := h.Tokens.Issue(user)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := h.Users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// Register handles POST /api/v1/users/register requests.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.LoginLimiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// Check both identifiers before touching object storage so duplicate
	// registrations do not strand uploaded files.
	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByLogin(ctx, identifier); err == nil {
			respondError(ctx, w, http.StatusConflict, "user already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("failed to check existing user", "error", err, "identifier", identifier)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create user")
			return
		}
	}

	avatarFile, err := formFile(r, "avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if avatarFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	coverFile, err := formFile(r, "coverImage")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	avatarURL, err := uploadAsset(ctx, h.Media, "avatars", avatarFile)
	if err != nil {
		logger.Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var coverURL string
	if coverFile != nil {
		coverURL, err = uploadAsset(ctx, h.Media, "covers", coverFile)
		if err != nil {
			logger.Error("cover image upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      string(hashed),
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// A concurrent registration won the race; drop our uploads.
			h.discardUploads(ctx, avatarURL, coverURL)
			respondError(ctx, w, http.StatusConflict, "user already exists")
			return
		}
		logger.Error("failed to create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user.Password = ""
	respondData(ctx, w, http.StatusCreated, user, "user created successfully")
}

// Login handles POST /api/v1/users/login requests.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.LoginLimiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Username))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
			return
		}
		logger.Error("login user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid user credentials")
		return
	}

	tokens, err := h.issueSession(ctx, user)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	user.Password = ""
	user.RefreshToken = ""

	setAuthCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout requests. Logging out twice
// produces the same observable state.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := CurrentUser(ctx)

	if err := h.Users.SetRefreshToken(ctx, user.ID, ""); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Error("failed to clear refresh token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to log out")
		return
	}

	clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "user logged out successfully")
}

// Refresh handles POST /api/v1/users/refresh-token requests: it rotates both
// tokens when the presented refresh token matches the persisted one.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	presented := refreshTokenFromRequest(r)
	if presented == "" {
		var req refreshRequest
		if err := h.decodeJSON(w, r, &req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	if presented == "" {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized access")
		return
	}

	userID, err := h.Tokens.ParseRefresh(presented)
	if err != nil {
		logger.Warn("refresh token rejected", "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized access")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "invalid refresh token")
			return
		}
		logger.Error("refresh user lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		return
	}

	// Rotation check: only the most recently issued refresh token is valid.
	if user.RefreshToken != presented {
		logger.Warn("stale refresh token presented", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is expired or used")
		return
	}

	tokens, err := h.issueSession(ctx, user)
	if err != nil {
		logger.Error("failed to rotate session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	setAuthCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, map[string]string{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}, "access token refreshed successfully")
}

// ChangePassword handles POST /api/v1/users/change-password requests.
// Outstanding tokens remain valid; only logout or refresh rotation revokes.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	current, _ := CurrentUser(ctx)

	var req changePasswordRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// The gate strips secrets from the context user; reload the hash.
	stored, err := h.Users.FindByID(ctx, current.ID)
	if err != nil {
		logger.Error("password change lookup failed", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid old password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, current.ID, string(hashed)); err != nil {
		logger.Error("failed to update password", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// Current handles GET /api/v1/users/current-user requests.
func (h UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := CurrentUser(ctx)
	respondData(ctx, w, http.StatusOK, user, "user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account requests.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	current, _ := CurrentUser(ctx)

	var req updateAccountRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, current.ID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		logger.Error("failed to update account", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update account")
		return
	}

	respondData(ctx, w, http.StatusOK, user, "user details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar requests.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars",
		func(u models.User) string { return u.AvatarURL },
		h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image requests.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers",
		func(u models.User) string { return u.CoverImageURL },
		h.Users.UpdateCoverImage)
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field, prefix string,
	oldURL func(models.User) string,
	update func(ctx context.Context, id, url string) (models.User, error)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	current, _ := CurrentUser(ctx)

	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, err := formFile(r, field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if file == nil {
		respondError(ctx, w, http.StatusBadRequest, field+" file is missing")
		return
	}

	url, err := uploadAsset(ctx, h.Media, prefix, file)
	if err != nil {
		logger.Error("image upload failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store "+field)
		return
	}

	previous := oldURL(current)

	user, err := update(ctx, current.ID, url)
	if err != nil {
		logger.Error("failed to update image", "field", field, "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update "+field)
		return
	}

	if previous != "" {
		if err := h.Media.Delete(ctx, previous); err != nil {
			logger.Warn("failed to delete replaced image", "field", field, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, user, field+" updated successfully")
}

// ChannelProfile handles GET /api/v1/users/c/{username} requests.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := CurrentUser(ctx)

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is missing")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewer.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("failed to load channel profile", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch channel profile")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history requests.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := CurrentUser(ctx)

	videos, err := h.Users.WatchHistory(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to load watch history", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch watch history")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "watch history fetched successfully")
}

// discardUploads removes objects stored for a registration that did not
// complete.
func (h UserHandler) discardUploads(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := h.Media.Delete(ctx, url); err != nil {
			logging.FromContext(ctx).Warn("failed to delete abandoned upload", "error", err, "url", url)
		}
	}
}

func (h UserHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := h.MaxJSONBody
	if limit <= 0 {
		limit = 16 << 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h UserHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}
