package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
}

func newTestUser(t *testing.T, store *fakeUserStore, username, password string) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.User{
		ID:        "11111111-1111-1111-1111-111111111111",
		Username:  username,
		Email:     username + "@example.com",
		FullName:  "Test User",
		Password:  string(hashed),
		AvatarURL: "https://media.test/avatars/a.png",
	}
	store.add(user)
	return user
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data       T      `json:"data"`
		StatusCode int    `json:"statusCode"`
		Success    bool   `json:"success"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestUserHandlerRegister(t *testing.T) {
	store := newFakeUserStore()
	media := newFakeMediaStore()
	handler := UserHandler{Users: store, Media: media, Tokens: newTestTokenManager()}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("username", "NewUser")
	_ = form.WriteField("email", "new@example.com")
	_ = form.WriteField("fullName", "New User")
	_ = form.WriteField("password", "supersafe123")
	avatar, err := form.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := avatar.Write([]byte("fake-png")); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	created := decodeEnvelope[models.User](t, rec)
	if created.Username != "newuser" {
		t.Fatalf("expected lowercased username, got %q", created.Username)
	}
	if created.AvatarURL == "" {
		t.Fatal("expected avatar to be uploaded and recorded")
	}

	stored, err := store.FindByLogin(context.Background(), "newuser")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe123")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestUserHandlerRegisterDuplicate(t *testing.T) {
	store := newFakeUserStore()
	newTestUser(t, store, "taken", "password123")
	media := newFakeMediaStore()
	handler := UserHandler{Users: store, Media: media, Tokens: newTestTokenManager()}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("username", "taken")
	_ = form.WriteField("email", "other@example.com")
	_ = form.WriteField("fullName", "Other User")
	_ = form.WriteField("password", "password123")
	avatar, _ := form.CreateFormFile("avatar", "avatar.png")
	_, _ = avatar.Write([]byte("fake-png"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	if len(media.saved) != 0 {
		t.Fatalf("expected no objects stored for a duplicate registration, got %v", media.saved)
	}
}

func TestUserHandlerLogin(t *testing.T) {
	store := newFakeUserStore()
	newTestUser(t, store, "viewer", "password123")
	handler := UserHandler{Users: store, Tokens: newTestTokenManager()}

	body, _ := json.Marshal(loginRequest{Username: "viewer", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	session := decodeEnvelope[sessionResponse](t, rec)
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", session)
	}
	if session.User.Username != "viewer" {
		t.Fatalf("expected user in response, got %+v", session.User)
	}

	var names []string
	for _, cookie := range rec.Result().Cookies() {
		names = append(names, cookie.Name)
		if !cookie.HttpOnly || !cookie.Secure {
			t.Fatalf("expected %s cookie to be http-only and secure", cookie.Name)
		}
	}
	if !strings.Contains(strings.Join(names, ","), accessTokenCookie) ||
		!strings.Contains(strings.Join(names, ","), refreshTokenCookie) {
		t.Fatalf("expected both auth cookies, got %v", names)
	}

	stored, _ := store.FindByLogin(context.Background(), "viewer")
	if stored.RefreshToken != session.RefreshToken {
		t.Fatal("expected refresh token to be persisted on the user")
	}
}

func TestUserHandlerLoginUnknownUser(t *testing.T) {
	handler := UserHandler{Users: newFakeUserStore(), Tokens: newTestTokenManager()}

	body, _ := json.Marshal(loginRequest{Username: "ghost", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestUserHandlerLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	newTestUser(t, store, "viewer", "password123")
	handler := UserHandler{Users: store, Tokens: newTestTokenManager()}

	body, _ := json.Marshal(loginRequest{Username: "viewer", Password: "wrong-password"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerRefreshRotatesTokens(t *testing.T) {
	store := newFakeUserStore()
	user := newTestUser(t, store, "viewer", "password123")
	manager := newTestTokenManager()
	handler := UserHandler{Users: store, Tokens: manager}

	tokens, err := manager.Issue(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if err := store.SetRefreshToken(context.Background(), user.ID, tokens.RefreshToken); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}

	body, _ := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	refreshed := decodeEnvelope[map[string]string](t, rec)
	if refreshed["refreshToken"] == "" {
		t.Fatal("expected a new refresh token")
	}

	// The old token was rotated out, so replaying it must fail.
	replay, _ := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(replay))
	rec = httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed token to be rejected with %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerLogoutIsIdempotent(t *testing.T) {
	store := newFakeUserStore()
	user := newTestUser(t, store, "viewer", "password123")
	handler := UserHandler{Users: store, Tokens: newTestTokenManager()}

	if err := store.SetRefreshToken(context.Background(), user.ID, "some-refresh-token"); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user)
		rec := httptest.NewRecorder()

		handler.Logout(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("logout attempt %d: expected status %d got %d", i+1, http.StatusOK, rec.Code)
		}
	}

	stored, _ := store.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != "" {
		t.Fatal("expected stored refresh token to be cleared")
	}
}

func TestUserHandlerChangePasswordWrongOld(t *testing.T) {
	store := newFakeUserStore()
	user := newTestUser(t, store, "viewer", "password123")
	handler := UserHandler{Users: store, Tokens: newTestTokenManager()}

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "wrong-password", NewPassword: "newpassword1"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body)), user)
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	store := newFakeUserStore()
	user := newTestUser(t, store, "viewer", "password123")
	handler := UserHandler{Users: store, Tokens: newTestTokenManager()}

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body)), user)
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, _ := store.FindByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpassword1")) != nil {
		t.Fatal("expected the new password to be stored")
	}
}
