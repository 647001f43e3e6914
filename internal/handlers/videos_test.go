package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/models"
)

const (
	ownerID  = "22222222-2222-2222-2222-222222222222"
	otherID  = "33333333-3333-3333-3333-333333333333"
	videoID1 = "44444444-4444-4444-4444-444444444444"
)

func seedVideo(store *fakeVideoStore, id, owner, title string, published bool, createdAt time.Time) models.Video {
	video := models.Video{
		ID:           id,
		OwnerID:      owner,
		Title:        title,
		Description:  "about " + title,
		VideoURL:     "https://media.test/videos/" + id + ".mp4",
		ThumbnailURL: "https://media.test/thumbnails/" + id + ".png",
		IsPublished:  published,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	store.add(video)
	return video
}

func pathRequest(method, path, pattern string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)

	// Run the request through a mux so PathValue is populated the same way
	// it is in production.
	mux := http.NewServeMux()
	var matched *http.Request
	mux.HandleFunc(pattern, func(_ http.ResponseWriter, r *http.Request) {
		matched = r
	})
	mux.ServeHTTP(httptest.NewRecorder(), req)
	if matched == nil {
		panic("test request did not match pattern " + pattern)
	}
	return matched
}

func TestVideoHandlerCreatePublishes(t *testing.T) {
	videos := newFakeVideoStore()
	media := newFakeMediaStore()
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: media}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("title", "First upload")
	_ = form.WriteField("description", "hello world")
	_ = form.WriteField("duration", "42.5")
	videoFile, _ := form.CreateFormFile("videoFile", "clip.mp4")
	_, _ = videoFile.Write([]byte("fake-mp4"))
	thumb, _ := form.CreateFormFile("thumbnail", "thumb.png")
	_, _ = thumb.Write([]byte("fake-png"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = withUser(req, models.User{ID: ownerID, Username: "owner"})
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	created := decodeEnvelope[models.Video](t, rec)
	if !created.IsPublished {
		t.Fatal("expected a freshly uploaded video to be published")
	}
	if created.Duration != 42.5 {
		t.Fatalf("expected duration 42.5, got %v", created.Duration)
	}
	if created.VideoURL == "" || created.ThumbnailURL == "" {
		t.Fatalf("expected both assets to be stored, got %+v", created)
	}
	if created.Owner == nil || created.Owner.Username != "owner" {
		t.Fatalf("expected owner summary on the response, got %+v", created.Owner)
	}
}

func TestVideoHandlerCreateRequiresFiles(t *testing.T) {
	handler := VideoHandler{Videos: newFakeVideoStore(), Users: newFakeUserStore(), Media: newFakeMediaStore()}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("title", "No files")
	_ = form.WriteField("description", "missing uploads")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = withUser(req, models.User{ID: ownerID})
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestVideoHandlerListFiltersAndPaginates(t *testing.T) {
	videos := newFakeVideoStore()
	base := time.Now().UTC()
	for i, title := range []string{"cat compilation", "dog tricks", "cat nap", "gopher tunnel"} {
		seedVideo(videos, "55555555-5555-5555-5555-55555555555"+string(rune('0'+i)), ownerID, title, true, base.Add(time.Duration(i)*time.Minute))
	}
	seedVideo(videos, videoID1, ownerID, "cat draft", false, base)

	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: newFakeMediaStore()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?query=cat&page=1&limit=1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	listing := decodeEnvelope[videoListResponse](t, rec)
	if listing.Total != 2 {
		t.Fatalf("expected 2 published cat videos, got %d", listing.Total)
	}
	if listing.TotalPages != 2 {
		t.Fatalf("expected 2 pages at limit 1, got %d", listing.TotalPages)
	}
	if len(listing.Videos) != 1 {
		t.Fatalf("expected 1 video on the page, got %d", len(listing.Videos))
	}
}

func TestVideoHandlerGetBumpsViewsAndRecordsWatch(t *testing.T) {
	videos := newFakeVideoStore()
	users := newFakeUserStore()
	video := seedVideo(videos, videoID1, ownerID, "watched", true, time.Now().UTC())

	handler := VideoHandler{Videos: videos, Users: users, Media: newFakeMediaStore()}

	req := pathRequest(http.MethodGet, "/api/v1/videos/"+video.ID, "GET /api/v1/videos/{videoId}", nil)
	req = withUser(req, models.User{ID: otherID})
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	fetched := decodeEnvelope[models.Video](t, rec)
	if fetched.Views != 1 {
		t.Fatalf("expected view count 1, got %d", fetched.Views)
	}
	if got := users.watches[otherID]; len(got) != 1 || got[0] != video.ID {
		t.Fatalf("expected a watch history entry, got %v", got)
	}
}

func TestVideoHandlerGetMissing(t *testing.T) {
	handler := VideoHandler{Videos: newFakeVideoStore(), Users: newFakeUserStore(), Media: newFakeMediaStore()}

	req := pathRequest(http.MethodGet, "/api/v1/videos/"+videoID1, "GET /api/v1/videos/{videoId}", nil)
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerGetHidesUnpublishedFromOthers(t *testing.T) {
	videos := newFakeVideoStore()
	video := seedVideo(videos, videoID1, ownerID, "draft", false, time.Now().UTC())
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: newFakeMediaStore()}

	req := pathRequest(http.MethodGet, "/api/v1/videos/"+video.ID, "GET /api/v1/videos/{videoId}", nil)
	req = withUser(req, models.User{ID: otherID})
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unpublished video to be hidden, got %d", rec.Code)
	}
}

func TestVideoHandlerDeleteNonOwner(t *testing.T) {
	videos := newFakeVideoStore()
	video := seedVideo(videos, videoID1, ownerID, "mine", true, time.Now().UTC())
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: newFakeMediaStore()}

	req := pathRequest(http.MethodDelete, "/api/v1/videos/"+video.ID, "DELETE /api/v1/videos/{videoId}", nil)
	req = withUser(req, models.User{ID: otherID})
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if _, err := videos.FindByID(context.Background(), video.ID); err != nil {
		t.Fatal("expected video to survive a forbidden delete")
	}
}

func TestVideoHandlerDeleteRemovesMedia(t *testing.T) {
	videos := newFakeVideoStore()
	media := newFakeMediaStore()
	video := seedVideo(videos, videoID1, ownerID, "mine", true, time.Now().UTC())
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: media}

	req := pathRequest(http.MethodDelete, "/api/v1/videos/"+video.ID, "DELETE /api/v1/videos/{videoId}", nil)
	req = withUser(req, models.User{ID: ownerID})
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if _, err := videos.FindByID(context.Background(), video.ID); err == nil {
		t.Fatal("expected video row to be deleted")
	}
	if len(media.deleted) != 2 {
		t.Fatalf("expected both stored objects to be deleted, got %v", media.deleted)
	}
}

func TestVideoHandlerTogglePublish(t *testing.T) {
	videos := newFakeVideoStore()
	video := seedVideo(videos, videoID1, ownerID, "mine", true, time.Now().UTC())
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Media: newFakeMediaStore()}

	req := pathRequest(http.MethodPatch, "/api/v1/videos/publish/"+video.ID, "PATCH /api/v1/videos/publish/{videoId}", nil)
	req = withUser(req, models.User{ID: ownerID})
	rec := httptest.NewRecorder()

	handler.TogglePublish(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	toggled := decodeEnvelope[models.Video](t, rec)
	if toggled.IsPublished {
		t.Fatal("expected publish state to flip to false")
	}
}
