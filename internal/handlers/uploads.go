package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
)

// formFile returns the single uploaded file for a multipart field, enforcing
// the 1-file cap per field. A missing field returns (nil, nil).
func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		return files[0], nil
	default:
		return nil, fmt.Errorf("field %q accepts a single file", field)
	}
}

// uploadAsset streams a multipart file to the media store under a fresh key
// and returns the canonical URL. The content never touches local disk, so
// there is nothing to clean up when the upload fails.
func uploadAsset(ctx context.Context, media MediaStore, prefix string, header *multipart.FileHeader) (string, error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), filepath.Ext(header.Filename))
	url, err := media.Save(ctx, key, file)
	if err != nil {
		return "", fmt.Errorf("store %s asset: %w", prefix, err)
	}

	return url, nil
}

// parseID validates that a path identifier is a well-formed reference.
func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
