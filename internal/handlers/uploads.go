package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/clipstream/backend/internal/logging"
)

// maxUploadMemory bounds how much of a multipart body stays in memory before
// spilling to disk.
const maxUploadMemory = 32 << 20

// errMissingFile reports that a required multipart file part was absent.
var errMissingFile = errors.New("file part missing")

// uploadFormFile spools the named multipart part to a temp file, pushes it to
// the media store, and removes the temp file whether or not the upload
// succeeded. Returns the durable URL.
func uploadFormFile(ctx context.Context, media MediaStore, r *http.Request, field string) (string, error) {
	localPath, cleanup, err := spoolFormFile(r, field)
	if err != nil {
		return "", err
	}
	defer cleanup()

	url, err := media.Upload(ctx, localPath)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", field, err)
	}
	return url, nil
}

// spoolFormFile copies the named multipart part to a temp file and returns
// its path together with a cleanup func that always removes it.
func spoolFormFile(r *http.Request, field string) (string, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, fmt.Errorf("%s: %w", field, errMissingFile)
		}
		return "", nil, fmt.Errorf("read %s part: %w", field, err)
	}
	defer file.Close()

	return spoolToTemp(r.Context(), file, header)
}

func spoolToTemp(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "clipstream-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove temp upload", "path", tmp.Name(), "error", err)
		}
	}

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool %s: %w", header.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), cleanup, nil
}
