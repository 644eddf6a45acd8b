package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "repairdesk/internal/errors"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// LocalStore keeps uploaded images on the local filesystem under random
// names. The returned reference is the public URL path of the file.
type LocalStore struct {
	dir          string
	publicPrefix string
	maxBytes     int64
}

func NewLocalStore(dir, publicPrefix string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalStore{
		dir:          dir,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
		maxBytes:     maxBytes,
	}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) MaxBytes() int64 {
	return s.maxBytes
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", apperrors.NewValidationError("unsupported file type", apperrors.ValidationDetail{
			Field:   "file",
			Message: "allowed types are jpg, jpeg, png, gif, webp",
		})
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := uuid.New().String() + ext
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	if n > s.maxBytes {
		os.Remove(path)
		return "", apperrors.NewValidationError("file too large", apperrors.ValidationDetail{
			Field:   "file",
			Message: fmt.Sprintf("file must not exceed %d bytes", s.maxBytes),
		})
	}

	return s.publicPrefix + "/" + filename, nil
}
