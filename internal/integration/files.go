// Package integration holds the outbound helpers: file uploads and the LLM.
package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const FilesPrefix = "/files/"

var (
	ErrTooLarge  = errors.New("file too large")
	ErrEmptyFile = errors.New("file is empty")
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type FileRef struct {
	FileURL string `json:"file_url"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
}

// Uploader stores files on local disk and serves them under FilesPrefix.
type Uploader struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

func NewUploader(dir string, maxBytes int64, logger *zap.Logger) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (FileRef, error) {
	if err := ctx.Err(); err != nil {
		return FileRef{}, err
	}
	stored := uuid.NewString() + "-" + cleanName(name)
	path := filepath.Join(u.dir, stored)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return FileRef{}, fmt.Errorf("create %s: %w", stored, err)
	}

	src := r
	if u.maxBytes > 0 {
		src = io.LimitReader(r, u.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		_ = os.Remove(path)
		return FileRef{}, fmt.Errorf("write %s: %w", stored, err)
	case u.maxBytes > 0 && n > u.maxBytes:
		_ = os.Remove(path)
		return FileRef{}, ErrTooLarge
	case n == 0:
		_ = os.Remove(path)
		return FileRef{}, ErrEmptyFile
	}

	u.logger.Info("file_uploaded", zap.String("name", stored), zap.Int64("bytes", n))
	return FileRef{FileURL: FilesPrefix + stored, Name: name, Size: n}, nil
}

// Files serves stored uploads; mount it at FilesPrefix.
func (u *Uploader) Files() http.Handler {
	return http.StripPrefix(FilesPrefix, http.FileServer(http.Dir(u.dir)))
}

func cleanName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeName.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "upload"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}
