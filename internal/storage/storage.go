// Package storage keeps uploaded article images in a local bucket directory
// that the HTTP server exposes under a public URL prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/rs/zerolog"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ErrInvalidName is returned for object names that are not plain file names
var ErrInvalidName = errors.New("invalid image name")

// Local stores objects as files under a root directory
type Local struct {
	dir       string
	publicURL string
	now       func() time.Time
	log       zerolog.Logger
}

// NewLocal creates the bucket directory if needed
func NewLocal(dir, publicURL string, log zerolog.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		log:       log.With().Str("component", "storage").Logger(),
	}, nil
}

// Dir returns the bucket directory
func (s *Local) Dir() string {
	return s.dir
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with '_'
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// Upload writes r under a timestamp-prefixed, sanitized name and returns its public URL
func (s *Local) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := fmt.Sprintf("%d-%s", s.now().UnixMilli(), SanitizeFilename(name))
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", stored, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", stored, err)
	}

	s.log.Debug().Str("name", stored).Str("content_type", contentType).Msg("Image stored")
	return s.URL(stored), nil
}

// URL returns the public URL of a stored object
func (s *Local) URL(name string) string {
	return s.publicURL + "/" + name
}

// List returns stored objects, newest first
func (s *Local) List(ctx context.Context) ([]models.StoredImage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]models.StoredImage, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, models.StoredImage{
			Name:      e.Name(),
			URL:       s.URL(e.Name()),
			Size:      info.Size(),
			MimeType:  mime.TypeByExtension(strings.ToLower(filepath.Ext(e.Name()))),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].CreatedAt.After(images[j].CreatedAt)
	})
	return images, nil
}

// Delete removes the named objects. Missing objects are ignored.
func (s *Local) Delete(ctx context.Context, names []string) (int, error) {
	deleted := 0
	for _, name := range names {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return deleted, fmt.Errorf("%w %q", ErrInvalidName, name)
		}
		err := os.Remove(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", name, err)
		}
		deleted++
	}
	return deleted, nil
}
