package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(filepath.Join(t.TempDir(), "article-images"), "/uploads/", zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_photo__1_.png", SanitizeFilename("my photo (1).png"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "caf_.jpg", SanitizeFilename("café.jpg"))
	assert.Equal(t, "shot.png", SanitizeFilename(`C:\Users\me\shot.png`))
}

func TestUploadAndList(t *testing.T) {
	s := newTestStorage(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := s.Upload(context.Background(), "hero image.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000000-hero_image.png", url)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "1700000000000-hero_image.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	images, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "1700000000000-hero_image.png", images[0].Name)
	assert.Equal(t, int64(9), images[0].Size)
	assert.Equal(t, "image/png", images[0].MimeType)
}

func TestUpload_DuplicateNameFails(t *testing.T) {
	s := newTestStorage(t)
	s.now = func() time.Time { return time.UnixMilli(1) }

	_, err := s.Upload(context.Background(), "a.png", "image/png", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), "a.png", "image/png", strings.NewReader("2"))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Upload(context.Background(), "a.png", "image/png", strings.NewReader("1"))
	require.NoError(t, err)

	images, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, images, 1)

	n, err := s.Delete(context.Background(), []string{images[0].Name, "missing.png"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Delete(context.Background(), []string{"../escape.png"})
	assert.Error(t, err)
}
