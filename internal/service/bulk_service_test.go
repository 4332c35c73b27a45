package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/progress"
	"github.com/blog-cms-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore keeps every snapshot written through it
type recordingStore struct {
	progress.Store
	mu    sync.Mutex
	snaps []models.ProgressSnapshot
}

func (r *recordingStore) Set(ctx context.Context, snap models.ProgressSnapshot) error {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
	return r.Store.Set(ctx, snap)
}

func (r *recordingStore) history(jobID string) []models.ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ProgressSnapshot
	for _, s := range r.snaps {
		if s.JobID == jobID {
			out = append(out, s)
		}
	}
	return out
}

func newBulkHarness(t *testing.T, mutate ...func(*config.Config)) (*testHarness, *recordingStore) {
	t.Helper()
	h := newTestHarness(t, mutate...)
	rec := &recordingStore{Store: h.progress}
	h.services = service.NewServices(h.repos.Repositories(), service.Dependencies{
		Generator: h.generator,
		Images:    h.images,
		Progress:  rec,
	}, h.cfg, zerolog.Nop())
	return h, rec
}

func bulkRequest(csv string, images ...string) *models.BulkRequest {
	req := &models.BulkRequest{TopicsFile: models.UploadedFile{Name: "topics.csv", Data: []byte(csv)}}
	for _, name := range images {
		req.Images = append(req.Images, models.UploadedFile{Name: name, ContentType: "image/png", Data: []byte("png")})
	}
	return req
}

func waitForJobs(t *testing.T, h *testHarness) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.services.Bulk.Wait(ctx))
}

func assertMonotonic(t *testing.T, snaps []models.ProgressSnapshot) {
	t.Helper()
	for i := 1; i < len(snaps); i++ {
		assert.GreaterOrEqual(t, snaps[i].Progress, snaps[i-1].Progress, "progress went backwards at %d", i)
		assert.LessOrEqual(t, snaps[i].Progress, snaps[i].Total)
	}
}

func TestBulkService_SchedulesOneArticlePerTopic(t *testing.T) {
	h, rec := newBulkHarness(t)

	before := time.Now()
	resp, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("topic\nGo generics\nGo channels\nGo modules\n", "a.png", "b.png"))
	after := time.Now()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.JobID, "job-"))
	assert.Equal(t, "/admin/bulk-generator/"+resp.JobID+"/progress", resp.ProgressURL)

	waitForJobs(t, h)

	articles := h.repos.Article.All()
	require.Len(t, articles, 3)
	assert.Equal(t, []string{"Go generics", "Go channels", "Go modules"}, h.generator.Calls())

	first := *articles[0].ScheduledAt
	assert.False(t, first.Before(before), "first article scheduled before the job started")
	assert.False(t, first.After(after), "first article scheduled after StartJob returned")

	for i, a := range articles {
		assert.Equal(t, models.StatusScheduled, a.Status)
		require.NotNil(t, a.ScheduledAt)
		assert.Contains(t, []string{"/uploads/a.png", "/uploads/b.png"}, a.ImageURL)
		if i > 0 {
			assert.Equal(t, time.Hour, a.ScheduledAt.Sub(*articles[i-1].ScheduledAt))
		}
	}

	snaps := rec.history(resp.JobID)
	require.NotEmpty(t, snaps)
	assertMonotonic(t, snaps)
	assert.Equal(t, models.StageParsing, snaps[0].Stage)

	last := snaps[len(snaps)-1]
	assert.Equal(t, models.StageComplete, last.Stage)
	assert.Equal(t, 6, last.Total)
	assert.Equal(t, 6, last.Progress)
	assert.Equal(t, "Successfully scheduled 3 articles using 2 images", last.Message)

	snap, err := h.services.Bulk.Progress(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StageComplete, snap.Stage)
}

func TestBulkService_SingleImageSharedAcrossTopics(t *testing.T) {
	h, _ := newBulkHarness(t)

	before := time.Now()
	_, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("A\nB\n", "img1.png"))
	after := time.Now()
	require.NoError(t, err)
	waitForJobs(t, h)

	articles := h.repos.Article.All()
	require.Len(t, articles, 2)
	assert.Equal(t, []string{"A", "B"}, h.generator.Calls())

	for _, a := range articles {
		assert.Equal(t, "/uploads/img1.png", a.ImageURL)
		assert.Equal(t, models.StatusScheduled, a.Status)
	}

	t0 := *articles[0].ScheduledAt
	assert.False(t, t0.Before(before))
	assert.False(t, t0.After(after))
	assert.True(t, articles[1].ScheduledAt.Equal(t0.Add(time.Hour)))
}

func TestBulkService_RejectsMissingInput(t *testing.T) {
	h, _ := newBulkHarness(t)
	ctx := context.Background()

	_, err := h.services.Bulk.StartJob(ctx, &models.BulkRequest{Images: []models.UploadedFile{{Name: "a.png"}}})
	assert.ErrorIs(t, err, service.ErrNoTopicsFile)

	_, err = h.services.Bulk.StartJob(ctx, bulkRequest("one\n"))
	assert.ErrorIs(t, err, service.ErrNoImages)

	_, err = h.services.Bulk.StartJob(ctx, bulkRequest("topic\n\n", "a.png"))
	assert.ErrorIs(t, err, service.ErrNoTopics)
	assert.Empty(t, h.images.Objects)
}

func TestBulkService_GenerateWithNoTopicsNeverGenerates(t *testing.T) {
	h, rec := newBulkHarness(t)

	n, err := h.services.Bulk.Generate(context.Background(), "job-empty", nil, []string{"/uploads/a.png"})
	assert.ErrorIs(t, err, service.ErrNoTopics)
	assert.Zero(t, n)

	snaps := rec.history("job-empty")
	require.Len(t, snaps, 1)
	assert.Equal(t, models.StageError, snaps[0].Stage)
	assert.Empty(t, h.generator.Calls())
}

func TestBulkService_GeneratorFailureStopsJob(t *testing.T) {
	h, rec := newBulkHarness(t)
	calls := 0
	h.generator.GenerateFunc = func(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("quota exceeded")
		}
		return &models.GeneratedArticle{Title: topic, Content: "<p>" + topic + "</p>"}, nil
	}

	resp, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("first\nsecond\nthird\n", "a.png"))
	require.NoError(t, err)
	waitForJobs(t, h)

	assert.Len(t, h.repos.Article.All(), 1)

	snaps := rec.history(resp.JobID)
	assertMonotonic(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, models.StageError, last.Stage)
	assert.Contains(t, last.Message, "quota exceeded")
	assert.Contains(t, last.Message, `"second"`)
	assert.Equal(t, snaps[len(snaps)-2].Progress, last.Progress)
}

func TestBulkService_UploadFailure(t *testing.T) {
	h, rec := newBulkHarness(t)
	h.images.UploadError = errors.New("disk full")

	resp, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("one\n", "a.png"))
	require.NoError(t, err)
	waitForJobs(t, h)

	snaps := rec.history(resp.JobID)
	last := snaps[len(snaps)-1]
	assert.Equal(t, models.StageError, last.Stage)
	assert.Contains(t, last.Message, "disk full")
	assert.Empty(t, h.generator.Calls())
	assert.Empty(t, h.repos.Article.All())
}

func TestBulkService_CapsConcurrentJobs(t *testing.T) {
	h, _ := newBulkHarness(t, func(c *config.Config) { c.Bulk.MaxConcurrentJobs = 1 })
	release := make(chan struct{})
	h.generator.GenerateFunc = func(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
		<-release
		return &models.GeneratedArticle{Title: topic, Content: "<p>x</p>"}, nil
	}

	_, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("slow\n", "a.png"))
	require.NoError(t, err)

	_, err = h.services.Bulk.StartJob(context.Background(), bulkRequest("blocked\n", "a.png"))
	assert.ErrorIs(t, err, service.ErrTooManyJobs)

	close(release)
	waitForJobs(t, h)

	_, err = h.services.Bulk.StartJob(context.Background(), bulkRequest("again\n", "a.png"))
	require.NoError(t, err)
	waitForJobs(t, h)
	assert.Len(t, h.repos.Article.All(), 2)
}

func TestBulkService_JobTimeout(t *testing.T) {
	h, rec := newBulkHarness(t, func(c *config.Config) { c.Bulk.JobTimeout = 50 * time.Millisecond })
	h.generator.GenerateFunc = func(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("generation aborted: %w", ctx.Err())
	}

	resp, err := h.services.Bulk.StartJob(context.Background(), bulkRequest("one\ntwo\n", "a.png"))
	require.NoError(t, err)
	waitForJobs(t, h)

	snaps := rec.history(resp.JobID)
	last := snaps[len(snaps)-1]
	assert.Equal(t, models.StageError, last.Stage)
	assert.Contains(t, last.Message, "deadline exceeded")
}

func TestBulkService_ProgressUnknownJob(t *testing.T) {
	h, _ := newBulkHarness(t)
	_, err := h.services.Bulk.Progress(context.Background(), "job-missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
