package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/content"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/progress"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/topics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// bulkService is the concrete implementation of BulkService
type bulkService struct {
	articles  repository.ArticleRepository
	generator ContentGenerator
	images    ImageStore
	progress  progress.Store
	cfg       config.BulkConfig
	log       zerolog.Logger

	// Semaphore caps concurrently running jobs
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	now   func() time.Time
	rng   *lockedRand
	newID func() string
}

func newBulkService(
	articles repository.ArticleRepository,
	generator ContentGenerator,
	images ImageStore,
	store progress.Store,
	cfg config.BulkConfig,
	log zerolog.Logger,
) *bulkService {
	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = time.Hour
	}

	log.Info().Int("max_jobs", cfg.MaxConcurrentJobs).Msg("Initializing bulk generation service")

	return &bulkService{
		articles:  articles,
		generator: generator,
		images:    images,
		progress:  store,
		cfg:       cfg,
		log:       log.With().Str("service", "bulk").Logger(),
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		now:       time.Now,
		rng:       newLockedRand(time.Now().UnixNano()),
		newID:     func() string { return "job-" + uuid.New().String() },
	}
}

// StartJob validates the request, parses the topics and spawns the job in
// the background. It returns as soon as the job is registered.
func (s *bulkService) StartJob(ctx context.Context, req *models.BulkRequest) (*models.BulkJobResponse, error) {
	if req.TopicsFile.Name == "" && len(req.TopicsFile.Data) == 0 {
		return nil, ErrNoTopicsFile
	}
	if len(req.Images) == 0 {
		return nil, ErrNoImages
	}

	list, err := topics.Parse(req.TopicsFile.Name, req.TopicsFile.Data)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoTopics
	}

	if !s.sem.TryAcquire(1) {
		return nil, ErrTooManyJobs
	}

	jobID := s.newID()
	tr := newTracker(s.progress, jobID, s.log)
	tr.report(ctx, models.StageParsing, 0, 1, "Parsing topics file...")

	s.wg.Add(1)
	go s.run(jobID, tr, list, req.Images, s.now())

	s.log.Info().
		Str("job_id", jobID).
		Int("topics", len(list)).
		Int("images", len(req.Images)).
		Msg("Bulk job started")

	return &models.BulkJobResponse{
		JobID:       jobID,
		Message:     fmt.Sprintf("Bulk generation started for %d topics", len(list)),
		ProgressURL: "/admin/bulk-generator/" + jobID + "/progress",
	}, nil
}

// run executes a job detached from the request that started it
func (s *bulkService) run(jobID string, tr *tracker, list []string, images []models.UploadedFile, start time.Time) {
	defer s.wg.Done()
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	// Panic recovery - a failing job must never take the process down
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job_id", jobID).Msg("Bulk job panicked - recovered")
			tr.fail(ctx, fmt.Errorf("internal error: %v", r))
		}
	}()

	total := 1 + len(images) + len(list)
	urls := make([]string, 0, len(images))
	for k, img := range images {
		tr.report(ctx, models.StageUploading, 1+k, total, fmt.Sprintf("Uploading image %d of %d...", k+1, len(images)))
		url, err := s.images.Upload(ctx, img.Name, img.ContentType, bytes.NewReader(img.Data))
		if err != nil {
			s.log.Error().Err(err).Str("job_id", jobID).Str("image", img.Name).Msg("Image upload failed")
			tr.fail(ctx, fmt.Errorf("failed to upload %s: %w", img.Name, err))
			return
		}
		urls = append(urls, url)
	}

	if _, err := s.generate(ctx, tr, list, urls, start); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("Bulk job failed")
	}
}

// Generate creates one scheduled article per topic using already uploaded images
func (s *bulkService) Generate(ctx context.Context, jobID string, list, imageURLs []string) (int, error) {
	tr := newTracker(s.progress, jobID, s.log)
	return s.generate(ctx, tr, list, imageURLs, s.now())
}

func (s *bulkService) generate(ctx context.Context, tr *tracker, list, imageURLs []string, start time.Time) (int, error) {
	if len(list) == 0 {
		tr.fail(ctx, ErrNoTopics)
		return 0, ErrNoTopics
	}
	if len(imageURLs) == 0 {
		tr.fail(ctx, ErrNoImages)
		return 0, ErrNoImages
	}

	total := 1 + len(imageURLs) + len(list)
	base := 1 + len(imageURLs)
	created := 0

	for i, topic := range list {
		tr.report(ctx, models.StageGenerating, base+i, total,
			fmt.Sprintf("Generating article %d of %d: %s", i+1, len(list), topic))

		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("job stopped after %d of %d articles: %w", created, len(list), err)
			tr.fail(ctx, err)
			return created, err
		}

		generated, err := s.generator.Generate(ctx, topic)
		if err != nil {
			err = fmt.Errorf("topic %q: %w", topic, err)
			tr.fail(ctx, err)
			return created, err
		}

		article := s.buildArticle(topic, generated, imageURLs, start.Add(time.Duration(i)*s.cfg.ScheduleInterval))
		if err := s.articles.Create(ctx, article); err != nil {
			err = fmt.Errorf("failed to save article for topic %q: %w", topic, err)
			tr.fail(ctx, err)
			return created, err
		}
		created++

		tr.report(ctx, models.StageScheduling, base+i+1, total,
			fmt.Sprintf("Scheduled %q for %s", article.Title, article.ScheduledAt.Format(time.RFC3339)))
	}

	tr.report(ctx, models.StageComplete, total, total,
		fmt.Sprintf("Successfully scheduled %d articles using %d images", created, len(imageURLs)))

	s.log.Info().Str("job_id", tr.jobID).Int("articles", created).Msg("Bulk job completed")
	return created, nil
}

func (s *bulkService) buildArticle(topic string, g *models.GeneratedArticle, imageURLs []string, scheduledAt time.Time) *models.Article {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		title = topic
	}
	excerpt := strings.TrimSpace(g.Excerpt)
	if excerpt == "" {
		excerpt = content.Excerpt(g.Content)
	}

	now := s.now()
	return &models.Article{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     g.Content,
		Excerpt:     excerpt,
		ImageURL:    imageURLs[s.rng.Intn(len(imageURLs))],
		Hashtags:    content.NormalizeHashtags(g.Hashtags),
		Status:      models.StatusScheduled,
		ScheduledAt: &scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Progress returns the latest snapshot of a job
func (s *bulkService) Progress(ctx context.Context, jobID string) (models.ProgressSnapshot, error) {
	snap, err := s.progress.Get(ctx, jobID)
	if errors.Is(err, progress.ErrNotFound) {
		return snap, ErrNotFound
	}
	return snap, err
}

// Wait blocks until every running job has finished or ctx is done
func (s *bulkService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tracker writes a job's snapshots and keeps progress from going backwards
type tracker struct {
	store    progress.Store
	jobID    string
	progress int
	total    int
	log      zerolog.Logger
}

func newTracker(store progress.Store, jobID string, log zerolog.Logger) *tracker {
	return &tracker{store: store, jobID: jobID, log: log}
}

func (t *tracker) report(ctx context.Context, stage models.JobStage, progress, total int, message string) {
	if progress < t.progress {
		progress = t.progress
	}
	if total < progress {
		total = progress
	}
	t.progress, t.total = progress, total

	snap := models.ProgressSnapshot{
		JobID:     t.jobID,
		Stage:     stage,
		Progress:  progress,
		Total:     total,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}
	// the job context may already be expired when reporting its failure
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := t.store.Set(ctx, snap); err != nil {
		t.log.Warn().Err(err).Str("job_id", t.jobID).Str("stage", string(stage)).Msg("Failed to publish progress")
	}
}

// fail reports a terminal error, keeping the last progress
func (t *tracker) fail(ctx context.Context, err error) {
	t.report(ctx, models.StageError, t.progress, t.total, err.Error())
}
