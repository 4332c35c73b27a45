package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/content"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const searchLimit = 50

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articles  repository.ArticleRepository
	likes     repository.LikeRepository
	visitors  repository.VisitorRepository
	generator ContentGenerator
	now       func() time.Time
	log       zerolog.Logger
}

func newArticleService(repos *repository.Repositories, generator ContentGenerator, log zerolog.Logger) *articleService {
	return &articleService{
		articles:  repos.Article,
		likes:     repos.Like,
		visitors:  repos.Visitor,
		generator: generator,
		now:       time.Now,
		log:       log.With().Str("service", "article").Logger(),
	}
}

func (s *articleService) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.articles.List(ctx, filter)
}

func (s *articleService) Get(ctx context.Context, id string) (*models.Article, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, ErrNotFound
	}
	return article, nil
}

// View returns a published article and records the read
func (s *articleService) View(ctx context.Context, id string, visitor models.Visitor) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != models.StatusPublished {
		return nil, ErrNotFound
	}

	if err := s.articles.IncrementCounters(ctx, id, models.CounterDelta{Views: 1}); err != nil {
		s.log.Warn().Err(err).Str("article_id", id).Msg("Failed to count view")
	} else {
		article.Views++
	}

	visitor.ArticleID = id
	visitor.VisitedAt = s.now().UTC()
	if err := s.visitors.Record(ctx, &visitor); err != nil {
		s.log.Warn().Err(err).Str("article_id", id).Msg("Failed to record visitor")
	}
	return article, nil
}

func (s *articleService) Search(ctx context.Context, query string) ([]*models.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Article{}, nil
	}
	return s.articles.Search(ctx, query, searchLimit)
}

func (s *articleService) Create(ctx context.Context, input *models.ArticleInput) (*models.Article, error) {
	if input.Status == "" {
		input.Status = models.StatusDraft
	}
	if err := validation.ValidateArticle(input).OrNil(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	article := &models.Article{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}
	s.apply(article, input, now)

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	s.log.Info().Str("article_id", article.ID).Str("status", string(article.Status)).Msg("Article created")
	return article, nil
}

func (s *articleService) Update(ctx context.Context, id string, input *models.ArticleInput) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = article.Status
	}
	if err := validation.ValidateArticle(input).OrNil(); err != nil {
		return nil, err
	}

	s.apply(article, input, s.now().UTC())
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}
	return article, nil
}

// apply copies input onto article. published_at is only set the first time
// the article becomes published.
func (s *articleService) apply(article *models.Article, in *models.ArticleInput, now time.Time) {
	article.Title = strings.TrimSpace(in.Title)
	article.Content = in.Content
	article.Excerpt = strings.TrimSpace(in.Excerpt)
	if article.Excerpt == "" && article.Content != "" {
		article.Excerpt = content.Excerpt(article.Content)
	}
	article.ImageURL = in.ImageURL
	article.AudioURL = in.AudioURL
	article.VideoURL = in.VideoURL
	article.ExternalLinks = in.ExternalLinks
	article.Hashtags = content.NormalizeHashtags(in.Hashtags)
	article.Status = in.Status
	article.ScheduledAt = in.ScheduledAt
	if in.Status != models.StatusScheduled {
		article.ScheduledAt = nil
	}
	if in.Status == models.StatusPublished && article.PublishedAt == nil {
		article.PublishedAt = &now
	}
	article.UpdatedAt = now
}

func (s *articleService) Delete(ctx context.Context, id string) error {
	if !validation.IsValidUUID(id) {
		return ErrNotFound
	}
	deleted, err := s.articles.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.log.Info().Str("article_id", id).Msg("Article deleted")
	return nil
}

func (s *articleService) DeleteMany(ctx context.Context, ids []string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validation.IsValidUUID(id) {
			valid = append(valid, id)
		}
	}
	n, err := s.articles.DeleteMany(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	s.log.Info().Int("requested", len(ids)).Int("deleted", n).Msg("Articles bulk deleted")
	return n, nil
}

// Like records one like per visitor IP
func (s *articleService) Like(ctx context.Context, id, visitorIP string) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != models.StatusPublished {
		return nil, ErrNotFound
	}

	ok, err := s.likes.Record(ctx, id, visitorIP)
	if err != nil {
		return nil, fmt.Errorf("failed to record like: %w", err)
	}
	if !ok {
		return article, ErrAlreadyLiked
	}
	article.Likes++
	return article, nil
}

func (s *articleService) GenerateDraft(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, validation.Errors{{Field: "topic", Message: "topic is required"}}
	}
	return s.generator.Generate(ctx, topic)
}
