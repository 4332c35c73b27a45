package service

import (
	"context"
	"fmt"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/rs/zerolog"
)

// publisherService is the concrete implementation of PublisherService
type publisherService struct {
	articles repository.ArticleRepository
	now      func() time.Time
	log      zerolog.Logger
}

func newPublisherService(articles repository.ArticleRepository, log zerolog.Logger) *publisherService {
	return &publisherService{
		articles: articles,
		now:      time.Now,
		log:      log.With().Str("service", "publisher").Logger(),
	}
}

// PublishDue publishes every scheduled article whose time has come. All of
// them receive the same published_at; calling it again is a no-op.
func (s *publisherService) PublishDue(ctx context.Context) (*models.PublishResult, error) {
	now := s.now().UTC()

	ids, err := s.articles.PublishDue(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Publish pass failed")
		return nil, fmt.Errorf("failed to publish scheduled articles: %w", err)
	}

	if len(ids) > 0 {
		s.log.Info().Int("published", len(ids)).Strs("article_ids", ids).Msg("Scheduled articles published")
	} else {
		s.log.Debug().Msg("No articles due")
	}

	return &models.PublishResult{
		Published:   len(ids),
		ArticleIDs:  ids,
		PublishedAt: now,
	}, nil
}
