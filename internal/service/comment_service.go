package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	now      func() time.Time
	log      zerolog.Logger
}

func newCommentService(repos *repository.Repositories, log zerolog.Logger) *commentService {
	return &commentService{
		comments: repos.Comment,
		articles: repos.Article,
		now:      time.Now,
		log:      log.With().Str("service", "comment").Logger(),
	}
}

func (s *commentService) ListForArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	if !validation.IsValidUUID(articleID) {
		return nil, validation.Errors{{Field: "article_id", Message: "invalid UUID format", Value: articleID}}
	}
	return s.comments.ListByArticle(ctx, articleID)
}

func (s *commentService) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	c.AuthorName = strings.TrimSpace(c.AuthorName)
	c.AuthorEmail = strings.TrimSpace(c.AuthorEmail)
	c.Content = strings.TrimSpace(c.Content)
	if err := validation.ValidateComment(c).OrNil(); err != nil {
		return nil, err
	}

	article, err := s.articles.GetByID(ctx, c.ArticleID)
	if err != nil {
		return nil, err
	}
	if article == nil || article.Status != models.StatusPublished {
		return nil, ErrNotFound
	}

	c.ID = uuid.New().String()
	c.CreatedAt = s.now().UTC()
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *commentService) List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, error) {
	if filter.ArticleID != "" && !validation.IsValidUUID(filter.ArticleID) {
		return []*models.Comment{}, nil
	}
	return s.comments.List(ctx, filter)
}

func (s *commentService) Delete(ctx context.Context, id string) error {
	if !validation.IsValidUUID(id) {
		return ErrNotFound
	}
	deleted, err := s.comments.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.log.Info().Str("comment_id", id).Msg("Comment deleted")
	return nil
}
