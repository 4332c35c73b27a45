package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/auth"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// siteService is the concrete implementation of SiteService
type siteService struct {
	repos *repository.Repositories
	now   func() time.Time
	log   zerolog.Logger
}

func newSiteService(repos *repository.Repositories, log zerolog.Logger) *siteService {
	return &siteService{
		repos: repos,
		now:   time.Now,
		log:   log.With().Str("service", "site").Logger(),
	}
}

func (s *siteService) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	setting, err := s.repos.Setting.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, ErrNotFound
	}
	return setting, nil
}

func (s *siteService) SetSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, validation.Errors{{Field: "key", Message: "key is required"}}
	}
	if err := s.repos.Setting.Set(ctx, key, value); err != nil {
		return nil, fmt.Errorf("failed to save setting: %w", err)
	}
	return &models.Setting{Key: key, Value: value, UpdatedAt: s.now().UTC()}, nil
}

func (s *siteService) GetAuthor(ctx context.Context) (*models.AuthorProfile, error) {
	profile, err := s.repos.Author.Get(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

func (s *siteService) SaveAuthor(ctx context.Context, p *models.AuthorProfile) (*models.AuthorProfile, error) {
	if err := validation.ValidateAuthor(p).OrNil(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.repos.Author.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save author: %w", err)
	}
	return p, nil
}

// Stats runs the dashboard counts in parallel
func (s *siteService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Articles, err = s.repos.Article.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Visitors, err = s.repos.Visitor.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Likes, err = s.repos.Article.TotalLikes(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Comments, err = s.repos.Comment.Count(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

// authService is the concrete implementation of AuthService
type authService struct {
	users    repository.AdminUserRepository
	sessions *auth.Sessions
	cfg      config.AuthConfig
	now      func() time.Time
	log      zerolog.Logger
}

func newAuthService(users repository.AdminUserRepository, sessions *auth.Sessions, cfg config.AuthConfig, log zerolog.Logger) *authService {
	return &authService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		log:      log.With().Str("service", "auth").Logger(),
	}
}

// Login accepts the configured bootstrap admin or any stored admin user
func (s *authService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}

	if s.cfg.AdminEmail != "" &&
		auth.SecretsEqual(email, strings.ToLower(s.cfg.AdminEmail)) &&
		auth.SecretsEqual(password, s.cfg.AdminPassword) {
		return s.sessions.Issue(email)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		s.log.Warn().Str("email", email).Msg("Failed admin login")
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.sessions.Issue(user.Email)
}

func (s *authService) Verify(token string) (string, error) {
	return s.sessions.Verify(token)
}

func (s *authService) CreateAdminUser(ctx context.Context, email, password, name string) (*models.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateAdminUser(email, password, name).OrNil(); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.AdminUser{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	s.log.Info().Str("email", email).Msg("Admin user created")
	return user, nil
}
