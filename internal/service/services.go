package service

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/auth"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/progress"
	"github.com/blog-cms-api/internal/repository"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNoTopicsFile       = errors.New("topics file is required")
	ErrNoTopics           = errors.New("no topics found in file")
	ErrNoImages           = errors.New("at least one image is required")
	ErrTooManyJobs        = errors.New("too many bulk jobs running, try again later")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyLiked       = errors.New("article already liked")
	ErrEmailTaken         = errors.New("email already registered")
)

// ContentGenerator produces an article for a topic
type ContentGenerator interface {
	Generate(ctx context.Context, topic string) (*models.GeneratedArticle, error)
}

// ImageStore is the object storage used for article images
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	List(ctx context.Context) ([]models.StoredImage, error)
	Delete(ctx context.Context, names []string) (int, error)
}

// ArticleService defines article authoring and reading operations
type ArticleService interface {
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	View(ctx context.Context, id string, visitor models.Visitor) (*models.Article, error)
	Search(ctx context.Context, query string) ([]*models.Article, error)
	Create(ctx context.Context, input *models.ArticleInput) (*models.Article, error)
	Update(ctx context.Context, id string, input *models.ArticleInput) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Like(ctx context.Context, id, visitorIP string) (*models.Article, error)
	GenerateDraft(ctx context.Context, topic string) (*models.GeneratedArticle, error)
}

// CommentService defines comment operations
type CommentService interface {
	ListForArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// SiteService covers settings, the author profile and dashboard data
type SiteService interface {
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	SetSetting(ctx context.Context, key, value string) (*models.Setting, error)
	GetAuthor(ctx context.Context) (*models.AuthorProfile, error)
	SaveAuthor(ctx context.Context, profile *models.AuthorProfile) (*models.AuthorProfile, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// AuthService authenticates admins
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, time.Time, error)
	Verify(token string) (string, error)
	CreateAdminUser(ctx context.Context, email, password, name string) (*models.AdminUser, error)
}

// BulkService runs bulk generation jobs
type BulkService interface {
	StartJob(ctx context.Context, req *models.BulkRequest) (*models.BulkJobResponse, error)
	Generate(ctx context.Context, jobID string, topics, imageURLs []string) (int, error)
	Progress(ctx context.Context, jobID string) (models.ProgressSnapshot, error)
	Wait(ctx context.Context) error
}

// PublisherService promotes due scheduled articles
type PublisherService interface {
	PublishDue(ctx context.Context) (*models.PublishResult, error)
}

// BoosterService simulates engagement on published articles
type BoosterService interface {
	Run(ctx context.Context) (*models.BoostResult, error)
	MaybeRun(ctx context.Context) (*models.BoostResult, error)
}

// SchedulerService runs the publisher and booster on in-process tickers
type SchedulerService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services holds all service interfaces
type Services struct {
	Articles  ArticleService
	Comments  CommentService
	Site      SiteService
	Auth      AuthService
	Images    ImageStore
	Bulk      BulkService
	Publisher PublisherService
	Booster   BoosterService
	Scheduler SchedulerService
	Health    HealthChecker
}

// Dependencies are the external adapters the services need
type Dependencies struct {
	Generator ContentGenerator
	Images    ImageStore
	Progress  progress.Store
	Health    HealthChecker
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config, log zerolog.Logger) *Services {
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	publisher := newPublisherService(repos.Article, log)
	booster := newBoosterService(repos, cfg.Booster, log)

	return &Services{
		Articles:  newArticleService(repos, deps.Generator, log),
		Comments:  newCommentService(repos, log),
		Site:      newSiteService(repos, log),
		Auth:      newAuthService(repos.AdminUser, sessions, cfg.Auth, log),
		Images:    deps.Images,
		Bulk:      newBulkService(repos.Article, deps.Generator, deps.Images, deps.Progress, cfg.Bulk, log),
		Publisher: publisher,
		Booster:   booster,
		Scheduler: newSchedulerService(publisher, booster, cfg.Scheduler, log),
		Health:    deps.Health,
	}
}

// lockedRand is a math/rand source safe for concurrent jobs
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
