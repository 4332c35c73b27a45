package repository

import (
	"context"
	"time"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Article, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
	ListIDsByStatus(ctx context.Context, status models.ArticleStatus) ([]string, error)
	PublishDue(ctx context.Context, now time.Time) ([]string, error)
	IncrementCounters(ctx context.Context, id string, delta models.CounterDelta) error
	CounterColumns(ctx context.Context) (models.CounterColumns, error)
	Count(ctx context.Context) (int, error)
	TotalLikes(ctx context.Context) (int, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// LikeRepository records visitor likes
type LikeRepository interface {
	Record(ctx context.Context, articleID, visitorIP string) (bool, error)
}

// VisitorRepository records public article reads
type VisitorRepository interface {
	Record(ctx context.Context, visitor *models.Visitor) error
	Count(ctx context.Context) (int, error)
}

// SettingRepository defines key/value settings operations
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) error
	Claim(ctx context.Context, key, value string, now, staleBefore time.Time) (bool, error)
}

// AuthorRepository reads and writes the author profile
type AuthorRepository interface {
	Get(ctx context.Context) (*models.AuthorProfile, error)
	Upsert(ctx context.Context, profile *models.AuthorProfile) error
}

// AdminUserRepository defines admin account operations
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article   ArticleRepository
	Comment   CommentRepository
	Like      LikeRepository
	Visitor   VisitorRepository
	Setting   SettingRepository
	Author    AuthorRepository
	AdminUser AdminUserRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:   NewArticleRepo(db),
		Comment:   NewCommentRepo(db),
		Like:      NewLikeRepo(db),
		Visitor:   NewVisitorRepo(db),
		Setting:   NewSettingRepo(db),
		Author:    NewAuthorRepo(db),
		AdminUser: NewAdminUserRepo(db),
	}
}
