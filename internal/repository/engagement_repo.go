package repository

import (
	"context"
	"fmt"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
	"github.com/google/uuid"
)

// likeRepo is the concrete implementation of LikeRepository
type likeRepo struct {
	db *database.DB
}

// NewLikeRepo creates a new like repository
func NewLikeRepo(db *database.DB) LikeRepository {
	return &likeRepo{db: db}
}

// Record stores a like from visitorIP and bumps the article counter in the
// same transaction. It returns false when the visitor already liked it.
func (r *likeRepo) Record(ctx context.Context, articleID, visitorIP string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO likes (id, article_id, visitor_ip)
		VALUES ($1, $2, $3)
		ON CONFLICT (article_id, visitor_ip) DO NOTHING
	`, uuid.New().String(), articleID, visitorIP)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE articles SET likes = likes + 1 WHERE id = $1", articleID); err != nil {
		return false, fmt.Errorf("failed to bump like counter: %w", err)
	}
	return true, tx.Commit()
}

// visitorRepo is the concrete implementation of VisitorRepository
type visitorRepo struct {
	db *database.DB
}

// NewVisitorRepo creates a new visitor repository
func NewVisitorRepo(db *database.DB) VisitorRepository {
	return &visitorRepo{db: db}
}

// Record inserts one visit
func (r *visitorRepo) Record(ctx context.Context, v *models.Visitor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO visitors (id, article_id, visitor_ip, user_agent, visited_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), v.ArticleID, v.IP, v.UserAgent, v.VisitedAt)
	return err
}

// Count returns the total number of recorded visits
func (r *visitorRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visitors").Scan(&count)
	return count, err
}
