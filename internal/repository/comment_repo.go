package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, c *models.Comment) error {
	query := `
		INSERT INTO comments (id, article_id, author_name, author_email, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ArticleID, c.AuthorName, c.AuthorEmail, c.Content, c.CreatedAt,
	)
	return err
}

// ListByArticle returns an article's comments, newest first
func (r *commentRepo) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	query := `
		SELECT id, article_id, author_name, author_email, content, created_at
		FROM comments WHERE article_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorName, &c.AuthorEmail, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// List returns comments for moderation with their article titles
func (r *commentRepo) List(ctx context.Context, f models.CommentFilter) ([]*models.Comment, error) {
	var where []string
	var args []interface{}

	if f.ArticleID != "" {
		args = append(args, f.ArticleID)
		where = append(where, fmt.Sprintf("c.article_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(c.content ILIKE $%d OR c.author_name ILIKE $%d OR c.author_email ILIKE $%d)", n, n, n))
	}

	query := `
		SELECT c.id, c.article_id, c.author_name, c.author_email, c.content, c.created_at, a.title
		FROM comments c JOIN articles a ON a.id = c.article_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorName, &c.AuthorEmail, &c.Content, &c.CreatedAt, &c.ArticleTitle); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// Delete removes a comment
func (r *commentRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}
