package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
	"github.com/lib/pq"
)

const articleColumns = `id, title, content, excerpt, image_url, audio_url, video_url, external_links, hashtags,
	status, scheduled_at, published_at, views, likes, created_at, updated_at`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var a models.Article
	var imageURL, audioURL, videoURL sql.NullString
	var links, hashtags pq.StringArray
	var scheduledAt, publishedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Excerpt, &imageURL, &audioURL, &videoURL, &links, &hashtags,
		&a.Status, &scheduledAt, &publishedAt, &a.Views, &a.Likes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ImageURL, a.AudioURL, a.VideoURL = imageURL.String, audioURL.String, videoURL.String
	a.ExternalLinks = []string(links)
	a.Hashtags = []string(hashtags)
	if scheduledAt.Valid {
		a.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		a.PublishedAt = &publishedAt.Time
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, a *models.Article) error {
	query := `
		INSERT INTO articles (id, title, content, excerpt, image_url, audio_url, video_url, external_links, hashtags,
			status, scheduled_at, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Title, a.Content, a.Excerpt,
		nullString(a.ImageURL), nullString(a.AudioURL), nullString(a.VideoURL),
		stringArray(a.ExternalLinks), stringArray(a.Hashtags),
		a.Status, a.ScheduledAt, a.PublishedAt, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Update overwrites the editable fields. published_at is only ever set once.
func (r *articleRepo) Update(ctx context.Context, a *models.Article) error {
	query := `
		UPDATE articles SET
			title = $2, content = $3, excerpt = $4, image_url = $5, audio_url = $6, video_url = $7,
			external_links = $8, hashtags = $9, status = $10, scheduled_at = $11,
			published_at = COALESCE(published_at, $12), updated_at = $13
		WHERE id = $1
		RETURNING published_at
	`
	var publishedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Title, a.Content, a.Excerpt,
		nullString(a.ImageURL), nullString(a.AudioURL), nullString(a.VideoURL),
		stringArray(a.ExternalLinks), stringArray(a.Hashtags),
		a.Status, a.ScheduledAt, a.PublishedAt, a.UpdatedAt,
	).Scan(&publishedAt)
	if err != nil {
		return err
	}
	if publishedAt.Valid {
		a.PublishedAt = &publishedAt.Time
	}
	return nil
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = $1", id)
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return article, err
}

// List returns a page of articles and the total number matching the filter.
// Published listings are ordered by publication time, the rest by creation.
func (r *articleRepo) List(ctx context.Context, f models.ArticleFilter) ([]*models.Article, int, error) {
	var where []string
	var args []interface{}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR excerpt ILIKE $%d)", len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY created_at DESC"
	switch f.Status {
	case models.StatusPublished:
		order = " ORDER BY published_at DESC NULLS LAST"
	case models.StatusScheduled:
		order = " ORDER BY scheduled_at ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	query := "SELECT " + articleColumns + " FROM articles" + clause + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	articles, err := r.query(ctx, query, args...)
	return articles, total, err
}

// Search matches published articles by title, content or excerpt
func (r *articleRepo) Search(ctx context.Context, q string, limit int) ([]*models.Article, error) {
	query := "SELECT " + articleColumns + ` FROM articles
		WHERE status = 'published' AND (title ILIKE $1 OR content ILIKE $1 OR excerpt ILIKE $1)
		ORDER BY published_at DESC NULLS LAST
		LIMIT $2`
	return r.query(ctx, query, "%"+q+"%", limit)
}

func (r *articleRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Delete removes an article; comments, likes and visits cascade
func (r *articleRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMany removes several articles in one statement
func (r *articleRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = ANY($1::uuid[])", pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListIDsByStatus returns the ids of every article in the given status
func (r *articleRepo) ListIDsByStatus(ctx context.Context, status models.ArticleStatus) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM articles WHERE status = $1 ORDER BY created_at", status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PublishDue promotes every scheduled article due at now in a single
// statement. First-time publications share now as published_at; an
// article published before keeps its original date.
func (r *articleRepo) PublishDue(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE articles
		SET status = 'published', published_at = COALESCE(published_at, $1), updated_at = $1
		WHERE status = 'scheduled' AND scheduled_at <= $1
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IncrementCounters adds delta to the counters in one atomic UPDATE.
// Zero fields are omitted, so a schema without a column is never touched.
func (r *articleRepo) IncrementCounters(ctx context.Context, id string, delta models.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}

	args := []interface{}{id}
	var sets []string
	if delta.Likes != 0 {
		args = append(args, delta.Likes)
		sets = append(sets, fmt.Sprintf("likes = likes + $%d", len(args)))
	}
	if delta.Views != 0 {
		args = append(args, delta.Views)
		sets = append(sets, fmt.Sprintf("views = views + $%d", len(args)))
	}

	res, err := r.db.ExecContext(ctx, "UPDATE articles SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CounterColumns reports which counter columns the deployed schema has
func (r *articleRepo) CounterColumns(ctx context.Context) (models.CounterColumns, error) {
	query := `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'articles' AND column_name IN ('likes', 'views')
	`
	var cols models.CounterColumns
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return cols, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return cols, err
		}
		switch name {
		case "likes":
			cols.Likes = true
		case "views":
			cols.Views = true
		}
	}
	return cols, rows.Err()
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// TotalLikes sums the like counters of all articles
func (r *articleRepo) TotalLikes(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(likes), 0) FROM articles").Scan(&total)
	return total, err
}
