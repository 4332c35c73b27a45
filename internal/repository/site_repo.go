package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

// settingRepo is the concrete implementation of SettingRepository
type settingRepo struct {
	db *database.DB
}

// NewSettingRepo creates a new settings repository
func NewSettingRepo(db *database.DB) SettingRepository {
	return &settingRepo{db: db}
}

// Get returns a setting or nil when the key is unset
func (r *settingRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	var s models.Setting
	err := r.db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM settings WHERE key = $1", key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Set upserts a setting
func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	return err
}

// Claim writes value only if the key is unset or was last written before
// staleBefore. The check and write are one statement, so concurrent callers
// on any instance see exactly one winner.
func (r *settingRepo) Claim(ctx context.Context, key, value string, now, staleBefore time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		WHERE settings.updated_at <= $4
	`, key, value, now, staleBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// authorRepo is the concrete implementation of AuthorRepository
type authorRepo struct {
	db *database.DB
}

// NewAuthorRepo creates a new author repository
func NewAuthorRepo(db *database.DB) AuthorRepository {
	return &authorRepo{db: db}
}

// Get returns the author profile or nil when none has been saved
func (r *authorRepo) Get(ctx context.Context) (*models.AuthorProfile, error) {
	var p models.AuthorProfile
	err := r.db.QueryRowContext(ctx, `
		SELECT title, description, photo_url, linkedin_url, twitter_url, website_url, updated_at
		FROM author WHERE id = 1
	`).Scan(&p.Title, &p.Description, &p.PhotoURL, &p.LinkedInURL, &p.TwitterURL, &p.WebsiteURL, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert saves the singleton author profile
func (r *authorRepo) Upsert(ctx context.Context, p *models.AuthorProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO author (id, title, description, photo_url, linkedin_url, twitter_url, website_url, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			photo_url = EXCLUDED.photo_url,
			linkedin_url = EXCLUDED.linkedin_url,
			twitter_url = EXCLUDED.twitter_url,
			website_url = EXCLUDED.website_url,
			updated_at = EXCLUDED.updated_at
	`, p.Title, p.Description, p.PhotoURL, p.LinkedInURL, p.TwitterURL, p.WebsiteURL, p.UpdatedAt)
	return err
}
