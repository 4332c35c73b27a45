package models

import (
	"time"
)

// ArticleStatus is the publication state of an article
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusScheduled ArticleStatus = "scheduled"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[ArticleStatus]bool{
	StatusDraft:     true,
	StatusPublished: true,
	StatusScheduled: true,
}

// Article represents a blog post
type Article struct {
	ID            string        `json:"id" db:"id"`
	Title         string        `json:"title" db:"title"`
	Content       string        `json:"content" db:"content"` // HTML
	Excerpt       string        `json:"excerpt" db:"excerpt"`
	ImageURL      string        `json:"image_url,omitempty" db:"image_url"`
	AudioURL      string        `json:"audio_url,omitempty" db:"audio_url"`
	VideoURL      string        `json:"video_url,omitempty" db:"video_url"`
	ExternalLinks []string      `json:"external_links" db:"external_links"`
	Hashtags      []string      `json:"hashtags" db:"hashtags"`
	Status        ArticleStatus `json:"status" db:"status"`
	ScheduledAt   *time.Time    `json:"scheduled_at,omitempty" db:"scheduled_at"`
	PublishedAt   *time.Time    `json:"published_at,omitempty" db:"published_at"`
	Views         int           `json:"views" db:"views"`
	Likes         int           `json:"likes" db:"likes"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ArticleInput is the admin payload for creating or updating an article
type ArticleInput struct {
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt"`
	ImageURL      string        `json:"image_url"`
	AudioURL      string        `json:"audio_url"`
	VideoURL      string        `json:"video_url"`
	ExternalLinks []string      `json:"external_links"`
	Hashtags      []string      `json:"hashtags"`
	Status        ArticleStatus `json:"status"`
	ScheduledAt   *time.Time    `json:"scheduled_at"`
}

// ArticleFilter narrows article listings
type ArticleFilter struct {
	Status ArticleStatus
	Query  string
	Limit  int
	Offset int
}

// CounterDelta is an atomic increment applied to an article's counters.
// Zero fields are left out of the update.
type CounterDelta struct {
	Likes int
	Views int
}

// IsZero reports whether the delta changes nothing
func (d CounterDelta) IsZero() bool {
	return d.Likes == 0 && d.Views == 0
}

// CounterColumns reports which engagement counters exist in the schema
type CounterColumns struct {
	Likes bool
	Views bool
}

// GeneratedArticle is the structured output of the content generator
type GeneratedArticle struct {
	Title    string   `json:"title"`
	Content  string   `json:"html_content"`
	Excerpt  string   `json:"excerpt"`
	Hashtags []string `json:"hashtags"`
}
