package models

import (
	"time"
)

// Comment represents a visitor (or synthetic) comment on an article
type Comment struct {
	ID           string    `json:"id" db:"id"`
	ArticleID    string    `json:"article_id" db:"article_id"`
	AuthorName   string    `json:"author_name" db:"author_name"`
	AuthorEmail  string    `json:"author_email" db:"author_email"`
	Content      string    `json:"content" db:"content"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	ArticleTitle string    `json:"article_title,omitempty" db:"-"` // admin listings only
}

// CommentFilter narrows the admin comment listing
type CommentFilter struct {
	ArticleID string
	Search    string
	Limit     int
}

// MaxCommentLength is the maximum allowed characters in a comment body
const MaxCommentLength = 5000
