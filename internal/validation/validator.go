package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blog-cms-api/internal/models"
	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	maxTitleLength   = 300
	maxExcerptLength = 1000
	maxNameLength    = 100
	minPasswordLen   = 8
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of field errors usable as an error value
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Field + ": " + ve.Message
	}
	return strings.Join(parts, "; ")
}

// OrNil returns nil for an empty list so callers can return it as error
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateArticle validates an admin article payload
func ValidateArticle(in *models.ArticleInput) Errors {
	var errors Errors

	if strings.TrimSpace(in.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(in.Title) > maxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title exceeds %d characters", maxTitleLength)})
	}

	if utf8.RuneCountInString(in.Excerpt) > maxExcerptLength {
		errors = append(errors, ValidationError{Field: "excerpt", Message: fmt.Sprintf("excerpt exceeds %d characters", maxExcerptLength)})
	}

	// Validate status
	if in.Status != "" && !models.ValidStatuses[in.Status] {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "invalid status, must be one of: draft, published, scheduled",
			Value:   in.Status,
		})
	}

	// Scheduled articles need a publication time
	if in.Status == models.StatusScheduled && in.ScheduledAt == nil {
		errors = append(errors, ValidationError{Field: "scheduled_at", Message: "scheduled_at is required for scheduled articles"})
	}

	for field, value := range map[string]string{"image_url": in.ImageURL, "audio_url": in.AudioURL, "video_url": in.VideoURL} {
		if value != "" && !isValidURL(value) {
			errors = append(errors, ValidationError{Field: field, Message: "invalid URL", Value: value})
		}
	}
	for _, link := range in.ExternalLinks {
		if !isValidURL(link) {
			errors = append(errors, ValidationError{Field: "external_links", Message: "invalid URL", Value: link})
		}
	}

	return errors
}

// ValidateComment validates a visitor comment
func ValidateComment(c *models.Comment) Errors {
	var errors Errors

	if c.ArticleID == "" {
		errors = append(errors, ValidationError{Field: "article_id", Message: "article_id is required"})
	} else if !IsValidUUID(c.ArticleID) {
		errors = append(errors, ValidationError{Field: "article_id", Message: "invalid UUID format", Value: c.ArticleID})
	}

	if strings.TrimSpace(c.AuthorName) == "" {
		errors = append(errors, ValidationError{Field: "author_name", Message: "author_name is required"})
	} else if utf8.RuneCountInString(c.AuthorName) > maxNameLength {
		errors = append(errors, ValidationError{Field: "author_name", Message: fmt.Sprintf("author_name exceeds %d characters", maxNameLength)})
	}

	if c.AuthorEmail == "" {
		errors = append(errors, ValidationError{Field: "author_email", Message: "author_email is required"})
	} else if !emailRegex.MatchString(c.AuthorEmail) {
		errors = append(errors, ValidationError{Field: "author_email", Message: "invalid email format", Value: c.AuthorEmail})
	}

	if strings.TrimSpace(c.Content) == "" {
		errors = append(errors, ValidationError{Field: "content", Message: "content is required"})
	} else if n := utf8.RuneCountInString(c.Content); n > models.MaxCommentLength {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content exceeds maximum of %d characters (has %d)", models.MaxCommentLength, n),
		})
	}

	return errors
}

// ValidateAdminUser validates a new admin account
func ValidateAdminUser(email, password, name string) Errors {
	var errors Errors

	if email == "" {
		errors = append(errors, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: email})
	}
	if len(password) < minPasswordLen {
		errors = append(errors, ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLen)})
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		errors = append(errors, ValidationError{Field: "name", Message: fmt.Sprintf("name exceeds %d characters", maxNameLength)})
	}

	return errors
}

// ValidateAuthor checks the profile links
func ValidateAuthor(p *models.AuthorProfile) Errors {
	var errors Errors
	links := []struct{ field, value string }{
		{"photo_url", p.PhotoURL},
		{"linkedin_url", p.LinkedInURL},
		{"twitter_url", p.TwitterURL},
		{"website_url", p.WebsiteURL},
	}
	for _, l := range links {
		if l.value != "" && !isValidURL(l.value) {
			errors = append(errors, ValidationError{Field: l.field, Message: "invalid URL", Value: l.value})
		}
	}
	return errors
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// isValidURL accepts absolute http(s) URLs and site-relative paths
func isValidURL(s string) bool {
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
