package models

import (
	"time"
)

// AdminUser is an account allowed into the admin surface
type AdminUser struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Visitor is one recorded public article read
type Visitor struct {
	ArticleID string    `json:"article_id" db:"article_id"`
	IP        string    `json:"visitor_ip" db:"visitor_ip"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	VisitedAt time.Time `json:"visited_at" db:"visited_at"`
}

// AuthorProfile is the singleton author bio shown on the public site
type AuthorProfile struct {
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	PhotoURL    string    `json:"photo_url" db:"photo_url"`
	LinkedInURL string    `json:"linkedin_url" db:"linkedin_url"`
	TwitterURL  string    `json:"twitter_url" db:"twitter_url"`
	WebsiteURL  string    `json:"website_url" db:"website_url"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Setting is a key/value application setting
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SettingLastHourlyBoost stores the RFC3339 time of the last opportunistic boost
const SettingLastHourlyBoost = "last_hourly_boost"

// DashboardStats are the admin dashboard totals
type DashboardStats struct {
	Articles int `json:"articles"`
	Visitors int `json:"visitors"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}
