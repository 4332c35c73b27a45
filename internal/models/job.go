package models

import (
	"time"
)

// JobStage is the phase a bulk generation job is in
type JobStage string

const (
	StageParsing    JobStage = "parsing"
	StageUploading  JobStage = "uploading"
	StageGenerating JobStage = "generating"
	StageScheduling JobStage = "scheduling"
	StageComplete   JobStage = "complete"
	StageError      JobStage = "error"
)

// Terminal reports whether no further snapshots follow this stage
func (s JobStage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// ProgressSnapshot is the latest observable state of a bulk job.
// Only the most recent snapshot per job is kept.
type ProgressSnapshot struct {
	JobID     string    `json:"job_id"`
	Stage     JobStage  `json:"stage"`
	Progress  int       `json:"progress"`
	Total     int       `json:"total"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadedFile is an in-memory file received with a bulk request
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// BulkRequest is the input of a bulk generation job
type BulkRequest struct {
	TopicsFile UploadedFile
	Images     []UploadedFile
}

// BulkJobResponse is returned when a bulk job is accepted
type BulkJobResponse struct {
	JobID       string `json:"job_id"`
	Message     string `json:"message"`
	ProgressURL string `json:"progress_url"`
}

// PublishResult is the outcome of one publisher pass
type PublishResult struct {
	Published   int       `json:"published"`
	ArticleIDs  []string  `json:"article_ids"`
	PublishedAt time.Time `json:"published_at"`
}

// BoostResult summarises one engagement boost run
type BoostResult struct {
	ArticlesUpdated int  `json:"articles_updated"`
	LikesAdded      int  `json:"likes_added"`
	ViewsAdded      int  `json:"views_added"`
	CommentsAdded   int  `json:"comments_added"`
	Failures        int  `json:"failures"`
	Skipped         bool `json:"skipped,omitempty"` // cooldown not elapsed
}

// StoredImage describes an object in the image bucket
type StoredImage struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
