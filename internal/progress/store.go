// Package progress keeps the latest snapshot of every running bulk job so
// that observers can poll or stream it.
package progress

import (
	"context"
	"errors"

	"github.com/blog-cms-api/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a job
var ErrNotFound = errors.New("progress: job not found")

// Store is a keyed last-write-wins snapshot store. Terminal snapshots are
// removed automatically once the grace period elapses.
type Store interface {
	Set(ctx context.Context, snap models.ProgressSnapshot) error
	Get(ctx context.Context, jobID string) (models.ProgressSnapshot, error)
	Delete(ctx context.Context, jobID string) error
}
