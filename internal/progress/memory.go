package progress

import (
	"context"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/models"
)

type memoryEntry struct {
	snap  models.ProgressSnapshot
	timer *time.Timer
}

// Memory is a process-local Store. State is lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	grace   time.Duration
}

var _ Store = (*Memory)(nil)

// NewMemory creates a store that forgets terminal snapshots after grace
func NewMemory(grace time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		grace:   grace,
	}
}

func (m *Memory) Set(ctx context.Context, snap models.ProgressSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[snap.JobID]
	if !ok {
		e = &memoryEntry{}
		m.entries[snap.JobID] = e
	}
	e.snap = snap

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if snap.Stage.Terminal() {
		jobID := snap.JobID
		var t *time.Timer
		t = time.AfterFunc(m.grace, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// only expire if no newer snapshot replaced the timer
			if cur, ok := m.entries[jobID]; ok && cur.timer == t {
				delete(m.entries, jobID)
			}
		})
		e.timer = t
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, jobID string) (models.ProgressSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[jobID]
	if !ok {
		return models.ProgressSnapshot{}, ErrNotFound
	}
	return e.snap, nil
}

func (m *Memory) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[jobID]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.entries, jobID)
	}
	return nil
}

// Len returns the number of tracked jobs
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
