package mocks

import (
	"context"
	"sync"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
)

// MockBulkService is a mock implementation of BulkService
type MockBulkService struct {
	mu           sync.Mutex
	StartJobFunc func(ctx context.Context, req *models.BulkRequest) (*models.BulkJobResponse, error)
	Snapshots    map[string][]models.ProgressSnapshot // served in order, last one repeats
	Requests     []*models.BulkRequest
	reads        map[string]int
}

// Verify interface compliance
var _ service.BulkService = (*MockBulkService)(nil)

func NewMockBulkService() *MockBulkService {
	return &MockBulkService{
		Snapshots: make(map[string][]models.ProgressSnapshot),
		reads:     make(map[string]int),
	}
}

func (m *MockBulkService) StartJob(ctx context.Context, req *models.BulkRequest) (*models.BulkJobResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.StartJobFunc != nil {
		return m.StartJobFunc(ctx, req)
	}
	return &models.BulkJobResponse{
		JobID:       "job-test",
		Message:     "Bulk generation started",
		ProgressURL: "/admin/bulk-generator/job-test/progress",
	}, nil
}

func (m *MockBulkService) Generate(ctx context.Context, jobID string, topics, imageURLs []string) (int, error) {
	return len(topics), nil
}

func (m *MockBulkService) Progress(ctx context.Context, jobID string) (models.ProgressSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps, ok := m.Snapshots[jobID]
	if !ok || len(snaps) == 0 {
		return models.ProgressSnapshot{}, service.ErrNotFound
	}
	i := m.reads[jobID]
	if i >= len(snaps) {
		i = len(snaps) - 1
	}
	m.reads[jobID]++
	return snaps[i], nil
}

func (m *MockBulkService) Wait(ctx context.Context) error {
	return nil
}

// MockPublisherService is a mock implementation of PublisherService
type MockPublisherService struct {
	Result *models.PublishResult
	Err    error
	Calls  int
}

var _ service.PublisherService = (*MockPublisherService)(nil)

func (m *MockPublisherService) PublishDue(ctx context.Context) (*models.PublishResult, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &models.PublishResult{ArticleIDs: []string{}}, nil
	}
	return m.Result, nil
}

// MockBoosterService is a mock implementation of BoosterService
type MockBoosterService struct {
	mu            sync.Mutex
	Result        *models.BoostResult
	RunCalls      int
	MaybeRunCalls int
	maybeRunDone  chan struct{}
}

var _ service.BoosterService = (*MockBoosterService)(nil)

func NewMockBoosterService() *MockBoosterService {
	return &MockBoosterService{maybeRunDone: make(chan struct{}, 16)}
}

func (m *MockBoosterService) Run(ctx context.Context) (*models.BoostResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCalls++
	if m.Result == nil {
		return &models.BoostResult{}, nil
	}
	return m.Result, nil
}

func (m *MockBoosterService) MaybeRun(ctx context.Context) (*models.BoostResult, error) {
	m.mu.Lock()
	m.MaybeRunCalls++
	m.mu.Unlock()
	select {
	case m.maybeRunDone <- struct{}{}:
	default:
	}
	return &models.BoostResult{Skipped: true}, nil
}

// MaybeRunCount returns how many times MaybeRun was called
func (m *MockBoosterService) MaybeRunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MaybeRunCalls
}

// MaybeRunCalled exposes one signal per MaybeRun call
func (m *MockBoosterService) MaybeRunCalled() <-chan struct{} {
	return m.maybeRunDone
}

// MockSchedulerService is a no-op SchedulerService
type MockSchedulerService struct{}

var _ service.SchedulerService = (*MockSchedulerService)(nil)

func (m *MockSchedulerService) StartProcessor(ctx context.Context) {}

func (m *MockSchedulerService) StopProcessor() {}
