package service

import (
	"context"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) PublishDue(ctx context.Context) (*models.PublishResult, error) {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-p.release
	return &models.PublishResult{}, nil
}

type idleBooster struct{}

func (idleBooster) Run(ctx context.Context) (*models.BoostResult, error) {
	return &models.BoostResult{}, nil
}

func (idleBooster) MaybeRun(ctx context.Context) (*models.BoostResult, error) {
	return &models.BoostResult{Skipped: true}, nil
}

func TestSchedulerService_StopWaitsForInFlightPass(t *testing.T) {
	publisher := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := newSchedulerService(publisher, idleBooster{}, config.SchedulerConfig{
		PublishInterval: 5 * time.Millisecond,
		BoostInterval:   time.Hour,
	}, zerolog.Nop())

	loopDone := make(chan struct{})
	go func() {
		s.StartProcessor(context.Background())
		close(loopDone)
	}()

	select {
	case <-publisher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("publish pass never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.StopProcessor()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("StopProcessor returned while a pass was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(publisher.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("StopProcessor did not return after the pass finished")
	}
	<-loopDone

	s.mu.Lock()
	assert.False(t, s.running)
	s.mu.Unlock()
}
