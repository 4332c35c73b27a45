package service

import (
	"context"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/rs/zerolog"
)

// schedulerService is the concrete implementation of SchedulerService
type schedulerService struct {
	publisher PublisherService
	booster   BoosterService
	cfg       config.SchedulerConfig
	log       zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

func newSchedulerService(publisher PublisherService, booster BoosterService, cfg config.SchedulerConfig, log zerolog.Logger) *schedulerService {
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = time.Minute
	}
	if cfg.BoostInterval <= 0 {
		cfg.BoostInterval = time.Hour
	}
	return &schedulerService{
		publisher: publisher,
		booster:   booster,
		cfg:       cfg,
		log:       log.With().Str("service", "scheduler").Logger(),
	}
}

// StartProcessor runs the publish and boost tickers until ctx is cancelled
// or StopProcessor is called. It blocks.
func (s *schedulerService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	// registered under mu so StopProcessor always waits for this loop
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	s.log.Info().
		Dur("publish_interval", s.cfg.PublishInterval).
		Dur("boost_interval", s.cfg.BoostInterval).
		Msg("Scheduler started")

	publishTicker := time.NewTicker(s.cfg.PublishInterval)
	defer publishTicker.Stop()
	boostTicker := time.NewTicker(s.cfg.BoostInterval)
	defer boostTicker.Stop()

	for {
		select {
		case <-runCtx.Done():
			s.log.Info().Msg("Scheduler stopping")
			return
		case <-publishTicker.C:
			s.tick(runCtx, "publish", func(ctx context.Context) error {
				_, err := s.publisher.PublishDue(ctx)
				return err
			})
		case <-boostTicker.C:
			s.tick(runCtx, "boost", func(ctx context.Context) error {
				_, err := s.booster.MaybeRun(ctx)
				return err
			})
		}
	}
}

// StopProcessor cancels the tickers and waits for the loop, including an
// in-flight pass, to return
func (s *schedulerService) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *schedulerService) tick(ctx context.Context, name string, fn func(context.Context) error) {
	// Panic recovery - a failing pass must not stop the scheduler
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("task", name).Msg("Scheduled task panicked - recovered")
		}
	}()

	if err := fn(ctx); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
	}
}
