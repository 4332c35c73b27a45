package main

import (
	"context"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/progress"
	"github.com/rs/zerolog"
)

// newProgressStore picks the snapshot backend. Redis lets any replica serve
// the progress stream of a job running on another.
func newProgressStore(cfg *config.Config, log zerolog.Logger) (progress.Store, func()) {
	if cfg.Bulk.ProgressBackend != "redis" {
		log.Info().Msg("Using in-memory progress store")
		return progress.NewMemory(cfg.Bulk.ProgressGrace), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := progress.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis progress store")

	return progress.NewRedis(client, cfg.Bulk.JobTimeout, cfg.Bulk.ProgressGrace), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
