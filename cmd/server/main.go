package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blog-cms-api/internal/api"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/generator"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/storage"
	"github.com/blog-cms-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Blog CMS API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	images, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image storage")
	}

	store, closeStore := newProgressStore(cfg, log)
	defer closeStore()

	// Initialize services
	services := service.NewServices(repos, service.Dependencies{
		Generator: generator.New(cfg.Generator, log),
		Images:    images,
		Progress:  store,
		Health:    db,
	}, cfg, log)

	if cfg.Scheduler.Enabled {
		go services.Scheduler.StartProcessor(context.Background())
		log.Info().Msg("In-process scheduler started")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	services.Scheduler.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let running bulk jobs finish their current batch
	if err := services.Bulk.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("Bulk jobs still running at shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
