package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/generator"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/progress"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/storage"
	"github.com/blog-cms-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

func main() {
	flags, args := ParseFlags()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "pretty")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, "pretty")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := run(ctx, args, flags, cfg, db, log); err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("Command failed")
		db.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, flags Flags, cfg *config.Config, db *database.DB, log zerolog.Logger) error {
	if args[0] == "migrate" {
		return migrate(args[1:], cfg, db)
	}

	images, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL, log)
	if err != nil {
		return err
	}
	services := service.NewServices(repository.New(db), service.Dependencies{
		Generator: generator.New(cfg.Generator, log),
		Images:    images,
		Progress:  progress.NewMemory(cfg.Bulk.ProgressGrace),
	}, cfg, log)

	switch args[0] {
	case "publish":
		result, err := services.Publisher.PublishDue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Published %d articles\n", result.Published)
		for _, id := range result.ArticleIDs {
			fmt.Println("  " + id)
		}
		return nil

	case "boost":
		result, err := services.Booster.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d articles: +%d likes, +%d views, +%d comments (%d failures)\n",
			result.ArticlesUpdated, result.LikesAdded, result.ViewsAdded, result.CommentsAdded, result.Failures)
		return nil

	case "bulk":
		if len(args) < 2 {
			return fmt.Errorf("bulk needs a topics file")
		}
		return bulk(ctx, services.Bulk, args[1], flags, cfg.Bulk.StreamInterval)

	case "create-admin":
		if len(args) < 3 {
			return fmt.Errorf("create-admin needs an email and a password")
		}
		user, err := services.Auth.CreateAdminUser(ctx, args[1], args[2], flags.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Created admin %s\n", user.Email)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func migrate(args []string, cfg *config.Config, db *database.DB) error {
	if len(args) == 0 {
		return fmt.Errorf("migrate needs up, down or goto <version>")
	}
	switch args[0] {
	case "up":
		return db.RunMigrations(cfg.MigrationsPath)
	case "down":
		return db.MigrateDown(cfg.MigrationsPath)
	case "goto":
		if len(args) < 2 {
			return fmt.Errorf("migrate goto needs a version")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return db.MigrateToVersion(cfg.MigrationsPath, uint(version))
	default:
		return fmt.Errorf("unknown migrate direction %q", args[0])
	}
}

// bulk starts a generation job and follows its progress until it ends
func bulk(ctx context.Context, svc service.BulkService, topicsPath string, flags Flags, interval time.Duration) error {
	topicsData, err := os.ReadFile(topicsPath)
	if err != nil {
		return err
	}
	req := &models.BulkRequest{
		TopicsFile: models.UploadedFile{Name: filepath.Base(topicsPath), Data: topicsData},
	}
	for _, path := range flags.Images {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		req.Images = append(req.Images, models.UploadedFile{Name: filepath.Base(path), Data: data})
	}

	resp, err := svc.StartJob(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(resp.Message)

	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	bar := progressbar.NewOptions(1,
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(!flags.Quiet),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := svc.Progress(ctx, resp.JobID)
		if err != nil {
			return err
		}
		if snap.Total > 0 {
			bar.ChangeMax(snap.Total)
		}
		_ = bar.Set(snap.Progress)
		bar.Describe(string(snap.Stage))

		switch snap.Stage {
		case models.StageComplete:
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			fmt.Println(snap.Message)
			return nil
		case models.StageError:
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("job %s failed: %s", resp.JobID, snap.Message)
		}

		select {
		case <-ctx.Done():
			// the job is detached; wait for it so the process does not cut it off
			fmt.Fprintln(os.Stderr, "\nInterrupted, waiting for the current job to stop...")
			waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = svc.Wait(waitCtx)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
