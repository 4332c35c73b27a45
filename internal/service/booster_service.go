package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var commentTemplates = []string{
	"Really enjoyed this one, thanks for writing it up!",
	"This cleared up a lot of confusion for me.",
	"Great breakdown. Bookmarking for later.",
	"I had never looked at it from this angle before.",
	"Clear and to the point, exactly what I needed today.",
	"Sharing this with my team, very useful.",
	"Thanks! The code samples made it click.",
	"Would love a follow-up post going deeper on this.",
	"Solid read. The second section was my favourite.",
	"This is the kind of content I keep coming back for.",
	"Helpful summary, appreciate the effort.",
	"Interesting take, gave me a few ideas to try.",
	"Well explained without being overwhelming.",
	"Saved me hours of digging, thank you.",
	"Nice work, looking forward to the next article.",
}

var commenterNames = []string{
	"Sarah Johnson", "Michael Chen", "Emily Davis", "David Wilson", "Jessica Brown",
	"Daniel Martinez", "Ashley Taylor", "James Anderson", "Olivia Thomas", "Ryan Moore",
	"Sophia Jackson", "Ethan White", "Mia Harris", "Noah Martin", "Ava Thompson",
	"Lucas Garcia", "Chloe Robinson", "Liam Clark", "Grace Lewis", "Mason Walker",
}

var emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com"}

// boosterService is the concrete implementation of BoosterService
type boosterService struct {
	articles repository.ArticleRepository
	comments repository.CommentRepository
	settings repository.SettingRepository
	cfg      config.BoosterConfig
	log      zerolog.Logger

	// guards MaybeRun so one instance never overlaps itself
	mu  sync.Mutex
	rng interface {
		Float64() float64
		Intn(n int) int
	}
	now func() time.Time
}

func newBoosterService(repos *repository.Repositories, cfg config.BoosterConfig, log zerolog.Logger) *boosterService {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	return &boosterService{
		articles: repos.Article,
		comments: repos.Comment,
		settings: repos.Setting,
		cfg:      cfg,
		log:      log.With().Str("service", "booster").Logger(),
		rng:      newLockedRand(time.Now().UnixNano()),
		now:      time.Now,
	}
}

// Run boosts every published article once. A failure on one article is
// logged and counted, and the run continues with the next.
func (s *boosterService) Run(ctx context.Context) (*models.BoostResult, error) {
	ids, err := s.articles.ListIDsByStatus(ctx, models.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("failed to load published articles: %w", err)
	}
	cols, err := s.articles.CounterColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect counter columns: %w", err)
	}
	if !cols.Views || !cols.Likes {
		s.log.Warn().Bool("likes", cols.Likes).Bool("views", cols.Views).Msg("Counter columns missing, boosting the rest")
	}

	result := &models.BoostResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		delta := s.drawDelta(cols)
		if err := s.articles.IncrementCounters(ctx, id, delta); err != nil {
			result.Failures++
			s.log.Error().Err(err).Str("article_id", id).Msg("Failed to boost counters")
			continue
		}

		commented := false
		if s.rng.Float64() < s.cfg.CommentProbability {
			if err := s.comments.Create(ctx, s.syntheticComment(id)); err != nil {
				result.Failures++
				s.log.Error().Err(err).Str("article_id", id).Msg("Failed to add synthetic comment")
			} else {
				commented = true
				result.CommentsAdded++
			}
		}

		result.LikesAdded += delta.Likes
		result.ViewsAdded += delta.Views
		if !delta.IsZero() || commented {
			result.ArticlesUpdated++
		}
	}

	s.log.Info().
		Int("articles_updated", result.ArticlesUpdated).
		Int("likes_added", result.LikesAdded).
		Int("views_added", result.ViewsAdded).
		Int("comments_added", result.CommentsAdded).
		Int("failures", result.Failures).
		Msg("Engagement boost completed")

	return result, nil
}

// MaybeRun boosts only if the cooldown since the last recorded run elapsed.
// The last run time lives in settings so every instance honours it.
func (s *boosterService) MaybeRun(ctx context.Context) (*models.BoostResult, error) {
	if !s.mu.TryLock() {
		return &models.BoostResult{Skipped: true}, nil
	}
	defer s.mu.Unlock()

	now := s.now().UTC()
	claimed, err := s.settings.Claim(ctx, models.SettingLastHourlyBoost, now.Format(time.RFC3339), now, now.Add(-s.cfg.Cooldown))
	if err != nil {
		return nil, fmt.Errorf("failed to check boost cooldown: %w", err)
	}
	if !claimed {
		return &models.BoostResult{Skipped: true}, nil
	}
	return s.Run(ctx)
}

func (s *boosterService) drawDelta(cols models.CounterColumns) models.CounterDelta {
	var d models.CounterDelta
	if cols.Likes && s.rng.Float64() < s.cfg.LikeProbability {
		d.Likes = 1
	}
	if cols.Views {
		d.Views = s.cfg.ViewsMin + s.rng.Intn(s.cfg.ViewsMax-s.cfg.ViewsMin+1)
	}
	return d
}

func (s *boosterService) syntheticComment(articleID string) *models.Comment {
	name := commenterNames[s.rng.Intn(len(commenterNames))]
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	email := fmt.Sprintf("%s%d@%s", local, s.rng.Intn(100), emailDomains[s.rng.Intn(len(emailDomains))])

	return &models.Comment{
		ID:          uuid.New().String(),
		ArticleID:   articleID,
		AuthorName:  name,
		AuthorEmail: email,
		Content:     commentTemplates[s.rng.Intn(len(commentTemplates))],
		CreatedAt:   s.now().UTC(),
	}
}
