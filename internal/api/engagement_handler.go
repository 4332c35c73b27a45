package api

import (
	"net/http"

	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EngagementHandler triggers the publisher and the engagement booster
type EngagementHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(services *service.Services, log zerolog.Logger) *EngagementHandler {
	return &EngagementHandler{
		services: services,
		log:      log.With().Str("handler", "engagement").Logger(),
	}
}

// Publish handles POST /admin/publisher and GET|POST /cron/publish
func (h *EngagementHandler) Publish(c *gin.Context) {
	result, err := h.services.Publisher.PublishDue(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to publish scheduled articles")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"published":    result.Published,
		"article_ids":  result.ArticleIDs,
		"published_at": result.PublishedAt,
	})
}

// Boost handles POST /admin/boost and GET|POST /cron/boost-engagement
func (h *EngagementHandler) Boost(c *gin.Context) {
	result, err := h.services.Booster.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to boost engagement")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}
