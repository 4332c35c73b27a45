package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ArticleHandler serves public reading and admin authoring of articles
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// pagination reads page and limit query parameters
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

func (h *ArticleHandler) list(c *gin.Context, filter models.ArticleFilter) {
	page, limit := pagination(c)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	articles, total, err := h.services.Articles.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err, "failed to list articles")
		return
	}
	if articles == nil {
		articles = []*models.Article{}
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ListPublished handles GET /api/articles
func (h *ArticleHandler) ListPublished(c *gin.Context) {
	h.list(c, models.ArticleFilter{Status: models.StatusPublished})
}

// List handles GET /admin/articles
func (h *ArticleHandler) List(c *gin.Context) {
	status := models.ArticleStatus(c.Query("status"))
	if status != "" && !models.ValidStatuses[status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: draft, published, scheduled"})
		return
	}
	h.list(c, models.ArticleFilter{Status: status, Query: c.Query("q")})
}

// ListScheduled handles GET /admin/scheduled
func (h *ArticleHandler) ListScheduled(c *gin.Context) {
	h.list(c, models.ArticleFilter{Status: models.StatusScheduled})
}

// View handles GET /api/articles/:id
func (h *ArticleHandler) View(c *gin.Context) {
	visitor := models.Visitor{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	article, err := h.services.Articles.View(c.Request.Context(), c.Param("id"), visitor)
	if err != nil {
		respondError(c, h.log, err, "failed to load article")
		return
	}
	c.JSON(http.StatusOK, article)
}

// Get handles GET /admin/articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.services.Articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to load article")
		return
	}
	c.JSON(http.StatusOK, article)
}

// Search handles GET /api/search?q=
func (h *ArticleHandler) Search(c *gin.Context) {
	articles, err := h.services.Articles.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "count": len(articles)})
}

// Like handles POST /api/articles/:id/like
func (h *ArticleHandler) Like(c *gin.Context) {
	article, err := h.services.Articles.Like(c.Request.Context(), c.Param("id"), c.ClientIP())
	if errors.Is(err, service.ErrAlreadyLiked) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "likes": article.Likes})
		return
	}
	if err != nil {
		respondError(c, h.log, err, "failed to like article")
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": article.Likes})
}

// Create handles POST /admin/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var input models.ArticleInput
	if !bindJSON(c, &input) {
		return
	}
	article, err := h.services.Articles.Create(c.Request.Context(), &input)
	if err != nil {
		respondError(c, h.log, err, "failed to create article")
		return
	}
	c.JSON(http.StatusCreated, article)
}

// Update handles PUT /admin/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	var input models.ArticleInput
	if !bindJSON(c, &input) {
		return
	}
	article, err := h.services.Articles.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, h.log, err, "failed to update article")
		return
	}
	c.JSON(http.StatusOK, article)
}

// Delete handles DELETE /admin/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.services.Articles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "failed to delete article")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMany handles POST /admin/articles/bulk-delete
func (h *ArticleHandler) DeleteMany(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids is required"})
		return
	}
	deleted, err := h.services.Articles.DeleteMany(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err, "failed to delete articles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Generate handles POST /admin/generate and returns an unsaved draft
func (h *ArticleHandler) Generate(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !bindJSON(c, &req) {
		return
	}
	draft, err := h.services.Articles.GenerateDraft(c.Request.Context(), req.Topic)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			respondError(c, h.log, err, "failed to generate article")
			return
		}
		h.log.Error().Err(err).Msg("Generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, draft)
}
