package api

import (
	"net/http"
	"strconv"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler serves visitor comments and their moderation
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// ListForArticle handles GET /api/articles/:id/comments
func (h *CommentHandler) ListForArticle(c *gin.Context) {
	comments, err := h.services.Comments.ListForArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to list comments")
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// Create handles POST /api/articles/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req struct {
		AuthorName  string `json:"author_name"`
		AuthorEmail string `json:"author_email"`
		Content     string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.services.Comments.Create(c.Request.Context(), &models.Comment{
		ArticleID:   c.Param("id"),
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
	})
	if err != nil {
		respondError(c, h.log, err, "failed to create comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List handles GET /admin/comments
func (h *CommentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	comments, err := h.services.Comments.List(c.Request.Context(), models.CommentFilter{
		ArticleID: c.Query("article_id"),
		Search:    c.Query("search"),
		Limit:     limit,
	})
	if err != nil {
		respondError(c, h.log, err, "failed to list comments")
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// Delete handles DELETE /admin/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.services.Comments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "failed to delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}
