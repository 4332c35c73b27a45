package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/topics"
	"github.com/blog-cms-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError maps service errors to HTTP responses. Unknown errors are
// logged and answered with fallback.
func respondError(c *gin.Context, log zerolog.Logger, err error, fallback string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verrs})
	case isTooLarge(err):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrNoTopicsFile),
		errors.Is(err, service.ErrNoTopics),
		errors.Is(err, service.ErrNoImages),
		errors.Is(err, topics.ErrUnreadable),
		errors.Is(err, topics.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTooManyJobs):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyLiked), errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

// bindJSON decodes the body into dst and answers 400 or 413 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		}
		return false
	}
	return true
}
