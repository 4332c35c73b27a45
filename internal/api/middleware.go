package api

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blog-cms-api/internal/auth"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	ctxAdminEmail = "admin_email"
	boostTimeout  = 5 * time.Minute
)

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// bodyLimitMiddleware caps JSON request bodies
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// sessionMiddleware admits requests carrying a valid admin session, either
// as the session cookie or as a bearer token
func sessionMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			token = c.GetHeader("Authorization")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		email, err := authService.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ctxAdminEmail, email)
		c.Next()
	}
}

// cronMiddleware requires Authorization: Bearer <secret>. An unset secret
// disables the cron endpoints.
func cronMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || !auth.SecretsEqual(strings.TrimPrefix(header, "Bearer "), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// boostMiddleware lets public traffic trigger the hourly engagement boost.
// The boost runs detached so the request never waits for it, and the
// persisted cooldown is consulted at most once per cooldown window.
func boostMiddleware(booster service.BoosterService, enabled bool, cooldown time.Duration, log zerolog.Logger) gin.HandlerFunc {
	var lastCheck atomic.Int64

	return func(c *gin.Context) {
		if enabled && booster != nil && c.Request.Method == http.MethodGet && claimCheck(&lastCheck, cooldown) {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Interface("panic", r).Msg("Opportunistic boost panicked - recovered")
					}
				}()
				ctx, cancel := context.WithTimeout(context.Background(), boostTimeout)
				defer cancel()
				result, err := booster.MaybeRun(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Opportunistic boost failed")
					return
				}
				if !result.Skipped {
					log.Info().Int("articles_updated", result.ArticlesUpdated).Msg("Opportunistic boost ran")
				}
			}()
		}
		c.Next()
	}
}

// claimCheck reports whether this caller may check the cooldown now. Only
// one caller wins per window.
func claimCheck(last *atomic.Int64, window time.Duration) bool {
	now := time.Now().UnixNano()
	prev := last.Load()
	if prev != 0 && now-prev < int64(window) {
		return false
	}
	return last.CompareAndSwap(prev, now)
}
