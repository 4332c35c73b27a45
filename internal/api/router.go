package api

import (
	"context"
	"net/http"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Handlers
	articleHandler := NewArticleHandler(services, log)
	commentHandler := NewCommentHandler(services, log)
	adminHandler := NewAdminHandler(services, cfg, log)
	bulkHandler := NewBulkHandler(services, cfg, log)
	engagementHandler := NewEngagementHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(services.Health))

	if cfg.Storage.Dir != "" {
		router.Static(publicPrefix(cfg.Storage.PublicURL), cfg.Storage.Dir)
	}

	limit := bodyLimitMiddleware(cfg.Server.MaxBodySize)

	// Public site
	public := router.Group("/api", limit, boostMiddleware(services.Booster, cfg.Booster.OnRequest, cfg.Booster.Cooldown, log))
	{
		public.GET("/articles", articleHandler.ListPublished)
		public.GET("/articles/:id", articleHandler.View)
		public.POST("/articles/:id/like", articleHandler.Like)
		public.GET("/articles/:id/comments", commentHandler.ListForArticle)
		public.POST("/articles/:id/comments", commentHandler.Create)
		public.GET("/search", articleHandler.Search)
		public.GET("/author", adminHandler.GetAuthor)
	}

	router.POST("/admin/login", limit, adminHandler.Login)
	router.POST("/admin/logout", adminHandler.Logout)

	admin := router.Group("/admin", sessionMiddleware(services.Auth))
	{
		admin.GET("/me", adminHandler.Me)
		admin.GET("/stats", adminHandler.Stats)
		admin.POST("/users", limit, adminHandler.CreateUser)

		admin.GET("/articles", articleHandler.List)
		admin.POST("/articles", limit, articleHandler.Create)
		admin.GET("/articles/:id", articleHandler.Get)
		admin.PUT("/articles/:id", limit, articleHandler.Update)
		admin.DELETE("/articles/:id", articleHandler.Delete)
		admin.POST("/articles/bulk-delete", limit, articleHandler.DeleteMany)
		admin.GET("/scheduled", articleHandler.ListScheduled)
		admin.POST("/generate", limit, articleHandler.Generate)

		// Bulk generation
		admin.POST("/bulk-generator", bulkHandler.Start)
		admin.GET("/bulk-generator/:job_id", bulkHandler.Status)
		admin.GET("/bulk-generator/:job_id/progress", bulkHandler.StreamProgress)

		admin.POST("/publisher", engagementHandler.Publish)
		admin.POST("/boost", engagementHandler.Boost)

		admin.GET("/images", adminHandler.ListImages)
		admin.POST("/images", adminHandler.UploadImages)
		admin.DELETE("/images", limit, adminHandler.DeleteImages)

		admin.GET("/comments", commentHandler.List)
		admin.DELETE("/comments/:id", commentHandler.Delete)

		admin.GET("/settings/:key", adminHandler.GetSetting)
		admin.PUT("/settings/:key", limit, adminHandler.SetSetting)
		admin.GET("/author", adminHandler.GetAuthor)
		admin.PUT("/author", limit, adminHandler.SaveAuthor)
	}

	cron := router.Group("/cron", cronMiddleware(cfg.Auth.CronSecret))
	{
		cron.GET("/publish", engagementHandler.Publish)
		cron.POST("/publish", engagementHandler.Publish)
		cron.GET("/boost-engagement", engagementHandler.Boost)
		cron.POST("/boost-engagement", engagementHandler.Boost)
	}

	return router
}

// healthCheck returns the health status, pinging the database when one is wired
func healthCheck(db service.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "blog-cms-api",
		})
	}
}

// corsMiddleware allows the configured frontends. Credentials are only
// allowed for an explicit origin list.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func publicPrefix(publicURL string) string {
	if publicURL == "" || publicURL[0] != '/' {
		return "/uploads"
	}
	return publicURL
}
