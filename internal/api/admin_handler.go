package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/blog-cms-api/internal/auth"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminHandler serves sessions, site settings, the author profile, images
// and dashboard data
type AdminHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}

	token, expires, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "login failed")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(time.Until(expires).Seconds()), "/", "", h.cfg.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "expires_at": expires})
}

// Logout handles POST /admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.cfg.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me handles GET /admin/me
func (h *AdminHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"email": c.GetString(ctxAdminEmail)})
}

// CreateUser handles POST /admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.services.Auth.CreateAdminUser(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, h.log, err, "failed to create admin user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.services.Site.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSetting handles GET /admin/settings/:key
func (h *AdminHandler) GetSetting(c *gin.Context) {
	setting, err := h.services.Site.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, h.log, err, "failed to load setting")
		return
	}
	c.JSON(http.StatusOK, setting)
}

// SetSetting handles PUT /admin/settings/:key
func (h *AdminHandler) SetSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if !bindJSON(c, &req) {
		return
	}
	setting, err := h.services.Site.SetSetting(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		respondError(c, h.log, err, "failed to save setting")
		return
	}
	c.JSON(http.StatusOK, setting)
}

// GetAuthor handles GET /api/author and GET /admin/author
func (h *AdminHandler) GetAuthor(c *gin.Context) {
	profile, err := h.services.Site.GetAuthor(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to load author")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveAuthor handles PUT /admin/author
func (h *AdminHandler) SaveAuthor(c *gin.Context) {
	var profile models.AuthorProfile
	if !bindJSON(c, &profile) {
		return
	}
	saved, err := h.services.Site.SaveAuthor(c.Request.Context(), &profile)
	if err != nil {
		respondError(c, h.log, err, "failed to save author")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ListImages handles GET /admin/images
func (h *AdminHandler) ListImages(c *gin.Context) {
	images, err := h.services.Images.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list images")
		return
	}
	if images == nil {
		images = []models.StoredImage{}
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// UploadImages handles POST /admin/images with one or more "images" parts
func (h *AdminHandler) UploadImages(c *gin.Context) {
	form, ok := parseMultipart(c, h.cfg.Bulk.MaxUploadSize)
	if !ok {
		return
	}
	parts := append(form.File["images"], form.File["file"]...)
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}

	files, err := readUploads(parts)
	if err != nil {
		respondError(c, h.log, err, "failed to read images")
		return
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := h.services.Images.Upload(c.Request.Context(), f.Name, f.ContentType, bytes.NewReader(f.Data))
		if err != nil {
			respondError(c, h.log, err, "failed to upload image")
			return
		}
		urls = append(urls, url)
	}
	c.JSON(http.StatusCreated, gin.H{"urls": urls})
}

// DeleteImages handles DELETE /admin/images
func (h *AdminHandler) DeleteImages(c *gin.Context) {
	var req struct {
		Names []string `json:"names"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "names is required"})
		return
	}
	deleted, err := h.services.Images.Delete(c.Request.Context(), req.Names)
	if errors.Is(err, storage.ErrInvalidName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, h.log, err, "failed to delete images")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
