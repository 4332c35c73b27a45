package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipart parts beyond this are spooled to disk by net/http
const multipartMemory = 32 << 20

// BulkHandler handles bulk generation endpoints
type BulkHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *BulkHandler {
	return &BulkHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "bulk").Logger(),
	}
}

// Start handles POST /admin/bulk-generator
// Accepts a multipart form with one topicsFile and one or more images
func (h *BulkHandler) Start(c *gin.Context) {
	form, ok := parseMultipart(c, h.cfg.Bulk.MaxUploadSize)
	if !ok {
		return
	}

	topicsFiles := form.File["topicsFile"]
	if len(topicsFiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoTopicsFile.Error()})
		return
	}
	if len(form.File["images"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoImages.Error()})
		return
	}

	topicsFile, err := readUpload(topicsFiles[0])
	if err != nil {
		respondError(c, h.log, err, "failed to read topics file")
		return
	}
	images, err := readUploads(form.File["images"])
	if err != nil {
		respondError(c, h.log, err, "failed to read images")
		return
	}

	resp, err := h.services.Bulk.StartJob(c.Request.Context(), &models.BulkRequest{
		TopicsFile: topicsFile,
		Images:     images,
	})
	if err != nil {
		respondError(c, h.log, err, "failed to start bulk job")
		return
	}

	h.log.Info().
		Str("job_id", resp.JobID).
		Str("file", topicsFile.Name).
		Int("images", len(images)).
		Msg("Bulk job accepted")

	c.JSON(http.StatusAccepted, resp)
}

// Status handles GET /admin/bulk-generator/:job_id
func (h *BulkHandler) Status(c *gin.Context) {
	snap, err := h.services.Bulk.Progress(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		respondError(c, h.log, err, "failed to get job status")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// progressFrame is the payload of one SSE data frame
type progressFrame struct {
	Stage    models.JobStage `json:"stage"`
	Progress int             `json:"progress"`
	Total    int             `json:"total"`
	Message  string          `json:"message"`
}

// StreamProgress handles GET /admin/bulk-generator/:job_id/progress
// Pushes the latest snapshot at a fixed interval until the job is terminal.
// Disconnecting stops the stream, never the job.
func (h *BulkHandler) StreamProgress(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	snap, err := h.services.Bulk.Progress(ctx, jobID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		respondError(c, h.log, err, "failed to get job status")
		return
	}

	interval := h.cfg.Bulk.StreamInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
			snap, err = h.services.Bulk.Progress(ctx, jobID)
			if err != nil {
				// entry expired or store unavailable
				return false
			}
		}
		first = false

		data, err := json.Marshal(progressFrame{
			Stage:    snap.Stage,
			Progress: snap.Progress,
			Total:    snap.Total,
			Message:  snap.Message,
		})
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		return !snap.Stage.Terminal()
	})
}

// parseMultipart applies the upload limit and parses the form. It writes the
// error response itself and reports whether the caller may continue.
func parseMultipart(c *gin.Context, limit int64) (*multipart.Form, bool) {
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form data is required"})
		}
		return nil, false
	}
	return c.Request.MultipartForm, true
}

func readUpload(fh *multipart.FileHeader) (models.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return models.UploadedFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readUploads(fhs []*multipart.FileHeader) ([]models.UploadedFile, error) {
	files := make([]models.UploadedFile, 0, len(fhs))
	for _, fh := range fhs {
		f, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
