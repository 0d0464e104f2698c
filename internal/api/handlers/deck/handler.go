package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/deck-generator/internal/api/respond"
	"github.com/aliskhannn/deck-generator/internal/jobstore"
	"github.com/aliskhannn/deck-generator/internal/model"
	svc "github.com/aliskhannn/deck-generator/internal/service/deck"
)

// Accepted upload extensions. Anything else is an input error: no job is
// created for content we cannot read.
var allowedExtensions = map[string]struct{}{
	".txt": {}, ".html": {}, ".htm": {}, ".md": {},
}

// service defines the interface for deck generation operations.
type service interface {
	Submit(ctx context.Context, content string, maxSlides int) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (model.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Artifact(ctx context.Context, id uuid.UUID) (string, io.ReadCloser, error)
}

// Upstreams reports which external services are configured, for the
// health endpoint.
type Upstreams struct {
	Groq    bool `json:"groq"`
	Serper  bool `json:"serper"`
	Runware bool `json:"runware"`
}

// Handler provides HTTP handlers for deck generation endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service   service
	upstreams Upstreams
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service, upstreams Upstreams) *Handler {
	return &Handler{service: s, upstreams: upstreams}
}

// Generate handles a submission: raw HTML/text in the "html_content"
// form field or an uploaded file, plus an optional "max_slides" hint.
// It responds immediately with the job id.
func (h *Handler) Generate(c *ginext.Context) {
	content, err := h.readContent(c)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("rejected submission")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	maxSlides := 0
	if v := c.PostForm("max_slides"); v != "" {
		maxSlides, err = strconv.Atoi(v)
		if err != nil || maxSlides < 0 {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid max_slides: %q", v))
			return
		}
	}

	id, err := h.service.Submit(c.Request.Context(), content, maxSlides)
	if err != nil {
		if errors.Is(err, svc.ErrEmptyContent) {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Err(err).Msg("failed to submit job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to submit job: %v", err))
		return
	}

	respond.Created(c, map[string]interface{}{
		"job_id":  id,
		"message": "deck generation started",
	})
}

// readContent extracts the submission content from the uploaded file or
// the html_content form field.
func (h *Handler) readContent(c *ginext.Context) (string, error) {
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if _, ok := allowedExtensions[ext]; !ok {
			return "", fmt.Errorf("unsupported file format %q", ext)
		}

		data, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("failed to read uploaded file: %v", err)
		}

		return string(data), nil
	}

	if content := c.PostForm("html_content"); content != "" {
		return content, nil
	}

	return "", errors.New("no content provided")
}

// Status returns the current phase, progress and terminal outcome of a
// job. Polling this endpoint is the only way failures surface.
func (h *Handler) Status(c *ginext.Context) {
	id, err := parseID(c)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	job, err := h.service.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get job status")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get job status: %v", err))
		return
	}

	// Disable caching so pollers always see the latest progress.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")

	respond.OK(c, job)
}

// Cancel unconditionally records a cancellation request for the job.
// It always succeeds regardless of the job's current state.
func (h *Handler) Cancel(c *ginext.Context) {
	id, err := parseID(c)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		zlog.Logger.Err(err).Msg("failed to cancel job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to cancel job: %v", err))
		return
	}

	respond.OK(c, map[string]interface{}{
		"message": fmt.Sprintf("cancellation signal sent for job %s", id),
	})
}

// Download serves the rendered deck bytes once the job has succeeded.
func (h *Handler) Download(c *ginext.Context) {
	id, err := parseID(c)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	filename, reader, err := h.service.Artifact(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, jobstore.ErrJobNotFound):
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
		case errors.Is(err, svc.ErrNotReady):
			respond.Fail(c, http.StatusBadRequest, err)
		default:
			zlog.Logger.Err(err).Msg("failed to load deck")
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to load deck: %v", err))
		}
		return
	}
	defer reader.Close()

	respond.Zip(c, http.StatusOK, filename, reader)
}

// Health reports service liveness and which upstreams are configured.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c, map[string]interface{}{
		"status": "healthy",
		"config": h.upstreams,
	})
}

// parseID parses the job id path parameter.
func parseID(c *ginext.Context) (uuid.UUID, error) {
	idStr := c.Param("id")
	if idStr == "" {
		return uuid.Nil, errors.New("missing id")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: %v", err)
	}

	return id, nil
}
