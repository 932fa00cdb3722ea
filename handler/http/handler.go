package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"blogforge/src/core/blogflow"
)

// JobService is the job API the handler exposes over HTTP
type JobService interface {
	CreateJob(ctx context.Context, brief blogflow.Brief) (*blogflow.Job, error)
	Step(ctx context.Context, id string) (*blogflow.Job, error)
	Get(ctx context.Context, id string) (*blogflow.Job, error)
}

// Dispatcher queues the next step of a job for a background worker
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

type Handler struct {
	jobService JobService
	dispatcher Dispatcher
}

type Option func(h *Handler)

// WithDispatcher makes job creation enqueue the first step
func WithDispatcher(d Dispatcher) Option {
	return func(h *Handler) {
		h.dispatcher = d
	}
}

func NewHandler(jobService JobService, opts ...Option) *Handler {
	h := &Handler{jobService: jobService}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Blog job routes
	v1.POST("/blog-jobs", h.CreateBlogJob)
	v1.GET("/blog-jobs/:id", h.GetBlogJob)
	v1.POST("/blog-jobs/:id/step", h.StepBlogJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var (
		code    string
		details interface{}
		verr    *blogflow.ValidationError
	)
	switch {
	case errors.Is(err, blogflow.ErrJobNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.As(err, &verr):
		code = "INVALID_BRIEF"
		status = http.StatusBadRequest
		details = verr.Fields
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = "STEP_INTERRUPTED"
		status = http.StatusServiceUnavailable
	case status == http.StatusBadRequest:
		code = "INVALID_REQUEST"
	default:
		code = "INTERNAL_ERROR"
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
		Details: details,
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// CheckHealth godoc
// @Summary Check service health
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	sendJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
