package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogforge/src/core/blogflow"
	"blogforge/src/log"
)

type CreateBlogJobResponse struct {
	JobID  string          `json:"jobId"`
	Status blogflow.Status `json:"status"`
}

// CreateBlogJob godoc
// @Summary Create a blog generation job
// @Tags blog-jobs
// @Accept json
// @Produce json
// @Param brief body blogflow.Brief true "Article brief"
// @Success 201 {object} CreateBlogJobResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /blog-jobs [post]
func (h *Handler) CreateBlogJob(c *gin.Context) {
	var brief blogflow.Brief
	if err := c.ShouldBindJSON(&brief); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	job, err := h.jobService.CreateJob(c.Request.Context(), brief)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if h.dispatcher != nil {
		if err := h.dispatcher.Dispatch(c.Request.Context(), job.ID); err != nil {
			// The job exists and can still be stepped over HTTP.
			log.Error(err, "failed to enqueue first step", "job_id", job.ID)
		}
	}

	sendJSON(c, http.StatusCreated, CreateBlogJobResponse{JobID: job.ID, Status: job.Status})
}

// GetBlogJob godoc
// @Summary Get the current state of a blog job
// @Tags blog-jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} blogflow.Job
// @Failure 404 {object} ErrorResponse
// @Router /blog-jobs/{id} [get]
func (h *Handler) GetBlogJob(c *gin.Context) {
	job, err := h.jobService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, job)
}

// StepBlogJob godoc
// @Summary Run the next step of a blog job
// @Description Performs one bounded unit of work and returns the updated job.
// @Description Step failures are reported in the job's error field with status failed.
// @Tags blog-jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} blogflow.Job
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /blog-jobs/{id}/step [post]
func (h *Handler) StepBlogJob(c *gin.Context) {
	job, err := h.jobService.Step(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, job)
}
