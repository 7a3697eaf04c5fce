package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/regulens/alertfabric/pkg/models"
)

// CreateScanJob handles POST /api/v1/scan/jobs.
//
// pkg/scan.Pool has no direct job-creation method: jobs are rows a
// worker later claims via ClaimNextJob's FOR UPDATE SKIP LOCKED query,
// so this writes the queued row straight to the store.
func (s *Server) CreateScanJob(c *gin.Context) {
	var req models.CreateScanJobRequest
	if !bindJSON(c, &req) {
		return
	}

	job := &models.ScanJob{
		JobID:     uuid.NewString(),
		Status:    models.ScanQueued,
		Priority:  req.Priority,
		Filters:   req.Filters,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now(),
	}

	if err := s.scanStore.CreateScanJob(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// ListScanJobs handles GET /api/v1/scan/jobs.
func (s *Server) ListScanJobs(c *gin.Context) {
	filters := models.ScanFilters{
		Status: c.Query("status"),
	}
	jobs, err := s.scanStore.ListScanJobs(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetScanJob handles GET /api/v1/scan/jobs/:id.
func (s *Server) GetScanJob(c *gin.Context) {
	job, err := s.scanStore.GetScanJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ScanHealth handles GET /api/v1/scan/health.
func (s *Server) ScanHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.scanPool.Health())
}
