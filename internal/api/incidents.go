package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/models"
)

// ListIncidents handles GET /api/v1/incidents.
func (s *Server) ListIncidents(c *gin.Context) {
	filters := models.IncidentFilters{
		RuleID: c.Query("rule_id"),
		Status: models.IncidentStatus(c.Query("status")),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}

	incidents, err := s.incidents.ListIncidents(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

// GetIncident handles GET /api/v1/incidents/:id.
func (s *Server) GetIncident(c *gin.Context) {
	incident, err := s.incidents.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

type acknowledgeRequest struct {
	AckBy string `json:"ack_by" binding:"required"`
}

// AcknowledgeIncident handles POST /api/v1/incidents/:id/acknowledge.
func (s *Server) AcknowledgeIncident(c *gin.Context) {
	var req acknowledgeRequest
	if !bindJSON(c, &req) {
		return
	}

	incident, err := s.notifier.AcknowledgeIncident(c.Request.Context(), c.Param("id"), req.AckBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required"`
	Notes      string `json:"notes"`
}

// ResolveIncident handles POST /api/v1/incidents/:id/resolve.
func (s *Server) ResolveIncident(c *gin.Context) {
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}

	incident, err := s.notifier.ResolveIncident(c.Request.Context(), c.Param("id"), req.ResolvedBy, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}
