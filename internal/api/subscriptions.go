package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/models"
)

// UpsertSubscription handles PUT /api/v1/subscriptions/:agent_id.
//
// pkg/regulatory.Subscriber.Subscribe requires a live Go callback that
// cannot be supplied over a REST request, so this endpoint only manages
// the persisted filter; an agent process still calls Subscriber.Subscribe
// directly in-process to actually receive events.
func (s *Server) UpsertSubscription(c *gin.Context) {
	var filter models.EventFilter
	if !bindJSON(c, &filter) {
		return
	}

	agentID := c.Param("agent_id")
	now := time.Now()
	sub := &models.Subscription{
		AgentID:   agentID,
		Filter:    filter,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := s.regulatory.GetSubscription(c.Request.Context(), agentID); err == nil {
		sub.CreatedAt = existing.CreatedAt
	}

	if err := s.regulatory.UpsertSubscription(c.Request.Context(), sub); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ListSubscriptions handles GET /api/v1/subscriptions.
func (s *Server) ListSubscriptions(c *gin.Context) {
	subs, err := s.regulatory.ListSubscriptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubscription handles GET /api/v1/subscriptions/:agent_id.
func (s *Server) GetSubscription(c *gin.Context) {
	sub, err := s.regulatory.GetSubscription(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubscription handles DELETE /api/v1/subscriptions/:agent_id.
func (s *Server) DeleteSubscription(c *gin.Context) {
	if err := s.regulatory.DeleteSubscription(c.Request.Context(), c.Param("agent_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
