package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/models"
)

// QueryActivity handles GET /api/v1/activity, querying the in-memory
// ring buffer (not the durable ActivityStore export path).
func (s *Server) QueryActivity(c *gin.Context) {
	filter := models.ActivityFilter{
		TextContains: c.Query("text"),
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AgentIDs = []string{agentID}
	}
	if activityType := c.Query("activity_type"); activityType != "" {
		filter.ActivityTypes = []string{activityType}
	}
	if severity := c.Query("severity"); severity != "" {
		filter.Severities = []models.Severity{models.Severity(severity)}
	}

	events := s.feed.QueryActivities(filter)
	c.JSON(http.StatusOK, events)
}

// FeedStats handles GET /api/v1/activity/stats.
func (s *Server) FeedStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.feed.GetFeedStats())
}

// AgentStats handles GET /api/v1/activity/stats/:agent_id.
func (s *Server) AgentStats(c *gin.Context) {
	stats, ok := s.feed.GetAgentStats(c.Param("agent_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no activity recorded for agent"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
