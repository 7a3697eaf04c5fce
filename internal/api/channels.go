package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/regulens/alertfabric/pkg/models"
)

// CreateChannel handles POST /api/v1/channels.
func (s *Server) CreateChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if !bindJSON(c, &req) {
		return
	}

	channel := &models.NotificationChannel{
		ChannelID: uuid.NewString(),
		Type:      req.Type,
		Name:      req.Name,
		Config:    req.Config,
		Enabled:   req.Enabled,
		CreatedAt: time.Now(),
	}

	if err := s.channels.CreateChannel(c.Request.Context(), channel); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel)
}

// ListChannels handles GET /api/v1/channels.
func (s *Server) ListChannels(c *gin.Context) {
	channels, err := s.channels.ListChannels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

// GetChannel handles GET /api/v1/channels/:id.
func (s *Server) GetChannel(c *gin.Context) {
	channel, err := s.channels.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

// UpdateChannel handles PUT /api/v1/channels/:id.
func (s *Server) UpdateChannel(c *gin.Context) {
	channelID := c.Param("id")
	existing, err := s.channels.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateChannelRequest
	if !bindJSON(c, &req) {
		return
	}

	existing.Type = req.Type
	existing.Name = req.Name
	existing.Config = req.Config
	existing.Enabled = req.Enabled

	if err := s.channels.UpdateChannel(c.Request.Context(), existing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DeleteChannel handles DELETE /api/v1/channels/:id.
func (s *Server) DeleteChannel(c *gin.Context) {
	if err := s.channels.DeleteChannel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestChannel handles POST /api/v1/channels/:id/test, sending a
// synthetic alert through the channel without creating an incident.
func (s *Server) TestChannel(c *gin.Context) {
	var alert models.AlertPayload
	if !bindJSON(c, &alert) {
		return
	}

	result, err := s.notifier.TestChannel(c.Request.Context(), c.Param("id"), alert)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
