package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/models"
)

// SendNotification handles POST /api/v1/notifications, dispatching an
// ad-hoc alert to a channel outside the incident lifecycle.
func (s *Server) SendNotification(c *gin.Context) {
	var req models.SendNotificationRequest
	if !bindJSON(c, &req) {
		return
	}

	attemptID, err := s.notifier.SendNotification(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"attempt_id": attemptID})
}
