package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/version"
)

// Health handles GET /health, probing the caller-supplied healthCheck
// (typically a database ping) alongside static version info.
func (s *Server) Health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"version": version.Full(),
	}

	if s.healthCheck != nil {
		details, err := s.healthCheck()
		if err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		for k, v := range details {
			body[k] = v
		}
	}

	if s.hub != nil {
		body["websocket_connections"] = s.hub.ActiveConnections()
	}

	c.JSON(http.StatusOK, body)
}
