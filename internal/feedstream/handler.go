package feedstream

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// GinHandler upgrades an HTTP request to a WebSocket and hands it to
// hub.HandleConnection, which blocks until the client disconnects.
// allowedOrigins configures websocket.AcceptOptions.OriginPatterns; an
// empty list accepts every origin (development default).
func GinHandler(hub *Hub, allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := &websocket.AcceptOptions{}
		if len(allowedOrigins) > 0 {
			opts.OriginPatterns = allowedOrigins
		} else {
			opts.InsecureSkipVerify = true
		}

		conn, err := websocket.Accept(c.Writer, c.Request, opts)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		hub.HandleConnection(c.Request.Context(), conn)
	}
}
