package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/pkg/models"
)

// CreateCollabSession handles POST /api/v1/collab/sessions.
func (s *Server) CreateCollabSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := s.collabMgr.CreateSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetCollabSession handles GET /api/v1/collab/sessions/:id.
func (s *Server) GetCollabSession(c *gin.Context) {
	session, err := s.collabMgr.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListActiveCollabSessions handles GET /api/v1/collab/sessions.
func (s *Server) ListActiveCollabSessions(c *gin.Context) {
	c.JSON(http.StatusOK, s.collabMgr.ListActiveSessions())
}

// SendCollabMessage handles POST /api/v1/collab/sessions/:id/messages.
func (s *Server) SendCollabMessage(c *gin.Context) {
	var msg models.CollabMessage
	if !bindJSON(c, &msg) {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	if err := s.collabMgr.SendMessage(c.Request.Context(), c.Param("id"), msg); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// SendCollabFeedback handles POST /api/v1/collab/sessions/:id/feedback.
func (s *Server) SendCollabFeedback(c *gin.Context) {
	var fb models.Feedback
	if !bindJSON(c, &fb) {
		return
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}

	if err := s.collabMgr.RecordFeedback(c.Request.Context(), c.Param("id"), fb); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type endSessionRequest struct {
	FinalState models.CollabSessionState `json:"final_state" binding:"required"`
}

// EndCollabSession handles POST /api/v1/collab/sessions/:id/end.
func (s *Server) EndCollabSession(c *gin.Context) {
	var req endSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.collabMgr.EndSession(c.Request.Context(), c.Param("id"), req.FinalState); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createAssistanceRequestRequest struct {
	AgentID    string         `json:"agent_id" binding:"required"`
	Kind       string         `json:"kind" binding:"required"`
	Payload    map[string]any `json:"payload"`
	TTLSeconds int            `json:"ttl_seconds"`
}

// CreateAssistanceRequest handles POST /api/v1/collab/requests.
func (s *Server) CreateAssistanceRequest(c *gin.Context) {
	var req createAssistanceRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	ar, err := s.collabMgr.CreateAssistanceRequest(req.AgentID, req.Kind, req.Payload, ttl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ar)
}

// ListAssistanceRequests handles GET /api/v1/collab/requests?agent_id=.
func (s *Server) ListAssistanceRequests(c *gin.Context) {
	c.JSON(http.StatusOK, s.collabMgr.PendingRequests(c.Query("agent_id")))
}

type respondToRequestRequest struct {
	UserID   string         `json:"user_id" binding:"required"`
	Response map[string]any `json:"response"`
}

// RespondToAssistanceRequest handles POST /api/v1/collab/requests/:id/respond.
func (s *Server) RespondToAssistanceRequest(c *gin.Context) {
	var req respondToRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.collabMgr.RespondToRequest(c.Param("id"), req.Response, req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
