// Package api is alertfabric's HTTP surface: a gin router exposing
// CRUD over rules/channels/incidents/subscriptions/scan jobs and
// action endpoints (acknowledge, resolve, test-channel, collaboration
// sessions), plus the feedstream WebSocket upgrade. Shaped after the
// teacher's pkg/api.Server — one struct holding references to every
// subsystem, methods as gin.HandlerFuncs, registered by a single
// Router() call.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/internal/feedstream"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

// Server wires every subsystem's store/engine into gin handlers.
type Server struct {
	ruleStore    store.RuleStore
	incidents    store.IncidentStore
	channels     store.ChannelStore
	regulatory   store.RegulatoryStore
	scanStore    store.ScanStore

	ruleEngine *rules.Engine
	notifier   *notify.Service
	feed       *activity.Feed
	scanPool   *scan.Pool
	collabMgr  *collab.Manager

	hub            *feedstream.Hub
	allowedOrigins []string

	healthCheck func() (map[string]any, error)
}

// NewServer constructs a Server. healthCheck is invoked by GET /health
// to probe downstream dependencies (e.g. the database); it may be nil.
func NewServer(
	ruleStore store.RuleStore,
	incidents store.IncidentStore,
	channels store.ChannelStore,
	regulatory store.RegulatoryStore,
	scanStore store.ScanStore,
	ruleEngine *rules.Engine,
	notifier *notify.Service,
	feed *activity.Feed,
	scanPool *scan.Pool,
	collabMgr *collab.Manager,
	hub *feedstream.Hub,
	allowedOrigins []string,
	healthCheck func() (map[string]any, error),
) *Server {
	return &Server{
		ruleStore:      ruleStore,
		incidents:      incidents,
		channels:       channels,
		regulatory:     regulatory,
		scanStore:      scanStore,
		ruleEngine:     ruleEngine,
		notifier:       notifier,
		feed:           feed,
		scanPool:       scanPool,
		collabMgr:      collabMgr,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		healthCheck:    healthCheck,
	}
}

// Router assembles the full gin.Engine. It takes no mode argument: the
// engine runs in whichever gin mode (Debug/Release/Test) the caller set
// via gin.SetMode before this is called.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.GET("/ws", feedstream.GinHandler(s.hub, s.allowedOrigins))

	v1 := r.Group("/api/v1")
	{
		rulesGroup := v1.Group("/rules")
		rulesGroup.POST("", s.CreateRule)
		rulesGroup.GET("", s.ListRules)
		rulesGroup.GET("/:id", s.GetRule)
		rulesGroup.PUT("/:id", s.UpdateRule)
		rulesGroup.DELETE("/:id", s.DeleteRule)
		rulesGroup.POST("/evaluate", s.TriggerEvaluation)

		incidentsGroup := v1.Group("/incidents")
		incidentsGroup.GET("", s.ListIncidents)
		incidentsGroup.GET("/:id", s.GetIncident)
		incidentsGroup.POST("/:id/acknowledge", s.AcknowledgeIncident)
		incidentsGroup.POST("/:id/resolve", s.ResolveIncident)

		channelsGroup := v1.Group("/channels")
		channelsGroup.POST("", s.CreateChannel)
		channelsGroup.GET("", s.ListChannels)
		channelsGroup.GET("/:id", s.GetChannel)
		channelsGroup.PUT("/:id", s.UpdateChannel)
		channelsGroup.DELETE("/:id", s.DeleteChannel)
		channelsGroup.POST("/:id/test", s.TestChannel)

		notifyGroup := v1.Group("/notifications")
		notifyGroup.POST("", s.SendNotification)

		subsGroup := v1.Group("/subscriptions")
		subsGroup.PUT("/:agent_id", s.UpsertSubscription)
		subsGroup.GET("", s.ListSubscriptions)
		subsGroup.GET("/:agent_id", s.GetSubscription)
		subsGroup.DELETE("/:agent_id", s.DeleteSubscription)

		activityGroup := v1.Group("/activity")
		activityGroup.GET("", s.QueryActivity)
		activityGroup.GET("/stats", s.FeedStats)
		activityGroup.GET("/stats/:agent_id", s.AgentStats)

		scanGroup := v1.Group("/scan")
		scanGroup.POST("/jobs", s.CreateScanJob)
		scanGroup.GET("/jobs", s.ListScanJobs)
		scanGroup.GET("/jobs/:id", s.GetScanJob)
		scanGroup.GET("/health", s.ScanHealth)

		collabGroup := v1.Group("/collab")
		collabGroup.POST("/sessions", s.CreateCollabSession)
		collabGroup.GET("/sessions/:id", s.GetCollabSession)
		collabGroup.GET("/sessions", s.ListActiveCollabSessions)
		collabGroup.POST("/sessions/:id/messages", s.SendCollabMessage)
		collabGroup.POST("/sessions/:id/feedback", s.SendCollabFeedback)
		collabGroup.POST("/sessions/:id/end", s.EndCollabSession)
		collabGroup.POST("/requests", s.CreateAssistanceRequest)
		collabGroup.GET("/requests", s.ListAssistanceRequests)
		collabGroup.POST("/requests/:id/respond", s.RespondToAssistanceRequest)
	}

	return r
}
