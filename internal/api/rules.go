package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/regulens/alertfabric/pkg/models"
)

// CreateRule handles POST /api/v1/rules.
func (s *Server) CreateRule(c *gin.Context) {
	var req models.CreateRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	now := time.Now()
	rule := &models.AlertRule{
		RuleID:          uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.Type,
		Severity:        req.Severity,
		Condition:       req.Condition,
		CooldownMinutes: req.CooldownMinutes,
		Enabled:         req.Enabled,
		ChannelIDs:      req.ChannelIDs,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.ruleStore.CreateRule(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules handles GET /api/v1/rules.
func (s *Server) ListRules(c *gin.Context) {
	filters := models.RuleFilters{
		EnabledOnly: c.Query("enabled") == "true",
		Type:        models.RuleType(c.Query("type")),
	}
	rules, err := s.ruleStore.ListRules(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// GetRule handles GET /api/v1/rules/:id.
func (s *Server) GetRule(c *gin.Context) {
	rule, err := s.ruleStore.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule handles PUT /api/v1/rules/:id.
func (s *Server) UpdateRule(c *gin.Context) {
	ruleID := c.Param("id")
	existing, err := s.ruleStore.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Type = req.Type
	existing.Severity = req.Severity
	existing.Condition = req.Condition
	existing.CooldownMinutes = req.CooldownMinutes
	existing.Enabled = req.Enabled
	existing.ChannelIDs = req.ChannelIDs
	existing.UpdatedAt = time.Now()

	if err := s.ruleStore.UpdateRule(c.Request.Context(), existing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DeleteRule handles DELETE /api/v1/rules/:id.
func (s *Server) DeleteRule(c *gin.Context) {
	if err := s.ruleStore.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TriggerEvaluation handles POST /api/v1/rules/evaluate, forcing an
// out-of-cycle evaluation pass of every enabled rule.
func (s *Server) TriggerEvaluation(c *gin.Context) {
	s.ruleEngine.TriggerEvaluation()
	c.JSON(http.StatusAccepted, gin.H{"status": "evaluation triggered"})
}
