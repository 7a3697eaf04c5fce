package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestCreateAndGetRule(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	createReq := models.CreateRuleRequest{
		Name:            "large transfer",
		Type:            models.RuleTypeThreshold,
		Severity:        models.SeverityHigh,
		Condition:       models.Condition{Metric: "amount", Operator: models.OpGT, Threshold: 10000},
		CooldownMinutes: 5,
		Enabled:         true,
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/rules", createReq)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.AlertRule
	decodeJSON(t, rec, &created)
	assert.NotEmpty(t, created.RuleID)
	assert.Equal(t, "large transfer", created.Name)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/rules/"+created.RuleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched models.AlertRule
	decodeJSON(t, rec, &fetched)
	assert.Equal(t, created.RuleID, fetched.RuleID)
}

func TestGetRuleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/rules/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteRule(t *testing.T) {
	srv, store := newTestServer(t)
	r := srv.Router()

	rule := &models.AlertRule{RuleID: "r1", Name: "original", Type: models.RuleTypeThreshold, Severity: models.SeverityLow}
	require.NoError(t, store.CreateRule(nil, rule))

	update := models.CreateRuleRequest{Name: "renamed", Type: models.RuleTypeThreshold, Severity: models.SeverityMedium, Enabled: true}
	rec := doJSON(t, r, http.MethodPut, "/api/v1/rules/r1", update)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.AlertRule
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, models.SeverityMedium, updated.Severity)

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/rules/r1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/rules/r1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRulesFiltersByEnabled(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.CreateRule(nil, &models.AlertRule{RuleID: "a", Name: "a", Enabled: true}))
	require.NoError(t, store.CreateRule(nil, &models.AlertRule{RuleID: "b", Name: "b", Enabled: false}))

	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/rules?enabled=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []*models.AlertRule
	decodeJSON(t, rec, &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, "a", rules[0].RuleID)
}

func TestTriggerEvaluation(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/rules/evaluate", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
