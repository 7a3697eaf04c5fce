package regulatory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestMatchesEmptyFilterMatchesEverything(t *testing.T) {
	assert.True(t, matches(models.EventFilter{}, models.RegulatoryEvent{SourceName: "sec", Type: "rule", Severity: models.SeverityLow}))
}

func TestMatchesSourceIsSubstringCaseInsensitive(t *testing.T) {
	filter := models.EventFilter{Sources: []string{"SEC"}}
	assert.True(t, matches(filter, models.RegulatoryEvent{SourceName: "us-sec-enforcement"}))
	assert.False(t, matches(filter, models.RegulatoryEvent{SourceName: "finra"}))
}

func TestMatchesTypeAndSeverityAreExact(t *testing.T) {
	filter := models.EventFilter{Types: []string{"rule_change"}, Severities: []models.Severity{models.SeverityHigh}}
	assert.True(t, matches(filter, models.RegulatoryEvent{Type: "rule_change", Severity: models.SeverityHigh}))
	assert.False(t, matches(filter, models.RegulatoryEvent{Type: "rule_change", Severity: models.SeverityLow}))
	assert.False(t, matches(filter, models.RegulatoryEvent{Type: "guidance", Severity: models.SeverityHigh}))
}

func TestMatchesAndAcrossFields(t *testing.T) {
	filter := models.EventFilter{Sources: []string{"sec"}, Types: []string{"rule_change"}}
	assert.False(t, matches(filter, models.RegulatoryEvent{SourceName: "sec", Type: "guidance"}))
}
