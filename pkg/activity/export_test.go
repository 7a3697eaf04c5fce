package activity

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func sampleEvents() []models.AgentActivityEvent {
	return []models.AgentActivityEvent{
		{EventID: "e1", AgentID: "a1", ActivityType: "decision", Severity: models.SeverityHigh, Title: "t1", Timestamp: time.Unix(0, 0).UTC()},
	}
}

func TestExportActivitiesJSON(t *testing.T) {
	out, err := ExportActivities(sampleEvents(), models.ExportJSON)
	require.NoError(t, err)
	var decoded []models.AgentActivityEvent
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded, 1)
}

func TestExportActivitiesCSV(t *testing.T) {
	out, err := ExportActivities(sampleEvents(), models.ExportCSV)
	require.NoError(t, err)
	r := csv.NewReader(strings.NewReader(string(out)))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "e1", rows[1][0])
}

func TestExportActivitiesXML(t *testing.T) {
	out, err := ExportActivities(sampleEvents(), models.ExportXML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<activities>")
	assert.Contains(t, string(out), "e1")
}

func TestExportActivitiesUnsupportedFormat(t *testing.T) {
	_, err := ExportActivities(sampleEvents(), models.ExportFormat("yaml"))
	assert.Error(t, err)
}
