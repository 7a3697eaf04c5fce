package activity

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/regulens/alertfabric/pkg/models"
)

// xmlEvents wraps a slice for a valid XML document root, since
// encoding/xml cannot marshal a bare slice.
type xmlEvents struct {
	XMLName xml.Name                    `xml:"activities"`
	Events  []models.AgentActivityEvent `xml:"event"`
}

// ExportActivities renders events in the requested format, per
// spec.md §4.4's export_activities(filter, format).
func ExportActivities(events []models.AgentActivityEvent, format models.ExportFormat) ([]byte, error) {
	switch format {
	case models.ExportJSON:
		return json.MarshalIndent(events, "", "  ")
	case models.ExportCSV:
		return exportCSV(events)
	case models.ExportXML:
		return xml.MarshalIndent(xmlEvents{Events: events}, "", "  ")
	default:
		return nil, fmt.Errorf("activity: unsupported export format %q", format)
	}
}

func exportCSV(events []models.AgentActivityEvent) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"event_id", "agent_id", "activity_type", "severity", "title", "description", "decision", "timestamp"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range events {
		row := []string{
			e.EventID, e.AgentID, e.ActivityType, string(e.Severity),
			e.Title, e.Description, e.Decision, e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
