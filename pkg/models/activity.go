package models

import "time"

// AgentActivityEvent is one immutable lifecycle or decision record
// emitted by an agent.
type AgentActivityEvent struct {
	EventID      string         `json:"event_id"`
	AgentID      string         `json:"agent_id"`
	ActivityType string         `json:"activity_type"`
	Severity     Severity       `json:"severity"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Decision     string         `json:"decision,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// AgentActivityStats are incrementally-maintained aggregates for one agent.
type AgentActivityStats struct {
	AgentID        string           `json:"agent_id"`
	TotalByType    map[string]int   `json:"total_by_type"`
	TotalBySeverity map[string]int  `json:"total_by_severity"`
	LastSeen       time.Time        `json:"last_seen"`
	EventCount     int              `json:"event_count"`
}

// FeedStats aggregates across the whole activity feed.
type FeedStats struct {
	TotalAgents int `json:"total_agents"`
	TotalEvents int `json:"total_events"`
}

// ActivityFilter is the predicate used both for subscription matching
// and for querying the feed. Matching is AND across populated fields.
type ActivityFilter struct {
	AgentIDs       []string   `json:"agent_ids,omitempty"`
	ActivityTypes  []string   `json:"activity_types,omitempty"`
	Severities     []Severity `json:"severities,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`
	TextContains   string     `json:"text_contains,omitempty"`
	MaxResults     int        `json:"max_results,omitempty"`
}

// ExportFormat enumerates export_activities output encodings.
type ExportFormat string

// Supported export formats.
const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXML  ExportFormat = "xml"
)
