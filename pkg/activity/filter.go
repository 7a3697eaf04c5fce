package activity

import (
	"strings"

	"github.com/regulens/alertfabric/pkg/models"
)

// matches implements spec.md §4.4's filter semantics: AND across
// every populated field, substring match on title/description.
func matches(filter models.ActivityFilter, event models.AgentActivityEvent) bool {
	if len(filter.AgentIDs) > 0 && !contains(filter.AgentIDs, event.AgentID) {
		return false
	}
	if len(filter.ActivityTypes) > 0 && !contains(filter.ActivityTypes, event.ActivityType) {
		return false
	}
	if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, event.Severity) {
		return false
	}
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Timestamp.After(*filter.Until) {
		return false
	}
	if filter.TextContains != "" {
		needle := strings.ToLower(filter.TextContains)
		if !strings.Contains(strings.ToLower(event.Title), needle) &&
			!strings.Contains(strings.ToLower(event.Description), needle) {
			return false
		}
	}
	return true
}

func contains(candidates []string, value string) bool {
	for _, c := range candidates {
		if c == value {
			return true
		}
	}
	return false
}

func containsSeverity(candidates []models.Severity, value models.Severity) bool {
	for _, c := range candidates {
		if c == value {
			return true
		}
	}
	return false
}
