package regulatory

import (
	"strings"

	"github.com/regulens/alertfabric/pkg/models"
)

// matches implements spec.md §4.3's filter semantics: empty lists
// match everything; non-empty lists are OR within a field, AND across
// fields. Source is substring, type/severity are exact. Jurisdiction
// is not a field on RegulatoryEvent (it lives inside the upstream
// monitor's impact_assessment payload, if present at all), so
// filter.Jurisdictions is accepted for subscription shape parity but
// not evaluated here.
func matches(filter models.EventFilter, event models.RegulatoryEvent) bool {
	if len(filter.Sources) > 0 && !anySubstring(filter.Sources, event.SourceName) {
		return false
	}
	if len(filter.Types) > 0 && !anyExact(filter.Types, event.Type) {
		return false
	}
	if len(filter.Severities) > 0 && !anySeverity(filter.Severities, event.Severity) {
		return false
	}
	return true
}

func anySubstring(candidates []string, value string) bool {
	lower := strings.ToLower(value)
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func anyExact(candidates []string, value string) bool {
	for _, c := range candidates {
		if c == value {
			return true
		}
	}
	return false
}

func anySeverity(candidates []models.Severity, value models.Severity) bool {
	for _, c := range candidates {
		if c == value {
			return true
		}
	}
	return false
}
