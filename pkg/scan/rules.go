package scan

import (
	"fmt"
	"log/slog"

	"github.com/regulens/alertfabric/internal/condition"
	"github.com/regulens/alertfabric/pkg/models"
)

// evaluateFraudRule dispatches on rule.Type, mirroring pkg/rules's
// tagged-variant evaluator shape. A malformed definition is logged
// and treated as no-fire rather than aborting the scan, per
// spec.md §4.5.
func evaluateFraudRule(rule *models.FraudRule, txn models.Transaction) bool {
	switch rule.Type {
	case models.FraudRuleThreshold:
		return evaluateThresholdRule(rule, txn)
	case models.FraudRulePattern:
		return evaluatePatternRule(rule, txn)
	case models.FraudRuleVelocity:
		return evaluateVelocityRule(rule, txn)
	default:
		slog.Error("unknown fraud rule type", "rule_id", rule.RuleID, "type", rule.Type)
		return false
	}
}

// evaluateThresholdRule parses definitions like "amount > 10000" via
// internal/condition's field expression parser, then compares the named
// transaction field with condition.CompareThreshold, the comparison
// pkg/rules's threshold evaluator also uses.
func evaluateThresholdRule(rule *models.FraudRule, txn models.Transaction) bool {
	expr, err := condition.ParseFieldExpression(rule.Definition)
	if err != nil {
		slog.Error("invalid threshold fraud rule definition", "rule_id", rule.RuleID, "definition", rule.Definition, "error", err)
		return false
	}

	value, err := transactionField(txn, expr.Field)
	if err != nil {
		slog.Error("unknown transaction field in fraud rule", "rule_id", rule.RuleID, "field", expr.Field, "error", err)
		return false
	}

	fire, err := condition.CompareThreshold(value, expr.Operator, expr.Threshold)
	if err != nil {
		slog.Error("fraud rule comparison failed", "rule_id", rule.RuleID, "error", err)
		return false
	}
	return fire
}

func transactionField(txn models.Transaction, field string) (float64, error) {
	switch field {
	case "amount":
		return txn.Amount, nil
	default:
		return 0, fmt.Errorf("unsupported field %q", field)
	}
}

// evaluatePatternRule dispatches named structural patterns — a fixed,
// small vocabulary rather than a generic regex engine, per spec.md
// §4.5's enumerated pattern names.
func evaluatePatternRule(rule *models.FraudRule, txn models.Transaction) bool {
	switch rule.Definition {
	case "same_account":
		return txn.FromAccount != "" && txn.FromAccount == txn.ToAccount
	case "international_high_value":
		return txn.Type == "international" && txn.Amount > 5000
	case "unusual_currency":
		return txn.Currency != "" && txn.Currency != "USD" && txn.Amount > 1000
	default:
		slog.Error("unknown fraud pattern name", "rule_id", rule.RuleID, "definition", rule.Definition)
		return false
	}
}

// evaluateVelocityRule is a simplified current-row heuristic in lieu
// of a historical window (spec.md §4.5 explicitly permits this
// simplification): flags any transaction whose single amount already
// exceeds the rule's parsed threshold, since per-account rate state
// is out of this pool's scope.
func evaluateVelocityRule(rule *models.FraudRule, txn models.Transaction) bool {
	expr, err := condition.ParseFieldExpression(rule.Definition)
	if err != nil {
		slog.Error("invalid velocity fraud rule definition", "rule_id", rule.RuleID, "definition", rule.Definition, "error", err)
		return false
	}
	return txn.Amount > expr.Threshold
}
