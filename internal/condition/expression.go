package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/regulens/alertfabric/pkg/models"
)

// FieldExpression is a parsed "<field> <op> <threshold>" definition,
// e.g. "amount > 10000". Grounded on fraud_scan_worker.cpp's threshold
// parsing, reusing the same CompareOp set threshold rules dispatch on.
type FieldExpression struct {
	Field     string
	Operator  models.CompareOp
	Threshold float64
}

var expressionOperators = map[string]models.CompareOp{
	">=": models.OpGE,
	"<=": models.OpLE,
	"==": models.OpEQ,
	"!=": models.OpNE,
	">":  models.OpGT,
	"<":  models.OpLT,
}

// orderedOperatorTokens preserves two-character operators ahead of
// their one-character prefixes so ">=" is not mis-split as ">" + "=".
var orderedOperatorTokens = []string{">=", "<=", "==", "!=", ">", "<"}

// ParseFieldExpression parses a definition like "amount > 10000" into
// its field, operator, and threshold. Returns an error for a malformed
// definition — callers must treat that as "no fire", never abort the
// scan, per spec.md §4.5.
func ParseFieldExpression(definition string) (FieldExpression, error) {
	for _, token := range orderedOperatorTokens {
		idx := strings.Index(definition, token)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(definition[:idx])
		rest := strings.TrimSpace(definition[idx+len(token):])
		if field == "" || rest == "" {
			continue
		}
		threshold, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return FieldExpression{}, fmt.Errorf("condition: invalid threshold in expression %q: %w", definition, err)
		}
		return FieldExpression{Field: field, Operator: expressionOperators[token], Threshold: threshold}, nil
	}
	return FieldExpression{}, fmt.Errorf("condition: no recognized operator in expression %q", definition)
}
