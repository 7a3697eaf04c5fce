package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestParseFieldExpression(t *testing.T) {
	expr, err := ParseFieldExpression("amount > 10000")
	require.NoError(t, err)
	assert.Equal(t, "amount", expr.Field)
	assert.Equal(t, models.OpGT, expr.Operator)
	assert.Equal(t, 10000.0, expr.Threshold)
}

func TestParseFieldExpressionGTE(t *testing.T) {
	expr, err := ParseFieldExpression("amount >= 500.50")
	require.NoError(t, err)
	assert.Equal(t, models.OpGE, expr.Operator)
	assert.Equal(t, 500.50, expr.Threshold)
}

func TestParseFieldExpressionInvalid(t *testing.T) {
	_, err := ParseFieldExpression("not an expression")
	assert.Error(t, err)
}

func TestParseFieldExpressionBadThreshold(t *testing.T) {
	_, err := ParseFieldExpression("amount > notanumber")
	assert.Error(t, err)
}
