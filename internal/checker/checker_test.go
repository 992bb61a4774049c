package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValidOutput(t *testing.T) {
	issues, err := New().Check(context.Background(), "let x = 1;\nfunction f(a) { return a * 2; }\n")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckReportsUnbalancedBraces(t *testing.T) {
	issues, err := New().Check(context.Background(), "function f() { return 1;\n")
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestCheckReportsPosition(t *testing.T) {
	issues, err := New().Check(context.Background(), "let x = ;\n")
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.GreaterOrEqual(t, issues[0].Line, 1)
}
