package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	p, err := LoadPrompt("value_investor")
	require.NoError(t, err)
	assert.Contains(t, p, "{portfolio_state}")
	assert.Contains(t, p, "{today}")

	p, err = LoadPrompt("daily_instruction")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "Please review"))

	_, err = LoadPrompt("missing")
	assert.Error(t, err)
	assert.Panics(t, func() { MustLoadPrompt("missing") })
}
