package agents

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestRateFor(t *testing.T) {
	tests := []struct {
		model string
		rate  float64
	}{
		{"openai/gpt-5.1", 0.06},
		{"anthropic/claude-sonnet-4-5", 0.015},
		{"google/gemini-3-pro-preview", 0.002},
		{"deepseek/deepseek-chat-v3.1", 0.001},
		{"x-ai/grok-4.1-fast", 0.01},
		{"qwen/qwen3-max", 0.005},
		{"moonshotai/kimi-k2-thinking", 0.005},
		{"openai/gpt-3.5-turbo", 0.001},
		{"anthropic/claude-opus-4.5", DefaultRatePer1K},
		{"", DefaultRatePer1K},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.rate, RateFor(tt.model))
		})
	}
}

func TestEstimateCost(t *testing.T) {
	assert.InDelta(t, 0.09, EstimateCost("openai/gpt-5.1", 1000, 500), 1e-9)
	assert.Zero(t, EstimateCost("openai/gpt-5.1", 0, 0))
	assert.Zero(t, UsageCost("x", nil))
	assert.Zero(t, UsageCost("x", schema.AssistantMessage("", nil)))
}

func TestBudget(t *testing.T) {
	b := NewBudget(1)
	assert.False(t, b.Exhausted())
	b.Add(0.4)
	b.Add(-1)
	assert.InDelta(t, 0.6, b.Remaining(), 1e-9)
	b.Add(0.6)
	assert.True(t, b.Exhausted())
	assert.Zero(t, b.Remaining())

	var none *Budget
	assert.False(t, none.Exhausted())
	none.Add(1)
}
