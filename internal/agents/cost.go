package agents

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// DefaultRatePer1K is charged for models missing from the rate table.
const DefaultRatePer1K = 0.01

type modelRate struct {
	match string
	per1K float64
}

// Matched by substring of the model id, first hit wins.
var modelRates = []modelRate{
	{"gpt-5.1", 0.06},
	{"claude-sonnet-4-5", 0.015},
	{"gemini-3-pro", 0.002},
	{"deepseek-chat-v3.1", 0.001},
	{"grok-4", 0.01},
	{"qwen3-max", 0.005},
	{"kimi-k2-thinking", 0.005},
	{"openai/gpt-3.5-turbo", 0.001},
}

// RateFor returns the $/1k token rate of modelID.
func RateFor(modelID string) float64 {
	for _, r := range modelRates {
		if strings.Contains(modelID, r.match) {
			return r.per1K
		}
	}
	return DefaultRatePer1K
}

// EstimateCost prices one completion from its token counts.
func EstimateCost(modelID string, promptTokens, completionTokens int) float64 {
	total := promptTokens + completionTokens
	if total <= 0 {
		return 0
	}
	return float64(total) / 1000 * RateFor(modelID)
}

// UsageCost prices a response message. Missing usage costs nothing.
func UsageCost(modelID string, msg *schema.Message) float64 {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return 0
	}
	u := msg.ResponseMeta.Usage
	return EstimateCost(modelID, u.PromptTokens, u.CompletionTokens)
}

// Budget is the spend counter of one daily cycle. It is shared by every
// agent of the cycle and is not safe for concurrent use.
type Budget struct {
	Cap   float64
	Spent float64
}

func NewBudget(limit float64) *Budget {
	return &Budget{Cap: limit}
}

// Exhausted reports whether no further model call may be made.
func (b *Budget) Exhausted() bool {
	return b != nil && b.Spent >= b.Cap
}

func (b *Budget) Add(cost float64) {
	if b != nil && cost > 0 {
		b.Spent += cost
	}
}

func (b *Budget) Remaining() float64 {
	if b == nil || b.Spent >= b.Cap {
		return 0
	}
	return b.Cap - b.Spent
}
