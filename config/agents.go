package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AgentConfig names one participant of the competition. ID is the model
// identifier sent to the provider and doubles as the ledger key.
type AgentConfig struct {
	ID      string `json:"id"`
	Display string `json:"display"`
}

func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{ID: "openai/gpt-5.1", Display: "GPT 5.1"},
		{ID: "anthropic/claude-opus-4.5", Display: "Claude Opus 4.5"},
		{ID: "google/gemini-3-pro-preview", Display: "Gemini 3 Pro"},
		{ID: "deepseek/deepseek-v3.2", Display: "DeepSeek V3.2"},
		{ID: "x-ai/grok-4.1-fast", Display: "Grok 4.1"},
		{ID: "qwen/qwen3-max", Display: "Qwen 3 Max"},
		{ID: "moonshotai/kimi-k2-thinking", Display: "Kimi k2"},
	}
}

// ParseAgents decodes a JSON roster such as
// [{"id":"openai/gpt-5.1","display":"GPT 5.1"}].
func ParseAgents(raw string) ([]AgentConfig, error) {
	var agents []AgentConfig
	if err := json.Unmarshal([]byte(raw), &agents); err != nil {
		return nil, fmt.Errorf("parse agents: %w", err)
	}

	seen := make(map[string]bool, len(agents))
	out := agents[:0]
	for _, a := range agents {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("parse agents: agent without id")
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("parse agents: duplicate agent %s", a.ID)
		}
		seen[a.ID] = true
		if a.Display == "" {
			a.Display = a.ID
		}
		out = append(out, a)
	}
	return out, nil
}

// FindAgent returns the configured agent with the given id.
func (c *Config) FindAgent(id string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// SelectAgents keeps the configured order and returns only the requested
// ids. An empty request selects every agent.
func (c *Config) SelectAgents(ids []string) ([]AgentConfig, error) {
	if len(ids) == 0 {
		return c.Agents, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.FindAgent(id); !ok {
			return nil, fmt.Errorf("unknown agent %s", id)
		}
		want[id] = true
	}
	var out []AgentConfig
	for _, a := range c.Agents {
		if want[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}
