package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/ValueArena/config"
)

const deepseekModel = "deepseek-chat"

// Completer is the part of an eino chat model the driver needs.
type Completer interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// NewChatModel builds the chat model for cfg.LLMProvider. With OpenRouter the
// per-agent model id is passed on every request through model.WithModel.
func NewChatModel(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenRouter, "":
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter: OPENROUTER_API_KEY is not set")
		}
		maxTokens := cfg.MaxTokensPerRun
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.OpenRouterBaseURL,
			APIKey:    cfg.OpenRouterAPIKey,
			Model:     config.DefaultAgents()[0].ID,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("openrouter: %w", err)
		}
		return chatModel, nil

	case config.ProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("deepseek: DEEPSEEK_API_KEY is not set")
		}
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     deepseekModel,
			MaxTokens: cfg.MaxTokensPerRun,
		})
		if err != nil {
			return nil, fmt.Errorf("deepseek: %w", err)
		}
		return chatModel, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

// ModelFor returns the model id sent with the request of agentID. The
// DeepSeek endpoint only serves its own models, so every agent shares one.
func ModelFor(cfg *config.Config, agentID string) string {
	if cfg.LLMProvider == config.ProviderDeepSeek {
		return deepseekModel
	}
	return agentID
}

// unavailableModel stands in for a chat model that could not be built so a
// cycle still records an error status for every agent.
type unavailableModel struct {
	err error
}

func (m unavailableModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, m.err
}

// Unavailable returns a Completer that fails every request with err.
func Unavailable(err error) Completer {
	return unavailableModel{err: err}
}
