package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/ValueArena/internal/utils"
	"github.com/dyike/ValueArena/models"
)

var (
	systemTpl       = utils.MustLoadPrompt("value_investor")
	userInstruction = strings.TrimSpace(utils.MustLoadPrompt("daily_instruction"))
)

// PortfolioState serializes the ledger the way it is shown to the model.
func PortfolioState(l *models.Ledger) (string, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize ledger %s: %w", l.ModelID, err)
	}
	return string(data), nil
}

// InitialMessages renders the system prompt for l and appends the daily
// instruction.
func InitialMessages(ctx context.Context, l *models.Ledger, today string) ([]*schema.Message, error) {
	state, err := PortfolioState(l)
	if err != nil {
		return nil, err
	}

	promptTemp := prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemTpl),
		schema.UserMessage(userInstruction),
	)
	msgs, err := promptTemp.Format(ctx, map[string]any{
		"portfolio_state": state,
		"today":           today,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	return msgs, nil
}
