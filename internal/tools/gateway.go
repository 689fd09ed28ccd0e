// Package tools is the research tool gateway: a closed set of named tools
// the agents may call, each of which reports failures as data.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/consts"
)

var ErrUnknownTool = errors.New("unknown tool")

// Gateway maps each consts.ToolName to its tool. It is built per agent so
// get_portfolio reads that agent's account.
type Gateway struct {
	tools map[consts.ToolName]tool.InvokableTool
	log   zerolog.Logger
}

func NewGateway(r Researcher, acct AccountReader, log zerolog.Logger) *Gateway {
	return &Gateway{
		tools: map[consts.ToolName]tool.InvokableTool{
			consts.ToolGetPrice:                newPriceTool(r),
			consts.ToolGetFinancials:           newFinancialsTool(r),
			consts.ToolGetRatios:               newRatiosTool(r),
			consts.ToolGetPriceHistory:         newPriceHistoryTool(r),
			consts.ToolGetInsiderActivity:      newInsiderTool(r),
			consts.ToolGetInstitutionalHolders: newHoldersTool(r),
			consts.ToolGetRecommendations:      newRecommendationsTool(r),
			consts.ToolGetSECFiling:            newSECFilingTool(r),
			consts.ToolScreenStocks:            newScreenTool(r),
			consts.ToolGetPortfolio:            newPortfolioTool(acct),
		},
		log: log.With().Str("component", "tools").Logger(),
	}
}

// Infos returns the tool schema advertised to the model, in consts.AllTools
// order.
func (g *Gateway) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(consts.AllTools))
	for _, name := range consts.AllTools {
		t, ok := g.tools[name]
		if !ok {
			continue
		}
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Lookup resolves a model-supplied tool name.
func (g *Gateway) Lookup(name string) (tool.InvokableTool, error) {
	tn, ok := consts.ParseToolName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	t, ok := g.tools[tn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Dispatch runs one tool call and always returns content for the tool
// message: the JSON result, an {"error": ...} object, or an inline string
// for unknown tools.
func (g *Gateway) Dispatch(ctx context.Context, name, argsJSON string) (out string) {
	t, err := g.Lookup(name)
	if err != nil {
		g.log.Warn().Str("tool", name).Msg("model requested unknown tool")
		return fmt.Sprintf("Error: Tool %s not found.", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error().Str("tool", name).Interface("panic", rec).Msg("tool panicked")
			out = errorResult(fmt.Errorf("tool %s panicked: %v", name, rec))
		}
	}()

	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	res, err := t.InvokableRun(ctx, argsJSON)
	if err != nil {
		g.log.Warn().Err(err).Str("tool", name).Msg("tool call failed")
		return errorResult(err)
	}
	return res
}

func errorResult(err error) string {
	data, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error":"internal error"}`
	}
	return string(data)
}
