package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/dataflows"
	"github.com/dyike/ValueArena/models"
)

// maxHistoryBars keeps long periods from flooding the conversation.
const maxHistoryBars = 260

// Researcher is the market-data side of the gateway.
type Researcher interface {
	Price(ctx context.Context, symbol string) (*dataflows.PriceSnapshot, error)
	Ratios(ctx context.Context, symbol string) (*dataflows.Ratios, error)
	Financials(ctx context.Context, symbol string) ([]dataflows.FinancialReport, error)
	PriceHistory(ctx context.Context, symbol, period string) ([]*dataflows.MarketData, error)
	InsiderActivity(ctx context.Context, symbol string) ([]dataflows.InsiderTransaction, error)
	InstitutionalHolders(ctx context.Context, symbol string) ([]dataflows.InstitutionalHolder, error)
	Recommendations(ctx context.Context, symbol string) ([]dataflows.Recommendation, error)
	SECFiling(ctx context.Context, symbol, formType string) (*dataflows.Filing, error)
	Screen(ctx context.Context, c dataflows.ScreenCriteria) (*dataflows.ScreenResult, error)
}

// AccountReader is the brokerage account get_portfolio reports on.
type AccountReader interface {
	AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error)
}

type TickerInput struct {
	Ticker string `json:"ticker"`
}

type PriceHistoryInput struct {
	Ticker string `json:"ticker"`
	Period string `json:"period"`
}

type PriceHistoryOutput struct {
	Ticker    string                  `json:"ticker"`
	Period    string                  `json:"period"`
	Bars      []*dataflows.MarketData `json:"bars"`
	Truncated bool                    `json:"truncated,omitempty"`
}

type SECFilingInput struct {
	Ticker     string `json:"ticker"`
	FilingType string `json:"filing_type"`
}

type PortfolioInput struct{}

var tickerParams = map[string]*schema.ParameterInfo{
	"ticker": {
		Type:     schema.String,
		Desc:     "Stock ticker symbol",
		Required: true,
	},
}

func requireTicker(in TickerInput) error {
	if in.Ticker == "" {
		return fmt.Errorf("ticker parameter is required")
	}
	return nil
}

func newPriceTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetPrice.String(),
			Desc:        "Get current price and basic stats for a stock.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) (*dataflows.PriceSnapshot, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.Price(ctx, in.Ticker)
		},
	)
}

func newFinancialsTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetFinancials.String(),
			Desc:        "Get income statement, balance sheet, and cash flow for 3 years.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) ([]dataflows.FinancialReport, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.Financials(ctx, in.Ticker)
		},
	)
}

func newRatiosTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetRatios.String(),
			Desc:        "Get key valuation and quality ratios.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) (*dataflows.Ratios, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.Ratios(ctx, in.Ticker)
		},
	)
}

func newPriceHistoryTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolGetPriceHistory.String(),
			Desc: "Get OHLCV price history.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": tickerParams["ticker"],
				"period": {
					Type: schema.String,
					Desc: "History window, default 1y",
					Enum: []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"},
				},
			}),
		},
		func(ctx context.Context, in PriceHistoryInput) (*PriceHistoryOutput, error) {
			if in.Ticker == "" {
				return nil, fmt.Errorf("ticker parameter is required")
			}
			if in.Period == "" {
				in.Period = "1y"
			}
			bars, err := r.PriceHistory(ctx, in.Ticker, in.Period)
			if err != nil {
				return nil, err
			}
			out := &PriceHistoryOutput{Ticker: in.Ticker, Period: in.Period, Bars: bars}
			if len(bars) > maxHistoryBars {
				out.Bars = bars[len(bars)-maxHistoryBars:]
				out.Truncated = true
			}
			return out, nil
		},
	)
}

func newInsiderTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetInsiderActivity.String(),
			Desc:        "Get recent insider transactions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) ([]dataflows.InsiderTransaction, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.InsiderActivity(ctx, in.Ticker)
		},
	)
}

func newHoldersTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetInstitutionalHolders.String(),
			Desc:        "Get top institutional holders.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) ([]dataflows.InstitutionalHolder, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.InstitutionalHolders(ctx, in.Ticker)
		},
	)
}

func newRecommendationsTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetRecommendations.String(),
			Desc:        "Get analyst recommendations.",
			ParamsOneOf: schema.NewParamsOneOfByParams(tickerParams),
		},
		func(ctx context.Context, in TickerInput) ([]dataflows.Recommendation, error) {
			if err := requireTicker(in); err != nil {
				return nil, err
			}
			return r.Recommendations(ctx, in.Ticker)
		},
	)
}

func newSECFilingTool(r Researcher) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolGetSECFiling.String(),
			Desc: "Get SEC filing text.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": tickerParams["ticker"],
				"filing_type": {
					Type: schema.String,
					Desc: "Form type such as 10-K or 10-Q, default 10-K",
				},
			}),
		},
		func(ctx context.Context, in SECFilingInput) (*dataflows.Filing, error) {
			if in.Ticker == "" {
				return nil, fmt.Errorf("ticker parameter is required")
			}
			return r.SECFiling(ctx, in.Ticker, in.FilingType)
		},
	)
}

func newScreenTool(r Researcher) tool.InvokableTool {
	number := func(desc string) *schema.ParameterInfo {
		return &schema.ParameterInfo{Type: schema.Number, Desc: desc}
	}
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolScreenStocks.String(),
			Desc: "Screen stocks by criteria.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"min_market_cap": number("Minimum market cap in USD"),
				"max_market_cap": number("Maximum market cap in USD"),
				"min_pe":         number("Minimum trailing P/E"),
				"max_pe":         number("Maximum trailing P/E"),
				"min_roe":        number("Minimum return on equity, percent"),
				"sector":         {Type: schema.String, Desc: "Sector name"},
				"limit":          {Type: schema.Integer, Desc: "Maximum results, default 50"},
			}),
		},
		func(ctx context.Context, in dataflows.ScreenCriteria) (*dataflows.ScreenResult, error) {
			return r.Screen(ctx, in)
		},
	)
}

func newPortfolioTool(acct AccountReader) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetPortfolio.String(),
			Desc:        "Get current portfolio state.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, _ PortfolioInput) (*models.AccountSnapshot, error) {
			if acct == nil {
				return nil, fmt.Errorf("no brokerage account configured")
			}
			return acct.AccountSnapshot(ctx)
		},
	)
}
