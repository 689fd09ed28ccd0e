package consts

import "strings"

// ToolName identifies one research tool the agents may call.
type ToolName string

const (
	// 行情与估值
	ToolGetPrice        ToolName = "get_price"
	ToolGetRatios       ToolName = "get_ratios"
	ToolGetPriceHistory ToolName = "get_price_history"

	// 基本面
	ToolGetFinancials           ToolName = "get_financials"
	ToolGetInsiderActivity      ToolName = "get_insider_activity"
	ToolGetInstitutionalHolders ToolName = "get_institutional_holders"
	ToolGetRecommendations      ToolName = "get_recommendations"
	ToolGetSECFiling            ToolName = "get_sec_filing"

	// 选股与账户
	ToolScreenStocks ToolName = "screen_stocks"
	ToolGetPortfolio ToolName = "get_portfolio"
)

// AllTools lists every tool in the order it is advertised to the model.
var AllTools = []ToolName{
	ToolGetPrice,
	ToolGetFinancials,
	ToolGetRatios,
	ToolGetPriceHistory,
	ToolGetInsiderActivity,
	ToolGetInstitutionalHolders,
	ToolGetRecommendations,
	ToolGetSECFiling,
	ToolScreenStocks,
	ToolGetPortfolio,
}

// ParseToolName maps a model-supplied name onto the closed tool set.
func ParseToolName(name string) (ToolName, bool) {
	name = strings.TrimSpace(name)
	for _, t := range AllTools {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

func (t ToolName) String() string {
	return string(t)
}
