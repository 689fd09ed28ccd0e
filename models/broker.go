package models

// FillResult is the brokerage's report for one order. Error is the
// structured error marker stored when the order could not be placed.
type FillResult struct {
	OrderID        string  `json:"order_id,omitempty"`
	Status         string  `json:"status,omitempty"`
	FilledQty      float64 `json:"filled_qty,omitempty"`
	FilledAvgPrice float64 `json:"filled_avg_price,omitempty"`
	Error          string  `json:"error,omitempty"`
}

func (f FillResult) Failed() bool {
	return f.Error != ""
}

type AccountPosition struct {
	Ticker           string  `json:"ticker"`
	Shares           float64 `json:"shares"`
	EntryPrice       float64 `json:"entry_price"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
}

// AccountSnapshot is the brokerage's view of an account.
type AccountSnapshot struct {
	Cash       float64           `json:"cash"`
	TotalValue float64           `json:"total_value"`
	Positions  []AccountPosition `json:"positions"`
}
