package models

// Position is one holding of a ledger. Market value and the P&L fields are
// derived from the last price the ledger was revalued with.
type Position struct {
	Ticker           string  `json:"ticker"`
	Shares           float64 `json:"shares"`
	EntryPrice       float64 `json:"entry_price"`
	EntryDate        string  `json:"entry_date,omitempty"`
	Thesis           string  `json:"thesis,omitempty"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
}

// TradeRecord is the persisted, append-only form of an executed intent.
type TradeRecord struct {
	ID           string     `json:"id"`
	Date         string     `json:"date"`
	Action       string     `json:"action"`
	Ticker       string     `json:"ticker"`
	AmountUSD    *float64   `json:"amount_usd,omitempty"`
	Shares       *Shares    `json:"shares,omitempty"`
	SharesFilled float64    `json:"shares_filled,omitempty"`
	Price        float64    `json:"price,omitempty"`
	Thesis       string     `json:"thesis,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	Result       FillResult `json:"result"`
}

type ResearchLog struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

type NavPoint struct {
	Date string  `json:"date"`
	NAV  float64 `json:"nav"`
}

// Ledger is the persisted portfolio of one agent.
type Ledger struct {
	ModelID         string        `json:"model_id"`
	DisplayName     string        `json:"display_name,omitempty"`
	StartingCapital float64       `json:"starting_capital"`
	Cash            float64       `json:"cash"`
	RealizedPnL     float64       `json:"realized_pnl"`
	Positions       []Position    `json:"positions"`
	TradeHistory    []TradeRecord `json:"trade_history"`
	ResearchLogs    []ResearchLog `json:"research_logs"`
	NavHistory      []NavPoint    `json:"nav_history"`
}

// Position returns the holding for ticker and its index, or -1.
func (l *Ledger) Position(ticker string) (*Position, int) {
	for i := range l.Positions {
		if l.Positions[i].Ticker == ticker {
			return &l.Positions[i], i
		}
	}
	return nil, -1
}

// LatestNAV returns the most recent nav_history value, or the starting
// capital for an empty history.
func (l *Ledger) LatestNAV() float64 {
	if n := len(l.NavHistory); n > 0 {
		return l.NavHistory[n-1].NAV
	}
	return l.StartingCapital
}
