package dataflows

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/ValueArena/config"
)

// Config is an alias for the main application config
type Config = config.Config

// PriceSnapshot is the current price plus headline valuation figures.
type PriceSnapshot struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name,omitempty"`
	Price         float64  `json:"price"`
	MarketCap     int64    `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	ForwardPE     *float64 `json:"forward_pe,omitempty"`
	PBRatio       *float64 `json:"pb_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	High52w       float64  `json:"52w_high,omitempty"`
	Low52w        float64  `json:"52w_low,omitempty"`
	AvgVolume     int      `json:"avg_volume,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	LotSize       int32    `json:"lot_size,omitempty"`
}

// Ratios are the valuation and quality ratios of one company. Absent
// figures stay nil.
type Ratios struct {
	Symbol       string   `json:"symbol"`
	PE           *float64 `json:"pe"`
	ForwardPE    *float64 `json:"forward_pe"`
	PEG          *float64 `json:"peg"`
	PB           *float64 `json:"pb"`
	PS           *float64 `json:"ps"`
	EVEBITDA     *float64 `json:"ev_ebitda"`
	ProfitMargin *float64 `json:"profit_margin"`
	ROE          *float64 `json:"roe"`
	ROA          *float64 `json:"roa"`
	DebtToEquity *float64 `json:"debt_to_equity"`
	CurrentRatio *float64 `json:"current_ratio"`
	QuickRatio   *float64 `json:"quick_ratio"`
}

// MarketData is one OHLCV bar.
type MarketData struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

type InsiderTransaction struct {
	Symbol           string          `json:"symbol"`
	PersonName       string          `json:"person_name"`
	Share            int64           `json:"share"`
	Change           int64           `json:"change"`
	FilingDate       string          `json:"filing_date"`
	TransactionDate  string          `json:"transaction_date"`
	TransactionCode  string          `json:"transaction_code"`
	TransactionPrice decimal.Decimal `json:"transaction_price"`
}

type InstitutionalHolder struct {
	Name       string `json:"name"`
	Share      int64  `json:"share"`
	Change     int64  `json:"change"`
	FilingDate string `json:"filing_date"`
}

type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// FinancialReport is one annual filing as reported, keyed by statement
// (income_statement, balance_sheet, cash_flow) then concept.
type FinancialReport struct {
	Year       int                           `json:"year"`
	Form       string                        `json:"form"`
	FiledDate  string                        `json:"filed_date"`
	Statements map[string]map[string]float64 `json:"statements"`
}

type Filing struct {
	Symbol      string `json:"symbol"`
	FormType    string `json:"form_type"`
	FilingDate  string `json:"filing_date,omitempty"`
	IndexURL    string `json:"index_url"`
	DocumentURL string `json:"document_url,omitempty"`
	Text        string `json:"text"`
	Truncated   bool   `json:"truncated"`
}

type ScreenCriteria struct {
	MinMarketCap *float64 `json:"min_market_cap,omitempty"`
	MaxMarketCap *float64 `json:"max_market_cap,omitempty"`
	MinPE        *float64 `json:"min_pe,omitempty"`
	MaxPE        *float64 `json:"max_pe,omitempty"`
	MinROE       *float64 `json:"min_roe,omitempty"`
	Sector       string   `json:"sector,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

type ScreenedStock struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price,omitempty"`
	MarketCap int64    `json:"market_cap,omitempty"`
	PERatio   *float64 `json:"pe_ratio,omitempty"`
	ROE       *float64 `json:"roe,omitempty"`
}

type ScreenResult struct {
	Stocks []ScreenedStock `json:"stocks"`
	Notes  []string        `json:"notes,omitempty"`
}
