package broker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/ValueArena/models"
)

const (
	AlpacaPaperURL = "https://paper-api.alpaca.markets"
	AlpacaLiveURL  = "https://api.alpaca.markets"
)

// Alpaca talks to the Alpaca trading REST API.
type Alpaca struct {
	client       *resty.Client
	hasKeys      bool
	pollAttempts int
	pollInterval time.Duration
	log          zerolog.Logger
}

type AlpacaConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration
	// Fill polling after submission.
	PollAttempts int
	PollInterval time.Duration
}

func NewAlpaca(cfg AlpacaConfig, log zerolog.Logger) *Alpaca {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AlpacaPaperURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = 5
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("APCA-API-KEY-ID", cfg.APIKey)
	client.SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)
	client.SetHeader("Accept", "application/json")

	return &Alpaca{
		client:       client,
		hasKeys:      cfg.APIKey != "" && cfg.SecretKey != "",
		pollAttempts: cfg.PollAttempts,
		pollInterval: cfg.PollInterval,
		log:          log.With().Str("component", "alpaca").Logger(),
	}
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty,omitempty"`
	Notional    string `json:"notional,omitempty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

type alpacaOrder struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	FilledQty      string  `json:"filled_qty"`
	FilledAvgPrice *string `json:"filled_avg_price"`
}

type alpacaError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Alpaca) ExecuteTrade(ctx context.Context, order Order) (*models.FillResult, error) {
	if !a.hasKeys {
		return nil, ErrMissingCredentials
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	req := alpacaOrderRequest{
		Symbol:      order.Ticker,
		Side:        strings.ToLower(order.Side),
		Type:        "market",
		TimeInForce: "day",
	}
	if order.ByQuantity() {
		req.Qty = decimal.NewFromFloat(order.Quantity).Round(9).String()
	} else {
		req.Notional = decimal.NewFromFloat(order.Notional).Round(2).String()
	}

	var placed alpacaOrder
	var apiErr alpacaError
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&placed).
		SetError(&apiErr).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("order rejected (%d): %s", resp.StatusCode(), firstNonEmpty(apiErr.Message, resp.String()))
	}
	a.log.Info().Str("order_id", placed.ID).Str("symbol", order.Ticker).Str("side", req.Side).Msg("order submitted")

	final := placed
	for i := 0; i < a.pollAttempts && !terminal(final.Status); i++ {
		select {
		case <-ctx.Done():
			return toFill(final), nil
		case <-time.After(a.pollInterval):
		}
		var latest alpacaOrder
		resp, err := a.client.R().SetContext(ctx).SetResult(&latest).Get("/v2/orders/" + placed.ID)
		if err != nil || resp.IsError() {
			a.log.Warn().Err(err).Str("order_id", placed.ID).Msg("order poll failed")
			continue
		}
		final = latest
	}
	return toFill(final), nil
}

func terminal(status string) bool {
	switch status {
	case "filled", "canceled", "expired", "rejected", "done_for_day":
		return true
	}
	return false
}

func toFill(o alpacaOrder) *models.FillResult {
	fill := &models.FillResult{OrderID: o.ID, Status: o.Status}
	if q, err := decimal.NewFromString(o.FilledQty); err == nil {
		fill.FilledQty = q.InexactFloat64()
	}
	if o.FilledAvgPrice != nil {
		if p, err := decimal.NewFromString(*o.FilledAvgPrice); err == nil {
			fill.FilledAvgPrice = p.InexactFloat64()
		}
	}
	return fill
}

type alpacaAccount struct {
	Cash           string `json:"cash"`
	PortfolioValue string `json:"portfolio_value"`
	Equity         string `json:"equity"`
}

type alpacaPosition struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
}

func (a *Alpaca) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	if !a.hasKeys {
		return nil, ErrMissingCredentials
	}

	var acct alpacaAccount
	resp, err := a.client.R().SetContext(ctx).SetResult(&acct).Get("/v2/account")
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get account (%d): %s", resp.StatusCode(), resp.String())
	}

	var positions []alpacaPosition
	resp, err = a.client.R().SetContext(ctx).SetResult(&positions).Get("/v2/positions")
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get positions (%d): %s", resp.StatusCode(), resp.String())
	}

	snap := &models.AccountSnapshot{
		Cash:       num(acct.Cash),
		TotalValue: num(firstNonEmpty(acct.PortfolioValue, acct.Equity)),
		Positions:  make([]models.AccountPosition, 0, len(positions)),
	}
	for _, p := range positions {
		snap.Positions = append(snap.Positions, models.AccountPosition{
			Ticker:           p.Symbol,
			Shares:           num(p.Qty),
			EntryPrice:       num(p.AvgEntryPrice),
			MarketValue:      num(p.MarketValue),
			UnrealizedPnL:    num(p.UnrealizedPL),
			UnrealizedPnLPct: decimalOrZero(p.UnrealizedPLPC).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64(),
		})
	}
	return snap, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func num(s string) float64 {
	return decimalOrZero(s).InexactFloat64()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
