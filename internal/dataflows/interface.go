package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrOffline is returned by every provider call when online tools are off.
var ErrOffline = errors.New("online research tools are disabled")

// ValueUniverse is the fixed candidate list screen_stocks draws from.
var ValueUniverse = []string{
	"CSWI", "BRK-B", "JPM", "CVX", "PG", "JNJ", "HD", "BAC", "XOM", "UNH",
	"INTC", "T", "VZ", "PFE", "WBA", "MMM", "KO", "PEP", "MCD", "WMT",
	"COST", "TGT", "LOW", "DIS", "NFLX", "GOOGL", "META", "AMZN", "MSFT", "AAPL",
}

const (
	insiderLimit         = 20
	holderLimit          = 20
	recommendationLimit  = 10
	defaultScreenResults = 50
)

type yahooAPI interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
	GetSnapshot(ctx context.Context, symbol string) (*PriceSnapshot, error)
	GetHistoricalData(ctx context.Context, symbol, period string) ([]*MarketData, error)
}

type finnhubAPI interface {
	GetRatios(ctx context.Context, symbol string) (*Ratios, error)
	GetFinancials(ctx context.Context, symbol string) ([]FinancialReport, error)
	GetInsiderTransactions(ctx context.Context, symbol string, limit int) ([]InsiderTransaction, error)
	GetInstitutionalHolders(ctx context.Context, symbol string, limit int) ([]InstitutionalHolder, error)
	GetRecommendations(ctx context.Context, symbol string, limit int) ([]Recommendation, error)
}

type secAPI interface {
	GetLatestFiling(ctx context.Context, symbol, formType string) (*Filing, error)
}

type longportAPI interface {
	Enrich(ctx context.Context, snap *PriceSnapshot) error
	GetDailyBars(ctx context.Context, symbol string, count int) ([]*MarketData, error)
}

// DataFlowInterface routes research requests to the provider that serves
// them, with fallbacks between providers.
type DataFlowInterface struct {
	yahoo    yahooAPI
	finnhub  finnhubAPI
	sec      secAPI
	longport longportAPI
	online   bool
	log      zerolog.Logger
}

// NewDataFlowInterface builds every provider from config. Longport is
// optional and only wired when credentials exist.
func NewDataFlowInterface(config *Config, log zerolog.Logger) *DataFlowInterface {
	df := &DataFlowInterface{
		yahoo:   NewYahooFinanceClient(config),
		finnhub: NewFinnhubClient(config),
		sec:     NewSECClient(config),
		online:  config.OnlineTools,
		log:     log.With().Str("component", "dataflows").Logger(),
	}
	if config.HasLongport() {
		lp, err := NewLongportClient(config)
		if err != nil {
			df.log.Warn().Err(err).Msg("longport unavailable")
		} else {
			df.longport = lp
		}
	}
	return df
}

func (df *DataFlowInterface) check(symbol string) (string, error) {
	if !df.online {
		return "", ErrOffline
	}
	if err := ValidateSymbol(symbol); err != nil {
		return "", err
	}
	return NormalizeSymbol(symbol), nil
}

// LastPrice is the quote used to price fills.
func (df *DataFlowInterface) LastPrice(ctx context.Context, symbol string) (float64, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return 0, err
	}
	return df.yahoo.LastPrice(ctx, symbol)
}

func (df *DataFlowInterface) Price(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	snap, err := df.yahoo.GetSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if df.longport != nil {
		if err := df.longport.Enrich(ctx, snap); err != nil {
			df.log.Debug().Err(err).Str("symbol", symbol).Msg("longport enrich failed")
		}
	}
	return snap, nil
}

// Ratios merges Finnhub metrics with Yahoo's headline multiples. Either
// source alone is enough.
func (df *DataFlowInterface) Ratios(ctx context.Context, symbol string) (*Ratios, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}

	ratios, fhErr := df.finnhub.GetRatios(ctx, symbol)
	if ratios == nil {
		ratios = &Ratios{Symbol: symbol}
	}
	snap, yfErr := df.yahoo.GetSnapshot(ctx, symbol)
	if fhErr != nil && yfErr != nil {
		return nil, fmt.Errorf("ratios for %s: %w", symbol, errors.Join(fhErr, yfErr))
	}
	if snap != nil {
		if ratios.PE == nil {
			ratios.PE = snap.PERatio
		}
		if ratios.ForwardPE == nil {
			ratios.ForwardPE = snap.ForwardPE
		}
		if ratios.PB == nil {
			ratios.PB = snap.PBRatio
		}
	}
	return ratios, nil
}

func (df *DataFlowInterface) Financials(ctx context.Context, symbol string) ([]FinancialReport, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	return df.finnhub.GetFinancials(ctx, symbol)
}

// PriceHistory prefers Yahoo and falls back to Longport daily candles.
func (df *DataFlowInterface) PriceHistory(ctx context.Context, symbol, period string) ([]*MarketData, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	if _, err := PeriodStart(time.Now(), period); err != nil {
		return nil, err
	}

	bars, err := df.yahoo.GetHistoricalData(ctx, symbol, period)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if df.longport != nil {
		lpBars, lpErr := df.longport.GetDailyBars(ctx, symbol, PeriodDays(period))
		if lpErr == nil && len(lpBars) > 0 {
			return lpBars, nil
		}
		df.log.Debug().AnErr("yahoo", err).AnErr("longport", lpErr).Str("symbol", symbol).Msg("no price history")
	}
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func (df *DataFlowInterface) InsiderActivity(ctx context.Context, symbol string) ([]InsiderTransaction, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	return df.finnhub.GetInsiderTransactions(ctx, symbol, insiderLimit)
}

func (df *DataFlowInterface) InstitutionalHolders(ctx context.Context, symbol string) ([]InstitutionalHolder, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	return df.finnhub.GetInstitutionalHolders(ctx, symbol, holderLimit)
}

func (df *DataFlowInterface) Recommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	return df.finnhub.GetRecommendations(ctx, symbol, recommendationLimit)
}

func (df *DataFlowInterface) SECFiling(ctx context.Context, symbol, formType string) (*Filing, error) {
	symbol, err := df.check(symbol)
	if err != nil {
		return nil, err
	}
	return df.sec.GetLatestFiling(ctx, symbol, formType)
}

// Screen filters ValueUniverse. Without numeric criteria the universe is
// returned as is, since quoting every name is slow.
func (df *DataFlowInterface) Screen(ctx context.Context, c ScreenCriteria) (*ScreenResult, error) {
	if !df.online {
		return nil, ErrOffline
	}
	limit := c.Limit
	if limit <= 0 {
		limit = defaultScreenResults
	}

	res := &ScreenResult{Stocks: []ScreenedStock{}}
	if c.Sector != "" {
		res.Notes = append(res.Notes, fmt.Sprintf("sector filter %q is not supported and was ignored", c.Sector))
	}

	needQuote := c.MinMarketCap != nil || c.MaxMarketCap != nil || c.MinPE != nil || c.MaxPE != nil
	if !needQuote && c.MinROE == nil {
		for _, sym := range ValueUniverse {
			if len(res.Stocks) == limit {
				break
			}
			res.Stocks = append(res.Stocks, ScreenedStock{Symbol: sym})
		}
		return res, nil
	}

	failed := 0
	for _, sym := range ValueUniverse {
		if len(res.Stocks) == limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stock := ScreenedStock{Symbol: sym}
		if needQuote {
			snap, err := df.yahoo.GetSnapshot(ctx, sym)
			if err != nil {
				failed++
				continue
			}
			stock.Price = snap.Price
			stock.MarketCap = snap.MarketCap
			stock.PERatio = snap.PERatio
			if !passes(c, snap) {
				continue
			}
		}
		if c.MinROE != nil {
			ratios, err := df.finnhub.GetRatios(ctx, sym)
			if err != nil {
				failed++
				continue
			}
			stock.ROE = ratios.ROE
			if ratios.ROE == nil || *ratios.ROE < *c.MinROE {
				continue
			}
		}
		res.Stocks = append(res.Stocks, stock)
	}
	if failed > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d symbols skipped: data unavailable", failed))
	}
	return res, nil
}

func passes(c ScreenCriteria, snap *PriceSnapshot) bool {
	mc := float64(snap.MarketCap)
	if c.MinMarketCap != nil && mc < *c.MinMarketCap {
		return false
	}
	if c.MaxMarketCap != nil && mc > *c.MaxMarketCap {
		return false
	}
	if c.MinPE != nil || c.MaxPE != nil {
		if snap.PERatio == nil {
			return false
		}
		if c.MinPE != nil && *snap.PERatio < *c.MinPE {
			return false
		}
		if c.MaxPE != nil && *snap.PERatio > *c.MaxPE {
			return false
		}
	}
	return true
}
