package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
)

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	cache *CacheManager
	retry *RetryConfig
	now   func() time.Time
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(config *Config) *YahooFinanceClient {
	cacheDir := filepath.Join(config.DataCacheDir, "yahoo_finance")
	return &YahooFinanceClient{
		cache: NewCacheManager(cacheDir, 15*time.Minute, config.CacheEnabled),
		retry: DefaultRetryConfig(),
		now:   time.Now,
	}
}

// LastPrice returns the regular market price. Quotes are never cached
// since they price fills.
func (yf *YahooFinanceClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return 0, err
	}
	symbol = yahooSymbol(symbol)

	var price float64
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return Permanent(fmt.Errorf("no quote for %s", symbol))
		}
		price = q.RegularMarketPrice
		return nil
	})
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("no market price for %s", symbol)
	}
	return price, nil
}

// GetSnapshot returns price and headline valuation figures.
func (yf *YahooFinanceClient) GetSnapshot(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = yahooSymbol(symbol)

	var cached PriceSnapshot
	if yf.cache.Get("yahoo", "snapshot", symbol, &cached) {
		return &cached, nil
	}

	var result *PriceSnapshot
	err := WithRetry(ctx, yf.retry, func() error {
		eq, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get equity for %s: %w", symbol, err)
		}
		if eq == nil {
			return Permanent(fmt.Errorf("unknown symbol %s", symbol))
		}

		result = &PriceSnapshot{
			Symbol:        symbol,
			Name:          eq.LongName,
			Price:         eq.RegularMarketPrice,
			MarketCap:     eq.MarketCap,
			PERatio:       floatPtr(eq.TrailingPE),
			ForwardPE:     floatPtr(eq.ForwardPE),
			PBRatio:       floatPtr(eq.PriceToBook),
			DividendYield: floatPtr(eq.TrailingAnnualDividendYield),
			High52w:       eq.FiftyTwoWeekHigh,
			Low52w:        eq.FiftyTwoWeekLow,
			AvgVolume:     eq.AverageDailyVolume3Month,
			Exchange:      eq.FullExchangeName,
			Currency:      eq.CurrencyID,
		}
		if result.Name == "" {
			result.Name = eq.ShortName
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "snapshot", symbol, result)
	return result, nil
}

// GetHistoricalData gets daily bars for a symbol over a period such as
// "1mo" or "1y".
func (yf *YahooFinanceClient) GetHistoricalData(ctx context.Context, symbol, period string) ([]*MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = yahooSymbol(symbol)

	end := yf.now()
	start, err := PeriodStart(end, period)
	if err != nil {
		return nil, err
	}

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}
	var cached []*MarketData
	if yf.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}

	var result []*MarketData
	err = WithRetry(ctx, yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}
		iter := chart.Get(params)

		result = make([]*MarketData, 0)
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, &MarketData{
				Symbol:   symbol,
				Date:     time.Unix(int64(bar.Timestamp), 0).UTC(),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}

// PeriodStart resolves a Yahoo-style period relative to end. An empty
// period means one year.
func PeriodStart(end time.Time, period string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1d":
		return end.AddDate(0, 0, -1), nil
	case "5d":
		return end.AddDate(0, 0, -5), nil
	case "1mo":
		return end.AddDate(0, -1, 0), nil
	case "3mo":
		return end.AddDate(0, -3, 0), nil
	case "6mo":
		return end.AddDate(0, -6, 0), nil
	case "", "1y":
		return end.AddDate(-1, 0, 0), nil
	case "2y":
		return end.AddDate(-2, 0, 0), nil
	case "5y":
		return end.AddDate(-5, 0, 0), nil
	case "10y":
		return end.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(end.Year(), 1, 1, 0, 0, 0, 0, end.Location()), nil
	case "max":
		return time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}
}

// PeriodDays approximates a period as a count of trading days.
func PeriodDays(period string) int {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 21
	case "3mo":
		return 63
	case "6mo":
		return 126
	case "2y":
		return 504
	case "5y", "10y", "max":
		return 1000
	case "ytd":
		return 252
	default:
		return 252
	}
}
