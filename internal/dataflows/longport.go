package dataflows

import (
	"context"
	"errors"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

// LongportClient reads reference data and daily candlesticks from Longport.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg *Config) (*LongportClient, error) {
	if !cfg.HasLongport() {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// longportSymbol maps a US ticker onto Longport's form (BRK-B -> BRK.B.US).
func longportSymbol(symbol string) string {
	symbol = strings.ReplaceAll(NormalizeSymbol(symbol), "-", ".")
	if strings.HasSuffix(symbol, ".US") || strings.HasSuffix(symbol, ".HK") {
		return symbol
	}
	return symbol + ".US"
}

// Enrich fills exchange, currency and lot size of snap from static info.
func (lpc *LongportClient) Enrich(ctx context.Context, snap *PriceSnapshot) error {
	if lpc.quoteCtx == nil {
		return errors.New("quote context is nil")
	}
	infos, err := lpc.quoteCtx.StaticInfo(ctx, []string{longportSymbol(snap.Symbol)})
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return errors.New("no static info for " + snap.Symbol)
	}
	info := infos[0]
	if info.Exchange != "" {
		snap.Exchange = info.Exchange
	}
	if info.Currency != "" {
		snap.Currency = info.Currency
	}
	snap.LotSize = int32(info.LotSize)
	if snap.Name == "" {
		snap.Name = info.NameEn
	}
	return nil
}

// GetDailyBars returns the last count daily candlesticks, unadjusted.
func (lpc *LongportClient) GetDailyBars(ctx context.Context, symbol string, count int) ([]*MarketData, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	sticks, err := lpc.quoteCtx.Candlesticks(ctx, longportSymbol(symbol), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, err
	}

	out := make([]*MarketData, 0, len(sticks))
	for _, s := range sticks {
		out = append(out, &MarketData{
			Symbol:   NormalizeSymbol(symbol),
			Date:     time.Unix(s.Timestamp, 0).UTC(),
			Open:     decimalOf(s.Open),
			High:     decimalOf(s.High),
			Low:      decimalOf(s.Low),
			Close:    decimalOf(s.Close),
			AdjClose: decimalOf(s.Close),
			Volume:   s.Volume,
		})
	}
	return out, nil
}

func decimalOf(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
