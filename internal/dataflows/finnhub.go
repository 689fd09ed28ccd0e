package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var ErrNoFinnhubKey = errors.New("finnhub API key not configured")

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(config *Config) *FinnhubClient {
	cacheDir := filepath.Join(config.DataCacheDir, "finnhub")
	cache := NewCacheManager(cacheDir, 6*time.Hour, config.CacheEnabled)
	return newFinnhubClient("https://finnhub.io/api/v1", config.FinnhubAPIKey, cache)
}

func newFinnhubClient(baseURL, apiKey string, cache *CacheManager) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		retry:  DefaultRetryConfig(),
		apiKey: apiKey,
	}
}

// get fetches path into out, going through the cache.
func (fc *FinnhubClient) get(ctx context.Context, method, path string, params map[string]string, out interface{}) error {
	if fc.apiKey == "" {
		return ErrNoFinnhubKey
	}
	if fc.cache.Get("finnhub", method, params, out) {
		return nil
	}

	err := WithRetry(ctx, fc.retry, func() error {
		query := map[string]string{"token": fc.apiKey}
		for k, v := range params {
			query[k] = v
		}
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", path, err)
		}

		switch {
		case resp.StatusCode() == http.StatusOK:
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		default:
			return Permanent(fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String()))
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return Permanent(fmt.Errorf("failed to parse %s response: %w", path, err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fc.cache.Set("finnhub", method, params, out)
	return nil
}

// GetMetrics returns the "metric" object of /stock/metric (ratios and
// 52-week figures, keyed by Finnhub's concept names).
func (fc *FinnhubClient) GetMetrics(ctx context.Context, symbol string) (map[string]float64, error) {
	var resp struct {
		Metric map[string]interface{} `json:"metric"`
	}
	params := map[string]string{"symbol": NormalizeSymbol(symbol), "metric": "all"}
	if err := fc.get(ctx, "metric", "/stock/metric", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(resp.Metric))
	for k, v := range resp.Metric {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out, nil
}

// GetRatios maps Finnhub metrics onto Ratios.
func (fc *FinnhubClient) GetRatios(ctx context.Context, symbol string) (*Ratios, error) {
	m, err := fc.GetMetrics(ctx, symbol)
	if err != nil {
		return nil, err
	}
	pick := func(keys ...string) *float64 {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				return floatPtr(v)
			}
		}
		return nil
	}
	return &Ratios{
		Symbol:       NormalizeSymbol(symbol),
		PE:           pick("peTTM", "peBasicExclExtraTTM"),
		ForwardPE:    pick("forwardPE"),
		PEG:          pick("pegTTM"),
		PB:           pick("pbQuarterly", "pbAnnual"),
		PS:           pick("psTTM", "psAnnual"),
		EVEBITDA:     pick("evEbitdaTTM"),
		ProfitMargin: pick("netProfitMarginTTM", "netProfitMarginAnnual"),
		ROE:          pick("roeTTM", "roeRfy"),
		ROA:          pick("roaTTM", "roaRfy"),
		DebtToEquity: pick("totalDebt/totalEquityQuarterly", "totalDebt/totalEquityAnnual"),
		CurrentRatio: pick("currentRatioQuarterly", "currentRatioAnnual"),
		QuickRatio:   pick("quickRatioQuarterly", "quickRatioAnnual"),
	}, nil
}

type finnhubReportLine struct {
	Concept string      `json:"concept"`
	Value   interface{} `json:"value"`
}

type finnhubReported struct {
	Data []struct {
		Year      int    `json:"year"`
		Form      string `json:"form"`
		FiledDate string `json:"filedDate"`
		Report    struct {
			BS []finnhubReportLine `json:"bs"`
			IC []finnhubReportLine `json:"ic"`
			CF []finnhubReportLine `json:"cf"`
		} `json:"report"`
	} `json:"data"`
}

// GetFinancials returns up to the last three annual reports as filed.
func (fc *FinnhubClient) GetFinancials(ctx context.Context, symbol string) ([]FinancialReport, error) {
	var resp finnhubReported
	params := map[string]string{"symbol": NormalizeSymbol(symbol), "freq": "annual"}
	if err := fc.get(ctx, "financials_reported", "/stock/financials-reported", params, &resp); err != nil {
		return nil, err
	}

	lines := func(in []finnhubReportLine) map[string]float64 {
		out := make(map[string]float64, len(in))
		for _, l := range in {
			if f, ok := l.Value.(float64); ok {
				out[l.Concept] = f
			}
		}
		return out
	}

	reports := make([]FinancialReport, 0, 3)
	for _, d := range resp.Data {
		if len(reports) == 3 {
			break
		}
		reports = append(reports, FinancialReport{
			Year:      d.Year,
			Form:      d.Form,
			FiledDate: d.FiledDate,
			Statements: map[string]map[string]float64{
				"income_statement": lines(d.Report.IC),
				"balance_sheet":    lines(d.Report.BS),
				"cash_flow":        lines(d.Report.CF),
			},
		})
	}
	return reports, nil
}

// FinnhubInsiderTransaction represents insider transaction data
type FinnhubInsiderTransaction struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Share            int64   `json:"share"`
	Change           int64   `json:"change"`
	FilingDate       string  `json:"filingDate"`
	TransactionDate  string  `json:"transactionDate"`
	TransactionCode  string  `json:"transactionCode"`
	TransactionPrice float64 `json:"transactionPrice"`
}

// GetInsiderTransactions returns at most limit recent insider transactions.
func (fc *FinnhubClient) GetInsiderTransactions(ctx context.Context, symbol string, limit int) ([]InsiderTransaction, error) {
	var resp struct {
		Data []FinnhubInsiderTransaction `json:"data"`
	}
	params := map[string]string{"symbol": NormalizeSymbol(symbol)}
	if err := fc.get(ctx, "insider_transactions", "/stock/insider-transactions", params, &resp); err != nil {
		return nil, err
	}

	result := make([]InsiderTransaction, 0, min(len(resp.Data), limit))
	for _, trans := range resp.Data {
		if len(result) == limit {
			break
		}
		result = append(result, InsiderTransaction{
			Symbol:           trans.Symbol,
			PersonName:       trans.Name,
			Share:            trans.Share,
			Change:           trans.Change,
			FilingDate:       trans.FilingDate,
			TransactionDate:  trans.TransactionDate,
			TransactionCode:  trans.TransactionCode,
			TransactionPrice: decimal.NewFromFloat(trans.TransactionPrice),
		})
	}
	return result, nil
}

// GetInstitutionalHolders returns the latest reported institutional owners.
func (fc *FinnhubClient) GetInstitutionalHolders(ctx context.Context, symbol string, limit int) ([]InstitutionalHolder, error) {
	var resp struct {
		Ownership []struct {
			Name       string `json:"name"`
			Share      int64  `json:"share"`
			Change     int64  `json:"change"`
			FilingDate string `json:"filingDate"`
		} `json:"ownership"`
	}
	params := map[string]string{"symbol": NormalizeSymbol(symbol), "limit": fmt.Sprint(limit)}
	if err := fc.get(ctx, "ownership", "/stock/ownership", params, &resp); err != nil {
		return nil, err
	}

	out := make([]InstitutionalHolder, 0, len(resp.Ownership))
	for _, o := range resp.Ownership {
		out = append(out, InstitutionalHolder{Name: o.Name, Share: o.Share, Change: o.Change, FilingDate: o.FilingDate})
	}
	return out, nil
}

// GetRecommendations returns the most recent analyst recommendation trends.
func (fc *FinnhubClient) GetRecommendations(ctx context.Context, symbol string, limit int) ([]Recommendation, error) {
	var resp []Recommendation
	var raw []struct {
		Period     string `json:"period"`
		StrongBuy  int    `json:"strongBuy"`
		Buy        int    `json:"buy"`
		Hold       int    `json:"hold"`
		Sell       int    `json:"sell"`
		StrongSell int    `json:"strongSell"`
	}
	params := map[string]string{"symbol": NormalizeSymbol(symbol)}
	if err := fc.get(ctx, "recommendation", "/stock/recommendation", params, &raw); err != nil {
		return nil, err
	}
	for _, r := range raw {
		if len(resp) == limit {
			break
		}
		resp = append(resp, Recommendation{
			Period:     r.Period,
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		})
	}
	return resp, nil
}
