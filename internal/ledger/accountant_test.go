package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/models"
)

func amount(v float64) *float64 { return &v }

func buy(ticker string, usd float64) models.TradeIntent {
	return models.TradeIntent{Action: consts.ActionBuy, Ticker: ticker, AmountUSD: amount(usd)}
}

func sellShares(ticker string, q float64) models.TradeIntent {
	return models.TradeIntent{Action: consts.ActionSell, Ticker: ticker, Shares: &models.Shares{Quantity: q}}
}

func sellAll(ticker string) models.TradeIntent {
	return models.TradeIntent{Action: consts.ActionSell, Ticker: ticker, Shares: &models.Shares{All: true}}
}

func TestApplyTrade_BuyOpensPosition(t *testing.T) {
	eff := ApplyTrade(nil, buy("XYZ", 2000), 50, "2024-01-05")
	require.True(t, eff.Applied)
	require.Len(t, eff.Positions, 1)

	p := eff.Positions[0]
	assert.Equal(t, "XYZ", p.Ticker)
	assert.InDelta(t, 40, p.Shares, 1e-9)
	assert.InDelta(t, 50, p.EntryPrice, 1e-9)
	assert.Equal(t, "2024-01-05", p.EntryDate)
	assert.InDelta(t, 2000, p.MarketValue, 1e-9)
	assert.InDelta(t, -2000, eff.CashDelta, 1e-9)
}

func TestApplyTrade_BuyWeightedAverage(t *testing.T) {
	tests := []struct {
		name   string
		q1, p1 float64
		q2, p2 float64
	}{
		{"equal lots", 10, 100, 10, 120},
		{"uneven lots", 40, 50, 20, 60},
		{"fractional", 3.5, 17.25, 1.25, 19.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := []models.Position{{Ticker: "ABC", Shares: tt.q1, EntryPrice: tt.p1, EntryDate: "2024-01-02"}}
			intent := models.TradeIntent{Action: consts.ActionBuy, Ticker: "ABC", Shares: &models.Shares{Quantity: tt.q2}}

			eff := ApplyTrade(start, intent, tt.p2, "2024-01-05")
			require.True(t, eff.Applied)
			require.Len(t, eff.Positions, 1)

			want := (tt.q1*tt.p1 + tt.q2*tt.p2) / (tt.q1 + tt.q2)
			assert.InDelta(t, want, eff.Positions[0].EntryPrice, 1e-9)
			assert.InDelta(t, tt.q1+tt.q2, eff.Positions[0].Shares, 1e-9)
			assert.Equal(t, "2024-01-02", eff.Positions[0].EntryDate)
		})
	}
}

func TestApplyTrade_DoesNotMutateInput(t *testing.T) {
	start := []models.Position{{Ticker: "ABC", Shares: 10, EntryPrice: 100}}
	_ = ApplyTrade(start, sellShares("ABC", 4), 110, "2024-01-05")
	assert.InDelta(t, 10, start[0].Shares, 1e-9)
}

func TestApplyTrade_PartialSellKeepsEntry(t *testing.T) {
	start := []models.Position{{Ticker: "ABC", Shares: 10, EntryPrice: 100}}
	eff := ApplyTrade(start, sellShares("ABC", 4), 110, "2024-01-05")
	require.True(t, eff.Applied)
	require.Len(t, eff.Positions, 1)

	assert.InDelta(t, 6, eff.Positions[0].Shares, 1e-9)
	assert.InDelta(t, 100, eff.Positions[0].EntryPrice, 1e-9)
	assert.InDelta(t, 440, eff.CashDelta, 1e-9)
	assert.InDelta(t, 40, eff.RealizedPnL, 1e-9)
	assert.InDelta(t, 10, eff.Positions[0].UnrealizedPnLPct, 1e-9)
}

func TestApplyTrade_SellAtLeastHeldRemoves(t *testing.T) {
	start := []models.Position{
		{Ticker: "AAA", Shares: 1, EntryPrice: 1},
		{Ticker: "ABC", Shares: 10, EntryPrice: 100},
	}
	eff := ApplyTrade(start, sellShares("ABC", 25), 90, "2024-01-05")
	require.True(t, eff.Applied)

	_, idx := (&models.Ledger{Positions: eff.Positions}).Position("ABC")
	assert.Equal(t, -1, idx)
	assert.Len(t, eff.Positions, 1)
	assert.InDelta(t, 10, eff.Quantity, 1e-9)
	assert.InDelta(t, 900, eff.CashDelta, 1e-9)
	assert.InDelta(t, -100, eff.RealizedPnL, 1e-9)
}

func TestApplyTrade_SellAll(t *testing.T) {
	start := []models.Position{{Ticker: "XYZ", Shares: 40, EntryPrice: 50}}
	eff := ApplyTrade(start, sellAll("XYZ"), 60, "2024-01-06")
	require.True(t, eff.Applied)
	assert.Empty(t, eff.Positions)
	assert.InDelta(t, 40, eff.Quantity, 1e-9)
	assert.InDelta(t, 400, eff.RealizedPnL, 1e-9)
}

func TestApplyTrade_NoOps(t *testing.T) {
	start := []models.Position{{Ticker: "ABC", Shares: 10, EntryPrice: 100}}

	tests := []struct {
		name   string
		intent models.TradeIntent
		price  float64
	}{
		{"sell all without position", sellAll("XYZ"), 60},
		{"sell without position", sellShares("XYZ", 3), 60},
		{"zero amount", buy("XYZ", 0), 60},
		{"negative shares", models.TradeIntent{Action: consts.ActionBuy, Ticker: "XYZ", Shares: &models.Shares{Quantity: -2}}, 60},
		{"no price", buy("XYZ", 100), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := ApplyTrade(start, tt.intent, tt.price, "2024-01-05")
			assert.False(t, eff.Applied)
			assert.NotEmpty(t, eff.Skipped)
			assert.Equal(t, start, eff.Positions)
			assert.Zero(t, eff.CashDelta)
		})
	}
}

func TestRevalue_ZeroEntryPrice(t *testing.T) {
	p := models.Position{Ticker: "GIFT", Shares: 5, EntryPrice: 0}
	revalue(&p, 10)
	assert.InDelta(t, 50, p.MarketValue, 1e-9)
	assert.Zero(t, p.UnrealizedPnLPct)
}

func TestCommit(t *testing.T) {
	l := &models.Ledger{StartingCapital: 10000, Cash: 10000}
	eff := ApplyTrade(l.Positions, buy("XYZ", 2000), 50, "2024-01-05")
	Commit(l, eff)
	assert.InDelta(t, 8000, l.Cash, 1e-9)
	require.Len(t, l.Positions, 1)

	eff = ApplyTrade(l.Positions, sellAll("XYZ"), 60, "2024-01-06")
	Commit(l, eff)
	assert.InDelta(t, 10400, l.Cash, 1e-9)
	assert.InDelta(t, 400, l.RealizedPnL, 1e-9)
	assert.Empty(t, l.Positions)

	Commit(l, Effect{Skipped: "nothing"})
	assert.InDelta(t, 10400, l.Cash, 1e-9)
}
