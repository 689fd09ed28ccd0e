package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/ValueArena/internal/storage"
	"github.com/dyike/ValueArena/models"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 5, 21, 30, 0, 0, time.UTC)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (brokenStore) Keys(context.Context) ([]string, error)    { return nil, nil }
func (brokenStore) Close() error                              { return nil }

func TestStore_LoadFresh(t *testing.T) {
	s := NewStore(storage.NewFileStore(t.TempDir()), WithClock(fixedClock))
	l := s.Load(context.Background(), "openai/gpt-5.1")

	assert.Equal(t, "openai/gpt-5.1", l.ModelID)
	assert.Equal(t, DefaultStartingCapital, l.StartingCapital)
	assert.Equal(t, DefaultStartingCapital, l.Cash)
	assert.Empty(t, l.Positions)
	assert.Empty(t, l.TradeHistory)
	assert.Equal(t, []models.NavPoint{{Date: "2024-01-05", NAV: 10000}}, l.NavHistory)
}

func TestStore_LoadDegradesOnFailure(t *testing.T) {
	s := NewStore(brokenStore{}, WithClock(fixedClock), WithStartingCapital(5000))
	l := s.Load(context.Background(), "a")
	assert.Equal(t, 5000.0, l.StartingCapital)

	err := s.Save(context.Background(), l)
	assert.Error(t, err)
}

func TestStore_LoadCorruptDocument(t *testing.T) {
	backend := storage.NewFileStore(t.TempDir())
	require.NoError(t, backend.Put(context.Background(), "a", []byte("{not json")))

	s := NewStore(backend, WithClock(fixedClock))
	l := s.Load(context.Background(), "a")
	assert.Equal(t, "a", l.ModelID)
	assert.Len(t, l.NavHistory, 1)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewFileStore(t.TempDir()), WithClock(fixedClock))

	l := s.Load(ctx, "x-ai/grok")
	l.Positions = append(l.Positions, models.Position{Ticker: "KO", Shares: 3, EntryPrice: 60})
	l.Cash = 9820
	UpdateNAV(l, "2024-01-05", 10010)
	require.NoError(t, s.Save(ctx, l))

	got := s.Load(ctx, "x-ai/grok")
	assert.Equal(t, l.Positions, got.Positions)
	assert.Equal(t, 9820.0, got.Cash)
	assert.Equal(t, []models.NavPoint{{Date: "2024-01-05", NAV: 10010}}, got.NavHistory)
}

func TestStore_LegacyDocumentGetsCash(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileStore(t.TempDir())
	legacy := `{"starting_capital": 10000, "positions": [], "trade_history": [], "research_logs": [],
		"nav_history": [{"date":"2024-01-03","nav":10000},{"date":"2024-01-02","nav":9990},{"date":"2024-01-03","nav":10020}]}`
	require.NoError(t, backend.Put(ctx, "legacy", []byte(legacy)))

	l := NewStore(backend, WithClock(fixedClock)).Load(ctx, "legacy")
	assert.Equal(t, 10000.0, l.Cash)
	assert.Equal(t, "legacy", l.ModelID)
	assert.Equal(t, []models.NavPoint{
		{Date: "2024-01-02", NAV: 9990},
		{Date: "2024-01-03", NAV: 10020},
	}, l.NavHistory)
}

func TestStore_LegacyTradesGetStableIDs(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileStore(t.TempDir())
	legacy := `{"cash": 9400, "trade_history": [
		{"date":"2024-01-03T21:30:00Z","action":"BUY","ticker":"KO"},
		{"id":"kept","date":"2024-01-04T21:30:00Z","action":"BUY","ticker":"PEP"},
		{"date":"2024-01-04T21:30:00Z","action":"BUY","ticker":"KO"}]}`
	require.NoError(t, backend.Put(ctx, "legacy", []byte(legacy)))

	s := NewStore(backend, WithClock(fixedClock))
	first := s.Load(ctx, "legacy")
	require.Len(t, first.TradeHistory, 3)
	assert.NotEmpty(t, first.TradeHistory[0].ID)
	assert.Equal(t, "kept", first.TradeHistory[1].ID)
	assert.NotEmpty(t, first.TradeHistory[2].ID)
	assert.NotEqual(t, first.TradeHistory[0].ID, first.TradeHistory[2].ID)

	again := s.Load(ctx, "legacy")
	assert.Equal(t, first.TradeHistory[0].ID, again.TradeHistory[0].ID)
	assert.Equal(t, first.TradeHistory[2].ID, again.TradeHistory[2].ID)
}

func TestUpdateNAV_SameDayOverwrites(t *testing.T) {
	l := &models.Ledger{}
	UpdateNAV(l, "2024-01-05", 10500)
	UpdateNAV(l, "2024-01-05", 10600)
	assert.Equal(t, []models.NavPoint{{Date: "2024-01-05", NAV: 10600}}, l.NavHistory)
}

func TestUpdateNAV_KeepsDatesAscending(t *testing.T) {
	l := &models.Ledger{}
	UpdateNAV(l, "2024-01-05", 3)
	UpdateNAV(l, "2024-01-02", 1)
	UpdateNAV(l, "2024-01-03", 2)
	UpdateNAV(l, "2024-01-03", 2.5)

	assert.Equal(t, []models.NavPoint{
		{Date: "2024-01-02", NAV: 1},
		{Date: "2024-01-03", NAV: 2.5},
		{Date: "2024-01-05", NAV: 3},
	}, l.NavHistory)
}

func TestComputeNAVAndRevalue(t *testing.T) {
	l := &models.Ledger{
		Cash: 8000,
		Positions: []models.Position{
			{Ticker: "XYZ", Shares: 40, EntryPrice: 50},
			{Ticker: "ABC", Shares: 2, EntryPrice: 10, MarketValue: 20},
		},
	}
	Revalue(l, map[string]float64{"XYZ": 55})
	assert.InDelta(t, 2200, l.Positions[0].MarketValue, 1e-9)
	assert.InDelta(t, 200, l.Positions[0].UnrealizedPnL, 1e-9)
	assert.InDelta(t, 10, l.Positions[0].UnrealizedPnLPct, 1e-9)
	assert.InDelta(t, 20, l.Positions[1].MarketValue, 1e-9)
	assert.InDelta(t, 10220, ComputeNAV(l), 1e-9)
}

func TestAppendResearch(t *testing.T) {
	l := &models.Ledger{}
	assert.False(t, AppendResearch(l, "2024-01-05", ""))
	assert.True(t, AppendResearch(l, "2024-01-05", "quiet day"))
	assert.Equal(t, []models.ResearchLog{{Date: "2024-01-05", Notes: "quiet day"}}, l.ResearchLogs)
}

func TestNewTradeRecord(t *testing.T) {
	intent := buy("XYZ", 2000)
	intent.Thesis = "cheap"
	rec := NewTradeRecord(intent, models.FillResult{Status: "filled", FilledAvgPrice: 50}, 40, 50, fixedClock())

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "2024-01-05T21:30:00Z", rec.Date)
	assert.Equal(t, "BUY", rec.Action)
	assert.Equal(t, 2000.0, *rec.AmountUSD)
	assert.Equal(t, 40.0, rec.SharesFilled)
	assert.Equal(t, "cheap", rec.Thesis)
}

func TestMeasureAndLeaderboard(t *testing.T) {
	a := &models.Ledger{ModelID: "a", StartingCapital: 10000, NavHistory: []models.NavPoint{
		{Date: "2024-01-01", NAV: 10000},
		{Date: "2024-01-02", NAV: 11000},
		{Date: "2024-01-03", NAV: 9900},
		{Date: "2024-01-04", NAV: 10500},
	}}
	b := &models.Ledger{ModelID: "b", StartingCapital: 10000, NavHistory: []models.NavPoint{
		{Date: "2024-01-01", NAV: 10000},
		{Date: "2024-01-04", NAV: 12000},
	}}

	perf := Measure(a)
	assert.Equal(t, 10500.0, perf.NAV)
	assert.InDelta(t, 5, perf.ReturnPct, 1e-9)
	assert.InDelta(t, 10, perf.MaxDrawdownPct, 1e-9)
	assert.Greater(t, perf.Volatility, 0.0)

	board := Leaderboard([]*models.Ledger{a, b})
	require.Len(t, board, 2)
	assert.Equal(t, "b", board[0].ModelID)
	assert.Equal(t, 20.0, board[0].ReturnPct)
	assert.Zero(t, board[0].Volatility)
}
