package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/agents"
	"github.com/dyike/ValueArena/internal/broker"
	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/storage"
	"github.com/dyike/ValueArena/internal/trading"
	"github.com/dyike/ValueArena/models"
)

type quotes map[string]float64

func (q quotes) LastPrice(_ context.Context, symbol string) (float64, error) {
	if px, ok := q[symbol]; ok {
		return px, nil
	}
	return 0, errors.New("no quote")
}

type buyModel struct{}

func (buyModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(`{"trades":[{"action":"BUY","ticker":"KO","amount_usd":600}],"research_notes":"cheap"}`, nil), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 1, 5, 21, 30, 0, 0, time.UTC) }
	cfg := &config.Config{
		MaxDailySpend:   2,
		StartingCapital: 10000,
		NAVSource:       config.NAVFromBroker,
		Broker:          config.BrokerPaper,
		Agents: []config.AgentConfig{
			{ID: "openai/gpt-5.1", Display: "GPT 5.1"},
			{ID: "qwen/qwen3-max", Display: "Qwen 3 Max"},
		},
	}
	prices := quotes{"KO": 60}
	backend := storage.NewFileStore(t.TempDir())
	ledgers := ledger.NewStore(backend, ledger.WithClock(now))
	brokers := broker.NewRegistry(cfg, prices, zerolog.Nop())
	ctrl := trading.NewController(cfg, ledgers, brokers, nil, prices, agents.NewDriver(buyModel{}), trading.WithClock(now))
	return NewWithController(cfg, backend, ledgers, ctrl, zerolog.Nop())
}

func TestPortfolio(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	l, err := s.Portfolio(ctx, "openai/gpt-5.1")
	require.NoError(t, err)
	assert.Equal(t, "GPT 5.1", l.DisplayName)
	assert.Equal(t, 10000.0, l.Cash)

	_, err = s.Portfolio(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	all, err := s.Portfolios(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "qwen/qwen3-max", all[1].ModelID)
}

func TestRunDaily(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	results, err := s.RunDaily(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, consts.Status_Success, r.Status)
		assert.Equal(t, 1, r.Trades)
	}

	l, err := s.Portfolio(ctx, "qwen/qwen3-max")
	require.NoError(t, err)
	require.Len(t, l.Positions, 1)
	assert.Equal(t, 10.0, l.Positions[0].Shares)

	_, err = s.RunDaily(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	results, err = s.RunDaily(ctx, "openai/gpt-5.1")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRunDailyRejectsOverlap(t *testing.T) {
	s := newTestService(t)
	s.running.Lock()
	defer s.running.Unlock()

	_, err := s.RunDaily(context.Background())
	assert.ErrorIs(t, err, ErrCycleRunning)
}

func TestLeaderboard(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	l := s.ledgers.Fresh("qwen/qwen3-max")
	ledger.UpdateNAV(l, "2024-01-05", 12000)
	require.NoError(t, s.ledgers.Save(ctx, l))

	board, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "qwen/qwen3-max", board[0].ModelID)
	assert.Equal(t, "Qwen 3 Max", board[0].DisplayName)
	assert.Equal(t, 20.0, board[0].ReturnPct)
}

func TestTradeHistoryPaging(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	l := s.ledgers.Fresh("openai/gpt-5.1")
	for i := 0; i < 5; i++ {
		l.TradeHistory = append(l.TradeHistory, models.TradeRecord{
			ID:     fmt.Sprintf("t%d", i),
			Date:   fmt.Sprintf("2024-01-0%dT21:30:00Z", i+1),
			Action: consts.ActionBuy,
			Ticker: "KO",
		})
	}
	require.NoError(t, s.ledgers.Save(ctx, l))

	page, err := s.TradeHistory(ctx, HistoryParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "t4", page.Items[0].Trade.ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, "t3", page.NextCursor)

	page, err = s.TradeHistory(ctx, HistoryParams{Cursor: page.NextCursor, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.False(t, page.HasMore)
	assert.Equal(t, "openai/gpt-5.1", page.Items[0].Model)

	page, err = s.TradeHistory(ctx, HistoryParams{ID: "qwen/qwen3-max"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = s.TradeHistory(ctx, HistoryParams{ID: "nobody"})
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, err = s.TradeHistory(ctx, HistoryParams{Cursor: "no-such-trade"})
	assert.ErrorIs(t, err, ErrUnknownCursor)
}

func TestTradeHistoryPagesThroughLegacyRecords(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	l := s.ledgers.Fresh("openai/gpt-5.1")
	for i := 0; i < 3; i++ {
		l.TradeHistory = append(l.TradeHistory, models.TradeRecord{
			Date:   fmt.Sprintf("2024-01-0%dT21:30:00Z", i+1),
			Action: consts.ActionBuy,
			Ticker: "KO",
		})
	}
	require.NoError(t, s.ledgers.Save(ctx, l))

	var seen []string
	params := HistoryParams{Limit: 1}
	for {
		page, err := s.TradeHistory(ctx, params)
		require.NoError(t, err)
		for _, it := range page.Items {
			seen = append(seen, it.Trade.ID)
		}
		if !page.HasMore {
			break
		}
		require.NotEmpty(t, page.NextCursor)
		params.Cursor = page.NextCursor
	}
	require.Len(t, seen, 3)
	assert.NotEqual(t, seen[0], seen[1])
	assert.NotEqual(t, seen[1], seen[2])
}
