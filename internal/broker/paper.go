package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/models"
)

type paperLot struct {
	qty decimal.Decimal
	avg decimal.Decimal
}

// Paper is an in-memory account that fills market orders at the current
// quote. Sells beyond the holding are clamped to it.
type Paper struct {
	mu     sync.Mutex
	prices PriceSource
	cash   decimal.Decimal
	lots   map[string]*paperLot
}

func NewPaper(startingCash float64, prices PriceSource) *Paper {
	return &Paper{
		prices: prices,
		cash:   decimal.NewFromFloat(startingCash),
		lots:   make(map[string]*paperLot),
	}
}

// Seed replaces the account state, so a paper account can resume from a
// persisted ledger.
func (p *Paper) Seed(cash float64, positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cash = decimal.NewFromFloat(cash)
	p.lots = make(map[string]*paperLot, len(positions))
	for _, pos := range positions {
		if pos.Shares <= 0 {
			continue
		}
		p.lots[pos.Ticker] = &paperLot{
			qty: decimal.NewFromFloat(pos.Shares),
			avg: decimal.NewFromFloat(pos.EntryPrice),
		}
	}
}

func (p *Paper) ExecuteTrade(ctx context.Context, order Order) (*models.FillResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	price, err := p.prices.LastPrice(ctx, order.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", order.Ticker, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("price %s: non-positive quote %v", order.Ticker, price)
	}
	px := decimal.NewFromFloat(price)

	qty := decimal.NewFromFloat(order.Quantity)
	if !order.ByQuantity() {
		qty = decimal.NewFromFloat(order.Notional).Div(px).Truncate(9)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: %s rounds to zero shares", ErrInvalidOrder, order.Ticker)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	lot := p.lots[order.Ticker]
	switch order.Side {
	case consts.ActionBuy:
		cost := qty.Mul(px)
		if cost.GreaterThan(p.cash) {
			return nil, fmt.Errorf("insufficient buying power: need %s, have %s", cost.StringFixed(2), p.cash.StringFixed(2))
		}
		if lot == nil {
			lot = &paperLot{}
			p.lots[order.Ticker] = lot
		}
		total := lot.qty.Add(qty)
		lot.avg = lot.qty.Mul(lot.avg).Add(cost).Div(total)
		lot.qty = total
		p.cash = p.cash.Sub(cost)

	case consts.ActionSell:
		if lot == nil || lot.qty.IsZero() {
			return nil, fmt.Errorf("no %s position to sell", order.Ticker)
		}
		if qty.GreaterThan(lot.qty) {
			qty = lot.qty
		}
		lot.qty = lot.qty.Sub(qty)
		if lot.qty.IsZero() {
			delete(p.lots, order.Ticker)
		}
		p.cash = p.cash.Add(qty.Mul(px))
	}

	return &models.FillResult{
		OrderID:        uuid.NewString(),
		Status:         "filled",
		FilledQty:      qty.InexactFloat64(),
		FilledAvgPrice: price,
	}, nil
}

// AccountSnapshot marks holdings to market. A symbol without a quote is
// valued at its average cost.
func (p *Paper) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	p.mu.Lock()
	tickers := make([]string, 0, len(p.lots))
	lots := make(map[string]paperLot, len(p.lots))
	for t, l := range p.lots {
		tickers = append(tickers, t)
		lots[t] = *l
	}
	cash := p.cash
	p.mu.Unlock()
	sort.Strings(tickers)

	snap := &models.AccountSnapshot{Positions: make([]models.AccountPosition, 0, len(tickers))}
	total := cash
	for _, t := range tickers {
		l := lots[t]
		px := l.avg
		if price, err := p.prices.LastPrice(ctx, t); err == nil && price > 0 {
			px = decimal.NewFromFloat(price)
		}
		mv := l.qty.Mul(px)
		pos := models.AccountPosition{
			Ticker:        t,
			Shares:        l.qty.InexactFloat64(),
			EntryPrice:    l.avg.Round(4).InexactFloat64(),
			MarketValue:   mv.Round(2).InexactFloat64(),
			UnrealizedPnL: px.Sub(l.avg).Mul(l.qty).Round(2).InexactFloat64(),
		}
		if !l.avg.IsZero() {
			pos.UnrealizedPnLPct = px.Sub(l.avg).Div(l.avg).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		snap.Positions = append(snap.Positions, pos)
		total = total.Add(mv)
	}
	snap.Cash = cash.Round(2).InexactFloat64()
	snap.TotalValue = total.Round(2).InexactFloat64()
	return snap, nil
}
