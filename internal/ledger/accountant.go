package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/models"
)

// Effect is the outcome of applying one trade to a position set.
type Effect struct {
	Positions []models.Position
	Quantity  float64
	// CashDelta is negative for buys and positive for sells.
	CashDelta   float64
	RealizedPnL float64
	Applied     bool
	// Skipped explains a no-op.
	Skipped string
}

// ResolveQuantity turns an intent into a share quantity: the whole holding
// for SELL ALL, an explicit share count, or amount / price.
func ResolveQuantity(positions []models.Position, intent models.TradeIntent, price float64) (float64, error) {
	if intent.IsSellAll() {
		for _, p := range positions {
			if p.Ticker == intent.Ticker {
				return p.Shares, nil
			}
		}
		return 0, fmt.Errorf("no %s position to sell", intent.Ticker)
	}
	if q, ok := intent.ExplicitShares(); ok {
		return q, nil
	}
	if price <= 0 {
		return 0, fmt.Errorf("no price for %s", intent.Ticker)
	}
	return decimal.NewFromFloat(intent.Amount()).
		Div(decimal.NewFromFloat(price)).
		Round(6).
		InexactFloat64(), nil
}

// ApplyTrade applies an intent filled at price to positions. The input slice
// is not modified. date is stamped on newly opened positions.
func ApplyTrade(positions []models.Position, intent models.TradeIntent, price float64, date string) Effect {
	out := make([]models.Position, len(positions))
	copy(out, positions)
	eff := Effect{Positions: out}

	qty, err := ResolveQuantity(out, intent, price)
	if err != nil {
		eff.Skipped = err.Error()
		return eff
	}
	if qty <= 0 {
		eff.Skipped = fmt.Sprintf("non-positive quantity %v for %s", qty, intent.Ticker)
		return eff
	}
	if price <= 0 {
		eff.Skipped = fmt.Sprintf("no price for %s", intent.Ticker)
		return eff
	}

	idx := -1
	for i := range out {
		if out[i].Ticker == intent.Ticker {
			idx = i
			break
		}
	}

	dQty := decimal.NewFromFloat(qty)
	dPx := decimal.NewFromFloat(price)

	switch intent.Action {
	case consts.ActionBuy:
		if idx >= 0 {
			p := &out[idx]
			oldQty := decimal.NewFromFloat(p.Shares)
			cost := oldQty.Mul(decimal.NewFromFloat(p.EntryPrice)).Add(dQty.Mul(dPx))
			total := oldQty.Add(dQty)
			p.Shares = total.InexactFloat64()
			p.EntryPrice = cost.Div(total).InexactFloat64()
			if intent.Thesis != "" {
				p.Thesis = intent.Thesis
			}
			revalue(p, price)
		} else {
			p := models.Position{
				Ticker:     intent.Ticker,
				Shares:     qty,
				EntryPrice: price,
				EntryDate:  date,
				Thesis:     intent.Thesis,
			}
			revalue(&p, price)
			out = append(out, p)
		}
		eff.CashDelta = dQty.Mul(dPx).Neg().InexactFloat64()

	case consts.ActionSell:
		if idx < 0 {
			eff.Skipped = fmt.Sprintf("no %s position to sell", intent.Ticker)
			return eff
		}
		p := &out[idx]
		held := decimal.NewFromFloat(p.Shares)
		sold := dQty
		if sold.GreaterThanOrEqual(held) {
			sold = held
			out = append(out[:idx], out[idx+1:]...)
		} else {
			p.Shares = held.Sub(sold).InexactFloat64()
			revalue(p, price)
		}
		qty = sold.InexactFloat64()
		eff.CashDelta = sold.Mul(dPx).InexactFloat64()
		eff.RealizedPnL = dPx.Sub(decimal.NewFromFloat(positions[idx].EntryPrice)).Mul(sold).InexactFloat64()

	default:
		eff.Skipped = fmt.Sprintf("unsupported action %q", intent.Action)
		return eff
	}

	eff.Positions = out
	eff.Quantity = qty
	eff.Applied = true
	return eff
}

// revalue recomputes the derived fields of p at price.
func revalue(p *models.Position, price float64) {
	qty := decimal.NewFromFloat(p.Shares)
	px := decimal.NewFromFloat(price)
	entry := decimal.NewFromFloat(p.EntryPrice)

	p.MarketValue = qty.Mul(px).Round(2).InexactFloat64()
	p.UnrealizedPnL = px.Sub(entry).Mul(qty).Round(2).InexactFloat64()
	if entry.IsZero() {
		p.UnrealizedPnLPct = 0
		return
	}
	p.UnrealizedPnLPct = px.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
