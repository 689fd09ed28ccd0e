package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dyike/ValueArena/models"
)

// NewTradeRecord builds the audit entry for an intent and its brokerage
// result. qty and price are what the accountant applied (zero when skipped).
func NewTradeRecord(intent models.TradeIntent, result models.FillResult, qty, price float64, at time.Time) models.TradeRecord {
	return models.TradeRecord{
		ID:           uuid.NewString(),
		Date:         at.UTC().Format(time.RFC3339),
		Action:       intent.Action,
		Ticker:       intent.Ticker,
		AmountUSD:    intent.AmountUSD,
		Shares:       intent.Shares,
		SharesFilled: qty,
		Price:        price,
		Thesis:       intent.Thesis,
		Reason:       intent.Reason,
		Result:       result,
	}
}

// Commit folds an applied effect into l. Trade history is appended by the
// caller through AppendTrade so skipped trades are still audited.
func Commit(l *models.Ledger, eff Effect) {
	if !eff.Applied {
		return
	}
	l.Positions = eff.Positions
	l.Cash = decimal.NewFromFloat(l.Cash).Add(decimal.NewFromFloat(eff.CashDelta)).Round(2).InexactFloat64()
	l.RealizedPnL = decimal.NewFromFloat(l.RealizedPnL).Add(decimal.NewFromFloat(eff.RealizedPnL)).Round(2).InexactFloat64()
}

func AppendTrade(l *models.Ledger, rec models.TradeRecord) {
	l.TradeHistory = append(l.TradeHistory, rec)
}
