package ledger

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dyike/ValueArena/models"
)

type Performance struct {
	ModelID        string  `json:"model_id"`
	DisplayName    string  `json:"display_name,omitempty"`
	NAV            float64 `json:"nav"`
	ReturnPct      float64 `json:"return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Volatility     float64 `json:"volatility"`
	RealizedPnL    float64 `json:"realized_pnl"`
	Positions      int     `json:"positions"`
	Trades         int     `json:"trades"`
}

// Measure summarizes a ledger's NAV history.
func Measure(l *models.Ledger) Performance {
	nav := l.LatestNAV()
	perf := Performance{
		ModelID:     l.ModelID,
		DisplayName: l.DisplayName,
		NAV:         nav,
		RealizedPnL: l.RealizedPnL,
		Positions:   len(l.Positions),
		Trades:      len(l.TradeHistory),
	}
	if l.StartingCapital > 0 {
		perf.ReturnPct = round2((nav - l.StartingCapital) / l.StartingCapital * 100)
	}

	var (
		peak    float64
		maxDD   float64
		returns []float64
	)
	for i, p := range l.NavHistory {
		if p.NAV > peak {
			peak = p.NAV
		}
		if peak > 0 {
			if dd := (peak - p.NAV) / peak; dd > maxDD {
				maxDD = dd
			}
		}
		if i > 0 && l.NavHistory[i-1].NAV > 0 {
			prev := l.NavHistory[i-1].NAV
			returns = append(returns, (p.NAV-prev)/prev)
		}
	}
	perf.MaxDrawdownPct = round2(maxDD * 100)
	if len(returns) > 1 {
		perf.Volatility = round2(stat.StdDev(returns, nil) * 100)
	}
	return perf
}

// Leaderboard ranks ledgers by NAV, highest first.
func Leaderboard(ledgers []*models.Ledger) []Performance {
	out := make([]Performance, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, Measure(l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NAV > out[j].NAV })
	return out
}
