package ledger

import (
	"sort"

	"github.com/dyike/ValueArena/models"
)

// UpdateNAV records nav for date. An existing entry for the same date is
// overwritten; otherwise the point is inserted keeping dates ascending.
func UpdateNAV(l *models.Ledger, date string, nav float64) {
	i := sort.Search(len(l.NavHistory), func(i int) bool {
		return l.NavHistory[i].Date >= date
	})
	if i < len(l.NavHistory) && l.NavHistory[i].Date == date {
		l.NavHistory[i].NAV = nav
		return
	}
	l.NavHistory = append(l.NavHistory, models.NavPoint{})
	copy(l.NavHistory[i+1:], l.NavHistory[i:])
	l.NavHistory[i] = models.NavPoint{Date: date, NAV: nav}
}

// normalizeNavHistory sorts by date and keeps the last value seen per date.
func normalizeNavHistory(points []models.NavPoint) []models.NavPoint {
	if len(points) == 0 {
		return points
	}
	byDate := make(map[string]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.NAV
	}
	out := make([]models.NavPoint, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, models.NavPoint{Date: d, NAV: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// AppendResearch adds a research log entry; blank notes are ignored.
func AppendResearch(l *models.Ledger, date, notes string) bool {
	if notes == "" {
		return false
	}
	l.ResearchLogs = append(l.ResearchLogs, models.ResearchLog{Date: date, Notes: notes})
	return true
}

// Revalue recomputes the derived fields of every position that has a price
// in prices. Positions without a price keep their previous values.
func Revalue(l *models.Ledger, prices map[string]float64) {
	for i := range l.Positions {
		if px, ok := prices[l.Positions[i].Ticker]; ok && px > 0 {
			revalue(&l.Positions[i], px)
		}
	}
}

// ComputeNAV is cash plus the market value of every position.
func ComputeNAV(l *models.Ledger) float64 {
	nav := l.Cash
	for _, p := range l.Positions {
		nav += p.MarketValue
	}
	return round2(nav)
}
