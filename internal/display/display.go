// Package display renders ledgers, cycle results and the leaderboard for
// the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/trading"
	"github.com/dyike/ValueArena/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// signed colours a number by its sign.
func signed(v float64, format string) string {
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return gainStyle.Render("+" + s)
	case v < 0:
		return lossStyle.Render(s)
	default:
		return s
	}
}

// Portfolio renders one ledger: summary, positions and the latest research.
func Portfolio(w io.Writer, l *models.Ledger) {
	name := l.DisplayName
	if name == "" {
		name = l.ModelID
	}
	nav := l.LatestNAV()
	ret := 0.0
	if l.StartingCapital > 0 {
		ret = (nav - l.StartingCapital) / l.StartingCapital * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(name), mutedStyle.Render(l.ModelID))
	fmt.Fprintf(&b, "NAV %.2f (%s)  cash %.2f  realized %s\n", nav, signed(ret, "%.2f%%"), l.Cash, signed(l.RealizedPnL, "%.2f"))

	if len(l.Positions) == 0 {
		b.WriteString(mutedStyle.Render("no open positions") + "\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %12s %10s %12s %10s", "TICKER", "SHARES", "ENTRY", "VALUE", "P&L %")) + "\n")
		for _, p := range l.Positions {
			fmt.Fprintf(&b, "%-8s %12.4f %10.2f %12.2f %10s\n",
				p.Ticker, p.Shares, p.EntryPrice, p.MarketValue, signed(p.UnrealizedPnLPct, "%.2f"))
		}
	}

	if n := len(l.ResearchLogs); n > 0 {
		last := l.ResearchLogs[n-1]
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("research "+last.Date+":"), wrap(last.Notes, 76))
	}
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// Leaderboard renders agents ranked by NAV.
func Leaderboard(w io.Writer, board []ledger.Performance) {
	fmt.Fprintln(w, titleStyle.Render("Leaderboard"))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-4s %-20s %12s %9s %9s %8s %7s", "#", "AGENT", "NAV", "RETURN", "MAX DD", "VOL", "TRADES")))
	for i, p := range board {
		name := p.DisplayName
		if name == "" {
			name = p.ModelID
		}
		fmt.Fprintf(w, "%-4d %-20s %12.2f %9s %8.2f%% %8.2f %7d\n",
			i+1, truncate(name, 20), p.NAV, signed(p.ReturnPct, "%.2f%%"), p.MaxDrawdownPct, p.Volatility, p.Trades)
	}
}

// CycleResults renders the per-agent status lines of a daily cycle.
func CycleResults(w io.Writer, results []trading.AgentStatus) {
	fmt.Fprintln(w, titleStyle.Render("Daily cycle"))
	for _, r := range results {
		mark := gainStyle.Render("✓")
		if r.Status == consts.Status_Error {
			mark = lossStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %-32s trades=%d nav=%.2f", mark, r.Model, r.Trades, r.NAV)
		if r.Outcome != "" && r.Outcome != consts.State_Done {
			line += " " + mutedStyle.Render(r.Outcome)
		}
		if r.Error != "" {
			line += " " + lossStyle.Render(r.Error)
		}
		fmt.Fprintln(w, line)
	}
}

// DisplayError shows formatted error messages
func DisplayError(w io.Writer, err error, context string) {
	fmt.Fprintf(w, "%s %s: %v\n", lossStyle.Render("✗"), context, err)
}

// DisplayWarning shows formatted warning messages
func DisplayWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// DisplaySuccess shows formatted success messages
func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", gainStyle.Render("✓"), message)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func wrap(text string, width int) string {
	words := strings.Fields(text)
	var b strings.Builder
	col := 0
	for _, word := range words {
		if col > 0 && col+len(word)+1 > width {
			b.WriteString("\n")
			col = 0
		} else if col > 0 {
			b.WriteString(" ")
			col++
		}
		b.WriteString(word)
		col += len(word)
	}
	return b.String()
}
