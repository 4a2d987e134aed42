package backtest

import (
	"fmt"
	"strings"
	"time"

	"rank-machine/models"
)

// Result is the full output of one backtest run
type Result struct {
	StartDate      time.Time                 `json:"start_date"`
	EndDate        time.Time                 `json:"end_date"`
	InitialCapital float64                   `json:"initial_capital"`
	FinalValue     float64                   `json:"final_value"`
	EquityCurve    []models.EquityPoint      `json:"equity_curve"`
	Trades         []models.Trade            `json:"trades"`
	Metrics        models.PerformanceMetrics `json:"metrics"`
}

// SummaryItem is one labeled line of a result summary
type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary renders the headline numbers of the run as ordered label/value
// pairs, ready for display
func (r *Result) Summary() []SummaryItem {
	return []SummaryItem{
		{"Period", fmt.Sprintf("%s to %s", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))},
		{"Initial Capital", fmt.Sprintf("$%.2f", r.InitialCapital)},
		{"Final Value", fmt.Sprintf("$%.2f", r.FinalValue)},
		{"Total Return", fmt.Sprintf("%.2f%%", r.Metrics.TotalReturn*100)},
		{"CAGR", fmt.Sprintf("%.2f%%", r.Metrics.CAGR*100)},
		{"Volatility", fmt.Sprintf("%.2f%%", r.Metrics.Volatility*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", r.Metrics.SharpeRatio)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown*100)},
		{"Total Trades", fmt.Sprintf("%d", r.Metrics.TotalTrades)},
		{"Win Rate", fmt.Sprintf("%.1f%%", r.Metrics.WinRate*100)},
	}
}

// String renders the summary as a multi-line report
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString("Backtest Results\n")
	for _, item := range r.Summary() {
		fmt.Fprintf(&b, "  %-16s %s\n", item.Label+":", item.Value)
	}
	return b.String()
}
