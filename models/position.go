package models

import "time"

// Position is an open holding inside one backtest run. Shares are fractional;
// positions below a negligible share count are removed by the portfolio.
type Position struct {
	Ticker        string    `json:"ticker"`
	Shares        float64   `json:"shares"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	EntryDate     time.Time `json:"entry_date"`
	CurrentPrice  float64   `json:"current_price"`
	CurrentValue  float64   `json:"current_value"`
}

// UpdatePrice marks the position to a new price
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price
	p.CurrentValue = p.Shares * price
}

// Return is the fractional return against the average entry price
func (p *Position) Return() float64 {
	if p.AvgEntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgEntryPrice) / p.AvgEntryPrice
}

// UnrealizedPL is the open profit or loss at the current mark
func (p *Position) UnrealizedPL() float64 {
	return (p.CurrentPrice - p.AvgEntryPrice) * p.Shares
}
