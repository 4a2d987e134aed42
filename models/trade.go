package models

import "time"

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an immutable record of one executed backtest trade. Shares is
// always positive; Side carries the direction. CashAfter is the cash balance
// left after settlement, recorded for auditability.
type Trade struct {
	Date      time.Time `json:"date"`
	Ticker    string    `json:"ticker"`
	Side      TradeSide `json:"side"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	Cost      float64   `json:"cost"`
	CashAfter float64   `json:"cash_after"`

	// RealizedReturn is the fractional return realized against the average
	// entry price. Set on sells only.
	RealizedReturn float64 `json:"realized_return,omitempty"`
}
