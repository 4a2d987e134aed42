package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EquityPoint is one sample of total portfolio value on the equity curve
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PerformanceMetrics are derived once from a completed equity curve and trade
// log. All ratios are fractions (0.12 = 12%), not percentages.
type PerformanceMetrics struct {
	TotalReturn   float64 `json:"total_return"`
	CAGR          float64 `json:"cagr"`
	Volatility    float64 `json:"volatility"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	WinRate       float64 `json:"win_rate"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalTrades   int     `json:"total_trades"`
}

type BacktestStatus string

const (
	BacktestStatusCompleted BacktestStatus = "completed"
	BacktestStatusFailed    BacktestStatus = "failed"
)

// BacktestRun is the persisted aggregate of one backtest. Money columns use
// decimal so the database rows stay exact regardless of the float math used
// inside the simulation.
type BacktestRun struct {
	ID                 uuid.UUID          `json:"id"`
	Tickers            []string           `json:"tickers"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	InitialCapital     decimal.Decimal    `json:"initial_capital"`
	FinalValue         decimal.Decimal    `json:"final_value"`
	RebalanceFrequency string             `json:"rebalance_frequency"`
	TopN               int                `json:"top_n"`
	Metrics            PerformanceMetrics `json:"metrics"`
	Status             BacktestStatus     `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}
