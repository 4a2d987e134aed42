package backtest

import (
	"math"

	"rank-machine/models"
	"rank-machine/observability"
)

// tradingDaysPerYear is the annualization factor for volatility and Sharpe
const tradingDaysPerYear = 252

// ComputeMetrics fills in r.Metrics from the equity curve and trade log.
// Fewer than two equity samples yields zeroed metrics with a warning.
func (r *Result) ComputeMetrics() {
	r.Metrics = models.PerformanceMetrics{}

	if len(r.EquityCurve) < 2 {
		observability.Warn("not enough equity samples for performance metrics",
			"samples", len(r.EquityCurve))
		r.countTrades()
		return
	}

	initial := r.EquityCurve[0].Value
	final := r.EquityCurve[len(r.EquityCurve)-1].Value

	if initial > 0 {
		r.Metrics.TotalReturn = (final - initial) / initial
	}

	// CAGR uses the requested run period, not the span of realized samples
	years := r.EndDate.Sub(r.StartDate).Hours() / 24 / 365.25
	if years > 0 && initial > 0 && final > 0 {
		r.Metrics.CAGR = math.Pow(final/initial, 1/years) - 1
	}

	returns := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		prev := r.EquityCurve[i-1].Value
		if prev > 0 {
			returns = append(returns, (r.EquityCurve[i].Value-prev)/prev)
		}
	}

	if len(returns) > 0 {
		mean := 0.0
		for _, ret := range returns {
			mean += ret
		}
		mean /= float64(len(returns))

		variance := 0.0
		for _, ret := range returns {
			variance += (ret - mean) * (ret - mean)
		}
		variance /= float64(len(returns))

		r.Metrics.Volatility = math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
		if r.Metrics.Volatility > 0 {
			r.Metrics.SharpeRatio = mean * tradingDaysPerYear / r.Metrics.Volatility
		}
	}

	r.Metrics.MaxDrawdown = maxDrawdown(r.EquityCurve)
	r.countTrades()
}

// maxDrawdown walks the equity curve tracking the running peak and returns
// the largest fractional decline from any peak
func maxDrawdown(curve []models.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Value
	maxDD := 0.0
	for _, point := range curve {
		if point.Value > peak {
			peak = point.Value
		}
		if peak > 0 {
			dd := (peak - point.Value) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// countTrades tallies the trade log. A winning trade is a sell that realized
// a positive return against its average entry price; buys never count as
// wins or losses but do count toward the total.
func (r *Result) countTrades() {
	r.Metrics.TotalTrades = len(r.Trades)

	for _, trade := range r.Trades {
		if trade.Side != models.TradeSideSell {
			continue
		}
		if trade.RealizedReturn > 0 {
			r.Metrics.WinningTrades++
		} else {
			r.Metrics.LosingTrades++
		}
	}

	if r.Metrics.TotalTrades > 0 {
		r.Metrics.WinRate = float64(r.Metrics.WinningTrades) / float64(r.Metrics.TotalTrades)
	}
}
