package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"rank-machine/config"
	"rank-machine/models"
	"rank-machine/observability"
	"rank-machine/ranking"
)

// Frequency is the rebalance cadence of a backtest run
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ErrInvalidFrequency is returned for an unrecognized rebalance frequency
var ErrInvalidFrequency = errors.New("unknown rebalance frequency")

// The as-of ranking inside the backtest uses a fixed technical/sentiment
// blend with sentiment held neutral, instead of the ranking engine's
// configured weights. This mismatch with live ranking is a known design
// inconsistency that is preserved deliberately; do not "fix" it to use the
// engine weights without a product decision.
const (
	asOfPriceWeight     = 0.8
	asOfSentimentWeight = 0.2
	asOfNeutralScore    = 0.0
)

// historyLookbackDays is the trailing window used to measure momentum at
// each rebalance date
const historyLookbackDays = 30

// minTradeShares is the share-delta materiality threshold below which a
// rebalancing trade is skipped
const minTradeShares = 0.01

// Engine simulates the top-N rotation strategy over historical data. Each
// Run owns a fresh Portfolio; an Engine may be reused across runs but runs
// must not execute concurrently against shared collaborators that are not
// themselves safe.
type Engine struct {
	// ranking is the live engine this backtest validates. The as-of ranking
	// below intentionally does not consult it (see the fixed blend above).
	ranking *ranking.Engine
	prices  ranking.PriceFeed

	initialCapital  float64
	frequency       Frequency
	topN            int
	transactionCost float64
	maxPositionSize float64
}

// NewEngine creates a backtest engine from the given configuration
func NewEngine(rankingEngine *ranking.Engine, prices ranking.PriceFeed, cfg *config.BacktestConfig) (*Engine, error) {
	frequency := Frequency(cfg.RebalanceFrequency)
	if _, err := stepDays(frequency); err != nil {
		return nil, err
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %.2f", cfg.InitialCapital)
	}
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("top N must be positive, got %d", cfg.TopN)
	}
	if cfg.TransactionCost < 0 || cfg.TransactionCost >= 1 {
		return nil, fmt.Errorf("transaction cost must be in [0, 1), got %.4f", cfg.TransactionCost)
	}
	if cfg.MaxPositionSize <= 0 || cfg.MaxPositionSize > 1 {
		return nil, fmt.Errorf("max position size must be in (0, 1], got %.4f", cfg.MaxPositionSize)
	}

	observability.Info("initialized backtest engine",
		"initial_capital", cfg.InitialCapital,
		"frequency", cfg.RebalanceFrequency,
		"top_n", cfg.TopN)

	return &Engine{
		ranking:         rankingEngine,
		prices:          prices,
		initialCapital:  cfg.InitialCapital,
		frequency:       frequency,
		topN:            cfg.TopN,
		transactionCost: cfg.TransactionCost,
		maxPositionSize: cfg.MaxPositionSize,
	}, nil
}

// stepDays maps a frequency to its schedule step. Monthly steps a fixed 30
// days rather than calendar months; a known simplification kept for
// behavioral parity.
func stepDays(f Frequency) (int, error) {
	switch f {
	case FrequencyDaily:
		return 1, nil
	case FrequencyWeekly:
		return 7, nil
	case FrequencyMonthly:
		return 30, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
}

// RebalanceSchedule returns the ordered rebalance dates from start through
// end at the engine's frequency
func (e *Engine) RebalanceSchedule(start, end time.Time) []time.Time {
	step, _ := stepDays(e.frequency)

	var dates []time.Time
	for current := start; !current.After(end); current = current.AddDate(0, 0, step) {
		dates = append(dates, current)
	}
	return dates
}

// Run simulates the strategy over [start, end]. Per-ticker data gaps are
// logged and skipped; only systemic failures abort the run.
func (e *Engine) Run(ctx context.Context, tickers []string, start, end time.Time) (*Result, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	observability.Info("starting backtest",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"universe", len(tickers),
		"top_n", e.topN,
		"frequency", string(e.frequency))

	portfolio := NewPortfolio(e.initialCapital)
	schedule := e.RebalanceSchedule(start, end)

	result := &Result{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: e.initialCapital,
		FinalValue:     e.initialCapital,
	}

	for i, date := range schedule {
		if err := ctx.Err(); err != nil {
			metrics.RecordBacktestRun("error")
			return nil, fmt.Errorf("backtest aborted at %s: %w", date.Format("2006-01-02"), err)
		}

		observability.Debug("rebalancing",
			"date", date.Format("2006-01-02"),
			"step", i+1,
			"total_steps", len(schedule))

		prices := e.resolvePrices(ctx, tickers, date)
		if len(prices) == 0 {
			observability.Warn("no price data available, skipping date",
				"date", date.Format("2006-01-02"))
			metrics.RecordRebalanceDate("skipped_no_prices")
			continue
		}

		// The equity sample is recorded before trading so the curve reflects
		// the mark at every date with data, trade or no trade
		portfolio.MarkToMarket(prices)
		result.EquityCurve = append(result.EquityCurve, models.EquityPoint{
			Date:  date,
			Value: portfolio.TotalValue(),
		})

		trades := e.rebalance(ctx, portfolio, tickers, date, prices)
		result.Trades = append(result.Trades, trades...)
		for _, trade := range trades {
			metrics.RecordBacktestTrade(string(trade.Side))
		}
		metrics.RecordRebalanceDate("rebalanced")
	}

	if n := len(result.EquityCurve); n > 0 {
		result.FinalValue = result.EquityCurve[n-1].Value
	}
	result.ComputeMetrics()

	metrics.RecordBacktestRun("success")
	metrics.RecordBacktestReturn(result.Metrics.TotalReturn)
	timer.ObserveBacktest(string(e.frequency))

	observability.Info("backtest completed",
		"final_value", result.FinalValue,
		"total_return", result.Metrics.TotalReturn,
		"trades", len(result.Trades),
		"duration", timer.Duration())

	return result, nil
}

// resolvePrices fetches each ticker's most recent close as of the date.
// Tickers without a resolvable price are excluded from this round's trading
// universe but never abort the run.
func (e *Engine) resolvePrices(ctx context.Context, tickers []string, date time.Time) map[string]float64 {
	prices := make(map[string]float64, len(tickers))
	for _, ticker := range tickers {
		point, err := e.prices.GetPrice(ctx, ticker, date)
		if err != nil {
			if errors.Is(err, models.ErrDataUnavailable) {
				observability.WithTicker(ticker).Debug("no price for date",
					"date", date.Format("2006-01-02"))
			} else {
				observability.WithTicker(ticker).Warn("price fetch failed",
					"date", date.Format("2006-01-02"),
					"error", err)
			}
			continue
		}
		prices[ticker] = point.Close
	}
	return prices
}

// asOfRanking is one row of the point-in-time ranking used inside a run
type asOfRanking struct {
	Ticker         string
	TechnicalScore float64
	CompositeScore float64
}

// rankAsOf reconstructs the ranking as it would have looked on the given
// date, from the trailing price history only
func (e *Engine) rankAsOf(ctx context.Context, tickers []string, date time.Time) []asOfRanking {
	lookbackStart := date.AddDate(0, 0, -historyLookbackDays)

	rankings := make([]asOfRanking, 0, len(tickers))
	for _, ticker := range tickers {
		bars, err := e.prices.GetHistory(ctx, ticker, lookbackStart, date)
		if err != nil {
			observability.WithTicker(ticker).Debug("no history for as-of ranking",
				"date", date.Format("2006-01-02"),
				"error", err)
			continue
		}
		if len(bars) < 2 {
			continue
		}

		technical := ranking.TechnicalScore(bars)
		rankings = append(rankings, asOfRanking{
			Ticker:         ticker,
			TechnicalScore: technical,
			CompositeScore: asOfPriceWeight*technical + asOfSentimentWeight*asOfNeutralScore,
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].CompositeScore > rankings[j].CompositeScore
	})

	return rankings
}

// rebalance moves the portfolio toward the current top-N picks, returning
// the executed trades in order
func (e *Engine) rebalance(ctx context.Context, portfolio *Portfolio, tickers []string, date time.Time, prices map[string]float64) []models.Trade {
	metrics := observability.GetMetrics()

	rankings := e.rankAsOf(ctx, tickers, date)
	if len(rankings) == 0 {
		observability.Warn("no rankings available, holding current positions",
			"date", date.Format("2006-01-02"))
		metrics.RecordRebalanceDate("skipped_no_rankings")
		return nil
	}

	// Target sizing uses the total value marked before any closes this round
	totalValue := portfolio.TotalValue()

	topN := e.topN
	if topN > len(rankings) {
		topN = len(rankings)
	}
	picks := make([]string, 0, topN)
	inPicks := make(map[string]bool, topN)
	for _, row := range rankings[:topN] {
		picks = append(picks, row.Ticker)
		inPicks[row.Ticker] = true
	}

	var trades []models.Trade

	// Close everything that fell out of the top N. Iterate a sorted snapshot
	// of tickers so the trade order is deterministic.
	held := make([]string, 0, len(portfolio.Positions()))
	for ticker := range portfolio.Positions() {
		held = append(held, ticker)
	}
	sort.Strings(held)
	for _, ticker := range held {
		if inPicks[ticker] {
			continue
		}
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		if trade := portfolio.ClosePosition(ticker, price, e.transactionCost, date); trade != nil {
			trades = append(trades, *trade)
		}
	}

	// Size each pick to an equal slice of the portfolio, capped by the
	// per-position limit, and trade only material share deltas
	targetAllocation := math.Min(e.maxPositionSize, 1.0/float64(len(picks)))
	targetValue := totalValue * targetAllocation

	for _, ticker := range picks {
		price, ok := prices[ticker]
		if !ok {
			continue
		}

		targetShares := targetValue / price
		diff := targetShares - portfolio.HeldShares(ticker)
		if math.Abs(diff) <= minTradeShares {
			continue
		}

		if trade := portfolio.ExecuteTrade(ticker, diff, price, e.transactionCost, date); trade != nil {
			trades = append(trades, *trade)
		}
	}

	return trades
}
