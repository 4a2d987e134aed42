package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rank-machine/models"
	"rank-machine/observability"
)

// CreateBacktestRun persists the aggregate record of a completed run
func (r *Repository) CreateBacktestRun(ctx context.Context, run *models.BacktestRun) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	_, err := r.db.Exec(ctx, `
		INSERT INTO backtest_runs (id, tickers, start_date, end_date, initial_capital, final_value,
			rebalance_frequency, top_n, total_return, cagr, volatility, sharpe_ratio, max_drawdown,
			win_rate, winning_trades, losing_trades, total_trades, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, run.ID, run.Tickers, run.StartDate, run.EndDate, run.InitialCapital, run.FinalValue,
		run.RebalanceFrequency, run.TopN, run.Metrics.TotalReturn, run.Metrics.CAGR,
		run.Metrics.Volatility, run.Metrics.SharpeRatio, run.Metrics.MaxDrawdown,
		run.Metrics.WinRate, run.Metrics.WinningTrades, run.Metrics.LosingTrades,
		run.Metrics.TotalTrades, run.Status, run.CreatedAt)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_runs")
		return fmt.Errorf("failed to insert backtest run: %w", err)
	}

	timer.ObserveDB("insert", "backtest_runs")
	return nil
}

// SaveBacktestTrades persists the trade log of a run atomically. The seq
// column preserves execution order.
func (r *Repository) SaveBacktestTrades(ctx context.Context, runID uuid.UUID, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	tx, txRepo, err := r.BeginTx(ctx)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_trades")
		return err
	}
	defer tx.Rollback(ctx)

	for i, trade := range trades {
		_, err = txRepo.db.Exec(ctx, `
			INSERT INTO backtest_trades (id, run_id, seq, trade_date, ticker, side, shares, price, value, cost, cash_after, realized_return)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, uuid.New(), runID, i, trade.Date, trade.Ticker, string(trade.Side), trade.Shares,
			decimal.NewFromFloat(trade.Price), decimal.NewFromFloat(trade.Value),
			decimal.NewFromFloat(trade.Cost), decimal.NewFromFloat(trade.CashAfter),
			trade.RealizedReturn)
		if err != nil {
			metrics.RecordDBError("insert", "backtest_trades")
			return fmt.Errorf("failed to insert backtest trade: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBError("commit", "backtest_trades")
		return fmt.Errorf("failed to commit backtest trades: %w", err)
	}

	timer.ObserveDB("insert", "backtest_trades")
	return nil
}

// SaveEquityCurve persists the equity curve of a run atomically
func (r *Repository) SaveEquityCurve(ctx context.Context, runID uuid.UUID, curve []models.EquityPoint) error {
	if len(curve) == 0 {
		return nil
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	tx, txRepo, err := r.BeginTx(ctx)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_equity")
		return err
	}
	defer tx.Rollback(ctx)

	for i, point := range curve {
		_, err = txRepo.db.Exec(ctx, `
			INSERT INTO backtest_equity (run_id, seq, date, value)
			VALUES ($1, $2, $3, $4)
		`, runID, i, point.Date, decimal.NewFromFloat(point.Value))
		if err != nil {
			metrics.RecordDBError("insert", "backtest_equity")
			return fmt.Errorf("failed to insert equity point: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBError("commit", "backtest_equity")
		return fmt.Errorf("failed to commit equity curve: %w", err)
	}

	timer.ObserveDB("insert", "backtest_equity")
	return nil
}

// GetBacktestRuns returns recent backtest runs, newest first
func (r *Repository) GetBacktestRuns(ctx context.Context, limit int) ([]models.BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, tickers, start_date, end_date, initial_capital, final_value,
			rebalance_frequency, top_n, total_return, cagr, volatility, sharpe_ratio, max_drawdown,
			win_rate, winning_trades, losing_trades, total_trades, status, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []models.BacktestRun
	for rows.Next() {
		var run models.BacktestRun
		err := rows.Scan(&run.ID, &run.Tickers, &run.StartDate, &run.EndDate, &run.InitialCapital,
			&run.FinalValue, &run.RebalanceFrequency, &run.TopN, &run.Metrics.TotalReturn,
			&run.Metrics.CAGR, &run.Metrics.Volatility, &run.Metrics.SharpeRatio,
			&run.Metrics.MaxDrawdown, &run.Metrics.WinRate, &run.Metrics.WinningTrades,
			&run.Metrics.LosingTrades, &run.Metrics.TotalTrades, &run.Status, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// GetBacktestRun returns a single run by ID, or nil when not found
func (r *Repository) GetBacktestRun(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	var run models.BacktestRun
	err := r.db.QueryRow(ctx, `
		SELECT id, tickers, start_date, end_date, initial_capital, final_value,
			rebalance_frequency, top_n, total_return, cagr, volatility, sharpe_ratio, max_drawdown,
			win_rate, winning_trades, losing_trades, total_trades, status, created_at
		FROM backtest_runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Tickers, &run.StartDate, &run.EndDate, &run.InitialCapital,
		&run.FinalValue, &run.RebalanceFrequency, &run.TopN, &run.Metrics.TotalReturn,
		&run.Metrics.CAGR, &run.Metrics.Volatility, &run.Metrics.SharpeRatio,
		&run.Metrics.MaxDrawdown, &run.Metrics.WinRate, &run.Metrics.WinningTrades,
		&run.Metrics.LosingTrades, &run.Metrics.TotalTrades, &run.Status, &run.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest run: %w", err)
	}

	return &run, nil
}

// GetBacktestTrades returns the trade log of a run in execution order
func (r *Repository) GetBacktestTrades(ctx context.Context, runID uuid.UUID) ([]models.Trade, error) {
	rows, err := r.db.Query(ctx, `
		SELECT trade_date, ticker, side, shares, price, value, cost, cash_after, realized_return
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side string
		var price, value, cost, cashAfter decimal.Decimal
		err := rows.Scan(&t.Date, &t.Ticker, &side, &t.Shares, &price, &value, &cost, &cashAfter, &t.RealizedReturn)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest trade: %w", err)
		}
		t.Side = models.TradeSide(side)
		t.Price = price.InexactFloat64()
		t.Value = value.InexactFloat64()
		t.Cost = cost.InexactFloat64()
		t.CashAfter = cashAfter.InexactFloat64()
		trades = append(trades, t)
	}

	return trades, nil
}

// GetEquityCurve returns the equity curve of a run in order
func (r *Repository) GetEquityCurve(ctx context.Context, runID uuid.UUID) ([]models.EquityPoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, value
		FROM backtest_equity
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var curve []models.EquityPoint
	for rows.Next() {
		var point models.EquityPoint
		var value decimal.Decimal
		if err := rows.Scan(&point.Date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		point.Value = value.InexactFloat64()
		curve = append(curve, point)
	}

	return curve, nil
}
