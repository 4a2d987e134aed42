package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rank-machine/backtest"
	"rank-machine/config"
	"rank-machine/models"
	"rank-machine/observability"
	"rank-machine/ranking"
	"rank-machine/repository"
)

// App wires the ranking engine, backtest engine, and repository behind the
// HTTP surface
type App struct {
	cfg    *config.Config
	repo   *repository.Repository
	engine *ranking.Engine
	prices ranking.PriceFeed
}

// NewApp creates a new App. repo may be nil; persistence is then skipped with
// a warning and read endpoints report the database as unavailable.
func NewApp(cfg *config.Config, repo *repository.Repository, engine *ranking.Engine, prices ranking.PriceFeed) *App {
	return &App{
		cfg:    cfg,
		repo:   repo,
		engine: engine,
		prices: prices,
	}
}

// Shutdown releases held resources
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
}

// RankAssets ranks the given tickers and persists the batch when a database
// is configured. A failed save is logged but never fails the ranking.
func (a *App) RankAssets(ctx context.Context, tickers []string, includeDetails bool) (*models.RankingBatch, error) {
	rows, err := a.engine.Rank(ctx, tickers, includeDetails)
	if err != nil {
		return nil, err
	}

	priceWeight, sentimentWeight := a.engine.Weights()
	batch := &models.RankingBatch{
		Rows:            rows,
		PriceWeight:     priceWeight,
		SentimentWeight: sentimentWeight,
		GeneratedAt:     time.Now(),
	}

	if a.repo != nil {
		if _, err := a.repo.SaveRankingBatch(ctx, batch); err != nil {
			observability.Error("failed to save ranking batch", "error", err)
		}
	}

	return batch, nil
}

// TopPicks ranks the tickers and returns the strongest candidates
func (a *App) TopPicks(ctx context.Context, tickers []string, topN, minHeadlines int) ([]ranking.TopPick, error) {
	return a.engine.TopPicks(ctx, tickers, topN, minHeadlines)
}

// GetLatestRankings returns the most recently persisted ranking batch
func (a *App) GetLatestRankings(ctx context.Context) (*models.RankingBatch, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetLatestRankings(ctx)
}

// UpdateWeights replaces the ranking blend weights
func (a *App) UpdateWeights(priceWeight, sentimentWeight float64) error {
	return a.engine.UpdateWeights(priceWeight, sentimentWeight)
}

// BacktestRequest holds the parameters of one backtest run. Zero-valued
// fields fall back to the configured defaults.
type BacktestRequest struct {
	Tickers            []string
	StartDate          time.Time
	EndDate            time.Time
	InitialCapital     float64
	RebalanceFrequency string
	TopN               int
	TransactionCost    float64
	MaxPositionSize    float64
}

// RunBacktest runs a backtest with the given parameters and persists the run,
// trade log, and equity curve when a database is configured
func (a *App) RunBacktest(ctx context.Context, req BacktestRequest) (*backtest.Result, *models.BacktestRun, error) {
	if len(req.Tickers) == 0 {
		return nil, nil, fmt.Errorf("at least one ticker is required")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, nil, fmt.Errorf("end date must be after start date")
	}

	btCfg := a.cfg.Backtest
	if req.InitialCapital > 0 {
		btCfg.InitialCapital = req.InitialCapital
	}
	if req.RebalanceFrequency != "" {
		btCfg.RebalanceFrequency = req.RebalanceFrequency
	}
	if req.TopN > 0 {
		btCfg.TopN = req.TopN
	}
	if req.TransactionCost > 0 {
		btCfg.TransactionCost = req.TransactionCost
	}
	if req.MaxPositionSize > 0 {
		btCfg.MaxPositionSize = req.MaxPositionSize
	}

	engine, err := backtest.NewEngine(a.engine, a.prices, &btCfg)
	if err != nil {
		return nil, nil, err
	}

	result, err := engine.Run(ctx, req.Tickers, req.StartDate, req.EndDate)
	if err != nil {
		return nil, nil, err
	}

	run := &models.BacktestRun{
		ID:                 uuid.New(),
		Tickers:            req.Tickers,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		InitialCapital:     decimal.NewFromFloat(result.InitialCapital),
		FinalValue:         decimal.NewFromFloat(result.FinalValue),
		RebalanceFrequency: btCfg.RebalanceFrequency,
		TopN:               btCfg.TopN,
		Metrics:            result.Metrics,
		Status:             models.BacktestStatusCompleted,
		CreatedAt:          time.Now(),
	}

	if a.repo != nil {
		if err := a.repo.CreateBacktestRun(ctx, run); err != nil {
			observability.Error("failed to save backtest run", "error", err)
		} else {
			if err := a.repo.SaveBacktestTrades(ctx, run.ID, result.Trades); err != nil {
				observability.Error("failed to save backtest trades", "run_id", run.ID, "error", err)
			}
			if err := a.repo.SaveEquityCurve(ctx, run.ID, result.EquityCurve); err != nil {
				observability.Error("failed to save equity curve", "run_id", run.ID, "error", err)
			}
		}
	}

	return result, run, nil
}

// GetBacktestRuns returns recent persisted runs
func (a *App) GetBacktestRuns(ctx context.Context, limit int) ([]models.BacktestRun, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetBacktestRuns(ctx, limit)
}

// GetBacktestTrades returns the persisted trade log of a run
func (a *App) GetBacktestTrades(ctx context.Context, id uuid.UUID) ([]models.Trade, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetBacktestTrades(ctx, id)
}

// GetEquityCurve returns the persisted equity curve of a run
func (a *App) GetEquityCurve(ctx context.Context, id uuid.UUID) ([]models.EquityPoint, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetEquityCurve(ctx, id)
}
