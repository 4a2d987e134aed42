// Package main provides a standalone CLI for running a single backtest from
// the command line, without the HTTP server. Useful for strategy iteration
// and scripted parameter sweeps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rank-machine/backtest"
	"rank-machine/config"
	"rank-machine/observability"
	"rank-machine/ranking"
	"rank-machine/services"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		tickersFlag = flag.String("tickers", "", "comma-separated tickers to simulate (required)")
		startFlag   = flag.String("start", "", "start date, YYYY-MM-DD (required)")
		endFlag     = flag.String("end", "", "end date, YYYY-MM-DD (required)")
		capital     = flag.Float64("capital", 0, "initial capital (default from config)")
		frequency   = flag.String("frequency", "", "rebalance frequency: daily, weekly, monthly")
		topN        = flag.Int("top-n", 0, "number of positions to hold")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	observability.InitLoggerWithLevel(false, level)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	if *tickersFlag == "" || *startFlag == "" || *endFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	tickers := splitTickers(*tickersFlag)
	if len(tickers) == 0 {
		observability.Fatal("no valid tickers given")
	}

	start, err := time.Parse(dateLayout, *startFlag)
	if err != nil {
		observability.Fatal("invalid start date", "error", err)
	}
	end, err := time.Parse(dateLayout, *endFlag)
	if err != nil {
		observability.Fatal("invalid end date", "error", err)
	}

	if !cfg.HasAlpaca() {
		observability.Fatal("ALPACA_API_KEY and ALPACA_API_SECRET are required")
	}

	btCfg := cfg.Backtest
	if *capital > 0 {
		btCfg.InitialCapital = *capital
	}
	if *frequency != "" {
		btCfg.RebalanceFrequency = *frequency
	}
	if *topN > 0 {
		btCfg.TopN = *topN
	}

	prices := services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)

	// The CLI ranks on momentum alone; sentiment needs the full server stack
	rankingEngine, err := ranking.NewEngine(cfg.Ranking.PriceWeight, cfg.Ranking.SentimentWeight, prices, nil)
	if err != nil {
		observability.Fatal("failed to create ranking engine", "error", err)
	}

	engine, err := backtest.NewEngine(rankingEngine, prices, &btCfg)
	if err != nil {
		observability.Fatal("failed to create backtest engine", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := engine.Run(ctx, tickers, start, end)
	if err != nil {
		observability.Fatal("backtest failed", "error", err)
	}

	fmt.Print(result.String())
}

func splitTickers(s string) []string {
	parts := strings.Split(s, ",")
	tickers := make([]string, 0, len(parts))
	for _, part := range parts {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}
