package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"rank-machine/config"
	"rank-machine/models"
)

// fakeFeed produces deterministic synthetic prices from a price function.
// GetHistory emits one bar per calendar day the function resolves.
type fakeFeed struct {
	priceFn func(ticker string, date time.Time) (float64, bool)
}

func (f *fakeFeed) GetPrice(ctx context.Context, ticker string, asOf time.Time) (models.PricePoint, error) {
	price, ok := f.priceFn(ticker, asOf)
	if !ok {
		return models.PricePoint{}, fmt.Errorf("%w: %s", models.ErrDataUnavailable, ticker)
	}
	return models.PricePoint{Ticker: ticker, Date: asOf, Close: price}, nil
}

func (f *fakeFeed) GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	var bars []models.Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		price, ok := f.priceFn(ticker, d)
		if !ok {
			continue
		}
		bars = append(bars, models.Bar{Ticker: ticker, Timestamp: d, Close: price})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrDataUnavailable, ticker)
	}
	return bars, nil
}

var runStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// growthFeed returns a feed where each ticker compounds at a fixed daily rate
// from a base price of 100 at runStart
func growthFeed(rates map[string]float64) *fakeFeed {
	return &fakeFeed{
		priceFn: func(ticker string, date time.Time) (float64, bool) {
			rate, ok := rates[ticker]
			if !ok {
				return 0, false
			}
			days := date.Sub(runStart).Hours() / 24
			return 100 * math.Pow(1+rate, days), true
		},
	}
}

func testBacktestConfig() *config.BacktestConfig {
	return &config.BacktestConfig{
		InitialCapital:     10000,
		RebalanceFrequency: "monthly",
		TopN:               1,
		TransactionCost:    0,
		MaxPositionSize:    1.0,
	}
}

func TestNewEngineValidation(t *testing.T) {
	feed := growthFeed(nil)

	tests := []struct {
		name    string
		mutate  func(*config.BacktestConfig)
		wantErr bool
	}{
		{"valid", func(c *config.BacktestConfig) {}, false},
		{"bad frequency", func(c *config.BacktestConfig) { c.RebalanceFrequency = "hourly" }, true},
		{"zero capital", func(c *config.BacktestConfig) { c.InitialCapital = 0 }, true},
		{"zero top n", func(c *config.BacktestConfig) { c.TopN = 0 }, true},
		{"cost of one", func(c *config.BacktestConfig) { c.TransactionCost = 1 }, true},
		{"oversized position", func(c *config.BacktestConfig) { c.MaxPositionSize = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testBacktestConfig()
			tt.mutate(cfg)
			_, err := NewEngine(nil, feed, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("frequency error is typed", func(t *testing.T) {
		cfg := testBacktestConfig()
		cfg.RebalanceFrequency = "hourly"
		_, err := NewEngine(nil, feed, cfg)
		if !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("error = %v, want ErrInvalidFrequency", err)
		}
	})
}

func TestRebalanceSchedule(t *testing.T) {
	tests := []struct {
		frequency string
		days      int
		wantDates int
	}{
		{"daily", 10, 11},
		{"weekly", 28, 5},
		{"monthly", 90, 4}, // fixed 30-day steps: days 0, 30, 60, 90
	}

	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			cfg := testBacktestConfig()
			cfg.RebalanceFrequency = tt.frequency
			engine, err := NewEngine(nil, growthFeed(nil), cfg)
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}

			dates := engine.RebalanceSchedule(runStart, runStart.AddDate(0, 0, tt.days))
			if len(dates) != tt.wantDates {
				t.Errorf("got %d dates, want %d", len(dates), tt.wantDates)
			}
			if dates[0] != runStart {
				t.Errorf("first date = %v, want start", dates[0])
			}
		})
	}
}

func TestRunRotatesIntoTopPerformer(t *testing.T) {
	feed := growthFeed(map[string]float64{
		"WIN":  0.01,
		"LOSE": -0.01,
	})

	engine, err := NewEngine(nil, feed, testBacktestConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	result, err := engine.Run(context.Background(), []string{"LOSE", "WIN"}, runStart, runStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Trades) == 0 {
		t.Fatal("no trades executed")
	}
	for _, trade := range result.Trades {
		if trade.Ticker == "LOSE" {
			t.Errorf("traded LOSE: %+v, top-1 strategy must only hold WIN", trade)
		}
	}

	if result.FinalValue <= result.InitialCapital {
		t.Errorf("FinalValue = %v, want growth above %v riding the winner",
			result.FinalValue, result.InitialCapital)
	}
	if result.Metrics.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %v, want positive", result.Metrics.TotalReturn)
	}
	if len(result.EquityCurve) != 4 {
		t.Errorf("equity curve has %d points, want 4 monthly samples", len(result.EquityCurve))
	}
}

func TestRunClosesDroppedPositions(t *testing.T) {
	// FADE rallies for 45 days then rolls over; GRIND climbs slowly the whole
	// time. The strategy should rotate out of FADE once its trailing momentum
	// goes negative.
	feed := &fakeFeed{
		priceFn: func(ticker string, date time.Time) (float64, bool) {
			days := date.Sub(runStart).Hours() / 24
			switch ticker {
			case "FADE":
				if days <= 45 {
					return 100 * math.Pow(1.01, days), true
				}
				peak := 100 * math.Pow(1.01, 45)
				return peak * math.Pow(0.98, days-45), true
			case "GRIND":
				return 100 * math.Pow(1.002, days), true
			}
			return 0, false
		},
	}

	engine, err := NewEngine(nil, feed, testBacktestConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	result, err := engine.Run(context.Background(), []string{"FADE", "GRIND"}, runStart, runStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var soldFade, boughtGrind bool
	for _, trade := range result.Trades {
		if trade.Ticker == "FADE" && trade.Side == models.TradeSideSell {
			soldFade = true
		}
		if trade.Ticker == "GRIND" && trade.Side == models.TradeSideBuy {
			boughtGrind = true
		}
	}
	if !soldFade {
		t.Error("expected FADE to be closed after momentum reversed")
	}
	if !boughtGrind {
		t.Error("expected rotation into GRIND")
	}
}

func TestRunRespectsMaxPositionSize(t *testing.T) {
	feed := growthFeed(map[string]float64{"ONLY": 0.01})

	cfg := testBacktestConfig()
	cfg.MaxPositionSize = 0.20
	engine, err := NewEngine(nil, feed, cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	result, err := engine.Run(context.Background(), []string{"ONLY"}, runStart, runStart.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Trades) == 0 {
		t.Fatal("no trades executed")
	}
	first := result.Trades[0]
	if first.Value > 10000*0.20+1 {
		t.Errorf("first buy value = %v, want capped near %v by position limit", first.Value, 10000*0.20)
	}
}

func TestRunNoDataSkipsDates(t *testing.T) {
	feed := &fakeFeed{
		priceFn: func(ticker string, date time.Time) (float64, bool) {
			return 0, false
		},
	}

	engine, err := NewEngine(nil, feed, testBacktestConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	result, err := engine.Run(context.Background(), []string{"NOPE"}, runStart, runStart.AddDate(0, 0, 60))
	if err != nil {
		t.Fatalf("Run() error = %v, per-ticker gaps must not abort the run", err)
	}

	if len(result.EquityCurve) != 0 {
		t.Errorf("equity curve has %d points, want 0", len(result.EquityCurve))
	}
	if result.FinalValue != result.InitialCapital {
		t.Errorf("FinalValue = %v, want untouched initial capital", result.FinalValue)
	}
	if len(result.Trades) != 0 {
		t.Errorf("got %d trades, want 0", len(result.Trades))
	}
}

func TestRunCancelledContext(t *testing.T) {
	feed := growthFeed(map[string]float64{"AAA": 0.01})

	engine, err := NewEngine(nil, feed, testBacktestConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Run(ctx, []string{"AAA"}, runStart, runStart.AddDate(0, 0, 90))
	if err == nil {
		t.Fatal("Run() = nil error, want abort on cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want wrapped context.Canceled", err)
	}
}

func TestRunDeterminism(t *testing.T) {
	feed := growthFeed(map[string]float64{
		"AAA": 0.005,
		"BBB": 0.003,
		"CCC": -0.002,
	})

	cfg := testBacktestConfig()
	cfg.TopN = 2
	cfg.MaxPositionSize = 0.5
	cfg.TransactionCost = 0.001

	run := func() *Result {
		engine, err := NewEngine(nil, feed, cfg)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		result, err := engine.Run(context.Background(), []string{"AAA", "BBB", "CCC"}, runStart, runStart.AddDate(0, 0, 120))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if len(first.Trades) != len(second.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(first.Trades), len(second.Trades))
	}
	for i := range first.Trades {
		a, b := first.Trades[i], second.Trades[i]
		if a.Ticker != b.Ticker || a.Side != b.Side || a.Shares != b.Shares || a.Price != b.Price {
			t.Errorf("trade %d differs: %+v vs %+v", i, a, b)
		}
	}
	if first.FinalValue != second.FinalValue {
		t.Errorf("final values differ: %v vs %v", first.FinalValue, second.FinalValue)
	}
}
