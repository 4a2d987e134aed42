package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"rank-machine/models"
)

func TestNewEngineValidatesWeights(t *testing.T) {
	tests := []struct {
		name            string
		priceWeight     float64
		sentimentWeight float64
		wantErr         bool
	}{
		{"default split", 0.6, 0.4, false},
		{"all price", 1.0, 0.0, false},
		{"within tolerance", 0.6005, 0.4, false},
		{"sums above one", 0.8, 0.4, true},
		{"sums below one", 0.3, 0.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.priceWeight, tt.sentimentWeight, &mockPriceFeed{}, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEngine(%v, %v) error = %v, wantErr %v", tt.priceWeight, tt.sentimentWeight, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("error = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestUpdateWeights(t *testing.T) {
	engine, err := NewEngine(0.6, 0.4, &mockPriceFeed{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if err := engine.UpdateWeights(0.5, 0.3); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("UpdateWeights(0.5, 0.3) error = %v, want ErrInvalidWeights", err)
	}
	pw, sw := engine.Weights()
	if pw != 0.6 || sw != 0.4 {
		t.Errorf("weights changed after rejected update: %v, %v", pw, sw)
	}

	if err := engine.UpdateWeights(0.7, 0.3); err != nil {
		t.Errorf("UpdateWeights(0.7, 0.3) error = %v", err)
	}
	pw, sw = engine.Weights()
	if pw != 0.7 || sw != 0.3 {
		t.Errorf("weights = %v, %v, want 0.7, 0.3", pw, sw)
	}
}

func TestRankOrdersByCompositeScore(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"UP":   makeBars(100, 120),
			"FLAT": makeBars(100, 100),
			"DOWN": makeBars(100, 80),
		},
	}

	engine, err := NewEngine(0.6, 0.4, prices, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rows, err := engine.Rank(context.Background(), []string{"DOWN", "UP", "FLAT"}, false)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	wantOrder := []string{"UP", "FLAT", "DOWN"}
	for i, want := range wantOrder {
		if rows[i].Ticker != want {
			t.Errorf("rows[%d].Ticker = %s, want %s", i, rows[i].Ticker, want)
		}
		if rows[i].Rank != i+1 {
			t.Errorf("rows[%d].Rank = %d, want %d", i, rows[i].Rank, i+1)
		}
	}

	// With no sentiment feed all sentiment scores are equal, so technical
	// min-max should spread 0-100 and the blend follows the weights
	if rows[0].TechnicalScore != 100 || rows[2].TechnicalScore != 0 {
		t.Errorf("technical scores = %v, %v, want 100, 0", rows[0].TechnicalScore, rows[2].TechnicalScore)
	}
	wantTop := 0.6*100 + 0.4*50
	if math.Abs(rows[0].CompositeScore-wantTop) > 1e-9 {
		t.Errorf("top composite = %v, want %v", rows[0].CompositeScore, wantTop)
	}
}

func TestRankMissingPriceStillRanked(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"GOOD": makeBars(100, 110),
		},
	}

	engine, err := NewEngine(0.6, 0.4, prices, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rows, err := engine.Rank(context.Background(), []string{"GOOD", "GONE"}, false)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: missing data must degrade, not drop", len(rows))
	}

	var gone *models.RankingRow
	for i := range rows {
		if rows[i].Ticker == "GONE" {
			gone = &rows[i]
		}
	}
	if gone == nil {
		t.Fatal("ticker with missing price absent from ranking")
	}
	if !gone.PriceMissing {
		t.Error("PriceMissing = false, want true")
	}
	if gone.Rank != 2 {
		t.Errorf("missing-price ticker rank = %d, want 2", gone.Rank)
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"AAA": makeBars(100, 110),
			"BBB": makeBars(50, 55),
			"CCC": makeBars(200, 220),
		},
	}

	engine, err := NewEngine(1.0, 0.0, prices, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	// All three gained exactly 10%, so the composite ties and input order
	// must be preserved
	rows, err := engine.Rank(context.Background(), []string{"CCC", "AAA", "BBB"}, false)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	wantOrder := []string{"CCC", "AAA", "BBB"}
	for i, want := range wantOrder {
		if rows[i].Ticker != want {
			t.Errorf("rows[%d].Ticker = %s, want %s (tie must keep input order)", i, rows[i].Ticker, want)
		}
	}
}

func TestRankEmptyInput(t *testing.T) {
	engine, err := NewEngine(0.6, 0.4, &mockPriceFeed{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rows, err := engine.Rank(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestRankSentimentInfluencesOrder(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"LOVED": makeBars(100, 100),
			"HATED": makeBars(100, 100),
		},
	}
	sentiment := &mockSentimentFeed{
		signals: map[string]*models.SentimentSignal{
			"LOVED": {Ticker: "LOVED", AverageSentiment: 0.8, HeadlineCount: 12},
			"HATED": {Ticker: "HATED", AverageSentiment: -0.8, HeadlineCount: 12},
		},
	}

	engine, err := NewEngine(0.6, 0.4, prices, sentiment)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rows, err := engine.Rank(context.Background(), []string{"HATED", "LOVED"}, true)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	if rows[0].Ticker != "LOVED" {
		t.Errorf("top ticker = %s, want LOVED (identical momentum, better sentiment)", rows[0].Ticker)
	}
	if rows[0].HeadlineCount != 12 {
		t.Errorf("HeadlineCount = %d, want 12 (details requested)", rows[0].HeadlineCount)
	}
}

func TestRankSentimentErrorDegrades(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"AAA": makeBars(100, 110),
			"BBB": makeBars(100, 105),
		},
	}
	sentiment := &mockSentimentFeed{
		errs: map[string]error{
			"AAA": fmt.Errorf("news provider down"),
			"BBB": fmt.Errorf("news provider down"),
		},
	}

	engine, err := NewEngine(0.6, 0.4, prices, sentiment)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rows, err := engine.Rank(context.Background(), []string{"AAA", "BBB"}, false)
	if err != nil {
		t.Fatalf("Rank() error = %v, sentiment failures must not abort the batch", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Ticker != "AAA" {
		t.Errorf("top ticker = %s, want AAA on momentum alone", rows[0].Ticker)
	}
}

func TestTopPicks(t *testing.T) {
	prices := &mockPriceFeed{
		bars: map[string][]models.Bar{
			"AAA": makeBars(100, 130),
			"BBB": makeBars(100, 120),
			"CCC": makeBars(100, 110),
		},
	}
	sentiment := &mockSentimentFeed{
		signals: map[string]*models.SentimentSignal{
			"AAA": {Ticker: "AAA", AverageSentiment: 0.2, HeadlineCount: 2},
			"BBB": {Ticker: "BBB", AverageSentiment: 0.2, HeadlineCount: 8},
			"CCC": {Ticker: "CCC", AverageSentiment: 0.2, HeadlineCount: 9},
		},
	}

	engine, err := NewEngine(0.6, 0.4, prices, sentiment)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	t.Run("headline filter applies", func(t *testing.T) {
		picks, err := engine.TopPicks(context.Background(), []string{"AAA", "BBB", "CCC"}, 2, 5)
		if err != nil {
			t.Fatalf("TopPicks() error = %v", err)
		}
		if len(picks) != 2 {
			t.Fatalf("got %d picks, want 2", len(picks))
		}
		for _, pick := range picks {
			if pick.Ticker == "AAA" {
				t.Error("AAA returned despite failing the headline filter")
			}
			if pick.Recommendation == "" {
				t.Error("pick missing recommendation label")
			}
		}
	})

	t.Run("falls back to unfiltered when nothing passes", func(t *testing.T) {
		picks, err := engine.TopPicks(context.Background(), []string{"AAA", "BBB", "CCC"}, 2, 100)
		if err != nil {
			t.Fatalf("TopPicks() error = %v", err)
		}
		if len(picks) != 2 {
			t.Fatalf("got %d picks, want 2 from the unfiltered fallback", len(picks))
		}
	})
}
