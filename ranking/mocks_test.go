package ranking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rank-machine/models"
)

// mockPriceFeed serves canned bars per ticker, counting calls for
// concurrency assertions
type mockPriceFeed struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	errs  map[string]error
	calls int
}

func (m *mockPriceFeed) GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	bars, ok := m.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: no bars for %s", models.ErrDataUnavailable, ticker)
	}
	return bars, nil
}

func (m *mockPriceFeed) GetPrice(ctx context.Context, ticker string, asOf time.Time) (models.PricePoint, error) {
	bars, err := m.GetHistory(ctx, ticker, asOf, asOf)
	if err != nil {
		return models.PricePoint{}, err
	}
	if len(bars) == 0 {
		return models.PricePoint{}, fmt.Errorf("%w: no bars for %s", models.ErrDataUnavailable, ticker)
	}
	latest := bars[len(bars)-1]
	return models.PricePoint{Ticker: ticker, Date: latest.Timestamp, Close: latest.Close, Volume: latest.Volume}, nil
}

// mockSentimentFeed serves canned signals per ticker
type mockSentimentFeed struct {
	signals map[string]*models.SentimentSignal
	errs    map[string]error
}

func (m *mockSentimentFeed) GetSignal(ctx context.Context, ticker string) (*models.SentimentSignal, error) {
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	if signal, ok := m.signals[ticker]; ok {
		return signal, nil
	}
	return &models.SentimentSignal{Ticker: ticker}, nil
}
