package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"rank-machine/models"
	"rank-machine/observability"
)

// priceLookbackDays is how far back GetPrice searches for the most recent
// close at or before the requested date (spans weekends and short holidays)
const priceLookbackDays = 5

// AlpacaService fetches historical market data from Alpaca. It implements
// ranking.PriceFeed.
type AlpacaService struct {
	dataClient *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaService{dataClient: dataClient}
}

// GetHistory returns daily bars for a ticker over [start, end]
func (s *AlpacaService) GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	bars, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]marketdata.Bar, error) {
		return s.dataClient.GetBars(ticker, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
	})
	metrics.RecordExternalAPIRequest("alpaca", "get_bars")
	if err != nil {
		metrics.RecordExternalAPIError("alpaca", "get_bars", "request_failed")
		return nil, fmt.Errorf("failed to get bars for %s: %w", ticker, err)
	}
	timer.ObserveExternalAPI("alpaca", "get_bars")

	result := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		result = append(result, models.Bar{
			Ticker:    ticker,
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
		})
	}

	return result, nil
}

// GetPrice resolves the most recent daily close at or before the given date.
// Returns models.ErrDataUnavailable when no bar exists in the lookback
// window (delisted ticker, market holiday stretch, bad symbol).
func (s *AlpacaService) GetPrice(ctx context.Context, ticker string, asOf time.Time) (models.PricePoint, error) {
	start := asOf.AddDate(0, 0, -priceLookbackDays)

	bars, err := s.GetHistory(ctx, ticker, start, asOf)
	if err != nil {
		return models.PricePoint{}, err
	}
	if len(bars) == 0 {
		return models.PricePoint{}, fmt.Errorf("%w: no bars for %s as of %s",
			models.ErrDataUnavailable, ticker, asOf.Format("2006-01-02"))
	}

	latest := bars[len(bars)-1]
	return models.PricePoint{
		Ticker: ticker,
		Date:   latest.Timestamp,
		Close:  latest.Close,
		Volume: latest.Volume,
	}, nil
}
