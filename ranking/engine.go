package ranking

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"rank-machine/models"
	"rank-machine/observability"
)

// ErrInvalidWeights is returned when price and sentiment weights do not sum
// to 1.0 within tolerance
var ErrInvalidWeights = errors.New("price and sentiment weights must sum to 1.0")

// weightTolerance is the allowed deviation of the weight sum from 1.0
const weightTolerance = 0.001

// fullConfidenceHeadlines is the headline count at which the sentiment
// confidence multiplier reaches 1.0
const fullConfidenceHeadlines = 10

// priceWindowDays is the calendar window fetched to resolve the latest close
// and its prior close (wide enough to span weekends and holidays)
const priceWindowDays = 7

// PriceFeed supplies historical price data. Absent data is signaled with
// models.ErrDataUnavailable.
type PriceFeed interface {
	GetPrice(ctx context.Context, ticker string, asOf time.Time) (models.PricePoint, error)
	GetHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error)
}

// SentimentFeed supplies aggregate news sentiment per ticker. The scoring
// pipeline behind it is a black box to the ranking engine.
type SentimentFeed interface {
	GetSignal(ctx context.Context, ticker string) (*models.SentimentSignal, error)
}

// Engine blends normalized price momentum and news sentiment into composite
// scores and produces sorted rankings.
type Engine struct {
	mu              sync.RWMutex
	priceWeight     float64
	sentimentWeight float64

	prices      PriceFeed
	sentiment   SentimentFeed
	concurrency int
}

// NewEngine creates a ranking engine. The weights must sum to 1.0 within a
// 0.001 tolerance.
func NewEngine(priceWeight, sentimentWeight float64, prices PriceFeed, sentiment SentimentFeed) (*Engine, error) {
	if math.Abs(priceWeight+sentimentWeight-1.0) > weightTolerance {
		return nil, ErrInvalidWeights
	}

	return &Engine{
		priceWeight:     priceWeight,
		sentimentWeight: sentimentWeight,
		prices:          prices,
		sentiment:       sentiment,
		concurrency:     5,
	}, nil
}

// SetConcurrency bounds the number of parallel per-ticker fetches in a batch
func (e *Engine) SetConcurrency(n int) {
	if n > 0 {
		e.concurrency = n
	}
}

// UpdateWeights replaces the blend weights, with the same validation as
// construction
func (e *Engine) UpdateWeights(priceWeight, sentimentWeight float64) error {
	if math.Abs(priceWeight+sentimentWeight-1.0) > weightTolerance {
		return ErrInvalidWeights
	}

	e.mu.Lock()
	e.priceWeight = priceWeight
	e.sentimentWeight = sentimentWeight
	e.mu.Unlock()

	observability.Info("updated ranking weights",
		"price_weight", priceWeight,
		"sentiment_weight", sentimentWeight)
	return nil
}

// Weights returns the current blend weights
func (e *Engine) Weights() (priceWeight, sentimentWeight float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.priceWeight, e.sentimentWeight
}

// assetData collects the raw per-ticker inputs of one ranking batch
type assetData struct {
	price         float64
	percentChange float64
	volume        int64
	priceMissing  bool
	signal        *models.SentimentSignal
}

// Rank ranks the given tickers by blended momentum and sentiment. Tickers
// with missing price data are still ranked with a zero technical score.
// Ties on composite score keep the input order.
func (e *Engine) Rank(ctx context.Context, tickers []string, includeDetails bool) ([]models.RankingRow, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	priceWeight, sentimentWeight := e.Weights()

	rows := make([]models.RankingRow, 0, len(tickers))
	if len(tickers) == 0 {
		return rows, nil
	}

	observability.Info("starting ranking batch", "assets", len(tickers))

	data := e.fetchBatch(ctx, tickers)

	technicalRaw := make([]float64, len(tickers))
	sentimentRaw := make([]float64, len(tickers))
	for i := range tickers {
		if !data[i].priceMissing {
			technicalRaw[i] = data[i].percentChange
		}
		// Shift sentiment by +1 before min-max so the scaled input stays
		// non-negative. Long-standing convention; keep for numeric parity.
		sentimentRaw[i] = SentimentScore(data[i].signal) + 1
	}

	normalizedTechnical, err := Normalize(technicalRaw, NormalizeMinMax)
	if err != nil {
		return nil, err
	}
	normalizedSentiment, err := Normalize(sentimentRaw, NormalizeMinMax)
	if err != nil {
		return nil, err
	}

	for i, ticker := range tickers {
		row := models.RankingRow{
			Ticker:         ticker,
			TechnicalScore: normalizedTechnical[i],
			SentimentScore: normalizedSentiment[i],
			CompositeScore: priceWeight*normalizedTechnical[i] + sentimentWeight*normalizedSentiment[i],
			Price:          data[i].price,
			PercentChange:  data[i].percentChange,
			PriceMissing:   data[i].priceMissing,
		}
		if includeDetails {
			row.Volume = data[i].volume
			if data[i].signal != nil {
				row.HeadlineCount = data[i].signal.HeadlineCount
				row.SentimentStd = data[i].signal.SentimentStd
				row.PositiveRatio = data[i].signal.PositiveRatio
				row.NegativeRatio = data[i].signal.NegativeRatio
			}
		}
		rows = append(rows, row)
	}

	// Stable sort keeps the original input order for tied composite scores
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CompositeScore > rows[j].CompositeScore
	})
	for i := range rows {
		rows[i].Rank = i + 1
		metrics.RecordCompositeScore(string(models.RecommendationFor(rows[i].CompositeScore)), rows[i].CompositeScore)
	}

	metrics.RecordRankingRequest("success")
	timer.ObserveRanking("success")
	observability.Info("ranking batch completed",
		"assets", len(rows),
		"duration", timer.Duration())

	return rows, nil
}

// fetchBatch gathers per-ticker price and sentiment inputs concurrently,
// bounded by the configured concurrency. Results land in input-indexed slots
// so downstream ordering stays deterministic. Per-ticker failures are logged
// and degrade to "no data" instead of aborting the batch.
func (e *Engine) fetchBatch(ctx context.Context, tickers []string) []assetData {
	metrics := observability.GetMetrics()

	data := make([]assetData, len(tickers))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(idx int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data[idx] = e.fetchAsset(ctx, ticker)
			if data[idx].priceMissing {
				metrics.RecordRankingError(ticker, "price_unavailable")
			}
		}(i, ticker)
	}
	wg.Wait()

	return data
}

// fetchAsset resolves the price and sentiment inputs for a single ticker
func (e *Engine) fetchAsset(ctx context.Context, ticker string) assetData {
	d := assetData{priceMissing: true}

	end := time.Now()
	start := end.AddDate(0, 0, -priceWindowDays)

	bars, err := e.prices.GetHistory(ctx, ticker, start, end)
	switch {
	case err != nil:
		observability.WithTicker(ticker).Warn("could not fetch price data", "error", err)
	case len(bars) == 0:
		observability.WithTicker(ticker).Warn("no recent bars for ticker")
	default:
		latest := bars[len(bars)-1]
		d.price = latest.Close
		d.volume = latest.Volume
		d.priceMissing = false
		if len(bars) >= 2 {
			d.percentChange = TechnicalScore(bars[len(bars)-2:])
		}
	}

	if e.sentiment != nil {
		signal, err := e.sentiment.GetSignal(ctx, ticker)
		if err != nil {
			observability.WithTicker(ticker).Warn("could not fetch sentiment signal", "error", err)
			observability.GetMetrics().RecordRankingError(ticker, "sentiment_unavailable")
		} else {
			d.signal = signal
		}
	}

	return d
}

// TopPick is a ranked row labeled with a recommendation strength
type TopPick struct {
	models.RankingRow
	Recommendation models.Recommendation `json:"recommendation"`
}

// TopPicks ranks the tickers and returns the top N rows that have at least
// minHeadlines of news coverage. When no row passes the filter the unfiltered
// ranking is used instead.
func (e *Engine) TopPicks(ctx context.Context, tickers []string, topN, minHeadlines int) ([]TopPick, error) {
	rows, err := e.Rank(ctx, tickers, true)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.RankingRow, 0, len(rows))
	for _, row := range rows {
		if row.HeadlineCount >= minHeadlines {
			filtered = append(filtered, row)
		}
	}
	if len(filtered) == 0 {
		observability.Warn("no assets met the headline filter, returning unfiltered picks",
			"min_headlines", minHeadlines)
		filtered = rows
	}

	if topN > 0 && topN < len(filtered) {
		filtered = filtered[:topN]
	}

	picks := make([]TopPick, 0, len(filtered))
	for _, row := range filtered {
		picks = append(picks, TopPick{
			RankingRow:     row,
			Recommendation: models.RecommendationFor(row.CompositeScore),
		})
	}

	return picks, nil
}
