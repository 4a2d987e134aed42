package models

import (
	"errors"
	"time"
)

// ErrDataUnavailable signals that a price or signal could not be resolved for
// a ticker at a point in time. Callers treat it as "no data this round" and
// keep going; it is never a systemic failure.
var ErrDataUnavailable = errors.New("data unavailable")

// Bar represents OHLCV price data for a single trading day
type Bar struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// PricePoint is the most recent close resolvable for a ticker as of a date
type PricePoint struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// NewsArticle represents a news headline about a ticker
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentSignal is the aggregate output of the news sentiment provider for
// one ticker. AverageSentiment is a compound score in [-1, +1].
type SentimentSignal struct {
	Ticker           string  `json:"ticker"`
	AverageSentiment float64 `json:"average_sentiment"`
	SentimentStd     float64 `json:"sentiment_std"`
	HeadlineCount    int     `json:"headline_count"`
	PositiveRatio    float64 `json:"positive_ratio"`
	NegativeRatio    float64 `json:"negative_ratio"`
}
