package models

import "time"

// RankingRow is one asset in a ranking batch. Scores are on a 0-100 scale;
// CompositeScore is the weighted blend of the two normalized scores.
type RankingRow struct {
	Rank           int     `json:"rank"`
	Ticker         string  `json:"ticker"`
	CompositeScore float64 `json:"composite_score"`
	TechnicalScore float64 `json:"technical_score"`
	SentimentScore float64 `json:"sentiment_score"`
	Price          float64 `json:"price"`
	PercentChange  float64 `json:"percent_change"`
	PriceMissing   bool    `json:"price_missing,omitempty"`

	// Detail fields, populated when details are requested
	Volume        int64   `json:"volume,omitempty"`
	HeadlineCount int     `json:"headline_count,omitempty"`
	SentimentStd  float64 `json:"sentiment_std,omitempty"`
	PositiveRatio float64 `json:"positive_ratio,omitempty"`
	NegativeRatio float64 `json:"negative_ratio,omitempty"`
}

// RankingBatch groups the rows of one ranking call with its metadata
type RankingBatch struct {
	Rows            []RankingRow `json:"rows"`
	PriceWeight     float64      `json:"price_weight"`
	SentimentWeight float64      `json:"sentiment_weight"`
	GeneratedAt     time.Time    `json:"generated_at"`
}

// Recommendation strength labels derived from composite score
type Recommendation string

const (
	RecommendationStrongBuy Recommendation = "Strong Buy"
	RecommendationBuy       Recommendation = "Buy"
	RecommendationHold      Recommendation = "Hold"
	RecommendationWeakHold  Recommendation = "Weak Hold"
	RecommendationAvoid     Recommendation = "Avoid"
)

// RecommendationFor maps a composite score to a recommendation label
func RecommendationFor(compositeScore float64) Recommendation {
	switch {
	case compositeScore >= 80:
		return RecommendationStrongBuy
	case compositeScore >= 65:
		return RecommendationBuy
	case compositeScore >= 50:
		return RecommendationHold
	case compositeScore >= 35:
		return RecommendationWeakHold
	default:
		return RecommendationAvoid
	}
}
