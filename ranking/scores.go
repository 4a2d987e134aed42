package ranking

import (
	"math"

	"rank-machine/models"
)

// SentimentScore turns an aggregate sentiment signal into a raw score.
// The base compound sentiment is confidence-weighted by headline count
// (full confidence at 10+ headlines) and a small consistency bonus of up to
// +0.1 rewards low variance across headlines. No headlines scores 0.0.
func SentimentScore(signal *models.SentimentSignal) float64 {
	if signal == nil || signal.HeadlineCount == 0 {
		return 0.0
	}

	confidence := math.Min(1.0, float64(signal.HeadlineCount)/10)
	consistencyBonus := math.Max(0.0, 1.0-signal.SentimentStd) * 0.1

	return signal.AverageSentiment*confidence + consistencyBonus
}

// TechnicalScore derives the raw momentum score from daily bars: the percent
// change of the latest close against the earliest close in the window. Fewer
// than two bars means no momentum can be measured and scores 0.0.
func TechnicalScore(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0.0
	}

	first := bars[0].Close
	last := bars[len(bars)-1].Close
	if first == 0 {
		return 0.0
	}

	return (last - first) / first * 100
}
