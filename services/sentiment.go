package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"rank-machine/models"
	"rank-machine/observability"
)

// Compound score thresholds for classifying a headline as positive or
// negative; scores between them count as neutral
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// NewsProvider supplies recent headlines for a query
type NewsProvider interface {
	GetNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error)
}

// HeadlineScorer scores a batch of headlines via a structured LLM prompt
type HeadlineScorer interface {
	InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error
}

const sentimentSystemPrompt = `You are a financial news sentiment analyst.
Given a numbered list of news headlines about a company, score each headline
with a compound sentiment value between -1.0 (very negative) and +1.0 (very
positive), 0.0 being neutral. Respond with ONLY a JSON object of the form
{"scores": [0.4, -0.2, ...]} with exactly one score per headline, in order.`

// SentimentService aggregates news headlines into a per-ticker sentiment
// signal. It implements ranking.SentimentFeed.
type SentimentService struct {
	news          NewsProvider
	scorer        HeadlineScorer
	headlineLimit int
}

// NewSentimentService creates a sentiment service fetching up to
// headlineLimit headlines per ticker
func NewSentimentService(news NewsProvider, scorer HeadlineScorer, headlineLimit int) *SentimentService {
	if headlineLimit <= 0 {
		headlineLimit = 15
	}
	return &SentimentService{
		news:          news,
		scorer:        scorer,
		headlineLimit: headlineLimit,
	}
}

type headlineScores struct {
	Scores []float64 `json:"scores"`
}

// GetSignal fetches recent headlines for the ticker, scores each one, and
// aggregates the scores into a signal. No headlines yields a zeroed signal
// rather than an error; the ranking engine treats that as neutral coverage.
func (s *SentimentService) GetSignal(ctx context.Context, ticker string) (*models.SentimentSignal, error) {
	articles, err := s.news.GetNews(ctx, ticker, s.headlineLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", ticker, err)
	}

	if len(articles) == 0 {
		observability.WithTicker(ticker).Debug("no headlines found")
		return &models.SentimentSignal{Ticker: ticker}, nil
	}

	scores, err := s.scoreHeadlines(ctx, ticker, articles)
	if err != nil {
		return nil, err
	}

	signal := aggregateScores(ticker, scores)
	observability.WithTicker(ticker).Debug("sentiment signal computed",
		"headlines", signal.HeadlineCount,
		"average", signal.AverageSentiment)

	return signal, nil
}

// scoreHeadlines sends the headlines to the scorer in one batch. A response
// with the wrong number of scores is rejected rather than partially applied.
func (s *SentimentService) scoreHeadlines(ctx context.Context, ticker string, articles []models.NewsArticle) ([]float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Headlines about %s:\n", ticker)
	for i, article := range articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, article.Title)
	}

	var result headlineScores
	if err := s.scorer.InvokeStructured(ctx, sentimentSystemPrompt, b.String(), &result); err != nil {
		return nil, fmt.Errorf("failed to score headlines for %s: %w", ticker, err)
	}

	if len(result.Scores) != len(articles) {
		return nil, fmt.Errorf("scorer returned %d scores for %d headlines (%s)",
			len(result.Scores), len(articles), ticker)
	}

	for i, score := range result.Scores {
		if score < -1 {
			result.Scores[i] = -1
		} else if score > 1 {
			result.Scores[i] = 1
		}
	}

	return result.Scores, nil
}

// aggregateScores folds per-headline compound scores into a signal
func aggregateScores(ticker string, scores []float64) *models.SentimentSignal {
	n := len(scores)
	if n == 0 {
		return &models.SentimentSignal{Ticker: ticker}
	}

	sum := 0.0
	positives := 0
	negatives := 0
	for _, score := range scores {
		sum += score
		if score > positiveThreshold {
			positives++
		} else if score < negativeThreshold {
			negatives++
		}
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, score := range scores {
		variance += (score - mean) * (score - mean)
	}
	variance /= float64(n)

	return &models.SentimentSignal{
		Ticker:           ticker,
		AverageSentiment: mean,
		SentimentStd:     math.Sqrt(variance),
		HeadlineCount:    n,
		PositiveRatio:    float64(positives) / float64(n),
		NegativeRatio:    float64(negatives) / float64(n),
	}
}
