package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// External service configurations
	Alpaca  AlpacaConfig
	NewsAPI NewsAPIConfig
	Bedrock BedrockConfig

	// Ranking configuration
	Ranking RankingConfig

	// Backtest configuration
	Backtest BacktestConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca market data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey string
}

// BedrockConfig holds AWS Bedrock configuration for headline scoring
type BedrockConfig struct {
	Region  string
	ModelID string
}

// RankingConfig holds ranking engine configuration
type RankingConfig struct {
	PriceWeight      float64
	SentimentWeight  float64
	LookbackDays     int // trailing window for the momentum signal
	HeadlineLimit    int // max headlines fetched per ticker
	ConcurrencyLimit int // parallel per-ticker fetches within one batch
	TimeoutSeconds   int
}

// BacktestConfig holds backtest engine defaults
type BacktestConfig struct {
	InitialCapital     float64
	RebalanceFrequency string // daily, weekly, monthly
	TopN               int
	TransactionCost    float64 // fraction of trade value
	MaxPositionSize    float64 // fraction of portfolio value per position
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey: os.Getenv("NEWS_API_KEY"),
		},
		Bedrock: BedrockConfig{
			Region:  os.Getenv("AWS_REGION"),
			ModelID: os.Getenv("BEDROCK_MODEL_ID"),
		},
		Ranking: RankingConfig{
			PriceWeight:      getEnvFloat("RANKING_PRICE_WEIGHT", 0.6),
			SentimentWeight:  getEnvFloat("RANKING_SENTIMENT_WEIGHT", 0.4),
			LookbackDays:     getEnvInt("RANKING_LOOKBACK_DAYS", 30),
			HeadlineLimit:    getEnvInt("RANKING_HEADLINE_LIMIT", 15),
			ConcurrencyLimit: getEnvInt("RANKING_CONCURRENCY_LIMIT", 5),
			TimeoutSeconds:   getEnvInt("RANKING_TIMEOUT_SECONDS", 30),
		},
		Backtest: BacktestConfig{
			InitialCapital:     getEnvFloatUnbounded("BACKTEST_INITIAL_CAPITAL", 100000),
			RebalanceFrequency: getEnvString("BACKTEST_REBALANCE_FREQUENCY", "monthly"),
			TopN:               getEnvInt("BACKTEST_TOP_N", 5),
			TransactionCost:    getEnvFloat("BACKTEST_TRANSACTION_COST", 0.001),
			MaxPositionSize:    getEnvFloat("BACKTEST_MAX_POSITION_SIZE", 0.20),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("HTTP_PORT", "8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Ranking weights must sum to 1.0 within a small tolerance
	weightSum := c.Ranking.PriceWeight + c.Ranking.SentimentWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("ranking weights must sum to 1.0, got %.3f (price=%.3f, sentiment=%.3f)",
			weightSum, c.Ranking.PriceWeight, c.Ranking.SentimentWeight)
	}

	if c.Ranking.PriceWeight < 0 || c.Ranking.PriceWeight > 1 {
		return fmt.Errorf("RANKING_PRICE_WEIGHT must be between 0 and 1, got %.3f", c.Ranking.PriceWeight)
	}
	if c.Ranking.SentimentWeight < 0 || c.Ranking.SentimentWeight > 1 {
		return fmt.Errorf("RANKING_SENTIMENT_WEIGHT must be between 0 and 1, got %.3f", c.Ranking.SentimentWeight)
	}
	if c.Ranking.LookbackDays <= 0 {
		return fmt.Errorf("RANKING_LOOKBACK_DAYS must be positive, got %d", c.Ranking.LookbackDays)
	}
	if c.Ranking.ConcurrencyLimit <= 0 {
		return fmt.Errorf("RANKING_CONCURRENCY_LIMIT must be positive, got %d", c.Ranking.ConcurrencyLimit)
	}
	if c.Ranking.TimeoutSeconds <= 0 {
		return fmt.Errorf("RANKING_TIMEOUT_SECONDS must be positive, got %d", c.Ranking.TimeoutSeconds)
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("BACKTEST_INITIAL_CAPITAL must be positive, got %.2f", c.Backtest.InitialCapital)
	}
	switch c.Backtest.RebalanceFrequency {
	case "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("BACKTEST_REBALANCE_FREQUENCY must be daily, weekly, or monthly, got %q", c.Backtest.RebalanceFrequency)
	}
	if c.Backtest.TopN <= 0 {
		return fmt.Errorf("BACKTEST_TOP_N must be positive, got %d", c.Backtest.TopN)
	}
	if c.Backtest.TransactionCost < 0 || c.Backtest.TransactionCost >= 1 {
		return fmt.Errorf("BACKTEST_TRANSACTION_COST must be in [0, 1), got %.4f", c.Backtest.TransactionCost)
	}
	if c.Backtest.MaxPositionSize <= 0 || c.Backtest.MaxPositionSize > 1 {
		return fmt.Errorf("BACKTEST_MAX_POSITION_SIZE must be in (0, 1], got %.4f", c.Backtest.MaxPositionSize)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasBedrock returns true if AWS Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.Bedrock.Region != "" && c.Bedrock.ModelID != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Alpaca: AlpacaConfig{
			BaseURL: "https://paper-api.alpaca.markets",
		},
		Ranking: RankingConfig{
			PriceWeight:      0.6,
			SentimentWeight:  0.4,
			LookbackDays:     30,
			HeadlineLimit:    15,
			ConcurrencyLimit: 5,
			TimeoutSeconds:   30,
		},
		Backtest: BacktestConfig{
			InitialCapital:     100000,
			RebalanceFrequency: "monthly",
			TopN:               5,
			TransactionCost:    0.001,
			MaxPositionSize:    0.20,
		},
		HTTP: HTTPConfig{
			Port:               "8080",
			CORSAllowedOrigins: "*",
		},
	}
}
