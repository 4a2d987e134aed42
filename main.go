package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rank-machine/config"
	"rank-machine/observability"
	"rank-machine/ranking"
	"rank-machine/repository"
	"rank-machine/services"
)

func main() {
	// Missing .env is fine; production deployments set the environment directly
	_ = godotenv.Load()

	production := os.Getenv("ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Database is optional; without it rankings and backtests still work but
	// nothing is persisted
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("failed to initialize database, running without persistence", "error", err)
			repo = nil
		} else if err := repo.EnsureSchema(ctx); err != nil {
			observability.Fatal("failed to ensure database schema", "error", err)
		}
	} else {
		observability.Warn("DATABASE_URL not set, running without persistence")
	}

	// Market data is the one hard dependency; nothing can be ranked without it
	if !cfg.HasAlpaca() {
		observability.Fatal("ALPACA_API_KEY and ALPACA_API_SECRET are required")
	}
	alpacaService := services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)

	// Sentiment degrades gracefully: without news or scoring credentials the
	// engine ranks on momentum alone
	var sentimentFeed ranking.SentimentFeed
	if cfg.HasNewsAPI() && cfg.HasBedrock() {
		bedrockService, err := services.NewBedrockService(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID)
		if err != nil {
			observability.Warn("failed to initialize Bedrock, sentiment disabled", "error", err)
		} else {
			newsService := services.NewNewsAPIService(cfg.NewsAPI.APIKey)
			sentimentFeed = services.NewSentimentService(newsService, bedrockService, cfg.Ranking.HeadlineLimit)
		}
	} else {
		observability.Warn("NewsAPI or Bedrock credentials not set, sentiment disabled")
	}

	engine, err := ranking.NewEngine(cfg.Ranking.PriceWeight, cfg.Ranking.SentimentWeight, alpacaService, sentimentFeed)
	if err != nil {
		observability.Fatal("failed to create ranking engine", "error", err)
	}
	engine.SetConcurrency(cfg.Ranking.ConcurrencyLimit)

	app := NewApp(cfg, repo, engine, alpacaService)
	handler := NewAPIHandler(app, cfg)
	router := NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	app.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
