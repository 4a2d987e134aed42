package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rank-machine/config"
)

const dateLayout = "2006-01-02"

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// APIHandler handles HTTP API requests
type APIHandler struct {
	app *App
	cfg *config.Config
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(app *App, cfg *config.Config) *APIHandler {
	return &APIHandler{app: app, cfg: cfg}
}

// handleHealth returns the health status of the application
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.app.repo != nil {
		if err := h.app.repo.Health(r.Context()); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	h.jsonResponse(w, status)
}

// RankRequest is the body of a ranking request
type RankRequest struct {
	Tickers        []string `json:"tickers"`
	IncludeDetails bool     `json:"include_details"`
}

// handleRank ranks a batch of tickers
func (h *APIHandler) handleRank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tickers, err := h.normalizeTickers(req.Tickers)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := h.app.RankAssets(r.Context(), tickers, req.IncludeDetails)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, batch)
}

// PicksRequest is the body of a top-picks request
type PicksRequest struct {
	Tickers      []string `json:"tickers"`
	TopN         int      `json:"top_n"`
	MinHeadlines int      `json:"min_headlines"`
}

// handleTopPicks ranks tickers and returns the strongest candidates
func (h *APIHandler) handleTopPicks(w http.ResponseWriter, r *http.Request) {
	var req PicksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tickers, err := h.normalizeTickers(req.Tickers)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.TopN <= 0 {
		req.TopN = h.cfg.Backtest.TopN
	}

	picks, err := h.app.TopPicks(r.Context(), tickers, req.TopN, req.MinHeadlines)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, picks)
}

// handleGetRankings returns the most recently saved ranking batch
func (h *APIHandler) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	batch, err := h.app.GetLatestRankings(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if batch == nil {
		h.jsonError(w, "no rankings saved yet", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, batch)
}

// WeightsRequest is the body of a weight update
type WeightsRequest struct {
	PriceWeight     float64 `json:"price_weight"`
	SentimentWeight float64 `json:"sentiment_weight"`
}

// handleUpdateWeights replaces the ranking blend weights
func (h *APIHandler) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req WeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.app.UpdateWeights(req.PriceWeight, req.SentimentWeight); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.jsonResponse(w, map[string]float64{
		"price_weight":     req.PriceWeight,
		"sentiment_weight": req.SentimentWeight,
	})
}

// BacktestAPIRequest is the body of a backtest request. Dates use YYYY-MM-DD.
type BacktestAPIRequest struct {
	Tickers            []string `json:"tickers"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	InitialCapital     float64  `json:"initial_capital"`
	RebalanceFrequency string   `json:"rebalance_frequency"`
	TopN               int      `json:"top_n"`
	TransactionCost    float64  `json:"transaction_cost"`
	MaxPositionSize    float64  `json:"max_position_size"`
}

// BacktestResponse pairs the persisted run record with the full result
type BacktestResponse struct {
	RunID   uuid.UUID   `json:"run_id"`
	Summary interface{} `json:"summary"`
	Result  interface{} `json:"result"`
}

// handleBacktest runs a backtest synchronously and returns the result
func (h *APIHandler) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tickers, err := h.normalizeTickers(req.Tickers)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.jsonError(w, "invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		h.jsonError(w, "invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, run, err := h.app.RunBacktest(r.Context(), BacktestRequest{
		Tickers:            tickers,
		StartDate:          start,
		EndDate:            end,
		InitialCapital:     req.InitialCapital,
		RebalanceFrequency: req.RebalanceFrequency,
		TopN:               req.TopN,
		TransactionCost:    req.TransactionCost,
		MaxPositionSize:    req.MaxPositionSize,
	})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.jsonResponse(w, BacktestResponse{
		RunID:   run.ID,
		Summary: result.Summary(),
		Result:  result,
	})
}

// handleGetBacktests returns recent persisted backtest runs
func (h *APIHandler) handleGetBacktests(w http.ResponseWriter, r *http.Request) {
	limit := h.parseLimitParam(r, 50)

	runs, err := h.app.GetBacktestRuns(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, runs)
}

// handleGetBacktestTrades returns the trade log of a persisted run
func (h *APIHandler) handleGetBacktestTrades(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid run ID", http.StatusBadRequest)
		return
	}

	trades, err := h.app.GetBacktestTrades(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, trades)
}

// handleGetBacktestEquity returns the equity curve of a persisted run
func (h *APIHandler) handleGetBacktestEquity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid run ID", http.StatusBadRequest)
		return
	}

	curve, err := h.app.GetEquityCurve(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, curve)
}

// Helper functions

// normalizeTickers uppercases, trims, and validates a ticker list
func (h *APIHandler) normalizeTickers(tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("at least one ticker is required")
	}

	out := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}
		if len(ticker) > 10 {
			return nil, fmt.Errorf("ticker %q too long (max 10 characters)", ticker)
		}
		if !tickerPattern.MatchString(ticker) {
			return nil, fmt.Errorf("invalid ticker format %q (alphanumeric, dots, and dashes only)", ticker)
		}
		out = append(out, ticker)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("at least one ticker is required")
	}
	return out, nil
}

func (h *APIHandler) parseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *APIHandler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *APIHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
