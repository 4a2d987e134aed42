package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rank-machine/models"
	"rank-machine/observability"
)

// SaveRankingBatch persists a ranking batch and its rows atomically,
// returning the new batch ID
func (r *Repository) SaveRankingBatch(ctx context.Context, batch *models.RankingBatch) (uuid.UUID, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	batchID := uuid.New()

	tx, txRepo, err := r.BeginTx(ctx)
	if err != nil {
		metrics.RecordDBError("insert", "ranking_batches")
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	_, err = txRepo.db.Exec(ctx, `
		INSERT INTO ranking_batches (id, price_weight, sentiment_weight, generated_at)
		VALUES ($1, $2, $3, $4)
	`, batchID, batch.PriceWeight, batch.SentimentWeight, batch.GeneratedAt)
	if err != nil {
		metrics.RecordDBError("insert", "ranking_batches")
		return uuid.Nil, fmt.Errorf("failed to insert ranking batch: %w", err)
	}

	for _, row := range batch.Rows {
		_, err = txRepo.db.Exec(ctx, `
			INSERT INTO rankings (id, batch_id, rank, ticker, composite_score, technical_score, sentiment_score, price, percent_change, price_missing)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New(), batchID, row.Rank, row.Ticker, row.CompositeScore, row.TechnicalScore, row.SentimentScore,
			decimal.NewFromFloat(row.Price), row.PercentChange, row.PriceMissing)
		if err != nil {
			metrics.RecordDBError("insert", "rankings")
			return uuid.Nil, fmt.Errorf("failed to insert ranking row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBError("commit", "rankings")
		return uuid.Nil, fmt.Errorf("failed to commit ranking batch: %w", err)
	}

	timer.ObserveDB("insert", "rankings")
	return batchID, nil
}

// GetLatestRankings returns the most recently saved ranking batch, or nil
// when none has been saved yet
func (r *Repository) GetLatestRankings(ctx context.Context) (*models.RankingBatch, error) {
	var batchID uuid.UUID
	batch := &models.RankingBatch{}

	err := r.db.QueryRow(ctx, `
		SELECT id, price_weight, sentiment_weight, generated_at
		FROM ranking_batches
		ORDER BY generated_at DESC
		LIMIT 1
	`).Scan(&batchID, &batch.PriceWeight, &batch.SentimentWeight, &batch.GeneratedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking batches: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT rank, ticker, composite_score, technical_score, sentiment_score, price, percent_change, price_missing
		FROM rankings
		WHERE batch_id = $1
		ORDER BY rank ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.RankingRow
		var price decimal.Decimal
		err := rows.Scan(&row.Rank, &row.Ticker, &row.CompositeScore, &row.TechnicalScore, &row.SentimentScore,
			&price, &row.PercentChange, &row.PriceMissing)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		row.Price = price.InexactFloat64()
		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}
