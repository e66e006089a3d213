package queries

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Insert(ctx context.Context, rec *models.PredictionRecord) error {
	query := `
		INSERT INTO prediction_history
			(id, created_at, trace_id, year, rainfall_mm, pesticides_tonnes, avg_temp, area, item, prediction)
		VALUES
			(:id, :created_at, :trace_id, :year, :rainfall_mm, :pesticides_tonnes, :avg_temp, :area, :item, :prediction)`

	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

func (r *PredictionRepository) GetRecent(ctx context.Context, item string, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, created_at, trace_id, year, rainfall_mm, pesticides_tonnes, avg_temp, area, item, prediction
		FROM prediction_history
		WHERE ($1 = '' OR item = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	records := []models.PredictionRecord{}
	if err := r.db.SelectContext(ctx, &records, query, item, limit); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *PredictionRepository) GetItemStats(ctx context.Context, from, to time.Time) ([]models.ItemStats, error) {
	query := `
		SELECT
			item,
			COUNT(*)        AS count,
			AVG(prediction) AS avg_prediction,
			MIN(prediction) AS min_prediction,
			MAX(prediction) AS max_prediction
		FROM prediction_history
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY item
		ORDER BY item`

	stats := []models.ItemStats{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
