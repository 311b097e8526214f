// internal/repository/forecast_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository/postgres"
)

// ForecastRepository stores forecast records keyed by
// (product, target date, model, horizon). Records are never deleted so
// predictive performance stays auditable.
type ForecastRepository interface {
	// UpsertBatch inserts or refreshes records transactionally. Records
	// that already carry an accuracy are frozen and left untouched; the
	// returned count is the number of rows actually written.
	UpsertBatch(ctx context.Context, records []domain.ForecastRecord) (int, error)
	// Window returns predicted quantity per target date for one
	// product/horizon in [from, to].
	Window(ctx context.Context, productID int64, horizonDays int, from, to time.Time) (map[time.Time]float64, error)
	// ListByProduct returns all live records for a product in [from, to].
	ListByProduct(ctx context.Context, productID int64, from, to time.Time) ([]domain.ForecastRecord, error)
	// ListUngraded returns records for a horizon whose target date is
	// before the given date and which have no accuracy yet.
	ListUngraded(ctx context.Context, horizonDays int, before time.Time) ([]domain.ForecastRecord, error)
	// Grade fills in the actual quantity and error metrics for a record.
	Grade(ctx context.Context, id int64, actual, accuracy, errorPct float64) error
	// ListGraded returns graded records for a horizon with target dates
	// on or after since, optionally filtered to one product.
	ListGraded(ctx context.Context, horizonDays int, productID *int64, since time.Time) ([]domain.ForecastRecord, error)
}

type forecastRepository struct {
	db *postgres.DB
}

func NewForecastRepository(db *postgres.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) UpsertBatch(ctx context.Context, records []domain.ForecastRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO forecasts (
			product_id, target_date, horizon_days, model,
			predicted, confidence_lower, confidence_upper, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, target_date, model, horizon_days)
		DO UPDATE SET
			predicted        = EXCLUDED.predicted,
			confidence_lower = EXCLUDED.confidence_lower,
			confidence_upper = EXCLUDED.confidence_upper,
			created_at       = EXCLUDED.created_at
		WHERE forecasts.accuracy IS NULL
	`

	written := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, rec := range records {
			res, err := tx.ExecContext(ctx, query,
				rec.ProductID, rec.TargetDate, rec.HorizonDays, rec.Model,
				rec.Predicted, rec.Lower, rec.Upper, rec.CreatedAt)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				written += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: upsert forecasts: %v", domain.ErrStorageUnavailable, err)
	}

	return written, nil
}

func (r *forecastRepository) Window(ctx context.Context, productID int64, horizonDays int, from, to time.Time) (map[time.Time]float64, error) {
	query := `
		SELECT target_date, predicted
		FROM forecasts
		WHERE product_id = $1
		  AND horizon_days = $2
		  AND target_date >= $3::date
		  AND target_date <= $4::date
		ORDER BY target_date
	`

	rows, err := r.db.QueryxContext(ctx, query, productID, horizonDays, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: forecast window for product %d: %v", domain.ErrStorageUnavailable, productID, err)
	}
	defer rows.Close()

	window := make(map[time.Time]float64)
	for rows.Next() {
		var (
			date      time.Time
			predicted float64
		)
		if err := rows.Scan(&date, &predicted); err != nil {
			return nil, fmt.Errorf("%w: scan forecast window: %v", domain.ErrStorageUnavailable, err)
		}
		window[date.UTC()] = predicted
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate forecast window: %v", domain.ErrStorageUnavailable, err)
	}

	return window, nil
}

func (r *forecastRepository) ListByProduct(ctx context.Context, productID int64, from, to time.Time) ([]domain.ForecastRecord, error) {
	query := `
		SELECT id, product_id, target_date, horizon_days, model, predicted,
		       confidence_lower, confidence_upper, actual_quantity, accuracy,
		       error_pct, created_at
		FROM forecasts
		WHERE product_id = $1
		  AND target_date >= $2::date
		  AND target_date <= $3::date
		ORDER BY horizon_days, target_date
	`

	var records []domain.ForecastRecord
	if err := r.db.SelectContext(ctx, &records, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("%w: forecasts for product %d: %v", domain.ErrStorageUnavailable, productID, err)
	}

	return records, nil
}

func (r *forecastRepository) ListUngraded(ctx context.Context, horizonDays int, before time.Time) ([]domain.ForecastRecord, error) {
	query := `
		SELECT id, product_id, target_date, horizon_days, model, predicted,
		       confidence_lower, confidence_upper, actual_quantity, accuracy,
		       error_pct, created_at
		FROM forecasts
		WHERE horizon_days = $1
		  AND target_date < $2::date
		  AND accuracy IS NULL
		ORDER BY product_id, target_date
	`

	var records []domain.ForecastRecord
	if err := r.db.SelectContext(ctx, &records, query, horizonDays, before); err != nil {
		return nil, fmt.Errorf("%w: ungraded forecasts: %v", domain.ErrStorageUnavailable, err)
	}

	return records, nil
}

func (r *forecastRepository) Grade(ctx context.Context, id int64, actual, accuracy, errorPct float64) error {
	query := `
		UPDATE forecasts
		SET actual_quantity = $2, accuracy = $3, error_pct = $4
		WHERE id = $1 AND accuracy IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, id, actual, accuracy, errorPct); err != nil {
		return fmt.Errorf("%w: grade forecast %d: %v", domain.ErrStorageUnavailable, id, err)
	}

	return nil
}

func (r *forecastRepository) ListGraded(ctx context.Context, horizonDays int, productID *int64, since time.Time) ([]domain.ForecastRecord, error) {
	query := `
		SELECT id, product_id, target_date, horizon_days, model, predicted,
		       confidence_lower, confidence_upper, actual_quantity, accuracy,
		       error_pct, created_at
		FROM forecasts
		WHERE horizon_days = $1
		  AND target_date >= $2::date
		  AND accuracy IS NOT NULL
	`

	args := []interface{}{horizonDays, since}
	var conditions []string
	if productID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)+1))
		args = append(args, *productID)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY product_id, target_date"

	var records []domain.ForecastRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("%w: graded forecasts: %v", domain.ErrStorageUnavailable, err)
	}

	return records, nil
}
