// internal/repository/sales_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopmetrics/stockcast/internal/domain"
)

// SalesRepository reads the daily sales history the forecasting core
// consumes. Sale records are created by the CSV import collaborator,
// never by the core.
type SalesRepository interface {
	// DailyTotals returns per-day aggregated quantities for a product in
	// [from, to], ordered by date. Days with no sales are absent.
	DailyTotals(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySale, error)
	// ActualQuantity returns the recorded quantity for one day. The bool
	// is false when no sale record exists for that date.
	ActualQuantity(ctx context.Context, productID int64, date time.Time) (float64, bool, error)
	// ProductIDsWithSales lists products that have at least one sale.
	ProductIDsWithSales(ctx context.Context) ([]int64, error)
}

type salesRepository struct {
	db *sqlx.DB
}

func NewSalesRepository(db *sqlx.DB) SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) DailyTotals(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySale, error) {
	query := `
		SELECT sale_date, SUM(quantity)::float8 AS quantity
		FROM sales
		WHERE product_id = $1
		  AND sale_date >= $2::date
		  AND sale_date <= $3::date
		GROUP BY sale_date
		ORDER BY sale_date
	`

	var rows []domain.DailySale
	if err := r.db.SelectContext(ctx, &rows, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("%w: daily totals for product %d: %v", domain.ErrStorageUnavailable, productID, err)
	}

	return rows, nil
}

func (r *salesRepository) ActualQuantity(ctx context.Context, productID int64, date time.Time) (float64, bool, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)::float8 AS quantity, COUNT(*) AS n
		FROM sales
		WHERE product_id = $1 AND sale_date = $2::date
	`

	var row struct {
		Quantity float64 `db:"quantity"`
		N        int     `db:"n"`
	}
	if err := r.db.GetContext(ctx, &row, query, productID, date); err != nil {
		return 0, false, fmt.Errorf("%w: actual quantity for product %d: %v", domain.ErrStorageUnavailable, productID, err)
	}

	return row.Quantity, row.N > 0, nil
}

func (r *salesRepository) ProductIDsWithSales(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT product_id FROM sales ORDER BY product_id`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("%w: products with sales: %v", domain.ErrStorageUnavailable, err)
	}

	return ids, nil
}
