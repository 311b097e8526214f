// internal/forecast/history.go
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository"
)

const (
	defaultLookbackDays   = 90
	defaultMinHistoryDays = 7
)

// HistoryReader pulls a product's daily sales and normalizes them into
// a contiguous calendar series. Days without a sale record are filled
// with quantity 0: absence of a record means zero units sold, not
// missing data.
type HistoryReader struct {
	sales          repository.SalesRepository
	lookbackDays   int
	minHistoryDays int
}

func NewHistoryReader(sales repository.SalesRepository, lookbackDays, minHistoryDays int) *HistoryReader {
	if lookbackDays < defaultMinHistoryDays {
		lookbackDays = defaultLookbackDays
	}
	if minHistoryDays <= 0 {
		minHistoryDays = defaultMinHistoryDays
	}
	return &HistoryReader{
		sales:          sales,
		lookbackDays:   lookbackDays,
		minHistoryDays: minHistoryDays,
	}
}

// History returns one entry per calendar day from the product's first
// recorded sale (within the lookback window) through asOf, ordered by
// date and zero-filled.
func (r *HistoryReader) History(ctx context.Context, productID int64, asOf time.Time) ([]domain.DailySale, error) {
	asOf = dateOnly(asOf)
	windowStart := asOf.AddDate(0, 0, -(r.lookbackDays - 1))

	rows, err := r.sales.DailyTotals(ctx, productID, windowStart, asOf)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: product %d has no recorded sales in the last %d days",
			domain.ErrInsufficientHistory, productID, r.lookbackDays)
	}

	byDate := make(map[time.Time]float64, len(rows))
	first := dateOnly(rows[0].Date)
	for _, row := range rows {
		d := dateOnly(row.Date)
		if d.Before(first) {
			first = d
		}
		byDate[d] += row.Quantity
	}

	// Leading zeros before the first sale are not history; trailing
	// zero-sales days up to asOf are.
	start := first
	if start.Before(windowStart) {
		start = windowStart
	}

	span := daysBetween(start, asOf) + 1
	if span < r.minHistoryDays {
		return nil, fmt.Errorf("%w: product %d has %d days of history, need %d",
			domain.ErrInsufficientHistory, productID, span, r.minHistoryDays)
	}

	series := make([]domain.DailySale, 0, span)
	for d := start; !d.After(asOf); d = d.AddDate(0, 0, 1) {
		series = append(series, domain.DailySale{Date: d, Quantity: byDate[d]})
	}

	return series, nil
}

// dateOnly truncates a timestamp to a UTC calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)) / (24 * time.Hour))
}
