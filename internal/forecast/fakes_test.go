package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopmetrics/stockcast/internal/domain"
)

// In-memory repository fakes shared by the tests in this package.

type memSalesRepo struct {
	mu    sync.Mutex
	sales map[int64]map[time.Time]float64
	err   error
}

func newMemSalesRepo() *memSalesRepo {
	return &memSalesRepo{sales: make(map[int64]map[time.Time]float64)}
}

func (r *memSalesRepo) add(productID int64, date time.Time, qty float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sales[productID] == nil {
		r.sales[productID] = make(map[time.Time]float64)
	}
	r.sales[productID][dateOnly(date)] += qty
}

func (r *memSalesRepo) addRange(productID int64, from time.Time, days int, qty float64) {
	for i := 0; i < days; i++ {
		r.add(productID, from.AddDate(0, 0, i), qty)
	}
}

func (r *memSalesRepo) DailyTotals(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var out []domain.DailySale
	for d, q := range r.sales[productID] {
		if d.Before(dateOnly(from)) || d.After(dateOnly(to)) {
			continue
		}
		out = append(out, domain.DailySale{Date: d, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memSalesRepo) ActualQuantity(ctx context.Context, productID int64, date time.Time) (float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, false, r.err
	}
	q, ok := r.sales[productID][dateOnly(date)]
	return q, ok, nil
}

func (r *memSalesRepo) ProductIDsWithSales(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.sales))
	for id := range r.sales {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memForecastRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*domain.ForecastRecord
}

func newMemForecastRepo() *memForecastRepo {
	return &memForecastRepo{records: make(map[string]*domain.ForecastRecord)}
}

func recordKey(r *domain.ForecastRecord) string {
	return fmt.Sprintf("%d|%s|%s|%d", r.ProductID, dateOnly(r.TargetDate).Format("2006-01-02"), r.Model, r.HorizonDays)
}

func (r *memForecastRepo) UpsertBatch(ctx context.Context, records []domain.ForecastRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for _, rec := range records {
		rec := rec
		key := recordKey(&rec)
		if existing, ok := r.records[key]; ok {
			if existing.Graded() {
				continue
			}
			rec.ID = existing.ID
		} else {
			r.nextID++
			rec.ID = r.nextID
		}
		rec.TargetDate = dateOnly(rec.TargetDate)
		r.records[key] = &rec
		written++
	}
	return written, nil
}

func (r *memForecastRepo) Window(ctx context.Context, productID int64, horizonDays int, from, to time.Time) (map[time.Time]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[time.Time]float64)
	for _, rec := range r.records {
		if rec.ProductID != productID || rec.HorizonDays != horizonDays {
			continue
		}
		if rec.TargetDate.Before(dateOnly(from)) || rec.TargetDate.After(dateOnly(to)) {
			continue
		}
		out[rec.TargetDate] = rec.Predicted
	}
	return out, nil
}

func (r *memForecastRepo) ListByProduct(ctx context.Context, productID int64, from, to time.Time) ([]domain.ForecastRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ForecastRecord
	for _, rec := range r.records {
		if rec.ProductID != productID {
			continue
		}
		if rec.TargetDate.Before(dateOnly(from)) || rec.TargetDate.After(dateOnly(to)) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate) {
			return out[i].TargetDate.Before(out[j].TargetDate)
		}
		return out[i].HorizonDays < out[j].HorizonDays
	})
	return out, nil
}

func (r *memForecastRepo) ListUngraded(ctx context.Context, horizonDays int, before time.Time) ([]domain.ForecastRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ForecastRecord
	for _, rec := range r.records {
		if rec.HorizonDays != horizonDays || rec.Graded() {
			continue
		}
		if !rec.TargetDate.Before(dateOnly(before)) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memForecastRepo) Grade(ctx context.Context, id int64, actual, accuracy, errorPct float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.ID == id {
			rec.ActualQty = &actual
			rec.Accuracy = &accuracy
			rec.ErrorPct = &errorPct
			return nil
		}
	}
	return fmt.Errorf("forecast %d not found", id)
}

func (r *memForecastRepo) ListGraded(ctx context.Context, horizonDays int, productID *int64, since time.Time) ([]domain.ForecastRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ForecastRecord
	for _, rec := range r.records {
		if rec.HorizonDays != horizonDays || !rec.Graded() {
			continue
		}
		if productID != nil && rec.ProductID != *productID {
			continue
		}
		if rec.TargetDate.Before(dateOnly(since)) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// seed inserts a record directly, bypassing the frozen-grade check.
func (r *memForecastRepo) seed(rec domain.ForecastRecord) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	rec.TargetDate = dateOnly(rec.TargetDate)
	r.records[recordKey(&rec)] = &rec
	return rec.ID
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[int64]domain.Product
}

func newMemProductRepo(products ...domain.Product) *memProductRepo {
	r := &memProductRepo{products: make(map[int64]domain.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", domain.ErrProductNotFound, id)
	}
	return &p, nil
}

func (r *memProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
