// internal/forecast/generator.go
package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository"
)

// Horizons are the forecast lookahead windows, in days.
var Horizons = []int{1, 7, 30}

const maxHorizonDays = 30

// Generator runs a demand model per product and persists one forecast
// record per target date per horizon. Writes for a product are
// serialized by a per-product lock so concurrent runs never interleave
// upserts.
type Generator struct {
	history   *HistoryReader
	forecasts repository.ForecastRepository
	locks     productLocks
	now       func() time.Time
}

func NewGenerator(history *HistoryReader, forecasts repository.ForecastRepository) *Generator {
	return &Generator{
		history:   history,
		forecasts: forecasts,
		now:       time.Now,
	}
}

// Generate fits the product's demand model and upserts forecasts for
// every configured horizon. Insufficient history and degenerate fits
// are reported as a skipped result, not an error; only storage
// failures surface as errors.
func (g *Generator) Generate(ctx context.Context, productID int64) (*domain.GenerateResult, error) {
	unlock := g.locks.lock(productID)
	defer unlock()

	asOf := dateOnly(g.now())

	series, err := g.history.History(ctx, productID, asOf)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			return &domain.GenerateResult{
				ProductID: productID,
				Status:    domain.StatusSkipped,
				Reason:    err.Error(),
			}, nil
		}
		return nil, err
	}

	model, err := FitModel(series)
	if err != nil {
		if errors.Is(err, domain.ErrModelFit) {
			return &domain.GenerateResult{
				ProductID: productID,
				Status:    domain.StatusSkipped,
				Reason:    err.Error(),
			}, nil
		}
		return nil, err
	}

	// The fit is deterministic over an identical series, so one model
	// serves every horizon: each horizon run is the prediction window
	// it would have produced from its own fit.
	preds := model.Forecast(maxHorizonDays)

	createdAt := g.now().UTC()
	records := make([]domain.ForecastRecord, 0, len(preds)*len(Horizons))
	for _, h := range Horizons {
		for i := 0; i < h && i < len(preds); i++ {
			p := preds[i]
			lower, upper := p.Lower, p.Upper
			records = append(records, domain.ForecastRecord{
				ProductID:   productID,
				TargetDate:  p.Date,
				HorizonDays: h,
				Model:       ModelName,
				Predicted:   p.Quantity,
				Lower:       &lower,
				Upper:       &upper,
				CreatedAt:   createdAt,
			})
		}
	}

	written, err := g.forecasts.UpsertBatch(ctx, records)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("product_id", productID).
		Int("records", len(records)).
		Int("written", written).
		Float64("train_rmse", model.TrainingRMSE).
		Msg("forecasts generated")

	return &domain.GenerateResult{
		ProductID: productID,
		Status:    domain.StatusOK,
		Horizons:  append([]int(nil), Horizons...),
	}, nil
}

// productLocks hands out one mutex per product identifier.
type productLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *productLocks) lock(productID int64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[productID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
