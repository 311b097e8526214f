// internal/forecast/evaluator.go
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository"
)

const defaultEvalWindowDays = 30

// Evaluator grades past forecasts against now-known actual sales and
// aggregates error metrics per horizon. Grading writes accuracy back
// into the matched records so future reads never recompute it.
type Evaluator struct {
	sales      repository.SalesRepository
	forecasts  repository.ForecastRepository
	windowDays int
	now        func() time.Time
}

func NewEvaluator(sales repository.SalesRepository, forecasts repository.ForecastRepository, windowDays int) *Evaluator {
	if windowDays <= 0 {
		windowDays = defaultEvalWindowDays
	}
	return &Evaluator{
		sales:      sales,
		forecasts:  forecasts,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// GradePending matches ungraded past-dated forecasts for a horizon
// against actual sale records and freezes their accuracy. Forecasts
// whose target date has no sale record yet stay ungraded.
func (e *Evaluator) GradePending(ctx context.Context, horizonDays int) (int, error) {
	today := dateOnly(e.now())

	pending, err := e.forecasts.ListUngraded(ctx, horizonDays, today)
	if err != nil {
		return 0, err
	}

	graded := 0
	for _, rec := range pending {
		actual, found, err := e.sales.ActualQuantity(ctx, rec.ProductID, dateOnly(rec.TargetDate))
		if err != nil {
			return graded, err
		}
		if !found {
			continue
		}

		errPct := percentageError(rec.Predicted, actual)
		accuracy := round2(math.Max(0, 100-errPct))
		if err := e.forecasts.Grade(ctx, rec.ID, actual, accuracy, round2(errPct)); err != nil {
			return graded, err
		}
		graded++
	}

	if graded > 0 {
		log.Info().Int("horizon_days", horizonDays).Int("graded", graded).Msg("forecasts graded")
	}
	return graded, nil
}

// Evaluate grades any pending forecasts for the horizon and then
// aggregates MAE, RMSE and the accuracy percentage over the recent
// evaluation window, optionally for a single product. Returns
// ErrNoMatchedAccuracyData when not a single forecast/actual pair
// matched; callers surface that as "insufficient data", never as zero.
func (e *Evaluator) Evaluate(ctx context.Context, horizonDays int, productID *int64) (*domain.AccuracyReport, error) {
	if _, err := e.GradePending(ctx, horizonDays); err != nil {
		return nil, err
	}

	since := dateOnly(e.now()).AddDate(0, 0, -e.windowDays)
	graded, err := e.forecasts.ListGraded(ctx, horizonDays, productID, since)
	if err != nil {
		return nil, err
	}
	if len(graded) == 0 {
		return nil, fmt.Errorf("%w: horizon %d", domain.ErrNoMatchedAccuracyData, horizonDays)
	}

	var sumAbs, sumSq, sumPct float64
	for _, rec := range graded {
		actual := 0.0
		if rec.ActualQty != nil {
			actual = *rec.ActualQty
		}
		diff := rec.Predicted - actual
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		if rec.ErrorPct != nil {
			sumPct += *rec.ErrorPct
		} else {
			sumPct += percentageError(rec.Predicted, actual)
		}
	}

	n := float64(len(graded))
	mape := sumPct / n

	return &domain.AccuracyReport{
		HorizonDays:  horizonDays,
		MatchedPairs: len(graded),
		MAE:          round2(sumAbs / n),
		RMSE:         round2(math.Sqrt(sumSq / n)),
		AccuracyPct:  round2(math.Max(0, 100-mape)),
	}, nil
}

// percentageError follows the grading rules for zero-sale days: a zero
// actual with a zero prediction is a perfect forecast, a zero actual
// with a positive prediction is a complete miss.
func percentageError(predicted, actual float64) float64 {
	if actual > 0 {
		return math.Abs(predicted-actual) / actual * 100
	}
	if predicted > 0 {
		return 100
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
