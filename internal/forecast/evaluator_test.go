package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmetrics/stockcast/internal/domain"
)

var evalToday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func newTestEvaluator(sales *memSalesRepo, forecasts *memForecastRepo) *Evaluator {
	ev := NewEvaluator(sales, forecasts, 30)
	ev.now = func() time.Time { return evalToday }
	return ev
}

func seedForecast(repo *memForecastRepo, productID int64, daysAgo int, predicted float64) {
	repo.seed(domain.ForecastRecord{
		ProductID:   productID,
		TargetDate:  evalToday.AddDate(0, 0, -daysAgo),
		HorizonDays: 7,
		Model:       ModelName,
		Predicted:   predicted,
	})
}

func TestGradePendingMatchesActuals(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	seedForecast(forecasts, 1, 3, 8)
	sales.add(1, evalToday.AddDate(0, 0, -3), 10)

	ev := newTestEvaluator(sales, forecasts)
	graded, err := ev.GradePending(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, graded)

	recs, err := forecasts.ListGraded(context.Background(), 7, nil, evalToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 10.0, *recs[0].ActualQty)
	assert.Equal(t, 20.0, *recs[0].ErrorPct)
	assert.Equal(t, 80.0, *recs[0].Accuracy)
}

func TestGradePendingSkipsDaysWithoutActuals(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	seedForecast(forecasts, 1, 3, 8)

	ev := newTestEvaluator(sales, forecasts)
	graded, err := ev.GradePending(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, graded)
}

func TestGradePendingZeroActualRules(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	// Zero predicted, zero sold: perfect. Positive predicted, zero sold:
	// complete miss.
	seedForecast(forecasts, 1, 2, 0)
	seedForecast(forecasts, 2, 2, 5)
	sales.add(1, evalToday.AddDate(0, 0, -2), 0)
	sales.add(2, evalToday.AddDate(0, 0, -2), 0)

	ev := newTestEvaluator(sales, forecasts)
	_, err := ev.GradePending(context.Background(), 7)
	require.NoError(t, err)

	one := int64(1)
	recs, err := forecasts.ListGraded(context.Background(), 7, &one, evalToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 100.0, *recs[0].Accuracy)

	two := int64(2)
	recs, err = forecasts.ListGraded(context.Background(), 7, &two, evalToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.0, *recs[0].Accuracy)
}

func TestAccuracyClampedToZero(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	// 4900% error must floor at 0, not go negative.
	seedForecast(forecasts, 1, 1, 50)
	sales.add(1, evalToday.AddDate(0, 0, -1), 1)

	ev := newTestEvaluator(sales, forecasts)
	_, err := ev.GradePending(context.Background(), 7)
	require.NoError(t, err)

	recs, err := forecasts.ListGraded(context.Background(), 7, nil, evalToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.0, *recs[0].Accuracy)
}

func TestEvaluateAggregates(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	seedForecast(forecasts, 1, 3, 8)  // actual 10: abs err 2, pct 20
	seedForecast(forecasts, 1, 2, 12) // actual 10: abs err 2, pct 20
	sales.add(1, evalToday.AddDate(0, 0, -3), 10)
	sales.add(1, evalToday.AddDate(0, 0, -2), 10)

	ev := newTestEvaluator(sales, forecasts)
	report, err := ev.Evaluate(context.Background(), 7, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, report.HorizonDays)
	assert.Equal(t, 2, report.MatchedPairs)
	assert.Equal(t, 2.0, report.MAE)
	assert.Equal(t, 2.0, report.RMSE)
	assert.Equal(t, 80.0, report.AccuracyPct)
}

func TestEvaluateNoMatchedData(t *testing.T) {
	ev := newTestEvaluator(newMemSalesRepo(), newMemForecastRepo())

	_, err := ev.Evaluate(context.Background(), 7, nil)
	require.ErrorIs(t, err, domain.ErrNoMatchedAccuracyData)
}

func TestEvaluateFiltersByProduct(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	seedForecast(forecasts, 1, 3, 10)
	seedForecast(forecasts, 2, 3, 100)
	sales.add(1, evalToday.AddDate(0, 0, -3), 10)
	sales.add(2, evalToday.AddDate(0, 0, -3), 10)

	ev := newTestEvaluator(sales, forecasts)
	one := int64(1)
	report, err := ev.Evaluate(context.Background(), 7, &one)
	require.NoError(t, err)

	assert.Equal(t, 1, report.MatchedPairs)
	assert.Equal(t, 100.0, report.AccuracyPct)
}

func TestGradedRecordsAreFrozen(t *testing.T) {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()

	seedForecast(forecasts, 1, 3, 8)
	sales.add(1, evalToday.AddDate(0, 0, -3), 10)

	ev := newTestEvaluator(sales, forecasts)
	_, err := ev.GradePending(context.Background(), 7)
	require.NoError(t, err)

	// A later upsert for the same key must not overwrite the grade.
	written, err := forecasts.UpsertBatch(context.Background(), []domain.ForecastRecord{{
		ProductID:   1,
		TargetDate:  evalToday.AddDate(0, 0, -3),
		HorizonDays: 7,
		Model:       ModelName,
		Predicted:   999,
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	recs, err := forecasts.ListGraded(context.Background(), 7, nil, evalToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 8.0, recs[0].Predicted)
	assert.Equal(t, 80.0, *recs[0].Accuracy)
}
