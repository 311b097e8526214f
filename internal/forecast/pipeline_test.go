package forecast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmetrics/stockcast/internal/domain"
)

var runToday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

type pipelineFixture struct {
	sales     *memSalesRepo
	forecasts *memForecastRepo
	products  *memProductRepo
	alerts    *AlertEngine
	pipeline  *Pipeline
}

func newPipelineFixture(products ...domain.Product) *pipelineFixture {
	sales := newMemSalesRepo()
	forecasts := newMemForecastRepo()
	repo := newMemProductRepo(products...)
	fixedNow := func() time.Time { return runToday }

	gen := NewGenerator(NewHistoryReader(sales, 90, 7), forecasts)
	gen.now = fixedNow
	ev := NewEvaluator(sales, forecasts, 30)
	ev.now = fixedNow
	alerts := NewAlertEngine(repo, forecasts, 1.2)
	alerts.now = fixedNow

	return &pipelineFixture{
		sales:     sales,
		forecasts: forecasts,
		products:  repo,
		alerts:    alerts,
		pipeline:  NewPipeline(repo, gen, ev, alerts, 4, 5*time.Second),
	}
}

func TestPipelineCountsForecastedAndSkipped(t *testing.T) {
	products := make([]domain.Product, 0, 10)
	for i := int64(1); i <= 10; i++ {
		products = append(products, product(i, 100, "1.00"))
	}
	f := newPipelineFixture(products...)

	// Eight products with a month of sales, two with none.
	for i := int64(1); i <= 8; i++ {
		f.sales.addRange(i, runToday.AddDate(0, 0, -27), 28, float64(5+i))
	}

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, summary.Forecasted)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.SkippedLog, 2)
	for _, skipped := range summary.SkippedLog {
		assert.Contains(t, []int64{9, 10}, skipped.ProductID)
		assert.Contains(t, skipped.Reason, "insufficient sales history")
	}
}

func TestPipelineRejectsOverlappingRuns(t *testing.T) {
	f := newPipelineFixture(product(1, 10, "1.00"))

	f.pipeline.runMu.Lock()
	_, err := f.pipeline.Run(context.Background())
	f.pipeline.runMu.Unlock()

	require.ErrorIs(t, err, domain.ErrBatchRunning)

	// The lock is released after a rejected attempt; the next run works.
	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)
}

func TestPipelineOneBadProductDoesNotAbortRun(t *testing.T) {
	f := newPipelineFixture(product(1, 100, "1.00"), product(2, 100, "1.00"))

	f.sales.addRange(1, runToday.AddDate(0, 0, -13), 14, 10)
	// Product 2 has three lonely sales: enough rows to read, too short a
	// span to model.
	f.sales.addRange(2, runToday.AddDate(0, 0, -2), 3, 4)

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Forecasted)
	assert.Equal(t, 1, summary.Skipped)
}

func TestPipelineEndToEnd(t *testing.T) {
	// Steady seller: two weeks at 10/day, 5 left on the shelf.
	f := newPipelineFixture(domain.Product{
		ID:           1,
		Name:         "espresso beans 1kg",
		Category:     "coffee",
		CurrentStock: 5,
		UnitCost:     decimal.RequireFromString("2.50"),
	})
	f.sales.addRange(1, runToday.AddDate(0, 0, -13), 14, 10)

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Forecasted)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, summary.Alerts)

	set, err := f.alerts.Assess(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Assessments, 1)

	a := set.Assessments[0]
	assert.Equal(t, domain.UrgencyCritical, a.Urgency)
	assert.Equal(t, 5.0, a.Shortage)
	assert.Equal(t, 84, a.RecommendedQty)
	assert.True(t, a.EstimatedCost.Equal(decimal.RequireFromString("210")))

	require.NotNil(t, a.Forecasts.OneDay)
	assert.Equal(t, 10.0, *a.Forecasts.OneDay)
	require.NotNil(t, a.Forecasts.SevenDay)
	assert.Equal(t, 70.0, *a.Forecasts.SevenDay)
	require.NotNil(t, a.Forecasts.ThirtyDay)
	assert.Equal(t, 300.0, *a.Forecasts.ThirtyDay)
}

func TestPipelineGradesDuringRun(t *testing.T) {
	f := newPipelineFixture(product(1, 100, "1.00"))

	f.sales.addRange(1, runToday.AddDate(0, 0, -13), 14, 10)
	// Yesterday's forecast predicted the sale exactly.
	f.forecasts.seed(domain.ForecastRecord{
		ProductID:   1,
		TargetDate:  runToday.AddDate(0, 0, -1),
		HorizonDays: 7,
		Model:       ModelName,
		Predicted:   10,
	})

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	graded, err := f.forecasts.ListGraded(context.Background(), 7, nil, runToday.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, graded, 1)
	assert.Equal(t, 100.0, *graded[0].Accuracy)
}

func TestPipelineSummaryAccountsForEveryProduct(t *testing.T) {
	products := make([]domain.Product, 0, 6)
	for i := int64(1); i <= 6; i++ {
		products = append(products, product(i, 50, "1.00"))
	}
	f := newPipelineFixture(products...)
	for i := int64(1); i <= 3; i++ {
		f.sales.addRange(i, runToday.AddDate(0, 0, -20), 21, float64(i))
	}

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(products), summary.Forecasted+summary.Skipped,
		fmt.Sprintf("every product must land in exactly one bucket: %+v", summary))
}
