package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopmetrics/stockcast/internal/cache"
	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/forecast"
	"github.com/shopmetrics/stockcast/internal/repository"
)

const actualsLookbackDays = 30

// ForecastService is the single entry point the API and CLI layers use.
// It wires the forecasting core together and owns the alert cache.
type ForecastService struct {
	products  repository.ProductRepository
	sales     repository.SalesRepository
	forecasts repository.ForecastRepository
	generator *forecast.Generator
	evaluator *forecast.Evaluator
	alerts    *forecast.AlertEngine
	pipeline  *forecast.Pipeline
	cache     cache.AlertCache
}

func NewForecastService(
	products repository.ProductRepository,
	sales repository.SalesRepository,
	forecasts repository.ForecastRepository,
	generator *forecast.Generator,
	evaluator *forecast.Evaluator,
	alerts *forecast.AlertEngine,
	pipeline *forecast.Pipeline,
	alertCache cache.AlertCache,
) *ForecastService {
	if alertCache == nil {
		alertCache = cache.NewNoopAlertCache()
	}
	return &ForecastService{
		products:  products,
		sales:     sales,
		forecasts: forecasts,
		generator: generator,
		evaluator: evaluator,
		alerts:    alerts,
		pipeline:  pipeline,
		cache:     alertCache,
	}
}

// GenerateForecasts runs a forecast cycle for a single product.
func (s *ForecastService) GenerateForecasts(ctx context.Context, productID int64) (*domain.GenerateResult, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, productID)
}

// GetProductForecasts returns the live forward forecasts plus recent
// actuals for chart rendering.
func (s *ForecastService) GetProductForecasts(ctx context.Context, productID int64) (*domain.ProductForecastView, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	records, err := s.forecasts.ListByProduct(ctx, productID, today, today.AddDate(0, 0, 30))
	if err != nil {
		return nil, err
	}

	actuals, err := s.sales.DailyTotals(ctx, productID, today.AddDate(0, 0, -actualsLookbackDays), today.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = make([]domain.ForecastRecord, 0)
	}
	if actuals == nil {
		actuals = make([]domain.DailySale, 0)
	}

	return &domain.ProductForecastView{
		ProductID: productID,
		Records:   records,
		Actuals:   actuals,
	}, nil
}

// GetAccuracy grades any pending forecasts for the horizon and returns
// the aggregated accuracy report.
func (s *ForecastService) GetAccuracy(ctx context.Context, horizonDays int, productID *int64) (*domain.AccuracyReport, error) {
	return s.evaluator.Evaluate(ctx, horizonDays, productID)
}

// GetRestockAlerts serves alerts from cache when fresh, otherwise runs
// the alert engine and caches the result. Cache failures degrade to a
// direct computation rather than an error.
func (s *ForecastService) GetRestockAlerts(ctx context.Context) (*domain.AlertSet, error) {
	if set, ok, err := s.cache.Get(ctx); err == nil && ok {
		return set, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("restock alerts: cache get failed")
	}

	set, err := s.alerts.Assess(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, set); err != nil {
		log.Warn().Err(err).Msg("restock alerts: cache set failed")
	}

	return set, nil
}

// RunBatch executes the full pipeline and invalidates the alert cache
// so the next read reflects the fresh forecasts.
func (s *ForecastService) RunBatch(ctx context.Context) (*domain.BatchSummary, error) {
	summary, err := s.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("restock alerts: cache invalidate failed")
	}

	return summary, nil
}
