// internal/forecast/pipeline.go
package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository"
)

// Pipeline runs the nightly cycle: forecast every product, grade the
// forecasts whose target dates have passed, then refresh alerts. Only
// one run may be in flight at a time.
type Pipeline struct {
	products  repository.ProductRepository
	generator *Generator
	evaluator *Evaluator
	alerts    *AlertEngine

	workers        int
	productTimeout time.Duration

	runMu sync.Mutex
}

func NewPipeline(products repository.ProductRepository, generator *Generator, evaluator *Evaluator, alerts *AlertEngine, workers int, productTimeout time.Duration) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	if productTimeout <= 0 {
		productTimeout = 30 * time.Second
	}
	return &Pipeline{
		products:       products,
		generator:      generator,
		evaluator:      evaluator,
		alerts:         alerts,
		workers:        workers,
		productTimeout: productTimeout,
	}
}

// Run executes one full batch cycle. A product that fails or times out
// is recorded as skipped and never aborts the run; the summary always
// accounts for every product.
func (p *Pipeline) Run(ctx context.Context) (*domain.BatchSummary, error) {
	if !p.runMu.TryLock() {
		return nil, domain.ErrBatchRunning
	}
	defer p.runMu.Unlock()

	started := time.Now().UTC()
	log.Info().Msg("batch pipeline started")

	products, err := p.products.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		forecasted int
		skippedLog []domain.SkippedProduct
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, product := range products {
		productID := product.ID
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, p.productTimeout)
			defer cancel()

			result, err := p.generator.Generate(pctx, productID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				log.Error().Err(err).Int64("product_id", productID).Msg("forecast generation failed")
				skippedLog = append(skippedLog, domain.SkippedProduct{ProductID: productID, Reason: err.Error()})
			case result.Status == domain.StatusSkipped:
				skippedLog = append(skippedLog, domain.SkippedProduct{ProductID: productID, Reason: result.Reason})
			default:
				forecasted++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	for _, horizon := range Horizons {
		graded, err := p.evaluator.GradePending(ctx, horizon)
		if err != nil {
			log.Error().Err(err).Int("horizon_days", horizon).Msg("grading pass failed")
			continue
		}
		if graded > 0 {
			log.Info().Int("horizon_days", horizon).Int("graded", graded).Msg("graded forecasts")
		}
	}

	alertCount := 0
	alertSet, err := p.alerts.Assess(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alert pass failed")
	} else {
		alertCount = len(alertSet.Assessments)
	}

	summary := &domain.BatchSummary{
		Forecasted: forecasted,
		Skipped:    len(skippedLog),
		Alerts:     alertCount,
		SkippedLog: skippedLog,
		StartedAt:  started,
		Duration:   time.Since(started),
	}

	log.Info().
		Int("forecasted", summary.Forecasted).
		Int("skipped", summary.Skipped).
		Int("alerts", summary.Alerts).
		Dur("duration", summary.Duration).
		Msg("batch pipeline finished")

	return summary, nil
}
