// internal/forecast/alerts.go
package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/repository"
)

const defaultSafetyMargin = 1.2

var horizonLabels = map[int]string{1: "1-day", 7: "7-day", 30: "30-day"}

// AlertEngine classifies restock urgency per product from current
// stock and cumulative forecasted demand per horizon. Assessments are
// recomputed on every call; nothing is persisted.
type AlertEngine struct {
	products     repository.ProductRepository
	forecasts    repository.ForecastRepository
	safetyMargin float64
	now          func() time.Time
}

func NewAlertEngine(products repository.ProductRepository, forecasts repository.ForecastRepository, safetyMargin float64) *AlertEngine {
	if safetyMargin <= 1 {
		safetyMargin = defaultSafetyMargin
	}
	return &AlertEngine{
		products:     products,
		forecasts:    forecasts,
		safetyMargin: safetyMargin,
		now:          time.Now,
	}
}

// Assess evaluates every product and returns the at-risk assessments
// sorted by severity then shortage, plus the identifiers of products
// excluded because no horizon had complete forecast coverage. Excluded
// is not OK: absence of data must never read as "stock is fine".
func (e *AlertEngine) Assess(ctx context.Context) (*domain.AlertSet, error) {
	products, err := e.products.List(ctx)
	if err != nil {
		return nil, err
	}

	asOf := dateOnly(e.now())
	set := &domain.AlertSet{
		Assessments: make([]domain.AlertAssessment, 0),
		Excluded:    make([]int64, 0),
		GeneratedAt: e.now().UTC(),
	}

	for _, p := range products {
		assessment, excluded, err := e.assessProduct(ctx, p, asOf)
		if err != nil {
			return nil, err
		}
		if excluded {
			set.Excluded = append(set.Excluded, p.ID)
			continue
		}
		if assessment != nil {
			set.Assessments = append(set.Assessments, *assessment)
		}
	}

	sort.SliceStable(set.Assessments, func(i, j int) bool {
		a, b := set.Assessments[i], set.Assessments[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.Shortage > b.Shortage
	})

	return set, nil
}

// assessProduct returns (nil, false, nil) for an OK product and
// (nil, true, nil) for a product with no usable forecasts.
func (e *AlertEngine) assessProduct(ctx context.Context, p domain.Product, asOf time.Time) (*domain.AlertAssessment, bool, error) {
	demand := domain.HorizonForecasts{}
	var err error
	if demand.OneDay, err = e.horizonDemand(ctx, p.ID, 1, asOf); err != nil {
		return nil, false, err
	}
	if demand.SevenDay, err = e.horizonDemand(ctx, p.ID, 7, asOf); err != nil {
		return nil, false, err
	}
	if demand.ThirtyDay, err = e.horizonDemand(ctx, p.ID, 30, asOf); err != nil {
		return nil, false, err
	}

	if demand.OneDay == nil && demand.SevenDay == nil && demand.ThirtyDay == nil {
		return nil, true, nil
	}

	stock := float64(p.CurrentStock)

	// Tier ladder, most urgent first; unavailable horizons fall through
	// to the next one.
	urgency := domain.UrgencyOK
	var trigger float64
	switch {
	case demand.OneDay != nil && stock < *demand.OneDay:
		urgency, trigger = domain.UrgencyCritical, *demand.OneDay
	case demand.SevenDay != nil && stock < *demand.SevenDay:
		urgency, trigger = domain.UrgencyHigh, *demand.SevenDay
	case demand.ThirtyDay != nil && stock < *demand.ThirtyDay:
		urgency, trigger = domain.UrgencyMedium, *demand.ThirtyDay
	}
	if urgency == domain.UrgencyOK {
		return nil, false, nil
	}

	var affected []string
	for _, h := range []struct {
		label  string
		demand *float64
	}{
		{horizonLabels[1], demand.OneDay},
		{horizonLabels[7], demand.SevenDay},
		{horizonLabels[30], demand.ThirtyDay},
	} {
		if h.demand != nil && stock < *h.demand {
			affected = append(affected, h.label)
		}
	}

	qty := e.recommendQuantity(demand)
	cost := p.UnitCost.Mul(decimal.NewFromInt(int64(qty)))

	return &domain.AlertAssessment{
		ProductID:        p.ID,
		ProductName:      p.Name,
		Category:         p.Category,
		CurrentStock:     p.CurrentStock,
		Urgency:          urgency,
		Severity:         urgency.Severity(),
		Shortage:         round2(math.Max(0, trigger-stock)),
		RecommendedQty:   qty,
		EstimatedCost:    cost,
		HorizonsAffected: affected,
		Forecasts:        demand,
		GeneratedAt:      e.now().UTC(),
	}, false, nil
}

// horizonDemand sums predicted quantities across a horizon window. A
// horizon counts as available only when every date in the window has
// a live forecast; partial coverage returns nil.
func (e *AlertEngine) horizonDemand(ctx context.Context, productID int64, horizonDays int, asOf time.Time) (*float64, error) {
	from := asOf.AddDate(0, 0, 1)
	to := asOf.AddDate(0, 0, horizonDays)

	window, err := e.forecasts.Window(ctx, productID, horizonDays, from, to)
	if err != nil {
		return nil, err
	}
	if len(window) < horizonDays {
		return nil, nil
	}

	var total float64
	for _, qty := range window {
		total += qty
	}
	total = round2(total)
	return &total, nil
}

// recommendQuantity applies the safety margin to 7-day demand, falling
// back to the best available horizon when 7-day coverage is missing.
func (e *AlertEngine) recommendQuantity(demand domain.HorizonForecasts) int {
	base := demand.SevenDay
	if base == nil {
		base = demand.ThirtyDay
	}
	if base == nil {
		base = demand.OneDay
	}
	if base == nil {
		return 0
	}
	return int(math.Ceil(*base * e.safetyMargin))
}
