// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is inventory master data. The forecasting core only reads it.
type Product struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Category     string          `json:"category" db:"category"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	CurrentStock int             `json:"current_stock" db:"current_stock"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// DailySale is one day's aggregated sales quantity for a product.
// Days with no sale record are represented as quantity 0 once the
// history reader has zero-filled the series.
type DailySale struct {
	Date     time.Time `json:"date" db:"sale_date"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// ForecastRecord is a single predicted daily quantity for a product,
// tagged with the horizon run that produced it. Grading fields stay
// NULL until the target date has passed and an actual sale is known;
// a graded record is frozen and never overwritten.
type ForecastRecord struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	TargetDate  time.Time `json:"target_date" db:"target_date"`
	HorizonDays int       `json:"horizon_days" db:"horizon_days"`
	Model       string    `json:"model" db:"model"`
	Predicted   float64   `json:"predicted" db:"predicted"`
	Lower       *float64  `json:"confidence_lower,omitempty" db:"confidence_lower"`
	Upper       *float64  `json:"confidence_upper,omitempty" db:"confidence_upper"`
	ActualQty   *float64  `json:"actual_quantity,omitempty" db:"actual_quantity"`
	Accuracy    *float64  `json:"accuracy,omitempty" db:"accuracy"`
	ErrorPct    *float64  `json:"error_pct,omitempty" db:"error_pct"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Graded reports whether the record has been compared against actuals.
func (r *ForecastRecord) Graded() bool {
	return r.Accuracy != nil
}

// Urgency classifies restock risk, most severe first.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyOK       Urgency = "OK"
)

// Severity maps an urgency tier to a sortable rank (higher is worse).
func (u Urgency) Severity() int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// HorizonForecasts is the cumulative predicted demand per horizon.
// A nil entry means that horizon had no complete forecast coverage,
// which is distinct from a zero-demand forecast.
type HorizonForecasts struct {
	OneDay    *float64 `json:"1_day"`
	SevenDay  *float64 `json:"7_day"`
	ThirtyDay *float64 `json:"30_day"`
}

// AlertAssessment is a derived restock recommendation for one product.
// It is recomputed on demand and never persisted.
type AlertAssessment struct {
	ProductID        int64            `json:"product_id"`
	ProductName      string           `json:"product_name"`
	Category         string           `json:"category"`
	CurrentStock     int              `json:"current_stock"`
	Urgency          Urgency          `json:"urgency"`
	Severity         int              `json:"severity"`
	Shortage         float64          `json:"shortage"`
	RecommendedQty   int              `json:"recommended_order_qty"`
	EstimatedCost    decimal.Decimal  `json:"estimated_order_cost"`
	HorizonsAffected []string         `json:"horizons_affected"`
	Forecasts        HorizonForecasts `json:"forecasts"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// AlertSet is the full output of one alert engine pass. Excluded lists
// products with no usable forecast at any horizon; they are not OK,
// they are unknown, and the UI must render them differently.
type AlertSet struct {
	Assessments []AlertAssessment `json:"alerts"`
	Excluded    []int64           `json:"excluded_products"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ProductForecastView pairs live forecast records with recent actuals
// for chart rendering by the dashboard collaborator.
type ProductForecastView struct {
	ProductID int64            `json:"product_id"`
	Records   []ForecastRecord `json:"forecasts"`
	Actuals   []DailySale      `json:"actuals"`
}

// AccuracyReport aggregates grading results for one horizon.
type AccuracyReport struct {
	HorizonDays  int     `json:"horizon_days"`
	MatchedPairs int     `json:"matched_pairs"`
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	AccuracyPct  float64 `json:"accuracy_pct"`
}

// Per-product forecast run outcomes.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// GenerateResult is the outcome of a per-product forecast run.
type GenerateResult struct {
	ProductID int64  `json:"product_id"`
	Status    string `json:"status"` // "ok" or "skipped"
	Horizons  []int  `json:"horizons,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SkippedProduct records why a product produced no forecasts this cycle.
type SkippedProduct struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// BatchSummary is the result of a full pipeline run.
type BatchSummary struct {
	Forecasted int              `json:"forecasted"`
	Skipped    int              `json:"skipped"`
	Alerts     int              `json:"alerts"`
	SkippedLog []SkippedProduct `json:"skipped_products,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
}
