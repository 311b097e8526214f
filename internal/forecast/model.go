// internal/forecast/model.go
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/shopmetrics/stockcast/internal/domain"
)

// ModelName identifies the regression model on persisted forecasts.
const ModelName = "weighted_linear_regression"

const (
	minFitPoints = 5

	// recencyDecay weights recent observations exponentially heavier.
	recencyDecay = 0.01

	// ridgeLambda stabilizes the normal equations against collinear
	// features (a trailing average of a linear series is itself linear).
	ridgeLambda = 1e-6

	// Confidence bounds are pred ± z·residualStd·(1 + growth·step):
	// a fixed multiple of the training residual standard deviation that
	// widens with the forecast step. z = 1.28 is the two-sided 80%
	// normal quantile.
	confidenceZ      = 1.28
	confidenceGrowth = 0.15

	movingAvgWindow = 7
)

// Prediction is a single future-date point estimate with bounds.
type Prediction struct {
	Date     time.Time
	Quantity float64
	Lower    float64
	Upper    float64
}

// Model is a fitted demand model for one product. Fitting is fully
// deterministic: identical input series produce identical coefficients.
type Model struct {
	coeffs      []float64
	lastDate    time.Time
	lastIndex   int
	lastAvg     float64
	residualStd float64

	// In-sample fit quality, for logging and diagnostics.
	TrainingMAE  float64
	TrainingRMSE float64

	// constant is set when the series has zero variance; the model then
	// predicts the constant directly instead of solving a degenerate
	// regression.
	constant *float64
}

// FitModel fits a weighted least-squares regression to a contiguous
// daily series. Features: linear trend index, day-of-week indicators
// (Monday dropped as the baseline), and a trailing 7-day average.
func FitModel(series []domain.DailySale) (*Model, error) {
	n := len(series)
	if n < minFitPoints {
		return nil, fmt.Errorf("%w: %d points, need at least %d", domain.ErrModelFit, n, minFitPoints)
	}

	for _, s := range series {
		if math.IsNaN(s.Quantity) || math.IsInf(s.Quantity, 0) {
			return nil, fmt.Errorf("%w: non-finite quantity on %s", domain.ErrModelFit, s.Date.Format("2006-01-02"))
		}
	}

	last := series[n-1]

	constant := true
	for _, s := range series[1:] {
		if s.Quantity != series[0].Quantity {
			constant = false
			break
		}
	}
	if constant {
		v := series[0].Quantity
		return &Model{
			lastDate:  dateOnly(last.Date),
			lastIndex: n - 1,
			lastAvg:   v,
			constant:  &v,
		}, nil
	}

	avgs := trailingAverages(series, movingAvgWindow)

	const width = 9 // intercept, trend, 6 day-of-week dummies, trailing avg
	rows := make([][]float64, n)
	for t, s := range series {
		rows[t] = featureRow(t, s.Date, avgs[t])
	}

	// Weighted normal equations: A = XᵀWX (+ ridge), b = XᵀWy.
	a := make([][]float64, width)
	for i := range a {
		a[i] = make([]float64, width)
	}
	b := make([]float64, width)
	for t := 0; t < n; t++ {
		w := math.Exp(recencyDecay * float64(t))
		for i := 0; i < width; i++ {
			for j := 0; j < width; j++ {
				a[i][j] += w * rows[t][i] * rows[t][j]
			}
			b[i] += w * rows[t][i] * series[t].Quantity
		}
	}
	for i := 1; i < width; i++ {
		a[i][i] += ridgeLambda
	}

	coeffs, err := solveLinearSystem(a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelFit, err)
	}

	var sumAbs, sumSq float64
	for t := 0; t < n; t++ {
		resid := series[t].Quantity - dot(coeffs, rows[t])
		sumAbs += math.Abs(resid)
		sumSq += resid * resid
	}
	rmse := math.Sqrt(sumSq / float64(n))

	return &Model{
		coeffs:       coeffs,
		lastDate:     dateOnly(last.Date),
		lastIndex:    n - 1,
		lastAvg:      avgs[n-1],
		residualStd:  rmse,
		TrainingMAE:  sumAbs / float64(n),
		TrainingRMSE: rmse,
	}, nil
}

// Forecast produces point predictions for the given number of days
// after the series end. Quantities are clamped non-negative and kept
// as real numbers; rounding is presentation's job.
func (m *Model) Forecast(days int) []Prediction {
	preds := make([]Prediction, 0, days)
	for i := 0; i < days; i++ {
		date := m.lastDate.AddDate(0, 0, i+1)

		var raw float64
		if m.constant != nil {
			raw = *m.constant
		} else {
			row := featureRow(m.lastIndex+i+1, date, m.lastAvg)
			raw = dot(m.coeffs, row)
		}

		margin := confidenceZ * m.residualStd * (1 + confidenceGrowth*float64(i))
		preds = append(preds, Prediction{
			Date:     date,
			Quantity: math.Max(0, raw),
			Lower:    math.Max(0, raw-margin),
			Upper:    math.Max(0, raw+margin),
		})
	}
	return preds
}

// featureRow builds the regressor vector for a day index and date. The
// trailing average for future dates reuses the last known value.
func featureRow(t int, date time.Time, trailingAvg float64) []float64 {
	row := make([]float64, 9)
	row[0] = 1
	row[1] = float64(t)
	// Weekday dummies, Monday is the baseline.
	if wd := weekdayIndex(date); wd > 0 {
		row[1+wd] = 1
	}
	row[8] = trailingAvg
	return row
}

// weekdayIndex maps Monday..Sunday to 0..6.
func weekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func trailingAverages(series []domain.DailySale, window int) []float64 {
	avgs := make([]float64, len(series))
	var sum float64
	for t := range series {
		sum += series[t].Quantity
		if t >= window {
			sum -= series[t-window].Quantity
		}
		span := t + 1
		if span > window {
			span = window
		}
		avgs[t] = sum / float64(span)
	}
	return avgs
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// solveLinearSystem solves Ax = b by Gaussian elimination with partial
// pivoting. A is modified in place.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= a[r][c] * x[c]
		}
		x[r] = s / a[r][r]
	}
	return x, nil
}
