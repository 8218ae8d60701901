// Package yield implements the statistical core of the nighttime-temperature
// wheat yield analysis: per-site warming trends, yield-loss estimation,
// thermal-bin summaries, and model evaluation scores.
//
// All functions are pure and deterministic: grouped outputs are sorted by
// key, so results are invariant under input row reordering.
package yield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// Ordinary Least Squares
// =============================================================================

// Fit holds the result of a simple linear regression y = Slope*x + Intercept.
// Standard errors, t-statistics and p-values are NaN when the fit has no
// residual degrees of freedom (fewer than 3 points).
type Fit struct {
	Slope     float64
	Intercept float64

	SlopeSE     float64 // Standard error of the slope
	InterceptSE float64 // Standard error of the intercept
	TSlope      float64 // t-statistic for the slope
	TIntercept  float64 // t-statistic for the intercept
	PSlope      float64 // Two-sided p-value for the slope
	PIntercept  float64 // Two-sided p-value for the intercept

	R2 float64 // Coefficient of determination
	N  int     // Number of points
}

// LinearFit performs ordinary least squares on (x, y) pairs and derives
// inference statistics from the Student's-t distribution with n-2 degrees
// of freedom.
func LinearFit(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("length mismatch: %d x values, %d y values", len(x), len(y))
	}
	if len(x) < 2 {
		return Fit{}, fmt.Errorf("need at least 2 points, got %d", len(x))
	}

	n := len(x)
	meanX := stat.Mean(x, nil)

	var sxx float64
	for _, xi := range x {
		dx := xi - meanX
		sxx += dx * dx
	}
	if sxx == 0 {
		return Fit{}, fmt.Errorf("x values are constant")
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)

	fit := Fit{
		Slope:       beta,
		Intercept:   alpha,
		R2:          stat.RSquared(x, y, nil, alpha, beta),
		N:           n,
		SlopeSE:     math.NaN(),
		InterceptSE: math.NaN(),
		TSlope:      math.NaN(),
		TIntercept:  math.NaN(),
		PSlope:      math.NaN(),
		PIntercept:  math.NaN(),
	}

	if n < 3 {
		// No residual degrees of freedom: the line is exact
		return fit, nil
	}

	var sse, sumX2 float64
	for i := range x {
		resid := y[i] - (alpha + beta*x[i])
		sse += resid * resid
		sumX2 += x[i] * x[i]
	}

	mse := sse / float64(n-2)
	fit.SlopeSE = math.Sqrt(mse / sxx)
	fit.InterceptSE = math.Sqrt(mse * sumX2 / (float64(n) * sxx))

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	if fit.SlopeSE > 0 {
		fit.TSlope = beta / fit.SlopeSE
		fit.PSlope = 2 * (1 - tdist.CDF(math.Abs(fit.TSlope)))
	}
	if fit.InterceptSE > 0 {
		fit.TIntercept = alpha / fit.InterceptSE
		fit.PIntercept = 2 * (1 - tdist.CDF(math.Abs(fit.TIntercept)))
	}

	return fit, nil
}

// Predict evaluates the fitted line at x.
func (f Fit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// Equation renders the fitted line for figure annotations.
func (f Fit) Equation() string {
	return fmt.Sprintf("y = %.3fx + %.3f - R2: %.2f", f.Slope, f.Intercept, f.R2)
}
