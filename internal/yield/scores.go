package yield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// scores.go - Model evaluation scores for observed-vs-predicted comparisons
//
// The score set follows the crop-modeling literature: alongside R2 and RMSE
// it carries Willmott's index of agreement, Nash-Sutcliffe modeling
// efficiency, and Lin's concordance correlation with its bias correction
// factor.

// Scores holds the full evaluation metric set for one observed/predicted pair.
type Scores struct {
	R2       float64 // Squared Pearson correlation
	MAPE     float64 // Mean absolute percentage error, %
	MSE      float64 // Mean squared error
	RMSE     float64 // Root mean squared error
	NRMSE    float64 // RMSE normalized by the observed mean
	DIndex   float64 // Willmott's index of agreement
	EF       float64 // Nash-Sutcliffe modeling efficiency
	CCC      float64 // Lin's concordance correlation coefficient
	Cb       float64 // Bias correction factor (CCC / r)
	Accuracy float64 // 100 - MAPE, clamped per the original scoring
}

// Evaluate computes the full score set for observed vs predicted values.
func Evaluate(observed, predicted []float64) (Scores, error) {
	if len(observed) != len(predicted) {
		return Scores{}, fmt.Errorf("length mismatch: %d observed, %d predicted", len(observed), len(predicted))
	}
	if len(observed) < 2 {
		return Scores{}, fmt.Errorf("need at least 2 pairs, got %d", len(observed))
	}

	n := float64(len(observed))
	meanObs := stat.Mean(observed, nil)
	meanPred := stat.Mean(predicted, nil)

	var sse, sumAbsPairs, ssObs float64
	for i := range observed {
		d := observed[i] - predicted[i]
		sse += d * d

		a := math.Abs(predicted[i]-meanObs) + math.Abs(observed[i]-meanObs)
		sumAbsPairs += a * a

		do := observed[i] - meanObs
		ssObs += do * do
	}

	s := Scores{}
	s.MSE = sse / n
	s.RMSE = math.Sqrt(s.MSE)
	if meanObs != 0 {
		s.NRMSE = s.RMSE / meanObs
	}

	r := stat.Correlation(observed, predicted, nil)
	s.R2 = r * r

	if sumAbsPairs > 0 {
		s.DIndex = 1 - sse/sumAbsPairs
	}
	if ssObs > 0 {
		s.EF = 1 - sse/ssObs
	}

	s.CCC = concordance(observed, predicted, meanObs, meanPred)
	if r != 0 {
		s.Cb = s.CCC / r
	}

	s.MAPE = mape(observed, predicted)
	s.Accuracy = accuracy(observed, predicted, s.MAPE)

	return s, nil
}

// concordance computes Lin's CCC from population moments.
func concordance(x, y []float64, meanX, meanY float64) float64 {
	n := float64(len(x))
	var sxy, sx2, sy2 float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxy += dx * dy
		sx2 += dx * dx
		sy2 += dy * dy
	}
	sxy /= n
	sx2 /= n
	sy2 /= n

	db := meanX - meanY
	denom := sx2 + sy2 + db*db
	if denom == 0 {
		return 0
	}
	return 2 * sxy / denom
}

// mape computes the mean absolute percentage error against the first
// argument. Zero-valued truths have no defined percentage error and are
// excluded from both the numerator and the denominator.
func mape(truth, approx []float64) float64 {
	var sum float64
	n := 0
	for i := range truth {
		if truth[i] == 0 {
			continue
		}
		sum += math.Abs((truth[i] - approx[i]) / truth[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

// accuracy converts MAPE to an accuracy score. When prediction error exceeds
// 100% of the observed values, the error is re-expressed against the
// predictions so the score stays on a 0-100 scale.
func accuracy(observed, predicted []float64, m float64) float64 {
	if m <= 100 {
		return 100 - m
	}
	return 100 - mape(predicted, observed)
}
