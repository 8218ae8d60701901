package yield_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/yield"
)

func TestEvaluate_PerfectPrediction(t *testing.T) {
	observed := []float64{2, 4, 6}

	s, err := yield.Evaluate(observed, observed)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, s.R2, 1e-12)
	assert.InDelta(t, 0.0, s.MAPE, 1e-12)
	assert.InDelta(t, 0.0, s.MSE, 1e-12)
	assert.InDelta(t, 0.0, s.RMSE, 1e-12)
	assert.InDelta(t, 0.0, s.NRMSE, 1e-12)
	assert.InDelta(t, 1.0, s.DIndex, 1e-12)
	assert.InDelta(t, 1.0, s.EF, 1e-12)
	assert.InDelta(t, 1.0, s.CCC, 1e-12)
	assert.InDelta(t, 1.0, s.Cb, 1e-12)
	assert.InDelta(t, 100.0, s.Accuracy, 1e-12)
}

func TestEvaluate_ConstantBias(t *testing.T) {
	// Predictions exactly 1 t/ha high: perfect correlation, pure bias.
	observed := []float64{2, 4, 6}
	predicted := []float64{3, 5, 7}

	s, err := yield.Evaluate(observed, predicted)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, s.R2, 1e-12)
	assert.InDelta(t, 1.0, s.MSE, 1e-12)
	assert.InDelta(t, 1.0, s.RMSE, 1e-12)
	assert.InDelta(t, 0.25, s.NRMSE, 1e-12)

	// Hand-computed: d = 1 - 3/35, EF = 1 - 3/8, CCC = 16/19
	assert.InDelta(t, 32.0/35.0, s.DIndex, 1e-12)
	assert.InDelta(t, 0.625, s.EF, 1e-12)
	assert.InDelta(t, 16.0/19.0, s.CCC, 1e-12)
	assert.InDelta(t, 16.0/19.0, s.Cb, 1e-12)

	// MAPE = (1/2 + 1/4 + 1/6)/3 * 100
	wantMAPE := (0.5 + 0.25 + 1.0/6.0) / 3 * 100
	assert.InDelta(t, wantMAPE, s.MAPE, 1e-9)
	assert.InDelta(t, 100-wantMAPE, s.Accuracy, 1e-9)
}

func TestEvaluate_AccuracyFallback(t *testing.T) {
	// Error above 100% of observed: score is re-expressed against predictions
	observed := []float64{1, 1, 1}
	predicted := []float64{4, 5, 6}

	s, err := yield.Evaluate(observed, predicted)
	require.NoError(t, err)

	assert.Greater(t, s.MAPE, 100.0)
	assert.LessOrEqual(t, s.Accuracy, 100.0)
	assert.GreaterOrEqual(t, s.Accuracy, 0.0)
}

func TestEvaluate_ZeroObservationsExcludedFromMAPE(t *testing.T) {
	// The zero observation has no defined percentage error; the mean is
	// taken over the two remaining pairs: (0.5 + 0.25) / 2 * 100
	observed := []float64{0, 2, 4}
	predicted := []float64{1, 3, 5}

	s, err := yield.Evaluate(observed, predicted)
	require.NoError(t, err)

	assert.InDelta(t, 37.5, s.MAPE, 1e-9)
	assert.InDelta(t, 62.5, s.Accuracy, 1e-9)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := yield.Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = yield.Evaluate([]float64{1}, []float64{1})
	assert.Error(t, err)
}
