package yield_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/pheno"
	"github.com/egiron/wheat-night-lab/internal/yield"
)

func TestBinnedLoss(t *testing.T) {
	trends := []yield.SiteTrend{
		{MeanTmin: 6.0, LossPercent: 10},
		{MeanTmin: 7.5, LossPercent: 20},
		{MeanTmin: 15.0, LossPercent: 40},
		{MeanTmin: 3.0, LossPercent: 5},
		{MeanTmin: 27.0, LossPercent: 60},
	}

	out := yield.BinnedLoss(trends)
	require.Len(t, out, 4)

	// Temperature order along the axis: cold class, regime bins, hot class
	assert.Equal(t, pheno.BinCold, out[0].BinID)
	assert.Equal(t, 1, out[0].Sites)
	assert.InDelta(t, 5.0, out[0].MeanLossPercent, 1e-12)

	assert.Equal(t, pheno.Bin5to8, out[1].BinID)
	assert.Equal(t, "5-8", out[1].Label)
	assert.Equal(t, 2, out[1].Sites)
	assert.InDelta(t, 6.75, out[1].MeanTmin, 1e-12)
	assert.InDelta(t, 15.0, out[1].MeanLossPercent, 1e-12)

	assert.Equal(t, pheno.Bin14to17, out[2].BinID)
	assert.InDelta(t, 40.0, out[2].MeanLossPercent, 1e-12)

	// Hot class trails the regime bins despite its small ID
	assert.Equal(t, pheno.BinHot, out[3].BinID)
	assert.Equal(t, ">=26", out[3].Label)
	assert.InDelta(t, 60.0, out[3].MeanLossPercent, 1e-12)
}

func TestBinnedLoss_Empty(t *testing.T) {
	assert.Empty(t, yield.BinnedLoss(nil))
}

func TestHistogram(t *testing.T) {
	counts, edges := yield.Histogram([]float64{1, 2, 3, 4}, 3)

	require.Equal(t, []float64{1, 2, 3, 4}, edges)
	// Rightmost edge is inclusive: 4 falls in the last bin
	assert.Equal(t, []int{1, 1, 2}, counts)
}

func TestHistogram_IdenticalValues(t *testing.T) {
	counts, edges := yield.Histogram([]float64{5, 5, 5}, 4)

	require.Len(t, edges, 5)
	assert.Equal(t, []int{3, 0, 0, 0}, counts)
}

func TestHistogram_Degenerate(t *testing.T) {
	counts, edges := yield.Histogram(nil, 10)
	assert.Nil(t, counts)
	assert.Nil(t, edges)

	counts, _ = yield.Histogram([]float64{1, 2}, 0)
	assert.Nil(t, counts)
}
