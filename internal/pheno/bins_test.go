package pheno_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/egiron/wheat-night-lab/internal/pheno"
)

func TestGetTminBin(t *testing.T) {
	cases := []struct {
		tmin  float64
		id    int32
		label string
	}{
		{5.0, pheno.Bin5to8, "5-8"},
		{7.999, pheno.Bin5to8, "5-8"},
		{8.0, pheno.Bin8to11, "8-11"}, // edges are half-open
		{12.5, pheno.Bin11to14, "11-14"},
		{25.999, pheno.Bin23to26, "23-26"},
		{4.9, pheno.BinCold, "<5"},
		{-3.0, pheno.BinCold, "<5"},
		{26.0, pheno.BinHot, ">=26"},
		{40.0, pheno.BinHot, ">=26"},
	}

	for _, tc := range cases {
		id, label := pheno.GetTminBin(tc.tmin)
		assert.Equal(t, tc.id, id, "tmin=%.3f", tc.tmin)
		assert.Equal(t, tc.label, label, "tmin=%.3f", tc.tmin)
	}
}

func TestGetTminBin_NaN(t *testing.T) {
	id, label := pheno.GetTminBin(math.NaN())
	assert.Equal(t, pheno.BinUnknown, id)
	assert.Equal(t, "unknown", label)
}

func TestGetBinByID(t *testing.T) {
	bin, ok := pheno.GetBinByID(pheno.Bin14to17)
	assert.True(t, ok)
	assert.Equal(t, "14-17", bin.Label)
	assert.Equal(t, 14.0, bin.MinTminC)
	assert.Equal(t, 17.0, bin.MaxTminC)

	cold, ok := pheno.GetBinByID(pheno.BinCold)
	assert.True(t, ok)
	assert.True(t, math.IsInf(cold.MinTminC, -1))

	_, ok = pheno.GetBinByID(999)
	assert.False(t, ok)
}

func TestAllTminBins_Contiguous(t *testing.T) {
	bins := pheno.AllTminBins()
	assert.Len(t, bins, 7)

	for i := 1; i < len(bins); i++ {
		assert.Equal(t, bins[i-1].MaxTminC, bins[i].MinTminC,
			"gap between %s and %s", bins[i-1].Label, bins[i].Label)
	}
}
