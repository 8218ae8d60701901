package figure_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/figure"
)

// testOptions keeps raster size small so the suite stays fast.
func testOptions() figure.Options {
	return figure.Options{WidthMM: 90, HeightMM: 50, DPI: 96}
}

func TestScatterWithFit_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scatter.png")
	xs := []float64{10, 12, 14, 16}
	ys := []float64{6.0, 5.2, 4.1, 3.3}
	lines := []figure.FitLine{{Label: "y = -0.455x + 10.5", Slope: -0.455, Intercept: 10.5}}

	err := figure.ScatterWithFit(path, xs, ys, lines, "Tmin (degC)", "Yield (t/ha)", testOptions())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestScatterWithFit_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")

	err := figure.ScatterWithFit(path, []float64{1, 2}, []float64{1}, nil, "x", "y", testOptions())
	assert.Error(t, err)

	err = figure.ScatterWithFit(path, nil, nil, nil, "x", "y", testOptions())
	assert.Error(t, err)
}

func TestHistogram_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.png")
	values := []float64{1, 2, 2, 3, 3, 3, 4, 5, 8, 13}

	err := figure.Histogram(path, values, 5, "Loss (%)", testOptions())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHistogram_EmptyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	assert.Error(t, figure.Histogram(path, nil, 5, "x", testOptions()))
}

func TestHistogram_BadBinCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-bins.png")
	assert.Error(t, figure.Histogram(path, []float64{1, 2, 3}, 0, "x", testOptions()))
}

func TestHistogram_IdenticalValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.png")
	err := figure.Histogram(path, []float64{5, 5, 5, 5}, 4, "x", testOptions())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBinnedBars_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.png")
	labels := []string{"5-8", "8-11", "11-14"}
	values := []float64{12.5, 18.3, 25.1}

	err := figure.BinnedBars(path, labels, values, "Mean loss (%)", testOptions())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBinnedBars_LabelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	assert.Error(t, figure.BinnedBars(path, []string{"a"}, []float64{1, 2}, "y", testOptions()))
}

func TestScatterWithFit_Deterministic(t *testing.T) {
	dir := t.TempDir()
	xs := []float64{10, 12, 14, 16}
	ys := []float64{6.0, 5.2, 4.1, 3.3}
	lines := []figure.FitLine{{Label: "fit", Slope: -0.455, Intercept: 10.5}}

	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	require.NoError(t, figure.ScatterWithFit(pathA, xs, ys, lines, "x", "y", testOptions()))
	require.NoError(t, figure.ScatterWithFit(pathB, xs, ys, lines, "x", "y", testOptions()))

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical inputs must produce byte-identical output")
}
