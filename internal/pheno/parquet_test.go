package pheno_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/pheno"
)

func TestParquetRoundTrip(t *testing.T) {
	obs := []pheno.Observation{
		{
			LocNo: 101, LocDesc: "Obregon", Country: "MEXICO",
			Lat: 27.3333, Lon: -109.9, Year: 1995, Occ: 1, Genotype: "SERI",
			TminGF: 12.5, TmaxGF: 28.9, Yield: 6.213,
			SolRadGF: 21.4, GrainFillDays: 45, ColumnCount: 13,
		},
		{
			LocNo: 102, LocDesc: "Ludhiana", Country: "INDIA",
			Lat: 30.9, Lon: 75.85, Year: 1996, Occ: 2, Genotype: "KAUZ",
			TminGF: 14.2, TmaxGF: 31.1, Yield: 4.87,
			SolRadGF: 19.8, GrainFillDays: 38, ColumnCount: 13,
		},
	}

	path := filepath.Join(t.TempDir(), "obs.parquet")
	require.NoError(t, pheno.WriteParquetFile(path, obs))

	got, err := pheno.ReadParquetFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, obs[0].LocNo, got[0].LocNo)
	assert.Equal(t, obs[0].Genotype, got[0].Genotype)
	assert.InDelta(t, obs[0].TminGF, got[0].TminGF, 1e-12)
	assert.InDelta(t, obs[1].Yield, got[1].Yield, 1e-12)
	assert.Equal(t, obs[1].Year, got[1].Year)
}

func TestReadParquetFile_RejectsImplausibleRows(t *testing.T) {
	bad := []pheno.Observation{
		{
			LocNo: 101, Lat: 27.33, Lon: -109.9, Year: 1995,
			TminGF: 12.5, TmaxGF: 28.9, Yield: 99.0, // beyond plausible yield
		},
	}

	path := filepath.Join(t.TempDir(), "bad.parquet")
	require.NoError(t, pheno.WriteParquetFile(path, bad))

	_, err := pheno.ReadParquetFile(path)
	require.Error(t, err)

	var formatErr *pheno.FormatError
	assert.ErrorAs(t, err, &formatErr)
}
