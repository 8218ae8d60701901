package warehouse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/pheno"
	"github.com/egiron/wheat-night-lab/internal/warehouse"
)

func TestObservationBatch_AppendAndReset(t *testing.T) {
	b := warehouse.NewObservationBatch()
	assert.Equal(t, 0, b.Len())

	obs := pheno.Observation{
		LocNo: 101, LocDesc: "Obregon", Country: "MEXICO",
		Lat: 27.33, Lon: -109.9, Year: 1995, Occ: 1, Genotype: "SERI",
		TminGF: 12.5, TmaxGF: 28.9, Yield: 6.213,
		SolRadGF: 21.4, GrainFillDays: 45, ColumnCount: 13,
	}

	b.Append(&obs)
	b.Append(&obs)
	assert.Equal(t, 2, b.Len())

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestObservationBatch_InputMatchesTableSchema(t *testing.T) {
	b := warehouse.NewObservationBatch()
	input := b.Input()
	require.Len(t, input, 14)

	want := []string{
		"loc_no", "loc_desc", "country", "lat", "lon", "year", "occ", "genotype",
		"tmin_gf", "tmax_gf", "yield_t_ha", "srad_gf", "gfill_days", "column_count",
	}
	for i, col := range input {
		assert.Equal(t, want[i], col.Name)
	}
}
