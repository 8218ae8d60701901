package pheno_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egiron/wheat-night-lab/internal/pheno"
)

const testHeader = "loc_no,loc_desc,country,lat,lon,year,occ,genotype,avg_tmin_grainfill,avg_tmax_grainfill,yield_t_ha,avg_srad_grainfill,days_grainfill"

const testRows = testHeader + "\n" +
	"101,Obregon,MEXICO,27.3333,-109.9000,1995,1,SERI/RAYON,12.5,28.9,6.213,21.4,45\n" +
	"102,Ludhiana,INDIA,30.9000,75.8500,1995,1,KAUZ,14.2,31.1,4.870,19.8,38\n"

func TestReadObservations_OneRecordPerRow(t *testing.T) {
	obs, stats, err := pheno.ReadObservations(strings.NewReader(testRows))
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, int64(3), stats.TotalRowsRead)
	assert.Equal(t, int64(2), stats.SuccessfullyParsed)
	assert.Equal(t, int64(1), stats.SkippedHeaderRows)
	assert.Equal(t, int64(0), stats.FailedRows)

	first := obs[0]
	assert.Equal(t, uint32(101), first.LocNo)
	assert.Equal(t, "Obregon", first.LocDesc)
	assert.Equal(t, "MEXICO", first.Country)
	assert.InDelta(t, 27.3333, first.Lat, 1e-9)
	assert.Equal(t, uint16(1995), first.Year)
	assert.Equal(t, uint8(1), first.Occ)
	assert.Equal(t, "SERI/RAYON", first.Genotype)
	assert.InDelta(t, 12.5, first.TminGF, 1e-9)
	assert.InDelta(t, 28.9, first.TmaxGF, 1e-9)
	assert.InDelta(t, 6.213, first.Yield, 1e-9)
	assert.InDelta(t, 21.4, first.SolRadGF, 1e-9)
	assert.InDelta(t, 45, first.GrainFillDays, 1e-9)
	assert.Equal(t, uint8(13), first.ColumnCount)
}

func TestReadObservations_NoHeader(t *testing.T) {
	data := "101,Obregon,MEXICO,27.33,-109.9,1995,1,SERI,12.5,28.9,6.213\n"

	obs, stats, err := pheno.ReadObservations(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, int64(0), stats.SkippedHeaderRows)

	// 11-column format: optional fields default to zero
	assert.Equal(t, uint8(11), obs[0].ColumnCount)
	assert.Zero(t, obs[0].SolRadGF)
	assert.Zero(t, obs[0].GrainFillDays)
}

func TestReadObservations_MissingHeaderColumns(t *testing.T) {
	data := "loc_no,country,year\n101,MEXICO,1995\n"

	_, _, err := pheno.ReadObservations(strings.NewReader(data))
	require.Error(t, err)

	var schemaErr *pheno.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Missing, "loc_desc")
	assert.Contains(t, schemaErr.Missing, "yield_t_ha")
	assert.NotContains(t, schemaErr.Missing, "loc_no")
}

func TestReadObservations_StrictAbortsOnBadField(t *testing.T) {
	data := testHeader + "\n" +
		"101,Obregon,MEXICO,27.33,-109.9,1995,1,SERI,12.5,28.9,6.213\n" +
		"102,Ludhiana,INDIA,30.9,75.85,not-a-year,1,KAUZ,14.2,31.1,4.870\n"

	_, _, err := pheno.ReadObservations(strings.NewReader(data))
	require.Error(t, err)

	var formatErr *pheno.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, int64(3), formatErr.Row)
	assert.Equal(t, "year", formatErr.Field)
}

func TestParseCsvStream_TolerantSkipsBadRows(t *testing.T) {
	data := testHeader + "\n" +
		"101,Obregon,MEXICO,27.33,-109.9,1995,1,SERI,12.5,28.9,6.213\n" +
		"bogus,Ludhiana,INDIA,30.9,75.85,1995,1,KAUZ,14.2,31.1,4.870\n" +
		"103,Njoro,KENYA,-0.33,35.93,1996,1,DUMA,11.0,26.5,5.100\n"

	batch := pheno.NewBatch(16)
	stats := &pheno.ParseStats{}
	err := pheno.ParseCsvStream(strings.NewReader(data), batch, pheno.ParseOptions{Strict: false}, stats, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Count)
	assert.Equal(t, int64(2), stats.SuccessfullyParsed)
	assert.Equal(t, int64(1), stats.FailedRows)
}

func TestParseCsvStream_BatchRotation(t *testing.T) {
	var rows []string
	rows = append(rows, testHeader)
	for i := 0; i < 5; i++ {
		rows = append(rows, "101,Obregon,MEXICO,27.33,-109.9,1995,1,SERI,12.5,28.9,6.213")
	}

	batch := pheno.NewBatch(2)
	stats := &pheno.ParseStats{}
	rotations := 0
	err := pheno.ParseCsvStream(strings.NewReader(strings.Join(rows, "\n")), batch,
		pheno.ParseOptions{Strict: true}, stats,
		func(full *pheno.Batch) (*pheno.Batch, error) {
			rotations++
			assert.True(t, full.IsFull())
			full.Reset()
			return full, nil
		})
	require.NoError(t, err)

	// 5 rows, capacity 2: two rotations plus a partial tail
	assert.Equal(t, 2, rotations)
	assert.Equal(t, 1, batch.Count)
	assert.Equal(t, int64(5), stats.SuccessfullyParsed)
}

func TestParseCsvRecord_SanitizesFreeText(t *testing.T) {
	pheno.DisableAuditLog()
	defer pheno.EnableAuditLog()

	record := []string{
		"101", `Obregon "CIANO"`, "MEXICO", "27.33", "-109.9",
		"1995", "1", `SERI\RAYON'84`, "12.5", "28.9", "6.213",
	}

	stats := &pheno.ParseStats{}
	obs, err := pheno.ParseCsvRecord(record, 1, stats)
	require.NoError(t, err)

	assert.Equal(t, "Obregon CIANO", obs.LocDesc)
	assert.Equal(t, "SERIRAYON84", obs.Genotype)
}

func TestParseCsvRecord_EmptyOccDefaultsToZero(t *testing.T) {
	record := []string{
		"101", "Obregon", "MEXICO", "27.33", "-109.9",
		"1995", "", "SERI", "12.5", "28.9", "6.213",
	}

	stats := &pheno.ParseStats{}
	obs, err := pheno.ParseCsvRecord(record, 1, stats)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), obs.Occ)
}

func TestValidateObservation_Plausibility(t *testing.T) {
	valid := pheno.Observation{
		LocNo: 101, Lat: 27.33, Lon: -109.9, Year: 1995,
		TminGF: 12.5, TmaxGF: 28.9, Yield: 6.2,
	}
	require.NoError(t, pheno.ValidateObservation(&valid))

	cases := []struct {
		name   string
		mutate func(*pheno.Observation)
	}{
		{"zero site id", func(o *pheno.Observation) { o.LocNo = 0 }},
		{"year too old", func(o *pheno.Observation) { o.Year = 1900 }},
		{"tmin above tmax", func(o *pheno.Observation) { o.TminGF = 30 }},
		{"negative yield", func(o *pheno.Observation) { o.Yield = -1 }},
		{"implausible yield", func(o *pheno.Observation) { o.Yield = 50 }},
		{"latitude out of range", func(o *pheno.Observation) { o.Lat = 95 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := valid
			tc.mutate(&obs)
			assert.Error(t, pheno.ValidateObservation(&obs))
		})
	}
}

func TestIsHeaderRow(t *testing.T) {
	assert.True(t, pheno.IsHeaderRow([]string{"loc_no", "loc_desc"}))
	assert.False(t, pheno.IsHeaderRow([]string{"101", "Obregon"}))
	assert.False(t, pheno.IsHeaderRow(nil))
}
