// Package pheno provides wheat phenology-weather data processing utilities.
// This file contains Parquet reading and writing. The curated datasets are
// archived as Parquet; CSV is the interchange format for raw station exports.
package pheno

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// ParquetRow matches the Parquet schema of the curated dataset archives.
type ParquetRow struct {
	LocNo         uint32  `parquet:"loc_no"`
	LocDesc       string  `parquet:"loc_desc"`
	Country       string  `parquet:"country"`
	Lat           float64 `parquet:"lat"`
	Lon           float64 `parquet:"lon"`
	Year          uint16  `parquet:"year"`
	Occ           uint8   `parquet:"occ"`
	Genotype      string  `parquet:"genotype"`
	TminGF        float64 `parquet:"avg_tmin_grainfill"`
	TmaxGF        float64 `parquet:"avg_tmax_grainfill"`
	Yield         float64 `parquet:"yield_t_ha"`
	SolRadGF      float64 `parquet:"avg_srad_grainfill"`
	GrainFillDays float64 `parquet:"days_grainfill"`
}

// ToObservation converts a Parquet row to the internal Observation form.
func (r *ParquetRow) ToObservation() Observation {
	return Observation{
		LocNo:         r.LocNo,
		LocDesc:       SanitizeTextQuiet(r.LocDesc),
		Country:       SanitizeTextQuiet(r.Country),
		Lat:           r.Lat,
		Lon:           r.Lon,
		Year:          r.Year,
		Occ:           r.Occ,
		Genotype:      SanitizeTextQuiet(r.Genotype),
		TminGF:        r.TminGF,
		TmaxGF:        r.TmaxGF,
		Yield:         r.Yield,
		SolRadGF:      r.SolRadGF,
		GrainFillDays: r.GrainFillDays,
		ColumnCount:   MaxColumns,
	}
}

// FromObservation converts an Observation to its Parquet row form.
func FromObservation(obs *Observation) ParquetRow {
	return ParquetRow{
		LocNo:         obs.LocNo,
		LocDesc:       obs.LocDesc,
		Country:       obs.Country,
		Lat:           obs.Lat,
		Lon:           obs.Lon,
		Year:          obs.Year,
		Occ:           obs.Occ,
		Genotype:      obs.Genotype,
		TminGF:        obs.TminGF,
		TmaxGF:        obs.TmaxGF,
		Yield:         obs.Yield,
		SolRadGF:      obs.SolRadGF,
		GrainFillDays: obs.GrainFillDays,
	}
}

// ReadParquetFile reads a complete Parquet observation file.
// Rows failing plausibility validation abort the read, matching strict
// CSV parsing behavior.
func ReadParquetFile(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parquet open: %w", err)
	}

	reader := parquet.NewGenericReader[ParquetRow](pf)
	defer reader.Close()

	var out []Observation
	rows := make([]ParquetRow, 1000)
	rowNum := int64(0)

	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			rowNum++
			obs := rows[i].ToObservation()
			if verr := ValidateObservation(&obs); verr != nil {
				return nil, &FormatError{Row: rowNum, Field: "record", Err: verr}
			}
			out = append(out, obs)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parquet read: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return out, nil
}

// WriteParquetFile writes observations to a Parquet file.
func WriteParquetFile(path string, obs []Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := parquet.NewGenericWriter[ParquetRow](f)

	rows := make([]ParquetRow, len(obs))
	for i := range obs {
		rows[i] = FromObservation(&obs[i])
	}

	if _, err := writer.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("parquet write: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("parquet close: %w", err)
	}
	return f.Close()
}
