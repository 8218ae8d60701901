// Package pheno provides wheat phenology-weather data processing utilities.
// This file contains CSV parsing and schema validation.
package pheno

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// =============================================================================
// CSV Schema
// =============================================================================

const (
	// Error throttling: don't spam logs with parse errors in tolerant mode
	MaxErrorsToLog = 10

	// CSV column indices (curated ESWYT export format)
	ColLocNo     = 0
	ColLocDesc   = 1
	ColCountry   = 2
	ColLat       = 3
	ColLon       = 4
	ColYear      = 5
	ColOcc       = 6
	ColGenotype  = 7
	ColTminGF    = 8
	ColTmaxGF    = 9
	ColYield     = 10
	ColSolRadGF  = 11
	ColGFillDays = 12

	// Minimum columns for a valid observation record.
	// Solar radiation and grain-fill days are optional trailing columns.
	MinColumns = 11
	MaxColumns = 13
)

// ColumnNames is the documented header schema, in column order.
var ColumnNames = []string{
	"loc_no", "loc_desc", "country", "lat", "lon",
	"year", "occ", "genotype",
	"avg_tmin_grainfill", "avg_tmax_grainfill", "yield_t_ha",
	"avg_srad_grainfill", "days_grainfill",
}

// =============================================================================
// Errors
// =============================================================================

// FormatError reports a malformed field on a specific data row.
// In strict mode a FormatError terminates the run immediately.
type FormatError struct {
	Row   int64  // 1-based row number in the input (including header)
	Field string // Column name of the offending field
	Err   error  // Underlying cause
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %v", e.Row, e.Field, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError reports a header row that does not match the documented schema.
type SchemaError struct {
	Missing []string // Required column names absent from the header
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("header missing required columns: %s", strings.Join(e.Missing, ", "))
}

// =============================================================================
// CSV Parsing with Batch Rotation
// =============================================================================

// ParseOptions controls streaming parse behavior.
type ParseOptions struct {
	// Strict aborts on the first malformed row with a *FormatError.
	// When false, malformed rows are counted in ParseStats and skipped.
	Strict bool
}

// ParseCsvStream parses observation CSV data from an io.Reader.
// Ideal for streaming gzip-compressed files without loading full content
// into memory. Implements batch rotation: calls onBatchFull when the batch
// is full and continues with the returned empty batch.
//
// A leading header row matching the documented schema is validated and
// skipped; a header with missing required columns yields a *SchemaError.
func ParseCsvStream(reader io.Reader, batch *Batch, opts ParseOptions, stats *ParseStats, onBatchFull BatchFullCallback) error {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1 // Variable field count (11-13 columns)

	errorCount := 0
	first := true

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if opts.Strict {
				return fmt.Errorf("CSV read error (row %d): %w", stats.TotalRowsRead+1, err)
			}
			stats.FailedRows++
			errorCount++
			if errorCount <= MaxErrorsToLog {
				log.Printf("CSV read error (row %d): %v", stats.TotalRowsRead, err)
			}
			continue
		}

		stats.TotalRowsRead++

		// Skip empty rows
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			stats.SkippedEmptyRows++
			continue
		}

		// First non-empty row may be a header
		if first {
			first = false
			if IsHeaderRow(record) {
				stats.SkippedHeaderRows++
				if err := ValidateHeader(record); err != nil {
					return err
				}
				continue
			}
		}

		obs, err := ParseCsvRecord(record, stats.TotalRowsRead, stats)
		if err != nil {
			if opts.Strict {
				return err
			}
			stats.FailedRows++
			errorCount++
			if errorCount <= MaxErrorsToLog {
				log.Printf("Parse error: %v", err)
			}
			continue
		}

		stats.SuccessfullyParsed++

		if !batch.Add(obs) {
			// Batch is full - rotate
			if onBatchFull != nil {
				newBatch, err := onBatchFull(batch)
				if err != nil {
					return err
				}
				if newBatch == nil {
					return nil // Callback requested stop
				}
				batch = newBatch
				batch.Add(obs)
			}
		}
	}

	if errorCount > MaxErrorsToLog {
		log.Printf("... and %d more parse errors (suppressed)", errorCount-MaxErrorsToLog)
	}

	return nil
}

// ReadObservations parses a complete observation stream in strict mode.
// Exactly one Observation is returned per valid data row, in input order.
func ReadObservations(reader io.Reader) ([]Observation, *ParseStats, error) {
	var out []Observation
	stats := &ParseStats{}
	batch := NewBatch(8192)

	err := ParseCsvStream(reader, batch, ParseOptions{Strict: true}, stats, func(full *Batch) (*Batch, error) {
		out = append(out, full.Obs[:full.Count]...)
		full.Reset()
		return full, nil
	})
	if err != nil {
		return nil, stats, err
	}
	out = append(out, batch.Obs[:batch.Count]...)
	return out, stats, nil
}

// =============================================================================
// Header Handling
// =============================================================================

// IsHeaderRow reports whether a record looks like a header rather than data.
// The first column of a data row is a numeric site ID.
func IsHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
	return err != nil
}

// ValidateHeader checks a header row against the documented column schema.
// Returns a *SchemaError listing any missing required columns.
func ValidateHeader(record []string) error {
	present := make(map[string]bool, len(record))
	for _, name := range record {
		present[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var missing []string
	for i, name := range ColumnNames {
		if i >= MinColumns {
			break // Optional trailing columns
		}
		if !present[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// =============================================================================
// Record Parsing
// =============================================================================

// ParseCsvRecord parses a single CSV record into an Observation.
// Handles the 11-13 column curated ESWYT export format.
func ParseCsvRecord(record []string, row int64, stats *ParseStats) (Observation, error) {
	if len(record) < MinColumns {
		return Observation{}, &FormatError{Row: row, Field: "record",
			Err: fmt.Errorf("insufficient columns: got %d, need %d", len(record), MinColumns)}
	}

	var obs Observation
	var err error

	// Column 0: Site ID (UInt32)
	obs.LocNo, err = parseUint32(record[ColLocNo])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColLocNo], Err: err}
	}

	// Columns 1-2: Free text, sanitized
	obs.LocDesc = SanitizeText(strings.TrimSpace(record[ColLocDesc]), ColumnNames[ColLocDesc])
	obs.Country = SanitizeText(strings.TrimSpace(record[ColCountry]), ColumnNames[ColCountry])

	// Columns 3-4: Coordinates
	obs.Lat, err = parseFloat64(record[ColLat])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColLat], Err: err}
	}
	obs.Lon, err = parseFloat64(record[ColLon])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColLon], Err: err}
	}

	// Column 5: Season year
	year, err := parseUint16(record[ColYear])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColYear], Err: err}
	}
	obs.Year = year

	// Column 6: Occurrence
	occ, err := parseUint8(record[ColOcc])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColOcc], Err: err}
	}
	obs.Occ = occ

	// Column 7: Genotype name, sanitized
	obs.Genotype = SanitizeText(strings.TrimSpace(record[ColGenotype]), ColumnNames[ColGenotype])

	// Columns 8-10: Required measurements
	obs.TminGF, err = parseFloat64(record[ColTminGF])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColTminGF], Err: err}
	}
	obs.TmaxGF, err = parseFloat64(record[ColTmaxGF])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColTmaxGF], Err: err}
	}
	obs.Yield, err = parseFloat64(record[ColYield])
	if err != nil {
		return Observation{}, &FormatError{Row: row, Field: ColumnNames[ColYield], Err: err}
	}

	// Columns 11-12: Optional measurements (13-column format)
	if len(record) > ColSolRadGF {
		obs.SolRadGF, _ = parseFloat64(record[ColSolRadGF])
	}
	if len(record) > ColGFillDays {
		obs.GrainFillDays, _ = parseFloat64(record[ColGFillDays])
	}

	// Track column count for schema validation
	obs.ColumnCount = uint8(len(record))

	if err := ValidateObservation(&obs); err != nil {
		return Observation{}, &FormatError{Row: row, Field: "record", Err: err}
	}

	return obs, nil
}

// =============================================================================
// Numeric Parsing Helpers
// =============================================================================

var errEmptyField = errors.New("empty field")

func parseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseUint16(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	v, err := strconv.ParseUint(s, 10, 16)
	return uint16(v), err
}

func parseUint8(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), err
}

func parseFloat64(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	return strconv.ParseFloat(s, 64)
}
