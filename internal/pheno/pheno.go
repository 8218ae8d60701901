// Package pheno provides wheat phenology-weather data processing utilities.
// This package contains parsers, validators, and storage conversion helpers
// for the curated IWIN/ESWYT observation dataset: one record per
// site/year/occurrence/genotype with grain-filling weather averages and
// observed grain yield.
package pheno

// =============================================================================
// Schema Constants
// =============================================================================

// SchemaVersion is the current observation schema version.
const SchemaVersion = 1

// =============================================================================
// Observation - one site/year/occurrence/genotype record
// =============================================================================

// Observation represents a single curated phenology-weather record.
// Fields are immutable once parsed; downstream statistics never mutate them.
type Observation struct {
	LocNo    uint32  `ch:"loc_no"`   // Numeric site identifier
	LocDesc  string  `ch:"loc_desc"` // Site description (sanitized free text)
	Country  string  `ch:"country"`  // Country name
	Lat      float64 `ch:"lat"`      // Site latitude (WGS84)
	Lon      float64 `ch:"lon"`      // Site longitude (WGS84)
	Year     uint16  `ch:"year"`     // Harvest season year
	Occ      uint8   `ch:"occ"`      // Occurrence (sowing date repetition within a season)
	Genotype string  `ch:"genotype"` // Genotype/entry name (sanitized free text)

	TminGF        float64 `ch:"tmin_gf"`    // Avg minimum (nighttime) temperature, grain fill (degC)
	TmaxGF        float64 `ch:"tmax_gf"`    // Avg maximum temperature, grain fill (degC)
	Yield         float64 `ch:"yield_t_ha"` // Observed grain yield (t/ha)
	SolRadGF      float64 `ch:"srad_gf"`    // Avg solar radiation, grain fill (MJ/m2/day), optional
	GrainFillDays float64 `ch:"gfill_days"` // Observed grain-fill duration (days), optional

	ColumnCount uint8 `ch:"column_count"` // CSV column count for schema validation
}

// =============================================================================
// Batch Types
// =============================================================================

// Batch represents a batch of observations for streaming processing.
type Batch struct {
	Obs      []Observation // Slice of observations (dynamically sized)
	Count    int           // Number of valid observations in batch
	Capacity int           // Maximum capacity
}

// NewBatch creates a new batch with specified capacity.
func NewBatch(capacity int) *Batch {
	return &Batch{
		Obs:      make([]Observation, capacity),
		Count:    0,
		Capacity: capacity,
	}
}

// Reset resets the batch for reuse without reallocating.
func (b *Batch) Reset() {
	b.Count = 0
}

// IsFull returns true if the batch is at capacity.
func (b *Batch) IsFull() bool {
	return b.Count >= b.Capacity
}

// Add adds an observation to the batch. Returns false if batch is full.
func (b *Batch) Add(obs Observation) bool {
	if b.Count >= b.Capacity {
		return false
	}
	b.Obs[b.Count] = obs
	b.Count++
	return true
}

// =============================================================================
// Parse Statistics
// =============================================================================

// ParseStats holds statistics for a parsing operation.
type ParseStats struct {
	TotalRowsRead      int64 // Total rows read from CSV
	SuccessfullyParsed int64 // Rows successfully parsed
	FailedRows         int64 // Rows that failed to parse (tolerant mode only)
	SkippedEmptyRows   int64 // Empty rows skipped
	SkippedHeaderRows  int64 // Header rows skipped
}

// =============================================================================
// Batch Callback for Streaming Parse
// =============================================================================

// BatchFullCallback is called when a batch is full during parsing.
// It should process/flush the full batch and return a new empty batch.
// Return nil to stop parsing.
type BatchFullCallback func(fullBatch *Batch) (*Batch, error)
