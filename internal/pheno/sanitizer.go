package pheno

import (
	"fmt"
	"os"
	"sync/atomic"
)

// sanitizer.go - Free-text field sanitization for observation ingestion
//
// Site descriptions and genotype names in the historical trial archives come
// from decades of hand-entered station records. Quotes and backslashes in
// those fields break CSV round-trips and SQL inserts downstream.
//
// Requirements:
//   - Strip: double quotes ("), single quotes ('), backslashes (\)
//   - Preserve: everything else, including accents, hyphens, slashes and
//     parentheses common in genotype pedigrees (e.g. SERI/RAYON, KAUZ*2)
//   - Thread-safe: stateless, atomic counters only
//   - Audit: log original -> sanitized changes to stderr

// Global counters for statistics (atomic for thread-safety)
var (
	sanitizedCount   atomic.Int64 // Total fields processed
	modifiedCount    atomic.Int64 // Fields that required changes
	auditLogDisabled atomic.Bool  // Disable audit logging for performance
)

// Characters to strip from free-text fields
const (
	charDoubleQuote = '"'
	charSingleQuote = '\''
	charBackslash   = '\\'
)

// SanitizeText removes dangerous characters from a free-text field.
//
// Fast path: no allocation if the field is already clean.
// Slow path: single allocation for the stripped copy.
//
// Parameters:
//   text - Original field value
//   fieldName - Field identifier for audit logging ("loc_desc", "genotype", ...)
func SanitizeText(text, fieldName string) string {
	sanitizedCount.Add(1)

	if !needsSanitization(text) {
		return text
	}

	original := text
	sanitized := sanitizeBytes(text)

	if sanitized != original {
		modifiedCount.Add(1)
		if !auditLogDisabled.Load() {
			logSanitization(fieldName, original, sanitized)
		}
	}

	return sanitized
}

// SanitizeTextQuiet sanitizes without audit logging or counters.
// Used where the caller does its own accounting.
func SanitizeTextQuiet(text string) string {
	if !needsSanitization(text) {
		return text
	}
	return sanitizeBytes(text)
}

// needsSanitization performs a fast check for characters that need stripping.
func needsSanitization(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == charDoubleQuote || c == charSingleQuote || c == charBackslash {
			return true
		}
	}
	return false
}

// sanitizeBytes creates a new string with dangerous characters removed.
func sanitizeBytes(s string) string {
	buf := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == charDoubleQuote || c == charSingleQuote || c == charBackslash {
			continue
		}
		buf = append(buf, c)
	}

	return string(buf)
}

// logSanitization writes the audit trail to stderr.
// Format: [SANITIZE] <field>: "original" -> "sanitized"
func logSanitization(fieldName, original, sanitized string) {
	fmt.Fprintf(os.Stderr, "[SANITIZE] %s: %q -> %q\n", fieldName, original, sanitized)
}

// DisableAuditLog disables audit logging globally.
func DisableAuditLog() {
	auditLogDisabled.Store(true)
}

// EnableAuditLog enables audit logging globally (default).
func EnableAuditLog() {
	auditLogDisabled.Store(false)
}

// GetSanitizerStats returns sanitization statistics.
// Returns: (total processed, total modified)
func GetSanitizerStats() (total, modified int64) {
	return sanitizedCount.Load(), modifiedCount.Load()
}

// ResetSanitizerStats resets statistics counters (for testing).
func ResetSanitizerStats() {
	sanitizedCount.Store(0)
	modifiedCount.Store(0)
}

// =============================================================================
// Plausibility Validation
// =============================================================================

// Plausibility bounds for observation fields. Values outside these ranges
// are corrupt exports, not climate extremes: the trial network spans
// 1979-2021 and no grain-fill period averages below -10 or above 45 degC.
const (
	MinPlausibleYear = 1950
	MaxPlausibleYear = 2100

	MinPlausibleTempC = -10.0
	MaxPlausibleTempC = 45.0

	MaxPlausibleYieldTHa = 20.0
)

// ValidateObservation performs plausibility checks on a parsed observation.
// Returns nil if the record appears valid.
func ValidateObservation(obs *Observation) error {
	if obs.LocNo == 0 {
		return fmt.Errorf("site id must be positive")
	}
	if obs.Year < MinPlausibleYear || obs.Year > MaxPlausibleYear {
		return fmt.Errorf("year %d outside plausible range [%d, %d]", obs.Year, MinPlausibleYear, MaxPlausibleYear)
	}
	if obs.TminGF < MinPlausibleTempC || obs.TminGF > MaxPlausibleTempC {
		return fmt.Errorf("tmin %.2f outside plausible range [%.0f, %.0f]", obs.TminGF, MinPlausibleTempC, MaxPlausibleTempC)
	}
	if obs.TmaxGF < MinPlausibleTempC || obs.TmaxGF > MaxPlausibleTempC {
		return fmt.Errorf("tmax %.2f outside plausible range [%.0f, %.0f]", obs.TmaxGF, MinPlausibleTempC, MaxPlausibleTempC)
	}
	if obs.TminGF > obs.TmaxGF {
		return fmt.Errorf("tmin %.2f exceeds tmax %.2f", obs.TminGF, obs.TmaxGF)
	}
	if obs.Yield <= 0 || obs.Yield > MaxPlausibleYieldTHa {
		return fmt.Errorf("yield %.3f outside plausible range (0, %.0f]", obs.Yield, MaxPlausibleYieldTHa)
	}
	if obs.Lat < -90 || obs.Lat > 90 || obs.Lon < -180 || obs.Lon > 180 {
		return fmt.Errorf("coordinates (%.4f, %.4f) out of range", obs.Lat, obs.Lon)
	}
	return nil
}

// SanitizeBatch sanitizes all free-text fields in a Batch in-place.
// This is the integration point for the ingestion pipeline.
// Safe to call from multiple goroutines on different batches.
func SanitizeBatch(batch *Batch) {
	for i := 0; i < batch.Count; i++ {
		obs := &batch.Obs[i]
		obs.LocDesc = SanitizeText(obs.LocDesc, "loc_desc")
		obs.Country = SanitizeText(obs.Country, "country")
		obs.Genotype = SanitizeText(obs.Genotype, "genotype")
	}
}
