package pheno

import "math"

// bins.go - Thermal-regime bin normalization for grain-fill minimum temperature
//
// The yield-loss summaries group sites by the average nighttime temperature
// they experience during grain fill. Bins are fixed so that figures and
// tables are comparable across dataset revisions.
//
// Implementation: stateless binary search over a sorted bin table, with a
// broad-class fallback for out-of-table values. Fully reentrant.

// Thermal bin IDs
const (
	BinUnknown int32 = 0 // NaN or otherwise unclassifiable
	BinCold    int32 = 1 // Below the trial network's coolest regime (< 5 degC)
	BinHot     int32 = 2 // Above the warmest regime (>= 26 degC)

	// Trial-network regimes (3 degC steps across the observed Tmin range)
	Bin5to8   int32 = 100
	Bin8to11  int32 = 101
	Bin11to14 int32 = 102
	Bin14to17 int32 = 103
	Bin17to20 int32 = 104
	Bin20to23 int32 = 105
	Bin23to26 int32 = 106
)

// BinInfo represents complete bin information.
type BinInfo struct {
	ID       int32   // Unique bin identifier
	Label    string  // Human-readable label for figure axes
	MinTminC float64 // Lower edge (inclusive), degC
	MaxTminC float64 // Upper edge (exclusive), degC
}

// Trial-network bins, sorted by lower edge. Edges are half-open [min, max)
// so every temperature maps to exactly one bin.
var tminBins = []BinInfo{
	{ID: Bin5to8, Label: "5-8", MinTminC: 5, MaxTminC: 8},
	{ID: Bin8to11, Label: "8-11", MinTminC: 8, MaxTminC: 11},
	{ID: Bin11to14, Label: "11-14", MinTminC: 11, MaxTminC: 14},
	{ID: Bin14to17, Label: "14-17", MinTminC: 14, MaxTminC: 17},
	{ID: Bin17to20, Label: "17-20", MinTminC: 17, MaxTminC: 20},
	{ID: Bin20to23, Label: "20-23", MinTminC: 20, MaxTminC: 23},
	{ID: Bin23to26, Label: "23-26", MinTminC: 23, MaxTminC: 26},
}

// GetTminBin normalizes a grain-fill minimum temperature to a thermal bin.
// Returns bin ID and label.
//
// Lookup strategy:
//  1. Trial-network bins (hot path) - binary search
//  2. Broad cold/hot classes for out-of-table values
func GetTminBin(tmin float64) (bin int32, label string) {
	if math.IsNaN(tmin) {
		return BinUnknown, "unknown"
	}

	if bin, label, found := searchBins(tmin, tminBins); found {
		return bin, label
	}

	if tmin < tminBins[0].MinTminC {
		return BinCold, "<5"
	}
	return BinHot, ">=26"
}

// searchBins performs binary search on a sorted bin table.
// Returns bin, label, and found flag.
func searchBins(tmin float64, bins []BinInfo) (int32, string, bool) {
	left, right := 0, len(bins)-1

	for left <= right {
		mid := (left + right) / 2
		bin := &bins[mid]

		if tmin >= bin.MinTminC && tmin < bin.MaxTminC {
			return bin.ID, bin.Label, true
		}

		if tmin < bin.MinTminC {
			right = mid - 1
		} else {
			left = mid + 1
		}
	}

	return 0, "", false
}

// GetBinByID returns bin information by bin ID.
func GetBinByID(id int32) (bin BinInfo, ok bool) {
	for _, b := range tminBins {
		if b.ID == id {
			return b, true
		}
	}

	switch id {
	case BinCold:
		return BinInfo{ID: BinCold, Label: "<5", MinTminC: math.Inf(-1), MaxTminC: tminBins[0].MinTminC}, true
	case BinHot:
		last := tminBins[len(tminBins)-1]
		return BinInfo{ID: BinHot, Label: ">=26", MinTminC: last.MaxTminC, MaxTminC: math.Inf(1)}, true
	default:
		return BinInfo{}, false
	}
}

// AllTminBins returns the trial-network bin table.
// Returns a copy, fully thread-safe.
func AllTminBins() []BinInfo {
	bins := make([]BinInfo, len(tminBins))
	copy(bins, tminBins)
	return bins
}
