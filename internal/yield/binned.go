package yield

import (
	"math"
	"sort"

	"github.com/egiron/wheat-night-lab/internal/pheno"
)

// binned.go - Thermal-bin aggregation and histogram support
//
// Site trends are grouped by the thermal-regime bin of their mean grain-fill
// Tmin (internal/pheno bin table) so the figures can show how yield loss
// scales with how warm a site's nights already are.

// BinStat holds the mean yield loss for one thermal bin.
type BinStat struct {
	BinID           int32
	Label           string
	Sites           int
	MeanTmin        float64 // Mean of site mean Tmin within the bin, degC
	MeanLossPercent float64 // Mean yield-loss percentage within the bin
}

// BinnedLoss groups site trends by thermal bin and computes the mean
// yield-loss percentage per bin. Output is sorted by bin lower edge, so
// the cold class leads and the hot class trails the regime bins, and the
// result is invariant under input reordering. Empty bins are omitted.
func BinnedLoss(trends []SiteTrend) []BinStat {
	byBin := make(map[int32]*BinStat)
	for _, t := range trends {
		id, label := pheno.GetTminBin(t.MeanTmin)
		bs, ok := byBin[id]
		if !ok {
			bs = &BinStat{BinID: id, Label: label}
			byBin[id] = bs
		}
		bs.Sites++
		bs.MeanTmin += t.MeanTmin
		bs.MeanLossPercent += t.LossPercent
	}

	out := make([]BinStat, 0, len(byBin))
	for _, bs := range byBin {
		n := float64(bs.Sites)
		bs.MeanTmin /= n
		bs.MeanLossPercent /= n
		out = append(out, *bs)
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := binLowerEdge(out[i].BinID), binLowerEdge(out[j].BinID)
		if ei != ej {
			return ei < ej
		}
		return out[i].BinID < out[j].BinID
	})

	return out
}

// binLowerEdge orders bins on the temperature axis.
// Unclassifiable bins sort last.
func binLowerEdge(id int32) float64 {
	if info, ok := pheno.GetBinByID(id); ok {
		return info.MinTminC
	}
	return math.Inf(1)
}

// Histogram computes fixed-width bin counts over the value range, with the
// rightmost edge inclusive. Returns counts and the bins+1 edges.
func Histogram(values []float64, bins int) (counts []int, edges []float64) {
	if len(values) == 0 || bins < 1 {
		return nil, nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	edges = make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts = make([]int, bins)
	if width == 0 {
		// All values identical: everything lands in the first bin
		counts[0] = len(values)
		return counts, edges
	}

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	return counts, edges
}
