package yield

import (
	"sort"
	"strings"

	"github.com/egiron/wheat-night-lab/internal/pheno"

	"gonum.org/v1/gonum/stat"
)

// yield.go - Per-site nighttime warming trends and yield-loss estimation
//
// Method: for each trial site, regress the grain-fill average minimum
// temperature against season year. The slope, extrapolated over the
// observation span, gives the site's total nighttime warming; the study's
// yield response coefficient converts that warming to a yield loss, expressed
// both in t/ha and as a percentage of the site's mean observed yield.

// =============================================================================
// Study Constants
// =============================================================================

const (
	// TrendSpanYears is the observation span of the weather record (1979-2021)
	// over which per-site warming is extrapolated.
	TrendSpanYears = 42

	// YieldLossPerDegC is the fitted yield response to nighttime warming:
	// each 1 degC increase in grain-fill Tmin costs 0.494 t/ha.
	YieldLossPerDegC = 0.494
)

// Interaction model coefficients: grain yield as a function of grain-fill
// Tmin and solar radiation, with a centered Tmin x radiation interaction.
const (
	predIntercept   = 7.6236613
	predTminCoef    = -0.499618
	predSradCoef    = 0.2432738
	predInteraction = -0.008957
)

// PredictYield evaluates the Tmin x solar-radiation interaction model.
// meanTmin and meanSrad are the dataset means used to center the
// interaction term.
func PredictYield(tmin, srad, meanTmin, meanSrad float64) float64 {
	return predIntercept + predTminCoef*tmin + predSradCoef*srad +
		predInteraction*(srad-meanSrad)*(tmin-meanTmin)
}

// YieldIsoline returns the interaction model restated as a line in Tmin at a
// fixed solar radiation level, for drawing radiation isolines over the
// yield-vs-Tmin scatter.
func YieldIsoline(srad, meanTmin, meanSrad float64) (slope, intercept float64) {
	slope = predTminCoef + predInteraction*(srad-meanSrad)
	intercept = predIntercept + predSradCoef*srad - predInteraction*(srad-meanSrad)*meanTmin
	return slope, intercept
}

// =============================================================================
// Site Trends
// =============================================================================

// SiteTrend holds the warming trend and derived yield loss for one site.
type SiteTrend struct {
	LocNo   uint32
	LocDesc string
	Country string
	Lat     float64
	Lon     float64

	Obs   int // Observations contributing to the fit
	Years int // Distinct season years at the site

	Slope  float64 // Tmin trend, degC per year
	PValue float64 // Two-sided p-value of the slope (NaN below 3 points)

	TminChange  float64 // Slope x TrendSpanYears, degC
	MeanTmin    float64 // Site mean grain-fill Tmin, degC
	MeanYield   float64 // Site mean observed yield, t/ha (loss baseline)
	LossTons    float64 // TminChange x YieldLossPerDegC, t/ha
	LossPercent float64 // LossTons / MeanYield x 100
}

// EstimateSiteTrends computes per-site warming trends and yield losses.
// Sites whose temperature record cannot support a fit (a single season year)
// are skipped, matching the original analysis. The result is sorted by site
// ID, so it is invariant under input reordering.
func EstimateSiteTrends(obs []pheno.Observation) []SiteTrend {
	bySite := make(map[uint32][]pheno.Observation)
	for _, o := range obs {
		bySite[o.LocNo] = append(bySite[o.LocNo], o)
	}

	locs := make([]uint32, 0, len(bySite))
	for loc := range bySite {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })

	trends := make([]SiteTrend, 0, len(locs))
	for _, loc := range locs {
		site := bySite[loc]

		// Deterministic fit input regardless of arrival order. Multiple
		// genotypes share a (year, occ), so the comparator must order the
		// full record key, with measurement tie-breaks for dirty data.
		sort.Slice(site, func(i, j int) bool {
			a, b := &site[i], &site[j]
			if a.Year != b.Year {
				return a.Year < b.Year
			}
			if a.Occ != b.Occ {
				return a.Occ < b.Occ
			}
			if a.Genotype != b.Genotype {
				return a.Genotype < b.Genotype
			}
			if a.TminGF != b.TminGF {
				return a.TminGF < b.TminGF
			}
			return a.Yield < b.Yield
		})

		xs := make([]float64, len(site))
		ys := make([]float64, len(site))
		yields := make([]float64, len(site))
		years := make(map[uint16]struct{}, len(site))
		for i, o := range site {
			xs[i] = float64(o.Year)
			ys[i] = o.TminGF
			yields[i] = o.Yield
			years[o.Year] = struct{}{}
		}

		fit, err := LinearFit(xs, ys)
		if err != nil {
			continue
		}

		t := SiteTrend{
			LocNo:      loc,
			LocDesc:    site[0].LocDesc,
			Country:    site[0].Country,
			Lat:        site[0].Lat,
			Lon:        site[0].Lon,
			Obs:        len(site),
			Years:      len(years),
			Slope:      fit.Slope,
			PValue:     fit.PSlope,
			TminChange: TrendSpanYears * fit.Slope,
			MeanTmin:   stat.Mean(ys, nil),
			MeanYield:  stat.Mean(yields, nil),
		}
		t.LossTons = t.TminChange * YieldLossPerDegC
		t.LossPercent = t.LossTons / t.MeanYield * 100

		trends = append(trends, t)
	}

	return trends
}

// MeanLossPercent returns the mean yield-loss percentage across site trends.
func MeanLossPercent(trends []SiteTrend) float64 {
	if len(trends) == 0 {
		return 0
	}
	vals := make([]float64, len(trends))
	for i, t := range trends {
		vals[i] = t.LossPercent
	}
	return stat.Mean(vals, nil)
}

// =============================================================================
// Country Summary (supplementary table)
// =============================================================================

// CountryStat holds per-country means of the site-trend quantities.
type CountryStat struct {
	Country     string
	Sites       int
	TminChange  float64 // Mean change in grain-fill Tmin, degC
	MeanYield   float64 // Mean yield, t/ha
	LossTons    float64 // Mean yield loss, t/ha
	LossPercent float64 // Mean yield loss, %
}

// SummarizeByCountry aggregates site trends into per-country means.
// Country names are title-cased; output is sorted by country.
func SummarizeByCountry(trends []SiteTrend) []CountryStat {
	byCountry := make(map[string][]SiteTrend)
	for _, t := range trends {
		byCountry[titleCase(t.Country)] = append(byCountry[titleCase(t.Country)], t)
	}

	names := make([]string, 0, len(byCountry))
	for name := range byCountry {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CountryStat, 0, len(names))
	for _, name := range names {
		sites := byCountry[name]
		cs := CountryStat{Country: name, Sites: len(sites)}
		for _, t := range sites {
			cs.TminChange += t.TminChange
			cs.MeanYield += t.MeanYield
			cs.LossTons += t.LossTons
			cs.LossPercent += t.LossPercent
		}
		n := float64(len(sites))
		cs.TminChange /= n
		cs.MeanYield /= n
		cs.LossTons /= n
		cs.LossPercent /= n
		out = append(out, cs)
	}

	return out
}

// titleCase capitalizes the first letter of each space-separated word.
// Country names in the archives are uppercase ("MEXICO", "INDIA").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
