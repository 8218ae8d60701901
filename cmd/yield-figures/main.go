// yield-figures - Nighttime warming analysis and publication figures
//
// Runs the full analysis pipeline over a curated observation dataset:
// per-site grain-fill Tmin trends, yield-loss estimation, thermal-bin and
// country summaries, interaction-model evaluation, and the publication
// figure set (PNG) plus summary tables (CSV).
//
// Data sources: CSV export, Parquet archive, or the ClickHouse warehouse.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/yield-figures ./cmd/yield-figures

package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/pgzip"
	"gonum.org/v1/gonum/stat"

	"github.com/egiron/wheat-night-lab/internal/common"
	"github.com/egiron/wheat-night-lab/internal/figure"
	"github.com/egiron/wheat-night-lab/internal/pheno"
	"github.com/egiron/wheat-night-lab/internal/warehouse"
	"github.com/egiron/wheat-night-lab/internal/yield"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// HistogramBins is the fixed bin count of the loss-percentage histogram.
const HistogramBins = 20

// Command-line flags
var (
	source  = flag.String("source", "csv", "Data source: csv, parquet or clickhouse")
	input   = flag.String("input", "", "Input file for csv/parquet sources")
	chHost  = flag.String("ch-host", "127.0.0.1:9000", "ClickHouse address")
	chDB    = flag.String("ch-db", "pheno", "ClickHouse database")
	chTable = flag.String("ch-table", warehouse.DefaultTable, "ClickHouse table")
	chUser  = flag.String("ch-user", "default", "ClickHouse user")
	chPass  = flag.String("ch-password", "", "ClickHouse password")
	outDir  = flag.String("out-dir", "", "Output directory for figures and tables (default: config figures dir)")
	dpi     = flag.Int("dpi", 0, "Figure resolution (default: config DPI)")
)

// =============================================================================
// Data Loading
// =============================================================================

// loadCsv reads one CSV export in strict mode, decompressing .gz inputs.
func loadCsv(path string) ([]pheno.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	} else {
		reader = bufio.NewReaderSize(f, 64*1024)
	}

	obs, _, err := pheno.ReadObservations(reader)
	return obs, err
}

// loadObservations dispatches on the configured data source.
func loadObservations(ctx context.Context) ([]pheno.Observation, error) {
	switch *source {
	case "csv":
		if *input == "" {
			return nil, fmt.Errorf("csv source requires -input")
		}
		return loadCsv(*input)

	case "parquet":
		if *input == "" {
			return nil, fmt.Errorf("parquet source requires -input")
		}
		return pheno.ReadParquetFile(*input)

	case "clickhouse":
		conn, err := warehouse.OpenQueryConn(warehouse.ConnOptions{
			Addr:     *chHost,
			Database: *chDB,
			Username: *chUser,
			Password: *chPass,
		})
		if err != nil {
			return nil, fmt.Errorf("clickhouse connect: %w", err)
		}
		defer conn.Close()
		return warehouse.SelectObservations(ctx, conn, *chTable)

	default:
		return nil, fmt.Errorf("unknown source %q (want csv, parquet or clickhouse)", *source)
	}
}

// =============================================================================
// Summary Tables
// =============================================================================

func writeSiteTrendsCsv(path string, trends []yield.SiteTrend) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	header := []string{
		"loc_no", "loc_desc", "country", "lat", "lon",
		"obs", "years", "slope_degc_per_year", "p_value",
		"tmin_change_degc", "mean_tmin_degc", "mean_yield_t_ha",
		"loss_t_ha", "loss_percent",
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}

	for _, t := range trends {
		row := []string{
			strconv.FormatUint(uint64(t.LocNo), 10),
			t.LocDesc,
			t.Country,
			strconv.FormatFloat(t.Lat, 'f', 4, 64),
			strconv.FormatFloat(t.Lon, 'f', 4, 64),
			strconv.Itoa(t.Obs),
			strconv.Itoa(t.Years),
			strconv.FormatFloat(t.Slope, 'f', 6, 64),
			formatPValue(t.PValue),
			strconv.FormatFloat(t.TminChange, 'f', 3, 64),
			strconv.FormatFloat(t.MeanTmin, 'f', 2, 64),
			strconv.FormatFloat(t.MeanYield, 'f', 3, 64),
			strconv.FormatFloat(t.LossTons, 'f', 3, 64),
			strconv.FormatFloat(t.LossPercent, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCountrySummaryCsv(path string, countries []yield.CountryStat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	header := []string{"country", "sites", "tmin_change_degc", "mean_yield_t_ha", "loss_t_ha", "loss_percent"}
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}

	for _, c := range countries {
		row := []string{
			c.Country,
			strconv.Itoa(c.Sites),
			strconv.FormatFloat(c.TminChange, 'f', 3, 64),
			strconv.FormatFloat(c.MeanYield, 'f', 3, 64),
			strconv.FormatFloat(c.LossTons, 'f', 3, 64),
			strconv.FormatFloat(c.LossPercent, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatPValue renders a p-value, leaving unfittable sites blank.
func formatPValue(p float64) string {
	if math.IsNaN(p) {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}

// =============================================================================
// Figures
// =============================================================================

// renderFigures writes the publication figure set to outDir.
func renderFigures(outDir string, obs []pheno.Observation, trends []yield.SiteTrend, bins []yield.BinStat, opts figure.Options) error {
	// Figure 1: observed yield response to grain-fill Tmin
	tmins := make([]float64, len(obs))
	yields := make([]float64, len(obs))
	for i, o := range obs {
		tmins[i] = o.TminGF
		yields[i] = o.Yield
	}

	fit, err := yield.LinearFit(tmins, yields)
	if err != nil {
		return fmt.Errorf("yield response fit: %w", err)
	}
	log.Printf("Yield response: %s (p=%.2g, n=%d)", fit.Equation(), fit.PSlope, fit.N)

	lines := []figure.FitLine{{Label: fit.Equation(), Slope: fit.Slope, Intercept: fit.Intercept}}
	lines = append(lines, radiationIsolines(obs)...)

	err = figure.ScatterWithFit(
		filepath.Join(outDir, "Fig_yield_vs_tmin.png"),
		tmins, yields, lines,
		"Avg grain-fill Tmin (degC)", "Grain yield (t/ha)", opts,
	)
	if err != nil {
		return fmt.Errorf("yield response figure: %w", err)
	}

	// Figure 2: distribution of estimated yield losses across sites
	losses := make([]float64, len(trends))
	for i, t := range trends {
		losses[i] = t.LossPercent
	}
	err = figure.Histogram(
		filepath.Join(outDir, "Fig_loss_percent_hist.png"),
		losses, HistogramBins, "Estimated yield loss (%)", opts,
	)
	if err != nil {
		return fmt.Errorf("loss histogram: %w", err)
	}

	// Figure 3: mean loss by thermal regime
	labels := make([]string, len(bins))
	values := make([]float64, len(bins))
	for i, b := range bins {
		labels[i] = b.Label
		values[i] = b.MeanLossPercent
	}
	err = figure.BinnedBars(
		filepath.Join(outDir, "Fig_loss_by_tmin_bin.png"),
		labels, values, "Mean yield loss (%)", opts,
	)
	if err != nil {
		return fmt.Errorf("binned loss figure: %w", err)
	}

	return nil
}

// radiationIsolines builds interaction-model isolines at the solar radiation
// quartiles. Empty when the dataset carries no radiation column.
func radiationIsolines(obs []pheno.Observation) []figure.FitLine {
	var tmins, srads []float64
	for _, o := range obs {
		if o.SolRadGF <= 0 {
			continue
		}
		tmins = append(tmins, o.TminGF)
		srads = append(srads, o.SolRadGF)
	}
	if len(srads) < 2 {
		return nil
	}

	meanTmin := stat.Mean(tmins, nil)
	meanSrad := stat.Mean(srads, nil)

	sorted := append([]float64(nil), srads...)
	sort.Float64s(sorted)

	var lines []figure.FitLine
	for _, q := range []float64{0.25, 0.5, 0.75} {
		srad := stat.Quantile(q, stat.Empirical, sorted, nil)
		slope, intercept := yield.YieldIsoline(srad, meanTmin, meanSrad)
		lines = append(lines, figure.FitLine{
			Label:     fmt.Sprintf("%.1f MJ/m2/day", srad),
			Slope:     slope,
			Intercept: intercept,
			Color:     color.Gray{Y: 0x70},
		})
	}
	return lines
}

// evaluateModel scores the interaction model on observations that carry
// solar radiation, and renders the observed-vs-predicted figure.
func evaluateModel(outDir string, obs []pheno.Observation, opts figure.Options) error {
	var tmins, srads, observed []float64
	for _, o := range obs {
		if o.SolRadGF <= 0 {
			continue // 11-column exports carry no radiation
		}
		tmins = append(tmins, o.TminGF)
		srads = append(srads, o.SolRadGF)
		observed = append(observed, o.Yield)
	}

	if len(observed) < 2 {
		log.Println("Model evaluation skipped: no solar radiation data")
		return nil
	}

	meanTmin := stat.Mean(tmins, nil)
	meanSrad := stat.Mean(srads, nil)

	predicted := make([]float64, len(observed))
	for i := range observed {
		predicted[i] = yield.PredictYield(tmins[i], srads[i], meanTmin, meanSrad)
	}

	scores, err := yield.Evaluate(observed, predicted)
	if err != nil {
		return fmt.Errorf("model evaluation: %w", err)
	}

	log.Printf("Model scores (n=%d): R2=%.3f RMSE=%.3f d=%.3f EF=%.3f CCC=%.3f Acc=%.1f%%",
		len(observed), scores.R2, scores.RMSE, scores.DIndex, scores.EF, scores.CCC, scores.Accuracy)

	fit, err := yield.LinearFit(observed, predicted)
	if err != nil {
		return fmt.Errorf("observed-predicted fit: %w", err)
	}

	return figure.ScatterWithFit(
		filepath.Join(outDir, "Fig_observed_vs_predicted.png"),
		observed, predicted,
		[]figure.FitLine{
			{Label: "1:1", Slope: 1, Intercept: 0, Color: color.Gray{Y: 0x90}},
			{Label: fit.Equation(), Slope: fit.Slope, Intercept: fit.Intercept},
		},
		"Observed yield (t/ha)", "Predicted yield (t/ha)", opts,
	)
}

// =============================================================================
// Main Pipeline
// =============================================================================

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "yield-figures v%s - Warming Trend Analysis\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Estimates per-site nighttime warming trends and wheat yield\n")
		fmt.Fprintf(os.Stderr, "losses, then renders the publication figures and tables.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg := common.DefaultConfig()
	if *outDir == "" {
		*outDir = cfg.FiguresDir
	}
	opts := figure.DefaultOptions()
	if *dpi > 0 {
		opts.DPI = *dpi
	} else {
		opts.DPI = cfg.FigureDPI
	}

	log.Println("=========================================================")
	log.Printf("Yield Figures v%s", Version)
	log.Println("=========================================================")
	log.Printf("Source: %s", *source)
	log.Printf("Output: %s (%d DPI)", *outDir, opts.DPI)

	ctx := context.Background()
	startTime := time.Now()

	obs, err := loadObservations(ctx)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	if len(obs) == 0 {
		log.Fatal("No observations loaded")
	}
	log.Printf("Loaded %d observations", len(obs))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Cannot create output directory: %v", err)
	}

	// Statistics
	trends := yield.EstimateSiteTrends(obs)
	if len(trends) == 0 {
		log.Fatal("No site has enough seasons for a trend fit")
	}
	bins := yield.BinnedLoss(trends)
	countries := yield.SummarizeByCountry(trends)
	meanLoss := yield.MeanLossPercent(trends)

	log.Printf("Fitted %d site trends across %d countries", len(trends), len(countries))

	// Tables
	trendsPath := filepath.Join(*outDir, "site_trends.csv")
	if err := writeSiteTrendsCsv(trendsPath, trends); err != nil {
		log.Fatalf("Site trends table failed: %v", err)
	}
	countryPath := filepath.Join(*outDir, "country_summary.csv")
	if err := writeCountrySummaryCsv(countryPath, countries); err != nil {
		log.Fatalf("Country summary table failed: %v", err)
	}

	// Figures
	if err := renderFigures(*outDir, obs, trends, bins, opts); err != nil {
		log.Fatalf("Figure rendering failed: %v", err)
	}
	if err := evaluateModel(*outDir, obs, opts); err != nil {
		log.Fatalf("Model evaluation failed: %v", err)
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Observations:   %d", len(obs))
	log.Printf("Sites Fitted:   %d", len(trends))
	log.Printf("Countries:      %d", len(countries))
	log.Printf("Thermal Bins:   %d", len(bins))
	log.Printf("Mean Loss:      %.2f%%", meanLoss)
	log.Printf("Elapsed:        %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")
}
