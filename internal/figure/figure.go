// Package figure renders the publication figures to PNG.
//
// Figure geometry follows the journal conventions of the study: sizes are
// given in millimeters (180 mm for two-column figures) and rasterized at
// 300 DPI by default. Rendering is deterministic: identical inputs produce
// byte-identical output files.
package figure

import (
	"fmt"
	"image/color"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/egiron/wheat-night-lab/internal/yield"
)

// =============================================================================
// Options
// =============================================================================

// Options controls figure geometry and rasterization.
type Options struct {
	WidthMM  float64 // Figure width in millimeters
	HeightMM float64 // Figure height in millimeters
	DPI      int     // Raster resolution
}

// DefaultOptions returns the two-column journal geometry at print resolution.
func DefaultOptions() Options {
	return Options{WidthMM: 180, HeightMM: 100, DPI: 300}
}

// Palette shared across figures.
var (
	colorPoints = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xb0} // observation gray
	colorFit    = color.RGBA{A: 0xff}                            // regression black
	colorGuide  = color.RGBA{R: 0xd7, G: 0x30, B: 0x27, A: 0xff} // mean guide red
	colorQuart  = color.RGBA{R: 0x45, G: 0x75, B: 0xb4, A: 0xff} // quartile blue
	colorBars   = color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff} // histogram skyblue
)

var dashPattern = []vg.Length{vg.Points(3), vg.Points(2)}

// FitLine is a straight line overlay (fitted regression or model isoline).
type FitLine struct {
	Label     string
	Slope     float64
	Intercept float64
	Color     color.Color
}

// =============================================================================
// Scatter + Regression
// =============================================================================

// ScatterWithFit renders a scatter of (x, y) observations with one or more
// fitted lines and dashed mean cross-hairs, then writes the PNG to path.
// The first line's label carries the equation annotation in the legend.
func ScatterWithFit(path string, xs, ys []float64, lines []FitLine, xlabel, ylabel string, opts Options) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("length mismatch: %d x values, %d y values", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return fmt.Errorf("no points to plot")
	}

	p := plot.New()
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = colorPoints
	scatter.GlyphStyle.Radius = vg.Points(1.2)
	p.Add(scatter)

	xmin, xmax := minMax(xs)
	ymin, ymax := minMax(ys)

	// Dashed cross-hairs at the data means
	if err := addGuideV(p, stat.Mean(xs, nil), ymin, ymax, colorGuide); err != nil {
		return err
	}
	if err := addGuideH(p, stat.Mean(ys, nil), xmin, xmax, colorGuide); err != nil {
		return err
	}

	for _, fl := range lines {
		seg := plotter.XYs{
			{X: xmin, Y: fl.Intercept + fl.Slope*xmin},
			{X: xmax, Y: fl.Intercept + fl.Slope*xmax},
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Color = fl.Color
		if fl.Color == nil {
			line.LineStyle.Color = colorFit
		}
		p.Add(line)
		if fl.Label != "" {
			p.Legend.Add(fl.Label, line)
		}
	}
	p.Legend.Top = true

	return savePNG(p, opts, path)
}

// =============================================================================
// Histogram
// =============================================================================

// Histogram renders a fixed-bin histogram with dashed mean and quartile
// guide lines and writes the PNG to path. Bars and guide-line extents come
// from the same bin table (yield.Histogram), so the figure matches the
// tabulated counts exactly.
func Histogram(path string, values []float64, bins int, xlabel string, opts Options) error {
	if len(values) == 0 {
		return fmt.Errorf("no values to plot")
	}

	counts, edges := yield.Histogram(values, bins)
	if counts == nil {
		return fmt.Errorf("invalid bin count %d", bins)
	}

	p := plot.New()
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Count"
	p.Add(plotter.NewGrid())

	hbins := make([]plotter.HistogramBin, len(counts))
	ymax := 0.0
	for i, c := range counts {
		lo, hi := edges[i], edges[i+1]
		if hi <= lo {
			hi = lo + 1 // all values identical, keep the bar drawable
		}
		hbins[i] = plotter.HistogramBin{Min: lo, Max: hi, Weight: float64(c)}
		if float64(c) > ymax {
			ymax = float64(c)
		}
	}
	h := &plotter.Histogram{
		Bins:      hbins,
		Width:     (edges[len(edges)-1] - edges[0]) / float64(len(counts)),
		FillColor: colorBars,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(h)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// Guide lines: mean (red), quartiles (blue)
	if err := addGuideV(p, stat.Mean(values, nil), 0, ymax, colorGuide); err != nil {
		return err
	}
	for _, q := range []float64{0.25, 0.5, 0.75} {
		v := stat.Quantile(q, stat.Empirical, sorted, nil)
		if err := addGuideV(p, v, 0, ymax, colorQuart); err != nil {
			return err
		}
	}

	return savePNG(p, opts, path)
}

// =============================================================================
// Binned Bars
// =============================================================================

// BinnedBars renders one bar per labeled bin and writes the PNG to path.
func BinnedBars(path string, labels []string, values []float64, ylabel string, opts Options) error {
	if len(labels) != len(values) {
		return fmt.Errorf("length mismatch: %d labels, %d values", len(labels), len(values))
	}
	if len(values) == 0 {
		return fmt.Errorf("no bins to plot")
	}

	p := plot.New()
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = colorBars
	bars.LineStyle.Width = vg.Points(0.3)
	p.Add(bars)
	p.NominalX(labels...)

	return savePNG(p, opts, path)
}

// =============================================================================
// Canvas Helpers
// =============================================================================

func addGuideV(p *plot.Plot, x, ymin, ymax float64, c color.Color) error {
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(0.5)
	line.LineStyle.Color = c
	line.LineStyle.Dashes = dashPattern
	p.Add(line)
	return nil
}

func addGuideH(p *plot.Plot, y, xmin, xmax float64, c color.Color) error {
	line, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: y}, {X: xmax, Y: y}})
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(0.5)
	line.LineStyle.Color = c
	line.LineStyle.Dashes = dashPattern
	p.Add(line)
	return nil
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// savePNG rasterizes the plot at the configured geometry and resolution.
func savePNG(p *plot.Plot, opts Options, path string) error {
	w := vg.Length(opts.WidthMM) * vg.Millimeter
	h := vg.Length(opts.HeightMM) * vg.Millimeter

	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(opts.DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	png := vgimg.PngCanvas{Canvas: c}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
