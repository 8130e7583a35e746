// Package report renders multi-page PDF reports.  A Report is an explicit,
// caller-owned builder: pages are appended one rendering call at a time and
// the document is written out on Close.
package report

import (
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	pageWidth  = 8 * vg.Inch
	pageHeight = 6 * vg.Inch
)

// Report accumulates plot pages and writes them to a single PDF file.
type Report struct {
	path   string
	canvas *vgpdf.Canvas
	pages  int
}

// New returns a Report that will be written to path on Close.
func New(path string) *Report {
	return &Report{
		path:   path,
		canvas: vgpdf.New(pageWidth, pageHeight),
	}
}

// Series is one named line of a line plot.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

func (r *Report) newPage(title, xlab, ylab string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, errors.Wrap(err, "report: creating plot")
	}
	p.Title.Text = title
	p.X.Label.Text = xlab
	p.Y.Label.Text = ylab
	return p, nil
}

func (r *Report) drawPage(p *plot.Plot) {
	if r.pages > 0 {
		r.canvas.NextPage()
	}
	p.Draw(draw.New(r.canvas))
	r.pages++
}

func xyPoints(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) {
		return nil, errors.Errorf("report: series length mismatch (%d vs %d)", len(x), len(y))
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts, nil
}

// Line appends a line-plot page with one line per series.
func (r *Report) Line(title, xlab, ylab string, series ...Series) error {
	p, err := r.newPage(title, xlab, ylab)
	if err != nil {
		return err
	}
	for i, s := range series {
		pts, err := xyPoints(s.X, s.Y)
		if err != nil {
			return errors.Wrapf(err, "series %s", s.Name)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "report: series %s", s.Name)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
	}
	r.drawPage(p)
	return nil
}

// Histogram appends a histogram page over values with the given bin count.
func (r *Report) Histogram(title, xlab, ylab string, values []float64, bins int) error {
	p, err := r.newPage(title, xlab, ylab)
	if err != nil {
		return err
	}
	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return errors.Wrap(err, "report: histogram")
	}
	p.Add(hist)
	r.drawPage(p)
	return nil
}

// Bars appends a bar-chart page with one bar per label.
func (r *Report) Bars(title, xlab, ylab string, labels []string, values []float64) error {
	if len(labels) != len(values) {
		return errors.Errorf("report: %d labels for %d values", len(labels), len(values))
	}
	p, err := r.newPage(title, xlab, ylab)
	if err != nil {
		return err
	}
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(25))
	if err != nil {
		return errors.Wrap(err, "report: bar chart")
	}
	p.Add(bars)
	p.NominalX(labels...)
	r.drawPage(p)
	return nil
}

// Regression appends a scatter page of (x, y) overlaid with the fitted line
// y = alpha + beta*x.
func (r *Report) Regression(title, xlab, ylab string, x, y []float64, alpha, beta float64) error {
	p, err := r.newPage(title, xlab, ylab)
	if err != nil {
		return err
	}
	pts, err := xyPoints(x, y)
	if err != nil {
		return err
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "report: scatter")
	}
	p.Add(scatter)
	fit := plotter.NewFunction(func(v float64) float64 { return alpha + beta*v })
	fit.Color = plotutil.Color(1)
	p.Add(fit)
	p.Legend.Add("fit", fit)
	r.drawPage(p)
	return nil
}

// Pages returns the number of pages appended so far.
func (r *Report) Pages() int { return r.pages }

// Close writes the accumulated pages to the report path.  It must be called
// exactly once.
func (r *Report) Close() (err error) {
	ctx := vcontext.Background()
	var dst file.File
	if dst, err = file.Create(ctx, r.path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if _, err = r.canvas.WriteTo(dst.Writer(ctx)); err != nil {
		return errors.Wrapf(err, "report: writing %s", r.path)
	}
	return nil
}
