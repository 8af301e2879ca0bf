package report

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	histogramBins = 30
	tileSize      = 3 * vg.Inch
)

// PlotGroup draws one tile per column: a normalized histogram of the
// synthetic values and the reference normal density of that column. The
// grid is written to path as PNG.
func PlotGroup(path string, ref *distribution.Distribution, synthetic mat.Matrix) error {
	_, f := synthetic.Dims()
	if f != ref.NumColumns() {
		return errors.NewDimensionError("report.PlotGroup", ref.NumColumns(), f, 1)
	}

	cols := int(math.Ceil(math.Sqrt(float64(f))))
	rows := (f + cols - 1) / cols
	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
		for c := range plots[r] {
			i := r*cols + c
			if i >= f {
				plots[r][c] = plot.New()
				plots[r][c].HideAxes()
				continue
			}
			p, err := columnPlot(ref, synthetic, i)
			if err != nil {
				return errors.Wrapf(err, "plot column %d of group %s", i, ref.ID)
			}
			plots[r][c] = p
		}
	}

	img := vgimg.New(vg.Length(cols)*tileSize, vg.Length(rows)*tileSize)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter,
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(out); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return out.Close()
}

func columnPlot(ref *distribution.Distribution, synthetic mat.Matrix, j int) (*plot.Plot, error) {
	values := mat.Col(nil, j, synthetic)

	p := plot.New()
	p.Title.Text = ref.Header[j]
	if ref.IsInteger(j) {
		p.Title.Text += " (int)"
	}
	p.Y.Label.Text = "density"

	if floats.Max(values) > floats.Min(values) {
		h, err := plotter.NewHist(plotter.Values(values), histogramBins)
		if err != nil {
			return nil, err
		}
		h.Normalize(1)
		h.FillColor = color.Gray{Y: 200}
		p.Add(h)
	} else {
		p.X.Label.Text = fmt.Sprintf("constant %g", values[0])
	}

	if sigma := ref.Stdev[j]; sigma > 0 {
		normal := distuv.Normal{Mu: ref.Mean[j], Sigma: sigma}
		pdf := plotter.NewFunction(normal.Prob)
		pdf.Color = color.RGBA{R: 200, A: 255}
		pdf.Width = vg.Points(1.5)
		pdf.Samples = 200
		p.Add(pdf)
		p.Legend.Add("reference", pdf)
		p.Legend.Top = true
		// a function has no extent of its own
		p.X.Min = math.Min(p.X.Min, normal.Mu-3*sigma)
		p.X.Max = math.Max(p.X.Max, normal.Mu+3*sigma)
	}
	return p, nil
}
