// Package report renders batch results for people: PNG plots per scan with
// gonum/plot and an HTML summary page with go-echarts.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ccnfit/internal/pipeline"
	"github.com/banshee-data/ccnfit/internal/sigmoid"
)

var (
	smpsColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	ccncColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	ratioColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// PlotAlignment saves a PNG of the SMPS counts and the aligned CCNC counts
// against seconds since scan start.
func PlotAlignment(path string, smps, ccnc []float64, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Counts"

	for _, s := range []struct {
		label string
		y     []float64
		c     color.Color
	}{
		{"SMPS", smps, smpsColor},
		{"CCNC", ccnc, ccncColor},
	} {
		if len(s.y) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.y))
		for i, v := range s.y {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = s.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	configureLegend(p)

	return p.Save(plotWidth, plotHeight, path)
}

// PlotSigmoid saves a PNG of the measured activation ratio with every fitted
// logistic drawn over it, against diameter on a log axis.
func PlotSigmoid(path string, s sigmoid.Scan, title string) error {
	if s.Table.Len() == 0 {
		return errors.New("no rows to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Diameter (nm)"
	p.Y.Label.Text = "CCNC/SMPS"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	pts := make(plotter.XYs, 0, s.Table.Len())
	for i, d := range s.Table.Diameter {
		pts = append(pts, plotter.XY{X: d, Y: s.Table.Ratio[i]})
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = ratioColor
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)
	p.Legend.Add("ratio", sc)

	colors := generateColors(len(s.Results))
	for i, r := range s.Results {
		curve := make(plotter.XYs, 0, len(r.CurveX))
		for j, x := range r.CurveX {
			if x <= 0 || math.IsNaN(r.CurveY[j]) {
				continue
			}
			curve = append(curve, plotter.XY{X: x, Y: r.CurveY[j]})
		}
		if len(curve) == 0 {
			continue
		}
		line, err := plotter.NewLine(curve)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("fit %d: Dp50 %.1f nm", i, r.Dp50), line)
	}
	configureLegend(p)

	return p.Save(plotWidth, plotHeight, path)
}

// WritePlots saves the alignment and sigmoid plots of every outcome into
// dir and returns the paths written. Scans that never reached a stage are
// skipped for that stage's plot.
func WritePlots(dir string, scans []pipeline.Scan, rep *pipeline.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for i, o := range rep.Outcomes {
		if len(o.AlignedCCNC) > 0 && i < len(scans) {
			path := filepath.Join(dir, fmt.Sprintf("scan_%03d_alignment.png", o.Index))
			title := fmt.Sprintf("Scan %d alignment (shift %d)", o.Index, o.Shift)
			if err := PlotAlignment(path, scans[i].SMPS, o.AlignedCCNC, title); err != nil {
				return written, fmt.Errorf("scan %d: %w", o.Index, err)
			}
			written = append(written, path)
		}
		if o.Fit.Table.Len() > 0 {
			path := filepath.Join(dir, fmt.Sprintf("scan_%03d_sigmoid.png", o.Index))
			title := fmt.Sprintf("Scan %d activation (%s)", o.Index, o.Status.Description)
			if err := PlotSigmoid(path, o.Fit, title); err != nil {
				return written, fmt.Errorf("scan %d: %w", o.Index, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func configureLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// generateColors returns n distinct colours spaced around the hue circle.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
