package options

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/golang/glog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotSmileHtml renders the implied-volatility smile as an interactive
// scatter chart, one series per expiry bucket, and returns the written
// path. Unsolved quotes are skipped.
func PlotSmileHtml(
	path string,
	title string,
	quotes []OptionQuote,
	solved []float64) (string, error) {

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Implied volatility by moneyness",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Moneyness (S/K)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Implied volatility"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	series := map[int][]opts.ScatterData{}
	for i, quote := range quotes {
		if i >= len(solved) || math.IsNaN(solved[i]) {
			continue
		}
		days := int(quote.DaysToExpiration/30) * 30
		series[days] = append(series[days], opts.ScatterData{
			Value: []float64{quote.Moneyness, solved[i]},
		})
	}
	for days, points := range series {
		scatter.AddSeries(fmt.Sprintf("%dd", days), points)
	}

	file, err := os.Create(path)
	if err != nil {
		msg := fmt.Sprintf("Creating %s failed with error=%s", path, err)
		glog.Error(msg)
		return "", err
	}
	defer file.Close()

	if err = scatter.Render(file); err != nil {
		msg := fmt.Sprintf("Rendering smile chart failed with error=%s", err)
		glog.Error(msg)
		return "", err
	}
	glog.Info(fmt.Sprintf("Wrote smile chart to %s.", path))
	return path, nil
}

// PlotConvergencePng renders a convergence error curve to a PNG and
// returns the written path. Both axes are plotted on log10 scale so the
// O(1/n) tree error and the O(1/sqrt(n)) sampling error show up as
// straight lines.
func PlotConvergencePng(
	path string,
	title string,
	points []ConvergencePoint) (string, error) {

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "log10(resolution)"
	p.Y.Label.Text = "log10(abs error)"

	xys := make(plotter.XYs, 0, len(points))
	for _, point := range points {
		if point.AbsError <= 0 {
			continue
		}
		xys = append(xys, plotter.XY{
			X: math.Log10(float64(point.Resolution)),
			Y: math.Log10(point.AbsError),
		})
	}

	line, scatterPoints, err := plotter.NewLinePoints(xys)
	if err != nil {
		msg := fmt.Sprintf("Building convergence plot failed with error=%s",
			err)
		glog.Error(msg)
		return "", err
	}
	p.Add(line, scatterPoints)

	if err = p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		msg := fmt.Sprintf("Saving %s failed with error=%s", path, err)
		glog.Error(msg)
		return "", err
	}
	glog.Info(fmt.Sprintf("Wrote convergence plot to %s.", path))
	return path, nil
}
