package report

import (
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/estimate"
	"github.com/sells-group/conjoint-cli/internal/reshape"
)

// z95 is the two-sided 95% normal quantile used for error bars.
const z95 = 1.959963984540054

// FigureOptions sizes rendered figures.
type FigureOptions struct {
	Width  float64 // inches
	Height float64 // inches
	Format string  // png, svg or pdf
}

func (o FigureOptions) withDefaults() FigureOptions {
	if o.Width <= 0 {
		o.Width = 10
	}
	if o.Height <= 0 {
		o.Height = 6
	}
	if o.Format == "" {
		o.Format = "png"
	}
	return o
}

// WriteFigure renders p to w.
func WriteFigure(w io.Writer, p *plot.Plot, opts FigureOptions) error {
	opts = opts.withDefaults()
	wt, err := p.WriterTo(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch, opts.Format)
	if err != nil {
		return eris.Wrap(err, "report: render figure")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return eris.Wrap(err, "report: write figure")
	}
	return nil
}

// SaveFigure renders p to path. The format follows the file extension.
func SaveFigure(path string, p *plot.Plot, opts FigureOptions) error {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		opts.Format = ext
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := WriteFigure(f, p, opts); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "report: figure %s", path)
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}

// level identifies one attribute level on a figure axis.
type level struct {
	Group string
	Level string
}

// orderLevels lays out levels group by group. Levels named in the plot
// order come first in that order, other observed levels follow sorted, and
// ordered levels that were never observed are skipped.
func orderLevels(groups []string, observed map[string][]string, spec *config.PlotSpec) []level {
	var out []level
	for _, g := range groups {
		seen := map[string]bool{}
		for _, l := range observed[g] {
			seen[l] = true
		}
		placed := map[string]bool{}
		if spec != nil {
			for _, l := range spec.Order[g] {
				if seen[l] && !placed[l] {
					placed[l] = true
					out = append(out, level{g, l})
				}
			}
		}
		rest := make([]string, 0, len(observed[g]))
		for _, l := range observed[g] {
			if !placed[l] {
				placed[l] = true
				rest = append(rest, l)
			}
		}
		sort.Strings(rest)
		for _, l := range rest {
			out = append(out, level{g, l})
		}
	}
	return out
}

func tickLabel(spec *config.PlotSpec, l level) string {
	if spec != nil {
		if g, ok := spec.Labels[l.Group]; ok {
			return g + ": " + l.Level
		}
	}
	return l.Group + ": " + l.Level
}

type estimatePoint struct {
	X   float64
	Err float64 // half-width of the interval
}

type series struct {
	Name   string
	Points map[level]estimatePoint
}

type errorPoints struct {
	plotter.XYs
	plotter.XErrors
}

// intervalPlot draws horizontal point estimates with interval bars, one row
// per level from top to bottom. Multiple series are offset vertically.
func intervalPlot(title, xlabel string, rows []level, spec *config.PlotSpec, all []series, ref float64) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, eris.New("report: nothing to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Add(plotter.NewGrid())

	n := len(rows)
	refLine, err := plotter.NewLine(plotter.XYs{{X: ref, Y: -0.5}, {X: ref, Y: float64(n) - 0.5}})
	if err != nil {
		return nil, eris.Wrap(err, "report: reference line")
	}
	refLine.LineStyle.Color = color.Gray{Y: 128}
	refLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(refLine)

	step := 0.0
	if len(all) > 1 {
		step = 0.4 / float64(len(all)-1)
	}
	for s, ser := range all {
		var pts errorPoints
		for i, r := range rows {
			pt, ok := ser.Points[r]
			if !ok || math.IsNaN(pt.X) {
				continue
			}
			e := pt.Err
			if math.IsNaN(e) {
				e = 0
			}
			y := float64(n-1-i) + 0.2*boolToFloat(len(all) > 1) - step*float64(s)
			pts.XYs = append(pts.XYs, plotter.XY{X: pt.X, Y: y})
			pts.XErrors = append(pts.XErrors, struct{ Low, High float64 }{e, e})
		}
		if len(pts.XYs) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(pts.XYs)
		if err != nil {
			return nil, eris.Wrapf(err, "report: scatter %s", ser.Name)
		}
		scatter.GlyphStyle.Color = plotutil.Color(s)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)

		bars, err := plotter.NewXErrorBars(pts)
		if err != nil {
			return nil, eris.Wrapf(err, "report: error bars %s", ser.Name)
		}
		bars.LineStyle.Color = plotutil.Color(s)
		bars.CapWidth = vg.Points(4)

		p.Add(bars, scatter)
		if len(all) > 1 {
			p.Legend.Add(ser.Name, scatter)
		}
	}
	p.Legend.Top = true

	names := make([]string, n)
	for i, r := range rows {
		names[n-1-i] = tickLabel(spec, r)
	}
	p.NominalY(names...)
	return p, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// AMCEPlot draws the attribute coefficients of m with 95% intervals. The
// reference level of each attribute sits at zero.
func AMCEPlot(m *estimate.Model, groups []string, spec *config.PlotSpec) (*plot.Plot, error) {
	observed := map[string][]string{}
	points := map[level]estimatePoint{}
	for _, g := range groups {
		ref, ok := m.References[g]
		if ok {
			observed[g] = append(observed[g], ref)
			points[level{g, ref}] = estimatePoint{}
		}
		for j, c := range m.Columns {
			if !strings.HasPrefix(c, g+"_") {
				continue
			}
			l := strings.TrimPrefix(c, g+"_")
			observed[g] = append(observed[g], l)
			points[level{g, l}] = estimatePoint{X: m.Coef[j], Err: z95 * float64(m.SE[j])}
		}
	}
	title := "Average marginal component effects on support"
	if m.Name != "" {
		title += " (" + m.Name + ")"
	}
	return intervalPlot(title, "Change in probability of support", orderLevels(groups, observed, spec), spec,
		[]series{{Name: m.Name, Points: points}}, 0)
}

func marginalSeries(name string, mm []estimate.MarginalMean, observed map[string][]string) series {
	s := series{Name: name, Points: map[level]estimatePoint{}}
	for _, m := range mm {
		l := level{m.Attribute, m.Level}
		if _, ok := s.Points[l]; !ok {
			observed[m.Attribute] = append(observed[m.Attribute], m.Level)
		}
		s.Points[l] = estimatePoint{X: m.P, Err: z95 * m.SE}
	}
	return s
}

// pooledShare is the overall probability of support implied by the
// marginal means of the first attribute.
func pooledShare(mm []estimate.MarginalMean) float64 {
	if len(mm) == 0 {
		return 0.5
	}
	var hits, n float64
	for _, m := range mm {
		if m.Attribute != mm[0].Attribute || m.N == 0 {
			continue
		}
		hits += m.P * float64(m.N)
		n += float64(m.N)
	}
	if n == 0 {
		return 0.5
	}
	return hits / n
}

// MarginalMeansPlot draws marginal means of support with 95% intervals
// around the pooled support share.
func MarginalMeansPlot(mm []estimate.MarginalMean, groups []string, spec *config.PlotSpec) (*plot.Plot, error) {
	observed := map[string][]string{}
	s := marginalSeries("all", mm, observed)
	return intervalPlot("Marginal means of support", "Probability of support",
		orderLevels(groups, observed, spec), spec, []series{s}, pooledShare(mm))
}

// GroupMarginalMeansPlot compares marginal means between the two sides of a
// split.
func GroupMarginalMeansPlot(gm []estimate.GroupMean, groups []string, spec *config.PlotSpec) (*plot.Plot, error) {
	if len(gm) == 0 {
		return nil, eris.New("report: no subgroup marginal means")
	}
	var order []string
	bySub := map[string][]estimate.MarginalMean{}
	for _, m := range gm {
		if _, ok := bySub[m.Subgroup]; !ok {
			order = append(order, m.Subgroup)
		}
		bySub[m.Subgroup] = append(bySub[m.Subgroup], m.MarginalMean)
	}
	observed := map[string][]string{}
	var all []series
	var pooled []estimate.MarginalMean
	for _, sub := range order {
		all = append(all, marginalSeries(sub, bySub[sub], observed))
		pooled = append(pooled, bySub[sub]...)
	}
	for g, ls := range observed {
		observed[g] = dedupe(ls)
	}
	return intervalPlot("Marginal means by "+gm[0].Split, "Probability of support",
		orderLevels(groups, observed, spec), spec, all, pooledShare(pooled))
}

func dedupe(xs []string) []string {
	seen := map[string]bool{}
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// SupportPlot draws, for every level of one attribute, the share of packages
// rated supportive and the share rated unsupportive.
func SupportPlot(pkgs []reshape.Package, groups []string, group string, spec *config.PlotSpec) (*plot.Plot, error) {
	idx, err := reshape.GroupIndex(groups, group)
	if err != nil {
		return nil, err
	}
	type tally struct{ n, support, unsupport float64 }
	counts := map[string]*tally{}
	observed := map[string][]string{}
	for _, p := range pkgs {
		l := p.Levels[idx]
		t, ok := counts[l]
		if !ok {
			t = &tally{}
			counts[l] = t
			observed[group] = append(observed[group], l)
		}
		t.n++
		if p.Support {
			t.support++
		}
		if p.Unsupport {
			t.unsupport++
		}
	}
	rows := orderLevels([]string{group}, observed, spec)
	if len(rows) == 0 {
		return nil, eris.Errorf("report: no observations for %s", group)
	}

	support := make(plotter.Values, len(rows))
	unsupport := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		t := counts[r.Level]
		support[i] = t.support / t.n
		unsupport[i] = t.unsupport / t.n
		names[i] = r.Level
	}

	p := plot.New()
	title := group
	if spec != nil && spec.Labels[group] != "" {
		title = spec.Labels[group]
	}
	p.Title.Text = "Support by " + title
	p.Y.Label.Text = "Share of packages"
	p.Y.Min = 0

	width := vg.Points(20)
	for i, v := range []struct {
		name   string
		values plotter.Values
	}{{"support", support}, {"oppose", unsupport}} {
		bars, err := plotter.NewBarChart(v.values, width)
		if err != nil {
			return nil, eris.Wrapf(err, "report: bars %s", v.name)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = width * vg.Length(float64(i)-0.5)
		p.Add(bars)
		p.Legend.Add(v.name, bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)
	return p, nil
}
