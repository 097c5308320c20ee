package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/estimate"
	"github.com/sells-group/conjoint-cli/internal/report"
)

// UnitsPerRespondent is the number of rated packages per respondent.
const UnitsPerRespondent = 12

// ReportTask renders the estimation table and, when enabled, the figures.
func (p *Pipeline) ReportTask() Task {
	inputs := []string{p.paths.Long(), p.paths.MarginalMeans()}
	for _, mc := range p.cfg.Models {
		inputs = append(inputs, p.paths.Model(mc.Name))
	}
	inputs = append(inputs, existing(p.cfg.Data.PlotSpecs)...)

	outputs := []string{p.paths.Table()}
	if p.cfg.Report.Figures {
		outputs = append(outputs, p.paths.Figure("support_plot"), p.paths.Figure("MM_on_support"))
		if p.cfg.Report.AMCE != "" {
			outputs = append(outputs, p.paths.Figure("AMCE_on_support"))
		}
	}
	return Task{
		Name:    "report",
		Inputs:  inputs,
		Outputs: outputs,
		Run:     p.report,
	}
}

func (p *Pipeline) report(ctx context.Context) error {
	log := zap.L().With(zap.String("task", "report"))

	cols := make([]report.TableColumn, 0, len(p.cfg.Models))
	models := map[string]*estimate.Model{}
	for _, mc := range p.cfg.Models {
		m, err := report.LoadModel(p.paths.Model(mc.Name))
		if err != nil {
			return err
		}
		models[mc.Name] = m
		label := mc.Label
		if label == "" {
			label = mc.Name
		}
		cols = append(cols, report.TableColumn{Label: label, Model: m})
	}
	if err := p.writeTable(cols); err != nil {
		return err
	}
	log.Info("pipeline: estimation table written", zap.String("path", p.paths.Table()))

	if !p.cfg.Report.Figures {
		return nil
	}
	return p.figures(ctx, models)
}

func (p *Pipeline) writeTable(cols []report.TableColumn) error {
	path := p.paths.Table()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", path)
	}
	if err := report.EstimationTable(f, cols, report.TableOptions{
		Decimal:            p.cfg.Report.Decimal,
		UnitsPerRespondent: UnitsPerRespondent,
	}); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "pipeline: close %s", path)
}

func (p *Pipeline) figures(ctx context.Context, models map[string]*estimate.Model) error {
	groups := p.cfg.Design.Attributes
	if len(groups) == 0 {
		return eris.New("pipeline: no attribute groups configured")
	}
	spec, err := p.plotSpec()
	if err != nil {
		return err
	}
	opts := report.FigureOptions{Width: p.cfg.Report.Width, Height: p.cfg.Report.Height}

	pkgs, err := LoadPackages(ctx, p.paths.Long(), groups)
	if err != nil {
		return err
	}
	support, err := report.SupportPlot(pkgs, groups, groups[0], spec)
	if err != nil {
		return err
	}
	if err := report.SaveFigure(p.paths.Figure("support_plot"), support, opts); err != nil {
		return err
	}

	if name := p.cfg.Report.AMCE; name != "" {
		m, ok := models[name]
		if !ok {
			return eris.Errorf("pipeline: amce model %q is not configured", name)
		}
		amce, err := report.AMCEPlot(m, groups, spec)
		if err != nil {
			return err
		}
		if err := report.SaveFigure(p.paths.Figure("AMCE_on_support"), amce, opts); err != nil {
			return err
		}
	}

	mm, err := report.ReadTable[estimate.MarginalMean](p.paths.MarginalMeans())
	if err != nil {
		return err
	}
	mmPlot, err := report.MarginalMeansPlot(mm, groups, spec)
	if err != nil {
		return err
	}
	if err := report.SaveFigure(p.paths.Figure("MM_on_support"), mmPlot, opts); err != nil {
		return err
	}

	for _, split := range estimate.DefaultSplits() {
		path := p.paths.GroupMarginalMeans(split.Name)
		if len(existing(path)) == 0 {
			continue
		}
		gm, err := report.ReadTable[estimate.GroupMean](path)
		if err != nil {
			return err
		}
		if len(gm) == 0 {
			continue
		}
		plot, err := report.GroupMarginalMeansPlot(gm, groups, spec)
		if err != nil {
			return err
		}
		if err := report.SaveFigure(p.paths.Figure("MM_"+split.Name), plot, opts); err != nil {
			return err
		}
	}
	zap.L().Info("pipeline: figures written", zap.String("task", "report"))
	return nil
}
