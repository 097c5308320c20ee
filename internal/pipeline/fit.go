package pipeline

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/design"
	"github.com/sells-group/conjoint-cli/internal/estimate"
	"github.com/sells-group/conjoint-cli/internal/fetcher"
	"github.com/sells-group/conjoint-cli/internal/report"
	"github.com/sells-group/conjoint-cli/internal/reshape"
)

// FitResult holds what the fit task produced.
type FitResult struct {
	Models        []*estimate.Model
	MarginalMeans []estimate.MarginalMean
	Groups        []estimate.GroupFit
}

// LoadPackages reads the long package table.
func LoadPackages(ctx context.Context, path string, groups []string) ([]reshape.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	df, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	return reshape.PackagesFromFrame(df, groups)
}

// DesignSpec maps one configured model onto a design specification.
func DesignSpec(cfg *config.Config, mc config.ModelConfig) (design.Spec, error) {
	set, err := design.ParseCovariateSet(mc.Covariates)
	if err != nil {
		return design.Spec{}, eris.Wrapf(err, "pipeline: model %s", mc.Name)
	}
	return design.Spec{
		Groups:            cfg.Design.Attributes,
		References:        cfg.Design.References,
		Covariates:        set,
		Outcome:           mc.Outcome,
		DistrictColumn:    cfg.Design.DistrictColumn,
		DistrictReference: cfg.Design.DistrictDefault,
	}, nil
}

// FitTask fits every configured model and computes marginal means and
// attribute frequencies.
func (p *Pipeline) FitTask() Task {
	outputs := []string{p.paths.MarginalMeans(), p.paths.Frequencies()}
	for _, mc := range p.cfg.Models {
		outputs = append(outputs, p.paths.Model(mc.Name))
	}
	return Task{
		Name:    "fit",
		Inputs:  []string{p.paths.Long()},
		Outputs: outputs,
		Run: func(ctx context.Context) error {
			_, err := p.Fit(ctx)
			return err
		},
	}
}

// Fit runs the estimation step and writes its artifacts.
func (p *Pipeline) Fit(ctx context.Context) (*FitResult, error) {
	groups := p.cfg.Design.Attributes
	pkgs, err := LoadPackages(ctx, p.paths.Long(), groups)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("task", "fit"))
	res := &FitResult{}

	for _, mc := range p.cfg.Models {
		spec, err := DesignSpec(p.cfg, mc)
		if err != nil {
			return nil, err
		}
		d, err := design.Build(pkgs, spec)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: design %s", mc.Name)
		}
		m, err := estimate.FitOLS(d)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fit %s", mc.Name)
		}
		m.Name = mc.Name
		if err := report.SaveModel(p.paths.Model(mc.Name), m); err != nil {
			return nil, err
		}
		log.Info("pipeline: model fitted",
			zap.String("model", mc.Name),
			zap.String("run_id", m.RunID),
			zap.Int("nobs", m.NObs),
			zap.Float64("r2", float64(m.R2)),
		)
		res.Models = append(res.Models, m)
	}

	dummies, err := design.NewDummies(pkgs, groups)
	if err != nil {
		return nil, err
	}
	if err := report.WriteTable(p.paths.Frequencies(), design.Frequencies(dummies)); err != nil {
		return nil, err
	}
	support := make([]bool, len(pkgs))
	for i, pkg := range pkgs {
		support[i] = pkg.Support
	}
	res.MarginalMeans, err = estimate.MarginalMeans(dummies, support)
	if err != nil {
		return nil, err
	}
	if err := report.WriteTable(p.paths.MarginalMeans(), res.MarginalMeans); err != nil {
		return nil, err
	}

	// Subgroup fits use the pooled reference levels.
	refs, err := design.References(dummies, groups, p.cfg.Design.References)
	if err != nil {
		return nil, err
	}
	base := design.Spec{Groups: groups, References: refs}
	for _, split := range estimate.Available(pkgs, estimate.DefaultSplits()) {
		gm, err := estimate.GroupMarginalMeans(pkgs, groups, split)
		if err != nil {
			return nil, err
		}
		if err := report.WriteTable(p.paths.GroupMarginalMeans(split.Name), gm); err != nil {
			return nil, err
		}

		low, high := split.Partition(pkgs)
		if len(low) == 0 || len(high) == 0 {
			log.Warn("pipeline: split has an empty side, skipping subgroup models",
				zap.String("split", split.Name),
				zap.Int("low", len(low)),
				zap.Int("high", len(high)),
			)
			continue
		}
		fits, err := estimate.FitGroups(pkgs, base, []estimate.Split{split})
		if err != nil {
			return nil, err
		}
		for _, g := range fits {
			if err := report.SaveModel(p.paths.GroupModel(g.Model.Name), g.Model); err != nil {
				return nil, err
			}
		}
		res.Groups = append(res.Groups, fits...)
	}
	return res, nil
}
