package pipeline

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/fetcher"
	"github.com/sells-group/conjoint-cli/internal/geo"
	"github.com/sells-group/conjoint-cli/internal/report"
	"github.com/sells-group/conjoint-cli/internal/reshape"
)

// CleanOptions maps the configuration onto cleaning options. refs feeds the
// proximity indicators and may be nil when geo indicators are disabled.
func CleanOptions(cfg *config.Config, refs []geo.ReferencePoint) clean.Options {
	opts := clean.Options{
		Rounds:          cfg.Clean.Rounds,
		MetadataRows:    cfg.Clean.MetadataRows,
		TrustColumns:    cfg.Clean.TrustColumns,
		TrustThreshold:  cfg.Clean.TrustThreshold,
		IncomeColumn:    cfg.Clean.IncomeColumn,
		IncomeThreshold: cfg.Clean.IncomeThreshold,
		IncomeFallback:  cfg.Clean.IncomeFallback,
		LocationFilter:  cfg.Clean.LocationFilter,
		Latitude:        cfg.Geo.Latitude,
		Longitude:       cfg.Geo.Longitude,
	}
	for _, a := range cfg.Clean.Awareness {
		opts.Awareness = append(opts.Awareness, clean.AwarenessCheck{Column: a.Column, Correct: a.Correct})
	}
	if cfg.Geo.Enabled {
		for _, ind := range cfg.Geo.Indicators {
			opts.Proximity = append(opts.Proximity, clean.Proximity{
				Name:        ind.Name,
				ThresholdKM: ind.ThresholdKM,
				Points:      geo.ByCategory(refs, ind.Category),
			})
		}
	}
	return opts
}

// ReshapeOptions maps the configuration onto the wide layout.
func ReshapeOptions(cfg *config.Config) reshape.Options {
	opts := reshape.DefaultOptions()
	if cfg.Clean.Rounds > 0 {
		opts.Rounds = cfg.Clean.Rounds
	}
	if len(cfg.Design.Attributes) > 0 {
		opts.Groups = cfg.Design.Attributes
	}
	if len(cfg.Clean.Covariates) > 0 {
		opts.Covariates = cfg.Clean.Covariates
	}
	for _, ind := range cfg.Geo.Indicators {
		if !slices.Contains(opts.Optional, ind.Name) {
			opts.Optional = append(opts.Optional, ind.Name)
		}
	}
	if cfg.Geocode.Column != "" && !slices.Contains(opts.Optional, cfg.Geocode.Column) {
		opts.Optional = append(opts.Optional, cfg.Geocode.Column)
	}
	return opts
}

// CleanTask reads the raw export and writes the cleaned wide table together
// with both long tables.
func (p *Pipeline) CleanTask() Task {
	inputs := []string{p.cfg.Data.Raw}
	inputs = append(inputs, existing(p.cfg.Data.Specs, p.cfg.Data.Recoding)...)
	if p.cfg.Geo.Enabled {
		inputs = append(inputs, p.cfg.Data.ReferencePoints)
	}
	return Task{
		Name:    "clean",
		Inputs:  inputs,
		Outputs: []string{p.paths.Clean(), p.paths.Rounds(), p.paths.Long()},
		Run:     p.clean,
	}
}

func (p *Pipeline) clean(ctx context.Context) error {
	vars, err := p.variableSpec()
	if err != nil {
		return eris.Wrap(err, "pipeline: variable spec")
	}
	var recode *config.RecodeSpec
	if len(existing(p.cfg.Data.Recoding)) > 0 {
		if recode, err = config.LoadRecodeSpec(p.cfg.Data.Recoding); err != nil {
			return eris.Wrap(err, "pipeline: recoding spec")
		}
	} else {
		zap.L().Warn("pipeline: no recoding spec, values kept as exported", zap.String("path", p.cfg.Data.Recoding))
	}
	var refs []geo.ReferencePoint
	if p.cfg.Geo.Enabled {
		if refs, err = geo.LoadReferenceFile(p.cfg.Data.ReferencePoints); err != nil {
			return eris.Wrap(err, "pipeline: reference points")
		}
	}

	raw, err := fetcher.ReadSurvey(ctx, p.cfg.Data.Raw, fetcher.Options{
		Encoding: p.cfg.Data.Encoding,
		Sheet:    p.cfg.Data.Sheet,
	})
	if err != nil {
		return err
	}

	df, err := clean.Clean(raw, vars, recode, CleanOptions(p.cfg, refs))
	if err != nil {
		return err
	}
	if err := report.WriteFrame(p.paths.Clean(), df); err != nil {
		return err
	}

	opts := ReshapeOptions(p.cfg)
	rounds, err := reshape.Long(df, opts)
	if err != nil {
		return err
	}
	roundsFrame, err := reshape.RoundsFrame(rounds, opts.Groups)
	if err != nil {
		return err
	}
	if err := report.WriteFrame(p.paths.Rounds(), roundsFrame); err != nil {
		return err
	}

	pkgs := reshape.Packages(rounds)
	longFrame, err := reshape.PackagesFrame(pkgs, opts.Groups)
	if err != nil {
		return err
	}
	if err := report.WriteFrame(p.paths.Long(), longFrame); err != nil {
		return err
	}

	zap.L().Info("pipeline: cleaned survey",
		zap.Int("respondents", df.Len()),
		zap.Int("rounds", len(rounds)),
		zap.Int("packages", len(pkgs)),
	)
	return nil
}
