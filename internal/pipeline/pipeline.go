// Package pipeline wires the cleaning, estimation and reporting steps into
// file-based tasks.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/config"
)

// Paths locates every artifact under the output directory.
type Paths struct {
	Dir string
}

// Clean is the cleaned wide table.
func (p Paths) Clean() string { return filepath.Join(p.Dir, "data", "data_clean.csv") }

// Rounds is the long table with one row per respondent and round.
func (p Paths) Rounds() string { return filepath.Join(p.Dir, "data", "data_rounds.csv") }

// Long is the long table with one row per package.
func (p Paths) Long() string { return filepath.Join(p.Dir, "data", "data_long.csv") }

// Frequencies is the attribute-level frequency table.
func (p Paths) Frequencies() string { return filepath.Join(p.Dir, "data", "frequencies.csv") }

// Model is the JSON artifact of a named model.
func (p Paths) Model(name string) string { return filepath.Join(p.Dir, "models", name+".json") }

// GroupModel is the JSON artifact of a model fitted on one subgroup.
func (p Paths) GroupModel(name string) string {
	return filepath.Join(p.Dir, "models", "groups", name+".json")
}

// MarginalMeans is the pooled marginal means table.
func (p Paths) MarginalMeans() string { return filepath.Join(p.Dir, "models", "data_MM.csv") }

// GroupMarginalMeans is the marginal means table of one split.
func (p Paths) GroupMarginalMeans(split string) string {
	return filepath.Join(p.Dir, "models", "MM_"+split+".csv")
}

// Table is the LaTeX estimation table.
func (p Paths) Table() string { return filepath.Join(p.Dir, "tables", "estimation_results.tex") }

// Figure is a rendered figure.
func (p Paths) Figure(name string) string { return filepath.Join(p.Dir, "figures", name+".png") }

// Pipeline runs the survey analysis from raw export to report.
type Pipeline struct {
	cfg   *config.Config
	paths Paths
	vars  *config.VariableSpec
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithVariableSpec uses vars instead of reading cfg.Data.Specs.
func WithVariableSpec(vars *config.VariableSpec) Option {
	return func(p *Pipeline) { p.vars = vars }
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, paths: Paths{Dir: cfg.Out.Dir}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Paths returns the artifact locations.
func (p *Pipeline) Paths() Paths { return p.paths }

// Tasks returns clean, fit and report in dependency order.
func (p *Pipeline) Tasks() []Task {
	return []Task{p.CleanTask(), p.FitTask(), p.ReportTask()}
}

// Run executes every task, skipping the ones that are up to date unless
// force is set.
func (p *Pipeline) Run(ctx context.Context, force bool) ([]TaskResult, error) {
	return Runner{Force: force}.Run(ctx, p.Tasks())
}

// existing filters paths down to the files that exist.
func existing(paths ...string) []string {
	var out []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			out = append(out, path)
		}
	}
	return out
}

func (p *Pipeline) variableSpec() (*config.VariableSpec, error) {
	if p.vars != nil {
		return p.vars, nil
	}
	return config.LoadVariableSpec(p.cfg.Data.Specs)
}

func (p *Pipeline) plotSpec() (*config.PlotSpec, error) {
	if len(existing(p.cfg.Data.PlotSpecs)) == 0 {
		zap.L().Debug("pipeline: no plot spec, ordering levels alphabetically", zap.String("path", p.cfg.Data.PlotSpecs))
		return nil, nil
	}
	return config.LoadPlotSpec(p.cfg.Data.PlotSpecs)
}
