package estimate

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/design"
	"github.com/sells-group/conjoint-cli/internal/reshape"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Split divides respondents by a 0/1 covariate.
type Split struct {
	Name   string
	Column string
	Low    string // label for 0
	High   string // label for 1
}

// DefaultSplits lists the subgroup comparisons reported in the paper.
func DefaultSplits() []Split {
	return []Split{
		{Name: "treatment", Column: design.ColTreatment, Low: "control", High: "treated"},
		{Name: "trust", Column: clean.ColTrustID, Low: "low_trust", High: "high_trust"},
		{Name: "coal_proximity", Column: "coal_prox", Low: "non_coal_region", High: "coal_region"},
		{Name: "income", Column: clean.ColHighIncome, Low: "low_income", High: "high_income"},
		{Name: "awareness", Column: clean.ColAware, Low: "not_aware", High: "aware"},
		{Name: "urban", Column: "urban", Low: "rural", High: "urban"},
	}
}

// Available returns the splits whose column is carried by pkgs.
func Available(pkgs []reshape.Package, splits []Split) []Split {
	if len(pkgs) == 0 {
		return nil
	}
	var out []Split
	for _, s := range splits {
		if _, ok := pkgs[0].Covariates[s.Column]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Partition separates pkgs by the split column. Rows with a missing or
// unparseable value fall in neither group.
func (s Split) Partition(pkgs []reshape.Package) (low, high []reshape.Package) {
	side := func(want bool) func(reshape.Package) bool {
		return func(p reshape.Package) bool {
			v, ok := survey.ParseFlag(p.Covariates[s.Column])
			return ok && v == want
		}
	}
	low = reshape.Filter(pkgs, side(false))
	high = reshape.Filter(pkgs, side(true))
	if skipped := len(pkgs) - len(low) - len(high); skipped > 0 {
		zap.L().Debug("estimate: rows without split value",
			zap.String("split", s.Name),
			zap.Int("skipped", skipped),
		)
	}
	return low, high
}

// GroupFit is a model fitted on one side of a split.
type GroupFit struct {
	Split    string
	Subgroup string
	Model    *Model
}

// FitGroups fits spec separately on both sides of every split.
func FitGroups(pkgs []reshape.Package, spec design.Spec, splits []Split) ([]GroupFit, error) {
	var out []GroupFit
	for _, s := range splits {
		low, high := s.Partition(pkgs)
		for _, side := range []struct {
			label string
			pkgs  []reshape.Package
		}{{s.Low, low}, {s.High, high}} {
			if len(side.pkgs) == 0 {
				return nil, eris.Errorf("estimate: split %s has no %s observations", s.Name, side.label)
			}
			d, err := design.Build(side.pkgs, spec)
			if err != nil {
				return nil, eris.Wrapf(err, "estimate: build %s/%s", s.Name, side.label)
			}
			m, err := FitOLS(d)
			if err != nil {
				return nil, eris.Wrapf(err, "estimate: fit %s/%s", s.Name, side.label)
			}
			m.Name = s.Name + "_" + side.label
			out = append(out, GroupFit{Split: s.Name, Subgroup: side.label, Model: m})
		}
	}
	return out, nil
}

// GroupMean is a marginal mean within one side of a split.
type GroupMean struct {
	Split    string `csv:"split" json:"split"`
	Subgroup string `csv:"subgroup" json:"subgroup"`
	MarginalMean
}

// GroupMarginalMeans computes marginal means on both sides of split.
func GroupMarginalMeans(pkgs []reshape.Package, groups []string, split Split) ([]GroupMean, error) {
	low, high := split.Partition(pkgs)
	var out []GroupMean
	for _, side := range []struct {
		label string
		pkgs  []reshape.Package
	}{{split.Low, low}, {split.High, high}} {
		if len(side.pkgs) == 0 {
			continue
		}
		mm, err := PackageMarginalMeans(side.pkgs, groups)
		if err != nil {
			return nil, eris.Wrapf(err, "estimate: marginal means %s/%s", split.Name, side.label)
		}
		for _, m := range mm {
			out = append(out, GroupMean{Split: split.Name, Subgroup: side.label, MarginalMean: m})
		}
	}
	return out, nil
}

// PackageMarginalMeans one-hot encodes pkgs and computes marginal means of support.
func PackageMarginalMeans(pkgs []reshape.Package, groups []string) ([]MarginalMean, error) {
	d, err := design.NewDummies(pkgs, groups)
	if err != nil {
		return nil, err
	}
	support := make([]bool, len(pkgs))
	for i, p := range pkgs {
		support[i] = p.Support
	}
	return MarginalMeans(d, support)
}
