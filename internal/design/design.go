// Package design builds dummy-coded regression matrices from package
// observations.
package design

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/conjoint-cli/internal/reshape"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Outcomes accepted by Build.
const (
	OutcomeSupport      = "support"
	OutcomeUnsupport    = "unsupport"
	OutcomeUtility      = "utility"
	OutcomeStandardized = "utility_standardized"
)

// Intercept names the constant column.
const Intercept = "const"

// Dummies is a one-hot encoding of attribute levels: one column per observed
// level, named <group>_<level>.
type Dummies struct {
	Columns []string
	Groups  []string // group of each column
	Levels  []string // level of each column
	X       *mat.Dense
}

// Column returns the index of the named dummy column, or -1.
func (d *Dummies) Column(name string) int {
	for j, c := range d.Columns {
		if c == name {
			return j
		}
	}
	return -1
}

// GroupLevels returns the levels of group in column order.
func (d *Dummies) GroupLevels(group string) []string {
	var out []string
	for j, g := range d.Groups {
		if g == group {
			out = append(out, d.Levels[j])
		}
	}
	return out
}

// NewDummies one-hot encodes the attribute levels of pkgs. Levels are sorted
// within each group; empty levels get no column.
func NewDummies(pkgs []reshape.Package, groups []string) (*Dummies, error) {
	if len(pkgs) == 0 {
		return nil, eris.New("design: no observations")
	}
	d := &Dummies{}
	index := map[string]int{}
	for k, g := range groups {
		seen := map[string]bool{}
		for _, p := range pkgs {
			if len(p.Levels) != len(groups) {
				return nil, eris.Errorf("design: respondent %d has %d levels, want %d", p.ID, len(p.Levels), len(groups))
			}
			if lvl := p.Levels[k]; lvl != "" {
				seen[lvl] = true
			}
		}
		levels := make([]string, 0, len(seen))
		for l := range seen {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		for _, l := range levels {
			index[g+"\x00"+l] = len(d.Columns)
			d.Columns = append(d.Columns, g+"_"+l)
			d.Groups = append(d.Groups, g)
			d.Levels = append(d.Levels, l)
		}
	}

	if len(d.Columns) == 0 {
		return nil, eris.New("design: no attribute levels")
	}
	d.X = mat.NewDense(len(pkgs), len(d.Columns), nil)
	for i, p := range pkgs {
		for k, g := range groups {
			if j, ok := index[g+"\x00"+p.Levels[k]]; ok {
				d.X.Set(i, j, 1)
			}
		}
	}
	return d, nil
}

// Spec selects the regressors and outcome of a design.
type Spec struct {
	Groups     []string
	References map[string]string // group -> reference level
	Covariates CovariateSet
	Outcome    string

	DistrictColumn    string
	DistrictReference string

	// KeepReferences retains every level column. The result is collinear
	// with the intercept.
	KeepReferences bool
}

// Design is a regression-ready matrix. Column 0 of X is the intercept.
type Design struct {
	Columns  []string
	X        *mat.Dense
	Y        []float64
	Clusters []int
	// References maps each group to its excluded level.
	References map[string]string
	Dropped    int
}

// Rows returns the number of observations.
func (d *Design) Rows() int { return len(d.Y) }

// Reference picks the excluded level of group: the configured one when it was
// observed, otherwise the first level in sorted order.
func Reference(d *Dummies, group string, configured string) (string, error) {
	levels := d.GroupLevels(group)
	if len(levels) == 0 {
		return "", eris.Errorf("design: group %q has no levels", group)
	}
	if configured == "" {
		return levels[0], nil
	}
	for _, l := range levels {
		if l == configured {
			return l, nil
		}
	}
	return "", eris.Errorf("design: reference level %q not observed in group %q", configured, group)
}

// References resolves the excluded level of every group in d.
func References(d *Dummies, groups []string, configured map[string]string) (map[string]string, error) {
	refs := make(map[string]string, len(groups))
	for _, g := range groups {
		ref, err := Reference(d, g, configured[g])
		if err != nil {
			return nil, err
		}
		refs[g] = ref
	}
	return refs, nil
}

// Build assembles the design for pkgs. Rows with a missing covariate or
// outcome are dropped and counted.
func Build(pkgs []reshape.Package, spec Spec) (*Design, error) {
	dum, err := NewDummies(pkgs, spec.Groups)
	if err != nil {
		return nil, err
	}

	refs, err := References(dum, spec.Groups, spec.References)
	if err != nil {
		return nil, err
	}
	out := &Design{Columns: []string{Intercept}, References: refs}
	var cols []int
	for _, g := range spec.Groups {
		ref := refs[g]
		for j := range dum.Columns {
			if dum.Groups[j] != g {
				continue
			}
			if dum.Levels[j] == ref && !spec.KeepReferences {
				continue
			}
			cols = append(cols, j)
			out.Columns = append(out.Columns, dum.Columns[j])
		}
	}

	covariates := spec.Covariates.Columns()
	for _, c := range covariates {
		if _, ok := pkgs[0].Covariates[c]; !ok {
			return nil, eris.Wrapf(survey.ErrMissingColumn, "covariate %q", c)
		}
	}
	out.Columns = append(out.Columns, covariates...)

	var districts []string
	if spec.Covariates.Districts() {
		districts, err = districtLevels(pkgs, spec)
		if err != nil {
			return nil, err
		}
		for _, l := range districts {
			out.Columns = append(out.Columns, spec.DistrictColumn+"_"+l)
		}
	}

	outcome := spec.Outcome
	if outcome == "" {
		outcome = OutcomeSupport
	}

	k := len(out.Columns)
	data := make([]float64, 0, len(pkgs)*k)
	for i, p := range pkgs {
		y, err := outcomeValue(p, outcome)
		if err != nil {
			return nil, err
		}
		row := make([]float64, 0, k)
		row = append(row, 1)
		for _, j := range cols {
			row = append(row, dum.X.At(i, j))
		}
		for _, c := range covariates {
			v, ok := survey.ParseNumber(p.Covariates[c])
			if !ok {
				v = math.NaN()
			}
			row = append(row, v)
		}
		for _, l := range districts {
			row = append(row, indicator(p.Covariates[spec.DistrictColumn] == l))
		}

		if math.IsNaN(y) || hasNaN(row) {
			out.Dropped++
			continue
		}
		data = append(data, row...)
		out.Y = append(out.Y, y)
		out.Clusters = append(out.Clusters, p.ID)
	}
	if out.Dropped > 0 {
		zap.L().Warn("design: dropped incomplete observations",
			zap.Int("dropped", out.Dropped),
			zap.Int("kept", len(out.Y)),
		)
	}
	if len(out.Y) == 0 {
		return nil, eris.New("design: no complete observations")
	}
	out.X = mat.NewDense(len(out.Y), k, data)
	return out, nil
}

func districtLevels(pkgs []reshape.Package, spec Spec) ([]string, error) {
	if spec.DistrictColumn == "" {
		return nil, eris.New("design: district covariates need a district column")
	}
	seen := map[string]bool{}
	for _, p := range pkgs {
		v, ok := p.Covariates[spec.DistrictColumn]
		if !ok {
			return nil, eris.Wrapf(survey.ErrMissingColumn, "column %q", spec.DistrictColumn)
		}
		if v != "" {
			seen[v] = true
		}
	}
	levels := make([]string, 0, len(seen))
	for l := range seen {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	if len(levels) == 0 {
		return nil, nil
	}
	ref := levels[0]
	if spec.DistrictReference != "" {
		if !seen[spec.DistrictReference] {
			return nil, eris.Errorf("design: district reference %q not observed", spec.DistrictReference)
		}
		ref = spec.DistrictReference
	}
	var kept []string
	for _, l := range levels {
		if l != ref {
			kept = append(kept, l)
		}
	}
	return kept, nil
}

func outcomeValue(p reshape.Package, outcome string) (float64, error) {
	switch outcome {
	case OutcomeSupport:
		if math.IsNaN(p.Utility) {
			return math.NaN(), nil
		}
		return indicator(p.Support), nil
	case OutcomeUnsupport:
		if math.IsNaN(p.Utility) {
			return math.NaN(), nil
		}
		return indicator(p.Unsupport), nil
	case OutcomeUtility:
		return p.Utility, nil
	case OutcomeStandardized:
		return p.UtilityStandardized, nil
	}
	return 0, eris.Errorf("design: unknown outcome %q", outcome)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func hasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
