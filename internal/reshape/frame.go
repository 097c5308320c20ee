package reshape

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Column names of the long tables.
const (
	ColRound        = "round"
	ColPackage      = "package"
	ColChoice       = "choice"
	ColUtilityA     = "utility_A"
	ColUtilityB     = "utility_B"
	ColUtility      = "utility"
	ColUtilityStd   = "utility_standardized"
	ColSupport      = "support"
	ColUnsupport    = "unsupport"
	ColInconsistent = "inconsistent"
)

// RoundsFrame renders rounds as a table with att_k_A/att_k_B level columns.
func RoundsFrame(rounds []Round, groups []string) (*survey.Frame, error) {
	covariates := CovariateNames(rounds)
	cols := []string{clean.ColID, ColRound}
	cols = append(cols, covariates...)
	for _, g := range groups {
		cols = append(cols, g+"_A", g+"_B")
	}
	cols = append(cols, ColChoice, ColUtilityA, ColUtilityB, ColInconsistent)

	rows := make([][]string, len(rounds))
	for i, r := range rounds {
		if len(r.A) != len(groups) || len(r.B) != len(groups) {
			return nil, eris.Errorf("reshape: round %d of respondent %d has %d/%d levels, want %d", r.Round, r.ID, len(r.A), len(r.B), len(groups))
		}
		row := []string{strconv.Itoa(r.ID), strconv.Itoa(r.Round)}
		for _, c := range covariates {
			row = append(row, r.Covariates[c])
		}
		for k := range groups {
			row = append(row, r.A[k], r.B[k])
		}
		row = append(row,
			r.Choice,
			survey.FormatNumber(r.UtilityA),
			survey.FormatNumber(r.UtilityB),
			survey.FormatFlag(r.Inconsistent),
		)
		rows[i] = row
	}
	return survey.NewFrame(cols, rows)
}

// PackagesFrame renders packages as a table with one att_k level column per group.
func PackagesFrame(pkgs []Package, groups []string) (*survey.Frame, error) {
	covariates := packageCovariates(pkgs)
	cols := []string{clean.ColID, ColRound, ColPackage}
	cols = append(cols, groups...)
	cols = append(cols, ColUtility, ColUtilityStd, ColSupport, ColUnsupport, ColInconsistent)
	cols = append(cols, covariates...)

	rows := make([][]string, len(pkgs))
	for i, p := range pkgs {
		if len(p.Levels) != len(groups) {
			return nil, eris.Errorf("reshape: package %s of respondent %d round %d has %d levels, want %d", p.Package, p.ID, p.Round, len(p.Levels), len(groups))
		}
		row := []string{strconv.Itoa(p.ID), strconv.Itoa(p.Round), p.Package}
		row = append(row, p.Levels...)
		row = append(row,
			survey.FormatNumber(p.Utility),
			survey.FormatNumber(p.UtilityStandardized),
			survey.FormatFlag(p.Support),
			survey.FormatFlag(p.Unsupport),
			survey.FormatFlag(p.Inconsistent),
		)
		for _, c := range covariates {
			row = append(row, p.Covariates[c])
		}
		rows[i] = row
	}
	return survey.NewFrame(cols, rows)
}

// PackagesFromFrame reads a table written by PackagesFrame. Any column that
// is neither a key, a level group nor a derived outcome becomes a covariate.
func PackagesFromFrame(df *survey.Frame, groups []string) ([]Package, error) {
	fixed := []string{clean.ColID, ColRound, ColPackage, ColUtility, ColUtilityStd, ColSupport, ColUnsupport, ColInconsistent}
	if err := df.Require(append(append([]string(nil), fixed...), groups...)...); err != nil {
		return nil, eris.Wrap(err, "reshape: read packages")
	}
	known := map[string]bool{}
	for _, c := range fixed {
		known[c] = true
	}
	for _, g := range groups {
		known[g] = true
	}
	var covariates []string
	for _, c := range df.Columns() {
		if !known[c] {
			covariates = append(covariates, c)
		}
	}

	utility, _ := df.Floats(ColUtility)
	std, _ := df.Floats(ColUtilityStd)
	out := make([]Package, df.Len())
	for i := range out {
		get := func(c string) string {
			v, _ := df.Get(i, c)
			return v
		}
		id, err := strconv.Atoi(get(clean.ColID))
		if err != nil {
			return nil, eris.Wrapf(err, "reshape: row %d id", i+1)
		}
		round, err := strconv.Atoi(get(ColRound))
		if err != nil {
			return nil, eris.Wrapf(err, "reshape: row %d round", i+1)
		}
		p := Package{
			ID:                  id,
			Round:               round,
			Package:             get(ColPackage),
			Levels:              make([]string, len(groups)),
			Utility:             utility[i],
			UtilityStandardized: std[i],
			Covariates:          make(map[string]string, len(covariates)),
		}
		p.Support, _ = survey.ParseFlag(get(ColSupport))
		p.Unsupport, _ = survey.ParseFlag(get(ColUnsupport))
		p.Inconsistent, _ = survey.ParseFlag(get(ColInconsistent))
		for k, g := range groups {
			p.Levels[k] = get(g)
		}
		for _, c := range covariates {
			p.Covariates[c] = get(c)
		}
		out[i] = p
	}
	return out, nil
}

func packageCovariates(pkgs []Package) []string {
	rounds := make([]Round, len(pkgs))
	for i, p := range pkgs {
		rounds[i].Covariates = p.Covariates
	}
	return CovariateNames(rounds)
}

// GroupIndex returns the position of group in groups.
func GroupIndex(groups []string, group string) (int, error) {
	for k, g := range groups {
		if g == group {
			return k, nil
		}
	}
	return 0, eris.Errorf("reshape: unknown attribute group %q", group)
}

// GroupNames returns att_1..att_n.
func GroupNames(n int) []string {
	out := make([]string, n)
	for k := range out {
		out[k] = fmt.Sprintf("att_%d", k+1)
	}
	return out
}
