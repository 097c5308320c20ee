package design

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/clean"
)

// CovariateSet selects the respondent-level regressors added next to the
// attribute dummies.
type CovariateSet string

// Covariate sets used by the model variants.
const (
	Base                     CovariateSet = "base"
	WithCovariates           CovariateSet = "with_covariates"
	WithTrust                CovariateSet = "with_trust"
	WithTrustCovariates      CovariateSet = "with_trust_covariates"
	WithCoalRegion           CovariateSet = "with_coal_region"
	WithCoalRegionCovariates CovariateSet = "with_coal_region_covariates"
	WithIncome               CovariateSet = "with_income"
	WithAwareness            CovariateSet = "with_awareness"
	WithUrban                CovariateSet = "with_urban"
	WithDistrict             CovariateSet = "with_district"
)

// ColTreatment is the treatment indicator column.
const ColTreatment = "treatment_status"

var covariateColumns = map[CovariateSet][]string{
	Base:                     nil,
	WithCovariates:           {ColTreatment},
	WithTrust:                {clean.ColTrustID},
	WithTrustCovariates:      {clean.ColTrustID, ColTreatment},
	WithCoalRegion:           {clean.ColCoalRegion},
	WithCoalRegionCovariates: {clean.ColCoalRegion, ColTreatment, clean.ColTrustID},
	WithIncome:               {clean.ColHighIncome},
	WithAwareness:            {clean.ColAware},
	WithUrban:                {"urban"},
	WithDistrict:             nil,
}

// ParseCovariateSet validates a covariate set name. Empty means Base.
func ParseCovariateSet(s string) (CovariateSet, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Base, nil
	}
	set := CovariateSet(s)
	if _, ok := covariateColumns[set]; !ok {
		return "", eris.Errorf("design: unknown covariate set %q", s)
	}
	return set, nil
}

// Columns returns the numeric covariate columns of the set.
func (c CovariateSet) Columns() []string {
	return append([]string(nil), covariateColumns[c]...)
}

// Districts reports whether the set adds district dummies.
func (c CovariateSet) Districts() bool { return c == WithDistrict }
