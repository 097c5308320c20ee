// Package clean turns a raw survey export into the cleaned wide table:
// value recoding, column subsetting, type coercion, respondent IDs and the
// derived indicator columns used downstream.
package clean

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/geo"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Derived column names.
const (
	ColID           = "ID"
	ColTrustAverage = "trust_average"
	ColTrustID      = "trust_ID"
	ColHighIncome   = "high_income"
	ColAware        = "aware"
	ColCoalRegion   = "coal_region"
)

// AwarenessCheck is a knowledge item with its correct answer.
type AwarenessCheck struct {
	Column  string
	Correct string
}

// Proximity flags respondents closer than ThresholdKM to any of Points.
type Proximity struct {
	Name        string
	ThresholdKM float64
	Points      []geo.ReferencePoint
}

// Options controls the derived indicators.
type Options struct {
	Rounds         int
	MetadataRows   int
	TrustColumns   []string
	TrustThreshold float64

	// IncomeColumn is skipped when empty.
	IncomeColumn    string
	IncomeThreshold float64
	IncomeFallback  float64

	// Awareness is skipped when empty.
	Awareness []AwarenessCheck

	// LocationFilter is skipped when empty.
	LocationFilter string

	Latitude  string
	Longitude string
	Proximity []Proximity
}

// DefaultOptions matches the survey instrument used in the study.
func DefaultOptions() Options {
	return Options{
		Rounds:         6,
		MetadataRows:   2,
		TrustColumns:   []string{"trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3"},
		TrustThreshold: 4,
		LocationFilter: "locationFilter",
		Latitude:       "LocationLatitude",
		Longitude:      "LocationLongitude",
	}
}

// Clean produces the cleaned wide table. Missing columns are configuration
// errors and abort before anything is derived.
func Clean(raw *survey.Frame, vars *config.VariableSpec, recode *config.RecodeSpec, opts Options) (*survey.Frame, error) {
	log := zap.L().With(zap.String("task", "clean"))

	df := raw.DropRows(opts.MetadataRows)

	if recode != nil {
		for _, r := range recode.Global() {
			n := df.Replace(r.Values, nil)
			log.Debug("clean: recoded", zap.String("group", r.Name), zap.Int("cells", n))
		}
		for _, r := range recode.Attributes {
			var match func(string) bool
			if r.Filter != "" {
				filter := r.Filter
				match = func(c string) bool { return strings.Contains(c, filter) }
			}
			n := df.Replace(r.Values, match)
			log.Debug("clean: recoded attribute", zap.String("group", r.Name), zap.Int("cells", n))
		}
	}

	df, err := df.Select(vars.Columns())
	if err != nil {
		return nil, eris.Wrap(err, "clean: keep variables")
	}

	coerced := 0
	for _, g := range vars.Groups {
		if g.Type != config.TypeNumerical {
			continue
		}
		for _, name := range g.Names {
			coerced += coerceNumeric(df, name)
		}
	}
	if coerced > 0 {
		log.Warn("clean: left unconvertible numeric cells unchanged", zap.Int("cells", coerced))
	}

	ids := make([]string, df.Len())
	for i := range ids {
		ids[i] = fmt.Sprint(i + 1)
	}
	if err := df.Set(ColID, ids); err != nil {
		return nil, eris.Wrap(err, "clean: assign ids")
	}

	steps := []struct {
		name string
		fn   func(*survey.Frame, Options) error
	}{
		{"inconsistency", addInconsistency},
		{"trust", addTrust},
		{"income", addIncome},
		{"awareness", addAwareness},
		{"coal region", addCoalRegion},
		{"proximity", addProximity},
	}
	for _, s := range steps {
		if err := s.fn(df, opts); err != nil {
			return nil, eris.Wrapf(err, "clean: %s", s.name)
		}
	}

	log.Info("clean: done", zap.Int("respondents", df.Len()), zap.Int("columns", len(df.Columns())))
	return df, nil
}

// coerceNumeric normalizes parseable cells to canonical numbers and leaves
// the rest untouched. Returns the number of cells that failed to parse.
func coerceNumeric(df *survey.Frame, name string) int {
	col, _ := df.Column(name)
	failed := 0
	for i, s := range col {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if v, ok := survey.ParseNumber(s); ok {
			col[i] = survey.FormatNumber(v)
			continue
		}
		failed++
	}
	_ = df.Set(name, col)
	return failed
}
