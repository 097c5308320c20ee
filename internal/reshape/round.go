// Package reshape converts the cleaned wide table into the long tables used
// for estimation: one row per respondent and round, then one row per
// respondent, round and package.
package reshape

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Round is one choice task answered by one respondent.
type Round struct {
	ID    int
	Round int

	// A and B hold the package levels, indexed like Options.Groups.
	A []string
	B []string

	Choice       string
	UtilityA     float64
	UtilityB     float64
	Inconsistent bool

	// Covariates are respondent-level values copied into every round.
	Covariates map[string]string
}

// Options describes the wide layout.
type Options struct {
	Rounds int
	Groups []string

	// Covariates must be present in the cleaned table.
	Covariates []string
	// Optional covariates are copied when the cleaned table has them.
	Optional []string
}

// DefaultOptions matches the instrument: six rounds of five attributes.
func DefaultOptions() Options {
	return Options{
		Rounds: 6,
		Groups: GroupNames(5),
		Covariates: []string{
			"treatment_status",
			"trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3",
			clean.ColTrustAverage, clean.ColTrustID, clean.ColCoalRegion,
		},
		Optional: []string{
			clean.ColHighIncome, clean.ColAware,
			"coal_prox", "coal_region_100km", "urban", "district", "state",
		},
	}
}

// Long unstacks the rounds of the cleaned table into one Round per
// respondent and round, sorted by ID then round.
func Long(df *survey.Frame, opts Options) ([]Round, error) {
	if len(opts.Groups) == 0 {
		return nil, eris.New("reshape: no attribute groups")
	}
	if err := df.Require(clean.ColID); err != nil {
		return nil, eris.Wrap(err, "reshape: long")
	}
	if err := df.Require(opts.Covariates...); err != nil {
		return nil, eris.Wrap(err, "reshape: covariates")
	}
	covariates := append([]string(nil), opts.Covariates...)
	for _, c := range opts.Optional {
		if df.Has(c) {
			covariates = append(covariates, c)
		}
	}

	ids, _ := df.Column(clean.ColID)
	out := make([]Round, 0, df.Len()*opts.Rounds)
	for r := 1; r <= opts.Rounds; r++ {
		cols := roundColumns(r, opts.Groups)
		if err := df.Require(cols.all()...); err != nil {
			return nil, eris.Wrapf(err, "reshape: round %d", r)
		}
		choice, _ := df.Column(cols.choice)
		ua, _ := df.Floats(cols.utilityA)
		ub, _ := df.Floats(cols.utilityB)
		inc, _ := df.Column(cols.inconsistent)
		levelsA := make([][]string, len(opts.Groups))
		levelsB := make([][]string, len(opts.Groups))
		for k := range opts.Groups {
			levelsA[k], _ = df.Column(cols.a[k])
			levelsB[k], _ = df.Column(cols.b[k])
		}

		for i := 0; i < df.Len(); i++ {
			id, err := strconv.Atoi(ids[i])
			if err != nil {
				return nil, eris.Wrapf(err, "reshape: respondent id %q", ids[i])
			}
			row := Round{
				ID:         id,
				Round:      r,
				A:          make([]string, len(opts.Groups)),
				B:          make([]string, len(opts.Groups)),
				Choice:     choice[i],
				UtilityA:   ua[i],
				UtilityB:   ub[i],
				Covariates: make(map[string]string, len(covariates)),
			}
			row.Inconsistent, _ = survey.ParseFlag(inc[i])
			for k := range opts.Groups {
				row.A[k] = levelsA[k][i]
				row.B[k] = levelsB[k][i]
			}
			for _, c := range covariates {
				row.Covariates[c], _ = df.Get(i, c)
			}
			out = append(out, row)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Round < out[j].Round
	})
	return out, nil
}

type wideColumns struct {
	a, b         []string
	choice       string
	utilityA     string
	utilityB     string
	inconsistent string
}

func roundColumns(r int, groups []string) wideColumns {
	c := wideColumns{
		choice:       fmt.Sprintf("choice_set_%d", r),
		utilityA:     fmt.Sprintf("likert_%d_1", r),
		utilityB:     fmt.Sprintf("likert_%d_2", r),
		inconsistent: fmt.Sprintf("inconsistency_%d", r),
	}
	for _, g := range groups {
		c.a = append(c.a, fmt.Sprintf("round_%d_%s_a", r, g))
		c.b = append(c.b, fmt.Sprintf("round_%d_%s_b", r, g))
	}
	return c
}

func (c wideColumns) all() []string {
	out := append([]string(nil), c.a...)
	out = append(out, c.b...)
	return append(out, c.choice, c.utilityA, c.utilityB, c.inconsistent)
}

// CovariateNames returns the covariate keys carried by rounds, sorted.
func CovariateNames(rounds []Round) []string {
	seen := map[string]bool{}
	for _, r := range rounds {
		for k := range r.Covariates {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
