package clean

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/geo"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Inconsistent reports whether a forced choice contradicts the Likert pair.
// Ties are consistent with either choice.
func Inconsistent(likertA, likertB float64, choice string) bool {
	prefersA := likertA >= likertB
	prefersB := likertA <= likertB
	switch strings.TrimSpace(choice) {
	case "A":
		return !prefersA
	case "B":
		return !prefersB
	}
	return false
}

func addInconsistency(df *survey.Frame, opts Options) error {
	for r := 1; r <= opts.Rounds; r++ {
		colA := fmt.Sprintf("likert_%d_1", r)
		colB := fmt.Sprintf("likert_%d_2", r)
		colChoice := fmt.Sprintf("choice_set_%d", r)
		if err := df.Require(colA, colB, colChoice); err != nil {
			return err
		}
		a, _ := df.Floats(colA)
		b, _ := df.Floats(colB)
		choice, _ := df.Column(colChoice)

		out := make([]string, df.Len())
		for i := range out {
			out[i] = survey.FormatFlag(Inconsistent(a[i], b[i], choice[i]))
		}
		if err := df.Set(fmt.Sprintf("inconsistency_%d", r), out); err != nil {
			return err
		}
	}
	return nil
}

// TrustScore averages the trust items and applies the strict threshold.
func TrustScore(items []float64, threshold float64) (float64, bool) {
	if len(items) == 0 {
		return math.NaN(), false
	}
	sum := 0.0
	for _, v := range items {
		sum += v
	}
	avg := sum / float64(len(items))
	return avg, avg > threshold
}

func addTrust(df *survey.Frame, opts Options) error {
	if len(opts.TrustColumns) == 0 {
		return nil
	}
	if err := df.Require(opts.TrustColumns...); err != nil {
		return err
	}
	cols := make([][]float64, len(opts.TrustColumns))
	for k, c := range opts.TrustColumns {
		cols[k], _ = df.Floats(c)
	}

	avg := make([]string, df.Len())
	flag := make([]string, df.Len())
	for i := range avg {
		items := make([]float64, len(cols))
		for k := range cols {
			items[k] = cols[k][i]
		}
		a, high := TrustScore(items, opts.TrustThreshold)
		avg[i] = survey.FormatNumber(a)
		flag[i] = survey.FormatFlag(high)
	}
	if err := df.Set(ColTrustAverage, avg); err != nil {
		return err
	}
	return df.Set(ColTrustID, flag)
}

// HighIncome thresholds an income bracket, substituting fallback for missing answers.
func HighIncome(bracket string, threshold, fallback float64) bool {
	v, ok := survey.ParseNumber(bracket)
	if !ok {
		v = fallback
	}
	return v >= threshold
}

func addIncome(df *survey.Frame, opts Options) error {
	if opts.IncomeColumn == "" {
		return nil
	}
	col, err := df.Column(opts.IncomeColumn)
	if err != nil {
		return err
	}
	out := make([]string, len(col))
	for i, s := range col {
		out[i] = survey.FormatFlag(HighIncome(s, opts.IncomeThreshold, opts.IncomeFallback))
	}
	return df.Set(ColHighIncome, out)
}

func addAwareness(df *survey.Frame, opts Options) error {
	if len(opts.Awareness) == 0 {
		return nil
	}
	cols := make([][]string, len(opts.Awareness))
	for k, check := range opts.Awareness {
		c, err := df.Column(check.Column)
		if err != nil {
			return err
		}
		cols[k] = c
	}
	out := make([]string, df.Len())
	for i := range out {
		aware := true
		for k, check := range opts.Awareness {
			if strings.TrimSpace(cols[k][i]) != check.Correct {
				aware = false
				break
			}
		}
		out[i] = survey.FormatFlag(aware)
	}
	return df.Set(ColAware, out)
}

func addCoalRegion(df *survey.Frame, opts Options) error {
	if opts.LocationFilter == "" {
		return nil
	}
	vals, err := df.Floats(opts.LocationFilter)
	if err != nil {
		return err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = survey.FormatFlag(v == 1)
	}
	return df.Set(ColCoalRegion, out)
}

func addProximity(df *survey.Frame, opts Options) error {
	if len(opts.Proximity) == 0 {
		return nil
	}
	lat, err := df.Column(opts.Latitude)
	if err != nil {
		return err
	}
	lon, err := df.Column(opts.Longitude)
	if err != nil {
		return err
	}

	flags := make([][]string, len(opts.Proximity))
	for k := range flags {
		flags[k] = make([]string, df.Len())
	}
	for i := range lat {
		p, err := geo.ParsePoint(lat[i], lon[i])
		if err != nil {
			return eris.Wrapf(err, "respondent %d", i+1)
		}
		for k, prox := range opts.Proximity {
			flags[k][i] = survey.FormatFlag(geo.Proximate(p, prox.Points, prox.ThresholdKM))
		}
	}
	for k, prox := range opts.Proximity {
		if err := df.Set(prox.Name, flags[k]); err != nil {
			return err
		}
	}
	return nil
}
