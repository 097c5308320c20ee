package reshape

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Package labels.
const (
	PackageA = "A"
	PackageB = "B"
)

// Support thresholds on the seven-point utility scale.
const (
	SupportMin   = 5
	UnsupportMax = 3
)

// Package is one policy package rated by one respondent in one round: the
// unit of observation for estimation.
type Package struct {
	ID      int
	Round   int
	Package string

	// Levels are indexed like Options.Groups.
	Levels []string

	Utility             float64
	UtilityStandardized float64
	Support             bool
	Unsupport           bool
	Inconsistent        bool

	Covariates map[string]string
}

// Packages unstacks each round into its A and B package and standardizes
// utility over all packages. Output is sorted by ID, round and package.
func Packages(rounds []Round) []Package {
	out := Descriptive(rounds)
	u := make([]float64, len(out))
	for i := range out {
		u[i] = out[i].Utility
	}
	z, _, _ := Standardize(u)
	for i := range out {
		out[i].UtilityStandardized = z[i]
	}
	return out
}

// Descriptive unstacks rounds like Packages but leaves utility unstandardized.
func Descriptive(rounds []Round) []Package {
	out := make([]Package, 0, 2*len(rounds))
	for _, r := range rounds {
		out = append(out,
			newPackage(r, PackageA, r.A, r.UtilityA),
			newPackage(r, PackageB, r.B, r.UtilityB),
		)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Package < b.Package
	})
	return out
}

func newPackage(r Round, label string, levels []string, utility float64) Package {
	return Package{
		ID:                  r.ID,
		Round:               r.Round,
		Package:             label,
		Levels:              append([]string(nil), levels...),
		Utility:             utility,
		UtilityStandardized: math.NaN(),
		Support:             utility >= SupportMin,
		Unsupport:           utility <= UnsupportMax,
		Inconsistent:        r.Inconsistent,
		Covariates:          r.Covariates,
	}
}

// Filter returns the packages keep accepts.
func Filter(pkgs []Package, keep func(Package) bool) []Package {
	var out []Package
	for _, p := range pkgs {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Standardize returns (x-mean)/std using the sample standard deviation.
// NaN inputs are ignored for the moments and stay NaN in the result.
func Standardize(x []float64) (z []float64, mean, std float64) {
	obs := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}
	mean, std = math.NaN(), math.NaN()
	if len(obs) > 0 {
		mean, std = stat.MeanStdDev(obs, nil)
	}
	if !(std > 0) {
		zap.L().Warn("reshape: no variance to standardize, values left undefined",
			zap.Int("observed", len(obs)),
			zap.Float64("std", std),
		)
	}
	z = make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - mean) / std
	}
	return z, mean, std
}

// Unstandardize maps standardized values back to the original scale.
func Unstandardize(z []float64, mean, std float64) []float64 {
	x := make([]float64, len(z))
	for i, v := range z {
		x[i] = v*std + mean
	}
	return x
}
