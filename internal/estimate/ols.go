// Package estimate fits linear probability models with cluster-robust
// standard errors and computes marginal means.
package estimate

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sells-group/conjoint-cli/internal/design"
)

// Sentinel errors for fits that cannot be estimated.
var (
	ErrRankDeficient  = eris.New("estimate: design matrix is rank deficient")
	ErrTooFewClusters = eris.New("estimate: need at least two clusters")
)

// rankTolerance is the relative singular value cutoff used for the rank check.
const rankTolerance = 1e-10

// Stat is a fit statistic that may be undefined. NaN encodes as JSON null.
type Stat float64

// MarshalJSON implements json.Marshaler.
func (s Stat) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Stat(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Stat(f)
	return nil
}

// Model is a fitted OLS model with cluster-robust covariance.
type Model struct {
	RunID    string    `json:"run_id"`
	Name     string    `json:"name,omitempty"`
	FittedAt time.Time `json:"fitted_at"`

	Columns    []string          `json:"columns"`
	References map[string]string `json:"references,omitempty"`

	Coef   []float64   `json:"coef"`
	SE     []Stat      `json:"se"`
	Z      []Stat      `json:"z"`
	P      []Stat      `json:"p"`
	Cov    [][]float64 `json:"cov"`
	NObs   int         `json:"nobs"`
	Groups int         `json:"n_clusters"`

	R2      Stat `json:"r2"`
	F       Stat `json:"f"`
	FPValue Stat `json:"f_pvalue"`
	DFNum   int  `json:"df_num"`
	DFDenom int  `json:"df_denom"`
	Dropped int  `json:"dropped,omitempty"`
}

// Coefficient returns the estimate and standard error of the named column.
func (m *Model) Coefficient(name string) (coef, se float64, ok bool) {
	for j, c := range m.Columns {
		if c == name {
			return m.Coef[j], float64(m.SE[j]), true
		}
	}
	return 0, 0, false
}

// FitOLS regresses d.Y on d.X and clusters the covariance by d.Clusters
// using the CR1 small-sample correction G/(G-1)·(N-1)/(N-K).
func FitOLS(d *design.Design) (*Model, error) {
	n, k := d.X.Dims()
	if n != len(d.Y) || n != len(d.Clusters) {
		return nil, eris.Errorf("estimate: design has %d rows, %d outcomes, %d clusters", n, len(d.Y), len(d.Clusters))
	}

	clusters := map[int][]int{}
	for i, g := range d.Clusters {
		clusters[g] = append(clusters[g], i)
	}
	G := len(clusters)
	if G < 2 {
		return nil, eris.Wrapf(ErrTooFewClusters, "got %d", G)
	}
	if n <= k {
		return nil, eris.Wrapf(ErrRankDeficient, "%d observations for %d columns", n, k)
	}

	var svd mat.SVD
	if !svd.Factorize(d.X, mat.SVDNone) {
		return nil, eris.New("estimate: svd did not converge")
	}
	if r := svd.Rank(rankTolerance); r < k {
		return nil, eris.Wrapf(ErrRankDeficient, "rank %d of %d columns", r, k)
	}

	xtx := mat.NewSymDense(k, nil)
	xtx.SymOuterK(1, d.X.T())
	var chol mat.Cholesky
	if !chol.Factorize(xtx) {
		return nil, eris.Wrap(ErrRankDeficient, "X'X is not positive definite")
	}

	y := mat.NewVecDense(n, append([]float64(nil), d.Y...))
	var xty, beta mat.VecDense
	xty.MulVec(d.X.T(), y)
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, eris.Wrap(ErrRankDeficient, err.Error())
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(d.X, &beta)
	resid.SubVec(y, &fitted)

	var bread mat.SymDense
	if err := chol.InverseTo(&bread); err != nil {
		return nil, eris.Wrap(ErrRankDeficient, err.Error())
	}

	ids := make([]int, 0, G)
	for g := range clusters {
		ids = append(ids, g)
	}
	sort.Ints(ids)
	meat := mat.NewSymDense(k, nil)
	score := mat.NewVecDense(k, nil)
	for _, g := range ids {
		score.Zero()
		for _, i := range clusters[g] {
			score.AddScaledVec(score, resid.AtVec(i), d.X.RowView(i))
		}
		meat.SymRankOne(meat, 1, score)
	}

	var tmp, cov mat.Dense
	tmp.Mul(&bread, meat)
	cov.Mul(&tmp, &bread)
	correction := float64(G) / float64(G-1) * float64(n-1) / float64(n-k)
	cov.Scale(correction, &cov)

	m := &Model{
		RunID:      uuid.NewString(),
		FittedAt:   time.Now().UTC(),
		Columns:    append([]string(nil), d.Columns...),
		References: d.References,
		Coef:       make([]float64, k),
		SE:         make([]Stat, k),
		Z:          make([]Stat, k),
		P:          make([]Stat, k),
		Cov:        make([][]float64, k),
		NObs:       n,
		Groups:     G,
		Dropped:    d.Dropped,
	}
	norm := distuv.UnitNormal
	for j := 0; j < k; j++ {
		m.Coef[j] = beta.AtVec(j)
		se := math.Sqrt(cov.At(j, j))
		z := m.Coef[j] / se
		m.SE[j] = Stat(se)
		m.Z[j] = Stat(z)
		m.P[j] = Stat(2 * norm.Survival(math.Abs(z)))
		m.Cov[j] = mat.Row(nil, j, &cov)
	}

	m.R2 = Stat(rSquared(d.Y, resid.RawVector().Data))
	m.F, m.FPValue, m.DFNum, m.DFDenom = waldF(d.Columns, &beta, &cov, G)
	return m, nil
}

func rSquared(y, resid []float64) float64 {
	mean := stat.Mean(y, nil)
	var tss, ssr float64
	for i, v := range y {
		tss += (v - mean) * (v - mean)
		ssr += resid[i] * resid[i]
	}
	if tss == 0 {
		return math.NaN()
	}
	return 1 - ssr/tss
}

// waldF tests that every non-intercept coefficient is zero using the
// cluster-robust covariance, with G-1 denominator degrees of freedom.
func waldF(columns []string, beta *mat.VecDense, cov *mat.Dense, G int) (f, p Stat, dfNum, dfDenom int) {
	var idx []int
	for j, c := range columns {
		if c != design.Intercept {
			idx = append(idx, j)
		}
	}
	q := len(idx)
	dfDenom = G - 1
	if q == 0 {
		return Stat(math.NaN()), Stat(math.NaN()), 0, dfDenom
	}

	b := mat.NewVecDense(q, nil)
	v := mat.NewDense(q, q, nil)
	for a, ja := range idx {
		b.SetVec(a, beta.AtVec(ja))
		for c, jc := range idx {
			v.Set(a, c, cov.At(ja, jc))
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(v, b); err != nil {
		return Stat(math.NaN()), Stat(math.NaN()), q, dfDenom
	}
	w := mat.Dot(b, &x) / float64(q)
	dist := distuv.F{D1: float64(q), D2: float64(dfDenom)}
	return Stat(w), Stat(dist.Survival(w)), q, dfDenom
}
