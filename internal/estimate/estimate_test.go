package estimate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/design"
	"github.com/sells-group/conjoint-cli/internal/reshape"
	"github.com/sells-group/conjoint-cli/internal/survey/surveytest"
)

func fixturePackages(t *testing.T, n int) []reshape.Package {
	t.Helper()
	df, err := clean.Clean(surveytest.Raw(n, 5), surveytest.VariableSpec(), nil, clean.DefaultOptions())
	require.NoError(t, err)
	rounds, err := reshape.Long(df, reshape.DefaultOptions())
	require.NoError(t, err)
	return reshape.Packages(rounds)
}

func simpleDesign(x, y []float64, clusters []int) *design.Design {
	data := make([]float64, 0, 2*len(x))
	for _, v := range x {
		data = append(data, 1, v)
	}
	return &design.Design{
		Columns:  []string{design.Intercept, "x"},
		X:        mat.NewDense(len(x), 2, data),
		Y:        y,
		Clusters: clusters,
	}
}

func TestFitOLS_SimpleRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{1, 3, 2, 5, 4, 7, 6, 9}
	clusters := []int{1, 2, 3, 4, 5, 6, 7, 8}

	m, err := FitOLS(simpleDesign(x, y, clusters))
	require.NoError(t, err)

	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i] / n
		my += y[i] / n
	}
	var sxx, sxy float64
	for i := range x {
		sxx += (x[i] - mx) * (x[i] - mx)
		sxy += (x[i] - mx) * (y[i] - my)
	}
	slope := sxy / sxx
	intercept := my - slope*mx
	assert.InDelta(t, intercept, m.Coef[0], 1e-10)
	assert.InDelta(t, slope, m.Coef[1], 1e-10)

	// One observation per cluster reduces CR1 to HC1.
	var meat float64
	for i := range x {
		e := y[i] - intercept - slope*x[i]
		meat += (x[i] - mx) * (x[i] - mx) * e * e
	}
	hc1 := meat / (sxx * sxx) * n / (n - 2)
	assert.InDelta(t, math.Sqrt(hc1), float64(m.SE[1]), 1e-10)

	assert.Equal(t, 8, m.NObs)
	assert.Equal(t, 8, m.Groups)
	assert.Equal(t, 1, m.DFNum)
	assert.Equal(t, 7, m.DFDenom)
	assert.InDelta(t, math.Pow(m.Coef[1]/float64(m.SE[1]), 2), float64(m.F), 1e-8)
	assert.NotEmpty(t, m.RunID)

	coef, se, ok := m.Coefficient("x")
	require.True(t, ok)
	assert.Equal(t, m.Coef[1], coef)
	assert.Equal(t, float64(m.SE[1]), se)
	_, _, ok = m.Coefficient("nope")
	assert.False(t, ok)
}

func TestFitOLS_ClusterCorrection(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{1, 3, 2, 5, 4, 7, 6, 9}

	single, err := FitOLS(simpleDesign(x, y, []int{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, err)
	paired, err := FitOLS(simpleDesign(x, y, []int{1, 1, 2, 2, 3, 3, 4, 4}))
	require.NoError(t, err)

	assert.Equal(t, single.Coef, paired.Coef, "clustering does not move the point estimates")
	assert.Equal(t, 4, paired.Groups)
	assert.Equal(t, 3, paired.DFDenom)
	assert.NotEqual(t, single.SE[1], paired.SE[1])

	// Sum the scores within each cluster, then apply G/(G-1)·(N-1)/(N-K).
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i] / n
		my += y[i] / n
	}
	var sxx float64
	for i := range x {
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	slope, intercept := paired.Coef[1], paired.Coef[0]
	slopeScore := map[int]float64{}
	constScore := map[int]float64{}
	for i, g := range []int{1, 1, 2, 2, 3, 3, 4, 4} {
		e := y[i] - intercept - slope*x[i]
		slopeScore[g] += (x[i] - mx) / sxx * e
		constScore[g] += (1/n - mx*(x[i]-mx)/sxx) * e
	}
	var slopeMeat, constMeat float64
	for g := range slopeScore {
		slopeMeat += slopeScore[g] * slopeScore[g]
		constMeat += constScore[g] * constScore[g]
	}
	correction := 4.0 / 3.0 * 7.0 / 6.0
	assert.InDelta(t, math.Sqrt(correction*slopeMeat), float64(paired.SE[1]), 1e-12)
	assert.InDelta(t, 0.07207217530427965, float64(paired.SE[1]), 1e-12)
	assert.InDelta(t, math.Sqrt(correction*constMeat), float64(paired.SE[0]), 1e-12)
}

func TestFitOLS_TooFewClusters(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 2, 2, 4}
	_, err := FitOLS(simpleDesign(x, y, []int{7, 7, 7, 7}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooFewClusters)
}

func TestFitOLS_RankDeficient(t *testing.T) {
	pkgs := fixturePackages(t, 10)
	d, err := design.Build(pkgs, design.Spec{Groups: surveytest.Groups, KeepReferences: true})
	require.NoError(t, err)

	_, err = FitOLS(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRankDeficient)
}

func TestFitOLS_Fixture(t *testing.T) {
	pkgs := fixturePackages(t, 60)
	d, err := design.Build(pkgs, design.Spec{Groups: surveytest.Groups, Covariates: design.WithCoalRegionCovariates})
	require.NoError(t, err)

	m, err := FitOLS(d)
	require.NoError(t, err)
	assert.Equal(t, 60*12, m.NObs)
	assert.Equal(t, 60, m.Groups)
	assert.GreaterOrEqual(t, float64(m.R2), 0.0)
	assert.LessOrEqual(t, float64(m.R2), 1.0)
	assert.Greater(t, float64(m.F), 0.0)
	for j := range m.Columns {
		assert.Greater(t, float64(m.SE[j]), 0.0, m.Columns[j])
		assert.GreaterOrEqual(t, float64(m.P[j]), 0.0)
		assert.LessOrEqual(t, float64(m.P[j]), 1.0)
		assert.InDelta(t, m.Cov[j][j], float64(m.SE[j])*float64(m.SE[j]), 1e-12)
	}
}

func TestStat_JSONNull(t *testing.T) {
	m := Model{R2: Stat(math.NaN()), F: 2.5}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"r2":null`)

	var back Model
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsNaN(float64(back.R2)))
	assert.Equal(t, Stat(2.5), back.F)
}

func TestConditionalProbability(t *testing.T) {
	p, se := ConditionalProbability(3, 4)
	assert.InDelta(t, 0.75, p, 1e-12)
	assert.InDelta(t, math.Sqrt(0.75*0.25/4), se, 1e-12)

	p, se = ConditionalProbability(0, 0)
	assert.True(t, math.IsNaN(p))
	assert.True(t, math.IsNaN(se))
}

func TestMarginalMeans_Bounds(t *testing.T) {
	pkgs := fixturePackages(t, 25)
	mm, err := PackageMarginalMeans(pkgs, surveytest.Groups)
	require.NoError(t, err)
	require.NotEmpty(t, mm)

	for _, m := range mm {
		require.Positive(t, m.N)
		assert.GreaterOrEqual(t, m.P, 0.0)
		assert.LessOrEqual(t, m.P, 1.0)
		assert.GreaterOrEqual(t, m.SE, 0.0)
		assert.LessOrEqual(t, m.SE, 0.5)
	}
}

func TestMarginalMeans_EmptyLevel(t *testing.T) {
	d := &design.Dummies{
		Columns: []string{"att_1_a", "att_1_b"},
		Groups:  []string{"att_1", "att_1"},
		Levels:  []string{"a", "b"},
		X:       mat.NewDense(3, 2, []float64{1, 0, 1, 0, 1, 0}),
	}
	mm, err := MarginalMeans(d, []bool{true, false, true})
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, mm[0].P, 1e-12)
	assert.Equal(t, 3, mm[0].N)
	assert.Equal(t, 0, mm[1].N)
	assert.True(t, math.IsNaN(mm[1].P))
	assert.True(t, math.IsNaN(mm[1].SE))

	_, err = MarginalMeans(d, []bool{true})
	require.Error(t, err)
}

func TestSplitPartition(t *testing.T) {
	pkgs := []reshape.Package{
		{ID: 1, Covariates: map[string]string{"treatment_status": "1"}},
		{ID: 2, Covariates: map[string]string{"treatment_status": "0"}},
		{ID: 3, Covariates: map[string]string{"treatment_status": ""}},
		{ID: 4, Covariates: map[string]string{"treatment_status": "1"}},
	}
	split := DefaultSplits()[0]
	low, high := split.Partition(pkgs)
	require.Len(t, low, 1)
	require.Len(t, high, 2)
	assert.Equal(t, 2, low[0].ID)
}

func TestAvailable(t *testing.T) {
	pkgs := fixturePackages(t, 2)
	names := map[string]bool{}
	for _, s := range Available(pkgs, DefaultSplits()) {
		names[s.Name] = true
	}
	assert.True(t, names["treatment"])
	assert.True(t, names["trust"])
	assert.False(t, names["urban"])
	assert.Nil(t, Available(nil, DefaultSplits()))
}

func TestFitGroups(t *testing.T) {
	pkgs := fixturePackages(t, 60)
	fits, err := FitGroups(pkgs, design.Spec{Groups: surveytest.Groups}, DefaultSplits()[:1])
	require.NoError(t, err)
	require.Len(t, fits, 2)
	assert.Equal(t, "control", fits[0].Subgroup)
	assert.Equal(t, "treated", fits[1].Subgroup)
	assert.Equal(t, 30*12, fits[0].Model.NObs)
	assert.Equal(t, "treatment_treated", fits[1].Model.Name)
}

func TestGroupMarginalMeans(t *testing.T) {
	pkgs := fixturePackages(t, 20)
	split := DefaultSplits()[1]
	gm, err := GroupMarginalMeans(pkgs, surveytest.Groups, split)
	require.NoError(t, err)
	require.NotEmpty(t, gm)
	for _, m := range gm {
		assert.Equal(t, "trust", m.Split)
		assert.Contains(t, []string{"low_trust", "high_trust"}, m.Subgroup)
	}
}
