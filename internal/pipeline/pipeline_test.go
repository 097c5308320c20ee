package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/conjoint-cli/internal/clean"
	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/design"
	"github.com/sells-group/conjoint-cli/internal/estimate"
	"github.com/sells-group/conjoint-cli/internal/fetcher"
	"github.com/sells-group/conjoint-cli/internal/geo"
	"github.com/sells-group/conjoint-cli/internal/report"
	"github.com/sells-group/conjoint-cli/internal/reshape"
	"github.com/sells-group/conjoint-cli/internal/survey/surveytest"
	"github.com/sells-group/conjoint-cli/pkg/geocode"
)

func testConfig(t *testing.T, respondents int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw_data.csv")
	require.NoError(t, report.WriteFrame(raw, surveytest.Raw(respondents, 21)))

	return &config.Config{
		Data: config.DataConfig{
			Raw:       raw,
			Encoding:  "utf-8",
			Specs:     filepath.Join(dir, "specs.yaml"),
			Recoding:  filepath.Join(dir, "renaming_replacing.yaml"),
			PlotSpecs: filepath.Join(dir, "plot_specs.yaml"),
		},
		Out: config.OutConfig{Dir: filepath.Join(dir, "out")},
		Clean: config.CleanConfig{
			Rounds:          surveytest.Rounds,
			MetadataRows:    2,
			TrustColumns:    []string{"trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3"},
			TrustThreshold:  4,
			IncomeColumn:    "income",
			IncomeThreshold: 4,
			IncomeFallback:  1,
			Awareness:       surveytest.Knowledge,
			LocationFilter:  "locationFilter",
			Covariates:      reshape.DefaultOptions().Covariates,
		},
		Geo:     config.GeoConfig{Latitude: "LocationLatitude", Longitude: "LocationLongitude"},
		Geocode: config.GeocodeConfig{Column: "state"},
		Design:  config.DesignConfig{Attributes: surveytest.Groups, DistrictColumn: "district"},
		Models:  config.DefaultModels(),
		Report:  config.ReportConfig{Decimal: ",", AMCE: "model3c", Width: 6, Height: 4, Figures: true},
	}
}

func TestCleanOptions(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Geo.Enabled = true
	cfg.Geo.Indicators = []config.ProximityIndicator{{Name: "coal_prox", Category: "coal", ThresholdKM: 50}}
	refs := []geo.ReferencePoint{
		{Name: "Boxberg", Category: "coal", Point: geo.NewPoint(51.41, 14.57)},
		{Name: "Leipzig", Category: "city", Point: geo.NewPoint(51.34, 12.37)},
	}

	opts := CleanOptions(cfg, refs)
	assert.Equal(t, 2, opts.MetadataRows)
	assert.Len(t, opts.Awareness, 3)
	assert.Equal(t, clean.AwarenessCheck{Column: "knowledge_1", Correct: "2038"}, opts.Awareness[0])
	require.Len(t, opts.Proximity, 1)
	assert.Equal(t, "coal_prox", opts.Proximity[0].Name)
	require.Len(t, opts.Proximity[0].Points, 1)
	assert.Equal(t, "Boxberg", opts.Proximity[0].Points[0].Name)

	cfg.Geo.Enabled = false
	assert.Empty(t, CleanOptions(cfg, refs).Proximity)
}

func TestReshapeOptions(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Geo.Indicators = []config.ProximityIndicator{{Name: "near_mine"}}
	opts := ReshapeOptions(cfg)
	assert.Equal(t, surveytest.Rounds, opts.Rounds)
	assert.Equal(t, surveytest.Groups, opts.Groups)
	assert.Contains(t, opts.Optional, "near_mine")
	assert.Contains(t, opts.Optional, "state")
}

func TestDesignSpec(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Design.References = map[string]string{"att_2": "No compensation"}
	spec, err := DesignSpec(cfg, config.ModelConfig{Name: "m", Covariates: "with_trust", Outcome: design.OutcomeSupport})
	require.NoError(t, err)
	assert.Equal(t, design.WithTrust, spec.Covariates)
	assert.Equal(t, "No compensation", spec.References["att_2"])

	_, err = DesignSpec(cfg, config.ModelConfig{Name: "bad", Covariates: "with_weather"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model bad")
}

func TestPipeline_EndToEnd(t *testing.T) {
	cfg := testConfig(t, 60)
	p := New(cfg, WithVariableSpec(surveytest.VariableSpec()))
	paths := p.Paths()
	ctx := context.Background()

	results, err := p.Run(ctx, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, TaskStatusComplete, r.Status, r.Name)
	}

	pkgs, err := LoadPackages(ctx, paths.Long(), surveytest.Groups)
	require.NoError(t, err)
	assert.Len(t, pkgs, 60*12)

	for _, mc := range cfg.Models {
		m, err := report.LoadModel(paths.Model(mc.Name))
		require.NoError(t, err, mc.Name)
		assert.Equal(t, mc.Name, m.Name)
		assert.Equal(t, 60, m.Groups)
	}

	mm, err := report.ReadTable[estimate.MarginalMean](paths.MarginalMeans())
	require.NoError(t, err)
	assert.Len(t, mm, 15)

	freq, err := report.ReadTable[design.Frequency](paths.Frequencies())
	require.NoError(t, err)
	assert.Len(t, freq, 15)

	tex, err := os.ReadFile(paths.Table())
	require.NoError(t, err)
	assert.Contains(t, string(tex), "Model 3C")
	assert.Contains(t, string(tex), `\makecell{`)
	assert.Contains(t, string(tex), "Obs & 60 & 60 & 60 & 60 & 60 & 60")

	for _, name := range []string{"support_plot", "AMCE_on_support", "MM_on_support", "MM_treatment", "MM_trust"} {
		_, err := os.Stat(paths.Figure(name))
		assert.NoError(t, err, name)
	}
	pooled, err := report.LoadModel(paths.Model(cfg.Models[0].Name))
	require.NoError(t, err)
	for _, name := range []string{"treatment_control", "treatment_treated"} {
		gm, err := report.LoadModel(paths.GroupModel(name))
		require.NoError(t, err, name)
		assert.Equal(t, pooled.References, gm.References, name)
	}

	results, err = p.Run(ctx, false)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, TaskStatusSkipped, r.Status, r.Name)
	}

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(cfg.Data.Raw, later, later))
	results, err = p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusComplete, results[0].Status)

	results, err = p.Run(ctx, true)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, TaskStatusComplete, r.Status, r.Name)
	}
}

func TestPipeline_MissingSpecIsFatal(t *testing.T) {
	cfg := testConfig(t, 3)
	_, err := New(cfg).Run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable spec")
	_, statErr := os.Stat(New(cfg).Paths().Clean())
	assert.True(t, os.IsNotExist(statErr))
}

type stateClient struct{ calls int }

func (c *stateClient) Reverse(_ context.Context, lat, _ float64) (*geocode.Place, error) {
	c.calls++
	if lat > 51.5 {
		return &geocode.Place{State: "Sachsen-Anhalt"}, nil
	}
	return &geocode.Place{State: "Sachsen"}, nil
}

func TestGeocodeTask(t *testing.T) {
	cfg := testConfig(t, 8)
	out := filepath.Join(t.TempDir(), "raw_with_state.csv")
	client := &stateClient{}

	task := New(cfg).GeocodeTask(client, cfg.Data.Raw, out)
	_, err := Runner{}.Run(context.Background(), []Task{task})
	require.NoError(t, err)
	assert.Equal(t, 8, client.calls)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	df, err := fetcher.ReadCSV(context.Background(), f, fetcher.CSVOptions{})
	require.NoError(t, err)
	states, err := df.Column("state")
	require.NoError(t, err)
	require.Len(t, states, 10)
	assert.Empty(t, states[0], "metadata rows stay blank")
	assert.Empty(t, states[1])
	for _, s := range states[2:] {
		assert.Contains(t, []string{"Sachsen", "Sachsen-Anhalt"}, s)
	}
}
