package geo

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	// One degree of latitude on a 6,371 km sphere.
	assert.InDelta(t, 111194.93, Haversine(0, 0, 1, 0), 0.1)

	// Austin to Dallas is roughly 290km.
	d := Haversine(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 290_000, d, 10_000)

	// Same point should be 0.
	assert.InDelta(t, 0, Haversine(30.0, -97.0, 30.0, -97.0), 0.001)

	// Symmetric.
	assert.InDelta(t, Haversine(52.52, 13.405, 53.5511, 9.9937), Haversine(53.5511, 9.9937, 52.52, 13.405), 1e-6)
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" 52.52 ", "13.405")
	require.NoError(t, err)
	assert.InDelta(t, 52.52, p.Y(), 1e-9)
	assert.InDelta(t, 13.405, p.X(), 1e-9)

	_, err = ParsePoint("north", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse latitude")

	_, err = ParsePoint("52", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse longitude")

	_, err = ParsePoint("95", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

const referenceJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [14.35, 51.60]}, "properties": {"name": "Jaenschwalde", "category": "coal"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.55, 50.99]}, "properties": {"name": "Garzweiler", "category": "coal"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.405, 52.52]}, "properties": {"name": "Berlin", "category": "city"}}
  ]
}`

func TestLoadReferencePoints(t *testing.T) {
	refs, err := LoadReferencePoints(strings.NewReader(referenceJSON))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "Jaenschwalde", refs[0].Name)
	assert.InDelta(t, 51.60, refs[0].Point.Y(), 1e-9)
	assert.Len(t, ByCategory(refs, "coal"), 2)
	assert.Equal(t, []string{"city", "coal"}, Categories(refs))
}

func TestLoadReferencePoints_Errors(t *testing.T) {
	_, err := LoadReferencePoints(strings.NewReader(`{"type": "FeatureCollection", "features": [
		{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"category": "coal"}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want Point")

	_, err = LoadReferencePoints(strings.NewReader(`{"type": "FeatureCollection", "features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {"name": "x"}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no category")

	_, err = LoadReferencePoints(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestNearestAndProximate(t *testing.T) {
	refs, err := LoadReferencePoints(strings.NewReader(referenceJSON))
	require.NoError(t, err)
	coal := ByCategory(refs, "coal")

	// Cottbus sits about 20km from Jaenschwalde.
	cottbus := NewPoint(51.76, 14.33)
	nearest, d := Nearest(cottbus, coal)
	assert.Equal(t, "Jaenschwalde", nearest.Name)
	assert.Less(t, d, 50_000.0)
	assert.True(t, Proximate(cottbus, coal, 50))
	assert.False(t, Proximate(cottbus, coal, 15))

	_, d = Nearest(cottbus, nil)
	assert.True(t, math.IsInf(d, 1))
	assert.False(t, Proximate(cottbus, nil, 100))
}
