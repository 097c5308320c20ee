package geo

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ReferencePoint is a named location respondents are measured against.
type ReferencePoint struct {
	Name     string
	Category string
	Point    *geom.Point
}

// LoadReferencePoints reads a GeoJSON FeatureCollection of Point features.
// Each feature needs "name" and "category" properties.
func LoadReferencePoints(r io.Reader) ([]ReferencePoint, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "geo: decode reference points")
	}

	out := make([]ReferencePoint, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("geo: feature %d is %T, want Point", i, f.Geometry)
		}
		name, _ := f.Properties["name"].(string)
		category, _ := f.Properties["category"].(string)
		if category == "" {
			return nil, eris.Errorf("geo: feature %d (%q) has no category", i, name)
		}
		out = append(out, ReferencePoint{
			Name:     name,
			Category: category,
			Point:    geom.NewPointFlat(geom.XY, []float64{pt.X(), pt.Y()}).SetSRID(4326),
		})
	}
	return out, nil
}

// LoadReferenceFile reads reference points from a GeoJSON file.
func LoadReferenceFile(path string) ([]ReferencePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadReferencePoints(f)
}

// ByCategory returns the points in the given category.
func ByCategory(points []ReferencePoint, category string) []ReferencePoint {
	var out []ReferencePoint
	for _, p := range points {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func Categories(points []ReferencePoint) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range points {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}
