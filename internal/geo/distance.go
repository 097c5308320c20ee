// Package geo computes respondent proximity to named reference locations
// such as coal mines, power plants, and major cities.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two
// latitude/longitude pairs given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NewPoint returns an XY point with X=longitude, Y=latitude and SRID 4326.
func NewPoint(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
}

// Distance returns the haversine distance in meters between two points.
func Distance(a, b *geom.Point) float64 {
	return Haversine(a.Y(), a.X(), b.Y(), b.X())
}

// ParsePoint parses survey coordinate cells into a point. Malformed or
// out-of-range values are errors.
func ParsePoint(lat, lon string) (*geom.Point, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: parse latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: parse longitude %q", lon)
	}
	if la < -90 || la > 90 || math.IsNaN(la) {
		return nil, eris.Errorf("geo: latitude %v out of range", la)
	}
	if lo < -180 || lo > 180 || math.IsNaN(lo) {
		return nil, eris.Errorf("geo: longitude %v out of range", lo)
	}
	return NewPoint(la, lo), nil
}
