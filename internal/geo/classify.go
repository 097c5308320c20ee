package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Nearest returns the closest reference point and its distance in meters.
// With no references it returns a zero point and +Inf.
func Nearest(p *geom.Point, refs []ReferencePoint) (ReferencePoint, float64) {
	best := math.Inf(1)
	var nearest ReferencePoint
	for _, r := range refs {
		d := Distance(p, r.Point)
		if d < best {
			best = d
			nearest = r
		}
	}
	return nearest, best
}

// Proximate reports whether any reference lies strictly closer than thresholdKM.
func Proximate(p *geom.Point, refs []ReferencePoint, thresholdKM float64) bool {
	_, d := Nearest(p, refs)
	return d < thresholdKM*1000
}
