package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/geo"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// AnnotateOptions names the columns used by AddStates.
type AnnotateOptions struct {
	Latitude  string
	Longitude string
	Column    string
	// SkipRows leaves the leading metadata rows of a raw export blank.
	SkipRows int
}

// AddStates writes the state of every respondent into opts.Column. Rows
// without coordinates get an empty state; malformed coordinates are errors.
func AddStates(ctx context.Context, c Client, df *survey.Frame, opts AnnotateOptions) error {
	lat, err := df.Column(opts.Latitude)
	if err != nil {
		return eris.Wrap(err, "geocode: annotate")
	}
	lon, err := df.Column(opts.Longitude)
	if err != nil {
		return eris.Wrap(err, "geocode: annotate")
	}

	states := make([]string, df.Len())
	resolved := 0
	for i := opts.SkipRows; i < df.Len(); i++ {
		if lat[i] == "" && lon[i] == "" {
			continue
		}
		p, err := geo.ParsePoint(lat[i], lon[i])
		if err != nil {
			return eris.Wrapf(err, "geocode: row %d", i+1)
		}
		place, err := c.Reverse(ctx, p.Y(), p.X())
		if err != nil {
			return eris.Wrapf(err, "geocode: row %d", i+1)
		}
		states[i] = place.State
		if place.State != "" {
			resolved++
		}
	}
	zap.L().Info("geocode: states assigned",
		zap.Int("rows", df.Len()-opts.SkipRows),
		zap.Int("resolved", resolved),
	)
	return df.Set(opts.Column, states)
}
