package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/fetcher"
	"github.com/sells-group/conjoint-cli/internal/report"
	"github.com/sells-group/conjoint-cli/internal/resilience"
	"github.com/sells-group/conjoint-cli/pkg/geocode"
)

// NewGeocoder builds a reverse geocoder from the configuration.
func NewGeocoder(cfg config.GeocodeConfig) geocode.Client {
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	timeout := 10 * time.Second
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	opts := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: timeout}),
		geocode.WithRateLimit(cfg.RateLimit),
		geocode.WithRetry(retry),
		geocode.WithBreaker(resilience.NewBreaker(0, time.Minute)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.BaseURL))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, geocode.WithUserAgent(cfg.UserAgent))
	}
	return geocode.NewClient(opts...)
}

// GeocodeTask adds a state column to the raw export at in and writes the
// annotated export to out. Metadata rows are kept and left blank.
func (p *Pipeline) GeocodeTask(c geocode.Client, in, out string) Task {
	return Task{
		Name:    "geocode",
		Inputs:  []string{in},
		Outputs: []string{out},
		Run: func(ctx context.Context) error {
			df, err := fetcher.ReadSurvey(ctx, in, fetcher.Options{
				Encoding: p.cfg.Data.Encoding,
				Sheet:    p.cfg.Data.Sheet,
			})
			if err != nil {
				return err
			}
			column := p.cfg.Geocode.Column
			if column == "" {
				column = "state"
			}
			if err := geocode.AddStates(ctx, c, df, geocode.AnnotateOptions{
				Latitude:  p.cfg.Geo.Latitude,
				Longitude: p.cfg.Geo.Longitude,
				Column:    column,
				SkipRows:  p.cfg.Clean.MetadataRows,
			}); err != nil {
				return err
			}
			return report.WriteFrame(out, df)
		},
	}
}
