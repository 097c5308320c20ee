// Package geocode resolves respondent coordinates to administrative regions
// through a Nominatim reverse-geocoding endpoint.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/conjoint-cli/internal/resilience"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client reverse-geocodes coordinates.
type Client interface {
	// Reverse returns the place containing lat/lon. A location Nominatim
	// cannot resolve yields an empty Place, not an error.
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)
}

// Place is the administrative context of a coordinate.
type Place struct {
	State       string `json:"state"`
	County      string `json:"county,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Option configures the client.
type Option func(*nominatim)

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(n *nominatim) { n.baseURL = u }
}

// WithUserAgent sets the User-Agent header Nominatim's usage policy requires.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) { n.userAgent = ua }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) { n.httpClient = hc }
}

// WithRateLimit caps requests per second. The public instance allows one.
func WithRateLimit(rps float64) Option {
	return func(n *nominatim) {
		if rps <= 0 {
			n.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		n.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry sets the retry policy for timeouts and transient statuses.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(n *nominatim) { n.retry = cfg }
}

// WithBreaker stops calling the service after repeated failures.
func WithBreaker(b *resilience.Breaker) Option {
	return func(n *nominatim) { n.breaker = b }
}

type nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.Breaker
	cache      *cache
}

// NewClient returns a Nominatim client with a one request per second limit,
// five attempts per lookup and an in-memory cache of resolved coordinates.
func NewClient(opts ...Option) Client {
	n := &nominatim{
		baseURL:    DefaultBaseURL,
		userAgent:  "conjoint-cli",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
		cache:      newCache(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.retry.OnRetry == nil {
		n.retry.OnRetry = resilience.LogRetries("nominatim")
	}
	return n
}
