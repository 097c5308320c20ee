package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/resilience"
)

// reverseResponse is the jsonv2 payload of /reverse.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		State       string `json:"state"`
		County      string `json:"county"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Reverse implements Client.
func (n *nominatim) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	if p, ok := n.cache.get(lat, lon); ok {
		return p, nil
	}
	if n.breaker != nil {
		if err := n.breaker.Allow(); err != nil {
			return nil, eris.Wrap(err, "geocode: reverse")
		}
	}

	p, err := resilience.DoVal(ctx, n.retry, func(ctx context.Context) (*Place, error) {
		return n.reverseOnce(ctx, lat, lon)
	})
	if n.breaker != nil {
		n.breaker.Record(err)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: reverse %.5f,%.5f", lat, lon)
	}
	n.cache.put(lat, lon, p)
	return p, nil
}

func (n *nominatim) reverseOnce(ctx context.Context, lat, lon float64) (*Place, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {"10"},
		"addressdetails": {"1"},
	}
	reqURL := strings.TrimRight(n.baseURL, "/") + "/reverse?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.FromStatus(eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}
	var rr reverseResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if rr.Error != "" {
		zap.L().Debug("geocode: unresolved location",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.String("reason", rr.Error),
		)
		return &Place{}, nil
	}

	return &Place{
		State:       rr.Address.State,
		County:      rr.Address.County,
		Country:     rr.Address.Country,
		CountryCode: rr.Address.CountryCode,
		DisplayName: rr.DisplayName,
	}, nil
}
