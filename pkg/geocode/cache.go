package geocode

import "fmt"

// cache remembers places by coordinate rounded to about a meter, so repeated
// respondents at the same location cost one request.
type cache struct {
	places map[string]*Place
}

func newCache() *cache {
	return &cache{places: map[string]*Place{}}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f|%.5f", lat, lon)
}

func (c *cache) get(lat, lon float64) (*Place, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.places[cacheKey(lat, lon)]
	return p, ok
}

func (c *cache) put(lat, lon float64, p *Place) {
	if c == nil {
		return
	}
	c.places[cacheKey(lat, lon)] = p
}
