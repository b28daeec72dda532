package mapbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencare/facility-finder-service/internal/cache"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

// geocodeCacheTTL is deliberately long: place names do not move. The bound on
// entries, not the TTL, is what keeps the cache small.
const geocodeCacheTTL = 24 * time.Hour

// CachedGeocoder wraps a Geocoder with a bounded in-memory TTL cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *cache.Cache[domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.New[domain.GeocodingResult](maxEntries, geocodeCacheTTL, nil),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	key := "fwd:" + strings.ToLower(strings.TrimSpace(query))
	if result, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("forward", "hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("forward", "miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, query)
	if err != nil {
		return result, err
	}
	// Only cache real matches so transient "not found" responses can be retried.
	if !result.Empty() {
		c.cache.Put(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := fmt.Sprintf("rev:%.6f,%.6f", lat, lon)
	if result, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("reverse", "hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("reverse", "miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	if !result.Empty() {
		c.cache.Put(key, result)
	}
	return result, nil
}
