package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, proximity *domain.Geo) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		proximity:  proximity,
		metrics:    testMetrics(),
		logger:     discardLogger(),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Central Station")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, "126.978000,37.566500", r.URL.Query().Get("proximity"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{126.9707, 37.5547},
					PlaceName: "Central Station, Jung-gu",
					Text:      "Central Station",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, &domain.Geo{Lat: 37.5665, Lon: 126.9780})
	result, err := c.ForwardGeocode(context.Background(), "Central Station")
	require.NoError(t, err)

	assert.InDelta(t, 37.5547, result.Geo.Lat, 1e-9)
	assert.InDelta(t, 126.9707, result.Geo.Lon, 1e-9)
	assert.Equal(t, "Central Station, Jung-gu", result.FormattedAddress)
	assert.Equal(t, "Central Station", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestClient_ForwardGeocode_NoProximity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("proximity"))
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	_, err := c.ForwardGeocode(context.Background(), "anywhere")
	require.NoError(t, err)
}

func TestClient_ForwardGeocode_EmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	result, err := c.ForwardGeocode(context.Background(), "no such place")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mapbox paths carry lon,lat.
		assert.Contains(t, r.URL.Path, "126.978000,37.566500")

		resp := response{
			Features: []feature{
				{
					Center:    []float64{126.9780, 37.5665},
					PlaceName: "1 City Hall Road, Jung-gu",
					Text:      "City Hall Road",
					Relevance: 1,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	result, err := c.ReverseGeocode(context.Background(), 37.5665, 126.9780)
	require.NoError(t, err)

	assert.Equal(t, "1 City Hall Road, Jung-gu", result.FormattedAddress)
	assert.Equal(t, "City Hall Road", result.PlaceName)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Authorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	_, err := c.ForwardGeocode(context.Background(), "anywhere")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte("not-json{{{"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	_, err := c.ReverseGeocode(context.Background(), 37.5665, 126.9780)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

// --- CachedGeocoder ---

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, nil
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, nil
}

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{
			Geo:              domain.Geo{Lat: 37.5547, Lon: 126.9707},
			PlaceName:        "Central Station",
			FormattedAddress: "Central Station, Jung-gu",
		},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	r1, err := cached.ForwardGeocode(context.Background(), "Central Station")
	require.NoError(t, err)
	assert.Equal(t, "Central Station", r1.PlaceName)

	// Key is case- and whitespace-insensitive.
	r2, err := cached.ForwardGeocode(context.Background(), "  central station ")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.forwardCalls, "should only call inner once")
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "1 City Hall Road"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, err := cached.ReverseGeocode(context.Background(), 37.5665, 126.9780)
	require.NoError(t, err)

	_, err = cached.ReverseGeocode(context.Background(), 37.5665, 126.9780)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls, "should only call inner once")
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "nowhere")
	_, _ = cached.ForwardGeocode(context.Background(), "nowhere")

	assert.Equal(t, 2, inner.forwardCalls, "empty results must not be cached")
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{PlaceName: "Place", FormattedAddress: "Place, Jung-gu"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "first place")
	_, _ = cached.ForwardGeocode(context.Background(), "second place")

	assert.Equal(t, 2, inner.forwardCalls)
}
