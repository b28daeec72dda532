// Package registry fetches hospital and pharmacy rows from the government
// open-data facility registry API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/opencare/facility-finder-service/internal/config"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Client implements paginated facility lookups against the registry API.
type Client struct {
	serviceKey string
	httpClient *http.Client
	baseURL    string
	perPage    int
	maxPages   int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a registry client from service configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		serviceKey: cfg.RegistryServiceKey,
		httpClient: &http.Client{
			Timeout: cfg.RegistryTimeout,
		},
		baseURL:  cfg.RegistryBaseURL,
		perPage:  cfg.RegistryPageSize,
		maxPages: cfg.RegistryMaxPages,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchNearby pages through registry rows of one category around a center
// point. Rows that fail to map (missing coordinates, blank identifiers) are
// skipped and counted, never fatal. Stops at the page cap: past a few hundred
// rows the nearest-first product experience no longer improves.
func (c *Client) FetchNearby(ctx context.Context, category domain.Category, center domain.Geo, radiusKm float64) ([]domain.Facility, error) {
	fetchedAt := time.Now().UTC()

	var facilities []domain.Facility
	for page := 1; page <= c.maxPages; page++ {
		params := url.Values{
			"serviceKey": {c.serviceKey},
			"category":   {string(category)},
			"lat":        {strconv.FormatFloat(center.Lat, 'f', 6, 64)},
			"lon":        {strconv.FormatFloat(center.Lon, 'f', 6, 64)},
			"radiusKm":   {strconv.FormatFloat(radiusKm, 'f', 1, 64)},
			"page":       {strconv.Itoa(page)},
			"perPage":    {strconv.Itoa(c.perPage)},
		}

		env, err := c.getPage(ctx, c.baseURL+"/facilities?"+params.Encode(), category)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", category, page, err)
		}

		for _, rec := range env.Data {
			f, err := mapRecord(rec, category, fetchedAt)
			if err != nil {
				c.metrics.RegistryRowsSkipped.Inc()
				c.logger.Warn("skipping registry row",
					"category", category,
					"registry_id", rec.ID,
					"error", err,
				)
				continue
			}
			facilities = append(facilities, f)
		}

		// Short page or totalCount reached means we have everything.
		if len(env.Data) < c.perPage || page*c.perPage >= env.TotalCount {
			break
		}
	}

	return facilities, nil
}

// FetchByID retrieves a single facility by its registry identifier. Returns
// domain.ErrFacilityNotFound when the registry has no matching row.
func (c *Client) FetchByID(ctx context.Context, registryID string) (domain.Facility, error) {
	params := url.Values{
		"serviceKey": {c.serviceKey},
		"registryId": {registryID},
		"page":       {"1"},
		"perPage":    {"1"},
	}

	env, err := c.getPage(ctx, c.baseURL+"/facilities?"+params.Encode(), "detail")
	if err != nil {
		return domain.Facility{}, fmt.Errorf("fetch facility %s: %w", registryID, err)
	}
	if len(env.Data) == 0 {
		return domain.Facility{}, domain.ErrFacilityNotFound
	}

	rec := env.Data[0]
	category, err := domain.ParseCategory(rec.Category)
	if err != nil {
		return domain.Facility{}, fmt.Errorf("facility %s: %w", registryID, err)
	}
	return mapRecord(rec, category, time.Now().UTC())
}

// getPage performs one page request with bounded retries. Network errors, 429,
// and 5xx responses are retried with doubling backoff; a numeric Retry-After
// stretches the wait. Other 4xx responses are terminal.
func (c *Client) getPage(ctx context.Context, fullURL string, category domain.Category) (envelope, error) {
	backoff := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.RegistryRetries.Inc()
			if !sleepWithContext(ctx, backoff) {
				return envelope{}, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		env, retryable, err := c.doRequest(ctx, fullURL, category)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return envelope{}, err
		}
		c.logger.Warn("registry request failed, retrying",
			"category", category,
			"attempt", attempt,
			"error", err,
		)
	}

	return envelope{}, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string, category domain.Category) (envelope, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return envelope{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RegistryRequestDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RegistryRequests.WithLabelValues(string(category), "error").Inc()
		return envelope{}, true, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RegistryRequests.WithLabelValues(string(category), "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("registry API error: status %d: %s", resp.StatusCode, body)
		if !retryableStatus(resp.StatusCode) {
			return envelope{}, false, err
		}
		if wait := parseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			if !sleepWithContext(ctx, wait) {
				return envelope{}, false, ctx.Err()
			}
		}
		return envelope{}, true, err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.metrics.RegistryRequests.WithLabelValues(string(category), "error").Inc()
		return envelope{}, false, fmt.Errorf("decode response: %w", err)
	}

	c.metrics.RegistryRequests.WithLabelValues(string(category), "success").Inc()
	return env, false, nil
}

// retryableStatus reports whether an HTTP status is worth retrying:
// 429 (rate limited) and 5xx (transient server trouble).
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// parseRetryAfter handles the numeric-seconds form of Retry-After.
// HTTP-date values are ignored.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
