// Package search orchestrates proximity searches: cache lookup, parallel
// registry fetches, status computation, and distance-sorted assembly.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/opencare/facility-finder-service/internal/cache"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

// FacilityFetcher is the registry-facing port.
type FacilityFetcher interface {
	FetchNearby(ctx context.Context, category domain.Category, center domain.Geo, radiusKm float64) ([]domain.Facility, error)
	FetchByID(ctx context.Context, registryID string) (domain.Facility, error)
}

// AuditPublisher records completed searches. Publishing is best-effort.
type AuditPublisher interface {
	Publish(ctx context.Context, audit domain.SearchAudit) error
}

// Query describes one proximity search.
type Query struct {
	Center     domain.Geo
	RadiusKm   float64
	Categories []domain.Category
	OpenOnly   bool
}

// FacilityResult is a facility with its request-time status and distance.
type FacilityResult struct {
	domain.Facility
	DistanceKm float64       `json:"distance_km"`
	Status     domain.Status `json:"status"`
}

// Result is a completed search, facilities sorted nearest first.
type Result struct {
	Facilities []FacilityResult `json:"facilities"`
	FromCache  bool             `json:"from_cache"`
	FetchedAt  time.Time        `json:"fetched_at"`
}

// regionEntry is the cached payload for one region key: raw facility rows and
// when they were fetched. Status is never cached; it is recomputed per request
// so a TTL cannot make a facility look open after closing time.
type regionEntry struct {
	facilities []domain.Facility
	fetchedAt  time.Time
}

// Options tune the search-result cache.
type Options struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	Clock           clockwork.Clock // nil means real time
}

// Service answers proximity searches and facility lookups.
type Service struct {
	fetcher FacilityFetcher
	audit   AuditPublisher // nil when auditing is disabled
	regions *cache.Cache[regionEntry]
	metrics *observability.Metrics
	logger  *slog.Logger
	flight  singleflight.Group
	ready   atomic.Bool
}

// New creates a search Service. audit may be nil.
func New(fetcher FacilityFetcher, audit AuditPublisher, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 90 * time.Second
	}
	if opts.CacheMaxEntries <= 0 {
		opts.CacheMaxEntries = 512
	}
	return &Service{
		fetcher: fetcher,
		audit:   audit,
		regions: cache.New[regionEntry](opts.CacheMaxEntries, opts.CacheTTL, opts.Clock),
		metrics: metrics,
		logger:  logger,
	}
}

// CheckReadiness returns nil after the first successful registry round-trip,
// or an error describing why the service is not yet ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no successful registry round-trip yet")
	}
	return nil
}

// Search runs one proximity search. Results come from cache when the region
// was fetched within the TTL; status and distance are always computed fresh.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	start := time.Now()

	q = normalize(q)
	key := cacheKey(q)

	entry, ok := s.regions.Get(key)
	fromCache := ok
	if ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()

		var err error
		entry, err = s.fetchRegion(ctx, key, q)
		if err != nil {
			s.metrics.SearchRequests.WithLabelValues("error").Inc()
			return Result{}, err
		}
	}

	res := Result{
		Facilities: s.assemble(entry, q),
		FromCache:  fromCache,
		FetchedAt:  entry.fetchedAt,
	}

	s.metrics.SearchRequests.WithLabelValues("success").Inc()
	s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	s.metrics.SearchResults.Observe(float64(len(res.Facilities)))

	s.publishAudit(q, res, time.Since(start))
	return res, nil
}

// Facility returns one facility by registry ID, from any cached detail row or
// the registry itself.
func (s *Service) Facility(ctx context.Context, registryID string) (FacilityResult, error) {
	key := "id|" + registryID
	if entry, ok := s.regions.Get(key); ok && len(entry.facilities) == 1 {
		f := entry.facilities[0]
		return FacilityResult{Facility: f, Status: domain.StatusNow(f.Hours)}, nil
	}

	f, err := s.fetcher.FetchByID(ctx, registryID)
	if err != nil {
		return FacilityResult{}, err
	}

	s.regions.Put(key, regionEntry{facilities: []domain.Facility{f}, fetchedAt: time.Now().UTC()})
	s.markReady()
	return FacilityResult{Facility: f, Status: domain.StatusNow(f.Hours)}, nil
}

// WarmUp blocks until one registry round-trip succeeds, retrying with backoff,
// so /readyz turns green without waiting for user traffic. Returns on context
// cancellation.
func (s *Service) WarmUp(ctx context.Context, center domain.Geo) {
	backoff := time.Second
	for {
		_, err := s.Search(ctx, Query{
			Center:     center,
			RadiusKm:   1,
			Categories: []domain.Category{domain.CategoryPharmacy},
		})
		if err == nil {
			s.logger.Info("warm-up fetch succeeded")
			return
		}
		s.logger.Warn("warm-up fetch failed", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// fetchRegion populates one region key, collapsing concurrent misses for the
// same key into a single upstream fetch.
func (s *Service) fetchRegion(ctx context.Context, key string, q Query) (regionEntry, error) {
	v, err, _ := s.flight.Do(key, func() (any, error) {
		// Another waiter may have populated the cache while we queued.
		if entry, ok := s.regions.Get(key); ok {
			return entry, nil
		}

		entry, err := s.fetchAll(ctx, q)
		if err != nil {
			return regionEntry{}, err
		}

		s.regions.Put(key, entry)
		s.metrics.CacheEntries.Set(float64(s.regions.Len()))
		s.markReady()
		return entry, nil
	})
	if err != nil {
		return regionEntry{}, err
	}
	return v.(regionEntry), nil
}

// fetchAll fetches every requested category in parallel. One failed category
// degrades the result; the search fails only when every category failed.
func (s *Service) fetchAll(ctx context.Context, q Query) (regionEntry, error) {
	perCategory := make([][]domain.Facility, len(q.Categories))
	errs := make([]error, len(q.Categories))

	var g errgroup.Group
	for i, category := range q.Categories {
		g.Go(func() error {
			facilities, err := s.fetcher.FetchNearby(ctx, category, q.Center, q.RadiusKm)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", category, err)
				return nil
			}
			perCategory[i] = facilities
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			s.logger.Warn("category fetch failed", "category", q.Categories[i], "error", err)
		}
	}
	if failed == len(q.Categories) {
		return regionEntry{}, fmt.Errorf("registry fetch failed: %w", errors.Join(errs...))
	}

	var all []domain.Facility
	for _, facilities := range perCategory {
		all = append(all, facilities...)
	}
	return regionEntry{facilities: all, fetchedAt: time.Now().UTC()}, nil
}

// assemble filters cached rows to the query radius, computes request-time
// status, and sorts nearest first.
func (s *Service) assemble(entry regionEntry, q Query) []FacilityResult {
	box := domain.BoundsAround(q.Center, q.RadiusKm)

	results := make([]FacilityResult, 0, len(entry.facilities))
	for _, f := range entry.facilities {
		if !box.Contains(f.Geo) {
			continue
		}
		d := domain.HaversineKm(q.Center, f.Geo)
		if d > q.RadiusKm {
			continue
		}
		status := domain.StatusNow(f.Hours)
		if q.OpenOnly && status != domain.StatusOpen && status != domain.StatusClosingSoon {
			continue
		}
		results = append(results, FacilityResult{Facility: f, DistanceKm: d, Status: status})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].DistanceKm < results[j].DistanceKm })
	return results
}

func (s *Service) publishAudit(q Query, res Result, took time.Duration) {
	if s.audit == nil {
		return
	}

	audit := domain.SearchAudit{
		ID:          uuid.NewString(),
		RecordedAt:  time.Now().UTC(),
		Center:      q.Center,
		RadiusKm:    q.RadiusKm,
		Categories:  q.Categories,
		OpenOnly:    q.OpenOnly,
		ResultCount: len(res.Facilities),
		FromCache:   res.FromCache,
		DurationMS:  took.Milliseconds(),
	}

	// Fire-and-forget with its own deadline: the API response never waits on
	// the audit topic.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.audit.Publish(ctx, audit); err != nil {
			s.logger.Warn("audit publish failed", "audit_id", audit.ID, "error", err)
		}
	}()
}

func (s *Service) markReady() {
	if s.ready.CompareAndSwap(false, true) {
		s.metrics.ServiceReady.Set(1)
	}
}

// normalize fills default categories and canonicalizes their order so cache
// keys are stable.
func normalize(q Query) Query {
	if len(q.Categories) == 0 {
		q.Categories = domain.AllCategories()
		return q
	}
	slices.Sort(q.Categories)
	q.Categories = slices.Compact(q.Categories)
	return q
}

// cacheKey rounds the center to ~100 m so map panning reuses nearby fetches.
func cacheKey(q Query) string {
	cats := make([]string, len(q.Categories))
	for i, c := range q.Categories {
		cats[i] = string(c)
	}
	return fmt.Sprintf("%s|%.3f,%.3f|%.1f", strings.Join(cats, "+"), q.Center.Lat, q.Center.Lon, q.RadiusKm)
}
