// Command probe runs live smoke checks against the facility registry and,
// optionally, the Mapbox geocoding API. It fetches facilities around a
// coordinate for every category, checks record quality, round-trips a detail
// lookup, and reports a pass/fail summary per phase.
//
// Usage:
//
//	go run ./cmd/probe \
//	  -base-url https://api.odcloud.kr/api/facility-registry/v1 \
//	  -service-key $REGISTRY_SERVICE_KEY \
//	  -lat 37.5665 -lon 126.9780 -radius 2 \
//	  -mapbox-token $MAPBOX_TOKEN -query "seoul city hall"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/opencare/facility-finder-service/internal/adapter/mapbox"
	"github.com/opencare/facility-finder-service/internal/adapter/registry"
	"github.com/opencare/facility-finder-service/internal/config"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

// phase tracks pass/fail for a probe phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	baseURL := flag.String("base-url", "", "facility registry base URL")
	serviceKey := flag.String("service-key", "", "facility registry service key")
	lat := flag.Float64("lat", 37.5665, "probe latitude")
	lon := flag.Float64("lon", 126.9780, "probe longitude")
	radius := flag.Float64("radius", 2, "probe radius in km")
	mapboxToken := flag.String("mapbox-token", "", "Mapbox token (geocoding phase skipped when empty)")
	query := flag.String("query", "seoul city hall", "forward geocoding query")
	flag.Parse()

	if *baseURL == "" || *serviceKey == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*baseURL, *serviceKey, *lat, *lon, *radius, *mapboxToken, *query); code != 0 {
		os.Exit(code)
	}
}

func run(baseURL, serviceKey string, lat, lon, radius float64, mapboxToken, query string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	cfg := &config.Config{
		RegistryBaseURL:    baseURL,
		RegistryServiceKey: serviceKey,
		RegistryTimeout:    15 * time.Second,
		RegistryPageSize:   100,
		RegistryMaxPages:   5,
	}
	client := registry.NewClient(cfg, metrics, logger)
	center := domain.Geo{Lat: lat, Lon: lon}

	fmt.Println("=== Facility Registry Probe ===")
	fmt.Println()

	facilities, fetchPhase := probeFetch(ctx, client, center, radius)
	phases := []*phase{
		fetchPhase,
		probeRecordQuality(facilities, center, radius),
		probeDetailLookup(ctx, client, facilities),
	}

	if mapboxToken != "" {
		phases = append(phases, probeGeocoding(ctx, mapboxToken, center, query, metrics, logger))
	} else {
		fmt.Println("  Note: -mapbox-token not set, skipping geocoding phase")
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll probes passed.")
		return 0
	}
	fmt.Println("\nProbe FAILED.")
	return 1
}

// ── Phase 1: Registry fetch ──
// Fetches every category around the probe point.

func probeFetch(ctx context.Context, client *registry.Client, center domain.Geo, radius float64) ([]domain.Facility, *phase) {
	p := &phase{name: "Phase 1: Registry Fetch"}

	var all []domain.Facility
	for _, category := range domain.AllCategories() {
		facilities, err := client.FetchNearby(ctx, category, center, radius)
		if err != nil {
			p.errorf("%s: fetch failed: %v", category, err)
			continue
		}
		fmt.Printf("  %s: %d facilities within %.1f km\n", category, len(facilities), radius)
		all = append(all, facilities...)
	}

	if p.passed() && len(all) == 0 {
		p.errorf("registry returned no facilities for any category at %.4f,%.4f", center.Lat, center.Lon)
	}
	return all, p
}

// ── Phase 2: Record quality ──
// Checks coordinates, identifiers, and how many records carry parseable hours.

func probeRecordQuality(facilities []domain.Facility, center domain.Geo, radius float64) *phase {
	p := &phase{name: "Phase 2: Record Quality"}

	statusCounts := map[domain.Status]int{}
	for _, f := range facilities {
		if f.ID == "" || f.RegistryID == "" {
			p.errorf("%q: missing identifier", f.Name)
		}
		if f.Name == "" {
			p.errorf("%s: missing name", f.RegistryID)
		}

		// The registry filters by radius server-side but pads the result set;
		// anything beyond twice the requested radius is a data problem.
		if d := domain.HaversineKm(center, f.Geo); d > 2*radius {
			p.errorf("%q: %.2f km from probe point, beyond 2x requested radius", f.Name, d)
		}

		statusCounts[domain.StatusNow(f.Hours)]++
	}

	total := len(facilities)
	if total > 0 {
		unknown := statusCounts[domain.StatusUnknown]
		fmt.Printf("  status: %d open, %d closing_soon, %d opening_soon, %d closed, %d unknown\n",
			statusCounts[domain.StatusOpen], statusCounts[domain.StatusClosingSoon],
			statusCounts[domain.StatusOpeningSoon], statusCounts[domain.StatusClosed], unknown)

		// Over half the records having unparseable hours points at a column
		// format change upstream.
		if unknown*2 > total {
			p.errorf("%d of %d records have unknown status", unknown, total)
		}
	}
	return p
}

// ── Phase 3: Detail lookup ──
// Round-trips the first fetched facility through the detail endpoint.

func probeDetailLookup(ctx context.Context, client *registry.Client, facilities []domain.Facility) *phase {
	p := &phase{name: "Phase 3: Detail Lookup"}

	if len(facilities) == 0 {
		p.errorf("no facilities to look up")
		return p
	}

	want := facilities[0]
	got, err := client.FetchByID(ctx, want.RegistryID)
	if err != nil {
		p.errorf("fetch %s: %v", want.RegistryID, err)
		return p
	}

	if got.RegistryID != want.RegistryID {
		p.errorf("registry id: expected %q, got %q", want.RegistryID, got.RegistryID)
	}
	if got.Name != want.Name {
		p.errorf("name: expected %q, got %q", want.Name, got.Name)
	}
	if got.Category != want.Category {
		p.errorf("category: expected %q, got %q", want.Category, got.Category)
	}
	return p
}

// ── Phase 4: Geocoding round-trip ──
// Forward-geocodes the query, then reverse-geocodes the result.

func probeGeocoding(ctx context.Context, token string, center domain.Geo, query string, metrics *observability.Metrics, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 4: Geocoding Round-Trip"}

	client := mapbox.NewClient(token, 15*time.Second, &center, metrics, logger)

	forward, err := client.ForwardGeocode(ctx, query)
	if err != nil {
		p.errorf("forward geocode %q: %v", query, err)
		return p
	}
	if forward.Empty() {
		p.errorf("forward geocode %q: no match", query)
		return p
	}
	fmt.Printf("  %q -> %.4f,%.4f (%s)\n", query, forward.Geo.Lat, forward.Geo.Lon, forward.PlaceName)

	reverse, err := client.ReverseGeocode(ctx, forward.Geo.Lat, forward.Geo.Lon)
	if err != nil {
		p.errorf("reverse geocode: %v", err)
		return p
	}
	if reverse.Empty() {
		p.errorf("reverse geocode %.4f,%.4f: no address", forward.Geo.Lat, forward.Geo.Lon)
		return p
	}

	// The reverse result should land near the forward result.
	if d := domain.HaversineKm(forward.Geo, reverse.Geo); d > 1 {
		p.errorf("round-trip drift: %.2f km between forward and reverse results", d)
	}
	return p
}
