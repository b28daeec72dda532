package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Facility registry upstream.
	RegistryBaseURL    string
	RegistryServiceKey string
	RegistryTimeout    time.Duration
	RegistryPageSize   int
	RegistryMaxPages   int

	// Search result cache.
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Search behavior.
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	WarmupLat       float64
	WarmupLon       float64

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Kafka search audit publisher.
	AuditEnabled    bool
	KafkaBrokers    []string
	KafkaAuditTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	registryTimeout, err := parseDuration("REGISTRY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "90s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	pageSize, err := parsePositiveInt("REGISTRY_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	maxPages, err := parsePositiveInt("REGISTRY_MAX_PAGES", 5)
	if err != nil {
		return nil, err
	}
	cacheEntries, err := parsePositiveInt("CACHE_MAX_ENTRIES", 512)
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parsePositiveInt("MAPBOX_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	defaultRadius, err := parsePositiveFloat("SEARCH_DEFAULT_RADIUS_KM", 2)
	if err != nil {
		return nil, err
	}
	maxRadius, err := parsePositiveFloat("SEARCH_MAX_RADIUS_KM", 20)
	if err != nil {
		return nil, err
	}

	// Warm-up coordinates default to the registry's coverage centroid; the
	// warm-up fetch only needs any point the upstream will answer for.
	warmupLat, err := parseFloat("WARMUP_LAT", 37.5665)
	if err != nil {
		return nil, err
	}
	warmupLon, err := parseFloat("WARMUP_LON", 126.9780)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RegistryBaseURL:    os.Getenv("REGISTRY_BASE_URL"),
		RegistryServiceKey: os.Getenv("REGISTRY_SERVICE_KEY"),
		RegistryTimeout:    registryTimeout,
		RegistryPageSize:   pageSize,
		RegistryMaxPages:   maxPages,

		CacheTTL:        cacheTTL,
		CacheMaxEntries: cacheEntries,

		DefaultRadiusKm: defaultRadius,
		MaxRadiusKm:     maxRadius,
		WarmupLat:       warmupLat,
		WarmupLon:       warmupLon,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		AuditEnabled:    os.Getenv("AUDIT_ENABLED") == "true",
		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAuditTopic: envOrDefault("KAFKA_AUDIT_TOPIC", "facility-search-audit"),
	}

	if cfg.RegistryBaseURL == "" {
		return nil, errors.New("REGISTRY_BASE_URL is required")
	}
	if cfg.RegistryServiceKey == "" {
		return nil, errors.New("REGISTRY_SERVICE_KEY is required")
	}
	if cfg.MaxRadiusKm < cfg.DefaultRadiusKm {
		return nil, errors.New("SEARCH_MAX_RADIUS_KM must be at least SEARCH_DEFAULT_RADIUS_KM")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.AuditEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("AUDIT_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
