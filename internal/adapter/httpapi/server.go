// Package httpapi exposes the facility search REST API plus health,
// readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/search"
)

// SearchService is the search-layer port the API serves.
type SearchService interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
	Facility(ctx context.Context, registryID string) (search.FacilityResult, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the facility API over HTTP.
type Server struct {
	httpServer      *http.Server
	service         SearchService
	geocoder        domain.Geocoder // nil when geocoding is disabled
	defaultRadiusKm float64
	maxRadiusKm     float64
	logger          *slog.Logger
}

// NewServer creates the API server. geocoder may be nil; the geocoding routes
// then answer 503.
func NewServer(addr string, service SearchService, geocoder domain.Geocoder, defaultRadiusKm, maxRadiusKm float64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:         service,
		geocoder:        geocoder,
		defaultRadiusKm: defaultRadiusKm,
		maxRadiusKm:     maxRadiusKm,
		logger:          logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/facilities", s.handleSearch)
	mux.HandleFunc("GET /api/v1/facilities/{id}", s.handleFacility)
	mux.HandleFunc("GET /api/v1/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/v1/reverse-geocode", s.handleReverseGeocode)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	center, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	radiusKm := s.defaultRadiusKm
	if v := r.URL.Query().Get("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
		radiusKm = min(parsed, s.maxRadiusKm)
	}

	var categories []domain.Category
	if v := r.URL.Query().Get("category"); v != "" && v != "all" {
		category, err := domain.ParseCategory(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "category must be hospital, pharmacy, or all")
			return
		}
		categories = []domain.Category{category}
	}

	openOnly := false
	if v := r.URL.Query().Get("open_only"); v != "" {
		openOnly = v == "true" || v == "1"
	}

	result, err := s.service.Search(r.Context(), search.Query{
		Center:     center,
		RadiusKm:   radiusKm,
		Categories: categories,
		OpenOnly:   openOnly,
	})
	if err != nil {
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusBadGateway, "facility registry is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFacility(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	facility, err := s.service.Facility(r.Context(), id)
	if errors.Is(err, domain.ErrFacilityNotFound) {
		writeError(w, http.StatusNotFound, "facility not found")
		return
	}
	if err != nil {
		s.logger.Error("facility lookup failed", "registry_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "facility registry is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, facility)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding is not enabled")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, err := s.geocoder.ForwardGeocode(r.Context(), query)
	if err != nil {
		s.logger.Error("forward geocode failed", "error", err)
		writeError(w, http.StatusBadGateway, "geocoding provider is unavailable")
		return
	}
	if result.Empty() {
		writeError(w, http.StatusNotFound, "no match for query")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding is not enabled")
		return
	}

	center, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	result, err := s.geocoder.ReverseGeocode(r.Context(), center.Lat, center.Lon)
	if err != nil {
		s.logger.Error("reverse geocode failed", "error", err)
		writeError(w, http.StatusBadGateway, "geocoding provider is unavailable")
		return
	}
	if result.Empty() {
		writeError(w, http.StatusNotFound, "no address at coordinates")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseLatLon reads and validates the lat/lon query parameters, writing a 400
// response itself when they are missing or out of range.
func parseLatLon(w http.ResponseWriter, r *http.Request) (domain.Geo, bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return domain.Geo{}, false
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lat must be in [-90,90] and lon in [-180,180]")
		return domain.Geo{}, false
	}

	return domain.Geo{Lat: lat, Lon: lon}, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
