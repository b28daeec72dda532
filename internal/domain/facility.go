package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrFacilityNotFound is returned when a facility ID resolves to nothing,
// either in cache or at the registry.
var ErrFacilityNotFound = errors.New("facility not found")

// Category identifies the kind of facility in the registry.
type Category string

const (
	CategoryHospital Category = "hospital"
	CategoryPharmacy Category = "pharmacy"
)

// AllCategories lists every category the registry publishes.
func AllCategories() []Category {
	return []Category{CategoryHospital, CategoryPharmacy}
}

// ParseCategory validates a user-supplied category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryHospital, CategoryPharmacy:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DayHours holds one day's open/close pair as registry HHMM strings.
// Both fields empty means closed or unreported that day.
type DayHours struct {
	Open  string `json:"open,omitempty"`
	Close string `json:"close,omitempty"`
}

// WeeklyHours is the registry's weekly business-hour table.
// Holiday is carried for clients but does not drive status (see package doc).
type WeeklyHours struct {
	Mon     DayHours `json:"mon,omitempty"`
	Tue     DayHours `json:"tue,omitempty"`
	Wed     DayHours `json:"wed,omitempty"`
	Thu     DayHours `json:"thu,omitempty"`
	Fri     DayHours `json:"fri,omitempty"`
	Sat     DayHours `json:"sat,omitempty"`
	Sun     DayHours `json:"sun,omitempty"`
	Holiday DayHours `json:"holiday,omitempty"`
}

// Day returns the hours column for the given weekday.
func (h WeeklyHours) Day(wd time.Weekday) DayHours {
	switch wd {
	case time.Monday:
		return h.Mon
	case time.Tuesday:
		return h.Tue
	case time.Wednesday:
		return h.Wed
	case time.Thursday:
		return h.Thu
	case time.Friday:
		return h.Fri
	case time.Saturday:
		return h.Sat
	default:
		return h.Sun
	}
}

// Facility is the domain representation of one registry row.
type Facility struct {
	ID         string      `json:"id"`
	RegistryID string      `json:"registry_id"`
	Name       string      `json:"name"`
	Category   Category    `json:"category"`
	Address    string      `json:"address,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	Geo        Geo         `json:"geo"`
	Hours      WeeklyHours `json:"hours"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// FacilityID produces a deterministic ID from a registry row's key fields.
// Refetching the same row always yields the same ID, so cache generations and
// audit events line up without coordination.
func FacilityID(category Category, registryID string) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s|%s", category, registryID))
	return fmt.Sprintf("%s-%s", category, hex.EncodeToString(hash[:8]))
}
