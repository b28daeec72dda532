package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opencare/facility-finder-service/internal/domain"
)

// envelope is the open-data portal's standard paged response.
type envelope struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalCount int      `json:"totalCount"`
	Data       []record `json:"data"`
}

// record is one registry row. Hour columns are HHMM strings; coordinates are
// serialized as strings by the portal.
type record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Phone    string `json:"tel"`
	Lat      string `json:"lat"`
	Lon      string `json:"lon"`

	MonOpen      string `json:"monOpen"`
	MonClose     string `json:"monClose"`
	TueOpen      string `json:"tueOpen"`
	TueClose     string `json:"tueClose"`
	WedOpen      string `json:"wedOpen"`
	WedClose     string `json:"wedClose"`
	ThuOpen      string `json:"thuOpen"`
	ThuClose     string `json:"thuClose"`
	FriOpen      string `json:"friOpen"`
	FriClose     string `json:"friClose"`
	SatOpen      string `json:"satOpen"`
	SatClose     string `json:"satClose"`
	SunOpen      string `json:"sunOpen"`
	SunClose     string `json:"sunClose"`
	HolidayOpen  string `json:"holidayOpen"`
	HolidayClose string `json:"holidayClose"`
}

// mapRecord converts a registry row into a domain Facility. Rows without an
// identifier, name, or usable coordinates are rejected.
func mapRecord(rec record, category domain.Category, fetchedAt time.Time) (domain.Facility, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return domain.Facility{}, fmt.Errorf("missing registry id")
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return domain.Facility{}, fmt.Errorf("missing name")
	}

	lat, errLat := parseCoordinate(rec.Lat)
	lon, errLon := parseCoordinate(rec.Lon)
	if errLat != nil || errLon != nil {
		return domain.Facility{}, fmt.Errorf("unusable coordinates %q,%q", rec.Lat, rec.Lon)
	}

	return domain.Facility{
		ID:         domain.FacilityID(category, id),
		RegistryID: id,
		Name:       name,
		Category:   category,
		Address:    strings.TrimSpace(rec.Address),
		Phone:      strings.TrimSpace(rec.Phone),
		Geo:        domain.Geo{Lat: lat, Lon: lon},
		Hours: domain.WeeklyHours{
			Mon:     dayHours(rec.MonOpen, rec.MonClose),
			Tue:     dayHours(rec.TueOpen, rec.TueClose),
			Wed:     dayHours(rec.WedOpen, rec.WedClose),
			Thu:     dayHours(rec.ThuOpen, rec.ThuClose),
			Fri:     dayHours(rec.FriOpen, rec.FriClose),
			Sat:     dayHours(rec.SatOpen, rec.SatClose),
			Sun:     dayHours(rec.SunOpen, rec.SunClose),
			Holiday: dayHours(rec.HolidayOpen, rec.HolidayClose),
		},
		FetchedAt: fetchedAt,
	}, nil
}

// parseCoordinate parses a registry coordinate string. Zero is rejected along
// with garbage: the portal writes "0" for facilities it never geocoded, and a
// facility at null island is useless to proximity search.
func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("zero coordinate")
	}
	return v, nil
}

func dayHours(open, close string) domain.DayHours {
	return domain.DayHours{
		Open:  strings.TrimSpace(open),
		Close: strings.TrimSpace(close),
	}
}
