// Package domain models healthcare facilities (hospitals and pharmacies)
// published by the national open-data facility registry.
//
// # Data Source
//
// Facility rows come from the government open-data portal's facility registry
// API. Responses use the portal's standard envelope (page, perPage, totalCount,
// data[]) and are paginated; the registry adapter pages through results and
// maps each row into a [Facility].
//
// # Registry Data Conventions
//
// Business hours:
//
//	One open/close column pair per weekday (monOpen/monClose .. sunOpen/sunClose)
//	plus a holiday pair (holidayOpen/holidayClose). Values are HHMM strings in
//	facility-local time: "0900" = 09:00, "1830" = 18:30. Three-digit values are
//	zero-padded: "930" → "0930". "2400" is a legal close value meaning end of day.
//	An empty pair means the facility is closed (or hours are unreported) that day.
//
// Overnight spans:
//
//	close < open means the span crosses midnight. A pharmacy listed 0900–0200
//	is open at 01:30 through the *previous* day's row. Equal open and close
//	values are the registry's convention for round-the-clock operation.
//
// Holiday columns:
//
//	The holiday pair applies on public holidays, but resolving "today is a
//	public holiday" requires a civil-calendar feed this service does not carry.
//	Holiday hours are passed through to clients; status computation uses the
//	weekday columns only.
//
// Coordinates:
//
//	WGS-84 latitude/longitude serialized as strings by the registry. Rows with
//	missing or unparseable coordinates are skipped during mapping since the
//	whole product is proximity search.
//
// # Status Classification
//
// [StatusAt] derives a five-value status (open, closing_soon, opening_soon,
// closed, unknown) from the weekly table. The 30-minute window is the
// walk-plus-wait horizon after which sending a user to a facility stops being
// useful. Missing or garbled hours degrade to unknown, never to an error.
//
// # ID Generation
//
// Facility IDs are deterministic SHA-256 hashes of category|registryID, so the
// same registry row always maps to the same ID across fetches and cache
// generations. See [FacilityID].
package domain
