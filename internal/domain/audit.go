package domain

import "time"

// SearchAudit describes one completed proximity search for offline analysis.
// Published to the audit topic when the Kafka publisher is enabled.
type SearchAudit struct {
	ID          string     `json:"id"`
	RecordedAt  time.Time  `json:"recorded_at"`
	Center      Geo        `json:"center"`
	RadiusKm    float64    `json:"radius_km"`
	Categories  []Category `json:"categories"`
	OpenOnly    bool       `json:"open_only"`
	ResultCount int        `json:"result_count"`
	FromCache   bool       `json:"from_cache"`
	DurationMS  int64      `json:"duration_ms"`
}
