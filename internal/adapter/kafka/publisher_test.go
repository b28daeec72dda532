package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencare/facility-finder-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)
	audit := domain.SearchAudit{
		ID:          "audit-1",
		RecordedAt:  now,
		Center:      domain.Geo{Lat: 37.5665, Lon: 126.9780},
		RadiusKm:    2,
		Categories:  []domain.Category{domain.CategoryPharmacy},
		OpenOnly:    true,
		ResultCount: 7,
		DurationMS:  42,
	}

	msg, err := serializeToMessage(audit)
	require.NoError(t, err)

	assert.Equal(t, []byte("audit-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"result_count":7`)
	assert.Contains(t, string(msg.Value), `"open_only":true`)
	assert.Contains(t, string(msg.Value), `"categories":["pharmacy"]`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "schema", msg.Headers[0].Key)
	assert.Equal(t, []byte(auditSchema), msg.Headers[0].Value)
	assert.Equal(t, "recorded_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
