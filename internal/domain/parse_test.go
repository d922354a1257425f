package domain_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlomas/station-ingest/internal/domain"
)

func TestDecodePayload(t *testing.T) {
	doc, err := domain.DecodePayload([]byte(`{"PM2_5": 31, "ambient_temperature": 18.4, "valid": true}`))
	require.NoError(t, err)
	assert.Equal(t, float64(31), doc["PM2_5"])
	assert.Equal(t, 18.4, doc["ambient_temperature"])
	assert.Equal(t, true, doc["valid"])
}

func TestDecodePayload_MalformedJSON(t *testing.T) {
	_, err := domain.DecodePayload([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodePayload_NotAnObject(t *testing.T) {
	for _, payload := range []string{`[1, 2, 3]`, `"scalar"`, `null`} {
		_, err := domain.DecodePayload([]byte(payload))
		assert.Error(t, err, "payload %s should be rejected", payload)
	}
}

func TestStationCodeFromTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"/stations/7/", "7"},
		{"/stations/pcb_radio_nebli", "pcb_radio_nebli"},
		{"stations/42", "42"},
		{"/weather_station/", "weather_station"},
	}
	for _, tc := range cases {
		code, err := domain.StationCodeFromTopic(tc.topic)
		require.NoError(t, err, "topic %q", tc.topic)
		assert.Equal(t, tc.want, code, "topic %q", tc.topic)
	}
}

func TestStationCodeFromTopic_NoSegments(t *testing.T) {
	for _, topic := range []string{"", "/", "///"} {
		_, err := domain.StationCodeFromTopic(topic)
		assert.Error(t, err, "topic %q", topic)
	}
}

func TestExtractStationCode_RemovesIDField(t *testing.T) {
	doc := domain.Document{"id": "pcb_radio_nebli", "PM2_5": float64(31)}

	code, err := domain.ExtractStationCode(doc)
	require.NoError(t, err)
	assert.Equal(t, "pcb_radio_nebli", code)
	assert.NotContains(t, doc, "id")
	assert.Contains(t, doc, "PM2_5")
}

func TestExtractStationCode_MissingOrInvalid(t *testing.T) {
	_, err := domain.ExtractStationCode(domain.Document{"PM2_5": float64(31)})
	assert.ErrorIs(t, err, domain.ErrNoStationCode)

	_, err = domain.ExtractStationCode(domain.Document{"id": float64(7)})
	assert.ErrorIs(t, err, domain.ErrNoStationCode)

	_, err = domain.ExtractStationCode(domain.Document{"id": ""})
	assert.ErrorIs(t, err, domain.ErrNoStationCode)
}

func TestStationCode_ConventionSelection(t *testing.T) {
	msg := domain.RawMessage{Topic: "/stations/7/"}
	doc := domain.Document{"id": "pcb_radio_nebli"}

	code, err := domain.StationCode(domain.CodeFromTopic, msg, doc)
	require.NoError(t, err)
	assert.Equal(t, "7", code)
	assert.Contains(t, doc, "id", "topic convention must leave the document untouched")

	code, err = domain.StationCode(domain.CodeFromPayload, msg, doc)
	require.NoError(t, err)
	assert.Equal(t, "pcb_radio_nebli", code)
}

func TestNormalizeMeasurement(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	siteID := int64(3)
	doc := domain.Document{
		"time":                "2024-01-01T00:00:00Z",
		"PM2_5":               float64(31),
		"ambient_temperature": 18.4,
	}

	m, err := domain.NormalizeMeasurement(doc, domain.Identity{StationID: 12, SiteID: &siteID})
	require.NoError(t, err)

	assert.Equal(t, int64(12), m.StationID)
	require.NotNil(t, m.SiteID)
	assert.Equal(t, int64(3), *m.SiteID)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), m.Timestamp)
	assert.Equal(t, fakeClock.Now().UTC(), m.ReceivedAt)

	want := domain.Document{"PM2_5": float64(31), "ambient_temperature": 18.4}
	if diff := cmp.Diff(want, m.Attributes); diff != "" {
		t.Fatalf("attribute blob mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMeasurement_TimezoneAware(t *testing.T) {
	doc := domain.Document{"time": "2024-06-15T10:30:00-05:00", "pm25": float64(12)}

	m, err := domain.NormalizeMeasurement(doc, domain.Identity{StationID: 1})
	require.NoError(t, err)
	assert.True(t, m.Timestamp.Equal(time.Date(2024, time.June, 15, 15, 30, 0, 0, time.UTC)))
}

func TestNormalizeMeasurement_PreservesKeyCasing(t *testing.T) {
	// Different firmware revisions emit different casings for the same
	// quantity; both must survive verbatim.
	doc := domain.Document{
		"time":  "2024-01-01T00:00:00Z",
		"PM2_5": float64(31),
		"pm25":  float64(30),
	}

	m, err := domain.NormalizeMeasurement(doc, domain.Identity{StationID: 1})
	require.NoError(t, err)
	assert.Contains(t, m.Attributes, "PM2_5")
	assert.Contains(t, m.Attributes, "pm25")
}

func TestNormalizeMeasurement_BadTime(t *testing.T) {
	_, err := domain.NormalizeMeasurement(domain.Document{"PM2_5": float64(31)}, domain.Identity{StationID: 1})
	assert.ErrorIs(t, err, domain.ErrNoTimestamp)

	_, err = domain.NormalizeMeasurement(domain.Document{"time": "yesterday"}, domain.Identity{StationID: 1})
	assert.Error(t, err)

	_, err = domain.NormalizeMeasurement(domain.Document{"time": float64(1704067200)}, domain.Identity{StationID: 1})
	assert.Error(t, err)
}
