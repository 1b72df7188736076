// FilePath: internal/ingest/event_test.go
package ingest

import (
	"testing"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventActivation(t *testing.T) {
	raw := []byte(`{
		"type": 3,
		"session_id": "ses_abc",
		"node_id": "node-a",
		"time_stamp": "2026-05-01T06:00:00Z",
		"lat": 52.52,
		"long": 13.405,
		"altitude": 34.5
	}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	activation, ok := ev.(*ActivationEvent)
	require.True(t, ok)
	assert.Equal(t, "ses_abc", activation.SessionID)
	assert.Equal(t, "node-a", activation.DevEUI)
	assert.Equal(t, time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC), activation.Timestamp)
	assert.Equal(t, 52.52, activation.Lat)
	assert.Equal(t, 13.405, activation.Lng)
	assert.Equal(t, 34.5, activation.Altitude)
}

func TestParseEventWeatherFieldSpellings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			"canonical",
			`{"type":2,"node_id":"node-a","time_stamp":"2026-05-01T06:00:00Z","temperature":18.5,"humidity":61.0,"pressure":29.92}`,
		},
		{
			"legacy",
			`{"type":2,"node_id":"node-a","time_stamp":"2026-05-01T06:00:00Z","temp":18.5,"humid":61.0,"b_pressure":29.92}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.raw))
			require.NoError(t, err)

			weather, ok := ev.(*WeatherEvent)
			require.True(t, ok)
			assert.Equal(t, 18.5, weather.Temperature)
			assert.Equal(t, 61.0, weather.Humidity)
			assert.Equal(t, 29.92, weather.Pressure)
		})
	}
}

func TestParseEventBird(t *testing.T) {
	raw := []byte(`{
		"type": 1,
		"node_id": "node-a",
		"time_stamp": "2026-05-01T06:15:00Z",
		"common_name": "Eurasian Blackbird",
		"confidence_level": 91.2
	}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	bird, ok := ev.(*BirdEvent)
	require.True(t, ok)
	assert.Equal(t, "Eurasian Blackbird", bird.Species)
	assert.Equal(t, 91.2, bird.ConfidenceLevel)
}

func TestParseEventBirdDefaults(t *testing.T) {
	raw := []byte(`{"type":1,"node_id":"node-a","time_stamp":"2026-05-01T06:15:00Z"}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	bird, ok := ev.(*BirdEvent)
	require.True(t, ok)
	assert.Empty(t, bird.Species)
	assert.Zero(t, bird.ConfidenceLevel)
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"type":2,`},
		{"missing node_id", `{"type":2,"time_stamp":"2026-05-01T06:00:00Z"}`},
		{"missing time_stamp", `{"type":2,"node_id":"node-a"}`},
		{"bad time_stamp", `{"type":2,"node_id":"node-a","time_stamp":"yesterday"}`},
		{"unknown type", `{"type":9,"node_id":"node-a","time_stamp":"2026-05-01T06:00:00Z"}`},
		{"zero type", `{"node_id":"node-a","time_stamp":"2026-05-01T06:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedEvent))
		})
	}
}
