// FilePath: internal/ingest/ingest_test.go
package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with the same uniqueness guarantees the
// Postgres schema enforces, so the reconciliation rules can be exercised
// without a database.
type fakeStore struct {
	mu          sync.Mutex
	sessions    []fakeSession
	activations []*models.NodeActivation
	readings    []*models.WeatherReading
	detections  []*models.BirdDetection
}

type fakeSession struct {
	id     string
	devEUI string
	closed bool
}

func (f *fakeStore) FindOpenSessionForDevice(_ context.Context, devEUI string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Most recently created open session wins.
	for i := len(f.sessions) - 1; i >= 0; i-- {
		s := f.sessions[i]
		if s.devEUI == devEUI && !s.closed {
			return s.id, nil
		}
	}
	return "", repository.ErrNotFound
}

func (f *fakeStore) FindLatestNodeActivation(_ context.Context, sessionID, deviceID string) (*models.NodeActivation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.NodeActivation
	for _, a := range f.activations {
		if a.SessionID != sessionID || a.DeviceID != deviceID {
			continue
		}
		if latest == nil || a.ActivationTimestamp.After(latest.ActivationTimestamp) {
			latest = a
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) InsertNodeActivation(_ context.Context, activation *models.NodeActivation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.activations {
		if a.SessionID == activation.SessionID && a.DeviceID == activation.DeviceID &&
			a.ActivationTimestamp.Equal(activation.ActivationTimestamp) {
			return repository.ErrDuplicate
		}
	}
	f.activations = append(f.activations, activation)
	return nil
}

func (f *fakeStore) FindLatestWeatherAtOrBefore(_ context.Context, nodeActivationID string, ts time.Time) (*models.WeatherReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.WeatherReading
	for _, r := range f.readings {
		if r.NodeActivationID != nodeActivationID || r.Timestamp.After(ts) {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) FindLatestWeather(_ context.Context, nodeActivationID string) (*models.WeatherReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.WeatherReading
	for _, r := range f.readings {
		if r.NodeActivationID != nodeActivationID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) InsertWeatherReading(_ context.Context, reading *models.WeatherReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.readings {
		if r.NodeActivationID == reading.NodeActivationID && r.Timestamp.Equal(reading.Timestamp) {
			return repository.ErrDuplicate
		}
	}
	f.readings = append(f.readings, reading)
	return nil
}

func (f *fakeStore) InsertBirdDetection(_ context.Context, detection *models.BirdDetection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections = append(f.detections, detection)
	return nil
}

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func openSession(store *fakeStore, id, devEUI string) {
	store.sessions = append(store.sessions, fakeSession{id: id, devEUI: devEUI})
}

func activationAt(devEUI string, sec int64) *ActivationEvent {
	return &ActivationEvent{
		EventMeta: EventMeta{DevEUI: devEUI, Timestamp: ts(sec)},
		Lat:       1, Lng: 2, Altitude: 30,
	}
}

func weatherAt(devEUI string, sec int64, temp float64) *WeatherEvent {
	return &WeatherEvent{
		EventMeta:   EventMeta{DevEUI: devEUI, Timestamp: ts(sec)},
		Temperature: temp, Humidity: 50, Pressure: 29.9,
	}
}

func birdAt(devEUI string, sec int64) *BirdEvent {
	return &BirdEvent{
		EventMeta: EventMeta{DevEUI: devEUI, Timestamp: ts(sec)},
		Species:   "American Robin", ConfidenceLevel: 87,
	}
}

func TestApplyActivationIdempotent(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	first, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.NotEmpty(t, first.InsertedID)

	second, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.InsertedID)

	assert.Len(t, store.activations, 1)
}

func TestApplyActivationNewTimestampCreatesNewRow(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	_, err = Apply(ctx, store, activationAt("node-a", 200))
	require.NoError(t, err)

	assert.Len(t, store.activations, 2)

	// The later activation is now the current one.
	latest, err := store.FindLatestNodeActivation(ctx, "ses_1", "node-a")
	require.NoError(t, err)
	assert.Equal(t, ts(200), latest.ActivationTimestamp)
}

func TestApplyWeatherRequiresActivation(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")

	_, err := Apply(context.Background(), store, weatherAt("node-a", 110, 20))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoNodeActivation))
	assert.Empty(t, store.readings)
}

func TestApplyWeatherIdempotent(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)

	first, err := Apply(ctx, store, weatherAt("node-a", 110, 20))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := Apply(ctx, store, weatherAt("node-a", 110, 20))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	assert.Len(t, store.readings, 1)
}

func TestApplyWeatherUsesLatestActivation(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	second, err := Apply(ctx, store, activationAt("node-a", 200))
	require.NoError(t, err)

	res, err := Apply(ctx, store, weatherAt("node-a", 210, 18))
	require.NoError(t, err)
	assert.Equal(t, second.NodeActivationID, res.NodeActivationID)
}

func TestApplyBirdWeatherResolution(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	weather, err := Apply(ctx, store, weatherAt("node-a", 110, 20))
	require.NoError(t, err)

	// No reading at or before t=105: the most recent reading overall (t=110)
	// is used as the fallback.
	early, err := Apply(ctx, store, birdAt("node-a", 105))
	require.NoError(t, err)
	assert.Equal(t, weather.InsertedID, early.WeatherReadingID)
	assert.True(t, early.StaleWeather)

	// t=110 is the closest reading at or before t=115.
	late, err := Apply(ctx, store, birdAt("node-a", 115))
	require.NoError(t, err)
	assert.Equal(t, weather.InsertedID, late.WeatherReadingID)
	assert.False(t, late.StaleWeather)

	assert.Len(t, store.detections, 2)
}

func TestApplyBirdPicksClosestPriorReading(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)
	_, err = Apply(ctx, store, weatherAt("node-a", 110, 20))
	require.NoError(t, err)
	mid, err := Apply(ctx, store, weatherAt("node-a", 120, 21))
	require.NoError(t, err)
	_, err = Apply(ctx, store, weatherAt("node-a", 130, 22))
	require.NoError(t, err)

	res, err := Apply(ctx, store, birdAt("node-a", 125))
	require.NoError(t, err)
	assert.Equal(t, mid.InsertedID, res.WeatherReadingID)
	assert.False(t, res.StaleWeather)
}

func TestApplyBirdNoWeatherData(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)

	_, err = Apply(ctx, store, birdAt("node-a", 105))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoWeatherData))
	assert.Empty(t, store.detections)
}

func TestApplyNoActiveSession(t *testing.T) {
	store := &fakeStore{}

	_, err := Apply(context.Background(), store, activationAt("node-a", 100))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoActiveSession))
	assert.Empty(t, store.activations)
}

func TestApplySessionResolution(t *testing.T) {
	store := &fakeStore{}
	store.sessions = append(store.sessions,
		fakeSession{id: "ses_old", devEUI: "node-a", closed: true},
		fakeSession{id: "ses_other", devEUI: "node-b"},
		fakeSession{id: "ses_new", devEUI: "node-a"},
	)

	res, err := Apply(context.Background(), store, activationAt("node-a", 100))
	require.NoError(t, err)
	assert.Equal(t, "ses_new", res.SessionID)
}

func TestApplyExplicitSessionWins(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_resolved", "node-a")

	ev := activationAt("node-a", 100)
	ev.SessionID = "ses_explicit"

	res, err := Apply(context.Background(), store, ev)
	require.NoError(t, err)
	assert.Equal(t, "ses_explicit", res.SessionID)
}

func TestApplyMalformedEvents(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")

	tests := []struct {
		name string
		ev   Event
	}{
		{"missing device", &WeatherEvent{EventMeta: EventMeta{Timestamp: ts(100)}}},
		{"missing timestamp", &WeatherEvent{EventMeta: EventMeta{DevEUI: "node-a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(context.Background(), store, tt.ev)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedEvent))
		})
	}

	assert.Empty(t, store.activations)
	assert.Empty(t, store.readings)
}

func TestConcurrentDuplicateWeather(t *testing.T) {
	store := &fakeStore{}
	openSession(store, "ses_1", "node-a")
	ctx := context.Background()

	_, err := Apply(ctx, store, activationAt("node-a", 100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Apply(ctx, store, weatherAt("node-a", 200, 20))
		}(i)
	}
	wg.Wait()

	// Duplicates are skipped, never fatal to the request.
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, store.readings, 1)
}
